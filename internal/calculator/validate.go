package calculator

import (
	"math"

	"GannCycles/internal/model"
)

func requirePositive(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return model.NewValidationError(field, "must be a positive finite number, got %v", v)
	}
	return nil
}

func roleAgainst(level, reference float64) model.LevelRole {
	if level > reference {
		return model.RoleResistance
	}
	return model.RoleSupport
}
