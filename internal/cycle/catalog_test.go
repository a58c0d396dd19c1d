package cycle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GannCycles/internal/model"
)

func TestDefaultCatalog_FamiliesSortedAndUnique(t *testing.T) {
	c := DefaultCatalog()
	for name, family := range map[string][]int{"gann": c.Gann(), "square": c.Square(), "fibonacci": c.Fibonacci()} {
		require.NotEmpty(t, family, name)
		for i := 1; i < len(family); i++ {
			assert.Less(t, family[i-1], family[i], "%s not strictly ascending at %d", name, i)
		}
	}
	assert.Equal(t, 720, c.MaxLength())
}

func TestCatalog_SharedLengthsBelongToFirstFamily(t *testing.T) {
	c := DefaultCatalog()
	byLength := map[int]model.CycleCategory{}
	for _, cy := range c.Cycles() {
		_, dup := byLength[cy.LengthDays]
		require.False(t, dup, "length %d listed twice", cy.LengthDays)
		byLength[cy.LengthDays] = cy.Category
	}
	assert.Equal(t, model.CategoryGann, byLength[144])
	assert.Equal(t, model.CategoryGann, byLength[225])
	assert.Equal(t, model.CategorySquare, byLength[49])
	assert.Equal(t, model.CategoryFibonacci, byLength[233])
}

func TestNewCatalog_NormalizesInput(t *testing.T) {
	c, err := NewCatalog([]int{90, 30, 90}, []int{64, 49}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{30, 90}, c.Gann())
	assert.Equal(t, []int{49, 64}, c.Square())
	assert.Empty(t, c.Fibonacci())
}

func TestNewCatalog_RejectsNonPositive(t *testing.T) {
	_, err := NewCatalog([]int{30, 0}, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrValidation))
}

func TestCatalog_AccessorsReturnCopies(t *testing.T) {
	c := DefaultCatalog()
	g := c.Gann()
	g[0] = 9999
	assert.Equal(t, 30, c.Gann()[0])
}
