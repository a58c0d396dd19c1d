package recorder

import (
	"errors"

	"GannCycles/internal/model"
)

// Recorder persists the reports of analysis runs.
type Recorder interface {
	RecordReport(report *model.Report) error
	Close() error
}

// RunSummary is one row of the run history.
type RunSummary struct {
	RunID            string
	CreatedAt        int64
	Symbol           string
	Source           string
	AnalysisDate     string
	CurrentPrice     string
	ConvergenceCount int
	TopDate          string
	TopScore         int
}

// ErrNoHistory is returned by RecentRuns when no recorder keeps run history.
var ErrNoHistory = errors.New("run history is not being recorded")

// HistoryReader is implemented by recorders that can list past runs.
type HistoryReader interface {
	RecentRuns(limit int) ([]RunSummary, error)
}

// MultiRecorder fans a report out to several recorders. Every recorder is attempted; errors are joined.
type MultiRecorder []Recorder

func (m MultiRecorder) RecordReport(report *model.Report) error {
	var errs []error
	for _, r := range m {
		if err := r.RecordReport(report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiRecorder) Close() error {
	var errs []error
	for _, r := range m {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecentRuns delegates to the first member that keeps history.
func (m MultiRecorder) RecentRuns(limit int) ([]RunSummary, error) {
	for _, r := range m {
		if h, ok := r.(HistoryReader); ok {
			return h.RecentRuns(limit)
		}
	}
	return nil, ErrNoHistory
}
