package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"GannCycles/internal/analysis"
	"GannCycles/internal/model"
	"GannCycles/internal/notifier"
	"GannCycles/internal/recorder"
)

// Snapshotter supplies market data for an auto-mode run.
type Snapshotter interface {
	Collect(ctx context.Context) (*model.MarketSnapshot, error)
}

// Publisher emits finished reports.
type Publisher interface {
	PublishReport(ctx context.Context, report *model.Report) error
}

// Scheduler runs auto-mode analyses on a cron schedule and answers chat commands.
type Scheduler struct {
	Cron      *cron.Cron
	Collector Snapshotter
	Engine    *analysis.Engine
	Notifier  notifier.Sender // nil disables notifications
	Recorder  recorder.Recorder
	Publisher Publisher // nil disables publishing
	Today     func() model.Date
	Ctx       context.Context

	mu   sync.Mutex
	last *model.Report
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, col Snapshotter, engine *analysis.Engine, rec recorder.Recorder) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Collector: col,
		Engine:    engine,
		Recorder:  rec,
		Today:     func() model.Date { return model.DateOf(time.Now().UTC()) },
		Ctx:       ctx,
	}
}

// RegisterAll registers the periodic analysis task.
func (s *Scheduler) RegisterAll(analysisCron string) error {
	if _, err := s.Cron.AddFunc(analysisCron, s.analysisTask); err != nil {
		return fmt.Errorf("register analysis task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info("scheduler stopped")
}

// RunNow executes the analysis task immediately (for manual trigger / run on start).
func (s *Scheduler) RunNow() {
	s.analysisTask()
}

func (s *Scheduler) analysisTask() {
	log.Info("running scheduled analysis")
	report, err := s.RunAnalysis(s.Ctx)
	if err != nil {
		log.Errorf("scheduled analysis: %v", err)
		s.trySend(notifier.FormatError("Scheduled analysis", err))
		return
	}
	s.trySend(notifier.FormatReport(report))
}

// RunAnalysis collects market data, analyzes it, then records and publishes the report.
func (s *Scheduler) RunAnalysis(ctx context.Context) (*model.Report, error) {
	snap, err := s.Collector.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}

	report, err := s.Engine.Analyze(analysis.Request{
		Symbol:        snap.Symbol,
		Source:        snap.Source,
		Pivots:        snap.Pivots,
		CurrentPrice:  decimal.NewFromFloat(snap.CurrentPrice),
		ReferenceDate: s.Today(),
	})
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	s.Deliver(ctx, report)
	return report, nil
}

// Deliver records and publishes a report and remembers it as the latest one.
// Delivery failures are logged; the report itself stays valid.
func (s *Scheduler) Deliver(ctx context.Context, report *model.Report) {
	fields := log.Fields{"run_id": report.RunID, "points": len(report.Convergences)}

	if err := s.Recorder.RecordReport(report); err != nil {
		log.WithFields(fields).Errorf("record report: %v", err)
	}
	if s.Publisher != nil {
		if err := s.Publisher.PublishReport(ctx, report); err != nil {
			log.WithFields(fields).Errorf("publish report: %v", err)
		}
	}

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()
	log.WithFields(fields).Info("report delivered")
}

// Latest returns the most recently delivered report, or nil.
func (s *Scheduler) Latest() *model.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	command := strings.ToLower(fields[0])
	// Group chats address commands as /report@botname.
	if i := strings.IndexByte(command, '@'); i >= 0 {
		command = command[:i]
	}

	switch command {
	case "/report":
		report, err := s.RunAnalysis(ctx)
		if err != nil {
			log.Errorf("report command: %v", err)
			return notifier.FormatError("Analysis", err)
		}
		return notifier.FormatReport(report)
	case "/levels":
		report := s.Latest()
		if report == nil {
			var err error
			if report, err = s.RunAnalysis(ctx); err != nil {
				log.Errorf("levels command: %v", err)
				return notifier.FormatError("Analysis", err)
			}
		}
		return notifier.FormatLevels(report, 5)
	case "/history":
		h, ok := s.Recorder.(recorder.HistoryReader)
		if !ok {
			return "Run history is not being recorded."
		}
		runs, err := h.RecentRuns(10)
		if errors.Is(err, recorder.ErrNoHistory) {
			return "Run history is not being recorded."
		}
		if err != nil {
			log.Errorf("history command: %v", err)
			return notifier.FormatError("History", err)
		}
		return notifier.FormatHistory(runs)
	case "/help", "/start":
		return notifier.FormatHelp()
	default:
		return "Unknown command.\n\n" + notifier.FormatHelp()
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Errorf("send notification: %v", err)
	}
}
