package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"
)

// scheduleParser supports standard 5-field cron and descriptors like
// "@every 5m".
var scheduleParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// ParseSchedule parses a cron expression and returns the schedule.
func ParseSchedule(expr string) (cronlib.Schedule, error) {
	return scheduleParser.Parse(expr)
}

// RunFunc is the callback the scheduler fires on each due tick.
// Importer.Run (wrapped) satisfies it.
type RunFunc func(ctx context.Context)

// Scheduler fires an import run on a cron schedule. The importer's own
// overlap guard handles a run outliving its interval.
type Scheduler struct {
	schedule cronlib.Schedule
	expr     string
	run      RunFunc
	logger   *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSchedulerLogger sets the scheduler's logger.
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewScheduler creates a scheduler firing run per the given cron
// expression (5-field or @every descriptor).
func NewScheduler(expr string, run RunFunc, opts ...SchedulerOption) (*Scheduler, error) {
	schedule, err := ParseSchedule(expr)
	if err != nil {
		return nil, fmt.Errorf("feed: parse schedule %q: %w", expr, err)
	}
	s := &Scheduler{
		schedule: schedule,
		expr:     expr,
		run:      run,
		logger:   slog.Default(),
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start launches the tick loop.
func (s *Scheduler) Start(_ context.Context) error {
	s.wg.Add(1)
	go s.loop()
	s.logger.Info("import scheduler started", slog.String("schedule", s.expr))
	return nil
}

// Stop signals the scheduler to stop and waits for the loop to finish.
// Idempotent.
func (s *Scheduler) Stop(_ context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	s.logger.Info("import scheduler stopped")
	return nil
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	for {
		next := s.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-s.stopCh:
			timer.Stop()
			return
		case <-timer.C:
			s.run(context.Background())
		}
	}
}
