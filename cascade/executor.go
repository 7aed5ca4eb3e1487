// Package cascade executes transition decisions: the triggering
// mutation first, then the cascaded job mutations, then the queued
// notifications. It owns no decision logic.
package cascade

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/talentwire/job"
	"github.com/xraph/talentwire/stream"
	"github.com/xraph/talentwire/transition"
)

// Publisher hands events to the dispatcher. *stream.Broker satisfies
// it.
type Publisher interface {
	Publish(evt *stream.Event) int
}

// Outcome summarizes one cascade application.
type Outcome struct {
	// NoChange is set by callers when a transition was a benign no-op
	// and no cascade ran.
	NoChange bool

	// MutationsApplied counts cascaded job mutations that persisted.
	MutationsApplied int

	// MutationsSkipped counts mutations skipped because the job
	// drifted from the snapshot the cascade was built against.
	MutationsSkipped int

	// MutationsFailed counts cascaded mutations that errored.
	MutationsFailed int

	// EventsPublished counts notifications handed to the dispatcher.
	EventsPublished int

	// EventsDelivered sums deliveries across those notifications.
	EventsDelivered int
}

// Executor applies a cascade. The trigger runs first; if it fails,
// nothing else runs. Cascaded mutations then execute independently of
// each other, and every queued notification flushes afterwards,
// including ones tied to failed mutations: the recipient-facing
// message describes intent, counted before execution.
type Executor struct {
	jobs      job.Store
	publisher Publisher
	logger    *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the executor's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExecutor creates a cascade executor over the given job store and
// event publisher.
func NewExecutor(jobs job.Store, publisher Publisher, opts ...Option) *Executor {
	e := &Executor{
		jobs:      jobs,
		publisher: publisher,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply runs trigger, then cmds. If the trigger fails its error is
// returned and no command runs. Sub-command failures are logged and
// counted, never returned: the triggering mutation already persisted
// and is not rolled back.
func (e *Executor) Apply(ctx context.Context, trigger func(ctx context.Context) error, cmds []transition.Command) (Outcome, error) {
	var out Outcome

	if trigger != nil {
		if err := trigger(ctx); err != nil {
			return out, fmt.Errorf("cascade: trigger: %w", err)
		}
	}

	// Mutations run before notifications so counts in notification
	// payloads describe intent, not results.
	var events []*stream.Event
	for _, cmd := range cmds {
		switch c := cmd.(type) {
		case transition.UpdateJobStatus:
			switch e.applyJobStatus(ctx, c) {
			case mutationApplied:
				out.MutationsApplied++
			case mutationSkipped:
				out.MutationsSkipped++
			case mutationFailed:
				out.MutationsFailed++
			}
		case transition.Notify:
			events = append(events, c.Event)
		default:
			e.logger.Warn("unknown cascade command", slog.String("type", fmt.Sprintf("%T", cmd)))
		}
	}

	for _, evt := range events {
		delivered := e.publisher.Publish(evt)
		out.EventsPublished++
		out.EventsDelivered += delivered
	}

	return out, nil
}

type mutationResult int

const (
	mutationApplied mutationResult = iota
	mutationSkipped
	mutationFailed
)

func (e *Executor) applyJobStatus(ctx context.Context, cmd transition.UpdateJobStatus) mutationResult {
	j, err := e.jobs.GetJob(ctx, cmd.JobID)
	if err != nil {
		e.logger.Error("cascade mutation failed",
			slog.String("job_id", cmd.JobID.String()),
			slog.String("error", err.Error()))
		return mutationFailed
	}

	// Snapshot drift: the owner moved the job since the cascade was
	// built. Best-effort, skip.
	if j.Status != cmd.From {
		e.logger.Debug("cascade mutation skipped",
			slog.String("job_id", cmd.JobID.String()),
			slog.String("expected", string(cmd.From)),
			slog.String("actual", string(j.Status)))
		return mutationSkipped
	}

	j.Status = cmd.To
	j.Touch()
	if err := e.jobs.SaveJob(ctx, j); err != nil {
		e.logger.Error("cascade mutation failed",
			slog.String("job_id", cmd.JobID.String()),
			slog.String("error", err.Error()))
		return mutationFailed
	}
	return mutationApplied
}
