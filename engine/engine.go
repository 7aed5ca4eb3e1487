// Package engine wires the stores, the transition engine, the cascade
// executor, the event broker, and the import pipeline into the public
// operation surface of the marketplace core.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/talentwire"
	"github.com/xraph/talentwire/application"
	"github.com/xraph/talentwire/cascade"
	"github.com/xraph/talentwire/feed"
	"github.com/xraph/talentwire/id"
	"github.com/xraph/talentwire/job"
	"github.com/xraph/talentwire/match"
	"github.com/xraph/talentwire/observability"
	"github.com/xraph/talentwire/store"
	"github.com/xraph/talentwire/stream"
	"github.com/xraph/talentwire/transition"
	"github.com/xraph/talentwire/user"
)

// Engine is the orchestration layer. It loads entities, snapshots
// state for cascade decisions, and hands triggers plus commands to the
// cascade executor. All status mutations flow through it.
type Engine struct {
	store  store.Store
	broker *stream.Broker
	exec   *cascade.Executor
	cfg    talentwire.Config
	logger *slog.Logger

	// Import pipeline (optional; wired when providers are set).
	providers []feed.Provider
	importer  *feed.Importer
	scheduler *feed.Scheduler

	// systemUser owns imported job listings.
	systemUser id.UserID

	meterProvider metric.MeterProvider
	metrics       *observability.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig overrides the default configuration.
func WithConfig(cfg talentwire.Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithLogger sets the engine's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithProviders wires external job providers into the import pipeline.
func WithProviders(providers ...feed.Provider) Option {
	return func(e *Engine) { e.providers = append(e.providers, providers...) }
}

// WithSystemUser sets the account that owns imported listings. When
// unset, Start provisions one.
func WithSystemUser(userID id.UserID) Option {
	return func(e *Engine) { e.systemUser = userID }
}

// WithMeterProvider sets the OpenTelemetry MeterProvider for engine
// metrics. Defaults to the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(e *Engine) { e.meterProvider = mp }
}

// New creates an Engine over the given store.
func New(st store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  st,
		cfg:    talentwire.DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.broker = stream.NewBroker(
		stream.WithBufferSize(e.cfg.EventBuffer),
		stream.WithInitialCredits(e.cfg.EventCredits),
		stream.WithLogger(e.logger),
	)
	e.exec = cascade.NewExecutor(st, e.broker, cascade.WithLogger(e.logger))

	if e.meterProvider != nil {
		e.metrics = observability.NewWithMeter(e.meterProvider.Meter("github.com/xraph/talentwire"))
	} else {
		e.metrics = observability.New()
	}

	return e
}

// Broker returns the event broker, for the gateway to register
// connections against.
func (e *Engine) Broker() *stream.Broker { return e.broker }

// Store returns the underlying store.
func (e *Engine) Store() store.Store { return e.store }

// Start provisions the system user and launches the import scheduler
// when providers are configured.
func (e *Engine) Start(ctx context.Context) error {
	if len(e.providers) > 0 {
		if e.systemUser.IsNil() {
			if err := e.provisionSystemUser(ctx); err != nil {
				return err
			}
		}

		e.importer = feed.NewImporter(
			e.store, e.store, e.store, e.broker,
			e.systemUser, e.providers,
			feed.WithProviderTimeout(e.cfg.ProviderTimeout),
			feed.WithImportLogger(e.logger),
		)

		sched, err := feed.NewScheduler(e.cfg.ImportSchedule, func(ctx context.Context) {
			res := e.importer.Run(ctx)
			e.recordImport(ctx, res)
		}, feed.WithSchedulerLogger(e.logger))
		if err != nil {
			return err
		}
		e.scheduler = sched
		if err := e.scheduler.Start(ctx); err != nil {
			return err
		}
	}

	e.logger.Info("engine started",
		slog.Int("providers", len(e.providers)),
		slog.String("import_schedule", e.cfg.ImportSchedule))
	return nil
}

// Stop halts the scheduler and closes the broker, disconnecting all
// subscribers.
func (e *Engine) Stop(ctx context.Context) error {
	if e.scheduler != nil {
		if err := e.scheduler.Stop(ctx); err != nil {
			return err
		}
	}
	e.broker.Close()
	e.logger.Info("engine stopped")
	return nil
}

func (e *Engine) provisionSystemUser(ctx context.Context) error {
	u := &user.User{
		Entity: talentwire.NewEntity(),
		ID:     id.NewUserID(),
		Email:  "system@talentwire.local",
		Name:   "System",
		Role:   user.RoleRecruiter,
		Status: user.StatusActive,
	}
	if err := e.store.SaveUser(ctx, u); err != nil {
		return fmt.Errorf("engine: provision system user: %w", err)
	}
	e.systemUser = u.ID
	return nil
}

// ──────────────────────────────────────────────────
// Status transitions
// ──────────────────────────────────────────────────

// SetUserStatus transitions a user's status and applies the cascade:
// suspending a recruiter pauses their open jobs, reactivating reopens
// the paused ones. A transition to the current status is a benign
// no-op reported via Outcome.NoChange.
func (e *Engine) SetUserStatus(ctx context.Context, actor transition.Actor, userID id.UserID, to user.Status) (cascade.Outcome, error) {
	subject, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return cascade.Outcome{}, err
	}

	// Snapshot of the subject's jobs for cascade rules; drift during
	// execution is handled by the executor.
	owned, err := e.store.ListJobsByOwner(ctx, subject.ID, "")
	if err != nil {
		return cascade.Outcome{}, err
	}

	cmds, err := transition.DecideUserStatus(actor, subject, to, owned)
	if errors.Is(err, talentwire.ErrNoChange) {
		return cascade.Outcome{NoChange: true}, nil
	}
	if err != nil {
		return cascade.Outcome{}, err
	}

	out, err := e.exec.Apply(ctx, func(ctx context.Context) error {
		subject.Status = to
		subject.Touch()
		return e.store.SaveUser(ctx, subject)
	}, cmds)
	e.recordOutcome(ctx, out)
	return out, err
}

// SetJobStatus transitions a job's status. Only the owning recruiter
// or an admin may issue it; the owning recruiter is notified.
func (e *Engine) SetJobStatus(ctx context.Context, actor transition.Actor, jobID id.JobID, to job.Status) (cascade.Outcome, error) {
	j, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		return cascade.Outcome{}, err
	}

	cmds, err := transition.DecideJobStatus(actor, j, to)
	if errors.Is(err, talentwire.ErrNoChange) {
		return cascade.Outcome{NoChange: true}, nil
	}
	if err != nil {
		return cascade.Outcome{}, err
	}

	out, err := e.exec.Apply(ctx, func(ctx context.Context) error {
		j.Status = to
		j.Touch()
		return e.store.SaveJob(ctx, j)
	}, cmds)
	e.recordOutcome(ctx, out)
	return out, err
}

// DeleteJob removes a job and notifies its owning recruiter. Removal
// has no further cascade.
func (e *Engine) DeleteJob(ctx context.Context, actor transition.Actor, jobID id.JobID) (cascade.Outcome, error) {
	j, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		return cascade.Outcome{}, err
	}

	cmds, err := transition.DecideJobDelete(actor, j)
	if err != nil {
		return cascade.Outcome{}, err
	}

	out, err := e.exec.Apply(ctx, func(ctx context.Context) error {
		return e.store.DeleteJob(ctx, j.ID)
	}, cmds)
	e.recordOutcome(ctx, out)
	return out, err
}

// CreateApplication files an application for an open job and notifies
// the job's owning recruiter. A user may apply to a job once.
func (e *Engine) CreateApplication(ctx context.Context, applicant id.UserID, jobID id.JobID) (*application.Application, cascade.Outcome, error) {
	j, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, cascade.Outcome{}, err
	}

	if _, err := e.store.FindApplication(ctx, applicant, jobID); err == nil {
		return nil, cascade.Outcome{}, talentwire.ErrAlreadyApplied
	} else if !errors.Is(err, talentwire.ErrApplicationNotFound) {
		return nil, cascade.Outcome{}, err
	}

	app := &application.Application{
		Entity:      talentwire.NewEntity(),
		ID:          id.NewApplicationID(),
		JobID:       j.ID,
		ApplicantID: applicant,
		Status:      application.StatusPending,
		AppliedAt:   time.Now().UTC(),
	}

	cmds, err := transition.DecideApplicationCreate(app, j)
	if err != nil {
		return nil, cascade.Outcome{}, err
	}

	out, err := e.exec.Apply(ctx, func(ctx context.Context) error {
		return e.store.SaveApplication(ctx, app)
	}, cmds)
	if err != nil {
		return nil, out, err
	}
	e.recordOutcome(ctx, out)
	return app, out, nil
}

// SetApplicationStatus transitions an application's status and
// notifies the applicant.
func (e *Engine) SetApplicationStatus(ctx context.Context, actor transition.Actor, appID id.ApplicationID, to application.Status) (cascade.Outcome, error) {
	app, err := e.store.GetApplication(ctx, appID)
	if err != nil {
		return cascade.Outcome{}, err
	}
	j, err := e.store.GetJob(ctx, app.JobID)
	if err != nil {
		return cascade.Outcome{}, err
	}

	cmds, err := transition.DecideApplicationStatus(actor, app, j, to)
	if errors.Is(err, talentwire.ErrNoChange) {
		return cascade.Outcome{NoChange: true}, nil
	}
	if err != nil {
		return cascade.Outcome{}, err
	}

	out, err := e.exec.Apply(ctx, func(ctx context.Context) error {
		app.Status = to
		app.Touch()
		return e.store.SaveApplication(ctx, app)
	}, cmds)
	e.recordOutcome(ctx, out)
	return out, err
}

// ──────────────────────────────────────────────────
// Matching
// ──────────────────────────────────────────────────

// RecommendJobs ranks open jobs against a jobseeker's profile and
// pushes the top matches to their channel. Returns the ranked matches.
func (e *Engine) RecommendJobs(ctx context.Context, userID id.UserID) ([]match.JobMatch, error) {
	p, err := e.store.GetProfileByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	open, err := e.store.ListJobs(ctx, job.ListOpts{Status: job.StatusOpen})
	if err != nil {
		return nil, err
	}

	ranked := match.RankJobs(p.Skills, open, e.cfg.RecommendLimit)
	for _, m := range ranked {
		e.publish(ctx, stream.NewEvent(stream.EventJobRecommended, stream.UserChannel(userID), stream.RecommendationData{
			JobID:      m.Job.ID.String(),
			Title:      m.Job.Title,
			Company:    m.Job.Company,
			Location:   m.Job.Location,
			Skills:     m.Job.Skills,
			MatchScore: m.Score,
		}))
	}
	return ranked, nil
}

// MatchCandidates ranks jobseeker profiles against a job's required
// skills. Only the job's owning recruiter or an admin may call it.
func (e *Engine) MatchCandidates(ctx context.Context, actor transition.Actor, jobID id.JobID) ([]match.CandidateMatch, error) {
	j, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManageJob(j) {
		return nil, fmt.Errorf("%w: actor %s may not view candidates for job %s", talentwire.ErrForbidden, actor.ID, j.ID)
	}

	seekers, err := e.store.ListUsers(ctx, user.RoleJobseeker)
	if err != nil {
		return nil, err
	}
	seekerSet := make(map[string]struct{}, len(seekers))
	for _, u := range seekers {
		seekerSet[u.ID.String()] = struct{}{}
	}

	all, err := e.store.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}
	profiles := all[:0]
	for _, p := range all {
		if _, ok := seekerSet[p.UserID.String()]; ok {
			profiles = append(profiles, p)
		}
	}

	return match.RankCandidates(j.Skills, profiles, 0), nil
}

// ──────────────────────────────────────────────────
// Imports
// ──────────────────────────────────────────────────

// RunImport triggers one import pass outside the schedule. Returns
// the aggregated result, or an error when no providers are wired.
func (e *Engine) RunImport(ctx context.Context) (feed.RunResult, error) {
	if e.importer == nil {
		return feed.RunResult{}, fmt.Errorf("engine: no import providers configured")
	}
	res := e.importer.Run(ctx)
	e.recordImport(ctx, res)
	return res, nil
}

// ──────────────────────────────────────────────────
// Analytics
// ──────────────────────────────────────────────────

// StatusCounts breaks an entity population down by status.
type StatusCounts map[string]int

// Analytics is a marketplace-wide snapshot for the admin console.
type Analytics struct {
	Users        StatusCounts       `json:"users"`
	Jobs         StatusCounts       `json:"jobs"`
	Applications StatusCounts       `json:"applications"`
	Recent       RecentCounts       `json:"recent"`
	Engagement   EngagementStats    `json:"engagement"`
	Broker       stream.BrokerStats `json:"broker"`
}

// EngagementStats measures how much of the job inventory draws
// applications.
type EngagementStats struct {
	AvgApplicationsPerJob       float64 `json:"avg_applications_per_job"`
	JobsWithApplicationsPercent float64 `json:"jobs_with_applications_percent"`
}

// RecentCounts reports entities created in the trailing seven days.
type RecentCounts struct {
	NewUsers        int `json:"new_users_7d"`
	NewJobs         int `json:"new_jobs_7d"`
	NewApplications int `json:"new_applications_7d"`
}

// Analytics computes a marketplace snapshot. Admin only.
func (e *Engine) Analytics(ctx context.Context, actor transition.Actor) (*Analytics, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: analytics are admin only", talentwire.ErrForbidden)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -7)
	out := &Analytics{
		Users:        make(StatusCounts),
		Jobs:         make(StatusCounts),
		Applications: make(StatusCounts),
		Broker:       e.broker.Stats(),
	}

	users, err := e.store.ListUsers(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out.Users["total"]++
		out.Users[string(u.Status)]++
		if u.CreatedAt.After(cutoff) {
			out.Recent.NewUsers++
		}
	}

	jobs, err := e.store.ListJobs(ctx, job.ListOpts{})
	if err != nil {
		return nil, err
	}
	jobsWithApps := 0
	for _, j := range jobs {
		out.Jobs["total"]++
		out.Jobs[string(j.Status)]++
		if j.CreatedAt.After(cutoff) {
			out.Recent.NewJobs++
		}
		apps := e.listApplications(ctx, j.ID)
		if len(apps) > 0 {
			jobsWithApps++
		}
		for _, a := range apps {
			out.Applications["total"]++
			out.Applications[string(a.Status)]++
			if a.AppliedAt.After(cutoff) {
				out.Recent.NewApplications++
			}
		}
	}

	if total := out.Jobs["total"]; total > 0 {
		out.Engagement.AvgApplicationsPerJob = round2(float64(out.Applications["total"]) / float64(total))
		out.Engagement.JobsWithApplicationsPercent = round2(float64(jobsWithApps) / float64(total) * 100)
	}

	return out, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func (e *Engine) listApplications(ctx context.Context, jobID id.JobID) []*application.Application {
	apps, err := e.store.ListApplicationsByJob(ctx, jobID)
	if err != nil {
		e.logger.Warn("list applications failed",
			slog.String("job_id", jobID.String()),
			slog.String("error", err.Error()))
		return nil
	}
	return apps
}

func (e *Engine) publish(ctx context.Context, evt *stream.Event) {
	delivered := e.broker.Publish(evt)
	e.metrics.RecordPublish(ctx, string(evt.Type), delivered, 0)
}

func (e *Engine) recordOutcome(ctx context.Context, out cascade.Outcome) {
	e.metrics.RecordCascade(ctx, out.MutationsApplied, out.MutationsSkipped, out.MutationsFailed)
}

func (e *Engine) recordImport(ctx context.Context, res feed.RunResult) {
	for _, pr := range res.Providers {
		e.metrics.RecordImport(ctx, pr.Provider, pr.Imported, pr.Skipped, pr.Failed)
	}
}
