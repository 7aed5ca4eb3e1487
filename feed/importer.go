package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/xraph/talentwire"
	"github.com/xraph/talentwire/id"
	"github.com/xraph/talentwire/job"
	"github.com/xraph/talentwire/match"
	"github.com/xraph/talentwire/profile"
	"github.com/xraph/talentwire/stream"
	"github.com/xraph/talentwire/user"
)

// Publisher hands events to the dispatcher. *stream.Broker satisfies
// it.
type Publisher interface {
	Publish(evt *stream.Event) int
}

// ProviderResult aggregates one provider's run.
type ProviderResult struct {
	Provider string `json:"provider"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
	Err      error  `json:"-"`
}

// RunResult aggregates one import run across all providers.
type RunResult struct {
	Imported  int              `json:"imported"`
	Skipped   int              `json:"skipped"`
	Failed    int              `json:"failed"`
	Providers []ProviderResult `json:"providers"`

	// SkippedRun is true when the run was rejected because a previous
	// run was still in flight.
	SkippedRun bool `json:"skipped_run,omitempty"`
}

// Importer pulls listings from external providers into the job store.
// Providers run concurrently, each under its own timeout; a hanging or
// failing provider never stalls the others. New listings are broadcast
// as job:new and matched against jobseeker profiles for per-candidate
// recommendations.
type Importer struct {
	jobs      job.Store
	profiles  profile.Store
	users     user.Store
	publisher Publisher
	providers []Provider

	// systemUser owns imported jobs.
	systemUser id.UserID

	providerTimeout time.Duration
	limiter         *rate.Limiter

	// running guards against overlapping runs.
	running atomic.Bool

	logger *slog.Logger
}

// ImporterOption configures an Importer.
type ImporterOption func(*Importer)

// WithProviderTimeout bounds each provider's fetch-and-process window.
func WithProviderTimeout(d time.Duration) ImporterOption {
	return func(imp *Importer) {
		if d > 0 {
			imp.providerTimeout = d
		}
	}
}

// WithRateLimit throttles listing processing across all providers.
func WithRateLimit(r rate.Limit, burst int) ImporterOption {
	return func(imp *Importer) {
		imp.limiter = rate.NewLimiter(r, burst)
	}
}

// WithImportLogger sets the importer's logger.
func WithImportLogger(logger *slog.Logger) ImporterOption {
	return func(imp *Importer) {
		if logger != nil {
			imp.logger = logger
		}
	}
}

// NewImporter creates an importer over the given stores and providers.
// systemUser is the account that owns imported listings.
func NewImporter(
	jobs job.Store,
	profiles profile.Store,
	users user.Store,
	publisher Publisher,
	systemUser id.UserID,
	providers []Provider,
	opts ...ImporterOption,
) *Importer {
	imp := &Importer{
		jobs:            jobs,
		profiles:        profiles,
		users:           users,
		publisher:       publisher,
		providers:       providers,
		systemUser:      systemUser,
		providerTimeout: 30 * time.Second,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(imp)
	}
	return imp
}

// Running reports whether a run is currently in flight.
func (imp *Importer) Running() bool { return imp.running.Load() }

// Run executes one import pass across all providers. If a previous run
// is still in flight the pass is skipped, reported via
// RunResult.SkippedRun. Provider and per-listing failures are logged
// and counted, never returned.
func (imp *Importer) Run(ctx context.Context) RunResult {
	if !imp.running.CompareAndSwap(false, true) {
		imp.logger.Warn("import run skipped, previous run still in flight")
		return RunResult{SkippedRun: true}
	}
	defer imp.running.Store(false)

	imp.logger.Info("import run started", slog.Int("providers", len(imp.providers)))

	var (
		mu      sync.Mutex
		results = make([]ProviderResult, 0, len(imp.providers))
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range imp.providers {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(gctx, imp.providerTimeout)
			defer cancel()

			res := imp.importFromProvider(pctx, p)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	// Goroutines never return errors; failures are contained per provider.
	_ = g.Wait()

	var out RunResult
	out.Providers = results
	for _, r := range results {
		out.Imported += r.Imported
		out.Skipped += r.Skipped
		out.Failed += r.Failed
	}

	imp.logger.Info("import run complete",
		slog.Int("imported", out.Imported),
		slog.Int("skipped", out.Skipped),
		slog.Int("failed", out.Failed))
	return out
}

func (imp *Importer) importFromProvider(ctx context.Context, p Provider) ProviderResult {
	res := ProviderResult{Provider: p.Name()}

	listings, err := p.Fetch(ctx)
	if err != nil {
		res.Err = err
		imp.logger.Error("provider fetch failed",
			slog.String("provider", p.Name()),
			slog.String("error", err.Error()))
		return res
	}
	if len(listings) == 0 {
		imp.logger.Info("no listings fetched", slog.String("provider", p.Name()))
		return res
	}

	imp.logger.Info("processing listings",
		slog.String("provider", p.Name()),
		slog.Int("count", len(listings)))

	for _, l := range listings {
		if imp.limiter != nil {
			if err := imp.limiter.Wait(ctx); err != nil {
				res.Err = err
				return res
			}
		}

		switch err := imp.importListing(ctx, l); {
		case err == nil:
			res.Imported++
		case errors.Is(err, talentwire.ErrDuplicateListing):
			res.Skipped++
		default:
			res.Failed++
			imp.logger.Error("listing import failed",
				slog.String("provider", p.Name()),
				slog.String("external_id", l.ExternalID),
				slog.String("error", err.Error()))
		}
	}

	imp.logger.Info("provider import complete",
		slog.String("provider", p.Name()),
		slog.Int("imported", res.Imported),
		slog.Int("skipped", res.Skipped))
	return res
}

// importListing persists one listing after deduplication, then emits
// the broadcast and recommendation events.
func (imp *Importer) importListing(ctx context.Context, l Listing) error {
	if err := imp.isDuplicate(ctx, l); err != nil {
		return err
	}

	j := Normalize(l)
	j.Entity = talentwire.NewEntity()
	j.ID = id.NewJobID()
	j.PostedBy = imp.systemUser

	if err := imp.jobs.SaveJob(ctx, j); err != nil {
		return err
	}

	imp.publisher.Publish(stream.NewEvent(stream.EventJobNew, stream.ChannelBroadcast, j))
	imp.recommend(ctx, j)
	return nil
}

// isDuplicate returns ErrDuplicateListing when the listing matches an
// existing row on {externalID, source} or exact {title, company}.
func (imp *Importer) isDuplicate(ctx context.Context, l Listing) error {
	if l.ExternalID != "" {
		_, err := imp.jobs.FindImported(ctx, l.ExternalID, l.Source)
		if err == nil {
			return talentwire.ErrDuplicateListing
		}
		if !errors.Is(err, talentwire.ErrJobNotFound) {
			return err
		}
	}

	_, err := imp.jobs.FindByTitleCompany(ctx, l.Title, l.Company)
	if err == nil {
		return talentwire.ErrDuplicateListing
	}
	if !errors.Is(err, talentwire.ErrJobNotFound) {
		return err
	}
	return nil
}

// recommend scores the new job against every jobseeker profile with
// skills and publishes a recommendation per positive match. Failures
// are logged; the import already succeeded.
func (imp *Importer) recommend(ctx context.Context, j *job.Job) {
	if j.Skills == "" {
		return
	}

	seekers, err := imp.users.ListUsers(ctx, user.RoleJobseeker)
	if err != nil {
		imp.logger.Error("list jobseekers failed", slog.String("error", err.Error()))
		return
	}
	seekerSet := make(map[string]struct{}, len(seekers))
	for _, u := range seekers {
		seekerSet[u.ID.String()] = struct{}{}
	}

	profiles, err := imp.profiles.ListProfiles(ctx)
	if err != nil {
		imp.logger.Error("list profiles failed", slog.String("error", err.Error()))
		return
	}

	notified := 0
	for _, p := range profiles {
		if _, ok := seekerSet[p.UserID.String()]; !ok {
			continue
		}
		if p.Skills == "" {
			continue
		}
		score := match.Score(j.Skills, p.Skills)
		if score == 0 {
			continue
		}

		imp.publisher.Publish(stream.NewEvent(stream.EventJobRecommended, stream.UserChannel(p.UserID), stream.RecommendationData{
			JobID:      j.ID.String(),
			Title:      j.Title,
			Company:    j.Company,
			Location:   j.Location,
			Skills:     j.Skills,
			MatchScore: score,
		}))
		notified++
	}

	if notified > 0 {
		imp.logger.Info("recommendations published",
			slog.String("job_id", j.ID.String()),
			slog.Int("jobseekers", notified))
	}
}
