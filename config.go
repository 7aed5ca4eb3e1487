package talentwire

import "time"

// Config holds tuning knobs shared across the talentwire subsystems.
type Config struct {
	// EventBuffer is the per-connection outbound event buffer size.
	EventBuffer int

	// EventCredits is the initial flow-control credit grant per
	// connection. Clients replenish credits over the wire.
	EventCredits int64

	// ImportSchedule is the cron expression driving the external
	// listing importer. Supports 5-field cron and descriptors such
	// as "@every 5m".
	ImportSchedule string

	// ProviderTimeout bounds a single provider fetch during an
	// import run. One provider's hang must not stall the others.
	ProviderTimeout time.Duration

	// RecommendLimit is how many top matches are pushed to a user's
	// channel on an on-demand recommendation query.
	RecommendLimit int

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		EventBuffer:     256,
		EventCredits:    1000,
		ImportSchedule:  "@every 5m",
		ProviderTimeout: 30 * time.Second,
		RecommendLimit:  3,
		ShutdownTimeout: 30 * time.Second,
	}
}
