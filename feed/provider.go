// Package feed imports job listings from external providers on a
// schedule: fetch, dedupe, normalize, persist, broadcast, recommend.
package feed

import (
	"context"
)

// Listing is a raw job listing as fetched from an external source,
// before normalization.
type Listing struct {
	ExternalID  string
	Title       string
	Company     string
	Description string
	Skills      string
	Location    string
	SalaryMin   int
	SalaryMax   int
	JobType     string
	SourceURL   string
	Source      string
}

// Provider fetches listings from one external job source. HTTP clients
// for real sources live outside this module; implementations are
// expected to contain their own transport errors where possible and
// return what they have.
type Provider interface {
	// Name identifies the provider in logs and counters.
	Name() string

	// Fetch returns the provider's current listings.
	Fetch(ctx context.Context) ([]Listing, error)
}

// StaticProvider serves a fixed set of listings. Intended for tests
// and development.
type StaticProvider struct {
	name     string
	listings []Listing
	err      error
}

// NewStaticProvider creates a provider that always returns the given
// listings.
func NewStaticProvider(name string, listings []Listing) *StaticProvider {
	return &StaticProvider{name: name, listings: listings}
}

// NewFailingProvider creates a provider whose Fetch always fails.
func NewFailingProvider(name string, err error) *StaticProvider {
	return &StaticProvider{name: name, err: err}
}

// Name identifies the provider.
func (p *StaticProvider) Name() string { return p.name }

// Fetch returns the configured listings or error.
func (p *StaticProvider) Fetch(_ context.Context) ([]Listing, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.listings, nil
}
