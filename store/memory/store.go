package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xraph/talentwire"
	"github.com/xraph/talentwire/application"
	"github.com/xraph/talentwire/id"
	"github.com/xraph/talentwire/job"
	"github.com/xraph/talentwire/profile"
	"github.com/xraph/talentwire/user"
)

// Ensure Store implements store.Store at compile time.
// We can't import store here (import cycle), so we verify each subsystem.
var (
	_ user.Store        = (*Store)(nil)
	_ job.Store         = (*Store)(nil)
	_ application.Store = (*Store)(nil)
	_ profile.Store     = (*Store)(nil)
)

// Store is a fully in-memory implementation of store.Store.
// Safe for concurrent access. Intended for unit testing and development.
type Store struct {
	mu sync.RWMutex

	users    map[string]*user.User
	jobs     map[string]*job.Job
	apps     map[string]*application.Application
	profiles map[string]*profile.Profile // key: owning user ID

	closed bool
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		users:    make(map[string]*user.User),
		jobs:     make(map[string]*job.Job),
		apps:     make(map[string]*application.Application),
		profiles: make(map[string]*profile.Profile),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle — Ping / Close
// ──────────────────────────────────────────────────

// Ping always succeeds for an open memory store.
func (m *Store) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return talentwire.ErrStoreClosed
	}
	return nil
}

// Close marks the store closed. Idempotent.
func (m *Store) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// ──────────────────────────────────────────────────
// User Store
// ──────────────────────────────────────────────────

// GetUser retrieves a user by ID.
func (m *Store) GetUser(_ context.Context, userID id.UserID) (*user.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[userID.String()]
	if !ok {
		return nil, talentwire.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// SaveUser inserts or updates a user record.
func (m *Store) SaveUser(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *u
	cp.UpdatedAt = time.Now().UTC()
	m.users[u.ID.String()] = &cp
	return nil
}

// ListUsers returns all users, optionally filtered by role, sorted by
// ID for deterministic iteration.
func (m *Store) ListUsers(_ context.Context, role user.Role) ([]*user.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*user.User, 0, len(m.users))
	for _, u := range m.users {
		if role != "" && u.Role != role {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	sortByID(out, func(u *user.User) string { return u.ID.String() })
	return out, nil
}

// ──────────────────────────────────────────────────
// Job Store
// ──────────────────────────────────────────────────

// GetJob retrieves a job by ID.
func (m *Store) GetJob(_ context.Context, jobID id.JobID) (*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[jobID.String()]
	if !ok {
		return nil, talentwire.ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

// SaveJob inserts or updates a job record.
func (m *Store) SaveJob(_ context.Context, j *job.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *j
	cp.UpdatedAt = time.Now().UTC()
	m.jobs[j.ID.String()] = &cp
	return nil
}

// DeleteJob removes a job by ID.
func (m *Store) DeleteJob(_ context.Context, jobID id.JobID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := jobID.String()
	if _, ok := m.jobs[key]; !ok {
		return talentwire.ErrJobNotFound
	}
	delete(m.jobs, key)
	return nil
}

// ListJobs returns jobs matching the given options, sorted by ID.
func (m *Store) ListJobs(_ context.Context, opts job.ListOpts) ([]*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*job.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		if opts.Status != "" && j.Status != opts.Status {
			continue
		}
		cp := *j
		out = append(out, &cp)
	}
	sortByID(out, func(j *job.Job) string { return j.ID.String() })
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// ListJobsByOwner returns the jobs posted by the given user, optionally
// filtered by status. Returned rows are copies: a snapshot.
func (m *Store) ListJobsByOwner(_ context.Context, owner id.UserID, status job.Status) ([]*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ownerKey := owner.String()
	var out []*job.Job
	for _, j := range m.jobs {
		if j.PostedBy.String() != ownerKey {
			continue
		}
		if status != "" && j.Status != status {
			continue
		}
		cp := *j
		out = append(out, &cp)
	}
	sortByID(out, func(j *job.Job) string { return j.ID.String() })
	return out, nil
}

// FindImported looks a job up by its import identity {externalID, source}.
func (m *Store) FindImported(_ context.Context, externalID, source string) (*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, j := range m.jobs {
		if j.ExternalID != "" && j.ExternalID == externalID && j.Source == source {
			cp := *j
			return &cp, nil
		}
	}
	return nil, talentwire.ErrJobNotFound
}

// FindByTitleCompany looks a job up by exact title and company.
func (m *Store) FindByTitleCompany(_ context.Context, title, company string) (*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, j := range m.jobs {
		if j.Title == title && j.Company == company {
			cp := *j
			return &cp, nil
		}
	}
	return nil, talentwire.ErrJobNotFound
}

// ──────────────────────────────────────────────────
// Application Store
// ──────────────────────────────────────────────────

// GetApplication retrieves an application by ID.
func (m *Store) GetApplication(_ context.Context, appID id.ApplicationID) (*application.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.apps[appID.String()]
	if !ok {
		return nil, talentwire.ErrApplicationNotFound
	}
	cp := *a
	return &cp, nil
}

// SaveApplication inserts or updates an application record.
func (m *Store) SaveApplication(_ context.Context, a *application.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *a
	cp.UpdatedAt = time.Now().UTC()
	m.apps[a.ID.String()] = &cp
	return nil
}

// FindApplication looks up the application a given user filed for a job.
func (m *Store) FindApplication(_ context.Context, applicant id.UserID, jobID id.JobID) (*application.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	applicantKey, jobKey := applicant.String(), jobID.String()
	for _, a := range m.apps {
		if a.ApplicantID.String() == applicantKey && a.JobID.String() == jobKey {
			cp := *a
			return &cp, nil
		}
	}
	return nil, talentwire.ErrApplicationNotFound
}

// ListApplicationsByJob returns all applications for a job, sorted by ID.
func (m *Store) ListApplicationsByJob(_ context.Context, jobID id.JobID) ([]*application.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobKey := jobID.String()
	var out []*application.Application
	for _, a := range m.apps {
		if a.JobID.String() != jobKey {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sortByID(out, func(a *application.Application) string { return a.ID.String() })
	return out, nil
}

// ListApplicationsByApplicant returns all applications filed by a user,
// sorted by ID.
func (m *Store) ListApplicationsByApplicant(_ context.Context, applicant id.UserID) ([]*application.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	applicantKey := applicant.String()
	var out []*application.Application
	for _, a := range m.apps {
		if a.ApplicantID.String() != applicantKey {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sortByID(out, func(a *application.Application) string { return a.ID.String() })
	return out, nil
}

// ──────────────────────────────────────────────────
// Profile Store
// ──────────────────────────────────────────────────

// GetProfileByUser retrieves the profile owned by the given user.
func (m *Store) GetProfileByUser(_ context.Context, userID id.UserID) (*profile.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[userID.String()]
	if !ok {
		return nil, talentwire.ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

// SaveProfile inserts or updates a profile record, keyed by owner.
func (m *Store) SaveProfile(_ context.Context, p *profile.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *p
	cp.UpdatedAt = time.Now().UTC()
	m.profiles[p.UserID.String()] = &cp
	return nil
}

// ListProfiles returns all profiles, sorted by owning user ID.
func (m *Store) ListProfiles(_ context.Context) ([]*profile.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*profile.Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		cp := *p
		out = append(out, &cp)
	}
	sortByID(out, func(p *profile.Profile) string { return p.UserID.String() })
	return out, nil
}

// sortByID sorts rows ascending by their ID string. TypeIDs are
// K-sortable, so this is creation order.
func sortByID[T any](rows []*T, key func(*T) string) {
	sort.Slice(rows, func(i, k int) bool {
		return strings.Compare(key(rows[i]), key(rows[k])) < 0
	})
}
