// Package job defines the job-posting entity, its status machine, and
// store interface.
//
// A [Job] is a posting owned by a recruiter (PostedBy). Status moves
// freely between three states, gated on the actor:
//
//	open ⇄ paused
//	open ⇄ closed
//	paused ⇄ closed
//
// There is no terminal state; only the owning recruiter or an admin may
// transition a job. Jobs imported from external feeds carry Source,
// ExternalID, and SourceURL so the importer can deduplicate.
package job

import (
	"context"

	"github.com/xraph/talentwire"
	"github.com/xraph/talentwire/id"
)

// Status represents the lifecycle state of a job posting.
type Status string

const (
	// StatusOpen means the job accepts applications.
	StatusOpen Status = "open"
	// StatusClosed means the job no longer accepts applications.
	StatusClosed Status = "closed"
	// StatusPaused means the job is temporarily hidden, e.g. while its
	// owner is suspended.
	StatusPaused Status = "paused"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusClosed, StatusPaused:
		return true
	}
	return false
}

// Type is the closed employment-type enum.
type Type string

const (
	TypeFullTime Type = "full-time"
	TypePartTime Type = "part-time"
	TypeContract Type = "contract"
	TypeRemote   Type = "remote"
	TypeHybrid   Type = "hybrid"
)

// Job represents a job posting.
type Job struct {
	talentwire.Entity

	ID          id.JobID  `json:"id"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Skills      string    `json:"skills,omitempty"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description"`
	Type        Type      `json:"job_type,omitempty"`
	SalaryMin   int       `json:"salary_min,omitempty"`
	SalaryMax   int       `json:"salary_max,omitempty"`
	PostedBy    id.UserID `json:"posted_by"`
	Status      Status    `json:"status"`

	// Import provenance. Empty for jobs posted directly.
	Source      string `json:"source,omitempty"`
	ExternalID  string `json:"external_id,omitempty"`
	SourceURL   string `json:"source_url,omitempty"`
}

// ListOpts controls filtering for job list queries.
type ListOpts struct {
	// Status filters by job status. Empty means all statuses.
	Status Status
	// Limit is the maximum number of jobs to return. Zero means no limit.
	Limit int
}

// Store defines the persistence contract for job postings.
type Store interface {
	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID id.JobID) (*Job, error)

	// SaveJob inserts or updates a job record.
	SaveJob(ctx context.Context, j *Job) error

	// DeleteJob removes a job by ID.
	DeleteJob(ctx context.Context, jobID id.JobID) error

	// ListJobs returns jobs matching the given options.
	ListJobs(ctx context.Context, opts ListOpts) ([]*Job, error)

	// ListJobsByOwner returns the jobs posted by the given user,
	// optionally filtered by status. The result is a snapshot: rows
	// mutated after the call are not reflected.
	ListJobsByOwner(ctx context.Context, owner id.UserID, status Status) ([]*Job, error)

	// FindImported looks a job up by its import identity
	// {externalID, source}. Returns talentwire.ErrJobNotFound when absent.
	FindImported(ctx context.Context, externalID, source string) (*Job, error)

	// FindByTitleCompany looks a job up by exact title and company.
	// Returns talentwire.ErrJobNotFound when absent.
	FindByTitleCompany(ctx context.Context, title, company string) (*Job, error)
}
