// Package application defines the job-application entity, its status
// machine, and store interface.
//
// An [Application] links a jobseeker to a job. Status starts at pending
// and may move to any of the three states; only the job's owning
// recruiter or an admin may change it. A jobseeker applies to a given
// job at most once.
package application

import (
	"context"
	"time"

	"github.com/xraph/talentwire"
	"github.com/xraph/talentwire/id"
)

// Status represents the review state of an application.
type Status string

const (
	// StatusPending means the application awaits recruiter review.
	StatusPending Status = "pending"
	// StatusApproved means the recruiter accepted the application.
	StatusApproved Status = "approved"
	// StatusRejected means the recruiter declined the application.
	StatusRejected Status = "rejected"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Application represents a jobseeker's application to a job.
type Application struct {
	talentwire.Entity

	ID          id.ApplicationID `json:"id"`
	JobID       id.JobID         `json:"job_id"`
	ApplicantID id.UserID        `json:"applicant_id"`
	Status      Status           `json:"status"`
	AppliedAt   time.Time        `json:"applied_at"`
}

// Store defines the persistence contract for applications.
type Store interface {
	// GetApplication retrieves an application by ID.
	GetApplication(ctx context.Context, appID id.ApplicationID) (*Application, error)

	// SaveApplication inserts or updates an application record.
	SaveApplication(ctx context.Context, a *Application) error

	// FindApplication looks up the application a given user filed for a
	// given job. Returns talentwire.ErrApplicationNotFound when absent.
	FindApplication(ctx context.Context, applicant id.UserID, jobID id.JobID) (*Application, error)

	// ListApplicationsByJob returns all applications for a job.
	ListApplicationsByJob(ctx context.Context, jobID id.JobID) ([]*Application, error)

	// ListApplicationsByApplicant returns all applications filed by a user.
	ListApplicationsByApplicant(ctx context.Context, applicant id.UserID) ([]*Application, error)
}
