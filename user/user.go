// Package user defines the user entity, its status machine, and store
// interface.
//
// A [User] is either a jobseeker, a recruiter, or an admin. Account
// status moves between exactly two states:
//
//	active ⇄ suspended
//
// Status is mutated only through accepted transitions; suspending a
// recruiter cascades onto their open jobs (see the transition package).
package user

import (
	"context"

	"github.com/xraph/talentwire"
	"github.com/xraph/talentwire/id"
)

// Role identifies what a user can do on the marketplace.
type Role string

const (
	// RoleJobseeker applies to jobs and receives recommendations.
	RoleJobseeker Role = "jobseeker"
	// RoleRecruiter posts jobs and reviews applications.
	RoleRecruiter Role = "recruiter"
	// RoleAdmin manages users and jobs platform-wide.
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleJobseeker, RoleRecruiter, RoleAdmin:
		return true
	}
	return false
}

// Status represents the account state of a user.
type Status string

const (
	// StatusActive means the account is in good standing.
	StatusActive Status = "active"
	// StatusSuspended means the account is banned from the platform.
	StatusSuspended Status = "suspended"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusSuspended
}

// User represents a marketplace account.
type User struct {
	talentwire.Entity

	ID     id.UserID `json:"id"`
	Email  string    `json:"email"`
	Name   string    `json:"name"`
	Role   Role      `json:"role"`
	Status Status    `json:"status"`
}

// Store defines the persistence contract for users.
type Store interface {
	// GetUser retrieves a user by ID.
	GetUser(ctx context.Context, userID id.UserID) (*User, error)

	// SaveUser inserts or updates a user record.
	SaveUser(ctx context.Context, u *User) error

	// ListUsers returns all users, optionally filtered by role.
	// An empty role means all roles.
	ListUsers(ctx context.Context, role Role) ([]*User, error)
}
