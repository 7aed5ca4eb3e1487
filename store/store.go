// Package store defines the aggregate persistence interface. Each
// subsystem (user, job, application, profile) defines its own store
// interface; the composite Store composes them all. Persistence
// backends live outside this module — the memory backend ships for
// unit testing and development.
package store

import (
	"context"

	"github.com/xraph/talentwire/application"
	"github.com/xraph/talentwire/job"
	"github.com/xraph/talentwire/profile"
	"github.com/xraph/talentwire/user"
)

// Store is the aggregate persistence interface.
// Each subsystem store is a composable interface; a single backend
// implements all of them.
type Store interface {
	user.Store
	job.Store
	application.Store
	profile.Store

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
