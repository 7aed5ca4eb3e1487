// Package profile defines the candidate-profile entity and store
// interface. Skills are a free-text delimiter-separated list; the match
// package tokenizes them. Resume storage itself is external — only the
// URL is carried here.
package profile

import (
	"context"

	"github.com/xraph/talentwire"
	"github.com/xraph/talentwire/id"
)

// Profile represents a jobseeker's candidate profile.
type Profile struct {
	talentwire.Entity

	ID         id.ProfileID `json:"id"`
	UserID     id.UserID    `json:"user_id"`
	Headline   string       `json:"headline,omitempty"`
	Skills     string       `json:"skills,omitempty"`
	Location   string       `json:"location,omitempty"`
	Experience int          `json:"experience,omitempty"`
	ResumeURL  string       `json:"resume_url,omitempty"`
}

// Store defines the persistence contract for profiles.
type Store interface {
	// GetProfileByUser retrieves the profile owned by the given user.
	GetProfileByUser(ctx context.Context, userID id.UserID) (*Profile, error)

	// SaveProfile inserts or updates a profile record.
	SaveProfile(ctx context.Context, p *Profile) error

	// ListProfiles returns all profiles.
	ListProfiles(ctx context.Context) ([]*Profile, error)
}
