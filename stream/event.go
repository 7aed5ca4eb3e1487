// Package stream provides the real-time notification broker: named
// channels, per-connection subscribers with bounded outbound buffers,
// and at-most-once fan-out of marketplace events.
package stream

import (
	"encoding/json"
	"time"

	"github.com/xraph/talentwire/id"
)

// EventType identifies the kind of marketplace event.
type EventType string

const (
	// Job events.
	EventJobNew           EventType = "job:new"
	EventJobRecommended   EventType = "job:recommended"
	EventJobStatusChanged EventType = "job:status-changed"
	EventJobDeleted       EventType = "job:deleted"

	// Application events.
	EventAppNew    EventType = "app:new"
	EventAppStatus EventType = "app:status"

	// User events.
	EventUserBanned   EventType = "user:banned"
	EventUserUnbanned EventType = "user:unbanned"
)

// Event is the envelope delivered to subscribers on a channel. Events
// are immutable values: consumed once, best-effort, never retried.
type Event struct {
	// Type identifies the marketplace event.
	Type EventType `json:"type"`

	// Channel is the subscription channel this event targets.
	Channel string `json:"channel"`

	// Timestamp is when the event was emitted.
	Timestamp time.Time `json:"ts"`

	// Data is the event-specific payload.
	Data json.RawMessage `json:"data"`
}

// NewEvent creates an event for the given channel, marshaling the
// payload. It panics on a marshal failure (programming error: all
// payload types in this module are JSON-serializable).
func NewEvent(typ EventType, channel string, data any) *Event {
	return &Event{
		Type:      typ,
		Channel:   channel,
		Timestamp: time.Now().UTC(),
		Data:      mustMarshal(data),
	}
}

// mustMarshal marshals data to JSON, panicking on error.
func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic("stream: marshal event data: " + err.Error())
	}
	return data
}

// JobStatusData is the payload for job:status-changed events.
type JobStatusData struct {
	JobID     string `json:"job_id"`
	Title     string `json:"title"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// JobDeletedData is the payload for job:deleted events.
type JobDeletedData struct {
	JobID string `json:"job_id"`
	Title string `json:"title"`
}

// RecommendationData is the payload for job:recommended events.
type RecommendationData struct {
	JobID      string `json:"job_id"`
	Title      string `json:"title"`
	Company    string `json:"company"`
	Location   string `json:"location,omitempty"`
	Skills     string `json:"skills,omitempty"`
	MatchScore int    `json:"match_score"`
}

// AppNewData is the payload for app:new events, sent to the job's
// owning recruiter.
type AppNewData struct {
	AppID       string `json:"app_id"`
	JobID       string `json:"job_id"`
	JobTitle    string `json:"job_title"`
	ApplicantID string `json:"applicant_id"`
}

// AppStatusData is the payload for app:status events, sent to the
// applicant.
type AppStatusData struct {
	AppID    string `json:"app_id"`
	JobID    string `json:"job_id"`
	JobTitle string `json:"job_title"`
	Company  string `json:"company,omitempty"`
	Status   string `json:"status"`
}

// UserStatusData is the payload for user:banned and user:unbanned
// events. JobsAffected reports how many of the subject's jobs the
// cascade intended to pause or reopen.
type UserStatusData struct {
	Message      string `json:"message"`
	JobsAffected int    `json:"jobs_affected_count"`
}

// EventID generates an identifier for an emitted event, used as the
// frame ID on the wire.
func EventID() string { return id.NewEventID().String() }
