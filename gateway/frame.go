// Package gateway implements the marketplace wire protocol: a framed,
// message-based protocol transported over WebSocket. Clients
// authenticate with their first frame, get registered on their
// identity channels, and from then on exchange request/response frames
// and receive pushed event frames.
package gateway

import (
	"encoding/json"
	"time"

	"github.com/xraph/talentwire/id"
)

// FrameType identifies the frame category.
type FrameType string

const (
	FrameRequest  FrameType = "request"
	FrameResponse FrameType = "response"
	FrameEvent    FrameType = "event"
	FrameErr      FrameType = "error"
	FramePing     FrameType = "ping"
	FramePong     FrameType = "pong"
)

// Frame is the message envelope. Every message exchanged over a
// connection is a Frame.
type Frame struct {
	// ID uniquely identifies this frame.
	ID string `json:"id" msgpack:"id"`

	// Type categorizes the frame.
	Type FrameType `json:"type" msgpack:"type"`

	// Method names the operation for request frames (e.g., "job.status").
	Method string `json:"method,omitempty" msgpack:"method,omitempty"`

	// CorrelID links a response to its originating request.
	CorrelID string `json:"correl_id,omitempty" msgpack:"correl_id,omitempty"`

	// Token carries auth credentials (only on the auth frame).
	Token string `json:"token,omitempty" msgpack:"token,omitempty"`

	// Data carries the method-specific payload.
	Data json.RawMessage `json:"data,omitempty" msgpack:"data,omitempty"`

	// Error carries error details for error frames.
	Error *ErrorDetail `json:"error,omitempty" msgpack:"error,omitempty"`

	// Channel identifies the channel for event and subscribe frames.
	Channel string `json:"channel,omitempty" msgpack:"channel,omitempty"`

	// Credits replenishes flow-control credits.
	Credits int `json:"credits,omitempty" msgpack:"credits,omitempty"`

	// Timestamp records when this frame was created.
	Timestamp time.Time `json:"ts" msgpack:"ts"`
}

// ErrorDetail describes an error in a response or error frame.
type ErrorDetail struct {
	Code    int    `json:"code" msgpack:"code"`
	Message string `json:"message" msgpack:"message"`
	Details string `json:"details,omitempty" msgpack:"details,omitempty"`
}

// ── Well-known methods ──────────────────────────────

const (
	MethodAuth = "auth"

	// Subscription methods.
	MethodRegister    = "register"
	MethodSubscribe   = "subscribe"
	MethodUnsubscribe = "unsubscribe"

	// Status transitions.
	MethodUserStatus = "user.status"
	MethodJobStatus  = "job.status"
	MethodJobDelete  = "job.delete"
	MethodAppCreate  = "app.create"
	MethodAppStatus  = "app.status"

	// Matching.
	MethodRecommend  = "jobs.recommend"
	MethodCandidates = "jobs.candidates"

	// Admin methods.
	MethodImportRun = "import.run"
	MethodAnalytics = "analytics"
	MethodStats     = "stats"
)

// ── Well-known error codes ──────────────────────────

const (
	ErrCodeBadRequest     = 400
	ErrCodeUnauthorized   = 401
	ErrCodeForbidden      = 403
	ErrCodeNotFound       = 404
	ErrCodeMethodNotFound = 405
	ErrCodeConflict       = 409
	ErrCodeInternal       = 500
)

// AuthRequest is sent by clients as their first frame.
type AuthRequest struct {
	Token  string `json:"token"`
	Format string `json:"format,omitempty"` // "json" (default) or "msgpack"
}

// AuthResponse is returned after successful authentication. Channels
// lists the channels the connection was joined on.
type AuthResponse struct {
	Format    string   `json:"format"`
	SessionID string   `json:"session_id"`
	UserID    string   `json:"user_id"`
	Role      string   `json:"role"`
	Channels  []string `json:"channels"`
}

// RegisterRequest re-declares the connection's identity channel. The
// declared identity must match the authenticated one; registration is
// never a way to widen channel access.
type RegisterRequest struct {
	SubjectID string `json:"subject_id"`
	Role      string `json:"role"`
}

// RegisterResponse confirms the identity channel membership.
type RegisterResponse struct {
	Channel string `json:"channel"`
	Status  string `json:"status"`
}

// SubscribeRequest subscribes the connection to a channel.
type SubscribeRequest struct {
	Channel string `json:"channel"`
}

// UnsubscribeRequest removes a subscription.
type UnsubscribeRequest struct {
	Channel string `json:"channel"`
}

// UserStatusRequest transitions a user's account status.
type UserStatusRequest struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

// JobStatusRequest transitions a job's status.
type JobStatusRequest struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobDeleteRequest removes a job.
type JobDeleteRequest struct {
	JobID string `json:"job_id"`
}

// AppCreateRequest files an application for the calling user.
type AppCreateRequest struct {
	JobID string `json:"job_id"`
}

// AppStatusRequest transitions an application's status.
type AppStatusRequest struct {
	AppID  string `json:"app_id"`
	Status string `json:"status"`
}

// CandidatesRequest ranks jobseeker profiles against a job.
type CandidatesRequest struct {
	JobID string `json:"job_id"`
}

// JobMatchItem is one ranked job in a jobs.recommend response.
type JobMatchItem struct {
	JobID   string `json:"job_id"`
	Title   string `json:"title"`
	Company string `json:"company"`
	Score   int    `json:"score"`
}

// CandidateItem is one ranked profile in a jobs.candidates response.
type CandidateItem struct {
	ProfileID string `json:"profile_id"`
	UserID    string `json:"user_id"`
	Headline  string `json:"headline,omitempty"`
	Score     int    `json:"score"`
}

// TransitionResponse reports the outcome of a status transition.
type TransitionResponse struct {
	NoChange         bool `json:"no_change,omitempty"`
	MutationsApplied int  `json:"mutations_applied"`
	MutationsSkipped int  `json:"mutations_skipped,omitempty"`
	MutationsFailed  int  `json:"mutations_failed,omitempty"`
	EventsPublished  int  `json:"events_published"`
}

// NewRequestFrame creates a new request frame.
func NewRequestFrame(frameID, method string, data any) (*Frame, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Frame{
		ID:        frameID,
		Type:      FrameRequest,
		Method:    method,
		Data:      raw,
		Timestamp: time.Now().UTC(),
	}, nil
}

// NewResponseFrame creates a response to a request.
func NewResponseFrame(correlID string, data any) (*Frame, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Frame{
		ID:        GenerateFrameID(),
		Type:      FrameResponse,
		CorrelID:  correlID,
		Data:      raw,
		Timestamp: time.Now().UTC(),
	}, nil
}

// NewErrorFrame creates an error response to a request.
func NewErrorFrame(correlID string, code int, message string) *Frame {
	return &Frame{
		ID:        GenerateFrameID(),
		Type:      FrameErr,
		CorrelID:  correlID,
		Error:     &ErrorDetail{Code: code, Message: message},
		Timestamp: time.Now().UTC(),
	}
}

// NewEventFrame wraps a pushed event payload for a channel.
func NewEventFrame(channel, eventType string, data json.RawMessage) *Frame {
	return &Frame{
		ID:        GenerateFrameID(),
		Type:      FrameEvent,
		Method:    eventType,
		Channel:   channel,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// GenerateFrameID returns a unique frame identifier.
func GenerateFrameID() string {
	return id.NewEventID().String()
}
