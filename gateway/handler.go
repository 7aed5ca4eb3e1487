package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/xraph/talentwire"
	"github.com/xraph/talentwire/application"
	"github.com/xraph/talentwire/cascade"
	"github.com/xraph/talentwire/engine"
	"github.com/xraph/talentwire/id"
	"github.com/xraph/talentwire/job"
	"github.com/xraph/talentwire/transition"
	"github.com/xraph/talentwire/user"
)

// Handler dispatches request frames to engine operations. The actor
// for every call is the connection's authenticated identity.
type Handler struct {
	eng    *engine.Engine
	logger *slog.Logger
}

// NewHandler creates a frame method handler.
func NewHandler(eng *engine.Engine, logger *slog.Logger) *Handler {
	return &Handler{eng: eng, logger: logger}
}

// Handle processes a single request frame and returns a response.
func (h *Handler) Handle(ctx context.Context, frame *Frame, conn *Connection) *Frame {
	actor := transition.Actor{ID: conn.Identity.Subject, Role: conn.Identity.Role}

	switch frame.Method {
	case MethodUserStatus:
		return h.handleUserStatus(ctx, frame, actor)
	case MethodJobStatus:
		return h.handleJobStatus(ctx, frame, actor)
	case MethodJobDelete:
		return h.handleJobDelete(ctx, frame, actor)
	case MethodAppCreate:
		return h.handleAppCreate(ctx, frame, actor)
	case MethodAppStatus:
		return h.handleAppStatus(ctx, frame, actor)
	case MethodRecommend:
		return h.handleRecommend(ctx, frame, actor)
	case MethodCandidates:
		return h.handleCandidates(ctx, frame, actor)
	case MethodImportRun:
		return h.handleImportRun(ctx, frame, actor)
	case MethodAnalytics:
		return h.handleAnalytics(ctx, frame, actor)
	case MethodStats:
		return h.handleStats(frame, actor)
	default:
		return NewErrorFrame(frame.ID, ErrCodeMethodNotFound, "unknown method: "+frame.Method)
	}
}

// mustResponseFrame creates a response frame, returning an error frame
// on marshal failure.
func mustResponseFrame(frameID string, data any) *Frame {
	resp, err := NewResponseFrame(frameID, data)
	if err != nil {
		return NewErrorFrame(frameID, ErrCodeInternal, "marshal response: "+err.Error())
	}
	return resp
}

// errorFrame maps domain sentinels onto wire error codes.
func errorFrame(frameID string, err error) *Frame {
	switch {
	case errors.Is(err, talentwire.ErrForbidden):
		return NewErrorFrame(frameID, ErrCodeForbidden, err.Error())
	case errors.Is(err, talentwire.ErrUserNotFound),
		errors.Is(err, talentwire.ErrJobNotFound),
		errors.Is(err, talentwire.ErrApplicationNotFound),
		errors.Is(err, talentwire.ErrProfileNotFound):
		return NewErrorFrame(frameID, ErrCodeNotFound, err.Error())
	case errors.Is(err, talentwire.ErrAlreadyApplied):
		return NewErrorFrame(frameID, ErrCodeConflict, err.Error())
	case errors.Is(err, talentwire.ErrInvalidStatus):
		return NewErrorFrame(frameID, ErrCodeBadRequest, err.Error())
	default:
		return NewErrorFrame(frameID, ErrCodeInternal, err.Error())
	}
}

func transitionResponse(frameID string, out cascade.Outcome) *Frame {
	return mustResponseFrame(frameID, TransitionResponse{
		NoChange:         out.NoChange,
		MutationsApplied: out.MutationsApplied,
		MutationsSkipped: out.MutationsSkipped,
		MutationsFailed:  out.MutationsFailed,
		EventsPublished:  out.EventsPublished,
	})
}

func (h *Handler) handleUserStatus(ctx context.Context, frame *Frame, actor transition.Actor) *Frame {
	var req UserStatusRequest
	if err := json.Unmarshal(frame.Data, &req); err != nil {
		return NewErrorFrame(frame.ID, ErrCodeBadRequest, "invalid request: "+err.Error())
	}
	userID, err := id.ParseUserID(req.UserID)
	if err != nil {
		return NewErrorFrame(frame.ID, ErrCodeBadRequest, "invalid user ID: "+err.Error())
	}

	out, err := h.eng.SetUserStatus(ctx, actor, userID, user.Status(req.Status))
	if err != nil {
		return errorFrame(frame.ID, err)
	}
	return transitionResponse(frame.ID, out)
}

func (h *Handler) handleJobStatus(ctx context.Context, frame *Frame, actor transition.Actor) *Frame {
	var req JobStatusRequest
	if err := json.Unmarshal(frame.Data, &req); err != nil {
		return NewErrorFrame(frame.ID, ErrCodeBadRequest, "invalid request: "+err.Error())
	}
	jobID, err := id.ParseJobID(req.JobID)
	if err != nil {
		return NewErrorFrame(frame.ID, ErrCodeBadRequest, "invalid job ID: "+err.Error())
	}

	out, err := h.eng.SetJobStatus(ctx, actor, jobID, job.Status(req.Status))
	if err != nil {
		return errorFrame(frame.ID, err)
	}
	return transitionResponse(frame.ID, out)
}

func (h *Handler) handleJobDelete(ctx context.Context, frame *Frame, actor transition.Actor) *Frame {
	var req JobDeleteRequest
	if err := json.Unmarshal(frame.Data, &req); err != nil {
		return NewErrorFrame(frame.ID, ErrCodeBadRequest, "invalid request: "+err.Error())
	}
	jobID, err := id.ParseJobID(req.JobID)
	if err != nil {
		return NewErrorFrame(frame.ID, ErrCodeBadRequest, "invalid job ID: "+err.Error())
	}

	out, err := h.eng.DeleteJob(ctx, actor, jobID)
	if err != nil {
		return errorFrame(frame.ID, err)
	}
	return transitionResponse(frame.ID, out)
}

func (h *Handler) handleAppCreate(ctx context.Context, frame *Frame, actor transition.Actor) *Frame {
	var req AppCreateRequest
	if err := json.Unmarshal(frame.Data, &req); err != nil {
		return NewErrorFrame(frame.ID, ErrCodeBadRequest, "invalid request: "+err.Error())
	}
	jobID, err := id.ParseJobID(req.JobID)
	if err != nil {
		return NewErrorFrame(frame.ID, ErrCodeBadRequest, "invalid job ID: "+err.Error())
	}

	app, _, err := h.eng.CreateApplication(ctx, actor.ID, jobID)
	if err != nil {
		return errorFrame(frame.ID, err)
	}
	return mustResponseFrame(frame.ID, app)
}

func (h *Handler) handleAppStatus(ctx context.Context, frame *Frame, actor transition.Actor) *Frame {
	var req AppStatusRequest
	if err := json.Unmarshal(frame.Data, &req); err != nil {
		return NewErrorFrame(frame.ID, ErrCodeBadRequest, "invalid request: "+err.Error())
	}
	appID, err := id.ParseApplicationID(req.AppID)
	if err != nil {
		return NewErrorFrame(frame.ID, ErrCodeBadRequest, "invalid application ID: "+err.Error())
	}

	out, err := h.eng.SetApplicationStatus(ctx, actor, appID, application.Status(req.Status))
	if err != nil {
		return errorFrame(frame.ID, err)
	}
	return transitionResponse(frame.ID, out)
}

func (h *Handler) handleRecommend(ctx context.Context, frame *Frame, actor transition.Actor) *Frame {
	ranked, err := h.eng.RecommendJobs(ctx, actor.ID)
	if err != nil {
		return errorFrame(frame.ID, err)
	}

	items := make([]JobMatchItem, 0, len(ranked))
	for _, m := range ranked {
		items = append(items, JobMatchItem{
			JobID:   m.Job.ID.String(),
			Title:   m.Job.Title,
			Company: m.Job.Company,
			Score:   m.Score,
		})
	}
	return mustResponseFrame(frame.ID, items)
}

func (h *Handler) handleCandidates(ctx context.Context, frame *Frame, actor transition.Actor) *Frame {
	var req CandidatesRequest
	if err := json.Unmarshal(frame.Data, &req); err != nil {
		return NewErrorFrame(frame.ID, ErrCodeBadRequest, "invalid request: "+err.Error())
	}
	jobID, err := id.ParseJobID(req.JobID)
	if err != nil {
		return NewErrorFrame(frame.ID, ErrCodeBadRequest, "invalid job ID: "+err.Error())
	}

	matches, err := h.eng.MatchCandidates(ctx, actor, jobID)
	if err != nil {
		return errorFrame(frame.ID, err)
	}

	items := make([]CandidateItem, 0, len(matches))
	for _, m := range matches {
		items = append(items, CandidateItem{
			ProfileID: m.Profile.ID.String(),
			UserID:    m.Profile.UserID.String(),
			Headline:  m.Profile.Headline,
			Score:     m.Score,
		})
	}
	return mustResponseFrame(frame.ID, items)
}

func (h *Handler) handleImportRun(ctx context.Context, frame *Frame, actor transition.Actor) *Frame {
	if !actor.IsAdmin() {
		return NewErrorFrame(frame.ID, ErrCodeForbidden, "import.run is admin only")
	}
	res, err := h.eng.RunImport(ctx)
	if err != nil {
		return errorFrame(frame.ID, err)
	}
	return mustResponseFrame(frame.ID, res)
}

func (h *Handler) handleAnalytics(ctx context.Context, frame *Frame, actor transition.Actor) *Frame {
	snapshot, err := h.eng.Analytics(ctx, actor)
	if err != nil {
		return errorFrame(frame.ID, err)
	}
	return mustResponseFrame(frame.ID, snapshot)
}

func (h *Handler) handleStats(frame *Frame, actor transition.Actor) *Frame {
	if !actor.IsAdmin() {
		return NewErrorFrame(frame.ID, ErrCodeForbidden, "stats is admin only")
	}
	return mustResponseFrame(frame.ID, h.eng.Broker().Stats())
}
