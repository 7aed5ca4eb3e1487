// Package transition is the status transition engine: pure decision
// logic for the User, Job, and Application state machines and the
// cascade rules that follow an accepted transition. It computes side
// effects as commands; it never executes them.
package transition

import (
	"fmt"

	"github.com/xraph/talentwire"
	"github.com/xraph/talentwire/application"
	"github.com/xraph/talentwire/id"
	"github.com/xraph/talentwire/job"
	"github.com/xraph/talentwire/stream"
	"github.com/xraph/talentwire/user"
)

// Actor is the authenticated principal issuing a transition.
type Actor struct {
	ID   id.UserID
	Role user.Role
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == user.RoleAdmin }

// CanManageJob reports whether the actor may transition or delete the
// given job: its owning recruiter, or an admin.
func (a Actor) CanManageJob(j *job.Job) bool {
	if a.IsAdmin() {
		return true
	}
	return a.Role == user.RoleRecruiter && a.ID.String() == j.PostedBy.String()
}

// Command is one element of a cascade: either a further entity
// mutation or a notification event. The cascade executor consumes
// commands uniformly; only the two types below implement it.
type Command interface {
	isCommand()
}

// UpdateJobStatus mutates one job's status. From records the status
// observed when the cascade was built; an executor skips the command
// if the job has drifted since.
type UpdateJobStatus struct {
	JobID id.JobID
	From  job.Status
	To    job.Status
}

func (UpdateJobStatus) isCommand() {}

// Notify publishes one event through the dispatcher.
type Notify struct {
	Event *stream.Event
}

func (Notify) isCommand() {}

// DecideUserStatus validates a user status transition and computes its
// cascade. Only admins may change user status. A transition to the
// current status is a no-op, signaled with ErrNoChange.
//
// ownedJobs is the snapshot of the subject's jobs taken at build time;
// for a suspended recruiter every currently open job is queued to
// pause, for a reactivated recruiter every paused job is queued to
// reopen. The summary notification carries the queued count.
func DecideUserStatus(actor Actor, subject *user.User, to user.Status, ownedJobs []*job.Job) ([]Command, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins may change user status", talentwire.ErrForbidden)
	}
	if !to.Valid() {
		return nil, fmt.Errorf("%w: user status %q", talentwire.ErrInvalidStatus, to)
	}
	if subject.Status == to {
		return nil, talentwire.ErrNoChange
	}

	var cmds []Command
	channel := stream.ChannelFor(subject.ID, subject.Role)

	switch to {
	case user.StatusSuspended:
		affected := 0
		if subject.Role == user.RoleRecruiter {
			for _, j := range ownedJobs {
				if j.Status != job.StatusOpen {
					continue
				}
				cmds = append(cmds, UpdateJobStatus{JobID: j.ID, From: job.StatusOpen, To: job.StatusPaused})
				affected++
			}
		}
		cmds = append(cmds, Notify{Event: stream.NewEvent(stream.EventUserBanned, channel, stream.UserStatusData{
			Message:      "Your account has been suspended",
			JobsAffected: affected,
		})})

	case user.StatusActive:
		affected := 0
		if subject.Role == user.RoleRecruiter {
			for _, j := range ownedJobs {
				if j.Status != job.StatusPaused {
					continue
				}
				cmds = append(cmds, UpdateJobStatus{JobID: j.ID, From: job.StatusPaused, To: job.StatusOpen})
				affected++
			}
		}
		cmds = append(cmds, Notify{Event: stream.NewEvent(stream.EventUserUnbanned, channel, stream.UserStatusData{
			Message:      "Your account has been reactivated",
			JobsAffected: affected,
		})})
	}

	return cmds, nil
}

// DecideJobStatus validates a job status transition and computes its
// cascade: one notification to the owning recruiter describing the
// old and new status.
func DecideJobStatus(actor Actor, j *job.Job, to job.Status) ([]Command, error) {
	if !actor.CanManageJob(j) {
		return nil, fmt.Errorf("%w: actor %s may not manage job %s", talentwire.ErrForbidden, actor.ID, j.ID)
	}
	if !to.Valid() {
		return nil, fmt.Errorf("%w: job status %q", talentwire.ErrInvalidStatus, to)
	}
	if j.Status == to {
		return nil, talentwire.ErrNoChange
	}

	evt := stream.NewEvent(stream.EventJobStatusChanged, stream.RecruiterChannel(j.PostedBy), stream.JobStatusData{
		JobID:     j.ID.String(),
		Title:     j.Title,
		OldStatus: string(j.Status),
		NewStatus: string(to),
	})
	return []Command{Notify{Event: evt}}, nil
}

// DecideJobDelete validates a job deletion and computes its cascade:
// one notification to the owning recruiter. Deletion is a removal, not
// a status transition, so there is no further cascade.
func DecideJobDelete(actor Actor, j *job.Job) ([]Command, error) {
	if !actor.CanManageJob(j) {
		return nil, fmt.Errorf("%w: actor %s may not manage job %s", talentwire.ErrForbidden, actor.ID, j.ID)
	}

	evt := stream.NewEvent(stream.EventJobDeleted, stream.RecruiterChannel(j.PostedBy), stream.JobDeletedData{
		JobID: j.ID.String(),
		Title: j.Title,
	})
	return []Command{Notify{Event: evt}}, nil
}

// DecideApplicationStatus validates an application status transition
// and computes its cascade: one notification to the applicant carrying
// the job identity and the new status.
func DecideApplicationStatus(actor Actor, app *application.Application, j *job.Job, to application.Status) ([]Command, error) {
	if !actor.CanManageJob(j) {
		return nil, fmt.Errorf("%w: actor %s may not manage applications for job %s", talentwire.ErrForbidden, actor.ID, j.ID)
	}
	if !to.Valid() {
		return nil, fmt.Errorf("%w: application status %q", talentwire.ErrInvalidStatus, to)
	}
	if app.Status == to {
		return nil, talentwire.ErrNoChange
	}

	evt := stream.NewEvent(stream.EventAppStatus, stream.UserChannel(app.ApplicantID), stream.AppStatusData{
		AppID:    app.ID.String(),
		JobID:    j.ID.String(),
		JobTitle: j.Title,
		Company:  j.Company,
		Status:   string(to),
	})
	return []Command{Notify{Event: evt}}, nil
}

// DecideApplicationCreate computes the cascade for a newly created
// application: one notification to the job's owning recruiter. The
// application must target an open job.
func DecideApplicationCreate(app *application.Application, j *job.Job) ([]Command, error) {
	if j.Status != job.StatusOpen {
		return nil, fmt.Errorf("%w: job %s is %s", talentwire.ErrInvalidStatus, j.ID, j.Status)
	}

	evt := stream.NewEvent(stream.EventAppNew, stream.RecruiterChannel(j.PostedBy), stream.AppNewData{
		AppID:       app.ID.String(),
		JobID:       j.ID.String(),
		JobTitle:    j.Title,
		ApplicantID: app.ApplicantID.String(),
	})
	return []Command{Notify{Event: evt}}, nil
}
