package transition

import (
	"errors"
	"testing"

	"github.com/xraph/talentwire"
	"github.com/xraph/talentwire/application"
	"github.com/xraph/talentwire/id"
	"github.com/xraph/talentwire/job"
	"github.com/xraph/talentwire/stream"
	"github.com/xraph/talentwire/user"
)

func adminActor() Actor {
	return Actor{ID: id.NewUserID(), Role: user.RoleAdmin}
}

func testRecruiter() *user.User {
	return &user.User{
		Entity: talentwire.NewEntity(),
		ID:     id.NewUserID(),
		Email:  "recruiter@example.com",
		Name:   "Test Recruiter",
		Role:   user.RoleRecruiter,
		Status: user.StatusActive,
	}
}

func testJob(owner id.UserID, status job.Status) *job.Job {
	return &job.Job{
		Entity:   talentwire.NewEntity(),
		ID:       id.NewJobID(),
		Title:    "Backend Engineer",
		Company:  "Acme",
		Skills:   "go,sql",
		PostedBy: owner,
		Status:   status,
	}
}

// splitCommands separates mutations from notifications.
func splitCommands(cmds []Command) (mutations []UpdateJobStatus, events []*stream.Event) {
	for _, cmd := range cmds {
		switch c := cmd.(type) {
		case UpdateJobStatus:
			mutations = append(mutations, c)
		case Notify:
			events = append(events, c.Event)
		}
	}
	return mutations, events
}

func TestSuspendRecruiterPausesOpenJobs(t *testing.T) {
	t.Parallel()

	recruiter := testRecruiter()
	owned := []*job.Job{
		testJob(recruiter.ID, job.StatusOpen),
		testJob(recruiter.ID, job.StatusOpen),
		testJob(recruiter.ID, job.StatusClosed),
		testJob(recruiter.ID, job.StatusPaused),
	}

	cmds, err := DecideUserStatus(adminActor(), recruiter, user.StatusSuspended, owned)
	if err != nil {
		t.Fatalf("DecideUserStatus: %v", err)
	}

	mutations, events := splitCommands(cmds)
	if len(mutations) != 2 {
		t.Fatalf("mutations = %d, want 2 (only open jobs pause)", len(mutations))
	}
	for _, m := range mutations {
		if m.From != job.StatusOpen || m.To != job.StatusPaused {
			t.Errorf("mutation %s: %s -> %s, want open -> paused", m.JobID, m.From, m.To)
		}
	}

	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	evt := events[0]
	if evt.Type != stream.EventUserBanned {
		t.Errorf("Type = %q, want %q", evt.Type, stream.EventUserBanned)
	}
	if want := stream.RecruiterChannel(recruiter.ID); evt.Channel != want {
		t.Errorf("Channel = %q, want %q", evt.Channel, want)
	}
}

func TestReactivateRecruiterReopensPausedJobs(t *testing.T) {
	t.Parallel()

	recruiter := testRecruiter()
	recruiter.Status = user.StatusSuspended
	owned := []*job.Job{
		testJob(recruiter.ID, job.StatusPaused),
		testJob(recruiter.ID, job.StatusPaused),
		testJob(recruiter.ID, job.StatusClosed),
	}

	cmds, err := DecideUserStatus(adminActor(), recruiter, user.StatusActive, owned)
	if err != nil {
		t.Fatalf("DecideUserStatus: %v", err)
	}

	mutations, events := splitCommands(cmds)
	if len(mutations) != 2 {
		t.Fatalf("mutations = %d, want 2 (only paused jobs reopen)", len(mutations))
	}
	for _, m := range mutations {
		if m.From != job.StatusPaused || m.To != job.StatusOpen {
			t.Errorf("mutation %s: %s -> %s, want paused -> open", m.JobID, m.From, m.To)
		}
	}
	if len(events) != 1 || events[0].Type != stream.EventUserUnbanned {
		t.Fatalf("want exactly one user:unbanned event, got %v", events)
	}
}

func TestSuspendJobseekerNoJobCascade(t *testing.T) {
	t.Parallel()

	seeker := &user.User{ID: id.NewUserID(), Role: user.RoleJobseeker, Status: user.StatusActive}

	cmds, err := DecideUserStatus(adminActor(), seeker, user.StatusSuspended, nil)
	if err != nil {
		t.Fatalf("DecideUserStatus: %v", err)
	}

	mutations, events := splitCommands(cmds)
	if len(mutations) != 0 {
		t.Errorf("mutations = %d, want 0", len(mutations))
	}
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if want := stream.UserChannel(seeker.ID); events[0].Channel != want {
		t.Errorf("Channel = %q, want %q", events[0].Channel, want)
	}
}

func TestUserStatusNoChange(t *testing.T) {
	t.Parallel()

	seeker := &user.User{ID: id.NewUserID(), Role: user.RoleJobseeker, Status: user.StatusSuspended}

	cmds, err := DecideUserStatus(adminActor(), seeker, user.StatusSuspended, nil)
	if !errors.Is(err, talentwire.ErrNoChange) {
		t.Fatalf("err = %v, want ErrNoChange", err)
	}
	if len(cmds) != 0 {
		t.Errorf("cmds = %d, want 0", len(cmds))
	}
}

func TestUserStatusRequiresAdmin(t *testing.T) {
	t.Parallel()

	recruiter := testRecruiter()
	actor := Actor{ID: id.NewUserID(), Role: user.RoleRecruiter}

	_, err := DecideUserStatus(actor, recruiter, user.StatusSuspended, nil)
	if !errors.Is(err, talentwire.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestUserStatusInvalid(t *testing.T) {
	t.Parallel()

	seeker := &user.User{ID: id.NewUserID(), Role: user.RoleJobseeker, Status: user.StatusActive}

	_, err := DecideUserStatus(adminActor(), seeker, user.Status("banned"), nil)
	if !errors.Is(err, talentwire.ErrInvalidStatus) {
		t.Fatalf("err = %v, want ErrInvalidStatus", err)
	}
}

func TestJobStatusByOwner(t *testing.T) {
	t.Parallel()

	owner := id.NewUserID()
	j := testJob(owner, job.StatusOpen)
	actor := Actor{ID: owner, Role: user.RoleRecruiter}

	cmds, err := DecideJobStatus(actor, j, job.StatusClosed)
	if err != nil {
		t.Fatalf("DecideJobStatus: %v", err)
	}

	_, events := splitCommands(cmds)
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	evt := events[0]
	if evt.Type != stream.EventJobStatusChanged {
		t.Errorf("Type = %q, want %q", evt.Type, stream.EventJobStatusChanged)
	}
	if want := stream.RecruiterChannel(owner); evt.Channel != want {
		t.Errorf("Channel = %q, want %q", evt.Channel, want)
	}
}

func TestJobStatusAuthorization(t *testing.T) {
	t.Parallel()

	j := testJob(id.NewUserID(), job.StatusOpen)

	tests := []struct {
		name  string
		actor Actor
		want  error
	}{
		{"other recruiter", Actor{ID: id.NewUserID(), Role: user.RoleRecruiter}, talentwire.ErrForbidden},
		{"jobseeker", Actor{ID: id.NewUserID(), Role: user.RoleJobseeker}, talentwire.ErrForbidden},
		{"admin", adminActor(), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecideJobStatus(tt.actor, j, job.StatusPaused)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestJobStatusNoChange(t *testing.T) {
	t.Parallel()

	j := testJob(id.NewUserID(), job.StatusOpen)

	_, err := DecideJobStatus(adminActor(), j, job.StatusOpen)
	if !errors.Is(err, talentwire.ErrNoChange) {
		t.Fatalf("err = %v, want ErrNoChange", err)
	}
}

func TestJobDelete(t *testing.T) {
	t.Parallel()

	owner := id.NewUserID()
	j := testJob(owner, job.StatusOpen)
	actor := Actor{ID: owner, Role: user.RoleRecruiter}

	cmds, err := DecideJobDelete(actor, j)
	if err != nil {
		t.Fatalf("DecideJobDelete: %v", err)
	}

	mutations, events := splitCommands(cmds)
	if len(mutations) != 0 {
		t.Errorf("mutations = %d, want 0 (deletion has no further cascade)", len(mutations))
	}
	if len(events) != 1 || events[0].Type != stream.EventJobDeleted {
		t.Fatalf("want exactly one job:deleted event, got %v", events)
	}
	if want := stream.RecruiterChannel(owner); events[0].Channel != want {
		t.Errorf("Channel = %q, want %q", events[0].Channel, want)
	}

	_, err = DecideJobDelete(Actor{ID: id.NewUserID(), Role: user.RoleRecruiter}, j)
	if !errors.Is(err, talentwire.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestApplicationStatus(t *testing.T) {
	t.Parallel()

	owner := id.NewUserID()
	applicant := id.NewUserID()
	j := testJob(owner, job.StatusOpen)
	app := &application.Application{
		ID:          id.NewApplicationID(),
		JobID:       j.ID,
		ApplicantID: applicant,
		Status:      application.StatusPending,
	}

	actor := Actor{ID: owner, Role: user.RoleRecruiter}
	cmds, err := DecideApplicationStatus(actor, app, j, application.StatusApproved)
	if err != nil {
		t.Fatalf("DecideApplicationStatus: %v", err)
	}

	_, events := splitCommands(cmds)
	if len(events) != 1 || events[0].Type != stream.EventAppStatus {
		t.Fatalf("want exactly one app:status event, got %v", events)
	}
	if want := stream.UserChannel(applicant); events[0].Channel != want {
		t.Errorf("Channel = %q, want %q (applicant's channel)", events[0].Channel, want)
	}

	// Same status is a no-op.
	_, err = DecideApplicationStatus(actor, app, j, application.StatusPending)
	if !errors.Is(err, talentwire.ErrNoChange) {
		t.Fatalf("err = %v, want ErrNoChange", err)
	}
}

func TestApplicationCreate(t *testing.T) {
	t.Parallel()

	owner := id.NewUserID()
	j := testJob(owner, job.StatusOpen)
	app := &application.Application{
		ID:          id.NewApplicationID(),
		JobID:       j.ID,
		ApplicantID: id.NewUserID(),
		Status:      application.StatusPending,
	}

	cmds, err := DecideApplicationCreate(app, j)
	if err != nil {
		t.Fatalf("DecideApplicationCreate: %v", err)
	}
	_, events := splitCommands(cmds)
	if len(events) != 1 || events[0].Type != stream.EventAppNew {
		t.Fatalf("want exactly one app:new event, got %v", events)
	}
	if want := stream.RecruiterChannel(owner); events[0].Channel != want {
		t.Errorf("Channel = %q, want %q", events[0].Channel, want)
	}

	// Applications target open jobs only.
	j.Status = job.StatusPaused
	if _, err := DecideApplicationCreate(app, j); !errors.Is(err, talentwire.ErrInvalidStatus) {
		t.Fatalf("err = %v, want ErrInvalidStatus", err)
	}
}
