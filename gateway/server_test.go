package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/xraph/talentwire"
	"github.com/xraph/talentwire/engine"
	"github.com/xraph/talentwire/id"
	"github.com/xraph/talentwire/job"
	"github.com/xraph/talentwire/store/memory"
	"github.com/xraph/talentwire/stream"
	"github.com/xraph/talentwire/user"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestGateway(t *testing.T) (*Server, *engine.Engine, *memory.Store, *JWTAuthenticator) {
	t.Helper()
	st := memory.New()
	eng := engine.New(st, engine.WithLogger(testLogger()))
	t.Cleanup(func() { _ = eng.Stop(context.Background()) })
	auth := NewJWTAuthenticator([]byte("test-secret"), time.Hour)
	srv := NewServer(eng, auth, WithServerLogger(testLogger()))
	return srv, eng, st, auth
}

func seedUser(t *testing.T, st *memory.Store, role user.Role) *user.User {
	t.Helper()
	u := &user.User{
		Entity: talentwire.NewEntity(),
		ID:     id.NewUserID(),
		Email:  "u@example.com",
		Name:   "Test User",
		Role:   role,
		Status: user.StatusActive,
	}
	if err := st.SaveUser(context.Background(), u); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}
	return u
}

func seedJob(t *testing.T, st *memory.Store, owner id.UserID, status job.Status) *job.Job {
	t.Helper()
	j := &job.Job{
		Entity:      talentwire.NewEntity(),
		ID:          id.NewJobID(),
		Title:       "Backend Engineer",
		Company:     "Acme",
		Description: "Build things.",
		PostedBy:    owner,
		Status:      status,
	}
	if err := st.SaveJob(context.Background(), j); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}
	return j
}

func connFor(identity stream.Identity) *Connection {
	return NewConnection(id.NewConnectionID().String(), identity, JSONCodec{}, nil)
}

func requestFrame(t *testing.T, method string, data any) *Frame {
	t.Helper()
	frame, err := NewRequestFrame(GenerateFrameID(), method, data)
	if err != nil {
		t.Fatalf("NewRequestFrame: %v", err)
	}
	return frame
}

func TestHandlerJobStatus(t *testing.T) {
	t.Parallel()

	srv, _, st, _ := newTestGateway(t)
	ctx := context.Background()

	recruiter := seedUser(t, st, user.RoleRecruiter)
	j := seedJob(t, st, recruiter.ID, job.StatusOpen)

	conn := connFor(stream.Identity{Subject: recruiter.ID, Role: user.RoleRecruiter})
	frame := requestFrame(t, MethodJobStatus, JobStatusRequest{JobID: j.ID.String(), Status: "closed"})

	resp := srv.handler.Handle(ctx, frame, conn)
	if resp.Type != FrameResponse {
		t.Fatalf("resp type = %s, error = %+v", resp.Type, resp.Error)
	}
	if resp.CorrelID != frame.ID {
		t.Fatalf("correl_id = %s, want %s", resp.CorrelID, frame.ID)
	}

	got, err := st.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != job.StatusClosed {
		t.Fatalf("job status = %s, want closed", got.Status)
	}
}

func TestHandlerErrorCodes(t *testing.T) {
	t.Parallel()

	srv, _, st, _ := newTestGateway(t)
	ctx := context.Background()

	recruiter := seedUser(t, st, user.RoleRecruiter)
	other := seedUser(t, st, user.RoleRecruiter)
	j := seedJob(t, st, recruiter.ID, job.StatusOpen)

	tests := []struct {
		name     string
		identity stream.Identity
		frame    *Frame
		wantCode int
	}{
		{
			"foreign job status",
			stream.Identity{Subject: other.ID, Role: user.RoleRecruiter},
			requestFrame(t, MethodJobStatus, JobStatusRequest{JobID: j.ID.String(), Status: "closed"}),
			ErrCodeForbidden,
		},
		{
			"missing job",
			stream.Identity{Subject: recruiter.ID, Role: user.RoleRecruiter},
			requestFrame(t, MethodJobDelete, JobDeleteRequest{JobID: id.NewJobID().String()}),
			ErrCodeNotFound,
		},
		{
			"malformed id",
			stream.Identity{Subject: recruiter.ID, Role: user.RoleRecruiter},
			requestFrame(t, MethodJobStatus, JobStatusRequest{JobID: "nope", Status: "closed"}),
			ErrCodeBadRequest,
		},
		{
			"unknown method",
			stream.Identity{Subject: recruiter.ID, Role: user.RoleRecruiter},
			requestFrame(t, "job.promote", struct{}{}),
			ErrCodeMethodNotFound,
		},
		{
			"stats not admin",
			stream.Identity{Subject: recruiter.ID, Role: user.RoleRecruiter},
			requestFrame(t, MethodStats, struct{}{}),
			ErrCodeForbidden,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := srv.handler.Handle(ctx, tt.frame, connFor(tt.identity))
			if resp.Type != FrameErr || resp.Error == nil {
				t.Fatalf("resp = %+v, want error frame", resp)
			}
			if resp.Error.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d", resp.Error.Code, tt.wantCode)
			}
		})
	}
}

func TestHandlerAppCreateConflict(t *testing.T) {
	t.Parallel()

	srv, _, st, _ := newTestGateway(t)
	ctx := context.Background()

	recruiter := seedUser(t, st, user.RoleRecruiter)
	seeker := seedUser(t, st, user.RoleJobseeker)
	j := seedJob(t, st, recruiter.ID, job.StatusOpen)

	conn := connFor(stream.Identity{Subject: seeker.ID, Role: user.RoleJobseeker})
	frame := requestFrame(t, MethodAppCreate, AppCreateRequest{JobID: j.ID.String()})

	if resp := srv.handler.Handle(ctx, frame, conn); resp.Type != FrameResponse {
		t.Fatalf("first apply: %+v", resp.Error)
	}

	resp := srv.handler.Handle(ctx, requestFrame(t, MethodAppCreate, AppCreateRequest{JobID: j.ID.String()}), conn)
	if resp.Type != FrameErr || resp.Error.Code != ErrCodeConflict {
		t.Fatalf("duplicate apply resp = %+v, want conflict", resp)
	}
}

// ── WebSocket end to end ────────────────────────────

func dialGateway(t *testing.T, url string) net.Conn {
	t.Helper()
	conn, _, _, err := ws.Dial(context.Background(), "ws"+strings.TrimPrefix(url, "http"))
	if err != nil {
		t.Fatalf("ws.Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func writeFrameJSON(t *testing.T, conn net.Conn, frame *Frame) {
	t.Helper()
	data, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	if err := wsutil.WriteClientText(conn, data); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func readFrameJSON(t *testing.T, conn net.Conn) *Frame {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	data, err := wsutil.ReadServerText(conn)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	return &frame
}

func TestWebSocketSession(t *testing.T) {
	t.Parallel()

	srv, eng, st, auth := newTestGateway(t)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	seeker := seedUser(t, st, user.RoleJobseeker)
	token := mustToken(t, auth, seeker.ID, user.RoleJobseeker)

	conn := dialGateway(t, ts.URL)

	// Auth handshake.
	authFrame := requestFrame(t, MethodAuth, AuthRequest{Token: token})
	writeFrameJSON(t, conn, authFrame)

	resp := readFrameJSON(t, conn)
	if resp.Type != FrameResponse || resp.CorrelID != authFrame.ID {
		t.Fatalf("auth resp = %+v", resp)
	}
	var authResp AuthResponse
	if err := json.Unmarshal(resp.Data, &authResp); err != nil {
		t.Fatalf("unmarshal auth response: %v", err)
	}
	if len(authResp.Channels) != 1 || authResp.Channels[0] != stream.UserChannel(seeker.ID) {
		t.Fatalf("channels = %v, want own user channel", authResp.Channels)
	}

	// Ping keeps the session alive.
	writeFrameJSON(t, conn, &Frame{ID: "p1", Type: FramePing, Timestamp: time.Now().UTC()})
	if pong := readFrameJSON(t, conn); pong.Type != FramePong || pong.CorrelID != "p1" {
		t.Fatalf("pong = %+v", pong)
	}

	// Opt in to the broadcast channel and receive a pushed event.
	subFrame := requestFrame(t, MethodSubscribe, SubscribeRequest{Channel: stream.ChannelBroadcast})
	writeFrameJSON(t, conn, subFrame)
	if r := readFrameJSON(t, conn); r.Type != FrameResponse {
		t.Fatalf("subscribe resp = %+v", r)
	}

	eng.Broker().Publish(stream.NewEvent(stream.EventJobNew, stream.ChannelBroadcast, map[string]string{"job_id": "job-x"}))

	evt := readFrameJSON(t, conn)
	if evt.Type != FrameEvent || evt.Method != string(stream.EventJobNew) {
		t.Fatalf("event frame = %+v", evt)
	}
	if evt.Channel != stream.ChannelBroadcast {
		t.Fatalf("event channel = %s, want broadcast", evt.Channel)
	}
}

func TestWebSocketSubscribeForeignChannelForbidden(t *testing.T) {
	t.Parallel()

	srv, _, st, auth := newTestGateway(t)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	seeker := seedUser(t, st, user.RoleJobseeker)
	token := mustToken(t, auth, seeker.ID, user.RoleJobseeker)

	conn := dialGateway(t, ts.URL)
	writeFrameJSON(t, conn, requestFrame(t, MethodAuth, AuthRequest{Token: token}))
	readFrameJSON(t, conn)

	subFrame := requestFrame(t, MethodSubscribe, SubscribeRequest{Channel: stream.UserChannel(id.NewUserID())})
	writeFrameJSON(t, conn, subFrame)

	resp := readFrameJSON(t, conn)
	if resp.Type != FrameErr || resp.Error.Code != ErrCodeForbidden {
		t.Fatalf("resp = %+v, want forbidden", resp)
	}
}

func TestWebSocketRegister(t *testing.T) {
	t.Parallel()

	srv, _, st, auth := newTestGateway(t)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	seeker := seedUser(t, st, user.RoleJobseeker)
	token := mustToken(t, auth, seeker.ID, user.RoleJobseeker)

	conn := dialGateway(t, ts.URL)
	writeFrameJSON(t, conn, requestFrame(t, MethodAuth, AuthRequest{Token: token}))
	readFrameJSON(t, conn)

	// Re-declaring the authenticated identity succeeds.
	regFrame := requestFrame(t, MethodRegister, RegisterRequest{
		SubjectID: seeker.ID.String(),
		Role:      string(user.RoleJobseeker),
	})
	writeFrameJSON(t, conn, regFrame)

	resp := readFrameJSON(t, conn)
	if resp.Type != FrameResponse || resp.CorrelID != regFrame.ID {
		t.Fatalf("register resp = %+v", resp)
	}
	var reg RegisterResponse
	if err := json.Unmarshal(resp.Data, &reg); err != nil {
		t.Fatalf("unmarshal register response: %v", err)
	}
	if reg.Channel != stream.UserChannel(seeker.ID) {
		t.Fatalf("channel = %s, want own user channel", reg.Channel)
	}

	// Claiming another subject is rejected.
	writeFrameJSON(t, conn, requestFrame(t, MethodRegister, RegisterRequest{
		SubjectID: id.NewUserID().String(),
		Role:      string(user.RoleJobseeker),
	}))
	if r := readFrameJSON(t, conn); r.Type != FrameErr || r.Error.Code != ErrCodeForbidden {
		t.Fatalf("foreign register resp = %+v, want forbidden", r)
	}

	// Claiming a wider role is rejected too.
	writeFrameJSON(t, conn, requestFrame(t, MethodRegister, RegisterRequest{
		SubjectID: seeker.ID.String(),
		Role:      string(user.RoleAdmin),
	}))
	if r := readFrameJSON(t, conn); r.Type != FrameErr || r.Error.Code != ErrCodeForbidden {
		t.Fatalf("role-widening register resp = %+v, want forbidden", r)
	}
}

func TestWebSocketSubscribeMalformedChannel(t *testing.T) {
	t.Parallel()

	srv, _, st, auth := newTestGateway(t)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	seeker := seedUser(t, st, user.RoleJobseeker)
	token := mustToken(t, auth, seeker.ID, user.RoleJobseeker)

	conn := dialGateway(t, ts.URL)
	writeFrameJSON(t, conn, requestFrame(t, MethodAuth, AuthRequest{Token: token}))
	readFrameJSON(t, conn)

	for _, channel := range []string{"", "user:not-an-id", "admin:" + seeker.ID.String()} {
		writeFrameJSON(t, conn, requestFrame(t, MethodSubscribe, SubscribeRequest{Channel: channel}))
		resp := readFrameJSON(t, conn)
		if resp.Type != FrameErr || resp.Error.Code != ErrCodeBadRequest {
			t.Fatalf("subscribe %q resp = %+v, want bad request", channel, resp)
		}
	}
}

// failingWriteConn refuses all writes, so the auth response can never
// reach the peer.
type failingWriteConn struct {
	net.Conn
}

func (c *failingWriteConn) Write([]byte) (int, error) {
	return 0, errors.New("write refused")
}

func TestHandshakeWriteFailureUnregisters(t *testing.T) {
	t.Parallel()

	srv, eng, st, auth := newTestGateway(t)

	seeker := seedUser(t, st, user.RoleJobseeker)
	token := mustToken(t, auth, seeker.ID, user.RoleJobseeker)

	client, server := net.Pipe()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})

	done := make(chan error, 1)
	go func() {
		done <- srv.serve(context.Background(), &failingWriteConn{Conn: server})
	}()

	writeFrameJSON(t, client, requestFrame(t, MethodAuth, AuthRequest{Token: token}))

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("serve should fail when the auth response cannot be written")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return")
	}

	// The registration must not outlive the failed handshake.
	if members := eng.Broker().Members(stream.UserChannel(seeker.ID)); len(members) != 0 {
		t.Fatalf("channel members = %v after failed handshake, want none", members)
	}
	if got := eng.Broker().Stats().Subscribers; got != 0 {
		t.Fatalf("subscribers = %d after failed handshake, want 0", got)
	}
}

func TestWebSocketRejectsBadAuth(t *testing.T) {
	t.Parallel()

	srv, _, _, _ := newTestGateway(t)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	conn := dialGateway(t, ts.URL)
	writeFrameJSON(t, conn, requestFrame(t, MethodAuth, AuthRequest{Token: "bogus"}))

	resp := readFrameJSON(t, conn)
	if resp.Type != FrameErr || resp.Error.Code != ErrCodeUnauthorized {
		t.Fatalf("resp = %+v, want unauthorized", resp)
	}
}

func TestWebSocketFirstFrameMustBeAuth(t *testing.T) {
	t.Parallel()

	srv, _, _, _ := newTestGateway(t)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	conn := dialGateway(t, ts.URL)
	writeFrameJSON(t, conn, requestFrame(t, MethodStats, struct{}{}))

	resp := readFrameJSON(t, conn)
	if resp.Type != FrameErr || resp.Error.Code != ErrCodeBadRequest {
		t.Fatalf("resp = %+v, want bad request", resp)
	}
}
