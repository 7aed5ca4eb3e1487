package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/xraph/talentwire/engine"
	"github.com/xraph/talentwire/id"
	"github.com/xraph/talentwire/stream"
	"github.com/xraph/talentwire/user"
)

// Server accepts WebSocket connections, runs the auth handshake, and
// pumps frames between clients and the engine. It registers each
// authenticated connection on the broker so pushed events reach it.
type Server struct {
	engine  *engine.Engine
	handler *Handler
	auth    Authenticator
	conns   *ConnectionManager
	logger  *slog.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the server's logger.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a gateway server over the given engine.
func NewServer(eng *engine.Engine, auth Authenticator, opts ...ServerOption) *Server {
	s := &Server{
		engine: eng,
		auth:   auth,
		conns:  NewConnectionManager(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handler = NewHandler(eng, s.logger)
	return s
}

// Connections returns the connection manager.
func (s *Server) Connections() *ConnectionManager { return s.conns }

// ServeHTTP upgrades the request to a WebSocket and serves it until
// the peer disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	go func() {
		defer conn.Close()
		if err := s.serve(context.Background(), conn); err != nil {
			s.logger.Debug("connection closed", slog.String("error", err.Error()))
		}
	}()
}

// serve runs the handshake and frame loop for one socket.
func (s *Server) serve(ctx context.Context, sock net.Conn) error {
	connID := id.NewConnectionID().String()

	gwConn, sub, err := s.handshake(ctx, connID, sock)
	if err != nil {
		return err
	}

	s.conns.Add(gwConn)
	defer func() {
		s.engine.Broker().Unregister(connID)
		s.conns.Remove(connID)
		s.logger.Info("gateway disconnected", slog.String("conn_id", connID))
	}()

	go s.forwardEvents(gwConn, sub)

	for {
		data, _, err := wsutil.ReadClientData(sock)
		if err != nil {
			return nil // peer closed
		}
		gwConn.Touch()

		frame, decErr := gwConn.Codec.Decode(data)
		if decErr != nil {
			s.writeOrWarn(gwConn, NewErrorFrame("", ErrCodeBadRequest, "invalid frame: "+decErr.Error()))
			continue
		}

		if frame.Type == FramePing {
			s.writeOrWarn(gwConn, &Frame{
				ID:        GenerateFrameID(),
				Type:      FramePong,
				CorrelID:  frame.ID,
				Timestamp: frame.Timestamp,
			})
			continue
		}

		if frame.Credits > 0 {
			s.engine.Broker().AddCredits(connID, int64(frame.Credits))
			continue
		}

		var resp *Frame
		switch frame.Method {
		case MethodRegister:
			resp = s.handleRegister(gwConn, frame)
		case MethodSubscribe:
			resp = s.handleSubscribe(gwConn, frame)
		case MethodUnsubscribe:
			resp = s.handleUnsubscribe(gwConn, frame)
		default:
			resp = s.handler.Handle(ctx, frame, gwConn)
		}
		if resp != nil {
			s.writeOrWarn(gwConn, resp)
		}
	}
}

// handshake reads the auth frame, authenticates, negotiates the codec,
// and registers the connection on the broker. The auth frame and any
// handshake error are always JSON.
func (s *Server) handshake(ctx context.Context, connID string, sock net.Conn) (*Connection, *stream.Subscriber, error) {
	data, _, err := wsutil.ReadClientData(sock)
	if err != nil {
		return nil, nil, fmt.Errorf("gateway: read auth frame: %w", err)
	}

	var authFrame Frame
	if err := json.Unmarshal(data, &authFrame); err != nil {
		s.rejectJSON(sock, NewErrorFrame("", ErrCodeBadRequest, "invalid auth frame"))
		return nil, nil, fmt.Errorf("gateway: unmarshal auth frame: %w", err)
	}
	if authFrame.Method != MethodAuth {
		s.rejectJSON(sock, NewErrorFrame(authFrame.ID, ErrCodeBadRequest, "first frame must be auth"))
		return nil, nil, fmt.Errorf("gateway: expected auth frame, got %q", authFrame.Method)
	}

	var authReq AuthRequest
	if len(authFrame.Data) > 0 {
		if err := json.Unmarshal(authFrame.Data, &authReq); err != nil {
			s.rejectJSON(sock, NewErrorFrame(authFrame.ID, ErrCodeBadRequest, "invalid auth data"))
			return nil, nil, err
		}
	}

	token := authReq.Token
	if token == "" {
		token = authFrame.Token
	}
	identity, err := s.auth.Authenticate(ctx, token)
	if err != nil {
		s.rejectJSON(sock, NewErrorFrame(authFrame.ID, ErrCodeUnauthorized, "authentication failed"))
		return nil, nil, fmt.Errorf("gateway: auth failed: %w", err)
	}

	codec := GetCodec(authReq.Format)
	gwConn := NewConnection(connID, identity, codec, sock)

	sub, channels := s.engine.Broker().Register(connID, identity)

	resp, err := NewResponseFrame(authFrame.ID, AuthResponse{
		Format:    codec.Name(),
		SessionID: connID,
		UserID:    identity.Subject.String(),
		Role:      string(identity.Role),
		Channels:  channels,
	})
	if err != nil {
		s.engine.Broker().Unregister(connID)
		return nil, nil, fmt.Errorf("gateway: marshal auth response: %w", err)
	}
	if err := s.writeFrame(gwConn, resp); err != nil {
		// The peer never saw the auth response; its registration must
		// not outlive the handshake.
		s.engine.Broker().Unregister(connID)
		return nil, nil, err
	}

	s.logger.Info("gateway authenticated",
		slog.String("conn_id", connID),
		slog.String("subject", identity.Subject.String()),
		slog.String("role", string(identity.Role)),
		slog.String("codec", codec.Name()))
	return gwConn, sub, nil
}

// handleRegister re-joins the connection's identity channel. The
// declared identity must equal the handshake identity; anything else
// is an attempt to claim another subject's channel.
func (s *Server) handleRegister(c *Connection, frame *Frame) *Frame {
	var req RegisterRequest
	if len(frame.Data) > 0 {
		if err := json.Unmarshal(frame.Data, &req); err != nil {
			return NewErrorFrame(frame.ID, ErrCodeBadRequest, "invalid register data")
		}
	}
	subject, err := id.ParseUserID(req.SubjectID)
	if err != nil {
		return NewErrorFrame(frame.ID, ErrCodeBadRequest, "invalid subject ID: "+err.Error())
	}
	if subject.String() != c.Identity.Subject.String() || user.Role(req.Role) != c.Identity.Role {
		return NewErrorFrame(frame.ID, ErrCodeForbidden, "identity does not match this connection")
	}

	channel := stream.ChannelFor(c.Identity.Subject, c.Identity.Role)
	if !s.engine.Broker().Subscribe(c.ID, channel) {
		return NewErrorFrame(frame.ID, ErrCodeNotFound, "connection not registered")
	}
	return mustResponseFrame(frame.ID, RegisterResponse{Channel: channel, Status: "registered"})
}

func (s *Server) handleSubscribe(c *Connection, frame *Frame) *Frame {
	var req SubscribeRequest
	if len(frame.Data) > 0 {
		if err := json.Unmarshal(frame.Data, &req); err != nil {
			return NewErrorFrame(frame.ID, ErrCodeBadRequest, "invalid subscribe data")
		}
	}
	if req.Channel == "" {
		req.Channel = frame.Channel
	}
	if err := stream.ValidateChannel(req.Channel); err != nil {
		return NewErrorFrame(frame.ID, ErrCodeBadRequest, err.Error())
	}
	if !CanSubscribe(c.Identity, req.Channel) {
		return NewErrorFrame(frame.ID, ErrCodeForbidden, "channel not permitted")
	}
	if !s.engine.Broker().Subscribe(c.ID, req.Channel) {
		return NewErrorFrame(frame.ID, ErrCodeNotFound, "connection not registered")
	}
	return mustResponseFrame(frame.ID, map[string]string{"channel": req.Channel, "status": "subscribed"})
}

func (s *Server) handleUnsubscribe(c *Connection, frame *Frame) *Frame {
	var req UnsubscribeRequest
	if len(frame.Data) > 0 {
		if err := json.Unmarshal(frame.Data, &req); err != nil {
			return NewErrorFrame(frame.ID, ErrCodeBadRequest, "invalid unsubscribe data")
		}
	}
	if req.Channel == "" {
		req.Channel = frame.Channel
	}
	s.engine.Broker().Unsubscribe(c.ID, req.Channel)
	return mustResponseFrame(frame.ID, map[string]string{"channel": req.Channel, "status": "unsubscribed"})
}

// forwardEvents pumps broker events to the socket until the
// subscriber channel closes.
func (s *Server) forwardEvents(c *Connection, sub *stream.Subscriber) {
	for evt := range sub.C() {
		frame := NewEventFrame(evt.Channel, string(evt.Type), evt.Data)
		if err := s.writeFrame(c, frame); err != nil {
			return // connection gone
		}
	}
}

// writeFrame encodes and writes a frame under the connection's write
// lock. JSON goes as a text message, msgpack as binary.
func (s *Server) writeFrame(c *Connection, frame *Frame) error {
	data, err := c.Codec.Encode(frame)
	if err != nil {
		return err
	}
	op := ws.OpText
	if c.Codec.Name() == FormatMsgpack {
		op = ws.OpBinary
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wsutil.WriteServerMessage(c.rw, op, data)
}

func (s *Server) writeOrWarn(c *Connection, frame *Frame) {
	if err := s.writeFrame(c, frame); err != nil {
		s.logger.Warn("write frame failed",
			slog.String("conn_id", c.ID),
			slog.String("error", err.Error()))
	}
}

// rejectJSON writes a best-effort JSON error before disconnecting an
// unauthenticated socket.
func (s *Server) rejectJSON(sock net.Conn, frame *Frame) {
	if data, err := json.Marshal(frame); err == nil {
		_ = wsutil.WriteServerMessage(sock, ws.OpText, data)
	}
}
