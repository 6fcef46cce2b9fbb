// Package server accepts client connections on a unix socket and services
// them one at a time: one JSON message in, one reply out, connection closed.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"

	"github.com/google/uuid"

	"alarmd/internal/alarm"
	"alarmd/internal/protocol"
)

// maxMessageSize bounds both requests and replies. A handful of KB covers
// any realistic alarm count.
const maxMessageSize = 8192

type Server struct {
	path    string
	manager *alarm.Manager
	logger  alarm.Logger

	listener net.Listener
}

func New(path string, manager *alarm.Manager, logger alarm.Logger) *Server {
	return &Server{
		path:    path,
		manager: manager,
		logger:  logger,
	}
}

// Listen binds the unix socket, replacing a stale socket file from a
// previous run.
func (s *Server) Listen() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing stale socket %s: %w", s.path, err)
	}

	listener, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("binding socket %s: %w", s.path, err)
	}
	s.listener = listener
	s.logger.Info("listening", "socket", s.path)
	return nil
}

// Run accepts connections until ctx is cancelled, then removes the socket
// file. Requests are handled sequentially; the manager lock serializes state
// access regardless.
func (s *Server) Run(ctx context.Context) error {
	defer os.Remove(s.path)

	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accepting connection: %w", err)
		}
		s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	requestID := uuid.New().String()

	buf := make([]byte, maxMessageSize)
	n, err := conn.Read(buf)
	if err != nil {
		s.logger.Warn("reading request", "request_id", requestID, "err", err)
		return
	}

	reply := s.reply(buf[:n], requestID)

	// A client that disconnected mid-request just fails the write; logged,
	// not propagated.
	if _, err := conn.Write([]byte(reply)); err != nil {
		s.logger.Warn("writing reply", "request_id", requestID, "err", err)
	}
}

// reply services one raw request. Decode errors and internal errors are
// returned to the caller as the reply text; nothing here may take the daemon
// down.
func (s *Server) reply(raw []byte, requestID string) string {
	var msg protocol.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.logger.Warn("bad request", "request_id", requestID, "err", err)
		return fmt.Sprintf("invalid request: %v", err)
	}

	req, err := decodeRequest(msg)
	if err != nil {
		s.logger.Warn("bad request", "request_id", requestID, "err", err)
		return err.Error()
	}

	s.logger.Info("request",
		"request_id", requestID,
		"action", string(req.Action),
		"when", string(req.When),
		"time", msg.Time,
	)

	out, err := s.manager.Process(req)
	if err != nil {
		s.logger.Error("request failed", "request_id", requestID, "err", err)
		return err.Error()
	}
	// Truncating a JSON list reply would hand the client an undecodable
	// payload, so an oversized reply becomes an error string instead.
	if len(out) > maxMessageSize {
		s.logger.Error("reply too large", "request_id", requestID, "bytes", len(out))
		return "alarm list is too large to send"
	}
	return out
}

// decodeRequest validates a wire message into a typed request. Malformed
// input is rejected here, never inside the store.
func decodeRequest(msg protocol.Message) (alarm.Request, error) {
	action, err := alarm.ParseAction(msg.Action)
	if err != nil {
		return alarm.Request{}, err
	}

	when, err := alarm.ParseWhen(msg.When)
	if err != nil {
		return alarm.Request{}, err
	}

	req := alarm.Request{
		Action:   action,
		When:     when,
		FullList: msg.FullList,
	}

	if msg.Time != "" {
		tod, err := alarm.ParseTimeOfDay(msg.Time)
		if err != nil {
			return alarm.Request{}, err
		}
		req.Time = tod
		req.HasTime = true
	}

	return req, nil
}
