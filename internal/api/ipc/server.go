package ipc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/oshokin/smart-dial/internal/domain/dial"
	"github.com/oshokin/smart-dial/internal/logger"
)

// Handler is the daemon surface the control socket drives.
type Handler interface {
	// InjectInput feeds synthetic events into the interpretation pipeline.
	InjectInput(ctx context.Context, events []dial.InputEvent) error
	// Status returns a snapshot of the daemon state.
	Status(ctx context.Context) (dial.Status, error)
}

// Server answers control requests on a unix socket,
// one JSON object per line in each direction.
type Server struct {
	socketPath string
	handler    Handler
}

// NewServer returns a server bound to socketPath once Run is called.
func NewServer(socketPath string, handler Handler) *Server {
	return &Server{
		socketPath: socketPath,
		handler:    handler,
	}
}

// Run accepts connections until the context ends.
// A stale socket file from a previous run is replaced on start
// and the socket is removed on shutdown.
func (s *Server) Run(ctx context.Context) error {
	if err := os.RemoveAll(s.socketPath); err != nil {
		return fmt.Errorf("remove stale control socket: %w", err)
	}

	var lc net.ListenConfig

	listener, err := lc.Listen(ctx, "unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on control socket: %w", err)
	}

	// Operator tooling runs under arbitrary local users.
	if err = os.Chmod(s.socketPath, 0o666); err != nil {
		logger.Warnf(ctx, "failed to open up control socket permissions: %v", err)
	}

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	defer os.Remove(s.socketPath)

	logger.Infof(ctx, "control socket is listening on %s", s.socketPath)

	// Connections are numbered so logs from concurrent dial-ctl calls
	// stay apart.
	var connSeq uint64

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return fmt.Errorf("accept control connection: %w", err)
		}

		connSeq++

		go s.serve(logger.WithKV(ctx, "conn", connSeq), conn)
	}
}

func (s *Server) serve(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	encoder := json.NewEncoder(conn)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			logger.Debugf(ctx, "malformed control request: %v", err)
			s.reply(ctx, encoder, Response{Status: statusError, Error: "malformed request"})

			continue
		}

		s.reply(ctx, encoder, s.handle(ctx, req))
	}
}

func (s *Server) handle(ctx context.Context, req Request) Response {
	switch req.Type {
	case TypeStatus:
		state, err := s.handler.Status(ctx)
		if err != nil {
			return Response{Status: statusError, Error: err.Error()}
		}

		return Response{Status: statusOK, State: &state}
	case TypeRotate, TypePress:
		events, err := expandRequest(req, time.Now())
		if err != nil {
			return Response{Status: statusError, Error: err.Error()}
		}

		if err = s.handler.InjectInput(ctx, events); err != nil {
			return Response{Status: statusError, Error: err.Error()}
		}

		return Response{Status: statusOK}
	default:
		return Response{Status: statusError, Error: fmt.Sprintf("unknown request type %q", req.Type)}
	}
}

func (s *Server) reply(ctx context.Context, encoder *json.Encoder, resp Response) {
	if err := encoder.Encode(resp); err != nil {
		logger.Debugf(ctx, "failed to write control response: %v", err)
	}
}
