package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/Aman-CERP/qmdsync/internal/qmd"
)

// Handler serves the requests that need the coordinator or the index.
type Handler interface {
	// Status fills in the sync and index parts of the status result.
	Status(ctx context.Context) StatusResult
	// Sync runs a manual sync and waits for it.
	Sync(ctx context.Context) (SyncResult, error)
	Search(ctx context.Context, params SearchParams) (*qmd.SearchResult, error)
	Related(ctx context.Context, params RelatedParams) (*qmd.SearchResult, error)
}

// Server listens on a Unix socket and handles RPC requests.
// Each connection carries exactly one request.
type Server struct {
	cfg      Config
	listener net.Listener
	handler  Handler
	logger   *slog.Logger
	started  time.Time

	mu       sync.Mutex
	shutdown bool
	wg       sync.WaitGroup
}

// NewServer creates a server for cfg. A nil logger means slog.Default().
func NewServer(cfg Config, handler Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
	}
}

// ListenAndServe starts the server and blocks until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	// Clean up any stale socket. serve refuses to start while one answers.
	_ = os.Remove(s.cfg.SocketPath)

	listener, err := net.Listen("unix", s.cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.SocketPath, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.started = time.Now()
	stopped := s.shutdown
	s.mu.Unlock()
	if stopped {
		_ = listener.Close()
	}

	defer func() {
		_ = listener.Close()
		_ = os.Remove(s.cfg.SocketPath)
	}()

	s.logger.Info("daemon listening", slog.String("socket", s.cfg.SocketPath))

	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.isShutdown() {
				break
			}
			s.logger.Error("accept error", slog.String("error", err.Error()))
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.wg.Wait()
	return ctx.Err()
}

func (s *Server) isShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

// handleConnection processes a single client connection.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	if err := conn.SetReadDeadline(time.Now().Add(s.cfg.Timeout)); err != nil {
		s.logger.Warn("failed to set read deadline", slog.String("error", err.Error()))
	}

	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)

	var req Request
	if err := decoder.Decode(&req); err != nil {
		_ = encoder.Encode(NewErrorResponse("", ErrCodeParseError, "failed to parse request"))
		return
	}

	resp := s.handleRequest(ctx, req)

	if err := conn.SetWriteDeadline(time.Now().Add(s.cfg.Timeout)); err != nil {
		s.logger.Warn("failed to set write deadline", slog.String("error", err.Error()))
	}
	if err := encoder.Encode(resp); err != nil {
		s.logger.Debug("failed to write response",
			slog.String("method", req.Method),
			slog.String("error", err.Error()))
	}
}

// handleRequest dispatches a request to the appropriate handler.
func (s *Server) handleRequest(ctx context.Context, req Request) Response {
	if req.JSONRPC != "2.0" {
		return NewErrorResponse(req.ID, ErrCodeInvalidRequest, "jsonrpc must be 2.0")
	}

	switch req.Method {
	case MethodPing:
		return NewSuccessResponse(req.ID, PingResult{Pong: true})
	case MethodStatus:
		return NewSuccessResponse(req.ID, s.status(ctx))
	}

	if s.handler == nil {
		return NewErrorResponse(req.ID, ErrCodeInternalError, "no handler configured")
	}

	switch req.Method {
	case MethodSync:
		ctx, cancel := context.WithTimeout(ctx, s.cfg.SyncTimeout)
		defer cancel()
		result, err := s.handler.Sync(ctx)
		if err != nil {
			return newHandlerErrorResponse(req.ID, ErrCodeSyncFailed, err)
		}
		return NewSuccessResponse(req.ID, result)

	case MethodSearch:
		var params SearchParams
		if err := decodeParams(req.Params, &params); err != nil {
			return NewErrorResponse(req.ID, ErrCodeInvalidParams, err.Error())
		}
		if err := params.Validate(); err != nil {
			return NewErrorResponse(req.ID, ErrCodeInvalidParams, err.Error())
		}
		result, err := s.handler.Search(ctx, params)
		if err != nil {
			return newHandlerErrorResponse(req.ID, ErrCodeSearchFailed, err)
		}
		return NewSuccessResponse(req.ID, result)

	case MethodRelated:
		var params RelatedParams
		if err := decodeParams(req.Params, &params); err != nil {
			return NewErrorResponse(req.ID, ErrCodeInvalidParams, err.Error())
		}
		if err := params.Validate(); err != nil {
			return NewErrorResponse(req.ID, ErrCodeInvalidParams, err.Error())
		}
		result, err := s.handler.Related(ctx, params)
		if err != nil {
			return newHandlerErrorResponse(req.ID, ErrCodeSearchFailed, err)
		}
		return NewSuccessResponse(req.ID, result)

	default:
		return NewErrorResponse(req.ID, ErrCodeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method))
	}
}

// decodeParams re-encodes the generic params into the typed struct.
func decodeParams(params any, out any) error {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to encode params")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode params")
	}
	return nil
}

// status returns the current server status.
func (s *Server) status(ctx context.Context) StatusResult {
	var result StatusResult
	if s.handler != nil {
		result = s.handler.Status(ctx)
	}

	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	result.Running = true
	result.PID = os.Getpid()
	result.Uptime = time.Since(started).Round(time.Second).String()
	return result
}

// Close stops accepting connections. In-flight requests finish.
func (s *Server) Close() error {
	s.mu.Lock()
	s.shutdown = true
	listener := s.listener
	s.mu.Unlock()

	if listener != nil {
		return listener.Close()
	}
	return nil
}
