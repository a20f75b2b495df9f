// Package server implements the custdb TCP server.
//
// The server accepts TCP connections, reads one request at a time from each
// connection, dispatches it against the in-memory customer store and writes
// exactly one response back (or none, for unknown choices under the ignore
// policy). Each connection is served by its own goroutine.
//
// Architecture:
//   - TCP listener with one goroutine per connection
//   - Pluggable framing and codec from the protocol package
//   - Dispatcher mapping choices to store operations
//   - Connection limit enforced with a weighted semaphore
//   - Graceful shutdown that closes every open connection
//
// Example usage:
//
//	st := store.New()
//	srv, err := server.New(config.DefaultServerConfig(), st, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := srv.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//
// Connections are closed without a response when a frame cannot be read or
// decoded. Store errors never close a connection; they are reported to the
// client as message responses.
package server

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/cachemir/custdb/pkg/config"
	"github.com/cachemir/custdb/pkg/protocol"
	"github.com/cachemir/custdb/pkg/store"
)

// Server represents a custdb server instance.
// It manages TCP connections and serves requests against a shared store.
//
// Example:
//
//	srv, _ := server.New(cfg, st, logger)
//	go func() {
//		if err := srv.Start(ctx); err != nil {
//			logger.Error("Server error", zap.Error(err))
//		}
//	}()
//
//	// Later, to stop the server
//	srv.Stop()
type Server struct {
	cfg        *config.ServerConfig
	store      *store.Store
	dispatcher *Dispatcher
	logger     *zap.Logger
	framing    protocol.Framing
	codec      protocol.Codec
	sem        *semaphore.Weighted

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	closing  bool
	wg       sync.WaitGroup
}

// New creates a Server for cfg serving st. The server is not started until
// Start or Serve is called.
//
// Returns:
//   - A new Server instance ready to be started
//   - Error if cfg names an unknown framing or codec
func New(cfg *config.ServerConfig, st *store.Store, logger *zap.Logger) (*Server, error) {
	framing, codec, err := cfg.Wire()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	maxConns := cfg.MaxConns
	if maxConns < 1 {
		maxConns = config.DefaultMaxConnections
	}

	return &Server{
		cfg:        cfg,
		store:      st,
		dispatcher: NewDispatcher(st, cfg.UnknownChoice, logger),
		logger:     logger,
		framing:    framing,
		codec:      codec,
		sem:        semaphore.NewWeighted(int64(maxConns)),
		conns:      make(map[net.Conn]struct{}),
	}, nil
}

// Start listens on the configured address and serves connections until Stop
// is called or ctx is cancelled. It returns nil after a clean shutdown.
func (s *Server) Start(ctx context.Context) error {
	addr := s.cfg.Address()
	lc := net.ListenConfig{}
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", addr)
	}
	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener until Stop is called or ctx is
// cancelled. Serve takes ownership of listener.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		_ = listener.Close()
		return nil
	}
	s.listener = listener
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = s.Stop() })
	defer stop()

	s.logger.Info("custdb server listening",
		zap.Stringer("addr", listener.Addr()),
		zap.Int("records", s.store.Len()),
		zap.String("framing", string(s.framing)),
		zap.String("codec", s.codec.Name()),
		zap.Int("max_conns", s.cfg.MaxConns))

	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.isClosing() || errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				s.logger.Info("custdb server stopped")
				return nil
			}
			s.logger.Warn("Failed to accept connection", zap.Error(err))
			continue
		}

		if !s.sem.TryAcquire(1) {
			s.logger.Warn("Connection limit reached, rejecting connection",
				zap.Stringer("remote", conn.RemoteAddr()))
			_ = conn.Close()
			continue
		}

		if !s.track(conn) {
			s.sem.Release(1)
			_ = conn.Close()
			continue
		}

		go s.handleConnection(conn)
	}
}

// Addr returns the listening address, or nil before Start or Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop shuts the server down: the listener is closed, every open connection
// is closed, and Stop waits for their goroutines to finish. It is safe to
// call more than once.
func (s *Server) Stop() error {
	s.mu.Lock()
	s.closing = true
	listener := s.listener
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	var err error
	if listener != nil {
		if cerr := listener.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = errors.Wrap(cerr, "closing listener")
		}
	}

	s.wg.Wait()
	return err
}

func (s *Server) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// handleConnection serves a single client connection:
//  1. Read one request frame
//  2. Dispatch it against the store
//  3. Write the response, if any
//  4. Repeat until the client disconnects or an error occurs
func (s *Server) handleConnection(conn net.Conn) {
	log := s.logger.With(
		zap.String("conn", uuid.NewString()),
		zap.Stringer("remote", conn.RemoteAddr()))
	log.Info("Connection accepted")

	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic while serving connection", zap.Any("panic", r), zap.Stack("stack"))
		}
		s.untrack(conn)
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Debug("Error closing connection", zap.Error(err))
		}
		s.sem.Release(1)
		s.wg.Done()
		log.Info("Connection closed")
	}()

	pc := protocol.NewConn(conn, s.framing, s.codec, s.cfg.Options())

	for {
		if s.cfg.ReadTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
				log.Warn("Error setting read deadline", zap.Error(err))
				return
			}
		}

		req, err := pc.ReadRequest()
		if err != nil {
			s.logReadError(log, err)
			return
		}

		resp, ok := s.dispatcher.Dispatch(req)
		if !ok {
			continue
		}

		if s.cfg.WriteTimeout > 0 {
			if err := conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
				log.Warn("Error setting write deadline", zap.Error(err))
				return
			}
		}
		if err := pc.WriteResponse(resp); err != nil {
			log.Warn("Failed to write response", zap.Error(err))
			return
		}
	}
}

func (s *Server) logReadError(log *zap.Logger, err error) {
	switch {
	case errors.Is(err, io.EOF):
		log.Debug("Client disconnected")
	case errors.Is(err, protocol.ErrMalformed):
		log.Warn("Malformed request", zap.Error(err))
	case errors.Is(err, protocol.ErrFrameTooLarge):
		log.Warn("Request too large", zap.Error(err))
	case s.isClosing():
		log.Debug("Connection closed by shutdown")
	default:
		log.Info("Failed to read request", zap.Error(err))
	}
}
