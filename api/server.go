package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const shutdownTimeout = 5 * time.Second

// Server provides the read-only HTTP query endpoints
type Server struct {
	orders      OrderReader
	checkpoints CheckpointReader
	pending     PendingReader
	chains      map[uint64]struct{}
	logger      zerolog.Logger
	server      *http.Server

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a new Server instance serving the given chains
func NewServer(
	orders OrderReader,
	checkpoints CheckpointReader,
	pending PendingReader,
	chainIDs []uint64,
	logger zerolog.Logger,
	port int,
) *Server {
	s := &Server{
		orders:      orders,
		checkpoints: checkpoints,
		pending:     pending,
		chains:      make(map[uint64]struct{}, len(chainIDs)),
		logger:      logger.With().Str("component", "query_server").Logger(),
	}
	for _, id := range chainIDs {
		s.chains[id] = struct{}{}
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.setupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start binds the port and serves in the background.
func (s *Server) Start() error {
	if s.server == nil {
		return fmt.Errorf("query server is nil")
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind to address %s: %w", s.server.Addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("query server started")

	go func() {
		err := s.server.Serve(ln)
		switch {
		case errors.Is(err, http.ErrServerClosed):
			s.logger.Info().Msg("query server closed gracefully")
		case err != nil:
			s.logger.Error().Err(err).Msg("query server error")
		}
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}
