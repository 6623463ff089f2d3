package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Server is the gateway's HTTP listener, grounded on pkg/backend/server.go's
// Server: a thin wrapper tying config, router, and *http.Server lifecycle
// together.
type Server struct {
	deps       *Dependencies
	httpServer *http.Server
}

// NewServer builds a Server from Dependencies, wiring NewRouter as its
// handler.
func NewServer(d *Dependencies) *Server {
	return &Server{deps: d}
}

// Start builds the listener and blocks serving requests until it is
// shut down or fails (pkg/backend/server.go's Start).
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.deps.Config.Server.Host, s.deps.Config.Server.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      NewRouter(s.deps),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: s.deps.Config.NonStreamTimeout + 30*time.Second,
	}

	s.deps.Logger.Info("starting gateway", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server (pkg/backend/server.go's
// Shutdown, without the extension registry the teacher also tears down —
// this gateway has none).
func (s *Server) Shutdown(ctx context.Context) error {
	s.deps.Logger.Info("shutting down gateway")
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// ListenAndServeWithGracefulShutdown starts the server and blocks until
// either it fails or shutdownSignal fires, then drains in-flight
// requests within a 30s timeout (pkg/backend/server.go's equivalent).
func (s *Server) ListenAndServeWithGracefulShutdown(shutdownSignal <-chan struct{}) error {
	errChan := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-shutdownSignal:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return s.Shutdown(ctx)
	}
}
