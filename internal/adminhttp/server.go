package adminhttp

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/opendocstore/docstore/internal/log"
)

// Server wraps the diagnostic HTTP surface's lifecycle. Grounded on the
// teacher's pkg/controlplane/api.Server Start/Stop shape, trimmed of the
// JWT/auth bring-up this surface doesn't need.
type Server struct {
	component string
	httpSrv   *http.Server
	stopOnce  sync.Once
}

// NewServer builds a Server bound to addr. addr == "" means the caller
// should not start it — SPEC_FULL.md Module Additions A/B are off by
// default, enabled only via --admin-addr.
func NewServer(component, addr string, alive AliveFunc, reg *prometheus.Registry) *Server {
	return &Server{
		component: component,
		httpSrv: &http.Server{
			Addr:         addr,
			Handler:      NewRouter(component, alive, reg),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start listens and serves until ctx is cancelled, then gracefully shuts
// down. Returns nil on a clean shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("admin http server listening", "component", s.component, "addr", s.httpSrv.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("admin http server: %w", err)
	}
}

// Stop initiates graceful shutdown. Safe to call multiple times.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		if shutErr := s.httpSrv.Shutdown(ctx); shutErr != nil {
			err = fmt.Errorf("admin http server shutdown: %w", shutErr)
			return
		}
		log.Info("admin http server stopped", "component", s.component)
	})
	return err
}
