// README: API gateway; wires routes to the routing, itinerary and chat services and runs the listener.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"navsmart/internal/modules/chat"
	"navsmart/internal/modules/itinerary"
	"navsmart/internal/service"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

type ServerDeps struct {
	Planner     *service.RoutePlanner
	Itinerary   *itinerary.Generator
	Chat        *chat.Relay
	Gatherer    prometheus.Gatherer
	CORSOrigins []string
	Logger      *slog.Logger
}

type Server struct {
	deps ServerDeps
}

func NewServer(deps ServerDeps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Server{deps: deps}
}

func (s *Server) Routes() http.Handler {
	return NewRouter(s.deps)
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests and ends open
// chat sessions.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	if s.deps.Chat != nil {
		srv.RegisterOnShutdown(s.deps.Chat.Close)
	}

	errCh := make(chan error, 1)
	go func() {
		s.deps.Logger.Info("HTTP server started", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.deps.Logger.Info("HTTP server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
