// Package intake contains the submission HTTP API. The endpoint is an
// admission-control and enqueue step only; no planning or execution happens
// here. It is unauthenticated and must stay bound to loopback.
package intake

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Server is the HTTP server for the intake API.
type Server struct {
	httpServer *http.Server
}

// NewServer creates an intake server. metricsHandler, when non-nil, is
// mounted at /metrics.
func NewServer(addr string, h *Handlers, log *slog.Logger, metricsHandler http.Handler) *Server {
	mux := http.NewServeMux()

	// Submissions are rate limited; a runaway client script should not be
	// able to flood the inbox faster than workers can ever drain it.
	limited := rateLimitMiddleware(rate.NewLimiter(rate.Limit(20), 50))

	mux.Handle("POST /jobs", limited(http.HandlerFunc(h.SubmitJob)))
	mux.HandleFunc("GET /jobs/{id}", h.GetJob)
	mux.HandleFunc("GET /jobs/{id}/artifacts", h.ListArtifacts)
	mux.HandleFunc("GET /jobs/{id}/artifacts/{name}", h.GetArtifact)
	mux.HandleFunc("GET /runs", h.ListRuns)

	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)

	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      requestIDMiddleware(log)(mux),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.Shutdown(shutdownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
