package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/storm-windfield/internal/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxScenarioBytes bounds the body accepted by POST /simulate.
const maxScenarioBytes = 16 << 20

// Simulator runs one scenario document to serialized station records.
type Simulator interface {
	Simulate(ctx context.Context, raw domain.RawScenario) ([]domain.OutputMessage, error)
}

// Server exposes health, readiness, and metrics HTTP endpoints, plus a
// synchronous simulation endpoint when a Simulator is supplied.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and, if
// sim is non-nil, POST /simulate routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, sim Simulator, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 5 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	if sim != nil {
		mux.HandleFunc("POST /simulate", s.handleSimulate(sim))
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// handleSimulate answers with the JSON array of station records.
func (s *Server) handleSimulate(sim Simulator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxScenarioBytes))
		if err != nil {
			status := http.StatusBadRequest
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
			return
		}

		msgs, err := sim.Simulate(r.Context(), domain.RawScenario{
			Value:     body,
			Timestamp: time.Now(),
		})
		if err != nil {
			status := http.StatusUnprocessableEntity
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				status = http.StatusServiceUnavailable
			}
			s.logger.Warn("simulate request failed", "error", err)
			sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
			return
		}

		records := make([]json.RawMessage, len(msgs))
		for i := range msgs {
			records[i] = msgs[i].Value
		}
		sharedobs.WriteJSON(w, http.StatusOK, records)
	}
}
