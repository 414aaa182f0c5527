package daemon

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"git.home.luguber.info/inful/buildveto/internal/foundation/errors"
	"git.home.luguber.info/inful/buildveto/internal/logfields"
	"git.home.luguber.info/inful/buildveto/internal/metrics"
)

// HTTPServer serves health, metrics and evaluation status.
type HTTPServer struct {
	server       *http.Server
	daemon       *Daemon
	errorAdapter *errors.HTTPErrorAdapter
	logger       *slog.Logger
}

// NewHTTPServer creates the server for d. It does not listen until Start.
func NewHTTPServer(d *Daemon) *HTTPServer {
	return &HTTPServer{
		daemon:       d,
		errorAdapter: errors.NewHTTPErrorAdapter(d.logger),
		logger:       d.logger,
	}
}

// Handler returns the routing table.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", metrics.HTTPHandler(s.daemon.promRegistry))
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /status/{project}", s.handleProjectHistory)
	mux.HandleFunc("POST /evaluate/{project}", s.handleEvaluate)
	return withRequestLogging(s.logger, mux)
}

// Start binds addr and serves in the background. Binding happens before
// returning so an occupied port fails startup.
func (s *HTTPServer) Start(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.WrapError(err, errors.CategoryDaemon, "http startup failed").
			WithContext("addr", addr).Build()
	}
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		if err := s.server.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server stopped", logfields.Error(err))
		}
	}()
	s.logger.Info("HTTP server started", slog.String("addr", ln.Addr().String()))
	return nil
}

// Stop shuts the server down gracefully.
func (s *HTTPServer) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.daemon.PerformHealthChecks(r.Context())
	status := http.StatusOK
	if health.Status == HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

// StatusResponse is the /status payload.
type StatusResponse struct {
	Status    Status    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Projects  any       `json:"projects"`
}

func (s *HTTPServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:    s.daemon.GetStatus(),
		StartedAt: s.daemon.GetStartTime(),
		Projects:  s.daemon.projection.Snapshot(),
	})
}

func (s *HTTPServer) handleProjectHistory(w http.ResponseWriter, r *http.Request) {
	project := r.PathValue("project")
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.errorAdapter.WriteErrorResponse(w, r, errors.ValidationError("limit must be a positive integer").
				WithContext("limit", raw).Build())
			return
		}
		limit = n
	}
	if _, ok := s.daemon.GetConfig().Project(project); !ok {
		s.errorAdapter.WriteErrorResponse(w, r, errors.NewError(errors.CategoryNotFound, "unknown project").
			WithContext("project", project).Build())
		return
	}
	history, err := s.daemon.store.Recent(r.Context(), project, limit)
	if err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *HTTPServer) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	ev, err := s.daemon.Evaluate(r.Context(), r.PathValue("project"))
	if err != nil && ev.EvaluationID == "" {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	// A failed evaluation was still recorded and is returned as such.
	writeJSON(w, http.StatusOK, ev)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
