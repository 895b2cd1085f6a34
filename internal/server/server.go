// Package server exposes the run controller over HTTP for editor webviews.
//
// Runs are started and cancelled through a small JSON API and every state
// change is pushed to websocket clients as a Message.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"ptrun/internal/config"
	"ptrun/internal/domain"
	"ptrun/internal/execution"
	"ptrun/internal/storage"
)

const shutdownTimeout = 5 * time.Second

type errorResponse struct {
	Error string `json:"error"`
}

// Server is the HTTP bridge
type Server struct {
	config   *config.Config
	executor execution.Executor
	storage  storage.Storage
	hub      *Hub
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewServer(cfg *config.Config, executor execution.Executor, st storage.Storage, hub *Hub, logger *slog.Logger) *Server {
	s := &Server{
		config:   cfg,
		executor: executor,
		storage:  st,
		hub:      hub,
		logger:   logger.With("component", "server"),
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin:      s.checkOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed handler wrapped in CORS
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/runs", s.handleStartRun).Methods(http.MethodPost)
	api.HandleFunc("/runs", s.handleListRuns).Methods(http.MethodGet)
	api.HandleFunc("/runs/current", s.handleCurrentRun).Methods(http.MethodGet)
	api.HandleFunc("/runs/current", s.handleCancelRun).Methods(http.MethodDelete)
	api.HandleFunc("/runs/{id}", s.handleGetRun).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWebSocket)
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("OK")) //nolint:errcheck
	})

	c := cors.New(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(r)
}

// ListenAndServe serves until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.ServeAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.config.ServeAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", s.config.ServeAddr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var req domain.TestRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if req.IsEmpty() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "no tests selected"})
		return
	}

	if err := s.executor.RunTest(r.Context(), req); err != nil {
		s.logger.Error("failed to start run", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, s.executor.Snapshot())
}

func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	if err := s.executor.CancelExistingTestRun(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCurrentRun(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.executor.Snapshot())
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit: " + v})
			return
		}
		limit = n
	}

	runs, err := s.storage.List(limit)
	if err != nil {
		s.logger.Error("failed to list runs", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if runs == nil {
		runs = []storage.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleGetRun looks a run up by its id or a unique id prefix
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := strings.ToLower(mux.Vars(r)["id"])

	runs, err := s.storage.List(0)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	var matches []storage.RunRecord
	for _, run := range runs {
		if strings.HasPrefix(run.ID.String(), id) {
			matches = append(matches, run)
		}
	}
	switch len(matches) {
	case 0:
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "run not found: " + id})
	case 1:
		writeJSON(w, http.StatusOK, matches[0])
	default:
		writeJSON(w, http.StatusConflict, errorResponse{Error: "ambiguous run id: " + id})
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	s.hub.serve(conn, func() Message {
		return Message{Command: CommandTestResults, Content: s.executor.Snapshot()}
	})
}

// checkOrigin applies the CORS origin list to websocket handshakes.
// Requests without an Origin header are not from a browser.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.config.AllowedOrigins {
		if matchOrigin(allowed, origin) {
			return true
		}
	}
	return false
}

// matchOrigin supports a single "*" wildcard, like the CORS middleware
func matchOrigin(pattern, origin string) bool {
	i := strings.IndexByte(pattern, '*')
	if i < 0 {
		return strings.EqualFold(pattern, origin)
	}
	prefix, suffix := pattern[:i], pattern[i+1:]
	return len(origin) >= len(prefix)+len(suffix) &&
		strings.HasPrefix(origin, prefix) &&
		strings.HasSuffix(origin, suffix)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
