// Package server exposes the debate lifecycle over HTTP: a frontend API for
// starting, inspecting, and stopping sessions, a callback API the external
// worker writes results through, and a server-sent-events stream of live
// updates.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/boardroom-ai/boardroom/debate"
	internalstrings "github.com/boardroom-ai/boardroom/internal/strings"
	"github.com/boardroom-ai/boardroom/stream"
	"github.com/boardroom-ai/boardroom/worker"
)

const shutdownTimeout = 5 * time.Second

// ServerOptions configures a server.
type ServerOptions struct {
	Config Config
	// Store overrides the one opened from Config.Server.DatabasePath.
	Store *debate.Store
	// Launcher overrides the exec-backed worker command from Config.Worker.
	Launcher worker.Launcher
	// Addr is the listen address the server will serve on; it feeds the
	// callback URL handed to workers.
	Addr   string
	Logger *log.Logger
}

// Server wires the session store, worker supervisor, and event distributor
// behind the HTTP surface.
type Server struct {
	config      Config
	store       *debate.Store
	ownsStore   bool
	distributor *stream.Distributor
	supervisor  *worker.Supervisor
	logger      *log.Logger
}

// NewServer builds a server, opening the session store when none is injected
// and reconciling orphaned sessions from a prior run.
func NewServer(opts ServerOptions) (*Server, error) {
	cfg := opts.Config.withDefaults()

	store := opts.Store
	ownsStore := false
	if store == nil {
		opened, err := debate.Open(cfg.Server.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("open session store: %w", err)
		}
		store = opened
		ownsStore = true
	}

	launcher := opts.Launcher
	if launcher == nil {
		if internalstrings.IsBlank(cfg.Worker.Command) {
			if ownsStore {
				_ = store.Close()
			}
			return nil, fmt.Errorf("worker command is not configured")
		}
		launcher = worker.Command{
			Path: cfg.Worker.Command,
			Args: cfg.Worker.Args,
			Dir:  cfg.Worker.Dir,
		}.Launch
	}

	distributor := stream.NewDistributor(opts.Logger)
	supervisor, err := worker.NewSupervisor(worker.SupervisorOptions{
		Store:       store,
		Distributor: distributor,
		Launcher:    launcher,
		CallbackURL: resolveCallbackURL(cfg, opts.Addr),
		Logger:      opts.Logger,
	})
	if err != nil {
		if ownsStore {
			_ = store.Close()
		}
		return nil, err
	}

	server := &Server{
		config:      cfg,
		store:       store,
		ownsStore:   ownsStore,
		distributor: distributor,
		supervisor:  supervisor,
		logger:      opts.Logger,
	}
	if _, err := supervisor.Reconcile(time.Now()); err != nil {
		server.logf("reconcile orphaned sessions: %v", err)
	}
	return server, nil
}

// Close releases the session store if the server opened it.
func (s *Server) Close() error {
	if s.ownsStore {
		return s.store.Close()
	}
	return nil
}

// Handler returns the HTTP handler for the debate API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /ping", s.handlePing)
	mux.HandleFunc("POST /api/debates", s.handleStart)
	mux.HandleFunc("GET /api/debates", s.handleList)
	mux.HandleFunc("GET /api/debates/stats", s.handleStats)
	mux.HandleFunc("GET /api/debates/{id}/status", s.handleStatus)
	mux.HandleFunc("POST /api/debates/{id}/stop", s.handleStop)
	mux.HandleFunc("GET /api/debates/{id}/stream", s.handleStream)
	mux.HandleFunc("GET /api/debates/{id}/report", s.handleReport)

	// Worker callback surface. Deliberately routed through the narrow
	// callbackAPI so the worker's reach into the store stays explicit.
	callbacks := &callbackAPI{
		store:       s.store,
		distributor: s.distributor,
		logger:      s.logger,
	}
	mux.HandleFunc("POST /api/debates/create", callbacks.handleCreate)
	mux.HandleFunc("GET /api/debates/{id}", callbacks.handleFetch)
	mux.HandleFunc("PATCH /api/debates/{id}", callbacks.handlePatch)
	mux.HandleFunc("PUT /api/debates/{id}/complete", callbacks.handleComplete)
	mux.HandleFunc("POST /api/agent-outputs", callbacks.handleOutput)
	mux.HandleFunc("POST /api/debate-exchanges", callbacks.handleExchange)

	return s.recoverHandler(mux)
}

// Serve runs the server on the given address until an interrupt arrives.
func (s *Server) Serve(addr string) error {
	server := &http.Server{
		Addr:     addr,
		Handler:  s.Handler(),
		ErrorLog: s.logger,
	}

	listenErrs := make(chan error, 1)
	go func() {
		listenErrs <- server.ListenAndServe()
	}()

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	select {
	case err := <-listenErrs:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logf("server stopped: %v", err)
			return err
		}
		return nil
	case <-interrupts:
		s.logf("interrupt received, shutting down")
		s.supervisor.TerminateAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		shutdownErr := server.Shutdown(shutdownCtx)
		cancel()
		listenErr := <-listenErrs
		if errors.Is(listenErr, http.ErrServerClosed) {
			listenErr = nil
		}
		if errors.Is(shutdownErr, http.ErrServerClosed) {
			shutdownErr = nil
		}
		return errors.Join(shutdownErr, listenErr)
	}
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, pingResponse{
		Status:    "ok",
		Message:   "AI Board of Directors API is running",
		Timestamp: time.Now(),
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var payload startRequest
	if err := decodeJSON(r, &payload); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if internalstrings.IsBlank(payload.Topic) {
		s.writeError(w, r, http.StatusBadRequest, debate.ErrTopicRequired)
		return
	}

	session, err := s.store.CreateSession(debate.CreateOptions{
		Topic:         payload.Topic,
		MaxIterations: payload.MaxIterations,
		StartedAt:     time.Now(),
	})
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	// Spawn only reports conflicts here. A worker that cannot launch is
	// recorded as a failed session plus an error event on the stream; the
	// start request itself still succeeds.
	if err := s.supervisor.Spawn(session.ID, session.Topic, session.MaxIterations); err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, startResponse{
		Message: "Debate session started",
		Session: session,
		Status:  string(debate.StatusRunning),
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	filter, err := listFilterFromQuery(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	page, err := s.store.ListSessions(filter)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{
		Debates: page.Sessions,
		Pagination: pagination{
			Page:  page.Page,
			Limit: page.Limit,
			Total: page.Total,
			Pages: page.Pages,
		},
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats()
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	session, err := s.store.FindSession(sessionID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	outputs, err := s.store.Outputs(sessionID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	exchanges, err := s.store.Exchanges(sessionID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Session:   session,
		Outputs:   outputs,
		Exchanges: exchanges,
		Status:    string(session.Status),
	})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if _, err := s.store.FindSession(sessionID); err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	// Record the terminal state before signaling the worker. FinishSession
	// is first-writer-wins, so the exit watcher's finalize becomes a no-op
	// even when the worker exits the instant it is signaled.
	session, err := s.store.FinishSession(sessionID, debate.StatusFailed, time.Now())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.supervisor.Terminate(sessionID)
	s.distributor.Publish(sessionID, stream.SessionUpdate(session))
	s.distributor.CloseSession(sessionID)

	writeJSON(w, http.StatusOK, stopResponse{
		Message: "Debate session stopped",
		Session: session,
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	session, err := s.store.FindSession(sessionID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	outputs, err := s.store.Outputs(sessionID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	exchanges, err := s.store.Exchanges(sessionID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	report := debate.RenderReport(session, outputs, exchanges)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", reportFilename(session.ID)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(report))
}

func reportFilename(sessionID string) string {
	return fmt.Sprintf("debate_report_%s.txt", sessionID)
}

func listFilterFromQuery(r *http.Request) (debate.ListFilter, error) {
	var filter debate.ListFilter
	query := r.URL.Query()
	if raw := strings.TrimSpace(query.Get("page")); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return filter, fmt.Errorf("invalid page %q", raw)
		}
		filter.Page = page
	}
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return filter, fmt.Errorf("invalid limit %q", raw)
		}
		filter.Limit = limit
	}
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status := debate.Status(strings.ToLower(raw))
		if !status.IsValid() {
			return filter, fmt.Errorf("invalid status %q", raw)
		}
		filter.Status = &status
	}
	return filter, nil
}

// writeStoreError maps repository and supervisor sentinels to HTTP statuses.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, debate.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, debate.ErrSessionConflict):
		status = http.StatusConflict
	case errors.Is(err, debate.ErrTopicRequired),
		errors.Is(err, debate.ErrInvalidStatus),
		errors.Is(err, debate.ErrInvalidPhase),
		errors.Is(err, debate.ErrFieldRequired):
		status = http.StatusBadRequest
	}
	s.writeError(w, r, status, err)
}

func (s *Server) recoverHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writer := &responseTracker{ResponseWriter: w}
		defer func() {
			if recovered := recover(); recovered != nil {
				s.logf("panic handling request %s %s: %v\n%s", r.Method, r.URL.Path, recovered, debug.Stack())
				if writer.wroteHeader {
					return
				}
				writeJSON(writer, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			}
		}()
		next.ServeHTTP(writer, r)
	})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.logRequestError(r, status, err)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) logRequestError(r *http.Request, status int, err error) {
	if s == nil || s.logger == nil {
		return
	}
	s.logger.Printf("request %s %s failed (%d): %v", r.Method, r.URL.Path, status, err)
}

func (s *Server) logf(format string, args ...any) {
	if s == nil || s.logger == nil {
		return
	}
	s.logger.Printf(format, args...)
}

type responseTracker struct {
	http.ResponseWriter
	wroteHeader bool
}

func (w *responseTracker) WriteHeader(status int) {
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseTracker) Write(data []byte) (int, error) {
	if !w.wroteHeader {
		w.wroteHeader = true
	}
	return w.ResponseWriter.Write(data)
}

func (w *responseTracker) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
