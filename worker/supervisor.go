// Package worker supervises the external debate worker processes.
package worker

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/boardroom-ai/boardroom/debate"
	"github.com/boardroom-ai/boardroom/stream"
)

// SupervisorOptions configures a supervisor.
type SupervisorOptions struct {
	Store       *debate.Store
	Distributor *stream.Distributor
	// Launcher starts worker processes; defaults must be provided by the
	// caller (the server wires the exec-backed Command launcher).
	Launcher Launcher
	// Classifier parses worker console lines; defaults to stream.ClassifyLine.
	Classifier stream.LineClassifier
	// CallbackURL is this service's base URL, handed to every worker.
	CallbackURL string
	Logger      *log.Logger
}

// Supervisor owns the one-to-one mapping from session ID to live worker
// process. At most one worker is registered per session at any time.
type Supervisor struct {
	store       *debate.Store
	distributor *stream.Distributor
	launcher    Launcher
	classifier  stream.LineClassifier
	callbackURL string
	logger      *log.Logger

	mu    sync.Mutex
	procs map[string]Process
}

// NewSupervisor creates a supervisor with an empty process registry.
func NewSupervisor(opts SupervisorOptions) (*Supervisor, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if opts.Distributor == nil {
		return nil, fmt.Errorf("distributor is required")
	}
	if opts.Launcher == nil {
		return nil, fmt.Errorf("launcher is required")
	}
	classifier := opts.Classifier
	if classifier == nil {
		classifier = stream.ClassifyLine
	}
	return &Supervisor{
		store:       opts.Store,
		distributor: opts.Distributor,
		launcher:    opts.Launcher,
		classifier:  classifier,
		callbackURL: opts.CallbackURL,
		logger:      opts.Logger,
		procs:       make(map[string]Process),
	}, nil
}

// Spawn launches the worker for a session and registers its handle. It
// returns a ConflictError when a worker is already registered for the session
// or the persisted session is terminal. A launch failure is not returned: it
// is converted into a terminal failed status plus an error event, exactly
// like a worker that exited nonzero immediately.
func (s *Supervisor) Spawn(sessionID, topic string, maxIterations int) error {
	session, err := s.store.FindSession(sessionID)
	if err != nil {
		return err
	}
	if session.Status.Terminal() {
		return &debate.ConflictError{SessionID: sessionID, Status: session.Status}
	}

	// The registry check and the registration stay under one lock so two
	// concurrent starts for the same session can never both spawn.
	s.mu.Lock()
	if _, registered := s.procs[sessionID]; registered {
		s.mu.Unlock()
		return &debate.ConflictError{SessionID: sessionID, Status: session.Status}
	}

	stdout := newLineWriter(func(line string) { s.handleLine(sessionID, line) })
	stderr := newLineWriter(func(line string) { s.handleLine(sessionID, line) })
	proc, launchErr := s.launcher(Spec{
		SessionID:     sessionID,
		Topic:         topic,
		MaxIterations: maxIterations,
		CallbackURL:   s.callbackURL,
	}, stdout, stderr)
	if launchErr != nil {
		s.mu.Unlock()
		s.logf("worker for session %s failed to start: %v", sessionID, launchErr)
		s.finalize(sessionID, debate.StatusFailed, "worker failed to start")
		return nil
	}
	s.procs[sessionID] = proc
	s.mu.Unlock()

	go func() {
		code, waitErr := proc.Wait()
		stdout.Flush()
		stderr.Flush()
		status := debate.StatusCompleted
		message := ""
		if waitErr != nil {
			s.logf("worker for session %s: %v", sessionID, waitErr)
			status = debate.StatusFailed
			message = "worker failed"
		} else if code != 0 {
			s.logf("worker for session %s exited with code %d", sessionID, code)
			status = debate.StatusFailed
		}
		s.finalize(sessionID, status, message)
	}()
	return nil
}

// Terminate signals the session's worker and deregisters it immediately,
// without waiting for the exit. A session with no registered worker is a
// successful no-op; it may simply have finished already.
func (s *Supervisor) Terminate(sessionID string) {
	s.mu.Lock()
	proc, registered := s.procs[sessionID]
	delete(s.procs, sessionID)
	s.mu.Unlock()
	if !registered {
		return
	}
	if err := proc.Signal(os.Interrupt); err != nil {
		s.logf("signal worker for session %s: %v", sessionID, err)
	}
}

// TerminateAll signals every registered worker and empties the registry.
// Called on service shutdown; startup reconciliation fails whatever the
// signals do not stop in time.
func (s *Supervisor) TerminateAll() {
	s.mu.Lock()
	procs := s.procs
	s.procs = make(map[string]Process)
	s.mu.Unlock()
	for sessionID, proc := range procs {
		if err := proc.Signal(os.Interrupt); err != nil {
			s.logf("signal worker for session %s: %v", sessionID, err)
		}
	}
}

// Running reports whether a worker is registered for the session.
func (s *Supervisor) Running(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, registered := s.procs[sessionID]
	return registered
}

// Reconcile fails every session persisted as in-progress. Called once at
// startup before any worker is spawned: such sessions are orphans from a
// prior crash of this service.
func (s *Supervisor) Reconcile(now time.Time) (int, error) {
	marked, err := s.store.MarkOrphans(now)
	if err != nil {
		return 0, err
	}
	if marked > 0 {
		s.logf("reconciled %d orphaned session(s) as failed", marked)
	}
	return marked, nil
}

// finalize deregisters the worker, records the terminal status, and emits the
// closing events. The status write tolerates sessions that a stop request
// already made terminal.
func (s *Supervisor) finalize(sessionID string, status debate.Status, message string) {
	s.mu.Lock()
	delete(s.procs, sessionID)
	s.mu.Unlock()

	session, err := s.store.FinishSession(sessionID, status, time.Now())
	if err != nil {
		s.logf("finish session %s: %v", sessionID, err)
		s.distributor.Publish(sessionID, stream.Error("failed to record session outcome", time.Now()))
		s.distributor.CloseSession(sessionID)
		return
	}
	if message != "" {
		s.distributor.Publish(sessionID, stream.Error(message, time.Now()))
	}
	s.distributor.Publish(sessionID, stream.SessionUpdate(session))
	s.distributor.CloseSession(sessionID)
}

// handleLine parses one worker console line and publishes any recognized
// event. Phase transitions are also written through to the session record so
// late subscribers replay the current phase.
func (s *Supervisor) handleLine(sessionID, line string) {
	s.logf("[worker %s] %s", sessionID, line)
	event, ok := s.classifier(line)
	if !ok {
		return
	}
	if event.Type == stream.TypeSessionUpdate && event.Session == nil && event.Phase != "" {
		phase := event.Phase
		session, err := s.store.UpdateSession(sessionID, debate.UpdateOptions{CurrentPhase: &phase}, time.Now())
		if err != nil {
			s.logf("update phase for session %s: %v", sessionID, err)
		} else {
			event = stream.SessionUpdate(session)
		}
	}
	s.distributor.Publish(sessionID, event)
}

func (s *Supervisor) logf(format string, args ...any) {
	if s == nil || s.logger == nil {
		return
	}
	s.logger.Printf(format, args...)
}
