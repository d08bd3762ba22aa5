package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	internalstrings "github.com/boardroom-ai/boardroom/internal/strings"
	"github.com/boardroom-ai/boardroom/stream"
)

// handleStream serves the server-sent-events feed for one session. The
// subscription replays the session's current state and all persisted outputs
// before live events, and a poll ticker backstops anything the live channel
// missed. The stream ends after a terminal session_update or when the client
// disconnects.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if internalstrings.IsBlank(sessionID) {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("session id is required"))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)

	writeEvent := func(event stream.Event) {
		data, err := json.Marshal(event)
		if err != nil {
			s.logf("marshal stream event for session %s: %v", sessionID, err)
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	session, err := s.store.FindSession(sessionID)
	if err != nil {
		// The SSE contract is already in effect, so the failure travels as
		// an error event rather than an HTTP status.
		writeEvent(stream.Connected(time.Now()))
		writeEvent(stream.Error("Session not found", time.Now()))
		return
	}

	seen := make(map[int64]struct{})
	replay := []stream.Event{stream.SessionUpdate(session)}
	outputs, err := s.store.Outputs(sessionID)
	if err != nil {
		s.logf("load outputs for session %s: %v", sessionID, err)
	}
	for _, output := range outputs {
		seen[output.ID] = struct{}{}
		replay = append(replay, stream.AgentOutput(output))
	}

	sub := s.distributor.Subscribe(sessionID, replay)
	defer s.distributor.Unsubscribe(sub)

	if session.Status.Terminal() {
		// Drain the replayed history, then stop: the replayed session_update
		// is itself the terminal event.
		for {
			select {
			case event, ok := <-sub.Events():
				if !ok {
					return
				}
				writeEvent(event)
				if event.Terminal() {
					return
				}
			default:
				return
			}
		}
	}

	pollInterval := time.Duration(s.config.Stream.PollInterval)
	recentWindow := time.Duration(s.config.Stream.RecentWindow)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if event.Type == stream.TypeAgentOutput && event.OutputID != 0 {
				if _, dup := seen[event.OutputID]; dup {
					continue
				}
				seen[event.OutputID] = struct{}{}
			}
			writeEvent(event)
			if event.Terminal() {
				return
			}

		case <-ticker.C:
			// Backstop poll. The window overlaps the previous tick so a write
			// landing between ticks is never missed; the seen set drops the
			// resulting duplicates. Transient store errors skip the tick.
			since := time.Now().Add(-(pollInterval + recentWindow))
			recent, err := s.store.OutputsSince(sessionID, since)
			if err != nil {
				s.logf("poll outputs for session %s: %v", sessionID, err)
				continue
			}
			for _, output := range recent {
				if _, dup := seen[output.ID]; dup {
					continue
				}
				seen[output.ID] = struct{}{}
				writeEvent(stream.AgentOutput(output))
			}
			current, err := s.store.FindSession(sessionID)
			if err != nil {
				s.logf("poll session %s: %v", sessionID, err)
				continue
			}
			if current.Status.Terminal() {
				writeEvent(stream.SessionUpdate(current))
				return
			}
		}
	}
}
