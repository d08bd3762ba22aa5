package server

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/boardroom-ai/boardroom/debate"
	"github.com/boardroom-ai/boardroom/stream"
)

// callbackStore is the slice of the session repository the worker callback
// endpoints are allowed to reach. The worker reports results; it never
// spawns, stops, or enumerates sessions.
type callbackStore interface {
	CreateSession(debate.CreateOptions) (debate.Session, error)
	FindSession(string) (debate.Session, error)
	UpdateSession(string, debate.UpdateOptions, time.Time) (debate.Session, error)
	CompleteSession(string, debate.CompleteOptions, time.Time) (debate.Session, error)
	AppendOutput(debate.AppendOutputOptions) (debate.AgentOutput, error)
	AppendExchange(debate.AppendExchangeOptions) (debate.Exchange, error)
}

// callbackAPI handles the endpoints the external worker calls while a debate
// runs. Persisted writes are fanned out to stream subscribers so viewers see
// contributions as they land.
type callbackAPI struct {
	store       callbackStore
	distributor *stream.Distributor
	logger      *log.Logger
}

// handleCreate registers an externally-driven session record. Used by workers
// run outside the supervisor, such as a debate replayed from a saved report.
func (c *callbackAPI) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload callbackCreateRequest
	if err := decodeJSON(r, &payload); err != nil {
		c.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	session, err := c.store.CreateSession(debate.CreateOptions{
		Topic:         payload.Topic,
		MaxIterations: payload.MaxIterations,
		SessionFolder: payload.SessionFolder,
		StartedAt:     time.Now(),
	})
	if err != nil {
		c.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Session: session})
}

func (c *callbackAPI) handleFetch(w http.ResponseWriter, r *http.Request) {
	session, err := c.store.FindSession(r.PathValue("id"))
	if err != nil {
		c.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: session})
}

// handlePatch applies a partial session update and republishes the refreshed
// record as a session_update event.
func (c *callbackAPI) handlePatch(w http.ResponseWriter, r *http.Request) {
	var payload callbackPatchRequest
	if err := decodeJSON(r, &payload); err != nil {
		c.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	sessionID := r.PathValue("id")
	session, err := c.store.UpdateSession(sessionID, debate.UpdateOptions{
		Status:              payload.Status,
		CurrentIteration:    payload.CurrentIteration,
		CurrentPhase:        payload.CurrentPhase,
		IterationsCompleted: payload.IterationsCompleted,
		ConsensusReached:    payload.ConsensusReached,
		WinningStrategy:     payload.WinningStrategy,
	}, time.Now())
	if err != nil {
		c.writeStoreError(w, r, err)
		return
	}
	c.distributor.Publish(sessionID, stream.SessionUpdate(session))
	writeJSON(w, http.StatusOK, sessionResponse{Session: session})
}

// handleComplete records the debate outcome: voting results, consensus
// analysis, and the optional final report.
func (c *callbackAPI) handleComplete(w http.ResponseWriter, r *http.Request) {
	var payload callbackCompleteRequest
	if err := decodeJSON(r, &payload); err != nil {
		c.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	sessionID := r.PathValue("id")
	session, err := c.store.CompleteSession(sessionID, debate.CompleteOptions{
		VotingResults:           payload.VotingResults,
		ConsensusAnalysis:       payload.ConsensusAnalysis,
		FinalReportContent:      payload.FinalReportContent,
		CollaborativelyApproved: payload.CollaborativelyApproved,
	}, time.Now())
	if err != nil {
		c.writeStoreError(w, r, err)
		return
	}
	c.distributor.Publish(sessionID, stream.SessionUpdate(session))
	writeJSON(w, http.StatusOK, sessionResponse{Session: session})
}

// handleOutput persists one persona contribution and fans it out live.
func (c *callbackAPI) handleOutput(w http.ResponseWriter, r *http.Request) {
	var payload callbackOutputRequest
	if err := decodeJSON(r, &payload); err != nil {
		c.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	output, err := c.store.AppendOutput(debate.AppendOutputOptions{
		SessionID:   payload.SessionID,
		AgentName:   payload.AgentName,
		Phase:       payload.Phase,
		RoundNumber: payload.RoundNumber,
		Content:     payload.Content,
		Metadata:    payload.Metadata,
		Timestamp:   time.Now(),
	})
	if err != nil {
		c.writeStoreError(w, r, err)
		return
	}
	c.distributor.Publish(output.SessionID, stream.AgentOutput(output))
	writeJSON(w, http.StatusCreated, outputResponse{Output: output})
}

// handleExchange persists one question/response pair from the debate rounds.
func (c *callbackAPI) handleExchange(w http.ResponseWriter, r *http.Request) {
	var payload callbackExchangeRequest
	if err := decodeJSON(r, &payload); err != nil {
		c.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	exchange, err := c.store.AppendExchange(debate.AppendExchangeOptions{
		SessionID:   payload.SessionID,
		RoundNumber: payload.RoundNumber,
		Questioner:  payload.Questioner,
		Responder:   payload.Responder,
		Question:    payload.Question,
		Response:    payload.Response,
		Timestamp:   time.Now(),
	})
	if err != nil {
		c.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, exchangeResponse{Exchange: exchange})
}

func (c *callbackAPI) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
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
	c.writeError(w, r, status, err)
}

func (c *callbackAPI) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if c.logger != nil {
		c.logger.Printf("callback %s %s failed (%d): %v", r.Method, r.URL.Path, status, err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
