package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/boardroom-ai/boardroom/debate"
)

type pingResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type startRequest struct {
	Topic         string `json:"topic"`
	MaxIterations int    `json:"maxIterations,omitempty"`
}

type startResponse struct {
	Message string         `json:"message"`
	Session debate.Session `json:"debate"`
	Status  string         `json:"status"`
}

type listResponse struct {
	Debates    []debate.Session `json:"debates"`
	Pagination pagination       `json:"pagination"`
}

type pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type statusResponse struct {
	Session   debate.Session       `json:"debate"`
	Outputs   []debate.AgentOutput `json:"agentOutputs"`
	Exchanges []debate.Exchange    `json:"debateExchanges"`
	Status    string               `json:"status"`
}

type stopResponse struct {
	Message string         `json:"message"`
	Session debate.Session `json:"debate"`
}

type sessionResponse struct {
	Session debate.Session `json:"debate"`
}

type outputResponse struct {
	Output debate.AgentOutput `json:"agentOutput"`
}

type exchangeResponse struct {
	Exchange debate.Exchange `json:"debateExchange"`
}

type callbackCreateRequest struct {
	Topic         string `json:"topic"`
	MaxIterations int    `json:"maxIterations,omitempty"`
	SessionFolder string `json:"sessionFolder,omitempty"`
}

type callbackPatchRequest struct {
	Status              *debate.Status `json:"status,omitempty"`
	CurrentIteration    *int           `json:"currentIteration,omitempty"`
	CurrentPhase        *debate.Phase  `json:"currentPhase,omitempty"`
	IterationsCompleted *int           `json:"iterationsCompleted,omitempty"`
	ConsensusReached    *bool          `json:"consensusReached,omitempty"`
	WinningStrategy     *string        `json:"winningStrategy,omitempty"`
}

type callbackCompleteRequest struct {
	VotingResults           []debate.VotingResult     `json:"votingResults,omitempty"`
	ConsensusAnalysis       *debate.ConsensusAnalysis `json:"consensusAnalysis,omitempty"`
	FinalReportContent      string                    `json:"finalReportContent,omitempty"`
	CollaborativelyApproved bool                      `json:"collaborativelyApproved,omitempty"`
}

type callbackOutputRequest struct {
	SessionID   string         `json:"debateId"`
	AgentName   string         `json:"agentName"`
	Phase       debate.Phase   `json:"phase"`
	RoundNumber int            `json:"roundNumber,omitempty"`
	Content     string         `json:"content"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type callbackExchangeRequest struct {
	SessionID   string `json:"debateId"`
	RoundNumber int    `json:"roundNumber"`
	Questioner  string `json:"questioner"`
	Responder   string `json:"responder"`
	Question    string `json:"question"`
	Response    string `json:"response"`
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	if decoder.More() {
		return fmt.Errorf("unexpected extra JSON data")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
