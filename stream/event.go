// Package stream distributes live debate update events to subscribers.
package stream

import (
	"time"

	"github.com/boardroom-ai/boardroom/debate"
)

// Type identifies the kind of update event.
type Type string

const (
	// TypeConnected confirms a new subscription.
	TypeConnected Type = "connected"
	// TypeSessionUpdate carries refreshed session state.
	TypeSessionUpdate Type = "session_update"
	// TypeAgentStatus reports a persona's activity, parsed from worker logs.
	TypeAgentStatus Type = "agent_status"
	// TypeAgentOutput carries one persisted persona contribution.
	TypeAgentOutput Type = "agent_output"
	// TypeError reports a stream-level failure to the viewer.
	TypeError Type = "error"
)

// StatusResearching is the agent_status value for a persona doing research.
const StatusResearching = "researching"

// Event is one live update delivered to session subscribers.
type Event struct {
	Type Type `json:"type"`
	// OutputID is the persisted row ID for agent_output events, zero
	// otherwise. Stream consumers use it to drop duplicates when the same
	// output arrives over both the live channel and the poll backstop.
	OutputID  int64           `json:"id,omitempty"`
	Agent     string          `json:"agent,omitempty"`
	Phase     debate.Phase    `json:"phase,omitempty"`
	Status    string          `json:"status,omitempty"`
	Content   string          `json:"content,omitempty"`
	Message   string          `json:"message,omitempty"`
	Session   *debate.Session `json:"session,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitzero"`
}

// Connected builds the subscription confirmation event.
func Connected(now time.Time) Event {
	return Event{Type: TypeConnected, Timestamp: now}
}

// SessionUpdate builds an event carrying the session's current state.
func SessionUpdate(session debate.Session) Event {
	snapshot := session
	return Event{
		Type:      TypeSessionUpdate,
		Status:    string(session.Status),
		Phase:     session.CurrentPhase,
		Session:   &snapshot,
		Timestamp: session.UpdatedAt,
	}
}

// AgentStatus builds a persona activity event.
func AgentStatus(agent, status string, now time.Time) Event {
	return Event{Type: TypeAgentStatus, Agent: agent, Status: status, Timestamp: now}
}

// AgentOutput builds an event for one persisted contribution.
func AgentOutput(output debate.AgentOutput) Event {
	return Event{
		Type:      TypeAgentOutput,
		OutputID:  output.ID,
		Agent:     output.AgentName,
		Phase:     output.Phase,
		Content:   output.Content,
		Timestamp: output.Timestamp,
	}
}

// Error builds a stream failure event.
func Error(message string, now time.Time) Event {
	return Event{Type: TypeError, Message: message, Timestamp: now}
}

// Terminal reports whether the event ends a subscription: a session_update
// whose session has reached a terminal status.
func (e Event) Terminal() bool {
	return e.Type == TypeSessionUpdate && e.Session != nil && e.Session.Status.Terminal()
}
