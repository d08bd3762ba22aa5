package debate

import "time"

// Status represents the session lifecycle state.
type Status string

const (
	// StatusRunning indicates the debate worker is in progress.
	StatusRunning Status = "running"
	// StatusCompleted indicates the debate finished successfully.
	StatusCompleted Status = "completed"
	// StatusFailed indicates the debate was stopped or the worker failed.
	StatusFailed Status = "failed"
)

// ValidStatuses returns all valid session status values.
func ValidStatuses() []Status {
	return []Status{StatusRunning, StatusCompleted, StatusFailed}
}

// IsValid reports whether the status is a known value.
func (s Status) IsValid() bool {
	switch s {
	case StatusRunning, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Phase represents a named stage within a debate round.
type Phase string

const (
	PhaseResearch     Phase = "research"
	PhasePresentation Phase = "presentation"
	PhaseEmbodiment   Phase = "embodiment"
	PhaseAdjustment   Phase = "adjustment"
	PhaseDebate       Phase = "debate"
	PhaseVoting       Phase = "voting"
	PhaseFinalReport  Phase = "final_report"
)

// PhaseOrder returns the canonical phase sequence.
func PhaseOrder() []Phase {
	return []Phase{
		PhaseResearch,
		PhasePresentation,
		PhaseEmbodiment,
		PhaseAdjustment,
		PhaseDebate,
		PhaseVoting,
		PhaseFinalReport,
	}
}

// IsValid reports whether the phase is a known value.
func (p Phase) IsValid() bool {
	for _, known := range PhaseOrder() {
		if p == known {
			return true
		}
	}
	return false
}

// Agents returns the six fixed debate personas.
func Agents() []string {
	return []string{
		"First Principles Physicist",
		"Systems Futurist",
		"Pattern Synthesizer",
		"Civilizational Architect",
		"Entrepreneurial Visionary",
		"Meta-Learning Strategist",
	}
}

// Summary aggregates counters over a session's outputs and exchanges.
type Summary struct {
	TotalAgentOutputs   int                  `json:"totalAgentOutputs"`
	TotalExchanges      int                  `json:"totalDebateExchanges"`
	TotalWordCount      int                  `json:"totalWordCount"`
	PhaseCompletedAt    map[Phase]time.Time  `json:"phaseCompletionTimes,omitempty"`
	IterationsCompleted int                  `json:"iterationsCompleted"`
}

// FinalReport is the collaboratively produced closing document.
type FinalReport struct {
	Content                 string    `json:"content"`
	WordCount               int       `json:"wordCount"`
	GeneratedAt             time.Time `json:"generatedAt"`
	CollaborativelyApproved bool      `json:"collaborativelyApproved"`
}

// VotingResult captures one persona's vote.
type VotingResult struct {
	VoterAgent    string    `json:"voterAgent"`
	VotedForAgent string    `json:"votedForAgent"`
	Reasoning     string    `json:"reasoning,omitempty"`
	Timestamp     time.Time `json:"timestamp,omitzero"`
}

// ConsensusAnalysis summarizes the voting outcome.
type ConsensusAnalysis struct {
	ConsensusReached    bool           `json:"consensusReached"`
	WinningAgent        string         `json:"winningAgent,omitempty"`
	VoteDistribution    map[string]int `json:"voteDistribution,omitempty"`
	ConsensusPercentage float64        `json:"consensusPercentage"`
	TotalVotes          int            `json:"totalVotes"`
}

// Session is one external-worker run against one topic.
type Session struct {
	ID     string `json:"id"`
	Topic  string `json:"topic"`
	Status Status `json:"status"`

	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime,omitzero"`
	DurationMinutes int       `json:"duration,omitempty"`

	MaxIterations    int   `json:"maxIterations"`
	CurrentIteration int   `json:"currentIteration"`
	CurrentPhase     Phase `json:"currentPhase"`

	ParticipatingAgents []string `json:"participatingAgents"`

	ConsensusReached bool   `json:"consensusReached"`
	WinningStrategy  string `json:"winningStrategy,omitempty"`

	Summary Summary `json:"summary"`

	FinalReport       *FinalReport       `json:"finalReport,omitempty"`
	VotingResults     []VotingResult     `json:"votingResults,omitempty"`
	ConsensusAnalysis *ConsensusAnalysis `json:"consensusAnalysis,omitempty"`

	SessionFolder string `json:"sessionFolder"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AgentOutput is one persona's contribution in one phase and round.
// Outputs are append-only and never updated after creation.
type AgentOutput struct {
	ID          int64          `json:"id"`
	SessionID   string         `json:"debateId"`
	AgentName   string         `json:"agentName"`
	Phase       Phase          `json:"phase"`
	RoundNumber int            `json:"roundNumber"`
	Content     string         `json:"content"`
	WordCount   int            `json:"wordCount"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Exchange is one question/response pair between two personas within a round.
type Exchange struct {
	ID                int64     `json:"id"`
	SessionID         string    `json:"debateId"`
	RoundNumber       int       `json:"roundNumber"`
	Questioner        string    `json:"questioner"`
	Responder         string    `json:"responder"`
	Question          string    `json:"question"`
	Response          string    `json:"response"`
	QuestionWordCount int       `json:"questionWordCount"`
	ResponseWordCount int       `json:"responseWordCount"`
	Timestamp         time.Time `json:"timestamp"`
}

// SessionPage is one page of session summaries plus page metadata.
type SessionPage struct {
	Sessions []Session `json:"debates"`
	Page     int       `json:"page"`
	Limit    int       `json:"limit"`
	Total    int       `json:"total"`
	Pages    int       `json:"pages"`
}

// Stats aggregates history across all sessions.
type Stats struct {
	TotalDebates     int            `json:"totalDebates"`
	CompletedDebates int            `json:"completedDebates"`
	ConsensusRate    int            `json:"consensusRate"`
	AverageDuration  float64        `json:"averageDuration"`
	WinningAgents    map[string]int `json:"winningAgentDistribution,omitempty"`
}
