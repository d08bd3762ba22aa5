package debate

import (
	"strings"
	"testing"
	"time"
)

func reportFixture() (Session, []AgentOutput, []Exchange) {
	session := Session{
		ID:               "abc123def456",
		Topic:            "Should we decentralize energy grids?",
		Status:           StatusCompleted,
		StartTime:        time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		ConsensusReached: true,
		WinningStrategy:  "Systems Futurist",
	}
	outputs := []AgentOutput{
		{
			AgentName: "First Principles Physicist",
			Phase:     PhaseResearch,
			Content:   "Transmission losses dominate the cost structure.",
		},
		{
			AgentName: "Systems Futurist",
			Phase:     PhaseDebate,
			Content:   "Grid decentralization compounds local resilience.",
		},
	}
	exchanges := []Exchange{
		{
			RoundNumber: 1,
			Questioner:  "Civilizational Architect",
			Responder:   "Systems Futurist",
			Question:    "Who maintains the microgrids?",
			Response:    "Municipal cooperatives with shared tooling.",
		},
	}
	return session, outputs, exchanges
}

func TestRenderReport_Structure(t *testing.T) {
	session, outputs, exchanges := reportFixture()

	report := RenderReport(session, outputs, exchanges)

	for _, want := range []string{
		"AI BOARD OF DIRECTORS - DEBATE REPORT",
		"Topic: Should we decentralize energy grids?",
		"Date: 2026-03-14 09:26:53",
		"Status: completed",
		"Consensus Reached: Yes",
		"Winning Strategy: Systems Futurist",
		"PHASE: RESEARCH",
		"PHASE: DEBATE",
		"First Principles Physicist:",
		"DEBATE EXCHANGES",
		"Round 1: Civilizational Architect → Systems Futurist",
		"Question: Who maintains the microgrids?",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q", want)
		}
	}

	// Phases appear in canonical order, not insertion order.
	if strings.Index(report, "PHASE: RESEARCH") > strings.Index(report, "PHASE: DEBATE") {
		t.Error("research phase should precede debate phase")
	}
}

func TestRenderReport_OmitsEmptySections(t *testing.T) {
	session, outputs, _ := reportFixture()
	session.ConsensusReached = false
	session.WinningStrategy = ""

	report := RenderReport(session, outputs, nil)

	if strings.Contains(report, "Winning Strategy:") {
		t.Error("empty winning strategy should be omitted")
	}
	if strings.Contains(report, "DEBATE EXCHANGES") {
		t.Error("empty exchange section should be omitted")
	}
	if !strings.Contains(report, "Consensus Reached: No") {
		t.Error("expected negative consensus line")
	}
	if strings.Contains(report, "PHASE: VOTING") {
		t.Error("phases without outputs should be omitted")
	}
}
