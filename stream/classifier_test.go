package stream

import (
	"testing"

	"github.com/boardroom-ai/boardroom/debate"
)

func TestClassifyLine_Researching(t *testing.T) {
	cases := []struct {
		line  string
		agent string
	}{
		{"→ Systems Futurist researching...", "Systems Futurist"},
		{"First Principles Physicist researching", "First Principles Physicist"},
		{"  Meta-Learning Strategist researching the topic  ", "Meta-Learning Strategist"},
	}
	for _, tc := range cases {
		event, ok := ClassifyLine(tc.line)
		if !ok {
			t.Errorf("ClassifyLine(%q) not recognized", tc.line)
			continue
		}
		if event.Type != TypeAgentStatus {
			t.Errorf("ClassifyLine(%q) type = %s, want agent_status", tc.line, event.Type)
		}
		if event.Agent != tc.agent {
			t.Errorf("ClassifyLine(%q) agent = %q, want %q", tc.line, event.Agent, tc.agent)
		}
		if event.Status != StatusResearching {
			t.Errorf("ClassifyLine(%q) status = %q, want researching", tc.line, event.Status)
		}
	}
}

func TestClassifyLine_Phase(t *testing.T) {
	cases := []struct {
		line  string
		phase debate.Phase
	}{
		{"Phase 1: Research", debate.PhaseResearch},
		{"Phase 2: Presentation Phase", debate.PhasePresentation},
		{"Phase 5: debate", debate.PhaseDebate},
		{"Phase 7: Final Report", debate.PhaseFinalReport},
	}
	for _, tc := range cases {
		event, ok := ClassifyLine(tc.line)
		if !ok {
			t.Errorf("ClassifyLine(%q) not recognized", tc.line)
			continue
		}
		if event.Type != TypeSessionUpdate {
			t.Errorf("ClassifyLine(%q) type = %s, want session_update", tc.line, event.Type)
		}
		if event.Phase != tc.phase {
			t.Errorf("ClassifyLine(%q) phase = %s, want %s", tc.line, event.Phase, tc.phase)
		}
	}
}

func TestClassifyLine_Unrecognized(t *testing.T) {
	for _, line := range []string{
		"",
		"   ",
		"ordinary log output",
		"Phase 9: intermission",
	} {
		if event, ok := ClassifyLine(line); ok {
			t.Errorf("ClassifyLine(%q) unexpectedly recognized: %+v", line, event)
		}
	}
}
