package stream

import (
	"regexp"
	"strings"
	"time"

	"github.com/boardroom-ai/boardroom/debate"
)

// LineClassifier turns one worker log line into at most one event. Returning
// false means the line carried no recognizable signal; classification is
// best-effort and a mismatch is never an error.
type LineClassifier func(line string) (Event, bool)

var (
	researchingPattern = regexp.MustCompile(`([A-Za-z][A-Za-z0-9 .'-]*?)\s+researching`)
	phasePattern       = regexp.MustCompile(`Phase\s+(\d+)\s*:\s*(.+)`)
)

// ClassifyLine is the default classifier for worker console output. It
// recognizes two line shapes: "<agent> researching" (with or without the
// worker's arrow prefix and trailing ellipsis) and "Phase <n>: <label>".
func ClassifyLine(line string) (Event, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Event{}, false
	}

	if match := researchingPattern.FindStringSubmatch(line); match != nil {
		agent := strings.TrimSpace(strings.TrimPrefix(match[1], "→"))
		agent = strings.TrimSpace(agent)
		if agent != "" {
			return AgentStatus(agent, StatusResearching, time.Now()), true
		}
	}

	if match := phasePattern.FindStringSubmatch(line); match != nil {
		if phase, ok := canonicalPhase(match[2]); ok {
			return Event{Type: TypeSessionUpdate, Phase: phase, Timestamp: time.Now()}, true
		}
	}

	return Event{}, false
}

// canonicalPhase maps a free-text phase label to a canonical phase value.
func canonicalPhase(label string) (debate.Phase, bool) {
	normalized := strings.ToLower(strings.TrimSpace(label))
	normalized = strings.TrimSuffix(normalized, " phase")
	normalized = strings.ReplaceAll(normalized, " ", "_")

	candidate := debate.Phase(normalized)
	if candidate.IsValid() {
		return candidate, true
	}
	for _, phase := range debate.PhaseOrder() {
		if strings.Contains(normalized, string(phase)) {
			return phase, true
		}
	}
	return "", false
}
