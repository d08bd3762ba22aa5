package debate

import "strings"

// HistoricalMessage is one agent message reconstructed from a report document.
// Reconstructed messages are always complete; live streaming has no role here.
type HistoricalMessage struct {
	Agent   string `json:"agent"`
	Content string `json:"content"`
}

// metadataLabels are report header or exchange field labels that look like
// "Name: value" lines but are not persona messages.
var metadataLabels = []string{
	"Topic:",
	"Date:",
	"Status:",
	"Consensus Reached:",
	"Winning Strategy:",
	"Question:",
	"Response:",
}

// ParseReport rebuilds the chronological agent messages from a report document
// produced by RenderReport. The parse is a best-effort textual re-scan of a
// self-produced format: malformed or empty sections are skipped, never fatal.
func ParseReport(text string) []HistoricalMessage {
	messages := make([]HistoricalMessage, 0)
	for _, section := range strings.Split(text, entrySeparator) {
		lines := strings.Split(strings.TrimSpace(section), "\n")

		agentIndex := -1
		for i, line := range lines {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || isHeaderLine(trimmed) || isMetadataLine(trimmed) {
				continue
			}
			if !strings.Contains(trimmed, ":") {
				continue
			}
			agentIndex = i
			break
		}
		if agentIndex < 0 {
			continue
		}

		line := strings.TrimSpace(lines[agentIndex])
		agent := strings.TrimSpace(strings.SplitN(line, ":", 2)[0])
		content := strings.TrimSpace(strings.Join(lines[agentIndex+1:], "\n"))
		if agent == "" || content == "" {
			continue
		}
		messages = append(messages, HistoricalMessage{Agent: agent, Content: content})
	}
	return messages
}

func isHeaderLine(line string) bool {
	switch {
	case strings.Contains(line, "PHASE:"),
		strings.Contains(line, reportTitle),
		strings.Contains(line, "DEBATE EXCHANGES"),
		strings.HasPrefix(line, "====="),
		strings.HasPrefix(line, "-----"):
		return true
	}
	return false
}

func isMetadataLine(line string) bool {
	for _, label := range metadataLabels {
		if strings.HasPrefix(line, label) {
			return true
		}
	}
	// Exchange banner lines ("Round 3: A → B") are metadata, not personas.
	if strings.HasPrefix(line, "Round ") {
		return true
	}
	return false
}
