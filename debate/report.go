package debate

import (
	"fmt"
	"strings"
	"time"
)

const (
	reportTitle = "AI BOARD OF DIRECTORS - DEBATE REPORT"

	// Section separators. ParseReport depends on these staying fixed.
	reportRule      = "============================================================"
	phaseRule       = "----------------------------------------"
	entrySeparator  = "............................................................"
	reportTimestamp = time.DateTime
)

// RenderReport serializes a full session into the canonical plain-text report
// document: header metadata, outputs grouped by phase in canonical order, then
// exchanges grouped by round. ParseReport reconstructs messages from this
// format, so the separator conventions here are load-bearing.
func RenderReport(session Session, outputs []AgentOutput, exchanges []Exchange) string {
	var b strings.Builder

	b.WriteString(reportTitle + "\n")
	b.WriteString(reportRule + "\n\n")
	fmt.Fprintf(&b, "Topic: %s\n", session.Topic)
	fmt.Fprintf(&b, "Date: %s\n", session.StartTime.Format(reportTimestamp))
	fmt.Fprintf(&b, "Status: %s\n", session.Status)
	fmt.Fprintf(&b, "Consensus Reached: %s\n", yesNo(session.ConsensusReached))
	if session.WinningStrategy != "" {
		fmt.Fprintf(&b, "Winning Strategy: %s\n", session.WinningStrategy)
	}
	b.WriteString("\n" + reportRule + "\n\n")

	for _, phase := range PhaseOrder() {
		var phaseOutputs []AgentOutput
		for _, output := range outputs {
			if output.Phase == phase {
				phaseOutputs = append(phaseOutputs, output)
			}
		}
		if len(phaseOutputs) == 0 {
			continue
		}
		fmt.Fprintf(&b, "PHASE: %s\n", strings.ToUpper(string(phase)))
		b.WriteString(phaseRule + "\n\n")
		for _, output := range phaseOutputs {
			fmt.Fprintf(&b, "%s:\n", output.AgentName)
			b.WriteString(output.Content + "\n\n")
			b.WriteString(entrySeparator + "\n\n")
		}
	}

	if len(exchanges) > 0 {
		b.WriteString("DEBATE EXCHANGES\n")
		b.WriteString(phaseRule + "\n\n")
		for _, exchange := range exchanges {
			fmt.Fprintf(&b, "Round %d: %s → %s\n", exchange.RoundNumber, exchange.Questioner, exchange.Responder)
			fmt.Fprintf(&b, "Question: %s\n", exchange.Question)
			fmt.Fprintf(&b, "Response: %s\n\n", exchange.Response)
			b.WriteString(entrySeparator + "\n\n")
		}
	}

	return b.String()
}

func yesNo(value bool) string {
	if value {
		return "Yes"
	}
	return "No"
}
