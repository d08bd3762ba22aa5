package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/boardroom-ai/boardroom/debate"
	"github.com/boardroom-ai/boardroom/internal/ui"
	"github.com/boardroom-ai/boardroom/stream"
)

const eventWrapFallbackWidth = 80

// eventPrinter renders stream events for interactive output.
type eventPrinter struct {
	writer     io.Writer
	width      int
	agentStyle lipgloss.Style
	phaseStyle lipgloss.Style
	errStyle   lipgloss.Style
}

func newEventPrinter(writer io.Writer) *eventPrinter {
	if writer == nil {
		writer = io.Discard
	}
	styled := ui.ANSIEnabled()
	agentStyle := lipgloss.NewStyle()
	phaseStyle := lipgloss.NewStyle()
	errStyle := lipgloss.NewStyle()
	if styled {
		agentStyle = agentStyle.Bold(true).Foreground(lipgloss.Color("33"))
		phaseStyle = phaseStyle.Bold(true).Foreground(lipgloss.Color("170"))
		errStyle = errStyle.Bold(true).Foreground(lipgloss.Color("196"))
	}
	return &eventPrinter{
		writer:     writer,
		width:      ui.TerminalWidth(eventWrapFallbackWidth),
		agentStyle: agentStyle,
		phaseStyle: phaseStyle,
		errStyle:   errStyle,
	}
}

func (p *eventPrinter) Print(event stream.Event) {
	switch event.Type {
	case stream.TypeConnected:
		fmt.Fprintf(p.writer, "connected at %s\n", event.Timestamp.Local().Format(time.TimeOnly))
	case stream.TypeSessionUpdate:
		p.printSessionUpdate(event)
	case stream.TypeAgentStatus:
		fmt.Fprintf(p.writer, "%s %s\n", p.agentStyle.Render(event.Agent), event.Status)
	case stream.TypeAgentOutput:
		header := event.Agent
		if event.Phase != "" {
			header = fmt.Sprintf("%s (%s)", event.Agent, event.Phase)
		}
		fmt.Fprintf(p.writer, "%s\n%s\n\n", p.agentStyle.Render(header), p.wrap(event.Content))
	case stream.TypeError:
		fmt.Fprintf(p.writer, "%s %s\n", p.errStyle.Render("error:"), event.Message)
	}
}

func (p *eventPrinter) printSessionUpdate(event stream.Event) {
	if event.Session == nil {
		if event.Phase != "" {
			fmt.Fprintf(p.writer, "%s\n", p.phaseStyle.Render(string(event.Phase)))
		}
		return
	}
	session := event.Session
	if session.Status.Terminal() {
		label := fmt.Sprintf("debate %s %s", session.ID, session.Status)
		if session.Status == debate.StatusCompleted && session.ConsensusReached {
			label += " (consensus reached)"
		}
		fmt.Fprintf(p.writer, "%s\n", p.phaseStyle.Render(label))
		return
	}
	fmt.Fprintf(p.writer, "%s iteration %d\n",
		p.phaseStyle.Render(fmt.Sprintf("phase: %s", session.CurrentPhase)),
		session.CurrentIteration)
}

func (p *eventPrinter) wrap(value string) string {
	width := p.width
	if width < 1 {
		width = eventWrapFallbackWidth
	}
	return strings.TrimRight(wordwrap.String(value, width), "\n")
}
