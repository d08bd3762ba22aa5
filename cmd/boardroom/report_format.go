package main

import (
	"strings"

	"github.com/boardroom-ai/boardroom/internal/markdown"
	"github.com/boardroom-ai/boardroom/internal/ui"
)

const reportRenderFallbackWidth = 80

// renderReportMarkdown reshapes the plain-text report into markdown and
// renders it for the terminal. Phase banners become headings; everything else
// passes through untouched.
func renderReportMarkdown(report string) string {
	width := ui.TerminalWidth(reportRenderFallbackWidth)
	return markdown.Render(width, reportToMarkdown(report))
}

func reportToMarkdown(report string) string {
	var builder strings.Builder
	lines := strings.Split(report, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case i == 0 && trimmed != "":
			builder.WriteString("# " + trimmed + "\n")
		case strings.HasPrefix(trimmed, "PHASE: "):
			builder.WriteString("## " + strings.TrimPrefix(trimmed, "PHASE: ") + "\n")
		case trimmed == "DEBATE EXCHANGES":
			builder.WriteString("## DEBATE EXCHANGES\n")
		case isRuleLine(trimmed):
			// banner rules are noise in markdown
		default:
			builder.WriteString(line + "\n")
		}
	}
	return builder.String()
}

func isRuleLine(line string) bool {
	if len(line) < 3 {
		return false
	}
	for _, r := range line {
		if r != '=' && r != '-' && r != '.' {
			return false
		}
	}
	return true
}
