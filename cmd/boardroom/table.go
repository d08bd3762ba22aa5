package main

import (
	"strings"
	"unicode/utf8"
)

const tableCellMaxWidth = 50
const tableCellEllipsis = "..."

var tableCellNormalizer = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ")

// formatTable renders headers and rows as aligned columns separated by two
// spaces. Widths are computed on display width so styled cells do not skew
// alignment.
func formatTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	cells := make([][]string, 0, len(rows)+1)
	for _, row := range append([][]string{headers}, rows...) {
		normalized := make([]string, len(row))
		for i, cell := range row {
			normalized[i] = normalizeTableCell(cell)
			if i < len(widths) && displayWidth(normalized[i]) > widths[i] {
				widths[i] = displayWidth(normalized[i])
			}
		}
		cells = append(cells, normalized)
	}

	var builder strings.Builder
	for _, row := range cells {
		for i, cell := range row {
			builder.WriteString(cell)
			if i == len(row)-1 {
				break
			}
			pad := 2
			if i < len(widths) {
				pad += widths[i] - displayWidth(cell)
			}
			builder.WriteString(strings.Repeat(" ", pad))
		}
		builder.WriteByte('\n')
	}
	return builder.String()
}

// truncateTableCell caps a cell at tableCellMaxWidth runes, replacing the
// tail with an ellipsis.
func truncateTableCell(value string) string {
	value = normalizeTableCell(value)
	if utf8.RuneCountInString(value) <= tableCellMaxWidth {
		return value
	}
	runes := []rune(value)
	keep := tableCellMaxWidth - utf8.RuneCountInString(tableCellEllipsis)
	if keep < 0 {
		return string(runes[:tableCellMaxWidth])
	}
	return string(runes[:keep]) + tableCellEllipsis
}

func normalizeTableCell(value string) string {
	return tableCellNormalizer.Replace(value)
}

func displayWidth(value string) int {
	return utf8.RuneCountInString(stripANSICodes(value))
}

// stripANSICodes drops CSI-style escape sequences, which terminate at the
// first ASCII letter after ESC.
func stripANSICodes(value string) string {
	var builder strings.Builder
	skipping := false
	for i := 0; i < len(value); i++ {
		switch {
		case skipping:
			b := value[i]
			if (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') {
				skipping = false
			}
		case value[i] == '\x1b':
			skipping = true
		default:
			builder.WriteByte(value[i])
		}
	}
	return builder.String()
}
