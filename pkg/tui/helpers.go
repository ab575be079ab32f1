package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

// chatBubbleMaxWidth is 80% of the terminal, at least 30 and at most 120 columns.
func chatBubbleMaxWidth(totalWidth int) int {
	w := totalWidth * 80 / 100
	if w < 30 {
		return 30
	}
	if w > 120 {
		return 120
	}
	return w
}

// wrapText word-wraps every line of s to width columns.
func wrapText(s string, width int) string {
	if width < 10 {
		width = 10
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = wordwrap.String(line, width)
	}
	return strings.Join(lines, "\n")
}

// truncateText truncates text to fit within maxWidth cells, adding an ellipsis if needed.
func truncateText(text string, maxWidth int) string {
	if maxWidth < 4 {
		return "..."
	}
	if lipgloss.Width(text) <= maxWidth {
		return text
	}

	runes := []rune(text)
	left, right := 0, len(runes)
	for left < right {
		mid := (left + right + 1) / 2
		if lipgloss.Width(string(runes[:mid])+"...") <= maxWidth {
			left = mid
		} else {
			right = mid - 1
		}
	}
	if left == 0 {
		return "..."
	}
	return string(runes[:left]) + "..."
}

// splitArgs returns the command name and the rest of a slash command.
func splitArgs(input string) (string, []string) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return "", nil
	}
	return strings.ToLower(strings.TrimPrefix(parts[0], "/")), parts[1:]
}
