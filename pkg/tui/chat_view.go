package tui

import (
	"strings"

	"GrowthFlow/pkg/conversation"

	"github.com/charmbracelet/lipgloss"
)

// renderMessage lays one bubble out within width columns. Bot bubbles sit
// on the left and user bubbles on the right.
func renderMessage(msg conversation.Message, width int, showTimestamp, streaming bool) string {
	if width < 20 {
		width = 20
	}
	bubbleWidth := chatBubbleMaxWidth(width)
	if bubbleWidth > width {
		bubbleWidth = width
	}
	// border (2) + padding (2)
	textWidth := bubbleWidth - 4

	label := BotLabelStyle.Render("🌱 GrowthFlow")
	style := BotBubbleStyle
	text := msg.Text
	switch {
	case msg.IsError:
		style = ErrorBubbleStyle
		text = "⚠ " + text
	case msg.Sender == conversation.SenderUser:
		label = UserLabelStyle.Render("Vous")
		style = UserBubbleStyle
	}
	if showTimestamp && !msg.CreatedAt.IsZero() {
		label = TimestampStyle.Render(msg.CreatedAt.Format("15:04")) + " " + label
	}
	if streaming {
		text += StreamCursorStyle.Render(" ▌")
	}

	body := wrapText(text, textWidth)
	if lipgloss.Width(body) > textWidth {
		body = truncateLines(body, textWidth)
	}
	block := lipgloss.JoinVertical(lipgloss.Left, label, style.Render(body))

	if msg.Sender == conversation.SenderUser {
		return lipgloss.PlaceHorizontal(width, lipgloss.Right, block)
	}
	return block
}

// truncateLines cuts words that wordwrap could not break.
func truncateLines(s string, width int) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = truncateText(line, width)
	}
	return strings.Join(lines, "\n")
}
