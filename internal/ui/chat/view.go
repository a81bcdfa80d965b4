// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/pagechat/internal/commands"
	"github.com/jeranaias/pagechat/internal/history"
	"github.com/jeranaias/pagechat/internal/model"
	"github.com/jeranaias/pagechat/internal/ui/components"
	"github.com/jeranaias/pagechat/internal/ui/styles"
	"github.com/jeranaias/pagechat/internal/util"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the full chat screen.
func (m Model) View() string {
	if !m.ready {
		return "\n  Starting pagechat..."
	}
	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderInputArea(),
		m.renderStatusBar(),
	)
}

// renderHeader draws the single-line title bar.
func (m Model) renderHeader() string {
	width := max(m.width, 20)

	brand := lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true).Render("pagechat")
	divider := lipgloss.NewStyle().Foreground(styles.TextMuted).Render(" | ")

	var page string
	if m.client != nil && m.client.HasContext() {
		title := m.client.ContextTitle()
		if title == "" {
			title = m.client.ContextURL()
		}
		page = lipgloss.NewStyle().Foreground(styles.Emerald).
			Render(util.TruncateRunes(title, 48))
	} else {
		page = lipgloss.NewStyle().Foreground(styles.TextMuted).Render("no page loaded")
	}

	left := brand + divider + page
	right := lipgloss.NewStyle().Foreground(styles.TextMuted).Render("v" + m.version)

	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}

	bar := lipgloss.NewStyle().
		Background(styles.SurfaceDim).
		Width(width).
		Padding(0, 1)
	return bar.Render(left + strings.Repeat(" ", gap) + right)
}

// =============================================================================
// CONVERSATION
// =============================================================================

// renderConversation renders the scrollback content for the viewport.
func (m Model) renderConversation() string {
	if len(m.messages) == 0 {
		return m.renderEmptyState()
	}
	rendered := make([]string, 0, len(m.messages))
	for _, msg := range m.messages {
		rendered = append(rendered, m.renderMessage(msg))
	}
	return strings.Join(rendered, "\n\n")
}

func (m Model) renderMessage(msg model.Message) string {
	switch msg.Role {
	case model.RoleUser:
		return m.renderUserMessage(msg.Content)
	case model.RoleAssistant:
		return m.renderAssistantMessage(msg.Content)
	default:
		return m.renderSystemMessage(msg.Content)
	}
}

// bubbleWidth is the widest a message bubble may grow.
func (m Model) bubbleWidth() int {
	w := (m.viewport.Width * 3) / 4
	if w < 20 {
		w = max(m.viewport.Width-4, 20)
	}
	return w
}

// renderUserMessage right-aligns the user's question in a blue bubble.
func (m Model) renderUserMessage(content string) string {
	maxW := m.bubbleWidth()
	bubble := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.UserBubbleBorder).
		Foreground(styles.UserBubbleFg).
		Padding(0, 1).
		Render(wrapText(content, maxW-4))

	marginLeft := m.viewport.Width - lipgloss.Width(bubble) - 2
	if marginLeft < 0 {
		marginLeft = 0
	}
	return lipgloss.NewStyle().MarginLeft(marginLeft).Render(bubble)
}

// renderAssistantMessage left-aligns the reply in a purple bubble, with
// fenced code rendered as highlighted blocks between the text parts.
func (m Model) renderAssistantMessage(content string) string {
	maxW := m.bubbleWidth()
	textStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.AssistantBubbleBorder).
		Foreground(styles.AssistantBubbleFg).
		Padding(0, 1)

	var parts []string
	for _, seg := range components.SplitCodeFences(content) {
		if seg.IsCode {
			block := components.NewCodeBlock(seg.Language, seg.Content)
			block.SetMaxWidth(maxW)
			parts = append(parts, block.Render())
			continue
		}
		if strings.TrimSpace(seg.Content) == "" {
			continue
		}
		wrapped := wrapText(seg.Content, maxW-4)
		parts = append(parts, textStyle.Render(components.RenderInlineCode(wrapped)))
	}
	if len(parts) == 0 {
		return ""
	}
	return lipgloss.NewStyle().MarginLeft(2).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// renderSystemMessage shows notices (loads, exports, help) in an amber box.
func (m Model) renderSystemMessage(content string) string {
	maxW := m.bubbleWidth()
	bubble := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(styles.SystemBubbleBorder).
		Foreground(styles.SystemBubbleFg).
		Padding(0, 1).
		Render(wrapText(content, maxW-4))
	return lipgloss.NewStyle().MarginLeft(2).Render(bubble)
}

// renderEmptyState draws the welcome screen before the first message.
func (m Model) renderEmptyState() string {
	titleStyle := lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(styles.TextMuted)
	tipStyle := lipgloss.NewStyle().Foreground(styles.Cyan)

	var b strings.Builder
	b.WriteString("\n\n")
	b.WriteString(titleStyle.Render("pagechat " + m.version))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("chat with any web page"))
	b.WriteString("\n\n\n")

	tips := [][2]string{
		{"/load <url>", "fetch a page and chat about it"},
		{"/context", "show the loaded page"},
		{"/export md", "save the conversation"},
		{"/help", "all commands"},
	}
	for _, tip := range tips {
		b.WriteString(tipStyle.Render(fmt.Sprintf("%-14s", tip[0])))
		b.WriteString(dimStyle.Render(tip[1]))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Or just type a question. Without a page the"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("assistant answers from general knowledge."))

	return lipgloss.PlaceHorizontal(max(m.viewport.Width, 20), lipgloss.Center, b.String())
}

// =============================================================================
// INPUT AREA
// =============================================================================

// renderInputArea draws the separator, input line, and hint line. The
// completion popup stacks above the separator and the error banner replaces
// the input while showing.
func (m Model) renderInputArea() string {
	width := max(m.width, 20)
	sep := lipgloss.NewStyle().Foreground(styles.Overlay).
		Render(strings.Repeat("─", width))

	if m.state == StateError {
		return lipgloss.JoinVertical(lipgloss.Left, sep, m.renderErrorBanner())
	}

	var rows []string
	if m.completionState.Visible {
		popup := components.NewCompletionPopup()
		popup.SetWidth(min(60, width-4))
		popup.SetMaxVisible(6)
		popup.SetCompletions(m.completionState.Completions)
		popup.SetSelected(m.completionState.Selected)
		rows = append(rows, lipgloss.NewStyle().MarginLeft(2).Render(popup.View()))
	}
	rows = append(rows, sep, m.input.View(), m.renderHintLine())
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// renderHintLine shows key hints, or the spinner while a request runs.
func (m Model) renderHintLine() string {
	dim := lipgloss.NewStyle().Foreground(styles.TextMuted)

	if m.state == StateThinking {
		label := m.thinkingLabel
		if label == "" {
			label = "Thinking"
		}
		return "  " + m.spinner.View() + " " + dim.Render(label+"... (Esc to cancel)")
	}

	hints := dim.Render("Enter send | Tab complete | /help commands")
	count := dim.Render(fmt.Sprintf("%d/%d", util.RuneLen(m.input.Value()), m.input.CharLimit))
	gap := m.width - lipgloss.Width(hints) - lipgloss.Width(count) - 4
	if gap < 1 {
		gap = 1
	}
	return "  " + hints + strings.Repeat(" ", gap) + count
}

// renderErrorBanner draws the dismissable error box.
func (m Model) renderErrorBanner() string {
	width := max(m.width, 30)
	title := lipgloss.NewStyle().Foreground(styles.Rose).Bold(true).Render(m.errorTitle)
	detail := lipgloss.NewStyle().Foreground(styles.TextPrimary).
		Render(wrapText(m.errorDetail, width-10))

	lines := []string{title, detail}
	if m.errorTip != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(styles.TextMuted).
			Render(wrapText("Tip: "+m.errorTip, width-10)))
	}
	lines = append(lines, lipgloss.NewStyle().Foreground(styles.TextMuted).
		Render("Press Enter to dismiss"))

	banner := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Rose).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
	return lipgloss.NewStyle().MarginLeft(2).Render(banner)
}

// =============================================================================
// STATUS BAR
// =============================================================================

func (m Model) renderStatusBar() string {
	bar := components.StatusBar{
		Width:  m.width,
		Status: m.statusForState(),
	}

	if m.cfg != nil && m.cfg.Endpoint.URL == "" {
		bar.Left = append(bar.Left, "endpoint not configured")
	}
	bar.Left = append(bar.Left, fmt.Sprintf("%d msgs", len(m.messages)))

	bar.Right = []string{"Tab complete", "/help", "C-q quit"}
	return bar.View()
}

func (m Model) statusForState() components.Status {
	switch m.state {
	case StateThinking:
		return components.StatusThinking
	case StateError:
		return components.StatusError
	default:
		return components.StatusReady
	}
}

// =============================================================================
// TEXT BLOCKS
// =============================================================================

// helpText builds the /help output from the registry, optionally for a
// single command.
func helpText(registry *commands.Registry, topic string) string {
	if topic != "" {
		cmd, ok := registry.Get(topic)
		if !ok {
			return fmt.Sprintf("No such command: /%s (try /help)", topic)
		}
		var b strings.Builder
		fmt.Fprintf(&b, "/%s - %s\n", cmd.Name, cmd.Description)
		fmt.Fprintf(&b, "Usage: %s", cmd.Usage)
		if len(cmd.Aliases) > 0 {
			fmt.Fprintf(&b, "\nAliases: /%s", strings.Join(cmd.Aliases, ", /"))
		}
		return b.String()
	}

	byCategory := registry.ByCategory()
	var b strings.Builder
	b.WriteString("Commands\n")
	for _, category := range []string{"Page", "Conversation", "Navigation"} {
		cmds := byCategory[category]
		if len(cmds) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s\n", category)
		for _, cmd := range cmds {
			fmt.Fprintf(&b, "  %-24s %s\n", cmd.Usage, cmd.Description)
		}
	}
	b.WriteString("\nKeys\n")
	b.WriteString("  Tab        complete a command\n")
	b.WriteString("  PgUp/PgDn  scroll the conversation\n")
	b.WriteString("  Esc        cancel the current request\n")
	b.WriteString("  Ctrl+Q     quit")
	return b.String()
}

// formatVisits builds the /history output.
func formatVisits(visits []history.Visit) string {
	if len(visits) == 0 {
		return "No page visits recorded yet."
	}
	var b strings.Builder
	b.WriteString("Recent pages\n")
	for _, v := range visits {
		title := v.Title
		if title == "" {
			title = v.URL
		}
		fmt.Fprintf(&b, "\n%-10s %s (%s chars)\n           %s",
			formatRelativeTime(v.VisitedAt),
			util.TruncateRunes(title, 50),
			formatChars(v.Chars),
			v.URL)
	}
	return b.String()
}
