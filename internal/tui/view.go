package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/efebarandurmaz/gptwork/internal/workspace"
)

func (m BoardModel) View() string {
	if m.quitting {
		return ""
	}

	fields := m.ws.Fields()

	sections := []string{
		m.renderTopBar(),
		lipgloss.JoinHorizontal(lipgloss.Top, m.renderList(fields), " ", m.renderDetail(fields)),
		m.renderFooter(fields),
		m.renderBottom(),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m BoardModel) renderTopBar() string {
	title := m.styles.Title.Render("GPT at Work")
	info := m.styles.Subtitle.Render(fmt.Sprintf("model: %s   api: %s", m.ws.Model(), m.ws.APIBase()))
	return lipgloss.JoinHorizontal(lipgloss.Top, title, "   ", info)
}

func (m BoardModel) renderList(fields []workspace.Field) string {
	var lines []string
	for i, f := range fields {
		label := truncate(f.Label, listWidth-14)
		line := fmt.Sprintf("  %s", label)
		if i == m.cursor {
			line = m.styles.Selected.Render("> " + label)
		}
		pad := max(listWidth-10-lipgloss.Width(line), 1)
		lines = append(lines, line+strings.Repeat(" ", pad)+m.styles.StatusBadge(m.ws.Status(f.ID).State))
	}
	if len(lines) == 0 {
		lines = append(lines, m.styles.Muted.Render("No fields. Press n to add one."))
	}

	style := m.styles.Border
	if m.activePane == PaneFields {
		style = m.styles.ActiveBorder
	}
	return style.Width(listWidth).Render(strings.Join(lines, "\n"))
}

func (m BoardModel) renderDetail(fields []workspace.Field) string {
	width := m.detailWidth()

	if m.editing != editNone {
		title := m.styles.ActiveTab.Render("Editing " + m.editing.String())
		hint := m.styles.Help.Render("ctrl+s save, esc cancel")
		body := lipgloss.JoinVertical(lipgloss.Left, title, m.editor.View(), hint)
		return m.styles.ActiveBorder.Width(width).Render(body)
	}

	f, ok := m.selected(fields)
	if !ok {
		return m.styles.Border.Width(width).Render("")
	}
	status := m.ws.Status(f.ID)
	textWidth := width - 4

	parts := []string{
		m.styles.Tab.Render("Instruction"),
		m.block(f.Instruction, "e.g., You rewrite text in plain English while preserving technical accuracy.", textWidth, 4),
		m.styles.Tab.Render("Input"),
		m.block(f.Input, "Paste or type the text you want to process...", textWidth, 4),
	}

	outputTitle := m.styles.Tab.Render("Output")
	if m.activePane == PaneOutput {
		outputTitle = m.styles.ActiveTab.Render("Output")
	}
	parts = append(parts, outputTitle, m.viewport.View())

	if status.State == workspace.RunError {
		parts = append(parts, m.styles.ErrorText.Width(textWidth).Render(status.Err))
	}

	style := m.styles.Border
	if m.activePane == PaneOutput {
		style = m.styles.ActiveBorder
	}
	return style.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// block renders at most maxLines wrapped lines of s.
func (m BoardModel) block(s, placeholder string, width, maxLines int) string {
	if strings.TrimSpace(s) == "" {
		return m.styles.Muted.Width(width).Render(placeholder)
	}
	wrapped := lipgloss.NewStyle().Width(width).Render(s)
	lines := strings.Split(wrapped, "\n")
	if len(lines) > maxLines {
		lines = append(lines[:maxLines-1], m.styles.Muted.Render("..."))
	}
	return m.styles.TextBlock.Render(strings.Join(lines, "\n"))
}

func (m BoardModel) renderFooter(fields []workspace.Field) string {
	state := "Idle"
	if n := m.ws.RunningCount(); n > 0 {
		state = fmt.Sprintf("Running: %d", n)
	}
	line := m.styles.Muted.Render(fmt.Sprintf("%d field(s) • %s", len(fields), state))

	if m.flash != "" {
		return line + "   " + m.styles.ErrorText.Render(m.flash)
	}
	if n, ok := m.activeNotice(); ok {
		return line + "   " + NoticeStyle(n.Severity).Render(n.Message)
	}
	return line
}

// activeNotice returns the latest notice if it is still fresh.
func (m BoardModel) activeNotice() (workspace.Notice, bool) {
	notices := m.ws.Notices()
	if len(notices) == 0 {
		return workspace.Notice{}, false
	}
	last := notices[len(notices)-1]
	if m.now().Sub(last.Time) > noticeTTL {
		return workspace.Notice{}, false
	}
	return last, true
}

func (m BoardModel) renderBottom() string {
	return m.styles.Help.Render(m.help.ShortHelpView(m.keys.ShortHelp()))
}

func truncate(s string, maxWidth int) string {
	if len(s) <= maxWidth {
		return s
	}
	if maxWidth < 4 {
		return "..."
	}
	return s[:maxWidth-3] + "..."
}
