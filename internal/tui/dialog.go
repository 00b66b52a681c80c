package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/JohnDeved/gamebase-cli/internal/install"
	"github.com/JohnDeved/gamebase-cli/internal/session"
	"github.com/JohnDeved/gamebase-cli/internal/util"
)

func (m Model) dialogWidth() int {
	return max(30, min(m.width-4, 64))
}

func (m Model) box(style lipgloss.Style, body string) string {
	box := style.Width(m.dialogWidth()).Render(body)
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Center, box)
}

func (m Model) confirmView() string {
	c := m.confirm
	if c == nil {
		return ""
	}
	var question string
	switch {
	case c.Kind == session.ConfirmUninstall:
		question = fmt.Sprintf("Uninstall %s?\nIts files will be deleted and any attached media detached.", c.Name)
	case c.Reinstall:
		question = fmt.Sprintf("Reinstall %s?\nThe installed files will be replaced.", c.Name)
	default:
		question = fmt.Sprintf("%s is not installed.\nDownload and install it now?", c.Name)
	}
	body := question + "\n\n" + helpStyle.Render("y/Enter: yes   n/Esc: no")
	return "\n" + m.box(dialogStyle, body)
}

func (m Model) busyView() string {
	p := m.progress
	var body string
	switch p.State {
	case install.Downloading:
		bar := renderProgressBar(p.Fraction(), max(10, m.dialogWidth()-16))
		size := util.FormatBytes(p.Done)
		if p.Total > 0 {
			size += " / " + util.FormatBytes(p.Total)
		}
		body = fmt.Sprintf("%s Downloading %s\n\n%s\n%s",
			m.spinner.View(), m.busyName, bar, helpStyle.Render(size))
	case install.Extracting:
		body = fmt.Sprintf("%s Extracting %s", m.spinner.View(), m.busyName)
	default:
		body = fmt.Sprintf("%s Working on %s", m.spinner.View(), m.busyName)
	}
	if m.job.cancel != nil {
		body += "\n\n" + helpStyle.Render("Esc: cancel")
	}
	return "\n" + m.box(dialogStyle, body)
}

func (m Model) messageView() string {
	style := dialogStyle
	text := m.message
	if m.isError {
		style = errorDialogStyle
		text = errorStyle.Render("Error") + "\n\n" + text
	}
	body := text + "\n\n" + helpStyle.Render("Enter: continue")
	return "\n" + m.box(style, body)
}

func renderProgressBar(progress float64, width int) string {
	filled := int(progress * float64(width))
	if filled > width {
		filled = width
	}
	empty := width - filled

	bar := progressBarFilled.Render(strings.Repeat("█", filled)) +
		progressBarEmpty.Render(strings.Repeat("░", empty))

	return fmt.Sprintf("[%s] %3.0f%%", bar, progress*100)
}

func (m Model) defaultStatus() string {
	switch m.mode {
	case modeConfirm:
		return "y/Enter: confirm  n/Esc: cancel"
	case modeBusy:
		return "Installing... Esc: cancel"
	case modeMessage:
		return "Enter: continue"
	}
	if m.showHelp {
		return "↑/↓ PgUp/PgDn: scroll  F1/Esc: close help"
	}
	var parts []string
	for _, b := range m.keys.shortHelp() {
		h := b.Help()
		parts = append(parts, h.Key+":"+h.Desc)
	}
	status := "type to search  " + strings.Join(parts, "  ")
	if m.cache != nil {
		if n := m.cache.Pending(); n > 0 {
			status = fmt.Sprintf("%s %d fetching  %s", m.spinner.View(), n, status)
		}
	}
	return status
}

func (m Model) helpLines() []string {
	lines := []string{
		"  Keyboard Shortcuts",
		"  ──────────────────",
		"",
		"  Type letters to search game names. The list filters as you type.",
		"",
	}
	for _, b := range m.keys.fullHelp() {
		h := b.Help()
		lines = append(lines, fmt.Sprintf("    %-8s %s", h.Key, h.Desc))
	}
	lines = append(lines,
		"",
		"  ← / →, Ctrl+A / Ctrl+E  Move the search caret",
		"  Mouse: wheel scrolls, click highlights, click again to start.",
		"  Click or drag along the scroll line to jump through the list.",
		"",
		"  Filters: all, popular, installed. The choice is remembered.",
		"  Enter on an installed game starts it; otherwise it is offered",
		"  for install first.",
	)
	return lines
}

// clampHelpOffset keeps the help scroll offset inside the help text.
func (m *Model) clampHelpOffset(maxLines int) {
	maxOffset := max(0, len(m.helpLines())-maxLines)
	if m.helpOffset > maxOffset {
		m.helpOffset = maxOffset
	}
	if m.helpOffset < 0 {
		m.helpOffset = 0
	}
}

func (m Model) helpView(maxLines int) string {
	lines := m.helpLines()
	m.clampHelpOffset(maxLines)
	helpOffset := m.helpOffset
	end := helpOffset + maxLines
	if end > len(lines) {
		end = len(lines)
	}
	return helpStyle.Render(strings.Join(lines[helpOffset:end], "\n"))
}
