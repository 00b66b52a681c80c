package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) headerView() string {
	title := titleStyle.Render("GameBase64")
	badge := filterBadge.Render(m.sess.Filter().String())
	count := helpStyle.Render(fmt.Sprintf("%d of %d games", len(m.sess.Results()), m.sess.Store().Count()))
	left := title + " " + badge
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(count)
	if gap < 1 {
		return left
	}
	return left + strings.Repeat(" ", gap) + count
}

func (m Model) queryView() string {
	q := []rune(m.sess.Query())
	caret := m.sess.Caret()
	if caret > len(q) {
		caret = len(q)
	}

	var sb strings.Builder
	sb.WriteString(searchPromptStyle.Render("Search: "))
	sb.WriteString(string(q[:caret]))
	if m.mode == modeBrowse && !m.showHelp {
		under := " "
		if caret < len(q) {
			under = string(q[caret])
		}
		sb.WriteString(caretStyle.Render(under))
		if caret < len(q) {
			sb.WriteString(string(q[caret+1:]))
		}
	} else {
		sb.WriteString(string(q[caret:]))
	}
	return sb.String()
}

// listView renders exactly PageSize rows plus the scroll line.
func (m Model) listView() string {
	var sb strings.Builder
	pageSize := m.sess.PageSize()
	results := m.sess.Results()
	cur := m.sess.Cursor()
	rowWidth := max(20, m.width-2)

	if len(results) == 0 {
		msg := "No games match."
		if m.sess.Query() == "" {
			msg = fmt.Sprintf("No games in the %s list.", strings.ToLower(m.sess.Filter().String()))
		}
		return padLines(helpStyle.Render("  "+msg), pageSize+1)
	}

	visible := m.sess.Visible()
	store := m.sess.Store()
	for i := 0; i < pageSize; i++ {
		if i < len(visible) {
			row := visible[i]
			rec := store.Record(row)
			sb.WriteString(renderGameRow(rec.Name(), rec.Publisher(), rec.Year(),
				m.sess.IsInstalled(row), rowWidth, i == cur.Pos))
		}
		sb.WriteString("\n")
	}

	if len(results) > pageSize {
		pct := float64(cur.Offset) / float64(len(results)-pageSize) * 100
		sb.WriteString(helpStyle.Render(
			fmt.Sprintf("  %d/%d games (%.0f%%)", cur.Abs()+1, len(results), pct),
		))
	}
	sb.WriteString("\n")

	return sb.String()
}

func renderGameRow(name, publisher, year string, installed bool, rowWidth int, isSelected bool) string {
	marker := "  "
	if installed {
		marker = installedStyle.Render("● ")
	}

	nameWidth := max(12, rowWidth-34)
	line := fmt.Sprintf(" %s%s  %s  %s",
		marker,
		gameStyle.Render(padToWidth(truncateText(name, nameWidth), nameWidth)),
		publisherStyle.Render(truncateText(publisher, 22)),
		yearStyle.Render(year),
	)

	if isSelected {
		return selectedStyle.Render(padToWidth(line, rowWidth))
	}
	return normalStyle.Render(padToWidth(line, rowWidth))
}

func rule(width int) string {
	return ruleStyle.Render(strings.Repeat("─", max(1, width)))
}

// padLines ends every line of s with a newline and adds blank lines until
// there are n of them. Extra lines are cut.
func padLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	for len(lines) < n {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n") + "\n"
}

func truncateText(s string, maxWidth int) string {
	if maxWidth < 4 {
		return s
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	r := []rune(s)
	if len(r) <= maxWidth {
		return s
	}
	return string(r[:maxWidth-3]) + "..."
}

func padToWidth(s string, width int) string {
	pad := width - lipgloss.Width(s)
	if pad <= 0 {
		return s
	}
	return s + strings.Repeat(" ", pad)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
