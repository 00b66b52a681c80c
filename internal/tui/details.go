package tui

import (
	"fmt"
	"strings"

	"github.com/JohnDeved/gamebase-cli/internal/util"
)

// detailView renders detailHeight lines describing the highlighted game.
func (m Model) detailView() string {
	p := m.sess.Preview()
	if !p.Valid {
		return padLines("", detailHeight)
	}

	rec := p.Record
	w := max(20, m.width-4)
	var lines []string

	lines = append(lines, " "+detailTitleStyle.Render(truncateText(rec.Name(), w)))

	var facts []string
	for _, v := range []string{rec.Publisher(), rec.Year(), rec.Language()} {
		if v != "" {
			facts = append(facts, v)
		}
	}
	lines = append(lines, " "+labelStyle.Render("Published ")+truncateText(strings.Join(facts, ", "), w-10))
	if g := rec.Genre(); g != "" {
		lines = append(lines, " "+labelStyle.Render("Genre     ")+truncateText(g, w-10))
	}

	video := "PAL"
	if rec.NTSC() {
		video = "NTSC"
	}
	drive := "fast loader"
	if rec.TrueDrive() {
		drive = "true drive"
	}
	state := notInstalledStyle.Render("not installed")
	if p.Installed {
		state = installedStyle.Render("installed")
	}
	lines = append(lines, fmt.Sprintf(" %s%s  %s, %s",
		labelStyle.Render("Status    "), state, video, drive))

	lines = append(lines, " "+labelStyle.Render("Screen    ")+m.shotLine(p.Shots, p.Shot, p.ShotPending, w-10))

	if p.Installed {
		if path := m.pipeline.LaunchPath(p.Row); path != "" {
			lines = append(lines, " "+labelStyle.Render("Starts    ")+util.TruncatePath(path, w-10))
		}
	}
	for _, n := range rec.Notes() {
		lines = append(lines, " "+noteStyle.Render(truncateText(n, w)))
	}

	return padLines(strings.Join(lines, "\n"), detailHeight)
}

func (m Model) shotLine(shots []string, idx int, pending bool, width int) string {
	switch {
	case len(shots) == 0 && pending:
		return helpStyle.Render("fetching " + m.spinner.View())
	case len(shots) == 0:
		return helpStyle.Render("none")
	}
	more := ""
	if pending {
		more = "+"
	}
	counter := fmt.Sprintf("%d/%d%s ", idx+1, len(shots), more)
	return counter + util.TruncatePath(shots[idx], max(8, width-len(counter)))
}
