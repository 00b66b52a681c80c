package session

import "github.com/JohnDeved/gamebase-cli/internal/catalog"

// Preview is the detail view of the highlighted record.
type Preview struct {
	Valid     bool
	Row       int
	Record    catalog.Record
	Installed bool

	// Shots are the cached screenshots, primary first; Shot indexes the
	// one on display.
	Shots       []string
	Shot        int
	ShotPending bool
}

// CurrentShot returns the path of the displayed screenshot, or "".
func (p Preview) CurrentShot() string {
	if p.Shot < 0 || p.Shot >= len(p.Shots) {
		return ""
	}
	return p.Shots[p.Shot]
}

// Preview returns the detail view of the highlighted record.
func (s *Session) Preview() Preview {
	return s.preview
}

// RefreshPreview recomputes the preview, requesting missing screenshots.
// The displayed screenshot index is kept while the highlighted row stays
// the same. It reports whether the preview changed.
func (s *Session) RefreshPreview() bool {
	old := s.preview
	row, ok := s.Highlighted()
	if !ok {
		s.preview = Preview{}
		return old.Valid
	}

	p := Preview{
		Valid:     true,
		Row:       row,
		Record:    s.deps.Store.Record(row),
		Installed: s.IsInstalled(row),
	}
	if s.deps.Cache != nil {
		cp := s.deps.Cache.Previews(p.Record.Screenshot())
		p.Shots = cp.Paths
		p.ShotPending = cp.Pending
	}
	if old.Valid && old.Row == row && old.Shot < len(p.Shots) {
		p.Shot = old.Shot
	}
	s.preview = p
	return !samePreview(old, p)
}

func samePreview(a, b Preview) bool {
	if a.Valid != b.Valid || a.Row != b.Row || a.Installed != b.Installed ||
		a.Shot != b.Shot || a.ShotPending != b.ShotPending || len(a.Shots) != len(b.Shots) {
		return false
	}
	for i := range a.Shots {
		if a.Shots[i] != b.Shots[i] {
			return false
		}
	}
	return true
}
