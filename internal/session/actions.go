package session

import (
	"github.com/rs/zerolog/log"

	"github.com/JohnDeved/gamebase-cli/internal/media"
	"github.com/JohnDeved/gamebase-cli/internal/settings"
)

// Action is an abstract user input.
type Action int

const (
	ActionNone Action = iota
	ActionUp
	ActionDown
	ActionPageUp
	ActionPageDown
	ActionHome
	ActionEnd
	ActionSelect
	ActionCancel
	ActionInstall
	ActionUninstall
	ActionCycleFilter
	ActionPrevShot
	ActionNextShot
	ActionBackspace
	ActionDelete
	ActionCaretLeft
	ActionCaretRight
	ActionCaretHome
	ActionCaretEnd
	ActionClearQuery
)

// Redraw says how much of the screen changed.
type Redraw int

const (
	RedrawNone Redraw = iota
	// RedrawCursor means only the highlight or query caret moved.
	RedrawCursor
	// RedrawFull means the visible page changed.
	RedrawFull
)

// ConfirmKind is the operation a confirmation is asked for.
type ConfirmKind int

const (
	ConfirmInstall ConfirmKind = iota + 1
	ConfirmUninstall
)

// Confirm asks the driver to confirm an operation on a row and then run it.
type Confirm struct {
	Kind ConfirmKind
	Row  int
	Name string
	// Reinstall is set when installing a row that is already installed.
	Reinstall bool
}

// Outcome tells the driver what to do after an action.
type Outcome struct {
	Redraw  Redraw
	Exit    bool
	Launch  *media.Launch
	Confirm *Confirm
}

// Apply performs a.
func (s *Session) Apply(a Action) Outcome {
	total := len(s.results)
	switch a {
	case ActionUp:
		return s.move(func() bool { return s.cur.MoveBy(-1, s.pageSize, total) })
	case ActionDown:
		return s.move(func() bool { return s.cur.MoveBy(1, s.pageSize, total) })
	case ActionPageUp:
		return s.move(func() bool { return s.cur.MoveBy(-s.pageSize, s.pageSize, total) })
	case ActionPageDown:
		return s.move(func() bool { return s.cur.MoveBy(s.pageSize, s.pageSize, total) })
	case ActionHome:
		return s.move(func() bool { return s.cur.Home(s.pageSize, total) })
	case ActionEnd:
		return s.move(func() bool { return s.cur.End(s.pageSize, total) })

	case ActionSelect:
		row, ok := s.Highlighted()
		if !ok {
			return Outcome{}
		}
		if s.IsInstalled(row) {
			return Outcome{Exit: true, Launch: s.launch(row)}
		}
		return Outcome{Confirm: s.confirm(ConfirmInstall, row)}

	case ActionCancel:
		return Outcome{Exit: true}

	case ActionInstall:
		row, ok := s.Highlighted()
		if !ok {
			return Outcome{}
		}
		return Outcome{Confirm: s.confirm(ConfirmInstall, row)}

	case ActionUninstall:
		row, ok := s.Highlighted()
		if !ok || !s.IsInstalled(row) {
			return Outcome{}
		}
		return Outcome{Confirm: s.confirm(ConfirmUninstall, row)}

	case ActionCycleFilter:
		s.filter = s.filter.Next()
		if s.deps.Settings != nil {
			if err := s.deps.Settings.PutInt(settings.KeyListFilter, int(s.filter)); err != nil {
				log.Warn().Err(err).Msg("could not save list filter")
			}
		}
		return s.queryChanged()

	case ActionPrevShot, ActionNextShot:
		// Screenshots cycle in both directions.
		n := len(s.preview.Shots)
		if n < 2 {
			return Outcome{}
		}
		step := 1
		if a == ActionPrevShot {
			step = n - 1
		}
		s.preview.Shot = (s.preview.Shot + step) % n
		return Outcome{Redraw: RedrawCursor}

	case ActionBackspace:
		if s.caret > 0 {
			s.query = append(s.query[:s.caret-1], s.query[s.caret:]...)
			s.caret--
			return s.queryChanged()
		}
	case ActionDelete:
		if s.caret < len(s.query) {
			s.query = append(s.query[:s.caret], s.query[s.caret+1:]...)
			return s.queryChanged()
		}
	case ActionCaretLeft:
		if s.caret > 0 {
			s.caret--
			return Outcome{Redraw: RedrawCursor}
		}
	case ActionCaretRight:
		if s.caret < len(s.query) {
			s.caret++
			return Outcome{Redraw: RedrawCursor}
		}
	case ActionCaretHome:
		if s.caret != 0 {
			s.caret = 0
			return Outcome{Redraw: RedrawCursor}
		}
	case ActionCaretEnd:
		if s.caret != len(s.query) {
			s.caret = len(s.query)
			return Outcome{Redraw: RedrawCursor}
		}
	case ActionClearQuery:
		if len(s.query) > 0 {
			s.query = s.query[:0]
			s.caret = 0
			return s.queryChanged()
		}
	}
	return Outcome{}
}

// PickRow highlights the row at visible position pos.
func (s *Session) PickRow(pos int) Outcome {
	return s.move(func() bool { return s.cur.Pick(pos, s.pageSize, len(s.results)) })
}

// ScrollTo scrolls to a proportional position of the result list.
func (s *Session) ScrollTo(fraction float64) Outcome {
	return s.move(func() bool { return s.cur.SetAbsolute(fraction, s.pageSize, len(s.results)) })
}

func (s *Session) move(fn func() bool) Outcome {
	before := s.cur
	scrolled := fn()
	if s.cur == before {
		return Outcome{}
	}
	s.RefreshPreview()
	if scrolled {
		return Outcome{Redraw: RedrawFull}
	}
	return Outcome{Redraw: RedrawCursor}
}

func (s *Session) confirm(kind ConfirmKind, row int) *Confirm {
	return &Confirm{
		Kind:      kind,
		Row:       row,
		Name:      s.deps.Store.Record(row).Name(),
		Reinstall: kind == ConfirmInstall && s.IsInstalled(row),
	}
}

func (s *Session) launch(row int) *media.Launch {
	rec := s.deps.Store.Record(row)
	return &media.Launch{
		Row:       row,
		Name:      rec.Name(),
		Dir:       s.deps.Pipeline.Dir(row),
		Path:      s.deps.Pipeline.LaunchPath(row),
		NTSC:      rec.NTSC(),
		TrueDrive: rec.TrueDrive(),
	}
}
