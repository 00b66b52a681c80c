// Package session holds the state of one browsing session: the query, the
// active filter, the result list and the cursor over it. It turns abstract
// input actions into state changes and tells the caller what to redraw or
// which game to start. It does no I/O of its own beyond asking its
// collaborators.
package session

import (
	"unicode"

	"github.com/rs/zerolog/log"

	"github.com/JohnDeved/gamebase-cli/internal/cache"
	"github.com/JohnDeved/gamebase-cli/internal/catalog"
	"github.com/JohnDeved/gamebase-cli/internal/pager"
	"github.com/JohnDeved/gamebase-cli/internal/settings"
)

// MaxQuery is the longest query in runes.
const MaxQuery = 31

// Cache looks up preview assets.
type Cache interface {
	Previews(rel string) cache.Preview
}

// Pipeline answers install questions.
type Pipeline interface {
	IsInstalled(row int) bool
	Dir(row int) string
	LaunchPath(row int) string
}

// Settings persists preferences.
type Settings interface {
	GetInt(key string, def int) (int, error)
	PutInt(key string, n int) error
}

// Deps are the collaborators of a session. Cache and Settings may be nil.
type Deps struct {
	Store    *catalog.Store
	Cache    Cache
	Pipeline Pipeline
	Settings Settings
}

// Session is the browser state.
type Session struct {
	deps     Deps
	pageSize int

	query  []rune
	caret  int
	filter catalog.Filter

	// dirty means results must be recomputed; reset means the query or
	// filter changed and the cursor goes back to the top.
	dirty   bool
	reset   bool
	results []int
	cur     pager.Cursor

	preview Preview
}

// New creates a session over d. The active filter is restored from
// settings and the initial result list is computed.
func New(d Deps, pageSize int) *Session {
	if pageSize < 1 {
		pageSize = 1
	}
	s := &Session{
		deps:     d,
		pageSize: pageSize,
		filter:   catalog.FilterPopular,
		dirty:    true,
		reset:    true,
	}
	if d.Settings != nil {
		n, err := d.Settings.GetInt(settings.KeyListFilter, int(catalog.FilterPopular))
		if err != nil {
			log.Warn().Err(err).Msg("could not read list filter")
		} else if n >= 0 && n <= int(catalog.FilterInstalled) {
			s.filter = catalog.Filter(n)
		}
	}
	s.Refresh()
	return s
}

// Query returns the current query text.
func (s *Session) Query() string { return string(s.query) }

// Caret returns the caret position in runes.
func (s *Session) Caret() int { return s.caret }

// Filter returns the active filter.
func (s *Session) Filter() catalog.Filter { return s.filter }

// Results returns the matching rows in catalog order.
func (s *Session) Results() []int { return s.results }

// Cursor returns the cursor over Results.
func (s *Session) Cursor() pager.Cursor { return s.cur }

// PageSize returns the number of visible rows.
func (s *Session) PageSize() int { return s.pageSize }

// Store returns the catalog being browsed.
func (s *Session) Store() *catalog.Store { return s.deps.Store }

// Visible returns the rows on the current page.
func (s *Session) Visible() []int {
	start := s.cur.Offset
	if start > len(s.results) {
		start = len(s.results)
	}
	end := start + s.pageSize
	if end > len(s.results) {
		end = len(s.results)
	}
	return s.results[start:end]
}

// Highlighted returns the row under the cursor.
func (s *Session) Highlighted() (int, bool) {
	i := s.cur.Abs()
	if i < 0 || i >= len(s.results) {
		return 0, false
	}
	return s.results[i], true
}

// IsInstalled reports whether row is installed.
func (s *Session) IsInstalled(row int) bool {
	return s.deps.Pipeline != nil && s.deps.Pipeline.IsInstalled(row)
}

// Refresh recomputes the results if the query, filter or install state
// changed, and reports whether it did. A changed query or filter moves the
// cursor to the first row; an install state change only clamps it.
func (s *Session) Refresh() bool {
	if !s.dirty {
		return false
	}
	s.results = catalog.Search(s.deps.Store, string(s.query), s.filter, s.IsInstalled)
	if s.reset {
		s.cur.Reset()
	} else {
		s.cur.Clamp(s.pageSize, len(s.results))
	}
	s.dirty = false
	s.reset = false
	s.RefreshPreview()
	return true
}

// SetPageSize changes the number of visible rows, keeping the highlighted
// row on screen.
func (s *Session) SetPageSize(n int) Outcome {
	if n < 1 {
		n = 1
	}
	if n == s.pageSize {
		return Outcome{}
	}
	s.pageSize = n
	s.cur.Clamp(n, len(s.results))
	return Outcome{Redraw: RedrawFull}
}

// InstalledChanged must be called after the installed state of any row
// changed. The result list is recomputed and the cursor clamped to it.
func (s *Session) InstalledChanged() Outcome {
	s.dirty = true
	s.Refresh()
	return Outcome{Redraw: RedrawFull}
}

func (s *Session) queryChanged() Outcome {
	s.dirty = true
	s.reset = true
	s.Refresh()
	return Outcome{Redraw: RedrawFull}
}

// Insert types r at the caret.
func (s *Session) Insert(r rune) Outcome {
	if !unicode.IsPrint(r) || len(s.query) >= MaxQuery {
		return Outcome{}
	}
	s.query = append(s.query, 0)
	copy(s.query[s.caret+1:], s.query[s.caret:])
	s.query[s.caret] = r
	s.caret++
	return s.queryChanged()
}

// SetQuery replaces the query, truncating it to MaxQuery runes.
func (s *Session) SetQuery(q string) Outcome {
	r := []rune(q)
	if len(r) > MaxQuery {
		r = r[:MaxQuery]
	}
	if string(r) == string(s.query) {
		return Outcome{}
	}
	s.query = r
	s.caret = len(r)
	return s.queryChanged()
}
