package session

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JohnDeved/gamebase-cli/internal/cache"
	"github.com/JohnDeved/gamebase-cli/internal/catalog"
	"github.com/JohnDeved/gamebase-cli/internal/settings"
)

type fakePipeline struct {
	installed map[int]bool
}

func (p *fakePipeline) IsInstalled(row int) bool  { return p.installed[row] }
func (p *fakePipeline) Dir(row int) string        { return filepath.Join("/games", fmt.Sprintf("%d_x", row)) }
func (p *fakePipeline) LaunchPath(row int) string { return filepath.Join(p.Dir(row), "start.prg") }

type fakeCache struct {
	shots map[string][]string
	calls []string
}

func (c *fakeCache) Previews(rel string) cache.Preview {
	c.calls = append(c.calls, rel)
	return cache.Preview{Paths: c.shots[rel]}
}

type fakeSettings map[string]int

func (f fakeSettings) GetInt(key string, def int) (int, error) {
	if v, ok := f[key]; ok {
		return v, nil
	}
	return def, nil
}

func (f fakeSettings) PutInt(key string, n int) error {
	f[key] = n
	return nil
}

// games builds a catalog of n records named "Game 00".."Game n-1"; every
// third one is not popular.
func games(t *testing.T, n int) *catalog.Store {
	t.Helper()
	var lines []string
	for i := 0; i < n; i++ {
		cols := make([]string, catalog.ColTrueDrive+1)
		cols[catalog.ColName] = fmt.Sprintf("Game %02d", i)
		cols[catalog.ColScreenshot] = fmt.Sprintf("G/Game_%02d.png", i)
		cols[catalog.ColPopular] = "1"
		if i%3 == 2 {
			cols[catalog.ColPopular] = "0"
		}
		cols[catalog.ColVideoMode] = "2"
		cols[catalog.ColTrueDrive] = "0"
		lines = append(lines, strings.Join(cols, "\t"))
	}
	s, err := catalog.Parse(strings.NewReader(strings.Join(lines, "\n")), "utf-8")
	require.NoError(t, err)
	return s
}

type env struct {
	s        *Session
	pipe     *fakePipeline
	cache    *fakeCache
	settings fakeSettings
}

func newEnv(t *testing.T, n, page int, filter int) *env {
	t.Helper()
	e := &env{
		pipe:     &fakePipeline{installed: map[int]bool{}},
		cache:    &fakeCache{shots: map[string][]string{}},
		settings: fakeSettings{settings.KeyListFilter: filter},
	}
	e.s = New(Deps{Store: games(t, n), Cache: e.cache, Pipeline: e.pipe, Settings: e.settings}, page)
	return e
}

func TestNew_RestoresFilter(t *testing.T) {
	e := newEnv(t, 9, 5, 0)
	assert.Equal(t, catalog.Filter(0), e.s.Filter())
	assert.Len(t, e.s.Results(), 9)

	s := New(Deps{Store: games(t, 9), Pipeline: e.pipe, Settings: fakeSettings{}}, 5)
	assert.Equal(t, catalog.FilterPopular, s.Filter())
	assert.Equal(t, []int{0, 1, 3, 4, 6, 7}, s.Results())

	s = New(Deps{Store: games(t, 9), Pipeline: e.pipe, Settings: fakeSettings{settings.KeyListFilter: 42}}, 5)
	assert.Equal(t, catalog.FilterPopular, s.Filter())
}

func TestQueryEditing(t *testing.T) {
	e := newEnv(t, 12, 5, 0)
	s := e.s

	for _, r := range "gme 1" {
		s.Insert(r)
	}
	assert.Equal(t, "gme 1", s.Query())
	assert.Empty(t, s.Results())

	s.Apply(ActionCaretHome)
	s.Apply(ActionCaretRight)
	out := s.Insert('a')
	assert.Equal(t, RedrawFull, out.Redraw)
	assert.Equal(t, "game 1", s.Query())
	assert.Equal(t, []int{10, 11}, s.Results())
	assert.Equal(t, 2, s.Caret())

	s.Apply(ActionCaretEnd)
	s.Apply(ActionBackspace)
	assert.Equal(t, "game ", s.Query())
	assert.Len(t, s.Results(), 12)

	s.Apply(ActionCaretHome)
	s.Apply(ActionDelete)
	assert.Equal(t, "ame ", s.Query())

	assert.Equal(t, Outcome{}, s.Apply(ActionCaretLeft))
	s.Apply(ActionClearQuery)
	assert.Equal(t, "", s.Query())
	assert.Equal(t, 0, s.Caret())
}

func TestQuery_MaxLength(t *testing.T) {
	e := newEnv(t, 3, 5, 0)
	for i := 0; i < MaxQuery+5; i++ {
		e.s.Insert('x')
	}
	assert.Len(t, []rune(e.s.Query()), MaxQuery)
	assert.Equal(t, Outcome{}, e.s.Insert('\n'))

	e.s.SetQuery(strings.Repeat("y", 40))
	assert.Len(t, e.s.Query(), MaxQuery)
}

func TestQueryChangeResetsCursor(t *testing.T) {
	e := newEnv(t, 30, 5, 0)
	s := e.s
	s.Apply(ActionPageDown)
	s.Apply(ActionPageDown)
	require.NotZero(t, s.Cursor().Abs())

	s.Insert('g')
	assert.Equal(t, 0, s.Cursor().Abs())
}

func TestNavigation_Redraw(t *testing.T) {
	e := newEnv(t, 12, 5, 0)
	s := e.s

	assert.Equal(t, Outcome{}, s.Apply(ActionUp))
	for i := 0; i < 4; i++ {
		assert.Equal(t, RedrawCursor, s.Apply(ActionDown).Redraw)
	}
	assert.Equal(t, RedrawFull, s.Apply(ActionDown).Redraw)
	assert.Equal(t, 5, s.Cursor().Abs())

	assert.Equal(t, RedrawFull, s.Apply(ActionEnd).Redraw)
	row, ok := s.Highlighted()
	require.True(t, ok)
	assert.Equal(t, 11, row)
	assert.Equal(t, []int{7, 8, 9, 10, 11}, s.Visible())

	assert.Equal(t, RedrawFull, s.Apply(ActionHome).Redraw)
	assert.Equal(t, 0, s.Cursor().Abs())

	assert.Equal(t, RedrawCursor, s.PickRow(3).Redraw)
	assert.Equal(t, 3, s.Cursor().Abs())
	assert.Equal(t, RedrawFull, s.ScrollTo(1).Redraw)
}

func TestSelect_InstalledExitsWithLaunch(t *testing.T) {
	e := newEnv(t, 5, 5, 0)
	e.pipe.installed[1] = true
	e.s.InstalledChanged()
	e.s.Apply(ActionDown)

	out := e.s.Apply(ActionSelect)
	assert.True(t, out.Exit)
	require.NotNil(t, out.Launch)
	assert.Equal(t, 1, out.Launch.Row)
	assert.Equal(t, "Game 01", out.Launch.Name)
	assert.Equal(t, e.pipe.LaunchPath(1), out.Launch.Path)
	assert.Equal(t, e.pipe.Dir(1), out.Launch.Dir)
	assert.True(t, out.Launch.NTSC)
	assert.False(t, out.Launch.TrueDrive)
}

func TestSelect_NotInstalledAsksToInstall(t *testing.T) {
	e := newEnv(t, 5, 5, 0)

	out := e.s.Apply(ActionSelect)
	assert.False(t, out.Exit)
	require.NotNil(t, out.Confirm)
	assert.Equal(t, ConfirmInstall, out.Confirm.Kind)
	assert.Equal(t, 0, out.Confirm.Row)
	assert.False(t, out.Confirm.Reinstall)
}

func TestSelect_EmptyResults(t *testing.T) {
	e := newEnv(t, 5, 5, 0)
	e.s.SetQuery("zzz")
	assert.Equal(t, Outcome{}, e.s.Apply(ActionSelect))
	assert.Equal(t, Outcome{}, e.s.Apply(ActionUninstall))
	assert.Equal(t, Outcome{}, e.s.Apply(ActionDown))
	assert.False(t, e.s.Preview().Valid)
}

func TestCancel(t *testing.T) {
	e := newEnv(t, 5, 5, 0)
	out := e.s.Apply(ActionCancel)
	assert.True(t, out.Exit)
	assert.Nil(t, out.Launch)
}

func TestUninstall_OnlyWhenInstalled(t *testing.T) {
	e := newEnv(t, 5, 5, 0)
	assert.Nil(t, e.s.Apply(ActionUninstall).Confirm)

	e.pipe.installed[0] = true
	out := e.s.Apply(ActionUninstall)
	require.NotNil(t, out.Confirm)
	assert.Equal(t, ConfirmUninstall, out.Confirm.Kind)

	out = e.s.Apply(ActionInstall)
	require.NotNil(t, out.Confirm)
	assert.True(t, out.Confirm.Reinstall)
}

func TestCycleFilter_PersistsAndFilters(t *testing.T) {
	e := newEnv(t, 9, 5, 0)
	e.pipe.installed[2] = true
	e.pipe.installed[4] = true

	e.s.Apply(ActionCycleFilter)
	assert.Equal(t, catalog.FilterPopular, e.s.Filter())
	assert.Equal(t, int(catalog.FilterPopular), e.settings[settings.KeyListFilter])
	assert.Equal(t, []int{0, 1, 3, 4, 6, 7}, e.s.Results())

	e.s.Apply(ActionCycleFilter)
	assert.Equal(t, catalog.FilterInstalled, e.s.Filter())
	assert.Equal(t, []int{2, 4}, e.s.Results())

	// Uninstalling under the installed filter drops the row.
	e.pipe.installed[4] = false
	e.s.Apply(ActionDown)
	e.s.InstalledChanged()
	assert.Equal(t, []int{2}, e.s.Results())
	assert.Equal(t, 0, e.s.Cursor().Abs())

	e.s.Apply(ActionCycleFilter)
	assert.Equal(t, catalog.Filter(0), e.s.Filter())
	assert.Equal(t, 0, e.settings[settings.KeyListFilter])
}

func TestInstalledChanged_KeepsCursor(t *testing.T) {
	e := newEnv(t, 12, 5, 0)
	e.s.Apply(ActionPageDown)
	e.s.Apply(ActionDown)
	before := e.s.Cursor()

	e.pipe.installed[6] = true
	e.s.InstalledChanged()
	assert.Equal(t, before, e.s.Cursor())
	assert.True(t, e.s.Preview().Installed == e.pipe.installed[e.s.Preview().Row])
}

func TestPreview_Screenshots(t *testing.T) {
	e := newEnv(t, 5, 5, 0)
	e.cache.shots["G/Game_01.png"] = []string{"/c/Game_01.png", "/c/Game_01_1.png"}

	p := e.s.Preview()
	require.True(t, p.Valid)
	assert.Equal(t, 0, p.Row)
	assert.Equal(t, "", p.CurrentShot())
	assert.Equal(t, Outcome{}, e.s.Apply(ActionNextShot))

	e.s.Apply(ActionDown)
	p = e.s.Preview()
	assert.Equal(t, 1, p.Row)
	assert.Equal(t, "Game 01", p.Record.Name())
	assert.Equal(t, "/c/Game_01.png", p.CurrentShot())

	assert.Equal(t, RedrawCursor, e.s.Apply(ActionNextShot).Redraw)
	assert.Equal(t, "/c/Game_01_1.png", e.s.Preview().CurrentShot())

	// Stepping past the last screenshot wraps to the first and back.
	assert.Equal(t, RedrawCursor, e.s.Apply(ActionNextShot).Redraw)
	assert.Equal(t, "/c/Game_01.png", e.s.Preview().CurrentShot())
	assert.Equal(t, RedrawCursor, e.s.Apply(ActionPrevShot).Redraw)
	assert.Equal(t, "/c/Game_01_1.png", e.s.Preview().CurrentShot())

	// A cache event keeps the selected screenshot.
	e.cache.shots["G/Game_01.png"] = append(e.cache.shots["G/Game_01.png"], "/c/Game_01_2.png")
	assert.True(t, e.s.RefreshPreview())
	assert.Equal(t, 1, e.s.Preview().Shot)
	assert.False(t, e.s.RefreshPreview())

	e.s.Apply(ActionPrevShot)
	assert.Equal(t, 0, e.s.Preview().Shot)
	e.s.Apply(ActionPrevShot)
	assert.Equal(t, 2, e.s.Preview().Shot)

	assert.Contains(t, e.cache.calls, "G/Game_01.png")
}

func TestSetPageSize(t *testing.T) {
	e := newEnv(t, 20, 10, 0)
	e.s.Apply(ActionEnd)
	require.Equal(t, 19, e.s.Cursor().Abs())

	assert.Equal(t, RedrawFull, e.s.SetPageSize(4).Redraw)
	assert.Equal(t, 19, e.s.Cursor().Abs())
	assert.Len(t, e.s.Visible(), 4)
	assert.Equal(t, Outcome{}, e.s.SetPageSize(4))
}
