package install

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JohnDeved/gamebase-cli/internal/catalog"
	"github.com/JohnDeved/gamebase-cli/internal/client"
)

type game struct {
	name, archive, start string
}

func testCatalog(t *testing.T, games ...game) *catalog.Store {
	t.Helper()
	var lines []string
	for i, g := range games {
		cols := make([]string, catalog.ColTrueDrive+1)
		cols[catalog.ColID] = string(rune('0' + i))
		cols[catalog.ColName] = g.name
		cols[catalog.ColArchive] = g.archive
		cols[catalog.ColStartFile] = g.start
		lines = append(lines, strings.Join(cols, "\t"))
	}
	s, err := catalog.Parse(strings.NewReader(strings.Join(lines, "\n")+"\n"), "utf-8")
	require.NoError(t, err)
	return s
}

type entry struct{ name, body string }

func zipBytes(t *testing.T, entries ...entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		require.NoError(t, err)
		if !strings.HasSuffix(e.name, "/") {
			_, err = w.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

type archives struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (a *archives) put(name string, body []byte) {
	a.mu.Lock()
	a.files[name] = body
	a.mu.Unlock()
}

func archiveServer(t *testing.T, a *archives) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		body, ok := a.files[r.URL.Path]
		a.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

type fakeAttacher struct {
	dirs []string
	err  error
}

func (a *fakeAttacher) DetachUnder(dir string) error {
	a.dirs = append(a.dirs, dir)
	return a.err
}

type fixture struct {
	p       *Pipeline
	root    string
	tmp     string
	attach  *fakeAttacher
	archive *archives
}

func newFixture(t *testing.T, games []game, files map[string][]byte) *fixture {
	t.Helper()
	if files == nil {
		files = map[string][]byte{}
	}
	a := &archives{files: files}
	srv := archiveServer(t, a)
	f := &fixture{
		root:    filepath.Join(t.TempDir(), "games"),
		tmp:     t.TempDir(),
		attach:  &fakeAttacher{},
		archive: a,
	}
	f.p = New(testCatalog(t, games...), client.New(100), f.root, f.tmp, srv.URL+"/", f.attach)
	return f
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Empty(t, names)
}

var alphaGames = []game{
	{name: "Alpha", archive: "Games/A/Alpha.zip", start: "ALPHA.D64"},
	{name: "Beta", archive: "Games/B/Beta.zip", start: "beta.prg"},
}

func alphaFiles(t *testing.T) map[string][]byte {
	return map[string][]byte{
		"/Games/A/Alpha.zip": zipBytes(t,
			entry{name: "ALPHA.D64", body: "disk"},
			entry{name: "docs/"},
			entry{name: "docs/readme.txt", body: "hello"},
		),
		"/Games/B/Beta.zip": []byte("this is not a zip file"),
	}
}

func TestDir(t *testing.T) {
	f := newFixture(t, alphaGames, nil)
	assert.Equal(t, filepath.Join(f.root, "0_Alpha"), f.p.Dir(0))
	assert.Equal(t, filepath.Join(f.root, "0_Alpha", "ALPHA.D64"), f.p.LaunchPath(0))
	assert.Equal(t, "5_", dirName(5, ""))
	assert.Equal(t, "5_Gamma", dirName(5, `Games\G\Gamma.zip`))
}

func TestInstallUninstall_RoundTrip(t *testing.T) {
	f := newFixture(t, alphaGames, alphaFiles(t))
	require.False(t, f.p.IsInstalled(0))

	var states []State
	err := f.p.Install(context.Background(), 0, func(pr Progress) {
		assert.Equal(t, 0, pr.Row)
		if len(states) == 0 || states[len(states)-1] != pr.State {
			states = append(states, pr.State)
		}
	})
	require.NoError(t, err)

	assert.Equal(t, []State{Downloading, Extracting, Installed}, states)
	assert.True(t, f.p.IsInstalled(0))
	assert.Equal(t, []int{0}, f.p.Installed())
	assert.FileExists(t, f.p.LaunchPath(0))
	data, err := os.ReadFile(filepath.Join(f.p.Dir(0), "docs", "readme.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assertEmptyDir(t, f.tmp)

	require.NoError(t, f.p.Uninstall(0))
	assert.False(t, f.p.IsInstalled(0))
	assert.Equal(t, []string{f.p.Dir(0)}, f.attach.dirs)
	assertEmptyDir(t, f.root)
	assertEmptyDir(t, f.tmp)
}

func TestInstall_ReplacesPreviousFiles(t *testing.T) {
	f := newFixture(t, alphaGames, alphaFiles(t))
	require.NoError(t, f.p.Install(context.Background(), 0, nil))

	stale := filepath.Join(f.p.Dir(0), "stale.sav")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	require.NoError(t, f.p.Install(context.Background(), 0, nil))
	assert.NoFileExists(t, stale)
	assert.FileExists(t, f.p.LaunchPath(0))
	assert.True(t, f.p.IsInstalled(0))
}

func TestInstall_DownloadFailure(t *testing.T) {
	f := newFixture(t, alphaGames, map[string][]byte{})

	err := f.p.Install(context.Background(), 0, nil)
	require.Error(t, err)
	assert.True(t, client.IsPermanent(err))
	assert.False(t, f.p.IsInstalled(0))
	assertEmptyDir(t, f.root)
	assertEmptyDir(t, f.tmp)
}

func TestInstall_UnreadableArchive(t *testing.T) {
	f := newFixture(t, alphaGames, alphaFiles(t))

	err := f.p.Install(context.Background(), 1, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrArchive)
	assert.False(t, f.p.IsInstalled(1))
	assertEmptyDir(t, f.root)
	assertEmptyDir(t, f.tmp)
}

func TestInstall_FailureKeepsExistingInstall(t *testing.T) {
	f := newFixture(t, alphaGames, alphaFiles(t))
	require.NoError(t, f.p.Install(context.Background(), 0, nil))

	f.archive.put("/Games/A/Alpha.zip", []byte("corrupt"))
	err := f.p.Install(context.Background(), 0, nil)
	assert.ErrorIs(t, err, ErrArchive)
	assert.True(t, f.p.IsInstalled(0))
	assert.FileExists(t, f.p.LaunchPath(0))
	assert.NoDirExists(t, f.p.Dir(0)+".partial")
}

func TestInstall_RejectsEscapingEntries(t *testing.T) {
	files := map[string][]byte{
		"/Games/A/Alpha.zip": zipBytes(t,
			entry{name: "ALPHA.D64", body: "disk"},
			entry{name: "../../evil.txt", body: "gotcha"},
		),
	}
	f := newFixture(t, alphaGames, files)

	err := f.p.Install(context.Background(), 0, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsafePath) || errors.Is(err, ErrArchive))
	assert.False(t, f.p.IsInstalled(0))
	assert.NoFileExists(t, filepath.Join(filepath.Dir(f.root), "evil.txt"))
	assertEmptyDir(t, f.root)
}

func TestSafeJoin(t *testing.T) {
	dir := filepath.Join("base", "dir")
	for _, name := range []string{"../x", "a/../../x", "/etc/passwd", `..\x`} {
		_, err := safeJoin(dir, name)
		assert.ErrorIs(t, err, ErrUnsafePath, name)
	}
	p, err := safeJoin(dir, "a/b/../c.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a", "c.txt"), p)
}

func TestInstall_BadRecord(t *testing.T) {
	f := newFixture(t, []game{{name: "NoArchive"}}, nil)
	assert.ErrorIs(t, f.p.Install(context.Background(), 0, nil), ErrNoArchive)
	assert.ErrorIs(t, f.p.Install(context.Background(), 5, nil), ErrNoRecord)
}

func TestUninstall_NotInstalledIsNoop(t *testing.T) {
	f := newFixture(t, alphaGames, nil)
	require.NoError(t, f.p.Uninstall(0))
	assert.Empty(t, f.attach.dirs)
}

func TestUninstall_DetachFailureKeepsInstalled(t *testing.T) {
	f := newFixture(t, alphaGames, alphaFiles(t))
	require.NoError(t, f.p.Install(context.Background(), 0, nil))

	f.attach.err = errors.New("drive busy")
	err := f.p.Uninstall(0)
	require.Error(t, err)
	assert.True(t, f.p.IsInstalled(0))
	assert.FileExists(t, f.p.LaunchPath(0))

	// Once the media is released the uninstall goes through.
	f.attach.err = nil
	require.NoError(t, f.p.Uninstall(0))
	assert.False(t, f.p.IsInstalled(0))
	assert.NoDirExists(t, f.p.Dir(0))
}

func TestScan(t *testing.T) {
	games := []game{
		{name: "Alpha", archive: "Games/A/Alpha.zip", start: "ALPHA.D64"},
		{name: "Beta", archive: "Games/B/Beta.zip", start: "beta.prg"},
		{name: "Gamma", archive: "Games/G/Gamma.zip", start: "gamma.prg"},
		{name: "Delta", archive: "Games/D/Delta.zip"},
	}
	f := newFixture(t, games, nil)

	mk := func(dir, file string) {
		require.NoError(t, os.MkdirAll(filepath.Join(f.root, dir), 0o755))
		if file != "" {
			require.NoError(t, os.WriteFile(filepath.Join(f.root, dir, file), nil, 0o644))
		}
	}
	mk("0_Alpha", "ALPHA.D64")
	mk("1_Beta", "")
	mk("2_Other", "gamma.prg")
	mk("3_Delta", "delta.prg")
	mk("99_Ghost", "x")
	mk("garbage", "")

	require.NoError(t, f.p.Scan())
	assert.Equal(t, []int{0}, f.p.Installed())

	require.NoError(t, os.RemoveAll(filepath.Join(f.root, "0_Alpha")))
	require.NoError(t, f.p.Scan())
	assert.Empty(t, f.p.Installed())
}

func TestScan_MissingRoot(t *testing.T) {
	f := newFixture(t, alphaGames, nil)
	require.NoError(t, f.p.Scan())
	assert.Empty(t, f.p.Installed())
}

func TestBitset(t *testing.T) {
	b := newBitset(130)
	b.set(0, true)
	b.set(64, true)
	b.set(129, true)
	b.set(500, true)
	assert.Equal(t, []int{0, 64, 129}, b.rows())
	b.set(64, false)
	assert.False(t, b.get(64))
	assert.False(t, b.get(-1))
}

func TestWatcher_SignalsChanges(t *testing.T) {
	root := filepath.Join(t.TempDir(), "games")
	w, err := NewWatcher(root)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.Mkdir(filepath.Join(root, "0_Alpha"), 0o755))
	select {
	case <-w.Changes():
	case <-time.After(5 * time.Second):
		t.Fatal("no change signalled")
	}
	assert.NoError(t, w.Close())
}
