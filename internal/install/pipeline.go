// Package install turns catalog records into runnable local content: it
// downloads a record's archive, extracts it into a per-record directory and
// keeps track of which records are installed.
package install

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/JohnDeved/gamebase-cli/internal/catalog"
	"github.com/JohnDeved/gamebase-cli/internal/client"
)

var (
	// ErrArchive is returned when a downloaded archive cannot be read.
	ErrArchive = errors.New("unreadable archive")
	// ErrUnsafePath is returned for archive entries that would extract
	// outside the content directory.
	ErrUnsafePath = errors.New("unsafe path in archive")
	// ErrNoArchive is returned for records without an archive path.
	ErrNoArchive = errors.New("record has no archive")
	// ErrNoRecord is returned for rows outside the catalog.
	ErrNoRecord = errors.New("no such record")
	// ErrBusy is returned when another install or uninstall is running.
	ErrBusy = errors.New("another install is in progress")
)

// State is the install state of a record.
type State int

const (
	NotInstalled State = iota
	Downloading
	Extracting
	Installed
)

func (s State) String() string {
	switch s {
	case NotInstalled:
		return "Not installed"
	case Downloading:
		return "Downloading"
	case Extracting:
		return "Extracting"
	case Installed:
		return "Installed"
	default:
		return "Unknown"
	}
}

// Progress reports the phase of a running install. Done and Total are byte
// counts while downloading; Total is -1 when unknown.
type Progress struct {
	Row   int
	State State
	Done  int64
	Total int64
}

// Fraction returns the download progress in [0,1], or 0 when unknown.
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Done) / float64(p.Total)
}

// ProgressFunc receives install progress.
type ProgressFunc func(Progress)

// Fetcher downloads a URL to a local file.
type Fetcher interface {
	Fetch(ctx context.Context, fileURL, destPath string, progress client.ProgressFunc) error
}

// Attacher releases emulator media that live inside a directory.
type Attacher interface {
	DetachUnder(dir string) error
}

// Journal is told about completed installs and uninstalls.
type Journal interface {
	RecordInstall(row int, name, dir string) error
	RemoveInstall(row int) error
}

// Pipeline installs and uninstalls catalog records.
type Pipeline struct {
	store       *catalog.Store
	fetcher     Fetcher
	contentRoot string
	tempDir     string
	baseURL     string
	attacher    Attacher
	journal     Journal

	mu        sync.RWMutex
	installed bitset

	busy sync.Mutex
}

// New creates a pipeline that extracts into contentRoot and downloads
// archives relative to baseURL. attacher may be nil.
func New(store *catalog.Store, f Fetcher, contentRoot, tempDir, baseURL string, attacher Attacher) *Pipeline {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Pipeline{
		store:       store,
		fetcher:     f,
		contentRoot: contentRoot,
		tempDir:     tempDir,
		baseURL:     baseURL,
		attacher:    attacher,
		installed:   newBitset(store.Count()),
	}
}

// SetJournal sets the journal notified after installs and uninstalls.
func (p *Pipeline) SetJournal(j Journal) {
	p.journal = j
}

// ContentRoot returns the directory records are installed under.
func (p *Pipeline) ContentRoot() string {
	return p.contentRoot
}

// Dir returns the content directory of row: <root>/<row>_<archive stem>.
func (p *Pipeline) Dir(row int) string {
	return filepath.Join(p.contentRoot, dirName(row, p.store.Record(row).ArchivePath()))
}

func dirName(row int, archive string) string {
	base := ""
	if archive != "" {
		base = path.Base(strings.ReplaceAll(archive, `\`, "/"))
		base = strings.TrimSuffix(base, path.Ext(base))
	}
	return strconv.Itoa(row) + "_" + base
}

// LaunchPath returns the start file of an installed row.
func (p *Pipeline) LaunchPath(row int) string {
	return filepath.Join(p.Dir(row), filepath.FromSlash(p.store.Record(row).StartFile()))
}

// IsInstalled reports whether row is installed.
func (p *Pipeline) IsInstalled(row int) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.installed.get(row)
}

// Installed returns the installed rows in catalog order.
func (p *Pipeline) Installed() []int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.installed.rows()
}

func (p *Pipeline) set(row int, v bool) {
	p.mu.Lock()
	p.installed.set(row, v)
	p.mu.Unlock()
}

func (p *Pipeline) archiveURL(archive string) string {
	parts := strings.Split(strings.TrimLeft(strings.ReplaceAll(archive, `\`, "/"), "/"), "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return p.baseURL + strings.Join(parts, "/")
}

// Install downloads and extracts row. An installed row is downloaded again
// and its directory replaced. On any failure the installed state of row is
// left unchanged and no temporary files remain.
func (p *Pipeline) Install(ctx context.Context, row int, progress ProgressFunc) error {
	if row < 0 || row >= p.store.Count() {
		return fmt.Errorf("%w: %d", ErrNoRecord, row)
	}
	rec := p.store.Record(row)
	if rec.ArchivePath() == "" {
		return fmt.Errorf("%w: %s", ErrNoArchive, rec.Name())
	}
	if !p.busy.TryLock() {
		return ErrBusy
	}
	defer p.busy.Unlock()

	report := func(pr Progress) {
		pr.Row = row
		if progress != nil {
			progress(pr)
		}
	}

	if err := os.MkdirAll(p.tempDir, 0o755); err != nil {
		return fmt.Errorf("creating temp directory: %w", err)
	}
	tmp := filepath.Join(p.tempDir, fmt.Sprintf("gamebase-%d.zip", row))
	defer os.Remove(tmp)

	fileURL := p.archiveURL(rec.ArchivePath())
	log.Info().Int("row", row).Str("url", fileURL).Msg("downloading archive")
	report(Progress{State: Downloading, Total: -1})
	err := p.fetcher.Fetch(ctx, fileURL, tmp, func(done, total int64) {
		report(Progress{State: Downloading, Done: done, Total: total})
	})
	if err != nil {
		return fmt.Errorf("downloading %s: %w", rec.Name(), err)
	}

	report(Progress{State: Extracting, Total: -1})
	dir := p.Dir(row)
	staging := dir + ".partial"
	if err := os.RemoveAll(staging); err != nil {
		return fmt.Errorf("clearing %s: %w", staging, err)
	}
	n, err := extractZip(tmp, staging)
	if err != nil {
		os.RemoveAll(staging)
		return fmt.Errorf("extracting %s: %w", rec.Name(), err)
	}
	if err := os.RemoveAll(dir); err != nil {
		os.RemoveAll(staging)
		return fmt.Errorf("removing previous install %s: %w", dir, err)
	}
	if err := os.Rename(staging, dir); err != nil {
		os.RemoveAll(staging)
		return fmt.Errorf("moving %s into place: %w", dir, err)
	}

	if _, err := os.Stat(p.LaunchPath(row)); err != nil {
		log.Warn().Int("row", row).Str("start", rec.StartFile()).Msg("archive has no start file")
	}
	p.set(row, true)
	log.Info().Int("row", row).Int("files", n).Str("dir", dir).Msg("installed")

	if p.journal != nil {
		if err := p.journal.RecordInstall(row, rec.Name(), dir); err != nil {
			log.Warn().Err(err).Int("row", row).Msg("could not record install")
		}
	}
	report(Progress{State: Installed})
	return nil
}

// Uninstall detaches media inside the row's directory and removes it.
// Uninstalling a row that is not installed does nothing. The row stays
// installed unless both steps succeed; a failed detach leaves the files
// in place.
func (p *Pipeline) Uninstall(row int) error {
	if !p.IsInstalled(row) {
		return nil
	}
	if !p.busy.TryLock() {
		return ErrBusy
	}
	defer p.busy.Unlock()

	dir := p.Dir(row)
	if p.attacher != nil {
		if err := p.attacher.DetachUnder(dir); err != nil {
			return fmt.Errorf("detaching media in %s: %w", dir, err)
		}
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing %s: %w", dir, err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: directory still present", dir)
	}

	p.set(row, false)
	log.Info().Int("row", row).Str("dir", dir).Msg("uninstalled")
	if p.journal != nil {
		if err := p.journal.RemoveInstall(row); err != nil {
			log.Warn().Err(err).Int("row", row).Msg("could not update install journal")
		}
	}
	return nil
}
