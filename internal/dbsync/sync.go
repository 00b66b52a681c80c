// Package dbsync downloads the catalog and checks it for updates.
package dbsync

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/JohnDeved/gamebase-cli/internal/client"
	"github.com/JohnDeved/gamebase-cli/internal/settings"
)

// Remote is the HTTP side of a sync.
type Remote interface {
	Head(ctx context.Context, fileURL string) (time.Time, error)
	Fetch(ctx context.Context, fileURL, destPath string, progress client.ProgressFunc) error
}

// Store remembers the modification time of the downloaded catalog.
type Store interface {
	GetTime(key string) (time.Time, error)
	PutTime(key string, t time.Time) error
}

// Status describes the local catalog relative to the remote one.
type Status struct {
	Present         bool
	Local           time.Time
	Remote          time.Time
	UpdateAvailable bool
}

// Syncer keeps the catalog file at dest in sync with url.
type Syncer struct {
	remote Remote
	store  Store
	url    string
	dest   string
}

// New creates a syncer for the catalog at url, stored at dest.
func New(r Remote, s Store, url, dest string) *Syncer {
	return &Syncer{remote: r, store: s, url: url, dest: dest}
}

// Path returns the local catalog path.
func (s *Syncer) Path() string {
	return s.dest
}

// Exists reports whether a local catalog is present.
func (s *Syncer) Exists() bool {
	_, err := os.Stat(s.dest)
	return err == nil
}

// Check compares the local catalog with the remote one. A failing HEAD
// request is returned as an error; callers may browse the local copy anyway.
func (s *Syncer) Check(ctx context.Context) (Status, error) {
	st := Status{Present: s.Exists()}
	local, err := s.store.GetTime(settings.KeyCatalogMtime)
	if err != nil {
		return st, err
	}
	st.Local = local

	remote, err := s.remote.Head(ctx, s.url)
	if err != nil {
		return st, fmt.Errorf("checking catalog: %w", err)
	}
	st.Remote = remote
	st.UpdateAvailable = !st.Present || (!remote.IsZero() && remote.After(local))
	return st, nil
}

// Download fetches the catalog, unpacking it when the URL names a gzip
// file, and records its modification time. The previous catalog is only
// replaced once the new one is complete.
func (s *Syncer) Download(ctx context.Context, progress client.ProgressFunc) error {
	mtime, err := s.remote.Head(ctx, s.url)
	if err != nil {
		log.Debug().Err(err).Msg("catalog HEAD failed, downloading without mtime")
		mtime = time.Time{}
	}

	if err := os.MkdirAll(filepath.Dir(s.dest), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	gz := strings.HasSuffix(strings.ToLower(s.url), ".gz")
	fetchPath := s.dest
	if gz {
		fetchPath = s.dest + ".gz"
		defer os.Remove(fetchPath)
	}
	if err := s.remote.Fetch(ctx, s.url, fetchPath, progress); err != nil {
		return fmt.Errorf("downloading catalog: %w", err)
	}
	if gz {
		if err := gunzip(fetchPath, s.dest); err != nil {
			return err
		}
	}

	if !mtime.IsZero() {
		if err := s.store.PutTime(settings.KeyCatalogMtime, mtime); err != nil {
			return fmt.Errorf("recording catalog time: %w", err)
		}
	}
	log.Info().Str("path", s.dest).Time("mtime", mtime).Msg("catalog downloaded")
	return nil
}

// Ensure downloads the catalog when it is missing or force is set, and
// reports whether it did.
func (s *Syncer) Ensure(ctx context.Context, force bool, progress client.ProgressFunc) (bool, error) {
	if s.Exists() && !force {
		return false, nil
	}
	if err := s.Download(ctx, progress); err != nil {
		return false, err
	}
	return true, nil
}

// ErrCorrupt is returned when the downloaded catalog is not valid gzip.
var ErrCorrupt = errors.New("corrupt catalog download")

func gunzip(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	zr, err := gzip.NewReader(in)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer zr.Close()

	partPath := dest + ".part"
	out, err := os.OpenFile(partPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	if _, err := io.Copy(out, zr); err != nil {
		out.Close()
		os.Remove(partPath)
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(partPath)
		return fmt.Errorf("closing file: %w", err)
	}
	if err := os.Rename(partPath, dest); err != nil {
		os.Remove(partPath)
		return fmt.Errorf("renaming file: %w", err)
	}
	return nil
}
