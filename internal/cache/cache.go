// Package cache fetches preview assets in the background and keeps them on
// disk under a cache root that mirrors the remote layout.
package cache

import (
	"context"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/JohnDeved/gamebase-cli/internal/client"
)

// Fetcher downloads a URL to a local file.
type Fetcher interface {
	Fetch(ctx context.Context, fileURL, destPath string, progress client.ProgressFunc) error
}

// Status represents a fetch state.
type Status int

const (
	StatusPending Status = iota
	StatusReady
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusReady:
		return "Ready"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Entry is the state of one requested asset.
type Entry struct {
	URL    string
	Path   string
	Status Status
	Err    error
}

// Event reports a finished fetch. Receivers must treat it as "something
// changed on disk" and nothing more; events arrive in completion order,
// which is unrelated to request order.
type Event struct {
	URL  string
	Dest string
	OK   bool
	Err  error
}

// SentinelExt is the suffix of the marker left for assets that are known
// not to exist remotely.
const SentinelExt = ".x"

// Cache maps remote assets to local files and fetches missing ones.
type Cache struct {
	fetcher Fetcher
	root    string
	baseURL string
	sem     chan struct{}

	mu      sync.Mutex
	entries map[string]*Entry
	pending map[string]struct{}
	wg      sync.WaitGroup

	events chan Event
	dirty  atomic.Bool
}

// New creates a cache rooted at root for assets below baseURL. At most
// workers fetches run at once.
func New(f Fetcher, root, baseURL string, workers int) *Cache {
	if workers < 1 {
		workers = 1
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Cache{
		fetcher: f,
		root:    root,
		baseURL: baseURL,
		sem:     make(chan struct{}, workers),
		entries: make(map[string]*Entry),
		pending: make(map[string]struct{}),
		events:  make(chan Event, 64),
	}
}

// URL returns the remote URL of a catalog-relative asset path.
func (c *Cache) URL(rel string) string {
	parts := strings.Split(strings.TrimLeft(rel, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return c.baseURL + strings.Join(parts, "/")
}

// Resolve maps a remote URL to its local cache path. The mapping is
// deterministic and never leaves the cache root.
func (c *Cache) Resolve(rawURL string) string {
	var rel string
	if strings.HasPrefix(rawURL, c.baseURL) {
		rel = strings.TrimPrefix(rawURL, c.baseURL)
	} else if u, err := url.Parse(rawURL); err == nil {
		rel = u.EscapedPath()
	} else {
		rel = rawURL
	}
	if dec, err := url.PathUnescape(rel); err == nil {
		rel = dec
	}
	rel = path.Clean("/" + rel)
	return filepath.Join(c.root, filepath.FromSlash(rel))
}

// Sentinel returns the marker path for dest.
func Sentinel(dest string) string {
	return strings.TrimSuffix(dest, filepath.Ext(dest)) + SentinelExt
}

// IsReady reports whether dest is cached. It never touches the network.
func (c *Cache) IsReady(dest string) bool {
	return exists(dest)
}

// Events returns the channel on which finished fetches are reported.
func (c *Cache) Events() <-chan Event {
	return c.events
}

// TakeDirty reports whether any fetch finished since the last call. It
// covers events dropped because nobody was draining the channel.
func (c *Cache) TakeDirty() bool {
	return c.dirty.Swap(false)
}

// Request starts fetching fileURL into dest unless dest is already cached,
// marked as missing, or being fetched. It never blocks on the network and
// reports whether a fetch was started. A primary asset is never marked as
// missing, so it is retried on every request.
func (c *Cache) Request(fileURL, dest string, primary bool) bool {
	if exists(dest) {
		return false
	}
	if !primary && exists(Sentinel(dest)) {
		return false
	}

	c.mu.Lock()
	if _, ok := c.pending[fileURL]; ok {
		c.mu.Unlock()
		return false
	}
	c.pending[fileURL] = struct{}{}
	c.entries[fileURL] = &Entry{URL: fileURL, Path: dest, Status: StatusPending}
	c.wg.Add(1)
	c.mu.Unlock()

	go c.fetch(fileURL, dest, primary)
	return true
}

func (c *Cache) fetch(fileURL, dest string, primary bool) {
	defer c.wg.Done()

	// Acquire semaphore slot.
	c.sem <- struct{}{}
	err := c.fetcher.Fetch(context.Background(), fileURL, dest, nil)
	<-c.sem

	if err != nil {
		log.Debug().Err(err).Str("url", fileURL).Msg("asset fetch failed")
		if !primary && client.IsPermanent(err) {
			werr := os.MkdirAll(filepath.Dir(dest), 0o755)
			if werr == nil {
				werr = os.WriteFile(Sentinel(dest), nil, 0o644)
			}
			if werr != nil {
				log.Warn().Err(werr).Str("path", dest).Msg("could not write missing-asset marker")
			}
		}
	}

	c.mu.Lock()
	delete(c.pending, fileURL)
	if e, ok := c.entries[fileURL]; ok {
		if err != nil {
			e.Status = StatusFailed
			e.Err = err
		} else {
			e.Status = StatusReady
		}
	}
	c.mu.Unlock()

	c.dirty.Store(true)
	select {
	case c.events <- Event{URL: fileURL, Dest: dest, OK: err == nil, Err: err}:
	default:
	}
}

// Pending returns the number of fetches in flight or queued.
func (c *Cache) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Entries returns a snapshot of every asset requested so far.
func (c *Cache) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		result = append(result, *e)
	}
	return result
}

// Wait blocks until every started fetch has finished.
func (c *Cache) Wait() {
	c.wg.Wait()
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
