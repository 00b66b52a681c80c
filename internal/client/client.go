package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const userAgent = "gamebase-cli/1.0"

// HTTPError is returned when the server answers with a non-success status.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// IsPermanent reports whether err is an HTTP client error (4xx), i.e. a
// failure that retrying the same URL will not fix.
func IsPermanent(err error) bool {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode >= 400 && he.StatusCode < 500
	}
	return false
}

// ProgressFunc receives the number of bytes written so far and the expected
// total, which is -1 when the server did not send a length.
type ProgressFunc func(done, total int64)

// Client handles HTTP requests to the catalog, screenshot and archive hosts.
type Client struct {
	headHTTP *http.Client // Short timeout for metadata requests
	dlHTTP   *http.Client // No timeout for file downloads (managed by context)
	limiter  *rate.Limiter
}

// New creates a new client.
func New(reqPerSec float64) *Client {
	if reqPerSec <= 0 {
		reqPerSec = 5.0
	}

	return &Client{
		headHTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
		dlHTTP: &http.Client{
			// No timeout -- downloads are long-running and controlled by context.
			// The 30s timeout on http.Client includes body read time in Go,
			// which would kill any large archive on a slow link.
		},
		limiter: rate.NewLimiter(rate.Limit(reqPerSec), 5),
	}
}

// Head issues a HEAD request and returns the Last-Modified time of the
// resource. A zero time is returned when the header is missing.
func (c *Client) Head(ctx context.Context, fileURL string) (time.Time, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return time.Time{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, fileURL, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.headHTTP.Do(req)
	if err != nil {
		return time.Time{}, fmt.Errorf("fetching %s: %w", fileURL, err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return time.Time{}, &HTTPError{StatusCode: resp.StatusCode, URL: fileURL}
	}

	lm := resp.Header.Get("Last-Modified")
	if lm == "" {
		return time.Time{}, nil
	}
	t, err := http.ParseTime(lm)
	if err != nil {
		return time.Time{}, nil
	}
	return t, nil
}

// Fetch streams fileURL into destPath. The body is written to destPath+".part"
// and renamed once complete, so destPath either holds the whole file or does
// not exist.
func (c *Client) Fetch(ctx context.Context, fileURL, destPath string, progress ProgressFunc) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	// Derive the directory URL for the Referer header.
	referer := fileURL
	if i := strings.LastIndex(fileURL, "/"); i >= 0 {
		referer = fileURL[:i+1]
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", referer)

	resp, err := c.dlHTTP.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", fileURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &HTTPError{StatusCode: resp.StatusCode, URL: fileURL}
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	partPath := destPath + ".part"
	f, err := os.OpenFile(partPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}

	if err := copyWithProgress(ctx, f, resp.Body, resp.ContentLength, progress); err != nil {
		f.Close()
		os.Remove(partPath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(partPath)
		return fmt.Errorf("closing file: %w", err)
	}

	if err := os.Rename(partPath, destPath); err != nil {
		os.Remove(partPath)
		return fmt.Errorf("renaming file: %w", err)
	}
	return nil
}

func copyWithProgress(ctx context.Context, w io.Writer, r io.Reader, total int64, progress ProgressFunc) error {
	var done int64
	buf := make([]byte, 32*1024)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return fmt.Errorf("writing file: %w", werr)
			}
			done += int64(n)
			if progress != nil {
				progress(done, total)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}
	}
}
