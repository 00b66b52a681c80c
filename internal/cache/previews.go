package cache

import (
	"fmt"
	"path"
	"strings"
)

// MaxNumbered is the highest numbered asset probed after the primary one.
const MaxNumbered = 9

// Preview lists the locally available assets of one record, primary first.
type Preview struct {
	Paths []string
	// Pending is true while any asset of the record is being fetched.
	Pending bool
}

// NumberedPath returns the catalog path of the n-th extra asset of rel,
// e.g. "A/Alpha.png" -> "A/Alpha_2.png".
func NumberedPath(rel string, n int) string {
	ext := path.Ext(rel)
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(rel, ext), n, ext)
}

// Previews returns the cached assets for the catalog path rel and requests
// the next missing one. Assets are discovered one at a time: the walk stops
// at the first numbered asset that is marked missing or not yet cached, so
// each call issues at most two requests.
func (c *Cache) Previews(rel string) Preview {
	var p Preview
	if rel == "" {
		return p
	}

	u := c.URL(rel)
	dest := c.Resolve(u)
	if c.IsReady(dest) {
		p.Paths = append(p.Paths, dest)
	} else {
		c.Request(u, dest, true)
		p.Pending = p.Pending || c.isPending(u)
	}

	for n := 1; n <= MaxNumbered; n++ {
		u := c.URL(NumberedPath(rel, n))
		dest := c.Resolve(u)
		if exists(Sentinel(dest)) {
			break
		}
		if !c.IsReady(dest) {
			c.Request(u, dest, false)
			p.Pending = p.Pending || c.isPending(u)
			break
		}
		p.Paths = append(p.Paths, dest)
	}
	return p
}

func (c *Cache) isPending(u string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[u]
	return ok
}
