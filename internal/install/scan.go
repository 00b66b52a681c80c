package install

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type bitset []uint64

func newBitset(n int) bitset {
	return make(bitset, (n+63)/64)
}

func (b bitset) get(i int) bool {
	if i < 0 || i/64 >= len(b) {
		return false
	}
	return b[i/64]&(1<<(uint(i)%64)) != 0
}

func (b bitset) set(i int, v bool) {
	if i < 0 || i/64 >= len(b) {
		return
	}
	if v {
		b[i/64] |= 1 << (uint(i) % 64)
	} else {
		b[i/64] &^= 1 << (uint(i) % 64)
	}
}

func (b bitset) rows() []int {
	var out []int
	for w, word := range b {
		for bit := 0; word != 0 && bit < 64; bit++ {
			if word&(1<<uint(bit)) != 0 {
				out = append(out, w*64+bit)
			}
		}
	}
	return out
}

// Scan rebuilds the installed state from the content root. A record is
// installed when its directory exists and holds its start file. A missing
// content root means nothing is installed.
func (p *Pipeline) Scan() error {
	next := newBitset(p.store.Count())

	entries, err := os.ReadDir(p.contentRoot)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("scanning %s: %w", p.contentRoot, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		prefix, _, ok := strings.Cut(e.Name(), "_")
		if !ok {
			continue
		}
		row, err := strconv.Atoi(prefix)
		if err != nil || row < 0 || row >= p.store.Count() {
			continue
		}
		rec := p.store.Record(row)
		if rec.StartFile() == "" || e.Name() != dirName(row, rec.ArchivePath()) {
			continue
		}
		start := filepath.Join(p.contentRoot, e.Name(), filepath.FromSlash(rec.StartFile()))
		if _, err := os.Stat(start); err == nil {
			next.set(row, true)
		}
	}

	p.mu.Lock()
	p.installed = next
	p.mu.Unlock()
	return nil
}
