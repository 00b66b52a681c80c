package catalog

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// Filter is a set of flags that narrow a search. Flags are ANDed.
type Filter uint8

const (
	// FilterPopular keeps only records flagged as popular.
	FilterPopular Filter = 1 << iota
	// FilterInstalled keeps only installed records.
	FilterInstalled
)

// Next cycles through the filter presets offered by the browser:
// none, popular, installed, none, ...
func (f Filter) Next() Filter {
	switch f {
	case 0:
		return FilterPopular
	case FilterPopular:
		return FilterInstalled
	default:
		return 0
	}
}

func (f Filter) String() string {
	var parts []string
	if f&FilterPopular != 0 {
		parts = append(parts, "popular")
	}
	if f&FilterInstalled != 0 {
		parts = append(parts, "installed")
	}
	if len(parts) == 0 {
		return "all"
	}
	return strings.Join(parts, "+")
}

// Search returns the rows whose name contains query, ignoring case, and that
// pass every flag in filter. An empty query matches every row. Rows are
// returned in catalog order. installed may be nil when filter does not
// include FilterInstalled.
func Search(s *Store, query string, filter Filter, installed func(row int) bool) []int {
	q := strings.ToLower(query)
	results := make([]int, 0, s.Count())
	for row := 0; row < s.Count(); row++ {
		rec := s.Record(row)
		if filter&FilterPopular != 0 && !rec.Popular() {
			continue
		}
		if filter&FilterInstalled != 0 && (installed == nil || !installed(row)) {
			continue
		}
		if q != "" {
			name, ok := s.Field(row, ColName)
			if !ok || !strings.Contains(strings.ToLower(name), q) {
				continue
			}
		}
		results = append(results, row)
	}
	return results
}

// SearchGlob returns the rows whose name matches the shell-style pattern,
// ignoring case.
func SearchGlob(s *Store, pattern string) ([]int, error) {
	g, err := glob.Compile(strings.ToLower(pattern))
	if err != nil {
		return nil, fmt.Errorf("compiling pattern %q: %w", pattern, err)
	}
	var results []int
	for row := 0; row < s.Count(); row++ {
		if g.Match(strings.ToLower(s.Value(row, ColName))) {
			results = append(results, row)
		}
	}
	return results, nil
}
