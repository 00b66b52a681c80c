package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture(t *testing.T, rows ...string) *Store {
	t.Helper()
	s, err := Parse(strings.NewReader(strings.Join(rows, "\n")), "utf-8")
	require.NoError(t, err)
	return s
}

// row builds a catalog line with the given name and popular flag.
func row(name, popular string) string {
	cols := make([]string, ColPopular+1)
	cols[ColName] = name
	cols[ColPopular] = popular
	return strings.Join(cols, "\t")
}

func TestSearch_CaseInsensitiveInCatalogOrder(t *testing.T) {
	s := fixture(t, "0\tAlpha\t1985", "1\tBeta\t1986", "#comment", "2\tGamma\t1987")

	assert.Equal(t, []int{0, 1, 2}, Search(s, "a", 0, nil))
	assert.Equal(t, []int{0}, Search(s, "ALP", 0, nil))
	assert.Empty(t, Search(s, "delta", 0, nil))
}

func TestSearch_EmptyQueryReturnsAll(t *testing.T) {
	s := fixture(t, "0\tAlpha", "1\tBeta", "2\tGamma")
	assert.Equal(t, []int{0, 1, 2}, Search(s, "", 0, nil))
}

func TestSearch_ExtendingQueryNarrows(t *testing.T) {
	s := fixture(t, "0\tBoulder Dash", "1\tBoulder Dash II", "2\tBruce Lee", "3\tbOULDERs")

	queries := []string{"", "b", "bo", "bou", "boulder", "boulder ", "boulder d", "boulder dash ii"}
	prev := Search(s, queries[0], 0, nil)
	for _, q := range queries[1:] {
		cur := Search(s, q, 0, nil)
		assert.Subset(t, prev, cur, "query %q", q)
		prev = cur
	}
}

func TestSearch_FiltersAreANDed(t *testing.T) {
	s := fixture(t, row("Alpha", "1"), row("Beta", "0"), row("Gamma", "1"))
	installed := func(r int) bool { return r == 1 || r == 2 }

	assert.Equal(t, []int{0, 2}, Search(s, "", FilterPopular, nil))
	assert.Equal(t, []int{1, 2}, Search(s, "", FilterInstalled, installed))
	assert.Equal(t, []int{2}, Search(s, "", FilterPopular|FilterInstalled, installed))
	assert.Empty(t, Search(s, "", FilterInstalled, nil))
}

func TestFilter_NextCycles(t *testing.T) {
	f := Filter(0)
	seen := []Filter{f}
	for i := 0; i < 3; i++ {
		f = f.Next()
		seen = append(seen, f)
	}
	assert.Equal(t, []Filter{0, FilterPopular, FilterInstalled, 0}, seen)
	assert.Equal(t, "all", Filter(0).String())
	assert.Equal(t, "popular+installed", (FilterPopular | FilterInstalled).String())
}

func TestSearchGlob(t *testing.T) {
	s := fixture(t, "0\tBoulder Dash", "1\tBoulder Dash II", "2\tBruce Lee")

	got, err := SearchGlob(s, "boulder*")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, got)

	got, err = SearchGlob(s, "*lee")
	require.NoError(t, err)
	assert.Equal(t, []int{2}, got)
}
