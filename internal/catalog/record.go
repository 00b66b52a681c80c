package catalog

import "strings"

// Column indices of the catalog file.
const (
	ColID         = 0
	ColName       = 1
	ColPublisher  = 2
	ColArchive    = 3
	ColStartFile  = 4
	ColScreenshot = 6
	ColGenre      = 8
	ColParent     = 9
	ColYear       = 10
	ColLanguage   = 14
	ColPopular    = 16
	ColNote       = 18
	ColNote2      = 19
	ColVideoMode  = 20
	ColTrueDrive  = 21
)

// Record is a read-only view of one catalog row.
type Record struct {
	s   *Store
	Row int
}

// Record returns a view of row. It does not check bounds; accessors of an
// out-of-range record return empty values.
func (s *Store) Record(row int) Record {
	return Record{s: s, Row: row}
}

func (r Record) Name() string        { return r.s.Value(r.Row, ColName) }
func (r Record) Publisher() string   { return r.s.Value(r.Row, ColPublisher) }
func (r Record) Year() string        { return r.s.Value(r.Row, ColYear) }
func (r Record) Language() string    { return r.s.Value(r.Row, ColLanguage) }
func (r Record) ArchivePath() string { return r.s.Value(r.Row, ColArchive) }
func (r Record) StartFile() string   { return r.s.Value(r.Row, ColStartFile) }
func (r Record) Screenshot() string  { return r.s.Value(r.Row, ColScreenshot) }

// Genre joins the parent genre and genre as "Parent - Genre".
func (r Record) Genre() string {
	parent := r.s.Value(r.Row, ColParent)
	genre := r.s.Value(r.Row, ColGenre)
	if parent != "" && genre != "" {
		return parent + " - " + genre
	}
	return parent + genre
}

// Notes returns the non-empty note columns.
func (r Record) Notes() []string {
	var notes []string
	for _, col := range []int{ColNote, ColNote2} {
		if v := strings.TrimSpace(r.s.Value(r.Row, col)); v != "" {
			notes = append(notes, v)
		}
	}
	return notes
}

// Popular reports whether the record is flagged as popular. A missing
// column counts as popular; only an explicit "0" does not.
func (r Record) Popular() bool {
	v, ok := r.s.Field(r.Row, ColPopular)
	return !ok || !strings.HasPrefix(v, "0")
}

// NTSC reports whether the game wants an NTSC machine. Video mode 2 is NTSC,
// everything else runs on PAL.
func (r Record) NTSC() bool {
	return strings.HasPrefix(r.s.Value(r.Row, ColVideoMode), "2")
}

// TrueDrive reports whether the game needs true drive emulation.
func (r Record) TrueDrive() bool {
	return !strings.HasPrefix(r.s.Value(r.Row, ColTrueDrive), "0")
}
