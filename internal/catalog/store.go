// Package catalog loads the tab separated game catalog and searches it.
//
// The catalog is one record per line, fields separated by tabs. Lines that
// start with '#' are comments. Columns are positional; see the Col constants.
// A record is addressed by its 0-based row index, which is stable for as long
// as the same file is loaded and is used as the key for install state.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/net/html/charset"
)

var (
	// ErrNotFound is returned when the catalog file does not exist.
	ErrNotFound = errors.New("catalog not found")
	// ErrUnreadable is returned when the catalog exists but cannot be read or decoded.
	ErrUnreadable = errors.New("catalog unreadable")
)

// LoadError describes a failure to load a catalog file.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading catalog %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

type span struct {
	start, end int
}

// Store is a loaded catalog. It is immutable after Load and safe for
// concurrent readers.
type Store struct {
	text string
	// fields holds the spans of every field of every record, in order.
	fields []span
	// rows[i] is the index into fields of the first field of record i;
	// rows has one extra element so rows[i+1]-rows[i] is the field count.
	rows []int
}

// Load reads and indexes the catalog at path. encoding is a character set
// label such as "iso-8859-1" or "utf-8"; an empty label means utf-8.
func Load(path, encoding string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Path: path, Err: ErrNotFound}
		}
		return nil, &LoadError{Path: path, Err: fmt.Errorf("%w: %v", ErrUnreadable, err)}
	}
	defer f.Close()

	s, err := Parse(f, encoding)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return s, nil
}

// Parse decodes r using the given character set and indexes it.
func Parse(r io.Reader, encoding string) (*Store, error) {
	if encoding == "" {
		encoding = "utf-8"
	}
	dec, err := charset.NewReaderLabel(encoding, r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, dec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return index(buf.String()), nil
}

func index(text string) *Store {
	s := &Store{text: text}

	pos := 0
	for pos < len(text) {
		end := strings.IndexByte(text[pos:], '\n')
		last := end < 0
		if last {
			end = len(text)
		} else {
			end += pos
		}

		line := end
		if line > pos && text[line-1] == '\r' {
			line--
		}
		if !strings.HasPrefix(text[pos:line], "#") {
			s.rows = append(s.rows, len(s.fields))
			start := pos
			for i := pos; i < line; i++ {
				if text[i] == '\t' {
					s.fields = append(s.fields, span{start, i})
					start = i + 1
				}
			}
			s.fields = append(s.fields, span{start, line})
		}

		if last {
			break
		}
		pos = end + 1
	}
	s.rows = append(s.rows, len(s.fields))

	return s
}

// Count returns the number of records.
func (s *Store) Count() int {
	return len(s.rows) - 1
}

// Field returns the value of column col in record row. The second result is
// false when row is out of range or the record has fewer columns; a short
// record is not an error, the attribute is just missing.
func (s *Store) Field(row, col int) (string, bool) {
	if row < 0 || row >= s.Count() || col < 0 {
		return "", false
	}
	first := s.rows[row]
	if col >= s.rows[row+1]-first {
		return "", false
	}
	sp := s.fields[first+col]
	return s.text[sp.start:sp.end], true
}

// Value is Field without the presence flag.
func (s *Store) Value(row, col int) string {
	v, _ := s.Field(row, col)
	return v
}

// NumFields returns the number of columns in record row.
func (s *Store) NumFields(row int) int {
	if row < 0 || row >= s.Count() {
		return 0
	}
	return s.rows[row+1] - s.rows[row]
}
