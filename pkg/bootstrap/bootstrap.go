// Package bootstrap seeds a record store from a pipe-delimited text file.
//
// Each line has the form
//
//	name|age|address|phone
//
// Fields are trimmed of surrounding whitespace and trailing fields may be
// omitted. Lines without a name are skipped, the first line for a given name
// wins, and an age that is not an integer is stored as empty.
package bootstrap

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/cachemir/custdb/pkg/store"
)

const (
	fieldSeparator = "|"
	maxLineSize    = 1024 * 1024
)

// Stats describes the outcome of a load.
type Stats struct {
	Loaded  int // Records added to the store
	Skipped int // Lines ignored: blank name or duplicate name
}

// LoadFile loads the file at path into s. An empty path loads nothing.
func LoadFile(path string, s *store.Store) (Stats, error) {
	if path == "" {
		return Stats{}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return Stats{}, errors.Wrapf(err, "opening data file %s", path)
	}
	defer f.Close()

	stats, err := Load(f, s)
	if err != nil {
		return stats, errors.Wrapf(err, "loading data file %s", path)
	}
	return stats, nil
}

// Load reads records from r into s.
func Load(r io.Reader, s *store.Store) (Stats, error) {
	var stats Stats

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
	for scanner.Scan() {
		rec, ok := parseLine(scanner.Text())
		if !ok {
			stats.Skipped++
			continue
		}

		err := s.Add(rec)
		switch {
		case err == nil:
			stats.Loaded++
		case errors.Is(err, store.ErrAlreadyExists):
			stats.Skipped++
		default:
			return stats, err
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, errors.Wrap(err, "reading records")
	}
	return stats, nil
}

// parseLine splits one line into a record. It reports false for lines
// without a name.
func parseLine(line string) (store.Record, bool) {
	fields := strings.Split(line, fieldSeparator)
	field := func(i int) string {
		if i < len(fields) {
			return strings.TrimSpace(fields[i])
		}
		return ""
	}

	name := field(0)
	if name == "" {
		return store.Record{}, false
	}

	return store.Record{
		Name:    name,
		Age:     store.ParseAge(field(1)),
		Address: field(2),
		Phone:   field(3),
	}, true
}
