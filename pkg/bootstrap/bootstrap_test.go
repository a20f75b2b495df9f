package bootstrap

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cachemir/custdb/pkg/store"
)

func TestLoad(t *testing.T) {
	s := store.New()

	stats, err := Load(strings.NewReader("Alice|30|1 Main St|555 123-4567\nBob|twenty|2 Oak Ave|\n"), s)
	require.NoError(t, err)
	assert.Equal(t, Stats{Loaded: 2}, stats)

	alice, err := s.Find("Alice")
	require.NoError(t, err)
	assert.Equal(t, store.Record{Name: "Alice", Age: store.AgeOf(30), Address: "1 Main St", Phone: "555 123-4567"}, alice)

	bob, err := s.Find("Bob")
	require.NoError(t, err)
	assert.Equal(t, store.Record{Name: "Bob", Address: "2 Oak Ave"}, bob)
}

func TestLoadSkipsDuplicatesAndBlankNames(t *testing.T) {
	s := store.New()

	input := strings.Join([]string{
		"Alice|30|1 Main St|555 123-4567",
		"",
		"   |44|nowhere|",
		"Alice|99|Somewhere Else|",
		"  Carol  |  41  |  3 Elm Rd  ",
		"Dan",
	}, "\n")

	stats, err := Load(strings.NewReader(input), s)
	require.NoError(t, err)
	assert.Equal(t, Stats{Loaded: 3, Skipped: 3}, stats)

	alice, _ := s.Find("Alice")
	assert.Equal(t, store.AgeOf(30), alice.Age)
	assert.Equal(t, "1 Main St", alice.Address)

	carol, err := s.Find("Carol")
	require.NoError(t, err)
	assert.Equal(t, store.Record{Name: "Carol", Age: store.AgeOf(41), Address: "3 Elm Rd"}, carol)

	dan, err := s.Find("Dan")
	require.NoError(t, err)
	assert.Equal(t, store.Record{Name: "Dan"}, dan)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(path, []byte("Zed|50||\namy|||555 000-0000\n"), 0o600))

	s := store.New()
	stats, err := LoadFile(path, s)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Loaded)

	list := s.ListSorted()
	require.Len(t, list, 2)
	assert.Equal(t, "amy", list[0].Name)
	assert.Equal(t, "Zed", list[1].Name)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.txt"), store.New())
	assert.Error(t, err)
}

func TestLoadFileEmptyPath(t *testing.T) {
	s := store.New()
	stats, err := LoadFile("", s)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
	assert.Equal(t, 0, s.Len())
}
