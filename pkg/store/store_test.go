package store

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreBasicOperations(t *testing.T) {
	s := New()

	alice := Record{Name: "Alice", Age: AgeOf(30), Address: "1 Main St", Phone: "555 123-4567"}
	require.NoError(t, s.Add(alice))

	got, err := s.Find("Alice")
	require.NoError(t, err)
	assert.Equal(t, alice, got)

	require.NoError(t, s.Delete("Alice"))

	_, err = s.Find("Alice")
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
	assert.Equal(t, 0, s.Len())
}

func TestStoreAddExisting(t *testing.T) {
	s := New()
	require.NoError(t, s.Add(Record{Name: "Alice", Age: AgeOf(30)}))

	err := s.Add(Record{Name: "Alice", Age: AgeOf(25)})
	assert.True(t, errors.Is(err, ErrAlreadyExists), "got %v", err)

	got, err := s.Find("Alice")
	require.NoError(t, err)
	assert.Equal(t, AgeOf(30), got.Age)
}

func TestStoreDeleteMissing(t *testing.T) {
	s := New()

	err := s.Delete("Nobody")
	assert.True(t, errors.Is(err, ErrNotExist), "got %v", err)
}

func TestStoreNameIsCaseSensitive(t *testing.T) {
	s := New()
	require.NoError(t, s.Add(Record{Name: "alice"}))
	require.NoError(t, s.Add(Record{Name: "Alice"}))

	_, err := s.Find("ALICE")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, 2, s.Len())
}

func TestStoreUpdatesTouchOneField(t *testing.T) {
	s := New()
	orig := Record{Name: "Bob", Age: AgeOf(40), Address: "2 Oak Ave", Phone: "555 111-2222"}
	require.NoError(t, s.Add(orig))

	require.NoError(t, s.UpdateAge("Bob", AgeOf(41)))
	got, _ := s.Find("Bob")
	assert.Equal(t, Record{Name: "Bob", Age: AgeOf(41), Address: orig.Address, Phone: orig.Phone}, got)

	require.NoError(t, s.UpdateAddress("Bob", "3 Elm Rd"))
	got, _ = s.Find("Bob")
	assert.Equal(t, Record{Name: "Bob", Age: AgeOf(41), Address: "3 Elm Rd", Phone: orig.Phone}, got)

	require.NoError(t, s.UpdatePhone("Bob", ""))
	got, _ = s.Find("Bob")
	assert.Equal(t, Record{Name: "Bob", Age: AgeOf(41), Address: "3 Elm Rd"}, got)
}

func TestStoreUpdateMissing(t *testing.T) {
	s := New()

	assert.True(t, errors.Is(s.UpdateAge("Carol", AgeOf(1)), ErrNotFound))
	assert.True(t, errors.Is(s.UpdateAddress("Carol", "x"), ErrNotFound))
	assert.True(t, errors.Is(s.UpdatePhone("Carol", "555 000-0000"), ErrNotFound))
	assert.Equal(t, 0, s.Len())
}

func TestStoreEmptyName(t *testing.T) {
	s := New()
	require.NoError(t, s.Add(Record{Name: "Alice"}))

	_, err := s.Find("")
	assert.True(t, errors.Is(err, ErrNameRequired))
	assert.True(t, errors.Is(s.Add(Record{Age: AgeOf(3)}), ErrNameRequired))
	assert.True(t, errors.Is(s.Delete(""), ErrNameRequired))
	assert.True(t, errors.Is(s.UpdateAge("", AgeOf(3)), ErrNameRequired))
	assert.True(t, errors.Is(s.UpdateAddress("", "x"), ErrNameRequired))
	assert.True(t, errors.Is(s.UpdatePhone("", "x"), ErrNameRequired))

	assert.Equal(t, []Record{{Name: "Alice"}}, s.ListSorted())
}

func TestStoreListSorted(t *testing.T) {
	s := New()
	require.NoError(t, s.Add(Record{Name: "Zed"}))
	require.NoError(t, s.Add(Record{Name: "amy"}))
	require.NoError(t, s.Add(Record{Name: "Bob"}))
	require.NoError(t, s.Add(Record{Name: "bob"}))

	var names []string
	for _, rec := range s.ListSorted() {
		names = append(names, rec.Name)
	}
	assert.Equal(t, []string{"amy", "Bob", "bob", "Zed"}, names)

	assert.Equal(t, s.ListSorted(), s.ListSorted())

	require.NoError(t, s.Delete("Bob"))
	names = names[:0]
	for _, rec := range s.ListSorted() {
		names = append(names, rec.Name)
	}
	assert.Equal(t, []string{"amy", "bob", "Zed"}, names)
}

func TestStoreListSortedEmpty(t *testing.T) {
	s := New()

	list := s.ListSorted()
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestStoreReturnsCopies(t *testing.T) {
	s := New()
	require.NoError(t, s.Add(Record{Name: "Alice", Address: "1 Main St"}))

	got, _ := s.Find("Alice")
	got.Address = "elsewhere"

	list := s.ListSorted()
	list[0].Phone = "555 999-9999"

	again, _ := s.Find("Alice")
	assert.Equal(t, Record{Name: "Alice", Address: "1 Main St"}, again)
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := New()

	const workers = 16
	const perWorker = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				name := fmt.Sprintf("customer-%d-%d", w, i)
				if err := s.Add(Record{Name: name}); err != nil {
					t.Errorf("add %s: %v", name, err)
				}
				_ = s.UpdateAge(name, AgeOf(i+1))
				_ = s.ListSorted()
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, workers*perWorker, s.Len())
	assert.Len(t, s.ListSorted(), workers*perWorker)
}

func TestLess(t *testing.T) {
	assert.True(t, Less("amy", "Zed"))
	assert.False(t, Less("Zed", "amy"))
	assert.True(t, Less("Bob", "bob"))
	assert.False(t, Less("bob", "bob"))
}

func TestParseAge(t *testing.T) {
	tests := []struct {
		in   string
		want Age
	}{
		{"30", "30"},
		{" 30 ", "30"},
		{"twenty", ""},
		{"", ""},
		{"3.5", ""},
		{"-4", "-4"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseAge(tt.in), "ParseAge(%q)", tt.in)
	}
}

func TestAgeJSON(t *testing.T) {
	data, err := json.Marshal(Record{Name: "Alice", Age: AgeOf(30)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Alice","age":30,"address":"","phone":""}`, string(data))

	data, err = json.Marshal(Record{Name: "Bob"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Bob","age":"","address":"","phone":""}`, string(data))

	var rec Record
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Carol","age":"25"}`), &rec))
	assert.Equal(t, Age("25"), rec.Age)

	require.NoError(t, json.Unmarshal([]byte(`{"name":"Carol","age":41}`), &rec))
	assert.Equal(t, Age("41"), rec.Age)

	require.NoError(t, json.Unmarshal([]byte(`{"name":"Carol","age":null}`), &rec))
	assert.True(t, rec.Age.IsEmpty())

	assert.Error(t, json.Unmarshal([]byte(`{"name":"Carol","age":{}}`), &rec))
}

func TestAgeJSONKeepsNonCanonicalText(t *testing.T) {
	tests := []struct {
		age  Age
		want string
	}{
		{"30", `30`},
		{"-4", `-4`},
		{"007", `"007"`},
		{"+5", `"+5"`},
		{" 7", `" 7"`},
		{"twenty", `"twenty"`},
	}
	for _, tt := range tests {
		t.Run(string(tt.age), func(t *testing.T) {
			data, err := json.Marshal(tt.age)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))

			var back Age
			require.NoError(t, json.Unmarshal(data, &back))
			assert.Equal(t, tt.age, back)
		})
	}
}
