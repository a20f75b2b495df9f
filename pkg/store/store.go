// Package store provides the in-memory customer record store used by the custdb server.
//
// Records are kept in a map keyed by customer name, with a btree index that
// orders names case-insensitively for the sorted listing. All operations are
// guarded by a single read/write mutex, so concurrent connections observe a
// linearizable sequence of operations.
//
// Example usage:
//
//	s := store.New()
//
//	if err := s.Add(store.Record{Name: "Alice", Age: store.AgeOf(30)}); err != nil {
//		log.Fatal(err)
//	}
//
//	rec, err := s.Find("Alice")
//	if errors.Is(err, store.ErrNotFound) {
//		fmt.Println("no such customer")
//	}
//
//	for _, rec := range s.ListSorted() {
//		fmt.Println(rec.Name)
//	}
//
// The store has no durable persistence. It is seeded once at startup (see
// package bootstrap) and every mutation is lost when the process exits.
package store

import (
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/btree"
)

const indexDegree = 32

// Errors returned by Store operations. Callers classify them with errors.Is.
var (
	ErrNameRequired  = errors.New("customer name required")
	ErrNotFound      = errors.New("customer not found")
	ErrAlreadyExists = errors.New("customer already exists")
	ErrNotExist      = errors.New("customer does not exist")
)

// nameKey orders names by their lower-cased form, falling back to the raw
// name so that names differing only in case still have a stable order.
type nameKey struct {
	fold string
	name string
}

func newNameKey(name string) nameKey {
	return nameKey{fold: strings.ToLower(name), name: name}
}

// Less implements btree.Item.
func (k nameKey) Less(than btree.Item) bool {
	o := than.(nameKey)
	if k.fold != o.fold {
		return k.fold < o.fold
	}
	return k.name < o.name
}

// Less reports whether a customer named a sorts before one named b in a listing.
func Less(a, b string) bool {
	return newNameKey(a).Less(newNameKey(b))
}

// Store is a thread-safe keyed collection of customer records.
//
// Example:
//
//	s := store.New()
//	_ = s.Add(store.Record{Name: "Bob", Address: "2 Oak Ave"})
//	_ = s.UpdatePhone("Bob", "555 123-4567")
type Store struct {
	records map[string]*Record // name -> record
	index   *btree.BTree       // nameKey for every record, listing order
	mu      sync.RWMutex       // Protects records and index
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		records: make(map[string]*Record),
		index:   btree.New(indexDegree),
	}
}

// Find returns a copy of the record stored under name.
//
// Example:
//
//	rec, err := s.Find("Alice")
//	if err != nil {
//		log.Printf("find failed: %v", err)
//	}
//
// Parameters:
//   - name: The customer name, matched case-sensitively
//
// Returns:
//   - The record if found
//   - ErrNameRequired if name is empty, ErrNotFound if there is no such customer
func (s *Store) Find(name string) (Record, error) {
	if name == "" {
		return Record{}, ErrNameRequired
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.records[name]
	if !exists {
		return Record{}, ErrNotFound
	}
	return *rec, nil
}

// Add inserts a new record. An existing record with the same name is left
// untouched.
//
// Example:
//
//	err := s.Add(store.Record{Name: "Carol", Age: "41", Phone: "555 000-0000"})
//	if errors.Is(err, store.ErrAlreadyExists) {
//		fmt.Println("Carol is already a customer")
//	}
//
// Parameters:
//   - rec: The record to insert; rec.Name is the key
//
// Returns:
//   - ErrNameRequired if rec.Name is empty, ErrAlreadyExists if the name is taken
func (s *Store) Add(rec Record) error {
	if rec.Name == "" {
		return ErrNameRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.Name]; exists {
		return ErrAlreadyExists
	}

	s.records[rec.Name] = &rec
	s.index.ReplaceOrInsert(newNameKey(rec.Name))
	return nil
}

// Delete removes the record stored under name.
//
// Returns:
//   - ErrNameRequired if name is empty, ErrNotExist if there is no such customer
func (s *Store) Delete(name string) error {
	if name == "" {
		return ErrNameRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[name]; !exists {
		return ErrNotExist
	}

	delete(s.records, name)
	s.index.Delete(newNameKey(name))
	return nil
}

// UpdateAge replaces the age of an existing customer. No other field changes.
func (s *Store) UpdateAge(name string, age Age) error {
	return s.update(name, func(rec *Record) { rec.Age = age })
}

// UpdateAddress replaces the address of an existing customer. No other field changes.
func (s *Store) UpdateAddress(name, address string) error {
	return s.update(name, func(rec *Record) { rec.Address = address })
}

// UpdatePhone replaces the phone of an existing customer. No other field changes.
func (s *Store) UpdatePhone(name, phone string) error {
	return s.update(name, func(rec *Record) { rec.Phone = phone })
}

// update applies fn to the record under name while holding the write lock.
// fn must not touch rec.Name.
func (s *Store) update(name string, fn func(rec *Record)) error {
	if name == "" {
		return ErrNameRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.records[name]
	if !exists {
		return ErrNotFound
	}
	fn(rec)
	return nil
}

// ListSorted returns a snapshot of every record ordered by case-insensitive
// name. The returned slice is owned by the caller.
//
// Example:
//
//	for _, rec := range s.ListSorted() {
//		fmt.Printf("%-25s%-10s\n", rec.Name, rec.Age)
//	}
func (s *Store) ListSorted() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0, len(s.records))
	s.index.Ascend(func(item btree.Item) bool {
		out = append(out, *s.records[item.(nameKey).name])
		return true
	})
	return out
}

// Len returns the number of records in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}
