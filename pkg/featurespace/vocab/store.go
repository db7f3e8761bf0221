package vocab

import (
	"sort"

	"github.com/cognicore/featurespace/pkg/featurespace/internalerr"
)

// Store maps a feature key (n-gram, skip-gram, dependency triple) to the
// number of times it was seen during a collection pass.
type Store struct {
	counts   map[string]int64
	readOnly bool
}

// Entry is one key with its count
type Entry struct {
	Key   string
	Count int64
}

// New creates an empty, writable store
func New() *Store {
	return &Store{counts: make(map[string]int64)}
}

// FromEntries builds a writable store from entries. Duplicate keys are summed.
func FromEntries(entries []Entry) *Store {
	s := New()
	for _, e := range entries {
		s.counts[e.Key] += e.Count
	}
	return s
}

// Increment adds one occurrence of key
func (s *Store) Increment(key string) error {
	return s.Add(key, 1)
}

// Add adds n occurrences of key. Negative n is ignored so counts never shrink.
func (s *Store) Add(key string, n int64) error {
	if s.readOnly {
		return internalerr.ErrReadOnly
	}
	if n <= 0 {
		return nil
	}
	s.counts[key] += n
	return nil
}

// Merge unions the counts of other into s
func (s *Store) Merge(other *Store) error {
	if s.readOnly {
		return internalerr.ErrReadOnly
	}
	for k, c := range other.counts {
		s.counts[k] += c
	}
	return nil
}

// Count returns the count for key, 0 if unseen
func (s *Store) Count(key string) int64 {
	return s.counts[key]
}

// Contains reports whether key has been seen
func (s *Store) Contains(key string) bool {
	_, ok := s.counts[key]
	return ok
}

// Len returns the number of distinct keys
func (s *Store) Len() int {
	return len(s.counts)
}

// Total returns the sum of all counts
func (s *Store) Total() int64 {
	var total int64
	for _, c := range s.counts {
		total += c
	}
	return total
}

// ReadOnly reports whether the store rejects mutation
func (s *Store) ReadOnly() bool {
	return s.readOnly
}

// Entries returns all entries ranked by descending count, ties broken by
// ascending key.
func (s *Store) Entries() []Entry {
	entries := make([]Entry, 0, len(s.counts))
	for k, c := range s.counts {
		entries = append(entries, Entry{Key: k, Count: c})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Key < entries[j].Key
	})
	return entries
}

// Keys returns all keys in rank order
func (s *Store) Keys() []string {
	entries := s.Entries()
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys
}

// TopK returns a new read-only store with the k highest ranked keys.
// k <= 0 keeps every key.
func (s *Store) TopK(k int) *Store {
	entries := s.Entries()
	if k > 0 && len(entries) > k {
		entries = entries[:k]
	}
	top := FromEntries(entries)
	top.readOnly = true
	return top
}

// Equal reports whether both stores hold the same keys with the same counts
func (s *Store) Equal(other *Store) bool {
	if len(s.counts) != len(other.counts) {
		return false
	}
	for k, c := range s.counts {
		if oc, ok := other.counts[k]; !ok || oc != c {
			return false
		}
	}
	return true
}

// Batch accumulates the increments of one document. Nothing reaches the
// store until Commit, so a document that fails halfway leaves no trace.
type Batch struct {
	store  *Store
	counts map[string]int64
}

// Begin starts a batch against s
func (s *Store) Begin() *Batch {
	return &Batch{store: s, counts: make(map[string]int64)}
}

// Inc records one occurrence of key
func (b *Batch) Inc(key string) {
	b.counts[key]++
}

// Len returns the number of distinct keys in the batch
func (b *Batch) Len() int {
	return len(b.counts)
}

// Commit folds the batch into the store
func (b *Batch) Commit() error {
	if b.store.readOnly {
		return internalerr.ErrReadOnly
	}
	for k, c := range b.counts {
		b.store.counts[k] += c
	}
	b.counts = make(map[string]int64)
	return nil
}

// Discard drops the batch
func (b *Batch) Discard() {
	b.counts = make(map[string]int64)
}
