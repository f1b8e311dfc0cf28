package kv

import (
	"iter"

	"github.com/indigo-web/utils/strcomp"
)

type Pair struct {
	Key, Value string
}

// Storage is an associative structure for (string, string) pairs. It keeps
// insertion (wire) order and uses linear search with byte-wise
// case-insensitive key comparison, which on the usual amount of request
// headers beats a map and never normalizes (hence never copies) the keys.
//
// Both keys and values are commonly views into a connection's arena buffer,
// so a Storage must not be read after the arena it was filled from is
// released.
type Storage struct {
	pairs      []Pair
	valuesBuff []string
}

func New() *Storage {
	return new(Storage)
}

// NewPrealloc returns an instance of Storage with pre-allocated underlying
// storage.
func NewPrealloc(n int) *Storage {
	return &Storage{
		pairs: make([]Pair, 0, n),
	}
}

// Add adds a new pair of key and value, preserving the order of insertions.
func (s *Storage) Add(key, value string) *Storage {
	s.pairs = append(s.pairs, Pair{
		Key:   key,
		Value: value,
	})
	return s
}

// Value returns the first value corresponding to the key, otherwise an empty
// string.
func (s *Storage) Value(key string) string {
	value, _ := s.Get(key)
	return value
}

// Get returns the first value corresponding to the key and whether it was
// found at all. Lookup is case-insensitive.
func (s *Storage) Get(key string) (value string, found bool) {
	for _, pair := range s.pairs {
		if strcomp.EqualFold(key, pair.Key) {
			return pair.Value, true
		}
	}

	return "", false
}

// Values returns all values by the key. Returns nil if the key doesn't exist.
//
// WARNING: calling it twice will override values returned by the first call.
// Consider copying the returned slice for safe use.
func (s *Storage) Values(key string) []string {
	s.valuesBuff = s.valuesBuff[:0]

	for _, pair := range s.pairs {
		if strcomp.EqualFold(pair.Key, key) {
			s.valuesBuff = append(s.valuesBuff, pair.Value)
		}
	}

	if len(s.valuesBuff) == 0 {
		return nil
	}

	return s.valuesBuff
}

// Has indicates whether there's an entry of the key.
func (s *Storage) Has(key string) bool {
	_, found := s.Get(key)
	return found
}

// Iter returns an iterator over the pairs in wire order.
func (s *Storage) Iter() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, pair := range s.pairs {
			if !yield(pair.Key, pair.Value) {
				break
			}
		}
	}
}

// Len returns a number of stored pairs.
func (s *Storage) Len() int {
	return len(s.pairs)
}

// Expose exposes the underlying pairs slice.
func (s *Storage) Expose() []Pair {
	return s.pairs
}

// Clear removes all the entries, keeping the allocated space for reuse.
func (s *Storage) Clear() *Storage {
	s.pairs = s.pairs[:0]
	return s
}
