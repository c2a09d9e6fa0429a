// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

package tracing

import (
	"sort"
	"sync"

	"github.com/zeebo/blake3"
)

// Property is a single key/value pair of a PropertySet. Key and value
// are interned strings so the dependency extractor serializes each
// distinct string once per block.
type Property struct {
	Key   StaticString
	Value StaticString
}

// PropertySet is an immutable, deduplicated bag of properties
// attached to log and metric events. Obtain instances from a
// PropertySetStore; equal key/value content always yields the same
// shared instance with the same handle.
type PropertySet struct {
	handle     uint64
	properties []Property
}

// Handle returns the set's stable identity.
func (p *PropertySet) Handle() uint64 { return p.handle }

// Properties returns the pairs sorted by key. Callers must not
// mutate the returned slice.
func (p *PropertySet) Properties() []Property { return p.properties }

// Len returns the number of pairs.
func (p *PropertySet) Len() int { return len(p.properties) }

// PropertySetStore deduplicates property sets by content. The dedup
// key is a blake3 hash of the canonical sorted key/value encoding, so
// equality is independent of map iteration order and memory layout.
//
// The store also interns the key and value strings, sharing handles
// across sets: two sets that both carry "world=main" reference the
// same interned "world" and "main".
//
// Thread-safe.
type PropertySetStore struct {
	mu      sync.Mutex
	strings map[string]StaticString
	sets    map[[32]byte]*PropertySet
}

// NewPropertySetStore creates an empty store.
func NewPropertySetStore() *PropertySetStore {
	return &PropertySetStore{
		strings: make(map[string]StaticString),
		sets:    make(map[[32]byte]*PropertySet),
	}
}

// Intern returns the shared PropertySet for the given pairs, creating
// it on first use. Returns nil for an empty or nil map: events carry
// a nil PropertySet when they have no context.
func (s *PropertySetStore) Intern(pairs map[string]string) *PropertySet {
	if len(pairs) == 0 {
		return nil
	}

	keys := make([]string, 0, len(pairs))
	for key := range pairs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	hasher := blake3.New()
	for _, key := range keys {
		hasher.Write([]byte(key))
		hasher.Write([]byte{0})
		hasher.Write([]byte(pairs[key]))
		hasher.Write([]byte{0})
	}
	var digest [32]byte
	copy(digest[:], hasher.Sum(nil))

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sets[digest]; ok {
		return existing
	}

	properties := make([]Property, 0, len(keys))
	for _, key := range keys {
		properties = append(properties, Property{
			Key:   s.internLocked(key),
			Value: s.internLocked(pairs[key]),
		})
	}
	set := &PropertySet{handle: newHandle(), properties: properties}
	s.sets[digest] = set
	return set
}

// internLocked reuses the interned form of value, registering it on
// first sight. Caller holds s.mu.
func (s *PropertySetStore) internLocked(value string) StaticString {
	if interned, ok := s.strings[value]; ok {
		return interned
	}
	interned := InternString(value)
	s.strings[value] = interned
	return interned
}
