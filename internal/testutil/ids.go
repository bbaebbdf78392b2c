package testutil

import (
	"fmt"
	"sync"
)

// SequenceIDs generates deterministic snapshot ids of the form
// prefix-000001, prefix-000002, ... The same scenario with the same
// generator produces byte-identical derivation records.
//
// Thread-safe; Reset restarts the sequence for test reuse.
type SequenceIDs struct {
	mu     sync.Mutex
	prefix string
	n      int64
}

// NewSequenceIDs creates a generator with the given prefix. An empty
// prefix defaults to "snap".
func NewSequenceIDs(prefix string) *SequenceIDs {
	if prefix == "" {
		prefix = "snap"
	}
	return &SequenceIDs{prefix: prefix}
}

// NewID returns the next id in the sequence.
func (g *SequenceIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%06d", g.prefix, g.n)
}

// Reset restarts the sequence.
func (g *SequenceIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
