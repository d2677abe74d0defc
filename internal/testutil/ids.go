package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates readable, unique ids: "<prefix>-0001",
// "<prefix>-0002", ...
//
// Ids sort in generation order as long as fewer than 10000 are generated,
// which keeps the id tie-breaker of the total order predictable in tests.
//
// Thread-safety: SequentialIDs is safe for concurrent use.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator. If prefix is empty, "item" is used.
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "item"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate returns the next id.
//
// Implements engine.IDGenerator.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
