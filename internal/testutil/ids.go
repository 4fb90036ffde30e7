package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates connection ids "<prefix>-1", "<prefix>-2", ...
//
// Golden traces embed connection ids, so harness runs use this instead of
// UUIDv7 to stay byte-identical between runs.
//
// Thread-safety: SequentialIDs is safe for concurrent use.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator. An empty prefix means "conn".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "conn"
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
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
