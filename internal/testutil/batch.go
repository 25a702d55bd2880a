package testutil

import (
	"fmt"
	"sync"
)

// FixedBatchGenerator returns numbered batch tokens: "<prefix>-1",
// "<prefix>-2", and so on. Unlike runtime.FixedGenerator it never runs out,
// which suits scenarios whose step count is not known up front.
//
// Safe for concurrent use.
type FixedBatchGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewFixedBatchGenerator creates a generator. An empty prefix becomes "batch".
func NewFixedBatchGenerator(prefix string) *FixedBatchGenerator {
	if prefix == "" {
		prefix = "batch"
	}
	return &FixedBatchGenerator{prefix: prefix}
}

// Generate returns the next numbered token.
func (g *FixedBatchGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
