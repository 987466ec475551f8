package lookup

import (
	"sync"

	"github.com/google/uuid"
)

// TokenGenerator produces identity tokens for in-flight lookups.
// Implemented by UUIDv7Generator (production) and FixedGenerator
// (tests).
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 tokens.
//
// UUIDv7 embeds a timestamp in the most significant bits, so registry
// tokens sort by lookup start time, which helps when reading logs of a
// busy instance.
//
// Thread-safety: stateless, safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined tokens for testing, enabling
// deterministic registry assertions.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedGenerator creates a generator that returns tokens in order.
func NewFixedGenerator(tokens ...string) *FixedGenerator {
	return &FixedGenerator{tokens: tokens}
}

// Generate returns the next predetermined token.
//
// Panics if all tokens have been consumed. Fail-fast to catch test
// misconfiguration (more lookups started than the test expected).
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.tokens) {
		panic("FixedGenerator: all tokens exhausted")
	}
	token := g.tokens[g.idx]
	g.idx++
	return token
}
