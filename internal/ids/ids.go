// Package ids provides the numeric identifier allocator shared by decks,
// models, notes, and cards. The target format wants plain integers, so
// identifiers come from an injectable Allocator rather than a global.
package ids

import (
	"math/rand"
	"sync"
	"time"
)

// MaxRandomID bounds the random allocator's output. Collisions inside a
// single export are re-drawn; across exports the range is an accepted
// tradeoff at deck scale.
const MaxRandomID = 1_000_000_000_000

// Allocator hands out unique numeric identifiers for one export run.
type Allocator interface {
	Next() int64
}

// Random is the default Allocator: uniform draws in [1, MaxRandomID),
// de-duplicated per instance. Safe for concurrent use.
type Random struct {
	mu   sync.Mutex
	rng  *rand.Rand
	used map[int64]struct{}
}

// NewRandom creates a Random allocator seeded from the current time.
func NewRandom() *Random {
	return NewRandomSeeded(time.Now().UnixNano())
}

// NewRandomSeeded creates a Random allocator with an explicit seed, so
// tests can reproduce id streams.
func NewRandomSeeded(seed int64) *Random {
	return &Random{
		rng:  rand.New(rand.NewSource(seed)),
		used: make(map[int64]struct{}),
	}
}

// Next returns a fresh identifier never before returned by this allocator.
func (r *Random) Next() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	for {
		id := r.rng.Int63n(MaxRandomID-1) + 1
		if _, taken := r.used[id]; taken {
			continue
		}
		r.used[id] = struct{}{}
		return id
	}
}

// Sequence is a deterministic Allocator counting up from a base value.
// Used in tests and anywhere reproducible output matters.
type Sequence struct {
	mu   sync.Mutex
	next int64
}

// NewSequence creates a Sequence allocator starting at base.
func NewSequence(base int64) *Sequence {
	return &Sequence{next: base}
}

// Next returns base, base+1, base+2, ...
func (s *Sequence) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	return id
}
