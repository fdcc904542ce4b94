// Package entropy provides the random sources behind every stochastic
// decision: mount draws, weighted species picks and parking searches.
// Seeded sources replay a world exactly; the crypto source is the fallback
// when no seed is configured.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
	"sync"
)

// Source is the random interface the simulation consumes.
type Source interface {
	// Intn returns a uniform int in [0, n). Panics if n <= 0.
	Intn(n int) int
	// Float64 returns a uniform float in [0, 1).
	Float64() float64
}

// Seeded is a deterministic source safe for concurrent use.
type Seeded struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

// NewSeeded creates a deterministic source.
func NewSeeded(seed int64) *Seeded {
	return &Seeded{rng: mrand.New(mrand.NewSource(seed))}
}

func (s *Seeded) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

func (s *Seeded) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// Crypto draws from crypto/rand.
type Crypto struct{}

func (Crypto) Intn(n int) int {
	if n <= 0 {
		panic("entropy: invalid argument to Intn")
	}
	return int(cryptoUint64() % uint64(n))
}

func (Crypto) Float64() float64 {
	// Use only 53 bits for a uniform float64 in [0, 1).
	return float64(cryptoUint64()>>11) / float64(1<<53)
}

func cryptoUint64() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// This should never happen; a fixed value keeps callers alive.
		return 1 << 62
	}
	return binary.LittleEndian.Uint64(buf[:])
}

// New returns a seeded source, or the crypto source when seed is zero.
func New(seed int64) Source {
	if seed == 0 {
		return Crypto{}
	}
	return NewSeeded(seed)
}

// Range returns a uniform int in [min, max], both inclusive.
func Range(src Source, min, max int) int {
	if max <= min {
		return min
	}
	return min + src.Intn(max-min+1)
}

// Sequence replays fixed draws, wrapping around when exhausted. Intn returns
// each value modulo n; Float64 maps a value v to v/1e6. Useful for making a
// stochastic path deterministic.
type Sequence struct {
	mu     sync.Mutex
	values []int
	next   int
}

// NewSequence creates a source replaying values.
func NewSequence(values ...int) *Sequence {
	if len(values) == 0 {
		values = []int{0}
	}
	return &Sequence{values: values}
}

func (s *Sequence) pop() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.values[s.next%len(s.values)]
	s.next++
	return v
}

func (s *Sequence) Intn(n int) int {
	v := s.pop() % n
	if v < 0 {
		v += n
	}
	return v
}

func (s *Sequence) Float64() float64 {
	v := s.pop() % 1000000
	if v < 0 {
		v += 1000000
	}
	return float64(v) / 1e6
}
