// Package bookingid mints human-readable booking references.
package bookingid

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

const (
	prefix       = "BK-"
	suffixLen    = 6
	suffixChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	timestampLen = 8
)

// Generator produces booking references like BK-17465312X7K2M9.
// References are for display and search only; slot exclusivity is
// enforced by the store, never by this value.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// New creates a generator seeded from the current time.
func New() *Generator {
	return &Generator{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
	}
}

// Generate returns a new booking reference: the prefix, the last 8
// digits of the unix-milli timestamp, and 6 random upper alphanumerics.
func (g *Generator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := fmt.Sprintf("%d", g.now().UnixMilli())
	if len(ms) > timestampLen {
		ms = ms[len(ms)-timestampLen:]
	}

	suffix := make([]byte, suffixLen)
	for i := range suffix {
		suffix[i] = suffixChars[g.rng.Intn(len(suffixChars))]
	}

	return prefix + ms + string(suffix)
}
