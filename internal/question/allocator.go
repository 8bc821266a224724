package question

import (
	"math/rand/v2"
	"sync"
)

// Allocator draws per-match question sets from a tournament's shared pool.
type Allocator struct {
	mu   sync.Mutex
	rand *rand.Rand
}

// NewAllocator returns an allocator. A nil r uses the global source.
func NewAllocator(r *rand.Rand) *Allocator {
	return &Allocator{rand: r}
}

// Allocate takes up to n ids off the front of pool. A shortfall is drawn
// from a fresh shuffle of the full set, skipping ids already taken for this
// match; repeats across matches are accepted. Ids that no longer resolve in
// full are dropped from the result.
func (a *Allocator) Allocate(pool []string, n int, full []Question) ([]Question, []string) {
	if n <= 0 {
		return []Question{}, append([]string{}, pool...)
	}

	take := min(n, len(pool))
	drawn := append([]string{}, pool[:take]...)
	remaining := append([]string{}, pool[take:]...)

	if shortfall := n - take; shortfall > 0 {
		picked := make(map[string]bool, len(drawn))
		for _, id := range drawn {
			picked[id] = true
		}
		a.mu.Lock()
		fresh := Shuffled(a.rand, IDs(full))
		a.mu.Unlock()
		for _, id := range fresh {
			if shortfall == 0 {
				break
			}
			if picked[id] {
				continue
			}
			drawn = append(drawn, id)
			picked[id] = true
			shortfall--
		}
	}

	return Resolve(drawn, full), remaining
}

// Resolve maps ids to questions in order, silently dropping unknown ids.
func Resolve(ids []string, full []Question) []Question {
	byID := make(map[string]Question, len(full))
	for _, q := range full {
		byID[q.ID] = q
	}
	out := make([]Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			out = append(out, q)
		}
	}
	return out
}
