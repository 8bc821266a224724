package question

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeQuestions(n int) []Question {
	qs := make([]Question, n)
	for i := range qs {
		qs[i] = Question{ID: fmt.Sprintf("q%d", i+1), Prompt: fmt.Sprintf("Prompt %d", i+1), Points: 10}
	}
	return qs
}

func TestAllocate(t *testing.T) {
	full := makeQuestions(6)

	testCases := []struct {
		name              string
		pool              []string
		n                 int
		expectedIDs       []string
		expectedRemaining []string
	}{
		{name: "takes from the front", pool: []string{"q3", "q1", "q5", "q2"}, n: 2, expectedIDs: []string{"q3", "q1"}, expectedRemaining: []string{"q5", "q2"}},
		{name: "exact pool", pool: []string{"q2", "q4"}, n: 2, expectedIDs: []string{"q2", "q4"}, expectedRemaining: []string{}},
		{name: "zero requested", pool: []string{"q2"}, n: 0, expectedIDs: []string{}, expectedRemaining: []string{"q2"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a := NewAllocator(rand.New(rand.NewPCG(1, 1)))
			qs, remaining := a.Allocate(tc.pool, tc.n, full)
			assert.Equal(t, tc.expectedIDs, IDs(qs))
			assert.Equal(t, tc.expectedRemaining, remaining)
		})
	}
}

func TestAllocate_ShortfallHasNoRepeatsWithinMatch(t *testing.T) {
	full := makeQuestions(5)
	a := NewAllocator(rand.New(rand.NewPCG(3, 9)))

	for i := 0; i < 20; i++ {
		qs, remaining := a.Allocate([]string{"q2"}, 4, full)
		require.Len(t, qs, 4)
		assert.Empty(t, remaining)
		assert.Equal(t, "q2", qs[0].ID, "pool ids come first")

		seen := map[string]bool{}
		for _, q := range qs {
			assert.False(t, seen[q.ID], "repeated %s in one draw", q.ID)
			seen[q.ID] = true
		}
	}
}

func TestAllocate_ShortfallLargerThanFullSet(t *testing.T) {
	full := makeQuestions(3)
	a := NewAllocator(nil)

	qs, remaining := a.Allocate(nil, 5, full)
	assert.Len(t, qs, 3)
	assert.ElementsMatch(t, []string{"q1", "q2", "q3"}, IDs(qs))
	assert.Empty(t, remaining)
}

func TestAllocate_DoesNotMutatePool(t *testing.T) {
	pool := []string{"q1", "q2", "q3"}
	a := NewAllocator(nil)

	_, remaining := a.Allocate(pool, 1, makeQuestions(3))
	remaining[0] = "changed"
	assert.Equal(t, []string{"q1", "q2", "q3"}, pool)
}

func TestResolve_DropsUnknownIDs(t *testing.T) {
	full := makeQuestions(3)

	qs := Resolve([]string{"q3", "gone", "q1"}, full)
	assert.Equal(t, []string{"q3", "q1"}, IDs(qs))
	assert.Equal(t, "Prompt 3", qs[0].Prompt)

	assert.Empty(t, Resolve(nil, full))
}

func TestShuffled(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}

	first := Shuffled(rand.New(rand.NewPCG(5, 5)), ids)
	second := Shuffled(rand.New(rand.NewPCG(5, 5)), ids)
	assert.Equal(t, first, second, "same seed gives the same order")
	assert.ElementsMatch(t, ids, first)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids)
}
