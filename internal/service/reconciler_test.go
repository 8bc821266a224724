package service

import (
	"context"
	"testing"

	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/bracket"
	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// playFirstRound completes both opening matches of a four-team bracket with
// the top seed of each winning.
func playFirstRound(t *testing.T, e *testEnv, id uuid.UUID) []error {
	t.Helper()
	var errs []error
	for i := 0; i < 2; i++ {
		m := e.matchAt(t, id, 0, i)
		e.claim(t, m.ID, "tab-1")
		_, err := e.matches.EndMatch(context.Background(), m.ID, "tab-1", EndMatchRequest{Team1Score: 5, Team2Score: 1})
		errs = append(errs, err)
	}
	return errs
}

func TestReconciler_PartialAdvanceIsHealedByResync(t *testing.T) {
	var fs *failingStore
	e := newTestEnv(t, 8, func(s *store.TournamentStore) Store {
		fs = &failingStore{TournamentStore: s, failSlot: true}
		return fs
	})
	ctx := context.Background()
	id := e.create(t, 1, "A", "B", "C", "D")

	for _, err := range playFirstRound(t, e, id) {
		assert.ErrorIs(t, err, errInjected)
	}

	first := e.matchAt(t, id, 0, 0)
	assert.Equal(t, bracket.MatchCompleted, first.Status, "match result is committed first")
	final := e.matchAt(t, id, 1, 0)
	assert.Nil(t, final.Team1Index)
	assert.Nil(t, final.Team2Index)

	data, err := e.tournaments.FetchTournament(ctx, id)
	require.NoError(t, err)
	derived := data.Bracket.Rounds[1][0]
	require.NotNil(t, derived.Team1Index, "load derives the missing advance")
	require.NotNil(t, derived.Team2Index)
	assert.Equal(t, 0, *derived.Team1Index)
	assert.Equal(t, 1, *derived.Team2Index)
	assert.Equal(t, 2, data.Bracket.CompletedMatches)

	res, err := e.matches.ClaimMatch(ctx, final.ID, "tab-2")
	require.NoError(t, err)
	assert.Equal(t, ClaimNotPlayable, res.Status, "claims go by the stored row")

	fs.failSlot = false
	healed, err := e.tournaments.Resync(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, healed.Bracket.CompletedMatches)

	final = e.matchAt(t, id, 1, 0)
	require.NotNil(t, final.Team1Index)
	require.NotNil(t, final.Team2Index)
	assert.Equal(t, 0, *final.Team1Index)
	assert.Equal(t, 1, *final.Team2Index)

	tournament, err := e.store.GetTournament(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, tournament.Bracket.CompletedMatches, "snapshot is rewritten")

	e.claim(t, final.ID, "tab-2")
}

func TestReconciler_SnapshotFailureKeepsRows(t *testing.T) {
	var fs *failingStore
	e := newTestEnv(t, 8, func(s *store.TournamentStore) Store {
		fs = &failingStore{TournamentStore: s, failSnapshot: true}
		return fs
	})
	ctx := context.Background()
	id := e.create(t, 1, "A", "B", "C", "D")

	for _, err := range playFirstRound(t, e, id) {
		assert.ErrorIs(t, err, errInjected)
	}

	tournament, err := e.store.GetTournament(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, tournament.Bracket.CompletedMatches, "snapshot write never landed")

	final := e.matchAt(t, id, 1, 0)
	require.NotNil(t, final.Team1Index)
	require.NotNil(t, final.Team2Index)

	data, err := e.tournaments.FetchTournament(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, data.Bracket.CompletedMatches)
	assert.True(t, data.Bracket.Teams[2].Eliminated)
	assert.True(t, data.Bracket.Teams[3].Eliminated)

	fs.failSnapshot = false
	_, err = e.tournaments.Resync(ctx, id)
	require.NoError(t, err)

	tournament, err = e.store.GetTournament(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, tournament.Bracket.CompletedMatches)
	assert.True(t, tournament.Bracket.Teams[3].Eliminated)
}

func TestReconciler_CommitRejectsStaleVersion(t *testing.T) {
	e := newTestEnv(t, 4, nil)
	ctx := context.Background()
	id := e.create(t, 1, "A", "B")
	m := e.matchAt(t, id, 0, 0)
	e.claim(t, m.ID, "tab-1")

	loaded, err := e.reconciler.Load(ctx, id)
	require.NoError(t, err)
	current, ok := loaded.Bracket.MatchByID(m.ID)
	require.True(t, ok)

	adv, err := loaded.Bracket.Complete(current.Position(), bracket.Completion{Team1Score: 2, Team2Score: 0}, testStart)
	require.NoError(t, err)

	err = e.reconciler.Commit(ctx, id, loaded.Bracket, adv, current.Version-1)
	assert.ErrorIs(t, err, ErrStaleWrite)
	assert.Equal(t, bracket.MatchInProgress, e.matchAt(t, id, 0, 0).Status)

	require.NoError(t, e.reconciler.Commit(ctx, id, loaded.Bracket, adv, current.Version))
	tournament, err := e.store.GetTournament(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, bracket.TournamentCompleted, tournament.Status)
}
