package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/bracket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTournament(t *testing.T) {
	e := newTestEnv(t, 12, nil)
	ctx := context.Background()

	id := e.create(t, 3, "Owls", "Foxes", "Bears")

	data, err := e.tournaments.FetchTournament(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Friday Quiz", data.Tournament.Name)
	assert.Equal(t, bracket.TournamentStarted, data.Tournament.Status)
	assert.Len(t, data.Tournament.QuestionPool, 12)
	assert.Len(t, data.Matches, 3)
	assert.Equal(t, 2, data.Bracket.TotalMatches)
	assert.Equal(t, 2, data.Bracket.TotalRounds)

	bye := data.Bracket.Rounds[0][0]
	assert.Equal(t, bracket.MatchBye, bye.Status)
	final := data.Bracket.Rounds[1][0]
	require.NotNil(t, final.Team1Index, "bye winner is advanced at creation")
	assert.Equal(t, 0, *final.Team1Index)

	stored := e.matchAt(t, id, 1, 0)
	require.NotNil(t, stored.Team1Index, "advanced slot is persisted on the row")

	list, err := e.tournaments.ListTournaments(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCreateTournament_Validation(t *testing.T) {
	testCases := []struct {
		name      string
		questions int
		input     CreateTournamentInput
		expectErr error
	}{
		{name: "blank name", questions: 4, input: CreateTournamentInput{Name: " ", Teams: []string{"A", "B"}, QuestionsPerMatch: 1}, expectErr: ErrEmptyName},
		{name: "one team", questions: 4, input: CreateTournamentInput{Name: "Quiz", Teams: []string{"A"}, QuestionsPerMatch: 1}, expectErr: bracket.ErrTooFewTeams},
		{name: "blank team", questions: 4, input: CreateTournamentInput{Name: "Quiz", Teams: []string{"A", ""}, QuestionsPerMatch: 1}, expectErr: bracket.ErrEmptyTeamName},
		{name: "no questions per match", questions: 4, input: CreateTournamentInput{Name: "Quiz", Teams: []string{"A", "B"}}, expectErr: bracket.ErrInvalidPerMatch},
		{name: "empty question set", questions: 0, input: CreateTournamentInput{Name: "Quiz", Teams: []string{"A", "B"}, QuestionsPerMatch: 1}, expectErr: ErrNoQuestions},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEnv(t, tc.questions, nil)
			_, err := e.tournaments.CreateTournament(context.Background(), tc.input)
			assert.ErrorIs(t, err, tc.expectErr)

			list, err := e.tournaments.ListTournaments(context.Background())
			require.NoError(t, err)
			assert.Empty(t, list, "nothing is written on validation failure")
		})
	}
}

func TestFetchTournament_NotFound(t *testing.T) {
	e := newTestEnv(t, 1, nil)
	_, err := e.tournaments.FetchTournament(context.Background(), uuid.New())
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

// The stored snapshot is never trusted for match state.
func TestFetchTournament_IgnoresStaleSnapshot(t *testing.T) {
	e := newTestEnv(t, 6, nil)
	ctx := context.Background()
	id := e.create(t, 1, "Owls", "Foxes", "Bears", "Wolves")

	m := e.matchAt(t, id, 0, 0)
	e.claim(t, m.ID, "tab-1")
	_, err := e.matches.EndMatch(ctx, m.ID, "tab-1", EndMatchRequest{Team1Score: 2, Team2Score: 1})
	require.NoError(t, err)

	loaded, err := e.reconciler.Load(ctx, id)
	require.NoError(t, err)
	stale := loaded.Tournament.Bracket
	stale.CompletedMatches = 0
	stale.Teams[3].Eliminated = false
	require.NoError(t, e.store.SaveSnapshot(ctx, id, stale, bracket.TournamentStarted, testStart))

	data, err := e.tournaments.FetchTournament(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, data.Bracket.CompletedMatches)
	assert.True(t, data.Bracket.Teams[3].Eliminated)
}
