package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/bracket"
	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/db"
	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/question"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString()))
	require.NoError(t, err, "Failed to connect to in-memory DB")
	database.SetMaxOpenConns(1)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, db.RunMigrations(database.DB), "Failed to apply migrations")
	return database
}

// seedTournament stores a freshly generated bracket and returns it.
func seedTournament(t *testing.T, s *TournamentStore, names []string) (*bracket.Bracket, *bracket.Tournament) {
	t.Helper()
	ctx := context.Background()

	id := uuid.New()
	b, pool, err := bracket.Generate(bracket.GenerateParams{
		TournamentID:      id,
		TeamNames:         names,
		QuestionsPerMatch: 2,
		QuestionIDs:       []string{"q1", "q2", "q3", "q4"},
		Rand:              rand.New(rand.NewPCG(1, 1)),
		Now:               testNow,
	})
	require.NoError(t, err)

	tournament := &bracket.Tournament{
		ID:                id,
		Name:              "Friday Quiz",
		Status:            bracket.TournamentStarted,
		QuestionsPerMatch: 2,
		Bracket:           b.Snapshot(),
		QuestionPool:      pool,
		CreatedAt:         testNow,
		UpdatedAt:         testNow,
	}

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, s.CreateTournament(ctx, tx, tournament))
	require.NoError(t, s.CreateMatches(ctx, tx, b.Matches()))
	require.NoError(t, tx.Commit())
	return b, tournament
}

func TestCreateTournament(t *testing.T) {
	store := NewTournamentStore(setupTestDB(t))
	ctx := context.Background()

	b, tournament := seedTournament(t, store, []string{"Owls", "Foxes", "Bears"})

	fetched, err := store.GetTournament(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, tournament.Name, fetched.Name)
	assert.Equal(t, bracket.TournamentStarted, fetched.Status)
	assert.Equal(t, 2, fetched.QuestionsPerMatch)
	assert.ElementsMatch(t, []string{"q1", "q2", "q3", "q4"}, []string(fetched.QuestionPool))
	assert.Equal(t, b.Snapshot().Teams, fetched.Bracket.Teams)
	assert.Len(t, fetched.Bracket.Rounds, 2)
	assert.WithinDuration(t, testNow, fetched.CreatedAt, time.Second)

	matches, err := store.GetMatches(ctx, tournament.ID)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	for i, m := range b.Matches() {
		assert.Equal(t, m.ID, matches[i].ID)
		assert.Equal(t, m.Position(), matches[i].Position())
		assert.Equal(t, m.Status, matches[i].Status)
		assert.Equal(t, m.Team1Index, matches[i].Team1Index)
		assert.Equal(t, m.Team2Index, matches[i].Team2Index)
		assert.Equal(t, m.WinnerIndex, matches[i].WinnerIndex)
		assert.NotNil(t, matches[i].QuestionIDs)
	}

	all, err := store.ListTournaments(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateTournament_RollbackLeavesNothing(t *testing.T) {
	database := setupTestDB(t)
	store := NewTournamentStore(database)
	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	tournament := &bracket.Tournament{ID: uuid.New(), Name: "Draft", Status: bracket.TournamentStarted, QuestionsPerMatch: 1, CreatedAt: testNow, UpdatedAt: testNow}
	require.NoError(t, store.CreateTournament(ctx, tx, tournament))
	require.NoError(t, tx.Rollback())

	_, err = store.GetTournament(ctx, tournament.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestClaimMatch(t *testing.T) {
	store := NewTournamentStore(setupTestDB(t))
	ctx := context.Background()
	b, tournament := seedTournament(t, store, []string{"Owls", "Foxes", "Bears"})

	bye := b.Round(0)[0]
	playable := b.Round(0)[1]
	final, _ := b.Match(b.FinalPosition())

	ok, err := store.ClaimMatch(ctx, bye.ID, "tab-1", testNow)
	require.NoError(t, err)
	assert.False(t, ok, "bye is not claimable")

	ok, err = store.ClaimMatch(ctx, final.ID, "tab-1", testNow)
	require.NoError(t, err)
	assert.False(t, ok, "final is missing a team")

	ok, err = store.ClaimMatch(ctx, playable.ID, "tab-1", testNow)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.ClaimMatch(ctx, playable.ID, "tab-2", testNow)
	require.NoError(t, err)
	assert.False(t, ok, "second claim loses")

	m, err := store.GetMatchAt(ctx, tournament.ID, playable.Position())
	require.NoError(t, err)
	assert.Equal(t, bracket.MatchInProgress, m.Status)
	assert.True(t, m.ClaimedByActor("tab-1"))
	assert.Equal(t, playable.Version+1, m.Version)
}

func TestClaimMatch_ConcurrentClaimsHaveOneWinner(t *testing.T) {
	store := NewTournamentStore(setupTestDB(t))
	ctx := context.Background()
	b, _ := seedTournament(t, store, []string{"Owls", "Foxes"})
	target := b.Round(0)[0]

	const claimants = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins []string
	)
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(actor string) {
			defer wg.Done()
			ok, err := store.ClaimMatch(ctx, target.ID, actor, testNow)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				wins = append(wins, actor)
				mu.Unlock()
			}
		}(fmt.Sprintf("tab-%d", i))
	}
	wg.Wait()

	require.Len(t, wins, 1)
	m, err := store.GetMatch(ctx, target.ID)
	require.NoError(t, err)
	assert.True(t, m.ClaimedByActor(wins[0]))
}

func TestReclaimMatch(t *testing.T) {
	store := NewTournamentStore(setupTestDB(t))
	ctx := context.Background()
	b, _ := seedTournament(t, store, []string{"Owls", "Foxes"})
	target := b.Round(0)[0]

	ok, err := store.ReclaimMatch(ctx, target.ID, "tab-2", target.Version, testNow)
	require.NoError(t, err)
	assert.False(t, ok, "pending match cannot be reclaimed")

	ok, err = store.ClaimMatch(ctx, target.ID, "tab-1", testNow)
	require.NoError(t, err)
	require.True(t, ok)
	claimed, err := store.GetMatch(ctx, target.ID)
	require.NoError(t, err)

	later := testNow.Add(10 * time.Minute)
	ok, err = store.ReclaimMatch(ctx, target.ID, "tab-2", claimed.Version, later)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.ReclaimMatch(ctx, target.ID, "tab-3", claimed.Version, later)
	require.NoError(t, err)
	assert.False(t, ok, "version moved on")

	m, err := store.GetMatch(ctx, target.ID)
	require.NoError(t, err)
	assert.True(t, m.ClaimedByActor("tab-2"))
	assert.WithinDuration(t, later, m.UpdatedAt, time.Second)
}

func TestSetMatchQuestions(t *testing.T) {
	store := NewTournamentStore(setupTestDB(t))
	ctx := context.Background()
	b, _ := seedTournament(t, store, []string{"Owls", "Foxes"})
	target := b.Round(0)[0]

	ok, err := store.ClaimMatch(ctx, target.ID, "tab-1", testNow)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.SetMatchQuestions(ctx, target.ID, "tab-2", []string{"q1"}, testNow)
	require.NoError(t, err)
	assert.False(t, ok, "only the claimant sets questions")

	ok, err = store.SetMatchQuestions(ctx, target.ID, "tab-1", []string{"q3", "q1"}, testNow)
	require.NoError(t, err)
	assert.True(t, ok)

	m, err := store.GetMatch(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, bracket.StringList{"q3", "q1"}, m.QuestionIDs)
}

func TestUpdatePlayAndComplete(t *testing.T) {
	store := NewTournamentStore(setupTestDB(t))
	ctx := context.Background()
	b, tournament := seedTournament(t, store, []string{"Owls", "Foxes", "Bears", "Wolves"})
	pos := bracket.Position{Round: 0, Index: 0}
	target, _ := b.Match(pos)

	ok, err := store.ClaimMatch(ctx, target.ID, "tab-1", testNow)
	require.NoError(t, err)
	require.True(t, ok)

	m, err := store.GetMatch(ctx, target.ID)
	require.NoError(t, err)
	expected := m.Version
	require.NoError(t, m.Award("q1", bracket.Team1Side, 10, testNow))

	ok, err = store.UpdatePlay(ctx, *m, expected)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.UpdatePlay(ctx, *m, expected)
	require.NoError(t, err)
	assert.False(t, ok, "stale version is rejected")

	stored, err := store.GetMatch(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, stored.Team1Score)
	assert.Equal(t, bracket.StringList{"q1"}, stored.CompletedQuestionIDs)

	done := *stored
	done.Team1Score, done.Team2Score = 10, 5
	done.WinnerIndex = done.Team1Index
	done.Version++
	other, otherActor := done, "tab-2"
	other.ClaimedBy = &otherActor
	ok, err = store.CompleteMatch(ctx, other, stored.Version)
	require.NoError(t, err)
	assert.False(t, ok, "only the claimant can complete")

	ok, err = store.CompleteMatch(ctx, done, stored.Version)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.CompleteMatch(ctx, done, done.Version)
	require.NoError(t, err)
	assert.False(t, ok, "completed match cannot complete again")

	require.NoError(t, store.SetTeamSlot(ctx, tournament.ID, bracket.Position{Round: 1, Index: 0}, bracket.Team1Side, *done.WinnerIndex, testNow))
	parent, err := store.GetMatchAt(ctx, tournament.ID, bracket.Position{Round: 1, Index: 0})
	require.NoError(t, err)
	require.NotNil(t, parent.Team1Index)
	assert.Equal(t, *done.WinnerIndex, *parent.Team1Index)
	assert.Nil(t, parent.Team2Index)
	assert.Equal(t, 1, parent.Version)

	require.NoError(t, store.SetTeamSlot(ctx, tournament.ID, bracket.Position{Round: 1, Index: 0}, bracket.Team1Side, *done.WinnerIndex, testNow.Add(time.Minute)))
	retried, err := store.GetMatchAt(ctx, tournament.ID, bracket.Position{Round: 1, Index: 0})
	require.NoError(t, err)
	assert.Equal(t, parent.Version, retried.Version, "rewriting the same team leaves the row alone")
	assert.True(t, parent.UpdatedAt.Equal(retried.UpdatedAt))

	err = store.SetTeamSlot(ctx, tournament.ID, bracket.Position{Round: 7, Index: 0}, bracket.Team1Side, 0, testNow)
	assert.Error(t, err)

	final, err := store.GetMatch(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, bracket.MatchCompleted, final.Status)
	assert.Equal(t, done.WinnerIndex, final.WinnerIndex)
}

func TestSaveSnapshotAndPool(t *testing.T) {
	store := NewTournamentStore(setupTestDB(t))
	ctx := context.Background()
	b, tournament := seedTournament(t, store, []string{"Owls", "Foxes"})

	snap := b.Snapshot()
	snap.CompletedMatches = 1
	require.NoError(t, store.SaveSnapshot(ctx, tournament.ID, snap, bracket.TournamentCompleted, testNow))
	require.NoError(t, store.SaveQuestionPool(ctx, tournament.ID, []string{"q4"}, testNow))

	fetched, err := store.GetTournament(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, bracket.TournamentCompleted, fetched.Status)
	assert.Equal(t, 1, fetched.Bracket.CompletedMatches)
	assert.Equal(t, bracket.StringList{"q4"}, fetched.QuestionPool)

	require.NoError(t, store.SaveQuestionPool(ctx, tournament.ID, nil, testNow))
	fetched, err = store.GetTournament(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Empty(t, fetched.QuestionPool)
}

func TestQuestionStore(t *testing.T) {
	qs := NewQuestionStore(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, qs.CreateQuestion(ctx, &question.Question{ID: "q2", Prompt: "Capital of Peru?", Answer: "Lima", Category: "Geography", Points: 10}))
	require.NoError(t, qs.CreateQuestion(ctx, &question.Question{ID: "q1", Prompt: "2+2?", Answer: "4", Points: 5}))
	assert.Error(t, qs.CreateQuestion(ctx, &question.Question{ID: "q1", Prompt: "dup", Answer: "dup"}))

	all, err := qs.ListQuestions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "q1", all[0].ID)
	assert.Equal(t, "Lima", all[1].Answer)
}
