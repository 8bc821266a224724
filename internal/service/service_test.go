package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/bracket"
	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/db"
	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/metrics"
	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/question"
	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

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

// recorder captures published rows.
type recorder struct {
	mu   sync.Mutex
	rows []bracket.Match
}

func (r *recorder) PublishMatch(m bracket.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, m)
	return nil
}

func (r *recorder) published() []bracket.Match {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bracket.Match(nil), r.rows...)
}

type testEnv struct {
	store       *store.TournamentStore
	questions   *store.QuestionStore
	feed        *recorder
	reconciler  *Reconciler
	tournaments *TournamentService
	matches     *MatchService

	mu  sync.Mutex
	now time.Time
}

func (e *testEnv) clock() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

func (e *testEnv) advance(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = e.now.Add(d)
}

// newTestEnv wires the services over a fresh database seeded with
// questionCount questions. backing wraps the real store when a test needs to
// inject failures.
func newTestEnv(t *testing.T, questionCount int, backing func(*store.TournamentStore) Store) *testEnv {
	t.Helper()
	database := setupTestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	e := &testEnv{
		store:     store.NewTournamentStore(database),
		questions: store.NewQuestionStore(database),
		feed:      &recorder{},
		now:       testStart,
	}
	for i := 1; i <= questionCount; i++ {
		require.NoError(t, e.questions.CreateQuestion(context.Background(), &question.Question{
			ID: fmt.Sprintf("q%02d", i), Prompt: fmt.Sprintf("Question %d", i), Answer: "answer", Points: 10,
		}))
	}

	var s Store = e.store
	if backing != nil {
		s = backing(e.store)
	}
	m := metrics.New(prometheus.NewRegistry())

	e.reconciler = NewReconciler(s, e.feed, logger, m)
	e.reconciler.now = e.clock
	e.tournaments = NewTournamentService(s, e.questions, e.reconciler, logger)
	e.tournaments.now = e.clock
	e.tournaments.rand = rand.New(rand.NewPCG(4, 2))
	e.matches = NewMatchService(s, e.questions, e.reconciler, question.NewAllocator(rand.New(rand.NewPCG(2, 4))), 5*time.Minute, logger, m)
	e.matches.now = e.clock
	return e
}

func (e *testEnv) create(t *testing.T, perMatch int, teams ...string) uuid.UUID {
	t.Helper()
	id, err := e.tournaments.CreateTournament(context.Background(), CreateTournamentInput{
		Name:              "Friday Quiz",
		Teams:             teams,
		QuestionsPerMatch: perMatch,
	})
	require.NoError(t, err)
	return id
}

// matchAt returns the current row at pos.
func (e *testEnv) matchAt(t *testing.T, tournamentID uuid.UUID, round, index int) bracket.Match {
	t.Helper()
	m, err := e.store.GetMatchAt(context.Background(), tournamentID, bracket.Position{Round: round, Index: index})
	require.NoError(t, err)
	return *m
}

func (e *testEnv) claim(t *testing.T, matchID uuid.UUID, actor string) ClaimResult {
	t.Helper()
	res, err := e.matches.ClaimMatch(context.Background(), matchID, actor)
	require.NoError(t, err)
	require.Equal(t, ClaimGranted, res.Status)
	return res
}

func intPtr(v int) *int {
	return &v
}

// failingStore fails selected writes of an otherwise real store.
type failingStore struct {
	*store.TournamentStore
	failSlot     bool
	failSnapshot bool
}

var errInjected = errors.New("injected failure")

func (s *failingStore) SetTeamSlot(ctx context.Context, tournamentID uuid.UUID, pos bracket.Position, side bracket.Side, team int, now time.Time) error {
	if s.failSlot {
		return errInjected
	}
	return s.TournamentStore.SetTeamSlot(ctx, tournamentID, pos, side, team, now)
}

func (s *failingStore) SaveSnapshot(ctx context.Context, tournamentID uuid.UUID, snapshot bracket.Snapshot, status bracket.TournamentStatus, now time.Time) error {
	if s.failSnapshot {
		return errInjected
	}
	return s.TournamentStore.SaveSnapshot(ctx, tournamentID, snapshot, status, now)
}

// reclaimingStore hands reclaimID to actor the first time the tournament's
// rows are read, imitating another tab taking over mid-request.
type reclaimingStore struct {
	*store.TournamentStore
	reclaimID uuid.UUID
	actor     string
}

func (s *reclaimingStore) GetMatches(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Match, error) {
	if s.reclaimID != uuid.Nil {
		id := s.reclaimID
		s.reclaimID = uuid.Nil
		m, err := s.TournamentStore.GetMatch(ctx, id)
		if err != nil {
			return nil, err
		}
		if _, err := s.TournamentStore.ReclaimMatch(ctx, id, s.actor, m.Version, m.UpdatedAt); err != nil {
			return nil, err
		}
	}
	return s.TournamentStore.GetMatches(ctx, tournamentID)
}
