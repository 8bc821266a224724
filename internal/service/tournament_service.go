package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/bracket"
	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/question"
	"github.com/google/uuid"
)

type TournamentService struct {
	store      Store
	questions  QuestionSource
	reconciler *Reconciler
	logger     *slog.Logger
	// rand drives the pool shuffle. Nil uses the global source.
	rand *rand.Rand
	now  func() time.Time
}

func NewTournamentService(store Store, questions QuestionSource, reconciler *Reconciler, logger *slog.Logger) *TournamentService {
	return &TournamentService{store: store, questions: questions, reconciler: reconciler, logger: logger, now: time.Now}
}

type CreateTournamentInput struct {
	Name              string   `json:"name"`
	Teams             []string `json:"teams"`
	QuestionsPerMatch int      `json:"questionsPerMatch"`
}

// TournamentData is a tournament rebuilt from its match rows.
type TournamentData struct {
	Tournament *bracket.Tournament `json:"tournament"`
	Bracket    bracket.Snapshot    `json:"bracket"`
	Matches    []bracket.Match     `json:"matches"`
}

// CreateTournament generates the bracket and writes the tournament with all
// of its match rows in one transaction.
func (s *TournamentService) CreateTournament(ctx context.Context, in CreateTournamentInput) (uuid.UUID, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return uuid.Nil, ErrEmptyName
	}

	full, err := s.questions.ListQuestions(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to list questions: %w", err)
	}
	if len(full) == 0 {
		return uuid.Nil, ErrNoQuestions
	}

	now := s.now().UTC()
	tournamentID := uuid.New()
	b, pool, err := bracket.Generate(bracket.GenerateParams{
		TournamentID:      tournamentID,
		TeamNames:         in.Teams,
		QuestionsPerMatch: in.QuestionsPerMatch,
		QuestionIDs:       question.IDs(full),
		Rand:              s.rand,
		Now:               now,
	})
	if err != nil {
		return uuid.Nil, err
	}

	tournament := bracket.Tournament{
		ID:                tournamentID,
		Name:              name,
		Status:            bracket.TournamentStarted,
		QuestionsPerMatch: in.QuestionsPerMatch,
		Bracket:           b.Snapshot(),
		QuestionPool:      pool,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	defer tx.Rollback()

	if err := s.store.CreateTournament(ctx, tx, &tournament); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	if err := s.store.CreateMatches(ctx, tx, b.Matches()); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create matches: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return uuid.Nil, err
	}

	s.logger.Info("tournament created",
		slog.String("tournament_id", tournamentID.String()),
		slog.Int("teams", len(in.Teams)),
		slog.Int("rounds", b.TotalRounds()),
	)
	return tournamentID, nil
}

// FetchTournament returns the skeleton rebuilt from the authoritative rows.
func (s *TournamentService) FetchTournament(ctx context.Context, id uuid.UUID) (*TournamentData, error) {
	loaded, err := s.reconciler.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return newTournamentData(loaded), nil
}

func (s *TournamentService) ListTournaments(ctx context.Context) ([]bracket.Tournament, error) {
	return s.store.ListTournaments(ctx)
}

// Resync heals missing winner slots and rewrites the snapshot document.
func (s *TournamentService) Resync(ctx context.Context, id uuid.UUID) (*TournamentData, error) {
	loaded, err := s.reconciler.Resync(ctx, id)
	if err != nil {
		return nil, err
	}
	return newTournamentData(loaded), nil
}

func newTournamentData(loaded *Loaded) *TournamentData {
	snap := loaded.Bracket.Snapshot()
	t := *loaded.Tournament
	t.Bracket = snap
	return &TournamentData{Tournament: &t, Bracket: snap, Matches: loaded.Bracket.Matches()}
}
