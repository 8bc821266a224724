package service

import (
	"context"
	"time"

	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/bracket"
	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/question"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Store is the storage collaborator. Conditional writes report false when
// their guard did not match.
type Store interface {
	BeginTx(ctx context.Context) (*sqlx.Tx, error)
	CreateTournament(ctx context.Context, tx *sqlx.Tx, tournament *bracket.Tournament) error
	CreateMatches(ctx context.Context, tx *sqlx.Tx, matches []bracket.Match) error

	GetTournament(ctx context.Context, id uuid.UUID) (*bracket.Tournament, error)
	ListTournaments(ctx context.Context) ([]bracket.Tournament, error)
	GetMatch(ctx context.Context, id uuid.UUID) (*bracket.Match, error)
	GetMatchAt(ctx context.Context, tournamentID uuid.UUID, pos bracket.Position) (*bracket.Match, error)
	GetMatches(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Match, error)

	ClaimMatch(ctx context.Context, id uuid.UUID, actor string, now time.Time) (bool, error)
	ReclaimMatch(ctx context.Context, id uuid.UUID, actor string, expectedVersion int, now time.Time) (bool, error)
	SetMatchQuestions(ctx context.Context, id uuid.UUID, actor string, questionIDs []string, now time.Time) (bool, error)
	UpdatePlay(ctx context.Context, m bracket.Match, expectedVersion int) (bool, error)
	CompleteMatch(ctx context.Context, m bracket.Match, expectedVersion int) (bool, error)
	SetTeamSlot(ctx context.Context, tournamentID uuid.UUID, pos bracket.Position, side bracket.Side, team int, now time.Time) error

	SaveSnapshot(ctx context.Context, tournamentID uuid.UUID, snapshot bracket.Snapshot, status bracket.TournamentStatus, now time.Time) error
	SaveQuestionPool(ctx context.Context, tournamentID uuid.UUID, pool []string, now time.Time) error
}

// QuestionSource supplies the full question set.
type QuestionSource interface {
	ListQuestions(ctx context.Context) ([]question.Question, error)
}

// Publisher pushes committed match rows to observers.
type Publisher interface {
	PublishMatch(m bracket.Match) error
}
