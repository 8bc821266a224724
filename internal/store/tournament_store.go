package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/bracket"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	createTournamentQuery = `
		INSERT INTO tournaments (id, name, status, questions_per_match, bracket, question_pool, created_at, updated_at)
		VALUES (:id, :name, :status, :questions_per_match, :bracket, :question_pool, :created_at, :updated_at)
	`
	createMatchQuery = `
		INSERT INTO matches (id, tournament_id, round_index, match_index, team1_index, team2_index,
			team1_score, team2_score, winner_index, status, claimed_by,
			question_ids, completed_question_ids, skipped_questions, version, updated_at)
		VALUES (:id, :tournament_id, :round_index, :match_index, :team1_index, :team2_index,
			:team1_score, :team2_score, :winner_index, :status, :claimed_by,
			:question_ids, :completed_question_ids, :skipped_questions, :version, :updated_at)
	`

	// A claim only succeeds on a pending match with both teams known. The
	// conditional update is the whole lock.
	claimMatchQuery = `
		UPDATE matches SET
			status = 'in_progress',
			claimed_by = ?,
			version = version + 1,
			updated_at = ?
		WHERE id = ?
		AND status = 'pending'
		AND team1_index IS NOT NULL
		AND team2_index IS NOT NULL
	`
	reclaimMatchQuery = `
		UPDATE matches SET
			claimed_by = ?,
			version = version + 1,
			updated_at = ?
		WHERE id = ?
		AND status = 'in_progress'
		AND version = ?
	`
	setMatchQuestionsQuery = `
		UPDATE matches SET
			question_ids = ?,
			version = version + 1,
			updated_at = ?
		WHERE id = ?
		AND status = 'in_progress'
		AND claimed_by = ?
	`
	updatePlayQuery = `
		UPDATE matches SET
			team1_score = :team1_score,
			team2_score = :team2_score,
			completed_question_ids = :completed_question_ids,
			skipped_questions = :skipped_questions,
			version = :version,
			updated_at = :updated_at
		WHERE id = :id
		AND status = 'in_progress'
		AND version = :expected_version
	`
	completeMatchQuery = `
		UPDATE matches SET
			team1_score = :team1_score,
			team2_score = :team2_score,
			winner_index = :winner_index,
			status = 'completed',
			completed_question_ids = :completed_question_ids,
			version = :version,
			updated_at = :updated_at
		WHERE id = :id
		AND status = 'in_progress'
		AND version = :expected_version
		AND claimed_by = :claimed_by
	`
	// A slot that already holds the team is left untouched.
	setTeam1SlotQuery = `
		UPDATE matches SET team1_index = ?, version = version + 1, updated_at = ?
		WHERE tournament_id = ? AND round_index = ? AND match_index = ?
		AND (team1_index IS NULL OR team1_index != ?)
	`
	setTeam2SlotQuery = `
		UPDATE matches SET team2_index = ?, version = version + 1, updated_at = ?
		WHERE tournament_id = ? AND round_index = ? AND match_index = ?
		AND (team2_index IS NULL OR team2_index != ?)
	`

	saveSnapshotQuery     = "UPDATE tournaments SET bracket = ?, status = ?, updated_at = ? WHERE id = ?"
	saveQuestionPoolQuery = "UPDATE tournaments SET question_pool = ?, updated_at = ? WHERE id = ?"
)

type TournamentStore struct {
	db *sqlx.DB
}

func NewTournamentStore(db *sqlx.DB) *TournamentStore {
	return &TournamentStore{db: db}
}

// BeginTx starts a transaction for the multi-row writes made at creation.
func (s *TournamentStore) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return s.db.BeginTxx(ctx, nil)
}

func (s *TournamentStore) CreateTournament(ctx context.Context, tx *sqlx.Tx, tournament *bracket.Tournament) error {
	_, err := tx.NamedExecContext(ctx, createTournamentQuery, tournament)
	return err
}

func (s *TournamentStore) CreateMatches(ctx context.Context, tx *sqlx.Tx, matches []bracket.Match) error {
	if len(matches) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, createMatchQuery, matches)
	return err
}

func (s *TournamentStore) GetTournament(ctx context.Context, id uuid.UUID) (*bracket.Tournament, error) {
	var tournament bracket.Tournament
	if err := s.db.GetContext(ctx, &tournament, "SELECT * FROM tournaments WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &tournament, nil
}

func (s *TournamentStore) ListTournaments(ctx context.Context) ([]bracket.Tournament, error) {
	var tournaments []bracket.Tournament
	err := s.db.SelectContext(ctx, &tournaments, "SELECT * FROM tournaments ORDER BY created_at DESC")
	return tournaments, err
}

func (s *TournamentStore) GetMatch(ctx context.Context, id uuid.UUID) (*bracket.Match, error) {
	var match bracket.Match
	if err := s.db.GetContext(ctx, &match, "SELECT * FROM matches WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &match, nil
}

func (s *TournamentStore) GetMatchAt(ctx context.Context, tournamentID uuid.UUID, pos bracket.Position) (*bracket.Match, error) {
	var match bracket.Match
	err := s.db.GetContext(ctx, &match, "SELECT * FROM matches WHERE tournament_id = ? AND round_index = ? AND match_index = ?",
		tournamentID, pos.Round, pos.Index)
	if err != nil {
		return nil, err
	}
	return &match, nil
}

func (s *TournamentStore) GetMatches(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Match, error) {
	var matches []bracket.Match
	err := s.db.SelectContext(ctx, &matches, "SELECT * FROM matches WHERE tournament_id = ? ORDER BY round_index ASC, match_index ASC", tournamentID)
	return matches, err
}

// ClaimMatch moves a pending match to in_progress for actor. It reports false
// when another claim got there first or the match is not claimable.
func (s *TournamentStore) ClaimMatch(ctx context.Context, id uuid.UUID, actor string, now time.Time) (bool, error) {
	return s.execAffected(ctx, claimMatchQuery, actor, now.UTC(), id)
}

// ReclaimMatch hands an in_progress match to actor if the row is still at
// expectedVersion, meaning nobody has written to it since it was judged
// stale.
func (s *TournamentStore) ReclaimMatch(ctx context.Context, id uuid.UUID, actor string, expectedVersion int, now time.Time) (bool, error) {
	return s.execAffected(ctx, reclaimMatchQuery, actor, now.UTC(), id, expectedVersion)
}

// SetMatchQuestions stores the allocated question ids. Only the current
// claimant can set them.
func (s *TournamentStore) SetMatchQuestions(ctx context.Context, id uuid.UUID, actor string, questionIDs []string, now time.Time) (bool, error) {
	return s.execAffected(ctx, setMatchQuestionsQuery, bracket.StringList(questionIDs), now.UTC(), id, actor)
}

type versionedMatch struct {
	bracket.Match
	ExpectedVersion int `db:"expected_version"`
}

// UpdatePlay writes in-play progress of m if the stored row is still at
// expectedVersion.
func (s *TournamentStore) UpdatePlay(ctx context.Context, m bracket.Match, expectedVersion int) (bool, error) {
	return s.namedExecAffected(ctx, updatePlayQuery, versionedMatch{Match: utcMatch(m), ExpectedVersion: expectedVersion})
}

// CompleteMatch writes the final result of m if the stored row is still
// in_progress at expectedVersion and claimed by m.ClaimedBy.
func (s *TournamentStore) CompleteMatch(ctx context.Context, m bracket.Match, expectedVersion int) (bool, error) {
	return s.namedExecAffected(ctx, completeMatchQuery, versionedMatch{Match: utcMatch(m), ExpectedVersion: expectedVersion})
}

// SetTeamSlot writes team into one side of the match at pos. Writing the
// team a slot already holds is a no-op.
func (s *TournamentStore) SetTeamSlot(ctx context.Context, tournamentID uuid.UUID, pos bracket.Position, side bracket.Side, team int, now time.Time) error {
	query := setTeam1SlotQuery
	if side == bracket.Team2Side {
		query = setTeam2SlotQuery
	}
	ok, err := s.execAffected(ctx, query, team, now.UTC(), tournamentID, pos.Round, pos.Index, team)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if _, err := s.GetMatchAt(ctx, tournamentID, pos); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("no match at %s", pos)
		}
		return err
	}
	return nil
}

// SaveSnapshot overwrites the denormalized bracket document and status.
func (s *TournamentStore) SaveSnapshot(ctx context.Context, tournamentID uuid.UUID, snapshot bracket.Snapshot, status bracket.TournamentStatus, now time.Time) error {
	_, err := s.db.ExecContext(ctx, saveSnapshotQuery, snapshot, status, now.UTC(), tournamentID)
	return err
}

// SaveQuestionPool overwrites the remaining pool. Concurrent saves are last
// writer wins.
func (s *TournamentStore) SaveQuestionPool(ctx context.Context, tournamentID uuid.UUID, pool []string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, saveQuestionPoolQuery, bracket.StringList(pool), now.UTC(), tournamentID)
	return err
}

func (s *TournamentStore) execAffected(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *TournamentStore) namedExecAffected(ctx context.Context, query string, arg any) (bool, error) {
	res, err := s.db.NamedExecContext(ctx, query, arg)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func utcMatch(m bracket.Match) bracket.Match {
	m.UpdatedAt = m.UpdatedAt.UTC()
	return m
}
