package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/bracket"
	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/metrics"
	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/question"
	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/utils"
	"github.com/google/uuid"
)

type ClaimStatus string

const (
	ClaimGranted     ClaimStatus = "granted"
	ClaimTaken       ClaimStatus = "taken"
	ClaimNotFound    ClaimStatus = "not_found"
	ClaimNotPlayable ClaimStatus = "not_playable"
	ClaimNotStale    ClaimStatus = "not_stale"
	ClaimUnclaimed   ClaimStatus = "unclaimed"
	ClaimClosed      ClaimStatus = "closed"
)

// ClaimResult is the outcome of a claim or reclaim. Match and Questions are
// only set when Status is ClaimGranted.
type ClaimResult struct {
	Status    ClaimStatus         `json:"status"`
	Match     *bracket.Match      `json:"match,omitempty"`
	Questions []question.Question `json:"questions,omitempty"`
	// Resumed is set when the actor already held the claim.
	Resumed bool `json:"resumed,omitempty"`
}

func (r ClaimResult) Granted() bool {
	return r.Status == ClaimGranted
}

// MatchService coordinates claims and play on individual matches. There is
// no in-process lock; every write is conditional on the stored row.
type MatchService struct {
	store      Store
	questions  QuestionSource
	reconciler *Reconciler
	allocator  *question.Allocator
	staleAfter time.Duration
	logger     *slog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

func NewMatchService(store Store, questions QuestionSource, reconciler *Reconciler, allocator *question.Allocator, staleAfter time.Duration, logger *slog.Logger, m *metrics.Metrics) *MatchService {
	return &MatchService{
		store:      store,
		questions:  questions,
		reconciler: reconciler,
		allocator:  allocator,
		staleAfter: staleAfter,
		logger:     logger,
		metrics:    m,
		now:        time.Now,
	}
}

func (s *MatchService) GetMatch(ctx context.Context, matchID uuid.UUID) (*bracket.Match, error) {
	return s.store.GetMatch(ctx, matchID)
}

// ClaimMatch takes a pending, playable match for actor. Losing a race is
// reported in the result, not as an error.
func (s *MatchService) ClaimMatch(ctx context.Context, matchID uuid.UUID, actor string) (ClaimResult, error) {
	res, err := s.claim(ctx, matchID, actor)
	if err == nil {
		s.metrics.Claim("claim", string(res.Status))
	}
	return res, err
}

func (s *MatchService) claim(ctx context.Context, matchID uuid.UUID, actor string) (ClaimResult, error) {
	m, err := s.store.GetMatch(ctx, matchID)
	if errors.Is(err, sql.ErrNoRows) {
		return ClaimResult{Status: ClaimNotFound}, nil
	}
	if err != nil {
		return ClaimResult{}, fmt.Errorf("failed to get match: %w", err)
	}
	log := s.matchLogger(m, actor)

	if m.Status == bracket.MatchInProgress && m.ClaimedByActor(actor) {
		return s.grant(ctx, log, m, actor, true)
	}
	if status, ok := unclaimable(m); ok {
		log.Warn("claim rejected", slog.String("result", string(status)))
		return ClaimResult{Status: status}, nil
	}

	won, err := s.store.ClaimMatch(ctx, matchID, actor, s.now())
	if err != nil {
		return ClaimResult{}, fmt.Errorf("failed to claim match: %w", err)
	}
	if !won {
		// Someone else flipped it between the read and the write.
		log.Warn("claim lost race")
		return ClaimResult{Status: ClaimTaken}, nil
	}

	m, err = s.store.GetMatch(ctx, matchID)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("failed to get claimed match: %w", err)
	}
	log.Info("match claimed")
	return s.grant(ctx, log, m, actor, false)
}

func unclaimable(m *bracket.Match) (ClaimStatus, bool) {
	if m.Finished() {
		return ClaimClosed, true
	}
	err := bracket.CanStart(*m)
	switch {
	case err == nil:
		return "", false
	case errors.Is(err, bracket.ErrNotPending):
		return ClaimTaken, true
	default:
		return ClaimNotPlayable, true
	}
}

// ReclaimStaleMatch hands an abandoned in_progress match to actor. Play
// resumes from the last committed scores and questions.
func (s *MatchService) ReclaimStaleMatch(ctx context.Context, matchID uuid.UUID, actor string) (ClaimResult, error) {
	res, err := s.reclaim(ctx, matchID, actor)
	if err == nil {
		s.metrics.Claim("reclaim", string(res.Status))
	}
	return res, err
}

func (s *MatchService) reclaim(ctx context.Context, matchID uuid.UUID, actor string) (ClaimResult, error) {
	m, err := s.store.GetMatch(ctx, matchID)
	if errors.Is(err, sql.ErrNoRows) {
		return ClaimResult{Status: ClaimNotFound}, nil
	}
	if err != nil {
		return ClaimResult{}, fmt.Errorf("failed to get match: %w", err)
	}
	log := s.matchLogger(m, actor)

	switch {
	case m.Finished():
		return ClaimResult{Status: ClaimClosed}, nil
	case m.Status == bracket.MatchPending:
		return ClaimResult{Status: ClaimUnclaimed}, nil
	case m.ClaimedByActor(actor):
		return s.grant(ctx, log, m, actor, true)
	case !m.IsStale(s.now(), s.staleAfter):
		log.Warn("reclaim rejected, claim is still active", slog.Time("updated_at", m.UpdatedAt))
		return ClaimResult{Status: ClaimNotStale}, nil
	}

	won, err := s.store.ReclaimMatch(ctx, matchID, actor, m.Version, s.now())
	if err != nil {
		return ClaimResult{}, fmt.Errorf("failed to reclaim match: %w", err)
	}
	if !won {
		log.Warn("reclaim lost race")
		return ClaimResult{Status: ClaimTaken}, nil
	}

	previous := utils.OrZero(m.ClaimedBy)
	m, err = s.store.GetMatch(ctx, matchID)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("failed to get reclaimed match: %w", err)
	}
	log.Info("stale match reclaimed", slog.String("previous_actor", previous))
	return s.grant(ctx, log, m, actor, false)
}

// grant finishes a successful claim: questions are allocated on first use,
// then the committed row is published.
func (s *MatchService) grant(ctx context.Context, log *slog.Logger, m *bracket.Match, actor string, resumed bool) (ClaimResult, error) {
	full, err := s.questions.ListQuestions(ctx)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("failed to list questions: %w", err)
	}

	var questions []question.Question
	changed := !resumed
	if len(m.QuestionIDs) > 0 {
		questions = question.Resolve(m.QuestionIDs, full)
	} else {
		changed = true
		questions, err = s.allocate(ctx, m, actor, full)
		if err != nil {
			return ClaimResult{}, err
		}
		m, err = s.store.GetMatch(ctx, m.ID)
		if err != nil {
			return ClaimResult{}, fmt.Errorf("failed to get match: %w", err)
		}
		log.Info("questions allocated", slog.Int("count", len(questions)))
	}

	if changed {
		s.reconciler.publish(log, *m)
	}
	return ClaimResult{Status: ClaimGranted, Match: m, Questions: questions, Resumed: resumed}, nil
}

func (s *MatchService) allocate(ctx context.Context, m *bracket.Match, actor string, full []question.Question) ([]question.Question, error) {
	tournament, err := s.store.GetTournament(ctx, m.TournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}

	questions, remaining := s.allocator.Allocate(tournament.QuestionPool, tournament.QuestionsPerMatch, full)
	now := s.now()
	if err := s.store.SaveQuestionPool(ctx, tournament.ID, remaining, now); err != nil {
		return nil, fmt.Errorf("failed to save question pool: %w", err)
	}
	ok, err := s.store.SetMatchQuestions(ctx, m.ID, actor, question.IDs(questions), now)
	if err != nil {
		return nil, fmt.Errorf("failed to store match questions: %w", err)
	}
	if !ok {
		return nil, ErrNotClaimant
	}
	return questions, nil
}

// Answer is one resolved question. Side is bracket.NoSide when nobody
// scored.
type Answer struct {
	QuestionID string       `json:"questionId"`
	Side       bracket.Side `json:"side"`
	Points     int          `json:"points"`
}

func (s *MatchService) RecordAnswer(ctx context.Context, matchID uuid.UUID, actor string, a Answer) (*bracket.Match, error) {
	return s.mutate(ctx, matchID, actor, "answer recorded", func(m *bracket.Match, now time.Time) error {
		return m.Award(a.QuestionID, a.Side, a.Points, now)
	})
}

func (s *MatchService) SkipQuestion(ctx context.Context, matchID uuid.UUID, actor, questionID string) (*bracket.Match, error) {
	return s.mutate(ctx, matchID, actor, "question skipped", func(m *bracket.Match, now time.Time) error {
		return m.Skip(questionID, now)
	})
}

// AdjustScore is the host override. It may lower scores.
func (s *MatchService) AdjustScore(ctx context.Context, matchID uuid.UUID, actor string, team1Score, team2Score int) (*bracket.Match, error) {
	return s.mutate(ctx, matchID, actor, "score adjusted", func(m *bracket.Match, now time.Time) error {
		return m.Adjust(team1Score, team2Score, now)
	})
}

// mutate applies fn to the claimant's match and writes it back only if the
// row has not changed since it was read.
func (s *MatchService) mutate(ctx context.Context, matchID uuid.UUID, actor, msg string, fn func(*bracket.Match, time.Time) error) (*bracket.Match, error) {
	m, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	if m.Status == bracket.MatchInProgress && !m.ClaimedByActor(actor) {
		return nil, ErrNotClaimant
	}

	expected := m.Version
	if err := fn(m, s.now()); err != nil {
		return nil, err
	}
	ok, err := s.store.UpdatePlay(ctx, *m, expected)
	if err != nil {
		return nil, fmt.Errorf("failed to update match: %w", err)
	}
	if !ok {
		return nil, ErrStaleWrite
	}

	log := s.matchLogger(m, actor)
	log.Info(msg, slog.Int("team1_score", m.Team1Score), slog.Int("team2_score", m.Team2Score))
	s.reconciler.publish(log, *m)
	return m, nil
}

type EndMatchRequest struct {
	// WinnerIndex is required when the scores are tied.
	WinnerIndex         *int     `json:"winnerIndex"`
	Team1Score          int      `json:"team1Score"`
	Team2Score          int      `json:"team2Score"`
	ConsumedQuestionIDs []string `json:"consumedQuestionIds"`
}

// EndMatch completes the claimant's match and advances the winner. All
// validation happens before the first write.
func (s *MatchService) EndMatch(ctx context.Context, matchID uuid.UUID, actor string, req EndMatchRequest) (bracket.Snapshot, error) {
	m, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return bracket.Snapshot{}, fmt.Errorf("failed to get match: %w", err)
	}
	if m.Status == bracket.MatchInProgress && !m.ClaimedByActor(actor) {
		return bracket.Snapshot{}, ErrNotClaimant
	}

	loaded, err := s.reconciler.Load(ctx, m.TournamentID)
	if err != nil {
		return bracket.Snapshot{}, err
	}
	b := loaded.Bracket
	current, ok := b.MatchByID(matchID)
	if !ok {
		return bracket.Snapshot{}, bracket.ErrUnknownMatch
	}
	// The claim has to hold on the same row the result is written against.
	if current.Status == bracket.MatchInProgress && !current.ClaimedByActor(actor) {
		return bracket.Snapshot{}, ErrNotClaimant
	}
	if current.Version != m.Version {
		return bracket.Snapshot{}, ErrStaleWrite
	}

	adv, err := b.Complete(current.Position(), bracket.Completion{
		WinnerIndex:         req.WinnerIndex,
		Team1Score:          req.Team1Score,
		Team2Score:          req.Team2Score,
		ConsumedQuestionIDs: req.ConsumedQuestionIDs,
	}, s.now())
	if err != nil {
		return bracket.Snapshot{}, err
	}

	if err := s.reconciler.Commit(ctx, m.TournamentID, b, adv, current.Version); err != nil {
		return bracket.Snapshot{}, err
	}

	snap := b.Snapshot()
	if champion, ok := b.Champion(); ok {
		s.matchLogger(m, actor).Info("tournament complete", slog.String("champion", snap.Teams[champion].Name))
	}
	return snap, nil
}

func (s *MatchService) matchLogger(m *bracket.Match, actor string) *slog.Logger {
	return s.logger.With(
		slog.String("tournament_id", m.TournamentID.String()),
		slog.String("match_id", m.ID.String()),
		slog.String("match", m.Position().String()),
		slog.String("actor", actor),
	)
}
