package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/bracket"
	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/metrics"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Reconciler keeps the match rows and the bracket snapshot document
// consistent. Rows are the source of truth; the snapshot is always a
// projection of them.
type Reconciler struct {
	store   Store
	feed    Publisher
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewReconciler(store Store, feed Publisher, logger *slog.Logger, m *metrics.Metrics) *Reconciler {
	return &Reconciler{store: store, feed: feed, logger: logger, metrics: m, now: time.Now}
}

// Loaded is a tournament rebuilt from storage.
type Loaded struct {
	Tournament *bracket.Tournament
	Rows       []bracket.Match
	Bracket    *bracket.Bracket
}

// Load reads the tournament and its match rows and rebuilds the bracket from
// the rows. The stored snapshot only supplies the team list and shape.
func (r *Reconciler) Load(ctx context.Context, tournamentID uuid.UUID) (*Loaded, error) {
	var (
		tournament *bracket.Tournament
		rows       []bracket.Match
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := r.store.GetTournament(gctx, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to get tournament: %w", err)
		}
		tournament = t
		return nil
	})
	g.Go(func() error {
		m, err := r.store.GetMatches(gctx, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to get matches: %w", err)
		}
		rows = m
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b, err := bracket.Rebuild(tournament.Bracket, rows)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild bracket %s: %w", tournamentID, err)
	}
	return &Loaded{Tournament: tournament, Rows: rows, Bracket: b}, nil
}

func tournamentStatus(b *bracket.Bracket) bracket.TournamentStatus {
	if b.IsComplete() {
		return bracket.TournamentCompleted
	}
	return bracket.TournamentStarted
}

// Commit persists a completion already applied to b: the result on the
// match row, the winner into the parent row, then the snapshot document.
// A failure stops the sequence and is returned; a later Load or Resync
// re-derives whatever was not written.
func (r *Reconciler) Commit(ctx context.Context, tournamentID uuid.UUID, b *bracket.Bracket, adv bracket.Advancement, expectedVersion int) error {
	now := r.now()
	log := r.logger.With(
		slog.String("tournament_id", tournamentID.String()),
		slog.String("match", adv.Match.Position().String()),
	)

	ok, err := r.store.CompleteMatch(ctx, adv.Match, expectedVersion)
	if err != nil {
		r.metrics.WriteFailed("match")
		log.Error("failed to write match result", slog.Any("error", err))
		return fmt.Errorf("failed to complete match: %w", err)
	}
	if !ok {
		return ErrStaleWrite
	}
	r.metrics.MatchCompleted()
	r.publish(log, adv.Match)

	if adv.Parent != nil {
		parentPos := adv.Parent.Position()
		if err := r.store.SetTeamSlot(ctx, tournamentID, parentPos, adv.Side, *adv.Match.WinnerIndex, now); err != nil {
			r.metrics.WriteFailed("advance")
			log.Error("failed to advance winner", slog.String("parent", parentPos.String()), slog.Any("error", err))
			return fmt.Errorf("failed to advance winner: %w", err)
		}
		r.publishStored(ctx, log, tournamentID, parentPos, *adv.Parent)
	}

	if err := r.store.SaveSnapshot(ctx, tournamentID, b.Snapshot(), tournamentStatus(b), now); err != nil {
		r.metrics.WriteFailed("snapshot")
		log.Error("failed to save bracket snapshot", slog.Any("error", err))
		return fmt.Errorf("failed to save bracket snapshot: %w", err)
	}

	log.Info("match committed",
		slog.Int("winner_index", *adv.Match.WinnerIndex),
		slog.Bool("tournament_complete", b.IsComplete()),
	)
	return nil
}

// Resync rebuilds the bracket from the rows, writes back any winner slot a
// row is missing and overwrites the snapshot document.
func (r *Reconciler) Resync(ctx context.Context, tournamentID uuid.UUID) (*Loaded, error) {
	loaded, err := r.Load(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	now := r.now()
	log := r.logger.With(slog.String("tournament_id", tournamentID.String()))

	healed := 0
	for i, derived := range loaded.Bracket.Matches() {
		row := loaded.Rows[i]
		for _, side := range []bracket.Side{bracket.Team1Side, bracket.Team2Side} {
			team := derived.TeamAt(side)
			if team == nil || row.TeamAt(side) != nil {
				continue
			}
			pos := derived.Position()
			if err := r.store.SetTeamSlot(ctx, tournamentID, pos, side, *team, now); err != nil {
				return nil, fmt.Errorf("failed to heal %s: %w", pos, err)
			}
			healed++
			r.publishStored(ctx, log, tournamentID, pos, derived)
		}
	}

	if err := r.store.SaveSnapshot(ctx, tournamentID, loaded.Bracket.Snapshot(), tournamentStatus(loaded.Bracket), now); err != nil {
		return nil, fmt.Errorf("failed to save bracket snapshot: %w", err)
	}

	log.Info("bracket resynced", slog.Int("healed_slots", healed))
	return r.Load(ctx, tournamentID)
}

func (r *Reconciler) publish(log *slog.Logger, m bracket.Match) {
	if r.feed == nil {
		return
	}
	if err := r.feed.PublishMatch(m); err != nil {
		log.Warn("failed to publish match", slog.String("match_id", m.ID.String()), slog.Any("error", err))
	}
}

// publishStored publishes the committed row at pos, falling back to the
// in-memory copy when it cannot be read back.
func (r *Reconciler) publishStored(ctx context.Context, log *slog.Logger, tournamentID uuid.UUID, pos bracket.Position, fallback bracket.Match) {
	stored, err := r.store.GetMatchAt(ctx, tournamentID, pos)
	if err != nil {
		log.Warn("failed to read back match", slog.String("match", pos.String()), slog.Any("error", err))
		r.publish(log, fallback)
		return
	}
	r.publish(log, *stored)
}
