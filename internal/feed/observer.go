package feed

import (
	"context"
	"sync"
	"time"

	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/bracket"
	"github.com/google/uuid"
)

// Update is what an observer reports after folding in one row.
type Update struct {
	Match         bracket.Match
	JustCompleted bool
}

// Observer keeps a local bracket copy in step with the feed. It runs the
// same advancement rules as the writer.
type Observer struct {
	mu        sync.Mutex
	bracket   *bracket.Bracket
	cueWindow time.Duration
	cues      map[uuid.UUID]time.Time
	now       func() time.Time
}

func NewObserver(b *bracket.Bracket, cueWindow time.Duration) *Observer {
	return &Observer{
		bracket:   b.Clone(),
		cueWindow: cueWindow,
		cues:      make(map[uuid.UUID]time.Time),
		now:       time.Now,
	}
}

// Apply folds row into the local copy. The bool is false when the row was
// older than what is already applied.
func (o *Observer) Apply(row bracket.Match) (Update, bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	res, err := o.bracket.Apply(row)
	if err != nil || !res.Applied {
		return Update{}, false, err
	}
	if res.JustCompleted {
		o.cues[row.ID] = o.now()
	}
	current, _ := o.bracket.Match(row.Position())
	return Update{Match: current, JustCompleted: res.JustCompleted}, true, nil
}

// ActiveCues returns the matches whose completion cue has not expired at now.
// Expired cues are forgotten.
func (o *Observer) ActiveCues(now time.Time) []uuid.UUID {
	o.mu.Lock()
	defer o.mu.Unlock()

	var active []uuid.UUID
	for id, at := range o.cues {
		if now.Sub(at) < o.cueWindow {
			active = append(active, id)
		} else {
			delete(o.cues, id)
		}
	}
	return active
}

func (o *Observer) Snapshot() bracket.Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.bracket.Snapshot()
}

// Run applies rows from ch until it closes or ctx is done, calling fn for
// every applied row.
func (o *Observer) Run(ctx context.Context, ch <-chan bracket.Match, fn func(Update) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case row, ok := <-ch:
			if !ok {
				return nil
			}
			update, applied, err := o.Apply(row)
			if err != nil {
				return err
			}
			if !applied || fn == nil {
				continue
			}
			if err := fn(update); err != nil {
				return err
			}
		}
	}
}
