package bracket

import (
	"fmt"
	"slices"
	"time"

	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/utils"
)

// NoSide awards a resolved question to neither team.
const NoSide Side = 0

// CanStart checks the pending -> in_progress guard.
func CanStart(m Match) error {
	if m.Status != MatchPending {
		return fmt.Errorf("%w: status is %s", ErrNotPending, m.Status)
	}
	if !m.Playable() {
		return ErrNotPlayable
	}
	return nil
}

func (m *Match) touch(now time.Time) {
	m.Version++
	m.UpdatedAt = now
}

// Start claims a pending match for actor.
func (m *Match) Start(actor string, now time.Time) error {
	if err := CanStart(*m); err != nil {
		return err
	}
	m.Status = MatchInProgress
	m.ClaimedBy = &actor
	m.touch(now)
	return nil
}

// resolvable checks that questionID can still be answered or skipped.
func (m *Match) resolvable(questionID string) error {
	if m.Status != MatchInProgress {
		return ErrNotInProgress
	}
	if slices.Contains(m.CompletedQuestionIDs, questionID) || slices.Contains(m.SkippedQuestions, questionID) {
		return fmt.Errorf("%w: %s", ErrQuestionResolved, questionID)
	}
	return nil
}

// Award records a resolved question. Points go to exactly one side, or to
// neither when side is NoSide.
func (m *Match) Award(questionID string, side Side, points int, now time.Time) error {
	if err := m.resolvable(questionID); err != nil {
		return err
	}
	if points < 0 {
		return ErrNegativeScore
	}
	switch side {
	case Team1Side:
		m.Team1Score += points
	case Team2Side:
		m.Team2Score += points
	case NoSide:
	default:
		return fmt.Errorf("unknown side %d", side)
	}
	m.CompletedQuestionIDs = append(m.CompletedQuestionIDs.clone(), questionID)
	m.touch(now)
	return nil
}

func (m *Match) Skip(questionID string, now time.Time) error {
	if err := m.resolvable(questionID); err != nil {
		return err
	}
	m.SkippedQuestions = append(m.SkippedQuestions.clone(), questionID)
	m.touch(now)
	return nil
}

// Adjust overrides both scores. It is the host's correction path and may
// lower a score.
func (m *Match) Adjust(team1Score, team2Score int, now time.Time) error {
	if m.Status != MatchInProgress {
		return ErrNotInProgress
	}
	if team1Score < 0 || team2Score < 0 {
		return ErrNegativeScore
	}
	m.Team1Score = team1Score
	m.Team2Score = team2Score
	m.touch(now)
	return nil
}

// Start claims the match at pos for actor.
func (b *Bracket) Start(pos Position, actor string, now time.Time) (Match, error) {
	m := b.matchAt(pos)
	if m == nil {
		return Match{}, ErrUnknownMatch
	}
	if err := m.Start(actor, now); err != nil {
		return Match{}, err
	}
	return m.clone(), nil
}

// ResolveWinner picks the winner for final scores. A tie is never broken
// here: the caller must pass the team chosen by the operator. A choice that
// contradicts unequal scores is rejected.
func ResolveWinner(m Match, team1Score, team2Score int, choice *int) (int, error) {
	if !m.Playable() {
		return 0, ErrNotPlayable
	}
	if team1Score < 0 || team2Score < 0 {
		return 0, ErrNegativeScore
	}
	t1, t2 := *m.Team1Index, *m.Team2Index
	if choice != nil && *choice != t1 && *choice != t2 {
		return 0, ErrInvalidWinner
	}

	var winner int
	switch {
	case team1Score > team2Score:
		winner = t1
	case team2Score > team1Score:
		winner = t2
	default:
		if choice == nil {
			return 0, ErrTieUnresolved
		}
		return *choice, nil
	}
	if choice != nil && *choice != winner {
		return 0, ErrWinnerMismatch
	}
	return winner, nil
}

type Completion struct {
	// WinnerIndex is required when the scores are tied.
	WinnerIndex         *int
	Team1Score          int
	Team2Score          int
	ConsumedQuestionIDs []string
}

// Advancement lists the rows changed by completing a match.
type Advancement struct {
	Match Match
	// Parent is the next-round match that received the winner, nil after the
	// final.
	Parent   *Match
	Side     Side
	Champion *int
}

// Complete ends an in_progress match, eliminates the loser and advances the
// winner. A match can only be completed once.
func (b *Bracket) Complete(pos Position, c Completion, now time.Time) (Advancement, error) {
	m := b.matchAt(pos)
	if m == nil {
		return Advancement{}, ErrUnknownMatch
	}
	if m.Status != MatchInProgress {
		return Advancement{}, fmt.Errorf("%w: status is %s", ErrNotInProgress, m.Status)
	}
	winner, err := ResolveWinner(*m, c.Team1Score, c.Team2Score, c.WinnerIndex)
	if err != nil {
		return Advancement{}, err
	}

	m.Team1Score = c.Team1Score
	m.Team2Score = c.Team2Score
	m.WinnerIndex = &winner
	m.Status = MatchCompleted
	if c.ConsumedQuestionIDs != nil {
		m.CompletedQuestionIDs = append(StringList{}, c.ConsumedQuestionIDs...)
	}
	m.touch(now)
	b.eliminateLoser(m)

	adv := Advancement{Match: m.clone()}
	if parent := b.advance(m); parent != nil {
		parent.touch(now)
		p := parent.clone()
		adv.Parent = &p
		_, adv.Side = pos.Parent()
	} else {
		adv.Champion = utils.Clone(m.WinnerIndex)
	}
	return adv, nil
}

type ApplyResult struct {
	Applied bool
	// JustCompleted is set when this row moved the match into completed.
	JustCompleted bool
}

// Apply folds a committed row snapshot into the bracket using the same
// elimination and slot rules as Complete. Rows with a lower version than the
// local copy are ignored.
func (b *Bracket) Apply(row Match) (ApplyResult, error) {
	m := b.matchAt(row.Position())
	if m == nil {
		return ApplyResult{}, ErrUnknownMatch
	}
	if row.Version < m.Version {
		return ApplyResult{}, nil
	}

	wasCompleted := m.Status == MatchCompleted
	// Slots filled locally by a feeder are kept if the row predates them.
	team1, team2 := m.Team1Index, m.Team2Index
	*m = row.clone()
	if m.Team1Index == nil {
		m.Team1Index = team1
	}
	if m.Team2Index == nil {
		m.Team2Index = team2
	}

	if m.WinnerIndex != nil {
		if m.Status == MatchCompleted {
			b.eliminateLoser(m)
		}
		if m.Finished() {
			b.advance(m)
		}
	}
	return ApplyResult{Applied: true, JustCompleted: !wasCompleted && m.Status == MatchCompleted}, nil
}

// IsComplete reports whether the final has been decided.
func (b *Bracket) IsComplete() bool {
	f := b.matchAt(b.FinalPosition())
	return f != nil && f.Status == MatchCompleted && f.WinnerIndex != nil
}

// Champion returns the winner of the final once it is decided.
func (b *Bracket) Champion() (int, bool) {
	if !b.IsComplete() {
		return 0, false
	}
	return *b.matchAt(b.FinalPosition()).WinnerIndex, true
}
