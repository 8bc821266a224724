package bracket

import (
	"fmt"

	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/utils"
	"github.com/google/uuid"
)

// Bracket is a flat collection of matches keyed by position. Rounds and the
// snapshot tree are projections over it.
type Bracket struct {
	teams             []Team
	matches           []Match
	index             map[Position]int
	totalRounds       int
	questionsPerMatch int
}

func newBracket(teams []Team, totalRounds, questionsPerMatch int) *Bracket {
	b := &Bracket{
		teams:             teams,
		index:             make(map[Position]int),
		totalRounds:       totalRounds,
		questionsPerMatch: questionsPerMatch,
	}
	for r := 0; r < totalRounds; r++ {
		for i := 0; i < 1<<(totalRounds-1-r); i++ {
			b.index[Position{Round: r, Index: i}] = len(b.matches)
			b.matches = append(b.matches, Match{
				RoundIndex:           r,
				MatchIndex:           i,
				Status:               MatchPending,
				QuestionIDs:          StringList{},
				CompletedQuestionIDs: StringList{},
				SkippedQuestions:     StringList{},
			})
		}
	}
	return b
}

// Rebuild reconstructs a bracket from the stored skeleton and the
// authoritative match rows. The skeleton only contributes the team list and
// the round topology; every per-match field comes from the rows, and team
// eliminations and advanced slots are re-derived from them.
func Rebuild(skeleton Snapshot, rows []Match) (*Bracket, error) {
	totalRounds := len(skeleton.Rounds)
	if len(skeleton.Teams) < MinTeams || totalRounds == 0 {
		return nil, fmt.Errorf("%w: %d teams, %d rounds", ErrBadTopology, len(skeleton.Teams), totalRounds)
	}
	for r, round := range skeleton.Rounds {
		if want := 1 << (totalRounds - 1 - r); len(round) != want {
			return nil, fmt.Errorf("%w: round %d has %d matches, want %d", ErrBadTopology, r, len(round), want)
		}
	}

	teams := make([]Team, len(skeleton.Teams))
	for i, t := range skeleton.Teams {
		teams[i] = Team{Name: t.Name, Seed: t.Seed}
	}
	b := newBracket(teams, totalRounds, skeleton.QuestionsPerMatch)

	seen := make(map[Position]bool, len(rows))
	for _, row := range rows {
		pos := row.Position()
		i, ok := b.index[pos]
		if !ok {
			return nil, fmt.Errorf("%w: no slot for %s", ErrBadTopology, pos)
		}
		for _, team := range []*int{row.Team1Index, row.Team2Index, row.WinnerIndex} {
			if team != nil && (*team < 0 || *team >= len(teams)) {
				return nil, fmt.Errorf("%w: team index %d out of range in %s", ErrBadTopology, *team, pos)
			}
		}
		b.matches[i] = row.clone()
		seen[pos] = true
	}
	if len(seen) != len(b.matches) {
		return nil, fmt.Errorf("%w: %d of %d match rows present", ErrBadTopology, len(seen), len(b.matches))
	}

	b.derive()
	return b, nil
}

// derive recomputes eliminations and winner slots from finished matches.
// Matches are stored in round order so feeders are handled before parents.
func (b *Bracket) derive() {
	for i := range b.teams {
		b.teams[i].Eliminated = false
	}
	for i := range b.matches {
		m := &b.matches[i]
		if m.WinnerIndex == nil {
			continue
		}
		if m.Status == MatchCompleted {
			b.eliminateLoser(m)
		}
		if m.Finished() {
			b.advance(m)
		}
	}
}

func (b *Bracket) eliminateLoser(m *Match) {
	if loser, ok := m.Loser(); ok {
		b.teams[loser].Eliminated = true
	}
}

// advance writes the winner of m into its parent slot. The final has no
// parent.
func (b *Bracket) advance(m *Match) *Match {
	if m.WinnerIndex == nil || m.RoundIndex >= b.totalRounds-1 {
		return nil
	}
	pos, side := m.Position().Parent()
	parent := b.matchAt(pos)
	parent.setTeam(side, utils.Clone(m.WinnerIndex))
	return parent
}

func (b *Bracket) matchAt(pos Position) *Match {
	i, ok := b.index[pos]
	if !ok {
		return nil
	}
	return &b.matches[i]
}

func (b *Bracket) Teams() []Team {
	return append([]Team(nil), b.teams...)
}

func (b *Bracket) TotalRounds() int {
	return b.totalRounds
}

// TotalMatches is the number of matches that decide the tournament. Byes are
// part of the tree but not counted.
func (b *Bracket) TotalMatches() int {
	return len(b.teams) - 1
}

func (b *Bracket) QuestionsPerMatch() int {
	return b.questionsPerMatch
}

func (b *Bracket) CompletedMatches() int {
	n := 0
	for i := range b.matches {
		if b.matches[i].Status == MatchCompleted {
			n++
		}
	}
	return n
}

func (b *Bracket) Match(pos Position) (Match, bool) {
	m := b.matchAt(pos)
	if m == nil {
		return Match{}, false
	}
	return m.clone(), true
}

func (b *Bracket) MatchByID(id uuid.UUID) (Match, bool) {
	for i := range b.matches {
		if b.matches[i].ID == id {
			return b.matches[i].clone(), true
		}
	}
	return Match{}, false
}

// Matches returns every match ordered by (round, index).
func (b *Bracket) Matches() []Match {
	out := make([]Match, len(b.matches))
	for i := range b.matches {
		out[i] = b.matches[i].clone()
	}
	return out
}

func (b *Bracket) Round(r int) []Match {
	var out []Match
	for i := range b.matches {
		if b.matches[i].RoundIndex == r {
			out = append(out, b.matches[i].clone())
		}
	}
	return out
}

func (b *Bracket) FinalPosition() Position {
	return Position{Round: b.totalRounds - 1, Index: 0}
}

// Snapshot projects the bracket into its denormalized tree document.
func (b *Bracket) Snapshot() Snapshot {
	rounds := make([][]Match, b.totalRounds)
	for r := range rounds {
		rounds[r] = b.Round(r)
	}
	s := Snapshot{
		Teams:             b.Teams(),
		Rounds:            rounds,
		TotalRounds:       b.totalRounds,
		TotalMatches:      b.TotalMatches(),
		CompletedMatches:  b.CompletedMatches(),
		QuestionsPerMatch: b.questionsPerMatch,
	}
	if champion, ok := b.Champion(); ok {
		s.ChampionIndex = &champion
	}
	return s
}

// Clone returns an independent copy.
func (b *Bracket) Clone() *Bracket {
	c := &Bracket{
		teams:             b.Teams(),
		matches:           b.Matches(),
		index:             make(map[Position]int, len(b.index)),
		totalRounds:       b.totalRounds,
		questionsPerMatch: b.questionsPerMatch,
	}
	for pos, i := range b.index {
		c.index[pos] = i
	}
	return c
}
