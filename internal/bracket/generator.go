package bracket

import (
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/question"
	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/utils"
	"github.com/google/uuid"
)

const (
	MinTeams = 2
	MaxTeams = 16
)

type GenerateParams struct {
	TournamentID      uuid.UUID
	TeamNames         []string
	QuestionsPerMatch int
	// QuestionIDs is the full candidate set, shuffled once into the pool.
	QuestionIDs []string
	// Rand drives the pool shuffle. Nil uses the global source.
	Rand *rand.Rand
	Now  time.Time
}

// Gets the nearest power of 2 while rounding up, so with input 5 it returns 8 and so on
func calcBracketSize(count int) int {
	if count <= 0 {
		return 0
	}

	// Log2 -> Ceil -> 2^^log2 to round up
	log2 := math.Ceil(math.Log2(float64(count)))
	return int(math.Pow(2, log2))
}

// seedOrder returns the 1-based seeds in bracket slot order. Consecutive
// pairs are round-0 matchups and seed 1 can only meet seed 2 in the final.
func seedOrder(bracketSize int) []int {
	if bracketSize <= 0 {
		return nil
	}

	order := []int{1}
	for len(order) < bracketSize {
		n := len(order) * 2
		next := make([]int, 0, n)
		for _, seed := range order {
			next = append(next, seed, n+1-seed)
		}
		order = next
	}
	return order
}

// Generate builds a seeded single-elimination bracket and the shuffled
// question pool for it. Bye winners are already advanced into round 1.
func Generate(p GenerateParams) (*Bracket, []string, error) {
	n := len(p.TeamNames)
	if n < MinTeams {
		return nil, nil, ErrTooFewTeams
	}
	if n > MaxTeams {
		return nil, nil, ErrTooManyTeams
	}
	if p.QuestionsPerMatch <= 0 {
		return nil, nil, ErrInvalidPerMatch
	}

	teams := make([]Team, n)
	for i, name := range p.TeamNames {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, nil, ErrEmptyTeamName
		}
		teams[i] = Team{Name: name, Seed: i + 1}
	}

	now := p.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	bracketSize := calcBracketSize(n)
	totalRounds := int(math.Log2(float64(bracketSize)))
	b := newBracket(teams, totalRounds, p.QuestionsPerMatch)
	for i := range b.matches {
		b.matches[i].ID = uuid.New()
		b.matches[i].TournamentID = p.TournamentID
		b.matches[i].UpdatedAt = now
	}

	order := seedOrder(bracketSize)
	for i := 0; i < len(order); i += 2 {
		m := b.matchAt(Position{Round: 0, Index: i / 2})
		m.Team1Index = seedToTeam(order[i], n)
		m.Team2Index = seedToTeam(order[i+1], n)

		switch {
		case m.Team1Index != nil && m.Team2Index == nil:
			m.Status = MatchBye
			m.WinnerIndex = utils.Clone(m.Team1Index)
		case m.Team1Index == nil && m.Team2Index != nil:
			m.Status = MatchBye
			m.WinnerIndex = utils.Clone(m.Team2Index)
		}
		if m.Status == MatchBye {
			b.advance(m)
		}
	}

	return b, question.Shuffled(p.Rand, p.QuestionIDs), nil
}

// seedToTeam maps a seed to its team index, or nil for an empty slot.
func seedToTeam(seed, teamCount int) *int {
	if seed > teamCount {
		return nil
	}
	idx := seed - 1
	return &idx
}
