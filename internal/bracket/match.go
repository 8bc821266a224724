package bracket

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/utils"
	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchPending    MatchStatus = "pending"
	MatchInProgress MatchStatus = "in_progress"
	MatchCompleted  MatchStatus = "completed"
	MatchBye        MatchStatus = "bye"
)

// Side is one of the two team slots of a match.
type Side int

const (
	Team1Side Side = 1
	Team2Side Side = 2
)

// Position locates a match in the tree. Both indices are zero-based.
type Position struct {
	Round int `json:"round"`
	Index int `json:"index"`
}

// Parent returns the next-round slot the winner of p advances into.
func (p Position) Parent() (Position, Side) {
	side := Team1Side
	if p.Index%2 != 0 {
		side = Team2Side
	}
	return Position{Round: p.Round + 1, Index: p.Index / 2}, side
}

// Feeders returns the two previous-round matches whose winners fill p.
func (p Position) Feeders() (Position, Position) {
	return Position{Round: p.Round - 1, Index: p.Index * 2}, Position{Round: p.Round - 1, Index: p.Index*2 + 1}
}

func (p Position) String() string {
	return fmt.Sprintf("R%dM%d", p.Round+1, p.Index+1)
}

type Match struct {
	ID           uuid.UUID `db:"id" json:"id"`
	TournamentID uuid.UUID `db:"tournament_id" json:"tournamentId"`

	RoundIndex int `db:"round_index" json:"roundIndex"`
	MatchIndex int `db:"match_index" json:"matchIndex"`

	// Indices into the bracket's team list. Nil means undetermined or bye.
	Team1Index *int `db:"team1_index" json:"team1Index"`
	Team2Index *int `db:"team2_index" json:"team2Index"`

	Team1Score  int         `db:"team1_score" json:"team1Score"`
	Team2Score  int         `db:"team2_score" json:"team2Score"`
	WinnerIndex *int        `db:"winner_index" json:"winnerIndex"`
	Status      MatchStatus `db:"status" json:"status"`
	ClaimedBy   *string     `db:"claimed_by" json:"claimedBy"`

	QuestionIDs          StringList `db:"question_ids" json:"questionIds"`
	CompletedQuestionIDs StringList `db:"completed_question_ids" json:"completedQuestionIds"`
	SkippedQuestions     StringList `db:"skipped_questions" json:"skippedQuestions"`

	// Version increases with every committed mutation of the row.
	Version   int       `db:"version" json:"version"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

func (m *Match) Position() Position {
	return Position{Round: m.RoundIndex, Index: m.MatchIndex}
}

// Playable reports whether both sides are known.
func (m *Match) Playable() bool {
	return m.Team1Index != nil && m.Team2Index != nil
}

func (m *Match) Finished() bool {
	return m.Status == MatchCompleted || m.Status == MatchBye
}

// IsStale reports whether an in_progress claim has gone without a committed
// update for at least threshold.
func (m *Match) IsStale(now time.Time, threshold time.Duration) bool {
	return m.Status == MatchInProgress && now.Sub(m.UpdatedAt) >= threshold
}

// ClaimedByActor reports whether actor holds the current claim.
func (m *Match) ClaimedByActor(actor string) bool {
	return m.ClaimedBy != nil && *m.ClaimedBy == actor
}

func (m *Match) TeamAt(side Side) *int {
	if side == Team1Side {
		return m.Team1Index
	}
	return m.Team2Index
}

func (m *Match) setTeam(side Side, team *int) {
	if side == Team1Side {
		m.Team1Index = team
	} else {
		m.Team2Index = team
	}
}

// Loser returns the team index that did not win, if the match is decided.
func (m *Match) Loser() (int, bool) {
	if m.WinnerIndex == nil || !m.Playable() {
		return 0, false
	}
	if *m.WinnerIndex == *m.Team1Index {
		return *m.Team2Index, true
	}
	return *m.Team1Index, true
}

func (m Match) clone() Match {
	c := m
	c.Team1Index = utils.Clone(m.Team1Index)
	c.Team2Index = utils.Clone(m.Team2Index)
	c.WinnerIndex = utils.Clone(m.WinnerIndex)
	c.ClaimedBy = utils.Clone(m.ClaimedBy)
	c.QuestionIDs = m.QuestionIDs.clone()
	c.CompletedQuestionIDs = m.CompletedQuestionIDs.clone()
	c.SkippedQuestions = m.SkippedQuestions.clone()
	return c
}

// StringList is stored as a JSON array in a text column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("failed to decode string list: %w", err)
	}
	*l = StringList(out)
	return nil
}

func (l StringList) clone() StringList {
	if l == nil {
		return StringList{}
	}
	return append(StringList{}, l...)
}
