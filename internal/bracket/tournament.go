package bracket

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type TournamentStatus string

const (
	TournamentStarted   TournamentStatus = "started"
	TournamentCompleted TournamentStatus = "completed"
)

type Tournament struct {
	ID                uuid.UUID        `db:"id" json:"id"`
	Name              string           `db:"name" json:"name"`
	Status            TournamentStatus `db:"status" json:"status"`
	QuestionsPerMatch int              `db:"questions_per_match" json:"questionsPerMatch"`

	// Bracket is the denormalized snapshot document. It is overwritten as a
	// whole and never trusted for per-match state on load.
	Bracket      Snapshot   `db:"bracket" json:"-"`
	QuestionPool StringList `db:"question_pool" json:"-"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Snapshot is the tree view of a bracket: teams plus rounds of matches.
type Snapshot struct {
	Teams             []Team    `json:"teams"`
	Rounds            [][]Match `json:"rounds"`
	TotalRounds       int       `json:"totalRounds"`
	TotalMatches      int       `json:"totalMatches"`
	CompletedMatches  int       `json:"completedMatches"`
	QuestionsPerMatch int       `json:"questionsPerMatch"`
	ChampionIndex     *int      `json:"championIndex"`
}

func (s Snapshot) Value() (driver.Value, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode bracket snapshot: %w", err)
	}
	return string(b), nil
}

func (s *Snapshot) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return json.Unmarshal([]byte(v), s)
	case []byte:
		return json.Unmarshal(v, s)
	case nil:
		*s = Snapshot{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Snapshot", src)
	}
}
