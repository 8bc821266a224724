package question

import "math/rand/v2"

type Question struct {
	ID       string `db:"id" json:"id"`
	Prompt   string `db:"prompt" json:"prompt"`
	Answer   string `db:"answer" json:"answer"`
	Category string `db:"category" json:"category"`
	Points   int    `db:"points" json:"points"`
}

func IDs(questions []Question) []string {
	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	return ids
}

// Shuffled returns a shuffled copy of ids. A nil r uses the global source.
func Shuffled(r *rand.Rand, ids []string) []string {
	out := append([]string{}, ids...)
	swap := func(i, j int) { out[i], out[j] = out[j], out[i] }
	if r == nil {
		rand.Shuffle(len(out), swap)
	} else {
		r.Shuffle(len(out), swap)
	}
	return out
}
