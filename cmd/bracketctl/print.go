package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/bracket"
	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/question"
)

func printBracket(out io.Writer, title string, snap bracket.Snapshot) error {
	fmt.Fprintf(out, "%s: %d teams, %d rounds, %d/%d matches completed\n",
		title, len(snap.Teams), snap.TotalRounds, snap.CompletedMatches, snap.TotalMatches)
	if snap.ChampionIndex != nil {
		fmt.Fprintf(out, "champion: %s\n", snap.Teams[*snap.ChampionIndex].Name)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MATCH\tTEAM 1\tTEAM 2\tSCORE\tSTATUS\tWINNER")
	for _, round := range snap.Rounds {
		for _, m := range round {
			winner := "-"
			if m.WinnerIndex != nil {
				winner = snap.Teams[*m.WinnerIndex].Name
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d-%d\t%s\t%s\n",
				m.Position(), teamName(snap, m.Team1Index), teamName(snap, m.Team2Index),
				m.Team1Score, m.Team2Score, m.Status, winner)
		}
	}
	return w.Flush()
}

func teamName(snap bracket.Snapshot, idx *int) string {
	if idx == nil {
		return "-"
	}
	return snap.Teams[*idx].Name
}

func printQuestions(out io.Writer, questions []question.Question) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCATEGORY\tPOINTS\tPROMPT")
	for _, q := range questions {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", q.ID, q.Category, q.Points, q.Prompt)
	}
	return w.Flush()
}
