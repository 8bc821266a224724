package main

import (
	"fmt"
	"strings"

	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/bracket"
	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/question"
	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/service"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newGenerateCmd() *cobra.Command {
	var (
		teams    []string
		perMatch int
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Preview the bracket for a list of teams without saving it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, _, err := bracket.Generate(bracket.GenerateParams{
				TournamentID:      uuid.New(),
				TeamNames:         teams,
				QuestionsPerMatch: perMatch,
			})
			if err != nil {
				return err
			}
			return printBracket(cmd.OutOrStdout(), "preview", b.Snapshot())
		},
	}
	cmd.Flags().StringArrayVarP(&teams, "team", "t", nil, "team name in seed order, repeatable")
	cmd.Flags().IntVar(&perMatch, "per-match", 5, "questions per match")
	return cmd
}

func newCreateCmd(opts *options) *cobra.Command {
	var in service.CreateTournamentInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a tournament from the stored question set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open()
			if err != nil {
				return err
			}
			defer e.Close()

			id, err := e.tournaments.CreateTournament(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().StringVarP(&in.Name, "name", "n", "", "tournament name")
	cmd.Flags().StringArrayVarP(&in.Teams, "team", "t", nil, "team name in seed order, repeatable")
	cmd.Flags().IntVar(&in.QuestionsPerMatch, "per-match", 5, "questions per match")
	return cmd
}

func newShowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <tournament-id>",
		Short: "Print a tournament rebuilt from its match rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid tournament id: %w", err)
			}
			e, err := opts.open()
			if err != nil {
				return err
			}
			defer e.Close()

			data, err := e.tournaments.FetchTournament(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printBracket(cmd.OutOrStdout(), data.Tournament.Name, data.Bracket)
		},
	}
}

func newResyncCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "resync <tournament-id>",
		Short: "Heal missing winner slots and rewrite the bracket snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid tournament id: %w", err)
			}
			e, err := opts.open()
			if err != nil {
				return err
			}
			defer e.Close()

			data, err := e.tournaments.Resync(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printBracket(cmd.OutOrStdout(), data.Tournament.Name, data.Bracket)
		},
	}
}

func newQuestionCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "question",
		Short: "Maintain the question set",
	}
	cmd.AddCommand(newQuestionAddCmd(opts), newQuestionListCmd(opts), newQuestionFakeCmd(opts))
	return cmd
}

func newQuestionAddCmd(opts *options) *cobra.Command {
	q := question.Question{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add one question",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(q.Prompt) == "" || strings.TrimSpace(q.Answer) == "" {
				return fmt.Errorf("both --prompt and --answer are required")
			}
			if q.ID == "" {
				q.ID = uuid.NewString()
			}
			e, err := opts.open()
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.questions.CreateQuestion(cmd.Context(), &q); err != nil {
				return fmt.Errorf("failed to add question: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), q.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&q.ID, "id", "", "question id (default: random uuid)")
	cmd.Flags().StringVar(&q.Prompt, "prompt", "", "question text")
	cmd.Flags().StringVar(&q.Answer, "answer", "", "expected answer")
	cmd.Flags().StringVar(&q.Category, "category", "", "category")
	cmd.Flags().IntVar(&q.Points, "points", 10, "points awarded for a correct answer")
	return cmd
}

func newQuestionListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the question set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open()
			if err != nil {
				return err
			}
			defer e.Close()

			questions, err := e.questions.ListQuestions(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list questions: %w", err)
			}
			return printQuestions(cmd.OutOrStdout(), questions)
		},
	}
}

// newQuestionFakeCmd seeds placeholder questions for rehearsals.
func newQuestionFakeCmd(opts *options) *cobra.Command {
	var (
		count int
		seed  uint64
	)
	cmd := &cobra.Command{
		Use:   "fake",
		Short: "Add generated placeholder questions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open()
			if err != nil {
				return err
			}
			defer e.Close()

			faker := gofakeit.New(seed)
			for i := 0; i < count; i++ {
				q := question.Question{
					ID:       uuid.NewString(),
					Prompt:   faker.Question(),
					Answer:   faker.Word(),
					Category: faker.HipsterWord(),
					Points:   faker.IntRange(1, 5) * 10,
				}
				if err := e.questions.CreateQuestion(cmd.Context(), &q); err != nil {
					return fmt.Errorf("failed to add question: %w", err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %d questions\n", count)
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "c", 20, "number of questions")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "generator seed (0 picks a random one)")
	return cmd
}
