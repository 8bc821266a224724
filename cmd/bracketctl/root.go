package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/db"
	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/service"
	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/store"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type options struct {
	dbPath  string
	verbose bool
}

// env holds the services a command works against. Commands that do not
// touch storage never build one.
type env struct {
	db          *sqlx.DB
	questions   *store.QuestionStore
	tournaments *service.TournamentService
}

func (o *options) open() (*env, error) {
	database, err := db.Open(o.dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(database.DB); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if o.verbose {
		logger = slog.Default()
	}

	tournamentStore := store.NewTournamentStore(database)
	questionStore := store.NewQuestionStore(database)
	// No spectators are attached to a CLI process, so nothing is published.
	reconciler := service.NewReconciler(tournamentStore, nil, logger, nil)
	return &env{
		db:          database,
		questions:   questionStore,
		tournaments: service.NewTournamentService(tournamentStore, questionStore, reconciler, logger),
	}, nil
}

func (e *env) Close() error {
	return e.db.Close()
}

func newCmd() *cobra.Command {
	opts := &options{}

	v := viper.New()
	v.SetEnvPrefix("BRACKETCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "bracketctl",
		Short: "Operator tools for quiz tournament brackets.",
	}

	fs := cmd.PersistentFlags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	fs.StringVar(&opts.dbPath, "db", "qwizzeria.db", "path to the sqlite database (env: BRACKETCTL_DB)")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "log storage operations (env: BRACKETCTL_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.AddCommand(
		newGenerateCmd(),
		newCreateCmd(opts),
		newShowCmd(opts),
		newResyncCmd(opts),
		newQuestionCmd(opts),
	)

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
