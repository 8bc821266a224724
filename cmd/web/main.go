package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/config"
	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/db"
	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/feed"
	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/metrics"
	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/question"
	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/service"
	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/store"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	database, err := db.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close()

	if err := db.RunMigrations(database.DB); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	sessionManager := scs.New()
	sessionManager.Lifetime = cfg.SessionLifetime
	sessionManager.Store = sqlite3store.New(database.DB)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	changes := feed.New(cfg.FeedBuffer, logger, m)
	defer changes.Close()

	tournamentStore := store.NewTournamentStore(database)
	questionStore := store.NewQuestionStore(database)
	reconciler := service.NewReconciler(tournamentStore, changes, logger, m)

	app := &application{
		tournaments: service.NewTournamentService(tournamentStore, questionStore, reconciler, logger),
		matches:     service.NewMatchService(tournamentStore, questionStore, reconciler, question.NewAllocator(nil), cfg.StaleClaimAfter, logger, m),
		reconciler:  reconciler,
		feed:        changes,
		cueWindow:   cfg.CompletionCueWindow,
		origins:     cfg.AllowedOrigins,
		logger:      logger,
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: newRouter(app, sessionManager, reg),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server starting", "addr", "http://localhost"+srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
}
