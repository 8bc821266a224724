package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/feed"
	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/httputil"
	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/middleware"
	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/service"
	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type application struct {
	tournaments *service.TournamentService
	matches     *service.MatchService
	reconciler  *service.Reconciler
	feed        *feed.Feed
	cueWindow   time.Duration
	origins     []string
	logger      *slog.Logger
}

func newRouter(app *application, sessionManager *scs.SessionManager, reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   app.origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	// Outside the session group: the websocket upgrade hijacks the writer.
	r.Get("/tournaments/{id}/events", app.serveEvents)

	r.Group(func(r chi.Router) {
		r.Use(sessionManager.LoadAndSave)
		r.Use(middleware.LoadActor(sessionManager))

		r.Get("/tournaments", func(w http.ResponseWriter, r *http.Request) {
			tournaments, err := app.tournaments.ListTournaments(r.Context())
			if err != nil {
				httputil.InternalServerError(w, "Failed to list tournaments", err)
				return
			}
			httputil.JSON(w, http.StatusOK, tournaments)
		})

		r.Post("/tournaments", func(w http.ResponseWriter, r *http.Request) {
			var in service.CreateTournamentInput
			if err := httputil.DecodeJSON(r, &in); err != nil {
				httputil.BadRequest(w, "Invalid tournament data", err)
				return
			}
			id, err := app.tournaments.CreateTournament(r.Context(), in)
			if err != nil {
				httputil.Error(w, "Failed to create tournament", err)
				return
			}
			httputil.JSON(w, http.StatusCreated, map[string]uuid.UUID{"id": id})
		})

		r.Get("/tournaments/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, ok := parseID(w, r)
			if !ok {
				return
			}
			data, err := app.tournaments.FetchTournament(r.Context(), id)
			if err != nil {
				httputil.Error(w, "Tournament not found", err)
				return
			}
			httputil.JSON(w, http.StatusOK, data)
		})

		r.Post("/tournaments/{id}/resync", func(w http.ResponseWriter, r *http.Request) {
			id, ok := parseID(w, r)
			if !ok {
				return
			}
			data, err := app.tournaments.Resync(r.Context(), id)
			if err != nil {
				httputil.Error(w, "Failed to resync tournament", err)
				return
			}
			httputil.JSON(w, http.StatusOK, data)
		})

		r.Get("/matches/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, ok := parseID(w, r)
			if !ok {
				return
			}
			m, err := app.matches.GetMatch(r.Context(), id)
			if err != nil {
				httputil.Error(w, "Match not found", err)
				return
			}
			httputil.JSON(w, http.StatusOK, m)
		})

		r.Post("/matches/{id}/claim", func(w http.ResponseWriter, r *http.Request) {
			id, ok := parseID(w, r)
			if !ok {
				return
			}
			res, err := app.matches.ClaimMatch(r.Context(), id, actorID(r))
			if err != nil {
				httputil.InternalServerError(w, "Failed to claim match", err)
				return
			}
			writeClaim(w, res)
		})

		r.Post("/matches/{id}/reclaim", func(w http.ResponseWriter, r *http.Request) {
			id, ok := parseID(w, r)
			if !ok {
				return
			}
			res, err := app.matches.ReclaimStaleMatch(r.Context(), id, actorID(r))
			if err != nil {
				httputil.InternalServerError(w, "Failed to reclaim match", err)
				return
			}
			writeClaim(w, res)
		})

		r.Post("/matches/{id}/answers", func(w http.ResponseWriter, r *http.Request) {
			id, ok := parseID(w, r)
			if !ok {
				return
			}
			var a service.Answer
			if err := httputil.DecodeJSON(r, &a); err != nil {
				httputil.BadRequest(w, "Invalid answer", err)
				return
			}
			m, err := app.matches.RecordAnswer(r.Context(), id, actorID(r), a)
			if err != nil {
				httputil.Error(w, "Failed to record answer", err)
				return
			}
			httputil.JSON(w, http.StatusOK, m)
		})

		r.Post("/matches/{id}/skips", func(w http.ResponseWriter, r *http.Request) {
			id, ok := parseID(w, r)
			if !ok {
				return
			}
			var body struct {
				QuestionID string `json:"questionId"`
			}
			if err := httputil.DecodeJSON(r, &body); err != nil {
				httputil.BadRequest(w, "Invalid skip", err)
				return
			}
			m, err := app.matches.SkipQuestion(r.Context(), id, actorID(r), body.QuestionID)
			if err != nil {
				httputil.Error(w, "Failed to skip question", err)
				return
			}
			httputil.JSON(w, http.StatusOK, m)
		})

		r.Put("/matches/{id}/score", func(w http.ResponseWriter, r *http.Request) {
			id, ok := parseID(w, r)
			if !ok {
				return
			}
			var body struct {
				Team1Score int `json:"team1Score"`
				Team2Score int `json:"team2Score"`
			}
			if err := httputil.DecodeJSON(r, &body); err != nil {
				httputil.BadRequest(w, "Invalid score", err)
				return
			}
			m, err := app.matches.AdjustScore(r.Context(), id, actorID(r), body.Team1Score, body.Team2Score)
			if err != nil {
				httputil.Error(w, "Failed to adjust score", err)
				return
			}
			httputil.JSON(w, http.StatusOK, m)
		})

		r.Post("/matches/{id}/end", func(w http.ResponseWriter, r *http.Request) {
			id, ok := parseID(w, r)
			if !ok {
				return
			}
			var req service.EndMatchRequest
			if err := httputil.DecodeJSON(r, &req); err != nil {
				httputil.BadRequest(w, "Invalid match result", err)
				return
			}
			snap, err := app.matches.EndMatch(r.Context(), id, actorID(r), req)
			if err != nil {
				httputil.Error(w, "Failed to end match", err)
				return
			}
			httputil.JSON(w, http.StatusOK, snap)
		})
	})

	return r
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.BadRequest(w, "Invalid ID", err)
		return uuid.Nil, false
	}
	return id, true
}

func actorID(r *http.Request) string {
	id, _ := middleware.GetActorIDFromContext(r.Context())
	return id.String()
}

func writeClaim(w http.ResponseWriter, res service.ClaimResult) {
	switch res.Status {
	case service.ClaimGranted:
		httputil.JSON(w, http.StatusOK, res)
	case service.ClaimNotFound:
		httputil.JSON(w, http.StatusNotFound, res)
	default:
		httputil.JSON(w, http.StatusConflict, res)
	}
}
