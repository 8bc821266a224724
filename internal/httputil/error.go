package httputil

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/bracket"
	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/service"
)

type errorResponse struct {
	Error string `json:"error"`
}

func InternalServerError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	JSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal Server Error"})
}

func BadRequest(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("bad request", "message", msg, "error", err)
	} else {
		slog.Warn("bad request", "message", msg)
	}
	JSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func NotFound(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("not found", "message", msg, "error", err)
	} else {
		slog.Warn("not found", "message", msg)
	}
	JSON(w, http.StatusNotFound, errorResponse{Error: msg})
}

func Conflict(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("conflict", "message", msg, "error", err)
	} else {
		slog.Warn("conflict", "message", msg)
	}
	JSON(w, http.StatusConflict, errorResponse{Error: msg})
}

var validationErrors = []error{
	bracket.ErrTooFewTeams,
	bracket.ErrTooManyTeams,
	bracket.ErrEmptyTeamName,
	bracket.ErrInvalidPerMatch,
	bracket.ErrNotPlayable,
	bracket.ErrNotInProgress,
	bracket.ErrTieUnresolved,
	bracket.ErrInvalidWinner,
	bracket.ErrWinnerMismatch,
	bracket.ErrNegativeScore,
	bracket.ErrQuestionResolved,
	service.ErrEmptyName,
	service.ErrNoQuestions,
}

var conflictErrors = []error{
	service.ErrConflict,
	bracket.ErrNotPending,
}

// Error writes err with the status of its category: validation errors are
// 400, missing rows 404, conflicts 409 and everything else 500.
func Error(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, sql.ErrNoRows), errors.Is(err, bracket.ErrUnknownMatch):
		NotFound(w, msg, err)
	case isAny(err, conflictErrors):
		Conflict(w, err.Error(), err)
	case isAny(err, validationErrors):
		BadRequest(w, err.Error(), err)
	default:
		InternalServerError(w, msg, err)
	}
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
