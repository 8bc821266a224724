package bracket

import "errors"

// Validation errors. Nothing is written when one of these is returned.
var (
	ErrTooFewTeams     = errors.New("at least 2 teams are required")
	ErrTooManyTeams    = errors.New("at most 16 teams are supported")
	ErrEmptyTeamName   = errors.New("team name is required")
	ErrInvalidPerMatch = errors.New("questions per match must be positive")

	ErrUnknownMatch     = errors.New("match is not part of this bracket")
	ErrNotPlayable      = errors.New("match does not have both teams yet")
	ErrNotPending       = errors.New("match is not pending")
	ErrNotInProgress    = errors.New("match is not in progress")
	ErrTieUnresolved    = errors.New("scores are tied and no winner was chosen")
	ErrInvalidWinner    = errors.New("winner is not part of this match")
	ErrWinnerMismatch   = errors.New("winner does not have the higher score")
	ErrNegativeScore    = errors.New("scores cannot be negative")
	ErrQuestionResolved = errors.New("question was already answered or skipped")
	ErrBadTopology      = errors.New("match rows do not fit the bracket skeleton")
)
