package service

import (
	"errors"
	"fmt"
)

// ErrConflict marks an expected, recoverable race. Callers re-fetch and
// decide again; it is never fatal.
var ErrConflict = errors.New("conflict")

var (
	ErrNotClaimant = fmt.Errorf("%w: match is claimed by another player", ErrConflict)
	ErrStaleWrite  = fmt.Errorf("%w: match changed since it was read", ErrConflict)
	ErrEmptyName   = errors.New("tournament name is required")
	ErrNoQuestions = errors.New("question set is empty")
)
