package scheduler

import (
	"context"
	"fmt"

	"github.com/maxaizer/job-autopilot/internal/repositories"
	"github.com/maxaizer/job-autopilot/internal/session"
	"github.com/pkg/errors"
)

var (
	ErrUnknownTask     = errors.New("unknown task kind")
	ErrAlreadyRunning  = errors.New("task is already running")
	ErrNotStarted      = errors.New("scheduler is not running")
	ErrDuplicateTask   = errors.New("task kind is already registered")
	ErrInvalidSchedule = errors.New("invalid schedule")
)

// PanicError is what a run that panicked is recorded with.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

const (
	ClassSession           = "session"
	ClassChallengeRequired = "challenge_required"
	ClassStore             = "store"
	ClassTimeout           = "timeout"
	ClassCancelled         = "cancelled"
	ClassPanic             = "panic"
	ClassUnknown           = "unknown"
)

// ClassifyError maps a run failure to the error_class stored with its run log.
func ClassifyError(err error) string {
	var panicErr *PanicError
	var challengeErr *session.ChallengeRequiredError

	switch {
	case err == nil:
		return ""
	case errors.As(err, &panicErr):
		return ClassPanic
	case errors.As(err, &challengeErr):
		return ClassChallengeRequired
	case session.IsSessionFailure(err):
		return ClassSession
	case repositories.IsStoreError(err):
		return ClassStore
	case errors.Is(err, context.DeadlineExceeded):
		return ClassTimeout
	case errors.Is(err, context.Canceled):
		return ClassCancelled
	}
	return ClassUnknown
}
