package session

import (
	"errors"
	"fmt"
)

var (
	ErrClosed             = errors.New("session manager is closed")
	ErrContextLost        = errors.New("browser context lost")
	ErrLeaseReleased      = errors.New("session lease already released")
	ErrNotAuthenticated   = errors.New("platform did not accept the session")
	ErrNoPendingChallenge = errors.New("no challenge is waiting for a response")
)

// SessionError means an authenticated context could not be established or recovered.
// The current run must stop.
type SessionError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *SessionError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("session: %s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
	}
	return fmt.Sprintf("session: %s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// ChallengeRequiredError is returned in unattended mode when the platform asks for
// a verification only a human can pass. It is never retried.
type ChallengeRequiredError struct {
	Challenge Challenge
}

func (e *ChallengeRequiredError) Error() string {
	return fmt.Sprintf("session: %s challenge requires an operator: %s", e.Challenge.Kind, e.Challenge.Prompt)
}

// IsSessionFailure reports whether err stops the run because the authenticated context is unusable.
func IsSessionFailure(err error) bool {
	var sessionErr *SessionError
	var challengeErr *ChallengeRequiredError
	return errors.As(err, &sessionErr) || errors.As(err, &challengeErr) ||
		errors.Is(err, ErrClosed) || errors.Is(err, ErrContextLost)
}
