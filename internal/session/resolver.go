package session

import (
	"context"
	"sync"
)

// ChallengeResolver is the control channel an operator uses to answer a pending challenge.
type ChallengeResolver struct {
	mu        sync.Mutex
	waiting   bool
	responses chan string
}

func NewChallengeResolver() *ChallengeResolver {
	return &ChallengeResolver{responses: make(chan string, 1)}
}

// Resolve delivers the operator response to the waiting login. Only one response is
// accepted per challenge.
func (r *ChallengeResolver) Resolve(response string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.waiting {
		return ErrNoPendingChallenge
	}
	select {
	case r.responses <- response:
		r.waiting = false
		return nil
	default:
		return ErrNoPendingChallenge
	}
}

func (r *ChallengeResolver) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.waiting
}

// Wait blocks until a response is resolved or ctx is done.
func (r *ChallengeResolver) Wait(ctx context.Context) (string, error) {
	r.mu.Lock()
	select {
	case <-r.responses:
	default:
	}
	r.waiting = true
	r.mu.Unlock()

	select {
	case response := <-r.responses:
		return response, nil
	case <-ctx.Done():
		r.mu.Lock()
		r.waiting = false
		r.mu.Unlock()
		return "", ctx.Err()
	}
}
