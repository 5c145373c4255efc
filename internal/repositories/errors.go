package repositories

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrJobNotFound     = errors.New("job not found")
	ErrAlreadyApplied  = errors.New("job already has an application")
	ErrDailyCapReached = errors.New("daily application cap reached")
)

// StoreError marks a persistence failure. Tasks cannot continue without durable state,
// so callers propagate it instead of counting it as an item failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// IsStoreError reports whether err is (or wraps) a persistence failure.
func IsStoreError(err error) bool {
	var storeError *StoreError
	return errors.As(err, &storeError)
}
