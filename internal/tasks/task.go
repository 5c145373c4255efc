package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maxaizer/job-autopilot/internal/entities"
	"github.com/maxaizer/job-autopilot/internal/logger"
	"github.com/maxaizer/job-autopilot/internal/metrics"
	"github.com/maxaizer/job-autopilot/internal/repositories"
	"github.com/maxaizer/job-autopilot/internal/session"
	log "github.com/sirupsen/logrus"
)

// Task is one kind of scrape job the coordinator runs on a schedule.
type Task interface {
	Kind() entities.TaskKind
	Run(ctx context.Context) (Outcome, error)
}

type Outcome struct {
	ItemsProcessed int
	ErrorsCount    int
	Duration       time.Duration
	Details        map[string]int
}

func newOutcome() Outcome {
	return Outcome{Details: map[string]int{}}
}

func (o Outcome) Status() entities.RunStatus {
	if o.ErrorsCount > 0 {
		return entities.RunPartial
	}
	return entities.RunSuccess
}

func (o *Outcome) count(detail string) {
	o.Details[detail]++
}

// ItemError is a failure confined to one item. The task records it and moves on.
type ItemError struct {
	Item string
	Err  error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %s: %v", e.Item, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// sessionProvider hands out the exclusive authenticated page.
type sessionProvider interface {
	WithLease(ctx context.Context, fn func(page session.Page) error) error
}

// isFatal reports whether err must end the run instead of being counted against one item.
func isFatal(ctx context.Context, err error) bool {
	return ctx.Err() != nil || session.IsSessionFailure(err) || repositories.IsStoreError(err) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (o *Outcome) itemFailed(kind entities.TaskKind, item string, err error) {
	o.ErrorsCount++
	itemErr := &ItemError{Item: item, Err: err}
	log.WithFields(log.Fields{
		logger.ErrorTypeField: logger.ErrorTypePlatform,
		"kind":                kind,
	}).Error(itemErr.Error())
}

func (o *Outcome) itemDone(kind entities.TaskKind) {
	o.ItemsProcessed++
	metrics.ItemsProcessedCounter.WithLabelValues(string(kind)).Inc()
}
