package scheduler

import (
	"context"
	"runtime/debug"

	"github.com/google/uuid"
	"github.com/maxaizer/job-autopilot/internal/entities"
	"github.com/maxaizer/job-autopilot/internal/events"
	"github.com/maxaizer/job-autopilot/internal/logger"
	"github.com/maxaizer/job-autopilot/internal/metrics"
	"github.com/maxaizer/job-autopilot/internal/tasks"
	log "github.com/sirupsen/logrus"
)

// execute runs the task once and records the result whatever way the task ended.
func (c *Coordinator) execute(ctx context.Context, e *entry, trigger entities.RunTrigger) {
	kind := e.task.Kind()
	record := entities.ScrapingLog{
		RunID:     uuid.NewString(),
		Type:      kind,
		Trigger:   trigger,
		StartedAt: c.now(),
	}
	runLog := log.WithFields(log.Fields{"kind": kind, "run_id": record.RunID, "trigger": trigger})
	runLog.Info("run started")

	timeout := e.schedule.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	var runCtx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	outcome, err := invoke(runCtx, e.task)
	cancel()

	record.CompletedAt = c.now()
	record.DurationMs = record.CompletedAt.Sub(record.StartedAt).Milliseconds()
	record.ItemsProcessed = outcome.ItemsProcessed
	record.ErrorsCount = outcome.ErrorsCount
	record.Status = outcome.Status()

	if err != nil {
		record.Status = entities.RunError
		record.ErrorMessage = err.Error()
		record.ErrorClass = ClassifyError(err)
		runLog.WithField(logger.ErrorTypeField, errorType(record.ErrorClass)).
			Errorf("run failed (%v): %v", record.ErrorClass, err)
	} else {
		runLog.Infof("run finished: %v, %v items, %v errors, details %v",
			record.Status, record.ItemsProcessed, record.ErrorsCount, outcome.Details)
	}

	if err := c.runLogs.Add(context.Background(), record); err != nil {
		runLog.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to persist run log: %v", err)
	}

	c.mu.Lock()
	e.lastRun = &record
	c.mu.Unlock()

	metrics.TaskRunsCounter.WithLabelValues(string(kind), string(record.Status)).Inc()
	metrics.TaskDuration.WithLabelValues(string(kind)).Observe(record.CompletedAt.Sub(record.StartedAt).Seconds())
	c.bus.Publish(events.RunCompletedTopic, events.RunCompleted{Log: record})
}

func invoke(ctx context.Context, task tasks.Task) (outcome tasks.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome, err = tasks.Outcome{}, &PanicError{Value: r, Stack: string(debug.Stack())}
		}
	}()
	return task.Run(ctx)
}

func errorType(class string) string {
	switch class {
	case ClassSession, ClassChallengeRequired:
		return logger.ErrorTypeSession
	case ClassStore:
		return logger.ErrorTypeDb
	}
	return logger.ErrorTypePlatform
}
