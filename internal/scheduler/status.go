package scheduler

import (
	"time"

	"github.com/maxaizer/job-autopilot/internal/entities"
)

type TaskStatus struct {
	Kind       entities.TaskKind
	Schedule   string
	Enabled    bool
	Paused     bool
	Running    bool
	LastRun    *time.Time
	NextRun    *time.Time
	LastStatus entities.RunStatus
	LastError  string
}

// Status lists every registered task in registration order.
func (c *Coordinator) Status() []TaskStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	statuses := make([]TaskStatus, 0, len(c.order))
	for _, kind := range c.order {
		e := c.entries[kind]
		status := TaskStatus{
			Kind:     kind,
			Schedule: e.schedule.Spec(),
			Enabled:  e.schedule.Enabled,
			Paused:   e.paused,
			Running:  e.running.Load(),
		}

		if e.lastRun != nil {
			completed := e.lastRun.CompletedAt
			status.LastRun = &completed
			status.LastStatus = e.lastRun.Status
			status.LastError = e.lastRun.ErrorMessage
		}
		if c.cron != nil && e.cronID != 0 {
			if next := c.cron.Entry(e.cronID).Next; !next.IsZero() {
				status.NextRun = &next
			}
		}

		statuses = append(statuses, status)
	}
	return statuses
}
