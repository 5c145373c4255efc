package tasks

import (
	"context"
	"time"

	"github.com/maxaizer/job-autopilot/internal/config"
	"github.com/maxaizer/job-autopilot/internal/entities"
	log "github.com/sirupsen/logrus"
)

type staleJobRemover interface {
	RemoveStale(ctx context.Context, olderThan time.Time) (int64, error)
}

type runLogPruner interface {
	PruneOlderThan(ctx context.Context, olderThan time.Time) (int64, error)
}

type historyCompactor interface {
	CompactHistories(ctx context.Context, keep int, olderThan time.Time) (int64, error)
}

// Maintenance enforces the retention windows. It only touches the store and never leases the session.
type Maintenance struct {
	jobs         staleJobRemover
	runLogs      runLogPruner
	applications historyCompactor
	retention    config.RetentionConfig
	now          func() time.Time
}

func NewMaintenance(jobs staleJobRemover, runLogs runLogPruner, applications historyCompactor,
	retention config.RetentionConfig) *Maintenance {

	return &Maintenance{
		jobs:         jobs,
		runLogs:      runLogs,
		applications: applications,
		retention:    retention,
		now:          time.Now,
	}
}

func (m *Maintenance) Kind() entities.TaskKind {
	return entities.TaskMaintenance
}

func (m *Maintenance) Run(ctx context.Context) (Outcome, error) {
	outcome := newOutcome()
	now := m.now()

	jobs, err := m.jobs.RemoveStale(ctx, now.Add(-m.retention.JobRetention))
	if err != nil {
		return outcome, err
	}
	outcome.Details["jobs_removed"] = int(jobs)

	logs, err := m.runLogs.PruneOlderThan(ctx, now.Add(-m.retention.LogRetention))
	if err != nil {
		return outcome, err
	}
	outcome.Details["logs_pruned"] = int(logs)

	histories, err := m.applications.CompactHistories(ctx, m.retention.HistoryKeep, now.Add(-m.retention.HistoryMaxAge))
	if err != nil {
		return outcome, err
	}
	outcome.Details["histories_compacted"] = int(histories)

	outcome.ItemsProcessed = int(jobs + logs + histories)
	log.Infof("maintenance removed %v jobs, pruned %v run logs, compacted %v histories", jobs, logs, histories)
	return outcome, nil
}
