package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/maxaizer/job-autopilot/internal/config"
	"github.com/maxaizer/job-autopilot/internal/entities"
	"github.com/maxaizer/job-autopilot/internal/platform"
	"github.com/maxaizer/job-autopilot/internal/session"
	log "github.com/sirupsen/logrus"
)

type statusSource interface {
	FetchStatus(ctx context.Context, page platform.Page, app entities.Application, job *entities.Job) (platform.StatusResult, error)
}

type applicationRepository interface {
	ListForStatusCheck(ctx context.Context, checkedBefore time.Time, limit int) ([]entities.Application, error)
	AppendStatus(ctx context.Context, applicationID string, status entities.ApplicationStatus, at time.Time) (bool, error)
	TouchChecked(ctx context.Context, applicationID string, at time.Time) error
}

type jobLookup interface {
	GetByID(ctx context.Context, jobID string) (*entities.Job, error)
}

// StatusCheck polls the platform for applications that are still moving and records status changes.
type StatusCheck struct {
	sessions     sessionProvider
	source       statusSource
	applications applicationRepository
	jobs         jobLookup
	pacer        *Pacer
	limits       config.LimitsConfig
	now          func() time.Time
}

func NewStatusCheck(sessions sessionProvider, source statusSource, applications applicationRepository,
	jobs jobLookup, pacer *Pacer, limits config.LimitsConfig) *StatusCheck {

	return &StatusCheck{
		sessions:     sessions,
		source:       source,
		applications: applications,
		jobs:         jobs,
		pacer:        pacer,
		limits:       limits,
		now:          time.Now,
	}
}

func (s *StatusCheck) Kind() entities.TaskKind {
	return entities.TaskStatusCheck
}

func (s *StatusCheck) Run(ctx context.Context) (Outcome, error) {
	outcome := newOutcome()

	apps, err := s.applications.ListForStatusCheck(ctx, s.now().Add(-s.limits.StatusCheckEvery), s.limits.StatusCheckBatch)
	if err != nil {
		return outcome, err
	}
	if len(apps) == 0 {
		return outcome, nil
	}

	err = s.sessions.WithLease(ctx, func(page session.Page) error {
		for i, app := range apps {
			if i > 0 {
				if err := s.pacer.Wait(ctx); err != nil {
					return err
				}
			}
			if err := s.check(ctx, page, app, &outcome); err != nil {
				return err
			}
		}
		return nil
	})
	return outcome, err
}

func (s *StatusCheck) check(ctx context.Context, page platform.Page, app entities.Application, outcome *Outcome) error {
	job, err := s.jobs.GetByID(ctx, app.JobID)
	if err != nil {
		return err
	}

	result, err := s.source.FetchStatus(ctx, page, app, job)
	if err != nil {
		if isFatal(ctx, err) {
			return err
		}
		outcome.itemFailed(s.Kind(), app.ApplicationID, err)
		return nil
	}

	now := s.now()
	switch {
	case !result.Found:
		outcome.count("not_found")
		if err = s.applications.TouchChecked(ctx, app.ApplicationID, now); err != nil {
			return err
		}
	case !result.Known:
		outcome.itemFailed(s.Kind(), app.ApplicationID, fmt.Errorf("unknown status %q", result.Raw))
		return nil
	default:
		changed, err := s.applications.AppendStatus(ctx, app.ApplicationID, result.Status, now)
		if err != nil {
			return err
		}
		if changed {
			log.Infof("application %v moved from %v to %v", app.ApplicationID, app.Status, result.Status)
			outcome.count("changed")
		} else {
			outcome.count("unchanged")
		}
	}

	outcome.itemDone(s.Kind())
	return nil
}
