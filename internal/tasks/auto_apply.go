package tasks

import (
	"context"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/job-autopilot/internal/config"
	"github.com/maxaizer/job-autopilot/internal/entities"
	"github.com/maxaizer/job-autopilot/internal/events"
	"github.com/maxaizer/job-autopilot/internal/metrics"
	"github.com/maxaizer/job-autopilot/internal/platform"
	"github.com/maxaizer/job-autopilot/internal/repositories"
	"github.com/maxaizer/job-autopilot/internal/session"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type eligibleJobRepository interface {
	ListEligibleForApply(ctx context.Context, minScore int, limit int) ([]entities.Job, error)
}

type applicationWriter interface {
	CountSince(ctx context.Context, since time.Time) (int64, error)
	CreateWithinDailyCap(ctx context.Context, app entities.Application, cap int, since time.Time) error
	Delete(ctx context.Context, applicationID string) error
}

type counterRepository interface {
	Increment(ctx context.Context, key string, delta int64) (int64, error)
}

// AutoApply submits applications for the best scored jobs without exceeding the daily cap.
type AutoApply struct {
	sessions     sessionProvider
	jobs         eligibleJobRepository
	applications applicationWriter
	counters     counterRepository
	bus          EventBus.Bus
	form         *applicationForm
	pacer        *Pacer
	limits       config.LimitsConfig
	now          func() time.Time
}

func NewAutoApply(sessions sessionProvider, steps StepClassifier, jobs eligibleJobRepository,
	applications applicationWriter, counters counterRepository, bus EventBus.Bus, pacer *Pacer,
	limits config.LimitsConfig, profile platform.Profile) *AutoApply {

	return &AutoApply{
		sessions:     sessions,
		jobs:         jobs,
		applications: applications,
		counters:     counters,
		bus:          bus,
		form:         &applicationForm{steps: steps, profile: profile, retries: limits.StepRetries, pacer: pacer},
		pacer:        pacer,
		limits:       limits,
		now:          time.Now,
	}
}

func (a *AutoApply) Kind() entities.TaskKind {
	return entities.TaskAutoApply
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// DailyCounterKey is the settings key counting submissions of the day t falls on.
func DailyCounterKey(t time.Time) string {
	return "applications." + t.Format(time.DateOnly)
}

func (a *AutoApply) Run(ctx context.Context) (Outcome, error) {
	outcome := newOutcome()
	dayStart := startOfDay(a.now())

	applied, err := a.applications.CountSince(ctx, dayStart)
	if err != nil {
		return outcome, err
	}
	remaining := a.limits.MaxApplicationsPerDay - int(applied)
	if remaining <= 0 {
		log.Infof("daily application cap of %v reached, nothing to apply", a.limits.MaxApplicationsPerDay)
		outcome.count("cap_reached")
		return outcome, nil
	}

	jobs, err := a.jobs.ListEligibleForApply(ctx, a.limits.MinMatchScore, remaining)
	if err != nil {
		return outcome, err
	}
	if len(jobs) == 0 {
		return outcome, nil
	}

	err = a.sessions.WithLease(ctx, func(page session.Page) error {
		for i, job := range jobs {
			if i > 0 {
				if err := a.pacer.Wait(ctx); err != nil {
					return err
				}
			}

			err := a.apply(ctx, page, job, dayStart, &outcome)
			if errors.Is(err, repositories.ErrDailyCapReached) {
				outcome.count("cap_reached")
				return nil
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	return outcome, err
}

// apply reserves the application inside the daily cap before touching the form, so the cap holds
// even when another run submits concurrently. A form that fails releases the reservation.
func (a *AutoApply) apply(ctx context.Context, page platform.Page, job entities.Job, dayStart time.Time,
	outcome *Outcome) error {

	app := entities.NewApplication(job.JobID, entities.SourceAuto, a.now())
	err := a.applications.CreateWithinDailyCap(ctx, app, a.limits.MaxApplicationsPerDay, dayStart)
	switch {
	case errors.Is(err, repositories.ErrAlreadyApplied):
		outcome.count("already_applied")
		return nil
	case errors.Is(err, repositories.ErrJobNotFound):
		outcome.itemFailed(a.Kind(), job.JobID, err)
		return nil
	case err != nil:
		return err
	}

	if err = a.form.submit(ctx, page, job); err != nil {
		if deleteErr := a.applications.Delete(context.WithoutCancel(ctx), app.ApplicationID); deleteErr != nil {
			return deleteErr
		}
		if isFatal(ctx, err) {
			return err
		}
		if errors.Is(err, platform.ErrNoEasyApply) {
			outcome.count("no_easy_apply")
		}
		outcome.itemFailed(a.Kind(), job.JobID, err)
		return nil
	}

	if _, err = a.counters.Increment(ctx, DailyCounterKey(app.AppliedAt), 1); err != nil {
		return err
	}
	metrics.ApplicationsSubmittedCounter.Inc()
	a.bus.Publish(events.ApplicationSubmittedTopic, events.ApplicationSubmitted{
		ApplicationID: app.ApplicationID,
		JobID:         job.JobID,
		Title:         job.Title,
		Company:       job.Company,
		Url:           job.Url,
		SubmittedAt:   app.AppliedAt,
	})
	log.Infof("applied to %v at %v (%v)", job.Title, job.Company, job.Url)

	outcome.itemDone(a.Kind())
	return nil
}
