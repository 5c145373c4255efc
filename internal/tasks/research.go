package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/maxaizer/job-autopilot/internal/config"
	"github.com/maxaizer/job-autopilot/internal/entities"
	"github.com/maxaizer/job-autopilot/internal/platform"
	"github.com/maxaizer/job-autopilot/internal/session"
	gocache "github.com/patrickmn/go-cache"
)

type companySource interface {
	LookupCompany(ctx context.Context, page platform.Page, name string) (platform.CompanyResult, error)
}

type companyRepository interface {
	Upsert(ctx context.Context, company entities.Company) error
	ListStaleNames(ctx context.Context, refreshedBefore time.Time, limit int) ([]string, error)
}

type recruiterRepository interface {
	Upsert(ctx context.Context, recruiter entities.Recruiter) error
}

var errCompanyNotFound = errors.New("company page not found")

// Research fills in company profiles and recruiters for companies that jobs reference.
type Research struct {
	sessions   sessionProvider
	source     companySource
	companies  companyRepository
	recruiters recruiterRepository
	pacer      *Pacer
	limits     config.LimitsConfig
	missing    *gocache.Cache
	now        func() time.Time
}

func NewResearch(sessions sessionProvider, source companySource, companies companyRepository,
	recruiters recruiterRepository, pacer *Pacer, limits config.LimitsConfig) *Research {

	return &Research{
		sessions:   sessions,
		source:     source,
		companies:  companies,
		recruiters: recruiters,
		pacer:      pacer,
		limits:     limits,
		missing:    gocache.New(24*time.Hour, time.Hour),
		now:        time.Now,
	}
}

func (r *Research) Kind() entities.TaskKind {
	return entities.TaskResearch
}

func (r *Research) Run(ctx context.Context) (Outcome, error) {
	outcome := newOutcome()

	// over-fetch so negatively cached names do not starve the batch
	names, err := r.companies.ListStaleNames(ctx, r.now().Add(-r.limits.ResearchRefreshAfter), 2*r.limits.ResearchBatch)
	if err != nil {
		return outcome, err
	}

	var pending []string
	for _, name := range names {
		if _, missing := r.missing.Get(name); missing {
			outcome.count("cached_missing")
			continue
		}
		if len(pending) < r.limits.ResearchBatch {
			pending = append(pending, name)
		}
	}
	if len(pending) == 0 {
		return outcome, nil
	}

	err = r.sessions.WithLease(ctx, func(page session.Page) error {
		for i, name := range pending {
			if i > 0 {
				if err := r.pacer.Wait(ctx); err != nil {
					return err
				}
			}
			if err := r.research(ctx, page, name, &outcome); err != nil {
				return err
			}
		}
		return nil
	})
	return outcome, err
}

func (r *Research) research(ctx context.Context, page platform.Page, name string, outcome *Outcome) error {
	result, err := r.source.LookupCompany(ctx, page, name)
	if err != nil {
		if isFatal(ctx, err) {
			return err
		}
		outcome.itemFailed(r.Kind(), name, err)
		return nil
	}
	if !result.Found {
		r.missing.SetDefault(name, struct{}{})
		outcome.itemFailed(r.Kind(), name, errCompanyNotFound)
		return nil
	}

	company := result.Company
	company.CompanyName = name
	if company.ScrapedAt.IsZero() {
		company.ScrapedAt = r.now()
	}
	if err = r.companies.Upsert(ctx, company); err != nil {
		return err
	}

	for _, recruiter := range result.Recruiters {
		if recruiter.ProfileUrl == "" {
			continue
		}
		recruiter.Company = name
		if err = r.recruiters.Upsert(ctx, recruiter); err != nil {
			return err
		}
		outcome.count("recruiters")
	}

	outcome.itemDone(r.Kind())
	return nil
}
