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

type jobSource interface {
	SearchBatch(ctx context.Context, page platform.Page, filter entities.SearchFilter, batch int) (platform.ListingBatch, error)
	Validate(listing platform.Listing) error
}

type filterRepository interface {
	GetActive(ctx context.Context) ([]entities.SearchFilter, error)
	MarkUsed(ctx context.Context, id int, at time.Time) error
}

type jobRepository interface {
	Upsert(ctx context.Context, job entities.Job) error
	Exists(ctx context.Context, jobID string) (bool, error)
}

// Discovery walks the search results of every active filter and stores the listings it finds.
type Discovery struct {
	sessions sessionProvider
	source   jobSource
	filters  filterRepository
	jobs     jobRepository
	scorer   Scorer
	pacer    *Pacer
	limits   config.LimitsConfig
	now      func() time.Time
}

func NewDiscovery(sessions sessionProvider, source jobSource, filters filterRepository, jobs jobRepository,
	scorer Scorer, pacer *Pacer, limits config.LimitsConfig) *Discovery {

	return &Discovery{
		sessions: sessions,
		source:   source,
		filters:  filters,
		jobs:     jobs,
		scorer:   scorer,
		pacer:    pacer,
		limits:   limits,
		now:      time.Now,
	}
}

func (d *Discovery) Kind() entities.TaskKind {
	return entities.TaskDiscovery
}

func (d *Discovery) Run(ctx context.Context) (Outcome, error) {
	filters, err := d.filters.GetActive(ctx)
	if err != nil {
		return newOutcome(), err
	}
	return d.RunFilters(ctx, filters)
}

// RunFilters searches the given filters regardless of whether they are active.
func (d *Discovery) RunFilters(ctx context.Context, filters []entities.SearchFilter) (Outcome, error) {
	outcome := newOutcome()
	if len(filters) == 0 {
		log.Info("no active search filters, nothing to discover")
		return outcome, nil
	}

	seen := make(map[string]struct{})
	err := d.sessions.WithLease(ctx, func(page session.Page) error {
		for _, filter := range filters {
			if len(seen) >= d.limits.MaxJobsPerRun {
				break
			}
			if err := d.search(ctx, page, filter, seen, &outcome); err != nil {
				return err
			}
			if err := d.filters.MarkUsed(ctx, filter.ID, d.now()); err != nil {
				return err
			}
		}
		return nil
	})

	outcome.Details["unique"] = len(seen)
	return outcome, err
}

// search stops at the first of: the run reached MaxJobsPerRun unique jobs, MaxEmptyBatches consecutive
// batches brought nothing new, MaxBatches batches were read, or the results ran out.
func (d *Discovery) search(ctx context.Context, page platform.Page, filter entities.SearchFilter,
	seen map[string]struct{}, outcome *Outcome) error {

	empty := 0
	for batch := 0; batch < d.limits.MaxBatches; batch++ {
		if batch > 0 {
			if err := d.pacer.Wait(ctx); err != nil {
				return err
			}
		}

		result, err := d.source.SearchBatch(ctx, page, filter, batch)
		if err != nil {
			if isFatal(ctx, err) {
				return err
			}
			outcome.itemFailed(d.Kind(), fmt.Sprintf("%s batch %d", filter.Name, batch), err)
			if empty++; empty >= d.limits.MaxEmptyBatches {
				return nil
			}
			continue
		}

		fresh := 0
		for _, listing := range result.Listings {
			added, err := d.store(ctx, filter, listing, seen, outcome)
			if err != nil {
				return err
			}
			if added {
				fresh++
			}
			if len(seen) >= d.limits.MaxJobsPerRun {
				outcome.count("stopped_max_jobs")
				return nil
			}
		}

		if fresh == 0 {
			empty++
		} else {
			empty = 0
		}
		if empty >= d.limits.MaxEmptyBatches {
			outcome.count("stopped_empty_batches")
			return nil
		}
		if !result.Found || !result.HasMore {
			return nil
		}
	}
	outcome.count("stopped_max_batches")
	return nil
}

// store reports whether the listing was a job id the run had not seen yet.
func (d *Discovery) store(ctx context.Context, filter entities.SearchFilter, listing platform.Listing,
	seen map[string]struct{}, outcome *Outcome) (bool, error) {

	if err := d.source.Validate(listing); err != nil {
		outcome.itemFailed(d.Kind(), listing.Url, err)
		return false, nil
	}

	jobID := listing.JobID()
	if _, ok := seen[jobID]; ok {
		return false, nil
	}
	seen[jobID] = struct{}{}

	if flag, found := redFlag(filter, listing); found {
		log.Debugf("skipping %v: matches red flag %q", listing.Url, flag)
		outcome.count("red_flagged")
		return true, nil
	}

	score, err := d.scorer.Score(ctx, filter, listing)
	if err != nil {
		if isFatal(ctx, err) {
			return true, err
		}
		outcome.itemFailed(d.Kind(), listing.Url, err)
		return true, nil
	}

	exists, err := d.jobs.Exists(ctx, jobID)
	if err != nil {
		return true, err
	}
	if err = d.jobs.Upsert(ctx, toJob(jobID, listing, score, d.now())); err != nil {
		return true, err
	}

	if exists {
		outcome.count("updated")
	} else {
		outcome.count("new")
	}
	outcome.itemDone(d.Kind())
	return true, nil
}

func toJob(jobID string, listing platform.Listing, score Score, now time.Time) entities.Job {
	return entities.Job{
		JobID:           jobID,
		Title:           listing.Title,
		Company:         listing.Company,
		Location:        listing.Location,
		Description:     listing.Description,
		PostedDate:      listing.PostedDate,
		Url:             listing.Url,
		SalaryRange:     listing.SalaryRange,
		ExperienceLevel: listing.ExperienceLevel,
		ScrapedAt:       now,
		MatchScore:      score.Value,
		KeywordsMatched: score.Keywords,
	}
}
