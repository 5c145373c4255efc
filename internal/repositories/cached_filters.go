package repositories

import (
	"context"
	"time"

	"github.com/maxaizer/job-autopilot/internal/entities"
	gocache "github.com/patrickmn/go-cache"
)

const activeFiltersKey = "active"

type filterRepository interface {
	Add(ctx context.Context, filter entities.SearchFilter) error
	List(ctx context.Context) ([]entities.SearchFilter, error)
	GetActive(ctx context.Context) ([]entities.SearchFilter, error)
	MarkUsed(ctx context.Context, id int, at time.Time) error
	SetActive(ctx context.Context, id int, active bool) error
}

type CachedFilters struct {
	repo  filterRepository
	cache *gocache.Cache
}

func NewCachedFilters(repo filterRepository) *CachedFilters {
	return &CachedFilters{repo: repo, cache: gocache.New(10*time.Minute, 20*time.Minute)}
}

func (c *CachedFilters) GetActive(ctx context.Context) ([]entities.SearchFilter, error) {
	if value, found := c.cache.Get(activeFiltersKey); found {
		return value.([]entities.SearchFilter), nil
	}

	filters, err := c.repo.GetActive(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(activeFiltersKey, filters)
	return filters, nil
}

func (c *CachedFilters) Add(ctx context.Context, filter entities.SearchFilter) error {
	defer c.cache.Delete(activeFiltersKey)
	return c.repo.Add(ctx, filter)
}

func (c *CachedFilters) List(ctx context.Context) ([]entities.SearchFilter, error) {
	return c.repo.List(ctx)
}

func (c *CachedFilters) MarkUsed(ctx context.Context, id int, at time.Time) error {
	defer c.cache.Delete(activeFiltersKey)
	return c.repo.MarkUsed(ctx, id, at)
}

func (c *CachedFilters) SetActive(ctx context.Context, id int, active bool) error {
	defer c.cache.Delete(activeFiltersKey)
	return c.repo.SetActive(ctx, id, active)
}
