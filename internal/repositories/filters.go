package repositories

import (
	"context"
	"time"

	"github.com/maxaizer/job-autopilot/internal/entities"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Filters struct {
	db *gorm.DB
}

func NewFiltersRepository(db *gorm.DB) *Filters {
	return &Filters{db: db}
}

func (repo *Filters) Add(ctx context.Context, filter entities.SearchFilter) error {
	return storeErr("add filter", repo.db.WithContext(ctx).Create(&filter).Error)
}

func (repo *Filters) GetActive(ctx context.Context) ([]entities.SearchFilter, error) {
	var filters []entities.SearchFilter
	if err := repo.db.WithContext(ctx).Order("id").Find(&filters, "is_active = ?", true).Error; err != nil {
		return nil, storeErr("get active filters", err)
	}
	return filters, nil
}

// List returns every filter, active or not.
func (repo *Filters) List(ctx context.Context) ([]entities.SearchFilter, error) {
	var filters []entities.SearchFilter
	if err := repo.db.WithContext(ctx).Order("id").Find(&filters).Error; err != nil {
		return nil, storeErr("list filters", err)
	}
	return filters, nil
}

func (repo *Filters) GetByName(ctx context.Context, name string) (*entities.SearchFilter, error) {
	var filter entities.SearchFilter
	err := repo.db.WithContext(ctx).First(&filter, "name = ?", name).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storeErr("get filter", err)
	}
	return &filter, nil
}

func (repo *Filters) MarkUsed(ctx context.Context, id int, at time.Time) error {
	err := repo.db.WithContext(ctx).Model(&entities.SearchFilter{}).Where("id = ?", id).Update("last_used", at).Error
	return storeErr("mark filter used", err)
}

func (repo *Filters) SetActive(ctx context.Context, id int, active bool) error {
	res := repo.db.WithContext(ctx).Model(&entities.SearchFilter{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return storeErr("set filter active", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
