package repositories

import (
	"context"
	"time"

	"github.com/maxaizer/job-autopilot/internal/entities"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// scrapedJobColumns are the attributes a later scrape is allowed to overwrite. is_applied is owned
// by the applications repository.
var scrapedJobColumns = []string{
	"title", "company", "location", "description", "posted_date", "url", "salary_range",
	"experience_level", "scraped_at", "match_score", "keywords_matched",
}

type JobQuery struct {
	Company       string
	OnlyUnapplied bool
	MinScore      int
}

type Jobs struct {
	db *gorm.DB
}

func NewJobsRepository(db *gorm.DB) *Jobs {
	return &Jobs{db: db}
}

// Upsert inserts the job or replaces the scraped attributes of the row with the same job_id.
func (repo *Jobs) Upsert(ctx context.Context, job entities.Job) error {
	err := repo.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_id"}},
		DoUpdates: clause.AssignmentColumns(scrapedJobColumns),
	}).Create(&job).Error
	return storeErr("upsert job", err)
}

func (repo *Jobs) Exists(ctx context.Context, jobID string) (bool, error) {
	var count int64
	err := repo.db.WithContext(ctx).Model(&entities.Job{}).Where("job_id = ?", jobID).Count(&count).Error
	if err != nil {
		return false, storeErr("check job", err)
	}
	return count > 0, nil
}

func (repo *Jobs) GetByID(ctx context.Context, jobID string) (*entities.Job, error) {
	var job entities.Job
	err := repo.db.WithContext(ctx).First(&job, "job_id = ?", jobID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storeErr("get job", err)
	}
	return &job, nil
}

// ListEligibleForApply returns unapplied jobs scoring at least minScore, best matches first.
func (repo *Jobs) ListEligibleForApply(ctx context.Context, minScore int, limit int) ([]entities.Job, error) {
	var jobs []entities.Job
	err := repo.db.WithContext(ctx).
		Where("is_applied = ? AND match_score >= ?", false, minScore).
		Order("match_score DESC").
		Order("scraped_at DESC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, storeErr("list eligible jobs", err)
	}
	return jobs, nil
}

func (repo *Jobs) List(ctx context.Context, query JobQuery, limit int, offset int) ([]entities.Job, error) {
	tx := repo.db.WithContext(ctx).Model(&entities.Job{})
	if query.Company != "" {
		tx = tx.Where("company = ?", query.Company)
	}
	if query.OnlyUnapplied {
		tx = tx.Where("is_applied = ?", false)
	}
	if query.MinScore > 0 {
		tx = tx.Where("match_score >= ?", query.MinScore)
	}

	var jobs []entities.Job
	if err := tx.Order("scraped_at DESC").Limit(limit).Offset(offset).Find(&jobs).Error; err != nil {
		return nil, storeErr("list jobs", err)
	}
	return jobs, nil
}

// RemoveStale deletes jobs that were never applied to and have not been seen since olderThan.
func (repo *Jobs) RemoveStale(ctx context.Context, olderThan time.Time) (int64, error) {
	res := repo.db.WithContext(ctx).
		Where("is_applied = ? AND scraped_at < ?", false, olderThan).
		Where("job_id NOT IN (?)", repo.db.Model(&entities.Application{}).Select("job_id")).
		Delete(&entities.Job{})
	return res.RowsAffected, storeErr("remove stale jobs", res.Error)
}

// Delete removes a job together with its application, if any.
func (repo *Jobs) Delete(ctx context.Context, jobID string) error {
	return repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&entities.Application{}, "job_id = ?", jobID).Error; err != nil {
			return storeErr("delete job application", err)
		}
		res := tx.Delete(&entities.Job{}, "job_id = ?", jobID)
		if res.Error != nil {
			return storeErr("delete job", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
