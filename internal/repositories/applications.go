package repositories

import (
	"context"
	"time"

	"github.com/maxaizer/job-autopilot/internal/entities"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Applications struct {
	db *gorm.DB
}

func NewApplicationsRepository(db *gorm.DB) *Applications {
	return &Applications{db: db}
}

// Create inserts the application and marks its job as applied in one transaction.
func (repo *Applications) Create(ctx context.Context, app entities.Application) error {
	return repo.create(ctx, app, nil)
}

// CreateWithinDailyCap behaves like Create but fails with ErrDailyCapReached when cap applications
// were already recorded since the given time. The count and the insert share the transaction.
func (repo *Applications) CreateWithinDailyCap(ctx context.Context, app entities.Application, cap int, since time.Time) error {
	return repo.create(ctx, app, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entities.Application{}).Where("applied_at >= ?", since).Count(&count).Error; err != nil {
			return storeErr("count applications", err)
		}
		if count >= int64(cap) {
			return ErrDailyCapReached
		}
		return nil
	})
}

func (repo *Applications) create(ctx context.Context, app entities.Application, check func(tx *gorm.DB) error) error {
	return repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var jobs int64
		if err := tx.Model(&entities.Job{}).Where("job_id = ?", app.JobID).Count(&jobs).Error; err != nil {
			return storeErr("check job", err)
		}
		if jobs == 0 {
			return ErrJobNotFound
		}

		var existing int64
		if err := tx.Model(&entities.Application{}).Where("job_id = ?", app.JobID).Count(&existing).Error; err != nil {
			return storeErr("check application", err)
		}
		if existing > 0 {
			return ErrAlreadyApplied
		}

		if check != nil {
			if err := check(tx); err != nil {
				return err
			}
		}

		if err := tx.Create(&app).Error; err != nil {
			return storeErr("create application", err)
		}

		err := tx.Model(&entities.Job{}).Where("job_id = ?", app.JobID).Update("is_applied", true).Error
		return storeErr("mark job applied", err)
	})
}

func (repo *Applications) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := repo.db.WithContext(ctx).Model(&entities.Application{}).Where("applied_at >= ?", since).Count(&count).Error
	return count, storeErr("count applications", err)
}

func (repo *Applications) GetByID(ctx context.Context, applicationID string) (*entities.Application, error) {
	return repo.first(ctx, "application_id = ?", applicationID)
}

func (repo *Applications) GetByJobID(ctx context.Context, jobID string) (*entities.Application, error) {
	return repo.first(ctx, "job_id = ?", jobID)
}

func (repo *Applications) first(ctx context.Context, query string, arg any) (*entities.Application, error) {
	var app entities.Application
	err := repo.db.WithContext(ctx).First(&app, query, arg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storeErr("get application", err)
	}
	return &app, nil
}

// ListForStatusCheck returns non-terminal applications not checked since checkedBefore,
// never-checked ones first.
func (repo *Applications) ListForStatusCheck(ctx context.Context, checkedBefore time.Time, limit int) ([]entities.Application, error) {
	var apps []entities.Application
	err := repo.db.WithContext(ctx).
		Where("status NOT IN ?", entities.TerminalStatuses()).
		Where("(last_checked IS NULL OR last_checked < ?)", checkedBefore).
		Order("last_checked ASC").
		Limit(limit).
		Find(&apps).Error
	if err != nil {
		return nil, storeErr("list applications for status check", err)
	}
	return apps, nil
}

// AppendStatus records a status transition observed at the given time. It reports whether the status
// changed; an unchanged status only refreshes last_checked.
func (repo *Applications) AppendStatus(ctx context.Context, applicationID string,
	status entities.ApplicationStatus, at time.Time) (bool, error) {

	changed := false
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var app entities.Application
		if err := tx.First(&app, "application_id = ?", applicationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return storeErr("get application", err)
		}

		changed = app.WithStatus(status, at)
		app.LastChecked = &at

		return storeErr("update application status", tx.Save(&app).Error)
	})
	return changed, err
}

func (repo *Applications) TouchChecked(ctx context.Context, applicationID string, at time.Time) error {
	err := repo.db.WithContext(ctx).Model(&entities.Application{}).
		Where("application_id = ?", applicationID).
		Update("last_checked", at).Error
	return storeErr("touch application", err)
}

// Delete removes an application and resets is_applied on its job.
func (repo *Applications) Delete(ctx context.Context, applicationID string) error {
	return repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var app entities.Application
		if err := tx.First(&app, "application_id = ?", applicationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return storeErr("get application", err)
		}

		if err := tx.Delete(&entities.Application{}, "application_id = ?", applicationID).Error; err != nil {
			return storeErr("delete application", err)
		}

		err := tx.Model(&entities.Job{}).Where("job_id = ?", app.JobID).Update("is_applied", false).Error
		return storeErr("reset job applied", err)
	})
}

// CompactHistories keeps the newest keep entries of every status history and drops older
// entries recorded before olderThan. It returns the number of applications rewritten.
func (repo *Applications) CompactHistories(ctx context.Context, keep int, olderThan time.Time) (int64, error) {
	var compacted int64
	var batch []entities.Application

	res := repo.db.WithContext(ctx).FindInBatches(&batch, 100, func(tx *gorm.DB, _ int) error {
		for _, app := range batch {
			history, dropped := compactHistory(app.StatusHistory, keep, olderThan)
			if !dropped {
				continue
			}
			app.StatusHistory = history
			if err := repo.db.WithContext(ctx).Save(&app).Error; err != nil {
				return storeErr("compact status history", err)
			}
			compacted++
		}
		return nil
	})
	if res.Error != nil {
		return compacted, storeErr("compact status histories", res.Error)
	}
	return compacted, nil
}

func compactHistory(history []entities.StatusChange, keep int, olderThan time.Time) ([]entities.StatusChange, bool) {
	if len(history) <= keep {
		return history, false
	}

	cut := len(history) - keep
	result := make([]entities.StatusChange, 0, len(history))
	for i, change := range history {
		if i < cut && change.Timestamp.Before(olderThan) {
			continue
		}
		result = append(result, change)
	}
	return result, len(result) != len(history)
}
