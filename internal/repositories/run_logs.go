package repositories

import (
	"context"
	"time"

	"github.com/maxaizer/job-autopilot/internal/entities"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type RunLogs struct {
	db *gorm.DB
}

func NewRunLogsRepository(db *gorm.DB) *RunLogs {
	return &RunLogs{db: db}
}

func (repo *RunLogs) Add(ctx context.Context, log entities.ScrapingLog) error {
	return storeErr("add run log", repo.db.WithContext(ctx).Create(&log).Error)
}

// List returns the newest run logs, optionally restricted to one task kind.
func (repo *RunLogs) List(ctx context.Context, kind entities.TaskKind, limit int) ([]entities.ScrapingLog, error) {
	tx := repo.db.WithContext(ctx).Order("completed_at DESC").Order("id DESC").Limit(limit)
	if kind != "" {
		tx = tx.Where("type = ?", kind)
	}

	var logs []entities.ScrapingLog
	if err := tx.Find(&logs).Error; err != nil {
		return nil, storeErr("list run logs", err)
	}
	return logs, nil
}

func (repo *RunLogs) LatestByKind(ctx context.Context, kind entities.TaskKind) (*entities.ScrapingLog, error) {
	var log entities.ScrapingLog
	err := repo.db.WithContext(ctx).Where("type = ?", kind).Order("completed_at DESC").Order("id DESC").First(&log).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storeErr("latest run log", err)
	}
	return &log, nil
}

func (repo *RunLogs) PruneOlderThan(ctx context.Context, olderThan time.Time) (int64, error) {
	res := repo.db.WithContext(ctx).Delete(&entities.ScrapingLog{}, "completed_at < ?", olderThan)
	return res.RowsAffected, storeErr("prune run logs", res.Error)
}
