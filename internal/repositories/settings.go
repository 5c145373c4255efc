package repositories

import (
	"context"
	"strconv"
	"time"

	"github.com/maxaizer/job-autopilot/internal/entities"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Settings struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *Settings {
	return &Settings{db: db}
}

func (repo *Settings) Set(ctx context.Context, key string, value string) error {
	err := repo.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&entities.Setting{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}).Error
	return storeErr("set setting", err)
}

// Get returns the stored value and whether the key exists.
func (repo *Settings) Get(ctx context.Context, key string) (string, bool, error) {
	var setting entities.Setting
	err := repo.db.WithContext(ctx).First(&setting, "`key` = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, storeErr("get setting", err)
	}
	return setting.Value, true, nil
}

func (repo *Settings) GetInt(ctx context.Context, key string) (int64, error) {
	value, found, err := repo.Get(ctx, key)
	if err != nil || !found {
		return 0, err
	}
	number, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "setting %s is not a number", key)
	}
	return number, nil
}

func (repo *Settings) GetBool(ctx context.Context, key string) (bool, error) {
	value, found, err := repo.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}
	return strconv.ParseBool(value)
}

func (repo *Settings) SetBool(ctx context.Context, key string, value bool) error {
	return repo.Set(ctx, key, strconv.FormatBool(value))
}

// Increment adds delta to a numeric setting atomically and returns the new value.
func (repo *Settings) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	var result int64
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "key"}},
			DoUpdates: clause.Assignments(map[string]any{
				"value":      gorm.Expr("CAST(CAST(settings.value AS INTEGER) + ? AS TEXT)", delta),
				"updated_at": time.Now(),
			}),
		}).Create(&entities.Setting{
			Key:       key,
			Value:     strconv.FormatInt(delta, 10),
			UpdatedAt: time.Now(),
		}).Error
		if err != nil {
			return storeErr("increment setting", err)
		}

		var setting entities.Setting
		if err = tx.First(&setting, "`key` = ?", key).Error; err != nil {
			return storeErr("read setting", err)
		}
		result, err = strconv.ParseInt(setting.Value, 10, 64)
		return err
	})
	return result, err
}
