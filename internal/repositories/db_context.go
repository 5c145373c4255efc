package repositories

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/maxaizer/job-autopilot/internal/entities"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DbContext struct {
	DB *gorm.DB
}

func NewDbContext(connectionString string) (*DbContext, error) {
	db, err := gorm.Open(sqlite.Open(connectionString), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// sqlite has a single writer; one shared connection keeps transactions from hitting SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)

	if err = db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;").Error; err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to configure sqlite: %w", err)
	}

	return &DbContext{DB: db}, nil
}

func (c *DbContext) Migrate() error {
	models := []struct {
		name  string
		model any
	}{
		{"Job", entities.Job{}},
		{"Application", entities.Application{}},
		{"Company", entities.Company{}},
		{"Recruiter", entities.Recruiter{}},
		{"SearchFilter", entities.SearchFilter{}},
		{"ScrapingLog", entities.ScrapingLog{}},
		{"Setting", entities.Setting{}},
	}

	for _, m := range models {
		if err := c.DB.AutoMigrate(m.model); err != nil {
			return fmt.Errorf("failed to migrate %s entity: %w", m.name, err)
		}
	}

	if err := c.DB.Exec("CREATE INDEX IF NOT EXISTS idx_jobs_apply_candidates ON jobs (is_applied, match_score);").
		Error; err != nil {
		return fmt.Errorf("failed to create jobs index: %w", err)
	}

	return nil
}

func (c *DbContext) Close() error {
	db, err := c.DB.DB()
	if err != nil {
		return err
	}

	return db.Close()
}
