package repositories

import (
	"context"
	"time"

	"github.com/maxaizer/job-autopilot/internal/entities"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Companies struct {
	db *gorm.DB
}

func NewCompaniesRepository(db *gorm.DB) *Companies {
	return &Companies{db: db}
}

// Upsert replaces every attribute of the company with the same name. Re-scrapes are not merged.
func (repo *Companies) Upsert(ctx context.Context, company entities.Company) error {
	err := repo.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&company).Error
	return storeErr("upsert company", err)
}

func (repo *Companies) GetByName(ctx context.Context, name string) (*entities.Company, error) {
	var company entities.Company
	err := repo.db.WithContext(ctx).First(&company, "company_name = ?", name).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storeErr("get company", err)
	}
	return &company, nil
}

// ScrapedSince reports whether the company was researched at or after t.
func (repo *Companies) ScrapedSince(ctx context.Context, name string, t time.Time) (bool, error) {
	var count int64
	err := repo.db.WithContext(ctx).Model(&entities.Company{}).
		Where("company_name = ? AND scraped_at >= ?", name, t).
		Count(&count).Error
	if err != nil {
		return false, storeErr("check company freshness", err)
	}
	return count > 0, nil
}

// ListStaleNames returns company names referenced by jobs that were never researched
// or were researched before refreshedBefore.
func (repo *Companies) ListStaleNames(ctx context.Context, refreshedBefore time.Time, limit int) ([]string, error) {
	var names []string
	err := repo.db.WithContext(ctx).
		Table("jobs").
		Distinct("jobs.company").
		Joins("LEFT JOIN companies ON companies.company_name = jobs.company").
		Where("jobs.company <> ''").
		Where("(companies.company_name IS NULL OR companies.scraped_at < ?)", refreshedBefore).
		Limit(limit).
		Pluck("jobs.company", &names).Error
	if err != nil {
		return nil, storeErr("list stale companies", err)
	}
	return names, nil
}

func (repo *Companies) List(ctx context.Context, limit int, offset int) ([]entities.Company, error) {
	var companies []entities.Company
	if err := repo.db.WithContext(ctx).Order("company_name").Limit(limit).Offset(offset).Find(&companies).Error; err != nil {
		return nil, storeErr("list companies", err)
	}
	return companies, nil
}

type Recruiters struct {
	db *gorm.DB
}

func NewRecruitersRepository(db *gorm.DB) *Recruiters {
	return &Recruiters{db: db}
}

func (repo *Recruiters) Upsert(ctx context.Context, recruiter entities.Recruiter) error {
	err := repo.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&recruiter).Error
	return storeErr("upsert recruiter", err)
}

func (repo *Recruiters) ListByCompany(ctx context.Context, company string) ([]entities.Recruiter, error) {
	var recruiters []entities.Recruiter
	if err := repo.db.WithContext(ctx).Find(&recruiters, "company = ?", company).Error; err != nil {
		return nil, storeErr("list recruiters", err)
	}
	return recruiters, nil
}
