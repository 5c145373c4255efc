package entities

import "time"

type SearchFilter struct {
	ID               int
	Name             string   `gorm:"uniqueIndex"`
	Keywords         []string `gorm:"serializer:json"`
	Locations        []string `gorm:"serializer:json"`
	JobTypes         []string `gorm:"serializer:json"`
	ExperienceLevels []string `gorm:"serializer:json"`
	RedFlags         []string `gorm:"serializer:json"`
	SalaryMin        *int
	SalaryMax        *int
	IsActive         bool
	LastUsed         *time.Time
	CreatedAt        time.Time
}
