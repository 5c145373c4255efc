package entities

import "time"

type Company struct {
	CompanyName    string `gorm:"primaryKey"`
	Industry       string
	Size           string
	Location       string
	Website        string
	Description    string
	EmployeesCount int
	FoundedYear    int
	Specialties    []string `gorm:"serializer:json"`
	ScrapedAt      time.Time
}

type Recruiter struct {
	ProfileUrl string `gorm:"primaryKey"`
	Name       string
	Title      string
	Company    string `gorm:"index"`
	Location   string
	ScrapedAt  time.Time
}
