package entities

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

type Job struct {
	JobID           string `gorm:"primaryKey"`
	Title           string
	Company         string `gorm:"index"`
	Location        string
	Description     string
	PostedDate      string
	Url             string
	SalaryRange     string
	ExperienceLevel string
	ScrapedAt       time.Time `gorm:"index"`
	IsApplied       bool
	MatchScore      int
	KeywordsMatched []string `gorm:"serializer:json"`
}

// DeriveJobID builds a stable natural key for listings the platform did not assign an id to.
func DeriveJobID(url, title, company string) string {
	normalized := strings.ToLower(strings.TrimSpace(url)) + "|" +
		strings.ToLower(strings.TrimSpace(title)) + "|" +
		strings.ToLower(strings.TrimSpace(company))
	hash := sha256.Sum256([]byte(normalized))
	return "h_" + hex.EncodeToString(hash[:8])
}
