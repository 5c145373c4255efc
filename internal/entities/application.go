package entities

import (
	"fmt"
	"strconv"
	"time"
)

type ApplicationStatus string

const (
	StatusApplied      ApplicationStatus = "applied"
	StatusViewed       ApplicationStatus = "viewed"
	StatusInReview     ApplicationStatus = "in_review"
	StatusInterviewing ApplicationStatus = "interviewing"
	StatusOffered      ApplicationStatus = "offered"
	StatusRejected     ApplicationStatus = "rejected"
	StatusWithdrawn    ApplicationStatus = "withdrawn"
)

func ParseApplicationStatus(s string) (ApplicationStatus, error) {
	status := ApplicationStatus(s)
	switch status {
	case StatusApplied, StatusViewed, StatusInReview, StatusInterviewing,
		StatusOffered, StatusRejected, StatusWithdrawn:
		return status, nil
	}
	return "", fmt.Errorf("unknown application status %q", s)
}

// IsTerminal reports whether the platform will not move the application any further.
func (s ApplicationStatus) IsTerminal() bool {
	return s == StatusOffered || s == StatusRejected || s == StatusWithdrawn
}

// TerminalStatuses lists the statuses status checks no longer poll.
func TerminalStatuses() []ApplicationStatus {
	return []ApplicationStatus{StatusOffered, StatusRejected, StatusWithdrawn}
}

type ApplicationSource string

const (
	SourceAuto     ApplicationSource = "auto"
	SourceManual   ApplicationSource = "manual"
	SourceDetected ApplicationSource = "detected"
)

type StatusChange struct {
	Status         ApplicationStatus `json:"status"`
	Timestamp      time.Time         `json:"timestamp"`
	PreviousStatus ApplicationStatus `json:"previous_status"`
}

type Application struct {
	ApplicationID    string `gorm:"primaryKey"`
	JobID            string `gorm:"uniqueIndex"`
	Status           ApplicationStatus
	Source           ApplicationSource
	AppliedAt        time.Time `gorm:"index"`
	LastChecked      *time.Time
	StatusHistory    []StatusChange `gorm:"serializer:json"`
	RecruiterContact string
	Notes            string
}

// NewApplication creates an application with a synthetic id (auto_<ns>, manual_<ns>, ...).
func NewApplication(jobID string, source ApplicationSource, at time.Time) Application {
	return Application{
		ApplicationID: string(source) + "_" + strconv.FormatInt(at.UnixNano(), 10),
		JobID:         jobID,
		Status:        StatusApplied,
		Source:        source,
		AppliedAt:     at,
	}
}

// WithStatus moves the application to status and appends the change to its history.
// It reports false and leaves the history untouched when the status is unchanged.
func (a *Application) WithStatus(status ApplicationStatus, at time.Time) bool {
	if status == a.Status {
		return false
	}
	a.StatusHistory = append(a.StatusHistory, StatusChange{
		Status:         status,
		Timestamp:      at,
		PreviousStatus: a.Status,
	})
	a.Status = status
	return true
}
