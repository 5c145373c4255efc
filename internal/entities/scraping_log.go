package entities

import "time"

type TaskKind string

const (
	TaskDiscovery   TaskKind = "job-discovery"
	TaskStatusCheck TaskKind = "status-check"
	TaskResearch    TaskKind = "company-research"
	TaskAutoApply   TaskKind = "auto-apply"
	TaskMaintenance TaskKind = "maintenance"
)

func ParseTaskKind(s string) (TaskKind, bool) {
	kind := TaskKind(s)
	switch kind {
	case TaskDiscovery, TaskStatusCheck, TaskResearch, TaskAutoApply, TaskMaintenance:
		return kind, true
	}
	return "", false
}

type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunPartial RunStatus = "partial"
	RunError   RunStatus = "error"
)

type RunTrigger string

const (
	TriggerScheduled RunTrigger = "scheduled"
	TriggerManual    RunTrigger = "manual"
)

// ScrapingLog is the audit record of one task execution. Rows are inserted once and never updated.
type ScrapingLog struct {
	ID             int
	RunID          string   `gorm:"uniqueIndex"`
	Type           TaskKind `gorm:"index"`
	Trigger        RunTrigger
	Status         RunStatus
	ItemsProcessed int
	ErrorsCount    int
	DurationMs     int64
	StartedAt      time.Time
	CompletedAt    time.Time `gorm:"index"`
	ErrorMessage   string
	ErrorClass     string
}
