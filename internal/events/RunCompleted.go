package events

import "github.com/maxaizer/job-autopilot/internal/entities"

var RunCompletedTopic = "RunCompletedEvent"

type RunCompleted struct {
	Log entities.ScrapingLog
}
