package events

import "time"

var ApplicationSubmittedTopic = "ApplicationSubmittedEvent"

type ApplicationSubmitted struct {
	ApplicationID string
	JobID         string
	Title         string
	Company       string
	Url           string
	SubmittedAt   time.Time
}
