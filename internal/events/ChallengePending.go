package events

import "time"

var ChallengePendingTopic = "ChallengePendingEvent"

// ChallengePending is published when login stopped at a verification step that
// only the operator can pass. The session stays suspended until a response is resolved.
type ChallengePending struct {
	Kind       string
	Prompt     string
	DetectedAt time.Time
}
