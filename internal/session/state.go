package session

type State string

const (
	StateUnauthenticated  State = "unauthenticated"
	StateAuthenticating   State = "authenticating"
	StateAuthenticated    State = "authenticated"
	StateChallengePending State = "challenge_pending"
	StateFailed           State = "failed"
	StateClosed           State = "closed"
)
