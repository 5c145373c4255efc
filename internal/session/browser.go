package session

import (
	"context"
	"time"
)

// Page is the set of operations tasks run against the authenticated context.
type Page interface {
	Navigate(ctx context.Context, url string) error
	HTML(ctx context.Context) (string, error)
	Click(ctx context.Context, selector string) error
	Type(ctx context.Context, selector string, text string) error
	Exists(ctx context.Context, selector string) (bool, error)
	Scroll(ctx context.Context) error
	Upload(ctx context.Context, selector string, path string) error
	CurrentURL(ctx context.Context) (string, error)
}

// Browser is the automation collaborator owned by the Manager. Implementations return
// ErrContextLost when the underlying browser process or tab is gone.
type Browser interface {
	Page

	Open(ctx context.Context) error
	Close() error
	Alive(ctx context.Context) bool

	IsAuthenticated(ctx context.Context) (bool, error)
	SubmitCredentials(ctx context.Context, email string, password string) error
	DetectChallenge(ctx context.Context) (*Challenge, error)
	SubmitChallengeResponse(ctx context.Context, response string) error

	Cookies(ctx context.Context) ([]Cookie, error)
	SetCookies(ctx context.Context, cookies []Cookie) error
}

type Cookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Domain   string    `json:"domain"`
	Path     string    `json:"path"`
	Expires  time.Time `json:"expires"`
	HTTPOnly bool      `json:"http_only"`
	Secure   bool      `json:"secure"`
	SameSite string    `json:"same_site,omitempty"`
}

// Expired reports whether a cookie with an expiry has passed it. Session cookies never expire here.
func (c Cookie) Expired(now time.Time) bool {
	return !c.Expires.IsZero() && c.Expires.Before(now)
}

type ChallengeKind string

const (
	ChallengeCode    ChallengeKind = "code"
	ChallengeCaptcha ChallengeKind = "captcha"
	ChallengePin     ChallengeKind = "pin"
	ChallengePhone   ChallengeKind = "phone"
)

type Challenge struct {
	Kind   ChallengeKind
	Prompt string
}
