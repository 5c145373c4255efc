package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/job-autopilot/internal/events"
	"github.com/maxaizer/job-autopilot/internal/logger"
	"github.com/maxaizer/job-autopilot/internal/metrics"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type Options struct {
	Email            string
	Password         string
	CookieJarPath    string
	FreshStart       bool
	Interactive      bool
	MaxLoginAttempts int
	BackoffBase      time.Duration
	BackoffMax       time.Duration
	ActionsPerMinute float64
}

// Manager owns the single authenticated browser context. Callers get exclusive access
// to it through a Lease.
type Manager struct {
	browser  Browser
	opts     Options
	jar      *CookieJar
	bus      EventBus.Bus
	resolver *ChallengeResolver
	limiter  *rate.Limiter
	backoff  backoff
	sleep    func(ctx context.Context, d time.Duration) error

	gate chan struct{}

	mu        sync.Mutex
	state     State
	opened    bool
	freshDone bool
}

func NewManager(browser Browser, opts Options, bus EventBus.Bus, resolver *ChallengeResolver) *Manager {
	if opts.MaxLoginAttempts < 1 {
		opts.MaxLoginAttempts = 3
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = 2 * time.Second
	}
	if opts.BackoffMax < opts.BackoffBase {
		opts.BackoffMax = opts.BackoffBase
	}

	limit := rate.Inf
	if opts.ActionsPerMinute > 0 {
		limit = rate.Limit(opts.ActionsPerMinute / 60)
	}

	return &Manager{
		browser:  browser,
		opts:     opts,
		jar:      NewCookieJar(opts.CookieJarPath),
		bus:      bus,
		resolver: resolver,
		limiter:  rate.NewLimiter(limit, 1),
		backoff:  backoff{base: opts.BackoffBase, max: opts.BackoffMax},
		sleep:    sleepContext,
		gate:     make(chan struct{}, 1),
		state:    StateUnauthenticated,
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) setState(state State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateClosed {
		return
	}
	if m.state != state {
		log.WithFields(log.Fields{"from": m.state, "to": state}).Debug("session state changed")
	}
	m.state = state
}

// Acquire waits for exclusive use of the browser context and makes sure it is authenticated.
// The lease must be released by the caller.
func (m *Manager) Acquire(ctx context.Context) (*Lease, error) {
	if err := m.lock(ctx); err != nil {
		return nil, err
	}

	if err := m.ensureAuthenticated(ctx); err != nil {
		m.unlock()
		return nil, err
	}
	return &Lease{manager: m}, nil
}

// WithLease runs fn while holding an authenticated lease.
func (m *Manager) WithLease(ctx context.Context, fn func(page Page) error) error {
	lease, err := m.Acquire(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()
	return fn(lease)
}

// EnsureAuthenticated authenticates the context without handing it out.
func (m *Manager) EnsureAuthenticated(ctx context.Context) error {
	if err := m.lock(ctx); err != nil {
		return err
	}
	defer m.unlock()
	return m.ensureAuthenticated(ctx)
}

func (m *Manager) lock(ctx context.Context) error {
	if m.State() == StateClosed {
		return ErrClosed
	}
	select {
	case m.gate <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	if m.State() == StateClosed {
		m.unlock()
		return ErrClosed
	}
	return nil
}

func (m *Manager) unlock() {
	<-m.gate
}

// ensureAuthenticated must be called with the gate held.
func (m *Manager) ensureAuthenticated(ctx context.Context) error {
	if m.isLive(ctx) {
		return nil
	}

	var lastErr error
	for attempt := 0; attempt < m.opts.MaxLoginAttempts; attempt++ {
		if attempt > 0 {
			delay := m.backoff.delay(attempt - 1)
			log.WithFields(log.Fields{"attempt": attempt + 1, "delay": delay}).Info("Retrying platform login")
			if err := m.sleep(ctx, delay); err != nil {
				m.setState(StateUnauthenticated)
				return err
			}
		}

		err := m.authenticate(ctx)
		if err == nil {
			metrics.AuthAttemptsCounter.WithLabelValues("success").Inc()
			m.setState(StateAuthenticated)
			m.persistCookies(ctx)
			return nil
		}

		var challengeErr *ChallengeRequiredError
		if errors.As(err, &challengeErr) {
			metrics.AuthAttemptsCounter.WithLabelValues("challenge_required").Inc()
			m.setState(StateFailed)
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeSession).
				Errorf("Login stopped at a %s challenge in unattended mode", challengeErr.Challenge.Kind)
			return err
		}
		if ctx.Err() != nil {
			m.setState(StateUnauthenticated)
			return ctx.Err()
		}

		metrics.AuthAttemptsCounter.WithLabelValues("failure").Inc()
		log.WithError(err).WithField("attempt", attempt+1).Warn("Platform login attempt failed")
		lastErr = err
		if errors.Is(err, ErrContextLost) {
			m.discard()
		}
	}

	m.setState(StateFailed)
	log.WithField(logger.ErrorTypeField, logger.ErrorTypeSession).
		WithError(lastErr).Error("Platform login attempts exhausted")
	return &SessionError{Op: "authenticate", Attempts: m.opts.MaxLoginAttempts, Err: lastErr}
}

func (m *Manager) isLive(ctx context.Context) bool {
	m.mu.Lock()
	ready := m.opened && m.state == StateAuthenticated
	m.mu.Unlock()
	if !ready || !m.browser.Alive(ctx) {
		return false
	}

	ok, err := m.browser.IsAuthenticated(ctx)
	if err != nil {
		log.WithError(err).Debug("session liveness probe failed")
		return false
	}
	return ok
}

func (m *Manager) authenticate(ctx context.Context) error {
	m.setState(StateAuthenticating)

	if err := m.open(ctx); err != nil {
		return err
	}

	ok, err := m.browser.IsAuthenticated(ctx)
	if err != nil {
		return fmt.Errorf("probe session: %w", err)
	}
	if ok {
		return nil
	}

	if err := m.browser.SubmitCredentials(ctx, m.opts.Email, m.opts.Password); err != nil {
		return fmt.Errorf("submit credentials: %w", err)
	}

	challenge, err := m.browser.DetectChallenge(ctx)
	if err != nil {
		return fmt.Errorf("detect challenge: %w", err)
	}
	if challenge != nil {
		if err := m.passChallenge(ctx, *challenge); err != nil {
			return err
		}
	}

	ok, err = m.browser.IsAuthenticated(ctx)
	if err != nil {
		return fmt.Errorf("probe session: %w", err)
	}
	if !ok {
		return ErrNotAuthenticated
	}
	return nil
}

// passChallenge fails fast when unattended and otherwise suspends until the operator answers.
func (m *Manager) passChallenge(ctx context.Context, challenge Challenge) error {
	if !m.opts.Interactive || m.resolver == nil {
		return &ChallengeRequiredError{Challenge: challenge}
	}

	m.setState(StateChallengePending)
	log.WithField("kind", challenge.Kind).Warn("Login is waiting for the operator to answer a challenge")
	if m.bus != nil {
		m.bus.Publish(events.ChallengePendingTopic, events.ChallengePending{
			Kind:       string(challenge.Kind),
			Prompt:     challenge.Prompt,
			DetectedAt: time.Now(),
		})
	}

	response, err := m.resolver.Wait(ctx)
	if err != nil {
		return err
	}
	m.setState(StateAuthenticating)

	if err := m.browser.SubmitChallengeResponse(ctx, response); err != nil {
		return fmt.Errorf("submit challenge response: %w", err)
	}
	return nil
}

func (m *Manager) open(ctx context.Context) error {
	m.mu.Lock()
	opened := m.opened
	fresh := m.opts.FreshStart && !m.freshDone
	m.mu.Unlock()
	if opened {
		return nil
	}

	if fresh {
		if err := m.jar.Remove(); err != nil {
			log.WithError(err).Warn("Failed to reset cookie jar")
		}
		m.mu.Lock()
		m.freshDone = true
		m.mu.Unlock()
	}

	if err := m.browser.Open(ctx); err != nil {
		return fmt.Errorf("open browser: %w", err)
	}
	m.mu.Lock()
	m.opened = true
	m.mu.Unlock()

	cookies, err := m.jar.Load()
	if err != nil {
		log.WithError(err).Warn("Ignoring unreadable cookie jar")
		return nil
	}
	if len(cookies) == 0 {
		return nil
	}
	if err := m.browser.SetCookies(ctx, cookies); err != nil {
		return fmt.Errorf("restore cookies: %w", err)
	}
	log.WithField("count", len(cookies)).Debug("Restored session cookies")
	return nil
}

func (m *Manager) persistCookies(ctx context.Context) {
	cookies, err := m.browser.Cookies(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to read session cookies")
		return
	}
	if err := m.jar.Save(cookies); err != nil {
		log.WithError(err).Warn("Failed to persist session cookies")
	}
}

// discard drops the current browser so the next authentication starts from a new one.
func (m *Manager) discard() {
	m.mu.Lock()
	opened := m.opened
	m.opened = false
	m.mu.Unlock()

	if opened {
		if err := m.browser.Close(); err != nil {
			log.WithError(err).Debug("closing lost browser context")
		}
	}
	m.setState(StateUnauthenticated)
}

// recoverContext must be called with the gate held.
func (m *Manager) recoverContext(ctx context.Context) error {
	log.Warn("Browser context lost, reopening and re-authenticating")
	m.discard()
	return m.ensureAuthenticated(ctx)
}

// Close releases the browser. Acquire fails with ErrClosed afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return nil
	}
	m.state = StateClosed
	opened := m.opened
	m.opened = false
	m.mu.Unlock()

	if !opened {
		return nil
	}
	return m.browser.Close()
}
