package session

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/job-autopilot/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBrowser struct {
	mu sync.Mutex

	acceptCredentials bool
	challenge         *Challenge
	expectedResponse  string
	lostNavigations   int

	opens       int
	closes      int
	submissions int
	responses   []string
	loggedIn    bool
	cookies     []Cookie
	navigated   []string
}

func (f *fakeBrowser) Open(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	f.loggedIn = false
	f.cookies = nil
	return nil
}

func (f *fakeBrowser) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *fakeBrowser) Alive(_ context.Context) bool { return true }

func (f *fakeBrowser) IsAuthenticated(_ context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loggedIn {
		return true, nil
	}
	for _, cookie := range f.cookies {
		if cookie.Name == "session" && cookie.Value == "valid" {
			f.loggedIn = true
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBrowser) SubmitCredentials(_ context.Context, _ string, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submissions++
	if f.acceptCredentials && f.challenge == nil {
		f.login()
	}
	return nil
}

func (f *fakeBrowser) login() {
	f.loggedIn = true
	f.cookies = []Cookie{{Name: "session", Value: "valid", Domain: "example.com", Path: "/"}}
}

func (f *fakeBrowser) DetectChallenge(_ context.Context) (*Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loggedIn {
		return nil, nil
	}
	return f.challenge, nil
}

func (f *fakeBrowser) SubmitChallengeResponse(_ context.Context, response string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, response)
	if response == f.expectedResponse {
		f.login()
	}
	return nil
}

func (f *fakeBrowser) Cookies(_ context.Context) ([]Cookie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Cookie(nil), f.cookies...), nil
}

func (f *fakeBrowser) SetCookies(_ context.Context, cookies []Cookie) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cookies = append(f.cookies, cookies...)
	return nil
}

func (f *fakeBrowser) Navigate(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lostNavigations > 0 {
		f.lostNavigations--
		return ErrContextLost
	}
	f.navigated = append(f.navigated, url)
	return nil
}

func (f *fakeBrowser) HTML(_ context.Context) (string, error) { return "<html></html>", nil }
func (f *fakeBrowser) Click(_ context.Context, _ string) error { return nil }
func (f *fakeBrowser) Type(_ context.Context, _ string, _ string) error { return nil }
func (f *fakeBrowser) Exists(_ context.Context, _ string) (bool, error) { return true, nil }
func (f *fakeBrowser) Scroll(_ context.Context) error { return nil }
func (f *fakeBrowser) Upload(_ context.Context, _ string, _ string) error { return nil }
func (f *fakeBrowser) CurrentURL(_ context.Context) (string, error) { return "https://example.com", nil }

func (f *fakeBrowser) counts() (opens, submissions int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens, f.submissions
}

func newTestManager(t *testing.T, browser Browser, interactive bool, bus EventBus.Bus) (*Manager, *ChallengeResolver) {
	t.Helper()
	resolver := NewChallengeResolver()
	manager := NewManager(browser, Options{
		Email:            "me@example.com",
		Password:         "secret",
		CookieJarPath:    filepath.Join(t.TempDir(), "cookies.json"),
		Interactive:      interactive,
		MaxLoginAttempts: 3,
		BackoffBase:      time.Millisecond,
		BackoffMax:       time.Millisecond,
	}, bus, resolver)
	manager.sleep = func(_ context.Context, _ time.Duration) error { return nil }
	return manager, resolver
}

func Test_Manager_Acquire_ShouldLoginAndPersistCookies(t *testing.T) {
	browser := &fakeBrowser{acceptCredentials: true}
	manager, _ := newTestManager(t, browser, false, EventBus.New())

	lease, err := manager.Acquire(context.Background())
	require.NoError(t, err)
	lease.Release()

	assert.Equal(t, StateAuthenticated, manager.State())
	cookies, err := manager.jar.Load()
	require.NoError(t, err)
	require.Len(t, cookies, 1)
	assert.Equal(t, "session", cookies[0].Name)

	lease, err = manager.Acquire(context.Background())
	require.NoError(t, err)
	lease.Release()

	opens, submissions := browser.counts()
	assert.Equal(t, 1, opens)
	assert.Equal(t, 1, submissions)
}

func Test_Manager_Acquire_WithSavedCookies_ShouldSkipCredentials(t *testing.T) {
	browser := &fakeBrowser{}
	manager, _ := newTestManager(t, browser, false, EventBus.New())
	require.NoError(t, manager.jar.Save([]Cookie{{Name: "session", Value: "valid"}}))

	require.NoError(t, manager.EnsureAuthenticated(context.Background()))

	_, submissions := browser.counts()
	assert.Equal(t, 0, submissions)
	assert.Equal(t, StateAuthenticated, manager.State())
}

func Test_Manager_FreshStart_ShouldIgnoreSavedCookies(t *testing.T) {
	browser := &fakeBrowser{acceptCredentials: true}
	manager, _ := newTestManager(t, browser, false, EventBus.New())
	manager.opts.FreshStart = true
	require.NoError(t, manager.jar.Save([]Cookie{{Name: "session", Value: "valid"}, {Name: "stale", Value: "x"}}))

	require.NoError(t, manager.EnsureAuthenticated(context.Background()))

	_, submissions := browser.counts()
	assert.Equal(t, 1, submissions)
	cookies, err := manager.jar.Load()
	require.NoError(t, err)
	assert.Len(t, cookies, 1)
}

func Test_Manager_UnattendedChallenge_ShouldFailFastWithoutRetry(t *testing.T) {
	browser := &fakeBrowser{acceptCredentials: true, challenge: &Challenge{Kind: ChallengeCode, Prompt: "enter code"}}
	manager, resolver := newTestManager(t, browser, false, EventBus.New())

	done := make(chan error, 1)
	go func() {
		_, err := manager.Acquire(context.Background())
		done <- err
	}()

	select {
	case err := <-done:
		var challengeErr *ChallengeRequiredError
		require.ErrorAs(t, err, &challengeErr)
		assert.Equal(t, ChallengeCode, challengeErr.Challenge.Kind)
		assert.True(t, IsSessionFailure(err))
	case <-time.After(2 * time.Second):
		t.Fatal("unattended challenge blocked")
	}

	_, submissions := browser.counts()
	assert.Equal(t, 1, submissions)
	assert.Equal(t, StateFailed, manager.State())
	assert.False(t, resolver.Pending())
}

func Test_Manager_InteractiveChallenge_ShouldWaitForResolvedResponse(t *testing.T) {
	browser := &fakeBrowser{acceptCredentials: true, expectedResponse: "123456",
		challenge: &Challenge{Kind: ChallengeCode, Prompt: "enter code"}}
	bus := EventBus.New()
	manager, resolver := newTestManager(t, browser, true, bus)

	published := make(chan events.ChallengePending, 1)
	require.NoError(t, bus.Subscribe(events.ChallengePendingTopic, func(event events.ChallengePending) {
		published <- event
	}))

	done := make(chan error, 1)
	go func() {
		done <- manager.EnsureAuthenticated(context.Background())
	}()

	select {
	case event := <-published:
		assert.Equal(t, "code", event.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("challenge was not published")
	}
	assert.Equal(t, StateChallengePending, manager.State())
	require.Eventually(t, resolver.Pending, time.Second, time.Millisecond)
	require.NoError(t, resolver.Resolve("123456"))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("login did not resume after the response")
	}
	assert.Equal(t, StateAuthenticated, manager.State())
}

func Test_Manager_InteractiveChallenge_ShouldStopOnContextCancel(t *testing.T) {
	browser := &fakeBrowser{acceptCredentials: true, challenge: &Challenge{Kind: ChallengeCaptcha}}
	manager, _ := newTestManager(t, browser, true, EventBus.New())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := manager.EnsureAuthenticated(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func Test_Manager_RejectedCredentials_ShouldReturnSessionErrorAfterAttempts(t *testing.T) {
	browser := &fakeBrowser{acceptCredentials: false}
	manager, _ := newTestManager(t, browser, false, EventBus.New())

	_, err := manager.Acquire(context.Background())

	var sessionErr *SessionError
	require.ErrorAs(t, err, &sessionErr)
	assert.Equal(t, 3, sessionErr.Attempts)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, submissions := browser.counts()
	assert.Equal(t, 3, submissions)
	assert.Equal(t, StateFailed, manager.State())
}

func Test_Manager_Lease_ShouldBeExclusive(t *testing.T) {
	manager, _ := newTestManager(t, &fakeBrowser{acceptCredentials: true}, false, EventBus.New())

	lease, err := manager.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = manager.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	lease.Release()
	lease.Release()
	assert.ErrorIs(t, lease.Navigate(context.Background(), "https://example.com"), ErrLeaseReleased)

	second, err := manager.Acquire(context.Background())
	require.NoError(t, err)
	second.Release()
}

func Test_Manager_ContextLost_ShouldRecoverAndRetryOperation(t *testing.T) {
	browser := &fakeBrowser{acceptCredentials: true, lostNavigations: 1}
	manager, _ := newTestManager(t, browser, false, EventBus.New())

	err := manager.WithLease(context.Background(), func(page Page) error {
		return page.Navigate(context.Background(), "https://example.com/jobs")
	})

	require.NoError(t, err)
	opens, _ := browser.counts()
	assert.Equal(t, 2, opens)
	assert.Equal(t, []string{"https://example.com/jobs"}, browser.navigated)
	assert.Equal(t, StateAuthenticated, manager.State())
}

func Test_Manager_Close_ShouldRejectNewLeases(t *testing.T) {
	browser := &fakeBrowser{acceptCredentials: true}
	manager, _ := newTestManager(t, browser, false, EventBus.New())
	require.NoError(t, manager.EnsureAuthenticated(context.Background()))

	require.NoError(t, manager.Close())
	require.NoError(t, manager.Close())

	_, err := manager.Acquire(context.Background())
	assert.True(t, errors.Is(err, ErrClosed))
	assert.Equal(t, StateClosed, manager.State())
	assert.Equal(t, 1, browser.closes)
}

func Test_Backoff_ShouldGrowWithinJitterAndCap(t *testing.T) {
	b := backoff{base: time.Second, max: 10 * time.Second}

	for i := 0; i < 20; i++ {
		first := b.delay(0)
		assert.GreaterOrEqual(t, first, 750*time.Millisecond)
		assert.LessOrEqual(t, first, 1250*time.Millisecond)

		third := b.delay(2)
		assert.GreaterOrEqual(t, third, 3*time.Second)
		assert.LessOrEqual(t, third, 5*time.Second)

		capped := b.delay(10)
		assert.LessOrEqual(t, capped, 12500*time.Millisecond)
	}
}

func Test_ChallengeResolver_ResolveWithoutWaiter_ShouldFail(t *testing.T) {
	resolver := NewChallengeResolver()

	assert.ErrorIs(t, resolver.Resolve("123"), ErrNoPendingChallenge)
	assert.False(t, resolver.Pending())
}

func Test_CookieJar_Load_ShouldDropExpiredCookies(t *testing.T) {
	jar := NewCookieJar(filepath.Join(t.TempDir(), "nested", "cookies.json"))

	empty, err := jar.Load()
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, jar.Save([]Cookie{
		{Name: "old", Expires: time.Now().Add(-time.Hour)},
		{Name: "live", Expires: time.Now().Add(time.Hour)},
		{Name: "session"},
	}))

	cookies, err := jar.Load()
	require.NoError(t, err)
	require.Len(t, cookies, 2)
	assert.Equal(t, "live", cookies[0].Name)
	assert.Equal(t, "session", cookies[1].Name)

	require.NoError(t, jar.Remove())
	require.NoError(t, jar.Remove())
}
