package browser

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/maxaizer/job-autopilot/internal/config"
	"github.com/maxaizer/job-autopilot/internal/session"
	log "github.com/sirupsen/logrus"
)

// Selectors locate the login and verification elements of the platform.
type Selectors struct {
	LoginPath           string
	HomePath            string
	EmailInput          string
	PasswordInput       string
	LoginSubmit         string
	AuthenticatedMarker string
	ChallengeURLMarker  string
	CodeInput           string
	CodeSubmit          string
	CaptchaFrame        string
	PhoneInput          string
	PinInput            string
}

func DefaultSelectors() Selectors {
	return Selectors{
		LoginPath:           "/login",
		HomePath:            "/feed/",
		EmailInput:          "#username",
		PasswordInput:       "#password",
		LoginSubmit:         "button[type=submit]",
		AuthenticatedMarker: "nav.global-nav",
		ChallengeURLMarker:  "/checkpoint/",
		CodeInput:           "input[name=pin]",
		CodeSubmit:          "#email-pin-submit-button",
		CaptchaFrame:        "#captcha-internal",
		PhoneInput:          "input[name=phoneNumber]",
		PinInput:            "input[name=verificationCode]",
	}
}

// Client drives one Chrome instance through chromedp and implements session.Browser.
type Client struct {
	cfg       config.BrowserConfig
	baseURL   string
	selectors Selectors

	mu              sync.Mutex
	ctx             context.Context
	cancelBrowser   context.CancelFunc
	cancelAllocator context.CancelFunc
}

var _ session.Browser = (*Client)(nil)

func NewClient(cfg config.BrowserConfig, baseURL string, selectors Selectors) *Client {
	return &Client{
		cfg:       cfg,
		baseURL:   strings.TrimRight(baseURL, "/"),
		selectors: selectors,
	}
}

func (c *Client) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ctx != nil && c.ctx.Err() == nil {
		return nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.cfg.Headless),
		chromedp.Flag("disable-gpu", c.cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(c.cfg.WindowWidth, c.cfg.WindowHeight),
	)
	if c.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(c.cfg.UserAgent))
	}
	if c.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.cfg.ExecPath))
	}
	if c.cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(c.cfg.UserDataDir))
	}

	allocatorCtx, cancelAllocator := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocatorCtx)

	// the first Run allocates the browser and must not carry a deadline
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAllocator()
		return fmt.Errorf("failed to start browser: %w", err)
	}

	startCtx, cancel := c.bind(ctx, browserCtx, 30*time.Second)
	defer cancel()
	if err := chromedp.Run(startCtx, chromedp.Navigate("about:blank")); err != nil {
		cancelBrowser()
		cancelAllocator()
		return fmt.Errorf("browser failed startup test: %w", err)
	}

	c.ctx = browserCtx
	c.cancelBrowser = cancelBrowser
	c.cancelAllocator = cancelAllocator
	log.WithField("headless", c.cfg.Headless).Info("Browser started")
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancelBrowser != nil {
		c.cancelBrowser()
	}
	if c.cancelAllocator != nil {
		c.cancelAllocator()
	}
	c.ctx, c.cancelBrowser, c.cancelAllocator = nil, nil, nil
	return nil
}

func (c *Client) Alive(ctx context.Context) bool {
	var result int
	return c.run(ctx, 5*time.Second, chromedp.Evaluate(`1`, &result)) == nil
}

// bind derives a chromedp context from browserCtx that also ends when the caller's ctx does.
func (c *Client) bind(ctx context.Context, browserCtx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithTimeout(browserCtx, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (c *Client) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	c.mu.Lock()
	browserCtx := c.ctx
	c.mu.Unlock()
	if browserCtx == nil || browserCtx.Err() != nil {
		return session.ErrContextLost
	}

	runCtx, cancel := c.bind(ctx, browserCtx, timeout)
	defer cancel()

	err := chromedp.Run(runCtx, actions...)
	return classify(ctx, browserCtx, err)
}

// classify maps chromedp failures caused by a dead browser to session.ErrContextLost.
func classify(callerCtx context.Context, browserCtx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if callerCtx.Err() != nil {
		return callerCtx.Err()
	}
	if browserCtx.Err() != nil || errors.Is(err, chromedp.ErrInvalidContext) ||
		errors.Is(err, chromedp.ErrInvalidTarget) || errors.Is(err, chromedp.ErrChannelClosed) {
		return fmt.Errorf("%w: %v", session.ErrContextLost, err)
	}
	return err
}

func (c *Client) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + path
}

func (c *Client) Navigate(ctx context.Context, url string) error {
	return c.run(ctx, c.cfg.ElementTimeout*2,
		chromedp.Navigate(c.url(url)),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (c *Client) HTML(ctx context.Context) (string, error) {
	var html string
	err := c.run(ctx, c.cfg.ElementTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (c *Client) Click(ctx context.Context, selector string) error {
	return c.run(ctx, c.cfg.ElementTimeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
}

func (c *Client) Type(ctx context.Context, selector string, text string) error {
	return c.run(ctx, c.cfg.ElementTimeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.SetValue(selector, "", chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
}

func (c *Client) Exists(ctx context.Context, selector string) (bool, error) {
	var exists bool
	script := "document.querySelector(" + strconv.Quote(selector) + ") !== null"
	err := c.run(ctx, c.cfg.ElementTimeout, chromedp.Evaluate(script, &exists))
	return exists, err
}

func (c *Client) Scroll(ctx context.Context) error {
	var ignored any
	return c.run(ctx, c.cfg.ElementTimeout,
		chromedp.Evaluate(`window.scrollBy(0, window.innerHeight)`, &ignored))
}

func (c *Client) Upload(ctx context.Context, selector string, path string) error {
	return c.run(ctx, c.cfg.ElementTimeout,
		chromedp.WaitReady(selector, chromedp.ByQuery),
		chromedp.SetUploadFiles(selector, []string{path}, chromedp.ByQuery),
	)
}

func (c *Client) CurrentURL(ctx context.Context) (string, error) {
	var location string
	err := c.run(ctx, c.cfg.ElementTimeout, chromedp.Location(&location))
	return location, err
}
