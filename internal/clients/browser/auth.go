package browser

import (
	"context"
	"strings"

	"github.com/chromedp/chromedp"
	"github.com/maxaizer/job-autopilot/internal/session"
)

func (c *Client) IsAuthenticated(ctx context.Context) (bool, error) {
	location, err := c.CurrentURL(ctx)
	if err != nil {
		return false, err
	}
	if !strings.HasPrefix(location, c.baseURL) || strings.Contains(location, c.selectors.LoginPath) {
		if err := c.Navigate(ctx, c.selectors.HomePath); err != nil {
			return false, err
		}
		if location, err = c.CurrentURL(ctx); err != nil {
			return false, err
		}
	}
	if strings.Contains(location, c.selectors.LoginPath) || strings.Contains(location, c.selectors.ChallengeURLMarker) {
		return false, nil
	}
	return c.Exists(ctx, c.selectors.AuthenticatedMarker)
}

func (c *Client) SubmitCredentials(ctx context.Context, email string, password string) error {
	if err := c.Navigate(ctx, c.selectors.LoginPath); err != nil {
		return err
	}
	return c.run(ctx, c.cfg.ElementTimeout*2,
		chromedp.WaitVisible(c.selectors.EmailInput, chromedp.ByQuery),
		chromedp.SendKeys(c.selectors.EmailInput, email, chromedp.ByQuery),
		chromedp.SendKeys(c.selectors.PasswordInput, password, chromedp.ByQuery),
		chromedp.Click(c.selectors.LoginSubmit, chromedp.ByQuery),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// DetectChallenge inspects the page reached after submitting credentials.
func (c *Client) DetectChallenge(ctx context.Context) (*session.Challenge, error) {
	probes := []struct {
		selector string
		kind     session.ChallengeKind
		prompt   string
	}{
		{c.selectors.CaptchaFrame, session.ChallengeCaptcha, "solve the captcha in the browser window"},
		{c.selectors.CodeInput, session.ChallengeCode, "enter the verification code sent by the platform"},
		{c.selectors.PinInput, session.ChallengePin, "enter the verification pin"},
		{c.selectors.PhoneInput, session.ChallengePhone, "confirm the phone number"},
	}

	for _, probe := range probes {
		found, err := c.Exists(ctx, probe.selector)
		if err != nil {
			return nil, err
		}
		if found {
			return &session.Challenge{Kind: probe.kind, Prompt: probe.prompt}, nil
		}
	}

	location, err := c.CurrentURL(ctx)
	if err != nil {
		return nil, err
	}
	if strings.Contains(location, c.selectors.ChallengeURLMarker) {
		return &session.Challenge{Kind: session.ChallengeCode, Prompt: "complete verification at " + location}, nil
	}
	return nil, nil
}

// SubmitChallengeResponse types the operator's answer into whichever verification input is shown.
// Captcha challenges are solved in the window itself, so the response only resumes the flow.
func (c *Client) SubmitChallengeResponse(ctx context.Context, response string) error {
	for _, input := range []string{c.selectors.CodeInput, c.selectors.PinInput, c.selectors.PhoneInput} {
		found, err := c.Exists(ctx, input)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		return c.run(ctx, c.cfg.ElementTimeout*2,
			chromedp.SendKeys(input, response, chromedp.ByQuery),
			chromedp.Click(c.selectors.CodeSubmit, chromedp.ByQuery),
			chromedp.WaitReady("body", chromedp.ByQuery),
		)
	}
	return nil
}
