package browser

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/maxaizer/job-autopilot/internal/session"
	log "github.com/sirupsen/logrus"
)

func (c *Client) Cookies(ctx context.Context) ([]session.Cookie, error) {
	var cookies []*network.Cookie
	err := c.run(ctx, c.cfg.ElementTimeout,
		network.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = network.GetCookies().WithURLs([]string{c.baseURL}).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, err
	}
	return fromNetworkCookies(cookies), nil
}

func (c *Client) SetCookies(ctx context.Context, cookies []session.Cookie) error {
	params := toCookieParams(cookies, time.Now())
	return c.run(ctx, c.cfg.ElementTimeout,
		network.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			for _, cookie := range params {
				err := network.SetCookie(cookie.Name, cookie.Value).
					WithDomain(cookie.Domain).
					WithPath(cookie.Path).
					WithSecure(cookie.Secure).
					WithHTTPOnly(cookie.HTTPOnly).
					WithSameSite(cookie.SameSite).
					WithExpires(cookie.Expires).
					Do(ctx)
				if err != nil {
					log.WithError(err).WithField("cookie", cookie.Name).Warn("Failed to inject cookie")
				}
			}
			return nil
		}),
	)
}

func fromNetworkCookies(cookies []*network.Cookie) []session.Cookie {
	result := make([]session.Cookie, 0, len(cookies))
	for _, cookie := range cookies {
		var expires time.Time
		if cookie.Expires > 0 && !cookie.Session {
			sec, frac := math.Modf(cookie.Expires)
			expires = time.Unix(int64(sec), int64(frac*1e9))
		}
		result = append(result, session.Cookie{
			Name:     cookie.Name,
			Value:    cookie.Value,
			Domain:   cookie.Domain,
			Path:     cookie.Path,
			Expires:  expires,
			HTTPOnly: cookie.HTTPOnly,
			Secure:   cookie.Secure,
			SameSite: cookie.SameSite.String(),
		})
	}
	return result
}

// toCookieParams drops expired cookies. Chrome rejects domains with a leading dot.
func toCookieParams(cookies []session.Cookie, now time.Time) []*network.CookieParam {
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, cookie := range cookies {
		if cookie.Expired(now) {
			continue
		}

		param := &network.CookieParam{
			Name:     cookie.Name,
			Value:    cookie.Value,
			Domain:   strings.TrimPrefix(cookie.Domain, "."),
			Path:     cookie.Path,
			Secure:   cookie.Secure,
			HTTPOnly: cookie.HTTPOnly,
		}
		if !cookie.Expires.IsZero() {
			timestamp := cdp.TimeSinceEpoch(cookie.Expires)
			param.Expires = &timestamp
		}
		switch strings.ToLower(cookie.SameSite) {
		case "strict":
			param.SameSite = network.CookieSameSiteStrict
		case "lax":
			param.SameSite = network.CookieSameSiteLax
		case "none":
			param.SameSite = network.CookieSameSiteNone
		}
		params = append(params, param)
	}
	return params
}
