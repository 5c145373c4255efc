package session

import (
	"context"
	"errors"
	"sync"
)

// Lease grants exclusive use of the authenticated context. Every page operation is rate
// limited and transparently retried once after the context is recovered.
type Lease struct {
	manager *Manager
	once    sync.Once
	mu      sync.Mutex
	done    bool
}

func (l *Lease) Release() {
	l.once.Do(func() {
		l.mu.Lock()
		l.done = true
		l.mu.Unlock()
		l.manager.unlock()
	})
}

func (l *Lease) do(ctx context.Context, fn func(ctx context.Context, browser Browser) error) error {
	l.mu.Lock()
	done := l.done
	l.mu.Unlock()
	if done {
		return ErrLeaseReleased
	}

	if err := l.manager.limiter.Wait(ctx); err != nil {
		return err
	}

	err := fn(ctx, l.manager.browser)
	if !errors.Is(err, ErrContextLost) {
		return err
	}

	if err := l.manager.recoverContext(ctx); err != nil {
		return err
	}
	return fn(ctx, l.manager.browser)
}

func (l *Lease) Navigate(ctx context.Context, url string) error {
	return l.do(ctx, func(ctx context.Context, b Browser) error {
		return b.Navigate(ctx, url)
	})
}

func (l *Lease) HTML(ctx context.Context) (string, error) {
	var html string
	err := l.do(ctx, func(ctx context.Context, b Browser) error {
		var err error
		html, err = b.HTML(ctx)
		return err
	})
	return html, err
}

func (l *Lease) Click(ctx context.Context, selector string) error {
	return l.do(ctx, func(ctx context.Context, b Browser) error {
		return b.Click(ctx, selector)
	})
}

func (l *Lease) Type(ctx context.Context, selector string, text string) error {
	return l.do(ctx, func(ctx context.Context, b Browser) error {
		return b.Type(ctx, selector, text)
	})
}

func (l *Lease) Exists(ctx context.Context, selector string) (bool, error) {
	var exists bool
	err := l.do(ctx, func(ctx context.Context, b Browser) error {
		var err error
		exists, err = b.Exists(ctx, selector)
		return err
	})
	return exists, err
}

func (l *Lease) Scroll(ctx context.Context) error {
	return l.do(ctx, func(ctx context.Context, b Browser) error {
		return b.Scroll(ctx)
	})
}

func (l *Lease) Upload(ctx context.Context, selector string, path string) error {
	return l.do(ctx, func(ctx context.Context, b Browser) error {
		return b.Upload(ctx, selector, path)
	})
}

func (l *Lease) CurrentURL(ctx context.Context) (string, error) {
	var url string
	err := l.do(ctx, func(ctx context.Context, b Browser) error {
		var err error
		url, err = b.CurrentURL(ctx)
		return err
	})
	return url, err
}
