package render

import (
	"context"
	"errors"
	"time"
)

// Result is a fully rendered page.
type Result struct {
	HTML     string
	FinalURL string
}

// Options control how a single page render behaves.
type Options struct {
	// Scroll repeatedly scrolls to the bottom until the page height is
	// stable across two consecutive measurements or MaxScrolls is hit,
	// to trigger lazily loaded content.
	Scroll     bool
	MaxScrolls int

	// ClickSelectors are "load more" style controls clicked repeatedly
	// until no new content appears or MaxClicks is hit.
	ClickSelectors []string
	MaxClicks      int

	// WaitSelector, when set, is awaited briefly after navigation.
	WaitSelector string

	Timeout time.Duration
}

// ErrTimeout marks a render that exceeded its deadline. Timed-out pages
// are retried a bounded number of times and then skipped, never fatal.
var ErrTimeout = errors.New("render: timeout")

// ErrNetwork marks a navigation/network failure.
var ErrNetwork = errors.New("render: network error")

// Renderer fetches a URL through a real browser and returns the
// post-JavaScript DOM serialized as HTML.
type Renderer interface {
	Render(ctx context.Context, url string, opts Options) (*Result, error)
	Close() error
}

// IsTransient reports whether a render error is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrNetwork)
}
