package render

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

const interactSettle = 1500 * time.Millisecond

// defaultLoadMoreSelectors are tried on every site; a profile's
// load_more_selector is prepended when configured.
var defaultLoadMoreSelectors = []string{
	"button:has-text('Load More')",
	"button:has-text('Show More')",
	"button:has-text('View More')",
	"a:has-text('Load More')",
	".load-more",
	".show-more",
}

// DefaultClickSelectors returns the load-more heuristic list with an
// optional site-specific selector first.
func DefaultClickSelectors(siteSelector string) []string {
	if siteSelector == "" {
		return defaultLoadMoreSelectors
	}
	return append([]string{siteSelector}, defaultLoadMoreSelectors...)
}

// PlaywrightRenderer drives a headless Chromium through playwright-go.
// The browser starts lazily on first render and is shared across pages.
type PlaywrightRenderer struct {
	mu          sync.Mutex
	pw          *playwright.Playwright
	browser     playwright.Browser
	bctx        playwright.BrowserContext
	initialized bool
	userAgent   string
}

func NewPlaywrightRenderer(userAgent string) *PlaywrightRenderer {
	if userAgent == "" {
		userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	}
	return &PlaywrightRenderer{userAgent: userAgent}
}

func (r *PlaywrightRenderer) ensureBrowser() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return nil
	}

	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
		Args: []string{
			"--no-sandbox",
			"--disable-dev-shm-usage",
			"--disable-blink-features=AutomationControlled",
		},
	})
	if err != nil {
		pw.Stop()
		return fmt.Errorf("launch browser: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(r.userAgent),
		Viewport:  &playwright.Size{Width: 1920, Height: 1080},
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return fmt.Errorf("create context: %w", err)
	}

	r.pw = pw
	r.browser = browser
	r.bctx = bctx
	r.initialized = true
	return nil
}

func (r *PlaywrightRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.bctx != nil {
		r.bctx.Close()
	}
	if r.browser != nil {
		r.browser.Close()
	}
	if r.pw != nil {
		r.pw.Stop()
	}
	r.initialized = false
	return nil
}

func (r *PlaywrightRenderer) Render(ctx context.Context, url string, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.ensureBrowser(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	page, err := r.bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("%w: create page: %v", ErrNetwork, err)
	}
	defer page.Close()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	_, err = page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return nil, classifyNavError(err)
	}

	if opts.WaitSelector != "" {
		// Best effort: SPAs often render the anchors late.
		page.Locator(opts.WaitSelector).First().WaitFor(playwright.LocatorWaitForOptions{
			Timeout: playwright.Float(5000),
		})
	}

	if opts.Scroll {
		scrollUntilStable(ctx, &playwrightPage{page: page}, opts.MaxScrolls)
	}

	if len(opts.ClickSelectors) > 0 {
		if n := clickUntilDone(ctx, &playwrightPage{page: page}, opts.ClickSelectors, opts.MaxClicks); n > 0 {
			log.Printf("render: clicked load-more %d times on %s", n, page.URL())
		}
	}

	html, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("%w: content: %v", ErrNetwork, err)
	}

	return &Result{HTML: html, FinalURL: page.URL()}, nil
}

// playwrightPage adapts a live page to the pageDriver interface the
// interaction loops run against.
type playwrightPage struct {
	page playwright.Page
}

func (p *playwrightPage) Height() int {
	result, err := p.page.Evaluate(`document.body ? document.body.scrollHeight : 0`)
	if err != nil {
		return 0
	}
	switch v := result.(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

func (p *playwrightPage) ScrollBottom() {
	p.page.Mouse().Wheel(0, 10000)
	p.page.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`)
}

func (p *playwrightPage) ClickFirst(selectors []string) bool {
	for _, sel := range selectors {
		btn := p.page.Locator(sel).First()
		visible, _ := btn.IsVisible()
		if !visible {
			continue
		}
		if err := btn.Click(playwright.LocatorClickOptions{
			Timeout: playwright.Float(2000),
		}); err != nil {
			continue
		}
		return true
	}
	return false
}

func (p *playwrightPage) Settle() {
	p.page.WaitForTimeout(float64(interactSettle.Milliseconds()))
}

func classifyNavError(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}
