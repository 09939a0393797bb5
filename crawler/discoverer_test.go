package crawler

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"vrscout/config"
	"vrscout/render"
)

// fakeRenderer serves canned HTML keyed by normalized URL and counts
// renders.
type fakeRenderer struct {
	mu      sync.Mutex
	pages   map[string]string
	renders int
}

func (f *fakeRenderer) Render(ctx context.Context, url string, opts render.Options) (*render.Result, error) {
	f.mu.Lock()
	f.renders++
	html, ok := f.pages[url]
	f.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: no route for %s", render.ErrNetwork, url)
	}
	return &render.Result{HTML: html, FinalURL: url}, nil
}

func (f *fakeRenderer) Close() error { return nil }

func (f *fakeRenderer) renderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.renders
}

func testProfile() *config.SiteProfile {
	return &config.SiteProfile{
		ID:            "example",
		ManagerDomain: "example.com",
		SeedURLs:      []string{"https://example.com/rentals"},
		Crawl: config.CrawlSettings{
			MaxDepth:       4,
			MaxPages:       500,
			MaxConcurrency: 2,
			MinDelayMS:     1,
			ScrollAttempts: 1,
			LoadMoreClicks: 1,
		},
	}
}

func linkPage(hrefs ...string) string {
	html := "<html><body>"
	for _, h := range hrefs {
		html += fmt.Sprintf(`<a href="%s">link</a>`, h)
	}
	return html + "</body></html>"
}

func TestDiscoverFindsListings(t *testing.T) {
	renderer := &fakeRenderer{pages: map[string]string{
		"https://example.com/rentals": linkPage(
			"/property/seaside-cottage",
			"/property/gulf-breeze",
			"/blog/top-10-beaches",
			"https://other.com/property/external",
			"/about",
		),
		"https://example.com/property/seaside-cottage": linkPage("/property/gulf-breeze"),
		"https://example.com/property/gulf-breeze":     linkPage(),
	}}

	d := NewDiscoverer(testProfile(), renderer)
	urls, err := d.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if len(urls) != 2 {
		t.Fatalf("got %d URLs, want 2: %+v", len(urls), urls)
	}
	if urls[0].URL != "https://example.com/property/gulf-breeze" {
		t.Errorf("urls[0] = %q", urls[0].URL)
	}
	if urls[1].URL != "https://example.com/property/seaside-cottage" {
		t.Errorf("urls[1] = %q", urls[1].URL)
	}
	for _, u := range urls {
		if u.Seed != "https://example.com/rentals" {
			t.Errorf("%s: seed = %q", u.URL, u.Seed)
		}
	}
}

func TestDiscoverVisitsEachURLOnce(t *testing.T) {
	// Every page links back to everything; without dedup this never
	// terminates.
	cycle := linkPage("/rentals", "/property/alpha", "/property/beta")
	renderer := &fakeRenderer{pages: map[string]string{
		"https://example.com/rentals":        cycle,
		"https://example.com/property/alpha": cycle,
		"https://example.com/property/beta":  cycle,
	}}

	d := NewDiscoverer(testProfile(), renderer)
	urls, err := d.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if len(urls) != 2 {
		t.Fatalf("got %d URLs, want 2", len(urls))
	}
	// seed + two listings, each rendered exactly once
	if n := renderer.renderCount(); n != 3 {
		t.Errorf("rendered %d pages, want 3", n)
	}
}

func TestDiscoverFollowsPagination(t *testing.T) {
	renderer := &fakeRenderer{pages: map[string]string{
		"https://example.com/rentals": linkPage(
			"/property/unit-one",
			"/rentals?page=2",
		),
		"https://example.com/rentals?page=2":    linkPage("/property/unit-two"),
		"https://example.com/property/unit-one": linkPage(),
		"https://example.com/property/unit-two": linkPage(),
	}}

	d := NewDiscoverer(testProfile(), renderer)
	urls, err := d.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if len(urls) != 2 {
		t.Fatalf("got %d URLs, want 2: %+v", len(urls), urls)
	}
	if urls[0].URL != "https://example.com/property/unit-one" {
		t.Errorf("urls[0] = %q", urls[0].URL)
	}
	if urls[1].URL != "https://example.com/property/unit-two" {
		t.Errorf("urls[1] = %q", urls[1].URL)
	}
	// The paged index is crawled but never reported as a listing.
	for _, u := range urls {
		if u.URL == "https://example.com/rentals?page=2" {
			t.Error("paged index reported as a listing")
		}
	}
}

func TestDiscoverFollowsRelNext(t *testing.T) {
	renderer := &fakeRenderer{pages: map[string]string{
		"https://example.com/rentals": `<html><body>
			<a href="/property/unit-one">one</a>
			<a href="/rentals-archive" rel="next">Next</a>
			</body></html>`,
		"https://example.com/rentals-archive":   linkPage("/property/unit-two"),
		"https://example.com/property/unit-one": linkPage(),
		"https://example.com/property/unit-two": linkPage(),
	}}

	d := NewDiscoverer(testProfile(), renderer)
	urls, err := d.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if len(urls) != 2 {
		t.Fatalf("got %d URLs, want 2: %+v", len(urls), urls)
	}
	if urls[1].URL != "https://example.com/property/unit-two" {
		t.Errorf("urls[1] = %q, rel=next page was not followed", urls[1].URL)
	}
}

func TestDiscoverRespectsMaxPages(t *testing.T) {
	pages := map[string]string{}
	var hrefs []string
	for i := 0; i < 50; i++ {
		u := fmt.Sprintf("/property/unit-%03d", i)
		hrefs = append(hrefs, u)
		pages["https://example.com"+u] = linkPage()
	}
	pages["https://example.com/rentals"] = linkPage(hrefs...)

	profile := testProfile()
	profile.Crawl.MaxPages = 5
	profile.Crawl.MaxConcurrency = 1

	renderer := &fakeRenderer{pages: pages}
	d := NewDiscoverer(profile, renderer)
	if _, err := d.Discover(context.Background()); err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if n := renderer.renderCount(); n > 5 {
		t.Errorf("rendered %d pages, budget was 5", n)
	}
}

func TestDiscoverRespectsMaxDepth(t *testing.T) {
	renderer := &fakeRenderer{pages: map[string]string{
		"https://example.com/rentals":       linkPage("/property/lvl1"),
		"https://example.com/property/lvl1": linkPage("/property/lvl2"),
		"https://example.com/property/lvl2": linkPage("/property/lvl3"),
		"https://example.com/property/lvl3": linkPage("/property/lvl4"),
	}}

	profile := testProfile()
	profile.Crawl.MaxDepth = 2

	d := NewDiscoverer(profile, renderer)
	urls, err := d.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	// lvl3 is reported (found on a depth-2 page) but never crawled, so
	// lvl4 stays unknown.
	for _, u := range urls {
		if u.URL == "https://example.com/property/lvl4" {
			t.Error("crawl went past max_depth")
		}
	}
	if len(urls) != 3 {
		t.Errorf("got %d URLs, want 3", len(urls))
	}
}

func TestDiscoverIdempotent(t *testing.T) {
	pages := map[string]string{
		"https://example.com/rentals": linkPage(
			"/property/zeta", "/property/alpha", "/property/mid",
		),
		"https://example.com/property/zeta":  linkPage(),
		"https://example.com/property/alpha": linkPage(),
		"https://example.com/property/mid":   linkPage(),
	}

	var prev []string
	for run := 0; run < 3; run++ {
		d := NewDiscoverer(testProfile(), &fakeRenderer{pages: pages})
		urls, err := d.Discover(context.Background())
		if err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		var got []string
		for _, u := range urls {
			got = append(got, u.URL)
		}
		if prev != nil {
			if len(got) != len(prev) {
				t.Fatalf("run %d: %d URLs, previous run had %d", run, len(got), len(prev))
			}
			for i := range got {
				if got[i] != prev[i] {
					t.Errorf("run %d: urls[%d] = %q, previous %q", run, i, got[i], prev[i])
				}
			}
		}
		prev = got
	}
}

func TestDiscoverSeedFailureNotFatal(t *testing.T) {
	renderer := &fakeRenderer{pages: map[string]string{}}
	d := NewDiscoverer(testProfile(), renderer)
	urls, err := d.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(urls) != 0 {
		t.Errorf("got %d URLs from unreachable seed", len(urls))
	}
}
