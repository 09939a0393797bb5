package crawler

import (
	"context"
	"log"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"vrscout/config"
	"vrscout/models"
	"vrscout/render"
)

// Discoverer walks a site breadth-first from its seed URLs and returns
// the set of candidate listing-page URLs, bounded by the profile's
// max_depth and max_pages.
type Discoverer struct {
	profile  *config.SiteProfile
	renderer render.Renderer
}

func NewDiscoverer(profile *config.SiteProfile, renderer render.Renderer) *Discoverer {
	return &Discoverer{profile: profile, renderer: renderer}
}

type frontierItem struct {
	url   string // normalized
	depth int
	seed  string
}

// crawlState is the only shared mutable state of a discovery run:
// multiple fetch workers discover and enqueue URLs concurrently, so all
// access goes through mu.
type crawlState struct {
	mu           sync.Mutex
	visited      map[string]bool
	results      map[string]models.DiscoveredURL
	next         []frontierItem
	pagesFetched int
	lastFetch    map[string]time.Time
}

func (s *crawlState) takeFetchSlot(maxPages int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pagesFetched >= maxPages {
		return false
	}
	s.pagesFetched++
	return true
}

// throttle returns how long the caller must wait before hitting host
// again, and reserves the slot.
func (s *crawlState) throttle(host string, minDelay time.Duration) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	last, ok := s.lastFetch[host]
	if !ok || now.Sub(last) >= minDelay {
		s.lastFetch[host] = now
		return 0
	}
	wait := minDelay - now.Sub(last)
	s.lastFetch[host] = now.Add(wait)
	return wait
}

// Discover runs the BFS. It terminates when the frontier drains, the
// page budget is spent, or every frontier node exceeds max_depth,
// whichever comes first. Cancelling ctx stops new fetches; in-flight
// renders finish or time out and their pages are simply omitted.
func (d *Discoverer) Discover(ctx context.Context) ([]models.DiscoveredURL, error) {
	state := &crawlState{
		visited:   make(map[string]bool),
		results:   make(map[string]models.DiscoveredURL),
		lastFetch: make(map[string]time.Time),
	}

	var frontier []frontierItem
	for _, seed := range d.profile.SeedURLs {
		normalized, err := NormalizeURL(seed, nil)
		if err != nil {
			log.Printf("crawler: bad seed %q: %v", seed, err)
			continue
		}
		if !state.visited[normalized] {
			state.visited[normalized] = true
			frontier = append(frontier, frontierItem{url: normalized, depth: 0, seed: normalized})
		}
	}

	sem := make(chan struct{}, d.profile.Crawl.MaxConcurrency)

	for len(frontier) > 0 && ctx.Err() == nil {
		var wg sync.WaitGroup
		for _, item := range frontier {
			if ctx.Err() != nil {
				break
			}
			if !state.takeFetchSlot(d.profile.Crawl.MaxPages) {
				break
			}

			wg.Add(1)
			sem <- struct{}{}
			go func(item frontierItem) {
				defer wg.Done()
				defer func() { <-sem }()
				d.crawlPage(ctx, state, item)
			}(item)
		}
		wg.Wait()

		state.mu.Lock()
		frontier = state.next
		state.next = nil
		state.mu.Unlock()
	}

	results := make([]models.DiscoveredURL, 0, len(state.results))
	for _, du := range state.results {
		results = append(results, du)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].URL < results[j].URL })

	log.Printf("crawler: %s: discovered %d listing URLs over %d pages",
		d.profile.ID, len(results), state.pagesFetched)
	return results, nil
}

func (d *Discoverer) crawlPage(ctx context.Context, state *crawlState, item frontierItem) {
	host := hostOf(item.url)
	if wait := state.throttle(host, d.profile.MinDelay()); wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
	}

	result, err := d.renderer.Render(ctx, item.url, render.Options{
		Scroll:         true,
		MaxScrolls:     d.profile.Crawl.ScrollAttempts,
		ClickSelectors: render.DefaultClickSelectors(d.profile.LoadMoreSelector),
		MaxClicks:      d.profile.Crawl.LoadMoreClicks,
		WaitSelector:   d.profile.ListingLinkSelector,
		Timeout:        d.profile.RenderTimeout(),
	})
	if err != nil {
		log.Printf("crawler: %s: %v", item.url, err)
		return
	}

	links, nextPage := d.extractLinks(result)
	if len(links) == 0 {
		return
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	for _, link := range links {
		if !SameDomain(link, d.profile.ManagerDomain) {
			continue
		}

		listing := IsListingLike(link, d.profile.ListingURLPatterns, d.profile.ExcludedURLPatterns)
		if listing {
			if _, ok := state.results[link]; !ok {
				state.results[link] = models.DiscoveredURL{
					URL:   link,
					Depth: item.depth + 1,
					Seed:  item.seed,
				}
			}
		}

		// Listings join the frontier, and so do paged index anchors
		// (rel="next" or ?page= style): they hold further listings but
		// never count as results themselves.
		follow := listing
		if !follow && (nextPage[link] || IsPaginationLike(link)) {
			follow = !IsExcluded(link, d.profile.ExcludedURLPatterns)
		}
		if follow && !state.visited[link] && item.depth+1 <= d.profile.Crawl.MaxDepth {
			state.visited[link] = true
			state.next = append(state.next, frontierItem{
				url:   link,
				depth: item.depth + 1,
				seed:  item.seed,
			})
		}
	}
}

// extractLinks collects all anchor targets from the rendered DOM,
// normalized and deduplicated, in document order made deterministic by
// a final sort. Targets of rel="next" anchors are reported separately
// so pagination can be followed whatever the URL shape.
func (d *Discoverer) extractLinks(result *render.Result) ([]string, map[string]bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(result.HTML))
	if err != nil {
		log.Printf("crawler: parse %s: %v", result.FinalURL, err)
		return nil, nil
	}

	base, err := url.Parse(result.FinalURL)
	if err != nil {
		return nil, nil
	}

	selector := "a[href]"
	if d.profile.ListingLinkSelector != "" {
		selector = d.profile.ListingLinkSelector + ", a[href]"
	}

	seen := make(map[string]bool)
	nextPage := make(map[string]bool)
	var links []string
	doc.Find(selector).Each(func(i int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") ||
			strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") {
			return
		}

		normalized, err := NormalizeURL(href, base)
		if err != nil || normalized == "" {
			return
		}
		if rel, _ := s.Attr("rel"); strings.EqualFold(rel, "next") {
			nextPage[normalized] = true
		}
		if !seen[normalized] {
			seen[normalized] = true
			links = append(links, normalized)
		}
	})

	sort.Strings(links)
	return links, nextPage
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
