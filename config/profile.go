package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SiteProfile is the immutable per-site configuration for one scrape
// target. Loaded once per run from config/sites/*.yaml and never
// mutated afterwards.
type SiteProfile struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	ManagerName   string `yaml:"manager_name"`
	ManagerDomain string `yaml:"manager_domain"`

	// MarketName is a geographic hint like "Destin, FL" used to enrich
	// addresses that lack city/state on the page.
	MarketName string `yaml:"market_name"`

	SeedURLs    []string `yaml:"seed_urls"`
	SitemapURLs []string `yaml:"sitemap_urls"`

	ListingURLPatterns  []string `yaml:"listing_url_patterns"`
	ExcludedURLPatterns []string `yaml:"excluded_url_patterns"`

	// AddressSelectors are site-specific CSS selectors for address
	// containers on listing pages. They score higher than the generic
	// fallback selectors tried across all sites.
	AddressSelectors    []string `yaml:"address_selectors"`
	ListingLinkSelector string   `yaml:"listing_link_selector"`
	LoadMoreSelector    string   `yaml:"load_more_selector"`

	// KnownPlaces are place-name tokens recognized in URL paths during
	// enrichment (lowercased, hyphen/space insensitive).
	KnownPlaces []string `yaml:"known_places"`

	Crawl    CrawlSettings `yaml:"crawl"`
	Classify ClassifyRules `yaml:"classify"`
}

type CrawlSettings struct {
	MaxDepth        int `yaml:"max_depth"`
	MaxPages        int `yaml:"max_pages"`
	MaxConcurrency  int `yaml:"max_concurrency"`
	MinDelayMS      int `yaml:"min_delay_ms"`
	ScrollAttempts  int `yaml:"scroll_attempts"`
	LoadMoreClicks  int `yaml:"load_more_clicks"`
	RenderTimeoutMS int `yaml:"render_timeout_ms"`
	FetchRetries    int `yaml:"fetch_retries"`
}

// ClassifyRules are the tunable keyword lists for the page classifier.
// Empty fields fall back to the package defaults.
type ClassifyRules struct {
	PositiveKeywords []string `yaml:"positive_keywords"`
	NegativeKeywords []string `yaml:"negative_keywords"`
	Threshold        int      `yaml:"threshold"`
}

const (
	DefaultMaxDepth        = 4
	DefaultMaxPages        = 500
	DefaultMaxConcurrency  = 3
	DefaultMinDelayMS      = 500
	DefaultScrollAttempts  = 5
	DefaultLoadMoreClicks  = 20
	DefaultRenderTimeoutMS = 30000
	DefaultFetchRetries    = 2
)

func LoadProfile(path string) (*SiteProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var p SiteProfile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	p.applyDefaults()
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", path, err)
	}

	return &p, nil
}

func (p *SiteProfile) applyDefaults() {
	if p.Crawl.MaxDepth <= 0 {
		p.Crawl.MaxDepth = DefaultMaxDepth
	}
	if p.Crawl.MaxPages <= 0 {
		p.Crawl.MaxPages = DefaultMaxPages
	}
	if p.Crawl.MaxConcurrency <= 0 {
		p.Crawl.MaxConcurrency = DefaultMaxConcurrency
	}
	if p.Crawl.MinDelayMS <= 0 {
		p.Crawl.MinDelayMS = DefaultMinDelayMS
	}
	if p.Crawl.ScrollAttempts <= 0 {
		p.Crawl.ScrollAttempts = DefaultScrollAttempts
	}
	if p.Crawl.LoadMoreClicks <= 0 {
		p.Crawl.LoadMoreClicks = DefaultLoadMoreClicks
	}
	if p.Crawl.RenderTimeoutMS <= 0 {
		p.Crawl.RenderTimeoutMS = DefaultRenderTimeoutMS
	}
	if p.Crawl.FetchRetries <= 0 {
		p.Crawl.FetchRetries = DefaultFetchRetries
	}
}

// Validate rejects unusable profiles before any fetch begins.
func (p *SiteProfile) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("id is required")
	}
	if len(p.SeedURLs) == 0 {
		return fmt.Errorf("seed_urls must be non-empty")
	}
	if p.ManagerDomain == "" {
		return fmt.Errorf("manager_domain is required")
	}
	return nil
}

func (p *SiteProfile) MinDelay() time.Duration {
	return time.Duration(p.Crawl.MinDelayMS) * time.Millisecond
}

func (p *SiteProfile) RenderTimeout() time.Duration {
	return time.Duration(p.Crawl.RenderTimeoutMS) * time.Millisecond
}
