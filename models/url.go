package models

// DiscoveredURL is a candidate listing page found during crawl, with the
// depth at which it was reached and the seed it descends from. URLs are
// deduplicated by their normalized form; a URL is visited at most once
// per run.
type DiscoveredURL struct {
	URL   string `json:"url" db:"url"`
	Depth int    `json:"depth" db:"depth"`
	Seed  string `json:"seed" db:"seed"`
}
