package crawler

import (
	"compress/gzip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"vrscout/config"
	"vrscout/models"
)

const maxSitemapDepth = 3

type sitemapURLSet struct {
	URLs []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

type sitemapIndex struct {
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// SitemapSeeder fetches a site's XML sitemaps over plain HTTP (no
// browser needed, sitemaps are static) and returns the listing-like
// URLs they reference. Nested sitemap indexes are followed up to three
// levels.
type SitemapSeeder struct {
	client  *http.Client
	profile *config.SiteProfile
}

func NewSitemapSeeder(client *http.Client, profile *config.SiteProfile) *SitemapSeeder {
	return &SitemapSeeder{client: client, profile: profile}
}

// Seed returns listing-like URLs from the profile's sitemap_urls.
// Sitemap failures are logged and skipped; an unreachable sitemap never
// fails a run.
func (s *SitemapSeeder) Seed(ctx context.Context) []models.DiscoveredURL {
	seen := make(map[string]bool)
	var out []models.DiscoveredURL

	for _, sm := range s.profile.SitemapURLs {
		locs, err := s.fetch(ctx, sm, 0)
		if err != nil {
			log.Printf("crawler: sitemap %s: %v", sm, err)
			continue
		}
		for _, loc := range locs {
			normalized, err := NormalizeURL(loc, nil)
			if err != nil || seen[normalized] {
				continue
			}
			if !SameDomain(normalized, s.profile.ManagerDomain) {
				continue
			}
			if !IsListingLike(normalized, s.profile.ListingURLPatterns, s.profile.ExcludedURLPatterns) {
				continue
			}
			seen[normalized] = true
			out = append(out, models.DiscoveredURL{URL: normalized, Depth: 0, Seed: sm})
		}
	}
	return out
}

func (s *SitemapSeeder) fetch(ctx context.Context, sitemapURL string, depth int) ([]string, error) {
	if depth >= maxSitemapDepth {
		return nil, fmt.Errorf("sitemap nesting too deep at %s", sitemapURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sitemapURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/xml, text/xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if strings.HasSuffix(sitemapURL, ".gz") || resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gunzip: %w", err)
		}
		defer gz.Close()
		body = gz
	}

	data, err := io.ReadAll(io.LimitReader(body, 20<<20))
	if err != nil {
		return nil, err
	}

	// A sitemap file is either an index of more sitemaps or a URL set;
	// try the index shape first.
	var index sitemapIndex
	if err := xml.Unmarshal(data, &index); err == nil && len(index.Sitemaps) > 0 {
		var all []string
		for _, child := range index.Sitemaps {
			locs, err := s.fetch(ctx, strings.TrimSpace(child.Loc), depth+1)
			if err != nil {
				log.Printf("crawler: nested sitemap %s: %v", child.Loc, err)
				continue
			}
			all = append(all, locs...)
		}
		return all, nil
	}

	var urlset sitemapURLSet
	if err := xml.Unmarshal(data, &urlset); err != nil {
		return nil, fmt.Errorf("parse sitemap: %w", err)
	}

	locs := make([]string, 0, len(urlset.URLs))
	for _, u := range urlset.URLs {
		if loc := strings.TrimSpace(u.Loc); loc != "" {
			locs = append(locs, loc)
		}
	}
	return locs, nil
}
