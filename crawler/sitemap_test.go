package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSitemapSeeder(t *testing.T) {
	const urlset = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/property/seaside-cottage</loc></url>
  <url><loc>https://example.com/property/gulf-breeze</loc></url>
  <url><loc>https://example.com/blog/top-10-beaches</loc></url>
  <url><loc>https://other.com/property/external</loc></url>
</urlset>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, urlset)
	}))
	defer srv.Close()

	profile := testProfile()
	profile.SitemapURLs = []string{srv.URL + "/sitemap.xml"}

	seeder := NewSitemapSeeder(srv.Client(), profile)
	urls := seeder.Seed(context.Background())

	if len(urls) != 2 {
		t.Fatalf("got %d URLs, want 2: %+v", len(urls), urls)
	}
	for _, u := range urls {
		if u.Depth != 0 {
			t.Errorf("%s: depth = %d, want 0", u.URL, u.Depth)
		}
	}
}

func TestSitemapSeederFollowsIndex(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>%s/sitemap-properties.xml</loc></sitemap>
</sitemapindex>`, srv.URL)
	})
	mux.HandleFunc("/sitemap-properties.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/property/dune-walk</loc></url>
</urlset>`)
	})

	profile := testProfile()
	profile.SitemapURLs = []string{srv.URL + "/sitemap.xml"}

	urls := NewSitemapSeeder(srv.Client(), profile).Seed(context.Background())
	if len(urls) != 1 {
		t.Fatalf("got %d URLs, want 1", len(urls))
	}
	if urls[0].URL != "https://example.com/property/dune-walk" {
		t.Errorf("urls[0] = %q", urls[0].URL)
	}
}

func TestSitemapSeederUnreachable(t *testing.T) {
	profile := testProfile()
	profile.SitemapURLs = []string{"http://127.0.0.1:1/sitemap.xml"}

	urls := NewSitemapSeeder(http.DefaultClient, profile).Seed(context.Background())
	if len(urls) != 0 {
		t.Errorf("got %d URLs from unreachable sitemap", len(urls))
	}
}
