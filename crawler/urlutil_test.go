package crawler

import (
	"net/url"
	"testing"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		base string
		want string
	}{
		{
			name: "strips fragment",
			raw:  "https://example.com/property/beach-house#photos",
			want: "https://example.com/property/beach-house",
		},
		{
			name: "sorts query params",
			raw:  "https://example.com/rentals?sort=price&beds=3",
			want: "https://example.com/rentals?beds=3&sort=price",
		},
		{
			name: "lowercases host",
			raw:  "HTTPS://Example.COM/Property/Unit-12",
			want: "https://example.com/Property/Unit-12",
		},
		{
			name: "trims trailing slash",
			raw:  "https://example.com/rentals/",
			want: "https://example.com/rentals",
		},
		{
			name: "resolves relative against base",
			raw:  "/property/gulf-view-cottage",
			base: "https://example.com/rentals",
			want: "https://example.com/property/gulf-view-cottage",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var base *url.URL
			if tt.base != "" {
				var err error
				base, err = url.Parse(tt.base)
				if err != nil {
					t.Fatalf("parse base: %v", err)
				}
			}
			got, err := NormalizeURL(tt.raw, base)
			if err != nil {
				t.Fatalf("NormalizeURL(%q): %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeURLEquivalence(t *testing.T) {
	a, err := NormalizeURL("https://example.com/property/x?b=2&a=1#map", nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NormalizeURL("https://EXAMPLE.com/property/x/?a=1&b=2", nil)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("equivalent URLs normalized differently: %q vs %q", a, b)
	}
}

func TestSameDomain(t *testing.T) {
	tests := []struct {
		rawURL string
		domain string
		want   bool
	}{
		{"https://example.com/property/1", "example.com", true},
		{"https://www.example.com/property/1", "example.com", true},
		{"https://book.example.com/property/1", "example.com", true},
		{"https://example.com/property/1", "www.example.com", true},
		{"https://other.com/property/1", "example.com", false},
		{"https://notexample.com/property/1", "example.com", false},
	}
	for _, tt := range tests {
		if got := SameDomain(tt.rawURL, tt.domain); got != tt.want {
			t.Errorf("SameDomain(%q, %q) = %v, want %v", tt.rawURL, tt.domain, got, tt.want)
		}
	}
}

func TestIsListingLike(t *testing.T) {
	tests := []struct {
		name     string
		rawURL   string
		patterns []string
		excluded []string
		want     bool
	}{
		{
			name:   "default indicator",
			rawURL: "https://example.com/property/seaside-cottage",
			want:   true,
		},
		{
			name:   "vacation rental indicator",
			rawURL: "https://example.com/vacation-rental/gulf-breeze-4br",
			want:   true,
		},
		{
			name:   "blog denied",
			rawURL: "https://example.com/blog/top-10-beaches",
			want:   false,
		},
		{
			name:   "asset denied",
			rawURL: "https://example.com/images/hero.jpg",
			want:   false,
		},
		{
			name:   "long slug heuristic",
			rawURL: "https://example.com/stays/emerald-coast-retreat",
			want:   true,
		},
		{
			name:   "short path rejected",
			rawURL: "https://example.com/contact",
			want:   false,
		},
		{
			name:     "profile pattern wins",
			rawURL:   "https://example.com/homes/42",
			patterns: []string{"/homes/"},
			want:     true,
		},
		{
			name:     "profile pattern excludes everything else",
			rawURL:   "https://example.com/property/seaside-cottage",
			patterns: []string{"/homes/"},
			want:     false,
		},
		{
			name:     "excluded pattern overrides",
			rawURL:   "https://example.com/property/seaside-cottage",
			excluded: []string{"/property/seaside"},
			want:     false,
		},
		{
			name:     "regex pattern",
			rawURL:   "https://example.com/unit-1234",
			patterns: []string{`/unit-\d+`},
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsListingLike(tt.rawURL, tt.patterns, tt.excluded)
			if got != tt.want {
				t.Errorf("IsListingLike(%q) = %v, want %v", tt.rawURL, got, tt.want)
			}
		})
	}
}
