package classify

import "testing"

const listingHTML = `<html><body>
<h1>Seaside Cottage</h1>
<p>3 bedroom, 2 bathroom home that sleeps 8 guests.</p>
<p>Amenities include a private pool and gulf views.</p>
<div class="booking-widget"><button>Book Now</button></div>
</body></html>`

const blogHTML = `<html><body>
<h1>Top 10 Beaches Near Destin</h1>
<article><p>Our latest blog article covers the best sand in the area.</p></article>
<a href="/about-us">About Us</a>
</body></html>`

func TestClassifyListing(t *testing.T) {
	c := New(Rules{})
	got := c.Classify("https://example.com/property/seaside-cottage", listingHTML)

	if !got.IsListing {
		t.Fatalf("listing page classified as non-listing, score=%d signals=%v",
			got.Score, got.MatchedSignals())
	}
	if got.Score < DefaultThreshold {
		t.Errorf("score = %d, want >= %d", got.Score, DefaultThreshold)
	}
}

func TestClassifyBlog(t *testing.T) {
	c := New(Rules{})
	got := c.Classify("https://example.com/blog/top-10-beaches", blogHTML)

	if got.IsListing {
		t.Fatalf("blog page classified as listing, score=%d signals=%v",
			got.Score, got.MatchedSignals())
	}
}

func TestClassifyNegativeURLOverridesContent(t *testing.T) {
	// Listing-ish vocabulary on a blog URL still fails: the URL signal
	// is weighted to sink borderline pages.
	html := `<html><body><p>This 2 bedroom cottage sleeps 6 guests.</p></body></html>`
	c := New(Rules{})
	got := c.Classify("https://example.com/blog/cottage-tour", html)

	if got.IsListing {
		t.Errorf("blog URL classified as listing, score=%d", got.Score)
	}
}

func TestClassifySchemaLodging(t *testing.T) {
	html := `<html><body>
<script type="application/ld+json">{"@type": "VacationRental", "name": "Dune Walk"}</script>
<p>Rates from $250 nightly.</p>
</body></html>`
	c := New(Rules{})
	got := c.Classify("https://example.com/stays/dune-walk-cottage", html)

	if !got.IsListing {
		t.Errorf("schema.org lodging page classified as non-listing, score=%d signals=%v",
			got.Score, got.MatchedSignals())
	}
}

func TestClassifyEmptyHTML(t *testing.T) {
	c := New(Rules{})
	got := c.Classify("https://example.com/property/x", "")

	if got.IsListing {
		t.Error("empty page classified as listing")
	}
	if got.Score != 0 {
		t.Errorf("score = %d, want 0", got.Score)
	}
}

func TestClassifyCustomRules(t *testing.T) {
	c := New(Rules{
		PositiveKeywords: []string{"chalet", "ski-in"},
		Threshold:        2,
	})
	html := `<html><body><p>Ski-in chalet for rent.</p></body></html>`
	got := c.Classify("https://example.com/chalets/alpine-7", html)

	if !got.IsListing {
		t.Errorf("custom rules did not match, score=%d signals=%v", got.Score, got.MatchedSignals())
	}
}

func TestClassifyTieIsFalse(t *testing.T) {
	c := New(Rules{
		PositiveKeywords: []string{"bedroom"},
		NegativeKeywords: []string{"newsletter"},
		Threshold:        1,
	})
	// One positive and one negative keyword wash out to zero.
	html := `<html><body><p>One bedroom. Join our newsletter.</p></body></html>`
	got := c.Classify("https://example.com/property/x", html)

	if got.IsListing {
		t.Errorf("tied score classified as listing, score=%d", got.Score)
	}
}
