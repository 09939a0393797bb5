package classify

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Default keyword rules. Profiles can override both lists; these cover
// the vocabulary shared by most vacation-rental sites.
var (
	DefaultPositiveKeywords = []string{
		"bedroom", "bathroom", "sleeps", "guests", "nightly", "rate",
		"book now", "check availability", "calendar", "reserve",
		"sq ft", "square feet", "amenities",
	}
	DefaultNegativeKeywords = []string{
		"blog", "article", "about us", "contact us", "careers",
		"privacy policy", "terms of service", "faq",
	}
)

// bookingSelectors are structural markers of a booking widget. Any
// match is a strong listing signal.
var bookingSelectors = []string{
	`[class*="booking"]`, `[id*="booking"]`,
	`[class*="calendar"]`, `[id*="calendar"]`,
	`[class*="reserve"]`, `[class*="availability"]`,
}

var lodgingSchemaTypes = []string{"lodging", "accommodation", "house", "apartment", "vacationrental"}

const (
	// A structural signal outweighs keywords: one booking widget or a
	// lodging schema block is enough on its own at the default
	// threshold, while keyword matches need to accumulate.
	keywordWeight    = 1
	structuralWeight = 3
	urlNegWeight     = -3

	DefaultThreshold = 3
)

// Signal is one evaluated classification rule, matched or not, in the
// order rules were applied.
type Signal struct {
	Name    string
	Weight  int
	Matched bool
}

// Classification is the classifier's verdict for one page.
type Classification struct {
	URL       string
	IsListing bool
	Score     int
	Signals   []Signal
}

// MatchedSignals returns only the signals that fired, for logging.
func (c *Classification) MatchedSignals() []string {
	var names []string
	for _, s := range c.Signals {
		if s.Matched {
			names = append(names, s.Name)
		}
	}
	return names
}

// Rules are the tunable inputs of classification. Zero-value fields
// fall back to the defaults above.
type Rules struct {
	PositiveKeywords []string
	NegativeKeywords []string
	Threshold        int
}

func (r Rules) withDefaults() Rules {
	if len(r.PositiveKeywords) == 0 {
		r.PositiveKeywords = DefaultPositiveKeywords
	}
	if len(r.NegativeKeywords) == 0 {
		r.NegativeKeywords = DefaultNegativeKeywords
	}
	if r.Threshold <= 0 {
		r.Threshold = DefaultThreshold
	}
	return r
}

// Classifier decides whether a rendered page is a property listing.
// It is stateless; one instance serves all pages of a run.
type Classifier struct {
	rules Rules
}

func New(rules Rules) *Classifier {
	return &Classifier{rules: rules.withDefaults()}
}

// Classify scores url+html against the keyword and structural rules.
// is_listing when score >= threshold; everything at or below zero,
// including an exact positive/negative wash, stays false.
func (c *Classifier) Classify(url, html string) Classification {
	result := Classification{URL: url}
	if strings.TrimSpace(html) == "" {
		return result
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return result
	}
	text := strings.ToLower(doc.Text())
	lowerURL := strings.ToLower(url)

	add := func(name string, weight int, matched bool) {
		result.Signals = append(result.Signals, Signal{Name: name, Weight: weight, Matched: matched})
		if matched {
			result.Score += weight
		}
	}

	for _, kw := range c.rules.NegativeKeywords {
		add("url:"+kw, urlNegWeight, strings.Contains(lowerURL, kw))
	}
	for _, kw := range c.rules.PositiveKeywords {
		add("keyword:"+kw, keywordWeight, strings.Contains(text, kw))
	}
	for _, kw := range c.rules.NegativeKeywords {
		add("negative:"+kw, -keywordWeight, strings.Contains(text, kw))
	}

	add("booking_widget", structuralWeight, hasBookingWidget(doc))
	add("schema_lodging", structuralWeight, hasLodgingSchema(doc))

	result.IsListing = result.Score >= c.rules.Threshold
	return result
}

func hasBookingWidget(doc *goquery.Document) bool {
	for _, sel := range bookingSelectors {
		if doc.Find(sel).Length() > 0 {
			return true
		}
	}
	return false
}

func hasLodgingSchema(doc *goquery.Document) bool {
	found := false
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(i int, s *goquery.Selection) bool {
		var data map[string]any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}
		schemaType, _ := data["@type"].(string)
		schemaType = strings.ToLower(schemaType)
		for _, t := range lodgingSchemaTypes {
			if strings.Contains(schemaType, t) {
				found = true
				return false
			}
		}
		return true
	})
	return found
}
