package extract

import (
	"log"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"vrscout/config"
	"vrscout/models"
)

const (
	maxSnippetLen            = 500
	minAddressLen            = 6
	maxAddressLen            = 200
	maxCandidatesPerStrategy = 5
)

// Extractor runs every address strategy against a listing page and
// collects all candidates. Strategies never short-circuit each other:
// normalization needs the full set to resolve conflicts, and a broken
// JSON-LD block must not hide a perfectly good selector hit.
type Extractor struct {
	profile *config.SiteProfile
}

func New(profile *config.SiteProfile) *Extractor {
	return &Extractor{profile: profile}
}

type strategy func(url string, doc *goquery.Document) []models.AddressCandidate

// Extract returns all address candidates found on the page, deduplicated
// by raw text (highest confidence wins). Empty or unparseable HTML
// yields an empty slice, never an error.
func (e *Extractor) Extract(url, html string) []models.AddressCandidate {
	if strings.TrimSpace(html) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		log.Printf("extract: parse %s: %v", url, err)
		return nil
	}

	strategies := []strategy{
		e.fromStructuredData,
		e.fromSelectors,
		e.fromTextPatterns,
		e.fromMapWidgets,
		e.fromMetaTags,
	}

	var all []models.AddressCandidate
	for _, s := range strategies {
		all = append(all, s(url, doc)...)
	}
	return dedupe(all)
}

func dedupe(candidates []models.AddressCandidate) []models.AddressCandidate {
	best := make(map[string]int)
	var out []models.AddressCandidate
	for _, c := range candidates {
		key := strings.ToLower(strings.TrimSpace(c.RawText))
		if key == "" {
			continue
		}
		if i, ok := best[key]; ok {
			if c.RawConfidence > out[i].RawConfidence {
				out[i] = c
			}
			continue
		}
		best[key] = len(out)
		out = append(out, c)
	}
	return out
}

func snippet(s string) string {
	if len(s) > maxSnippetLen {
		return s[:maxSnippetLen]
	}
	return s
}

func plausibleLength(text string) bool {
	n := len(strings.TrimSpace(text))
	return n >= minAddressLen && n <= maxAddressLen
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
