package extract

import (
	"github.com/PuerkitoBio/goquery"

	"vrscout/models"
)

const (
	confConfiguredSelector = 0.8
	confGenericSelector    = 0.5
)

// genericAddressSelectors are tried on every site when they are not
// shadowed by profile configuration. They score lower than configured
// selectors since they are guesses.
var genericAddressSelectors = []string{
	`[itemprop="address"]`,
	"address",
	".property-address",
	".listing-address",
	`[class*="address"]`,
	`[id*="address"]`,
}

// fromSelectors extracts text from the profile's configured address
// selectors and from the generic fallback list.
func (e *Extractor) fromSelectors(url string, doc *goquery.Document) []models.AddressCandidate {
	var out []models.AddressCandidate

	out = append(out, selectorCandidates(url, doc, e.profile.AddressSelectors, confConfiguredSelector)...)
	out = append(out, selectorCandidates(url, doc, genericAddressSelectors, confGenericSelector)...)

	return out
}

func selectorCandidates(url string, doc *goquery.Document, selectors []string, conf float64) []models.AddressCandidate {
	var out []models.AddressCandidate
	for _, sel := range selectors {
		doc.Find(sel).Each(func(i int, s *goquery.Selection) {
			if len(out) >= maxCandidatesPerStrategy {
				return
			}
			text := collapseSpace(s.Text())
			if !plausibleLength(text) {
				return
			}
			html, _ := goquery.OuterHtml(s)
			out = append(out, models.AddressCandidate{
				URL:           url,
				RawText:       text,
				Method:        models.MethodCSSSelector,
				RawConfidence: conf,
				Snippet:       snippet(html),
			})
		})
	}
	return out
}
