package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"vrscout/models"
)

const (
	confMapCaption  = 0.7
	confMapDataAttr = 0.6
	confCoordsOnly  = 0.3
)

var coordsRe = regexp.MustCompile(`^-?\d{1,3}\.\d+\s*,\s*-?\d{1,3}\.\d+$`)

// fromMapWidgets reads embedded map configuration: a Google Maps iframe
// query, address-bearing data attributes on map containers, or bare
// coordinates. Coordinates alone cannot become a postal address without
// reverse geocoding, so they are reported flagged for enrichment and
// never win on their own.
func (e *Extractor) fromMapWidgets(pageURL string, doc *goquery.Document) []models.AddressCandidate {
	var out []models.AddressCandidate

	doc.Find("iframe[src]").Each(func(i int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if !strings.Contains(src, "google.com/maps") && !strings.Contains(src, "maps.google") {
			return
		}
		q := mapQuery(src)
		if q == "" {
			return
		}
		html, _ := goquery.OuterHtml(s)

		if coordsRe.MatchString(q) {
			out = append(out, models.AddressCandidate{
				URL:                pageURL,
				RawText:            q,
				Method:             models.MethodMapWidget,
				RawConfidence:      confCoordsOnly,
				Snippet:            snippet(html),
				RequiresEnrichment: true,
			})
			return
		}
		if plausibleLength(q) {
			out = append(out, models.AddressCandidate{
				URL:           pageURL,
				RawText:       q,
				Method:        models.MethodMapWidget,
				RawConfidence: confMapCaption,
				Snippet:       snippet(html),
			})
		}
	})

	count := 0
	doc.Find(`[class*="map"], [id*="map"]`).Each(func(i int, s *goquery.Selection) {
		if count >= 3 {
			return
		}
		count++
		html, _ := goquery.OuterHtml(s)

		for _, attr := range s.Get(0).Attr {
			name := strings.ToLower(attr.Key)
			val := strings.TrimSpace(attr.Val)
			if strings.Contains(name, "address") && plausibleLength(val) {
				out = append(out, models.AddressCandidate{
					URL:           pageURL,
					RawText:       val,
					Method:        models.MethodMapWidget,
					RawConfidence: confMapDataAttr,
					Snippet:       snippet(html),
				})
			}
		}

		lat, okLat := s.Attr("data-lat")
		lng, okLng := s.Attr("data-lng")
		if okLat && okLng && lat != "" && lng != "" {
			out = append(out, models.AddressCandidate{
				URL:                pageURL,
				RawText:            lat + "," + lng,
				Method:             models.MethodMapWidget,
				RawConfidence:      confCoordsOnly,
				Snippet:            snippet(html),
				RequiresEnrichment: true,
			})
		}
	})

	return out
}

// mapQuery pulls the q= (or ll=) parameter from a maps embed URL,
// plus-signs decoded to spaces.
func mapQuery(src string) string {
	u, err := url.Parse(src)
	if err != nil {
		return ""
	}
	q := u.Query().Get("q")
	if q == "" {
		q = u.Query().Get("ll")
	}
	return strings.TrimSpace(strings.ReplaceAll(q, "+", " "))
}
