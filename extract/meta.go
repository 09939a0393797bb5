package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"vrscout/models"
)

const (
	confOGTitle       = 0.3
	confOGDescription = 0.4
)

var ogTitleHints = []string{"beach", "avenue", "street", "road", "drive"}

// fromMetaTags is the last-ditch strategy: OpenGraph titles sometimes
// carry the property's street name, and descriptions occasionally quote
// the full address.
func (e *Extractor) fromMetaTags(url string, doc *goquery.Document) []models.AddressCandidate {
	var out []models.AddressCandidate

	if title := metaContent(doc, "og:title"); title != "" {
		lower := strings.ToLower(title)
		for _, hint := range ogTitleHints {
			if strings.Contains(lower, hint) {
				out = append(out, models.AddressCandidate{
					URL:           url,
					RawText:       collapseSpace(title),
					Method:        models.MethodTextPattern,
					RawConfidence: confOGTitle,
					Snippet:       snippet(title),
				})
				break
			}
		}
	}

	if desc := metaContent(doc, "og:description"); desc != "" {
		if m := streetLineRe.FindString(desc); m != "" && plausibleLength(m) {
			out = append(out, models.AddressCandidate{
				URL:           url,
				RawText:       collapseSpace(m),
				Method:        models.MethodTextPattern,
				RawConfidence: confOGDescription,
				Snippet:       snippet(desc),
			})
		}
	}

	return out
}

func metaContent(doc *goquery.Document, property string) string {
	content, _ := doc.Find(`meta[property="` + property + `"]`).Attr("content")
	return strings.TrimSpace(content)
}
