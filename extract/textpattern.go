package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"vrscout/models"
)

const (
	confLabelPattern  = 0.6
	confStreetPattern = 0.4
)

var (
	// "Address: 456 Beach Rd" style labels, value terminated by the
	// next label or end of line.
	addressLabelRe  = regexp.MustCompile(`(?im)Address:\s*([^\n]+?)(?:Location:|Type:|$)`)
	locationLabelRe = regexp.MustCompile(`(?im)Location:\s*([^\n]+?)(?:Type:|$)`)

	// Bare street line: number + name + suffix, optional unit and
	// city/state/ZIP tail. The name class is greedy so suffix tokens
	// bind to the last occurrence, not the st inside Crystal; digits
	// are excluded so a match cannot swallow an earlier number and run
	// on across prose.
	streetLineRe = regexp.MustCompile(`(?i)\d+\s+[A-Za-z\s]+` +
		`(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Drive|Dr|Lane|Ln|Way|Court|Ct|Circle|Cir|Terrace|Ter|Highway|Hwy|Parkway|Pkwy)\b` +
		`(?:\s*(?:#|Apt|Unit|Suite|Ste)\.?\s*[A-Za-z0-9-]+)?` +
		`(?:,\s*[A-Za-z\s]+,\s*[A-Z]{2}(?:\s+\d{5}(?:-\d{4})?)?)?`)
)

// fromTextPatterns scans the visible page text for labeled addresses
// ("Address: ...", optionally joined with "Location: ...") and bare
// street-shaped lines. Labels outrank bare regex hits; both sit below
// selectors since descriptions often mention nearby attractions.
func (e *Extractor) fromTextPatterns(url string, doc *goquery.Document) []models.AddressCandidate {
	text := visibleText(doc)
	if text == "" {
		return nil
	}

	var out []models.AddressCandidate

	if m := addressLabelRe.FindStringSubmatch(text); m != nil {
		street := collapseSpace(m[1])
		full := street
		if lm := locationLabelRe.FindStringSubmatch(text); lm != nil {
			full = street + ", " + collapseSpace(lm[1])
		}
		if plausibleLength(street) {
			out = append(out, models.AddressCandidate{
				URL:           url,
				RawText:       full,
				Method:        models.MethodTextPattern,
				RawConfidence: confLabelPattern,
				Snippet:       snippet("Address: " + full),
			})
		}
	}

	for _, m := range streetLineRe.FindAllString(text, maxCandidatesPerStrategy) {
		line := collapseSpace(m)
		if !plausibleLength(line) {
			continue
		}
		if alreadyCovered(out, line) {
			continue
		}
		out = append(out, models.AddressCandidate{
			URL:           url,
			RawText:       line,
			Method:        models.MethodTextPattern,
			RawConfidence: confStreetPattern,
			Snippet:       snippet(line),
		})
		if len(out) >= maxCandidatesPerStrategy {
			break
		}
	}

	return out
}

func alreadyCovered(candidates []models.AddressCandidate, line string) bool {
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c.RawText), strings.ToLower(line)) {
			return true
		}
	}
	return false
}

// visibleText approximates what a visitor reads: scripts, styles and
// chrome regions stripped, block boundaries kept as newlines so label
// patterns do not bleed across sections.
func visibleText(doc *goquery.Document) string {
	clone := doc.Selection.Clone()
	clone.Find("script, style, noscript, nav, footer, header").Remove()

	var b strings.Builder
	clone.Find("body *").Each(func(i int, s *goquery.Selection) {
		if s.Children().Length() > 0 {
			return
		}
		text := strings.TrimSpace(s.Text())
		if text != "" {
			b.WriteString(text)
			b.WriteByte('\n')
		}
	})
	if b.Len() == 0 {
		return strings.TrimSpace(clone.Text())
	}
	return b.String()
}
