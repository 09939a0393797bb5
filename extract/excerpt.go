package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxExcerptLen = 12000

// Excerpt reduces a rendered page to the text an enrichment model
// should read: chrome and code stripped, whitespace collapsed, capped
// so a photo-heavy listing does not blow the prompt budget.
func Excerpt(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return truncate(collapseSpace(html), maxExcerptLen)
	}

	doc.Find("script, style, noscript, svg, iframe, nav, footer, header").Remove()

	var parts []string
	if title := strings.TrimSpace(doc.Find("title").Text()); title != "" {
		parts = append(parts, "Title: "+title)
	}
	if desc := metaContent(doc, "og:description"); desc != "" {
		parts = append(parts, "Description: "+desc)
	}

	body := collapseSpace(doc.Find("body").Text())
	if body == "" {
		body = collapseSpace(doc.Text())
	}
	parts = append(parts, body)

	return truncate(strings.Join(parts, "\n"), maxExcerptLen)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
