package extract

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"vrscout/models"
)

const confJSONLD = 0.9

// fromStructuredData pulls schema.org PostalAddress objects out of
// JSON-LD script blocks. The site author declared the address
// explicitly, so this strategy carries the highest confidence.
func (e *Extractor) fromStructuredData(url string, doc *goquery.Document) []models.AddressCandidate {
	var out []models.AddressCandidate

	doc.Find(`script[type="application/ld+json"]`).Each(func(i int, s *goquery.Selection) {
		raw := s.Text()

		var data any
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return
		}

		addr := findPostalAddress(data)
		if addr == nil {
			return
		}

		text := formatPostalAddress(addr)
		if text == "" {
			return
		}

		out = append(out, models.AddressCandidate{
			URL:           url,
			RawText:       text,
			Method:        models.MethodJSONLD,
			RawConfidence: confJSONLD,
			Snippet:       snippet(raw),
		})
	})

	return out
}

// findPostalAddress walks arbitrarily nested JSON-LD looking for the
// first object shaped like a postal address. Many sites omit the
// @type tag, so an object carrying streetAddress or addressLocality
// counts too.
func findPostalAddress(data any) map[string]any {
	switch v := data.(type) {
	case map[string]any:
		if looksPostal(v) {
			return v
		}
		// Sorted keys keep the walk deterministic across runs.
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if found := findPostalAddress(v[k]); found != nil {
				return found
			}
		}
	case []any:
		for _, item := range v {
			if found := findPostalAddress(item); found != nil {
				return found
			}
		}
	}
	return nil
}

func looksPostal(m map[string]any) bool {
	if t, _ := m["@type"].(string); t == "PostalAddress" {
		return true
	}
	if s, ok := m["streetAddress"].(string); ok && strings.TrimSpace(s) != "" {
		return true
	}
	if s, ok := m["addressLocality"].(string); ok && strings.TrimSpace(s) != "" {
		return true
	}
	return false
}

// formatPostalAddress lays the fields out as "street, city, ST zip".
func formatPostalAddress(addr map[string]any) string {
	field := func(key string) string {
		v, _ := addr[key].(string)
		return strings.TrimSpace(v)
	}

	var parts []string
	if street := field("streetAddress"); street != "" {
		parts = append(parts, street)
	}
	if city := field("addressLocality"); city != "" {
		parts = append(parts, city)
	}
	region, postal := field("addressRegion"), field("postalCode")
	switch {
	case region != "" && postal != "":
		parts = append(parts, region+" "+postal)
	case region != "":
		parts = append(parts, region)
	case postal != "":
		parts = append(parts, postal)
	}
	return strings.Join(parts, ", ")
}
