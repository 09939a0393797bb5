package crawler

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// defaultExcludedPaths are substrings that mark a URL as definitely not
// a listing page, regardless of profile patterns.
var defaultExcludedPaths = []string{
	"/blog", "/about", "/contact", "/faq", "/careers", "/news",
	"/search", "/filter", "/category", "/tag", "/author",
	"/login", "/signup", "/register", "/cart", "/checkout",
	"/privacy", "/terms",
	".pdf", ".jpg", ".jpeg", ".png", ".gif", ".css", ".js", ".xml", ".ico",
}

// defaultListingIndicators are path substrings that mark a URL as
// listing-like when no site patterns are configured.
var defaultListingIndicators = []string{
	"/property/", "/properties/", "/rental/", "/rentals/", "/listing/",
	"/vacation-rental/", "/home/", "/unit/", "/condo/", "/house/", "/villa/",
}

// paginationIndicators mark paged index URLs (result page 2, 3, ...)
// that are worth crawling even though they are not listings themselves.
var paginationIndicators = []string{"page=", "/page/", "pg=", "paged="}

var slugPattern = regexp.MustCompile(`^[a-z0-9-]{10,}$`)

// NormalizeURL resolves raw against base (when given) and produces the
// canonical dedup key: lowercased scheme+host, path, sorted query,
// fragment stripped, trailing slash trimmed.
func NormalizeURL(raw string, base *url.URL) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	if base != nil {
		u = base.ResolveReference(u)
	}

	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if q := u.Query(); len(q) > 0 {
		keys := make([]string, 0, len(q))
		for k := range q {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var b strings.Builder
		for _, k := range keys {
			vals := q[k]
			sort.Strings(vals)
			for _, v := range vals {
				if b.Len() > 0 {
					b.WriteByte('&')
				}
				b.WriteString(url.QueryEscape(k))
				b.WriteByte('=')
				b.WriteString(url.QueryEscape(v))
			}
		}
		u.RawQuery = b.String()
	}

	return strings.TrimSuffix(u.String(), "/"), nil
}

// SameDomain reports whether rawURL belongs to domain or one of its
// subdomains.
func SameDomain(rawURL, domain string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	domain = strings.ToLower(strings.TrimPrefix(domain, "www."))
	host = strings.TrimPrefix(host, "www.")
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// matchesPattern checks substring match first, then treats the pattern
// as a regex. Invalid regexes degrade to substring-only.
func matchesPattern(rawURL string, patterns []string) bool {
	lower := strings.ToLower(rawURL)
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
		if re, err := regexp.Compile("(?i)" + p); err == nil && re.MatchString(rawURL) {
			return true
		}
	}
	return false
}

// IsExcluded reports whether rawURL hits the denylist or one of the
// profile's excluded patterns.
func IsExcluded(rawURL string, excludedPatterns []string) bool {
	lower := strings.ToLower(rawURL)
	for _, kw := range defaultExcludedPaths {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return matchesPattern(rawURL, excludedPatterns)
}

// IsPaginationLike reports whether rawURL looks like a paged index
// rather than a listing.
func IsPaginationLike(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, ind := range paginationIndicators {
		if strings.Contains(lower, ind) {
			return true
		}
	}
	return false
}

// IsListingLike applies the profile's include/exclude rules when
// provided, else the default heuristic: a known listing path indicator,
// or a path with at least two segments ending in a long slug or numeric
// id, and nothing on the denylist.
func IsListingLike(rawURL string, listingPatterns, excludedPatterns []string) bool {
	if IsExcluded(rawURL, excludedPatterns) {
		return false
	}
	lower := strings.ToLower(rawURL)

	if len(listingPatterns) > 0 {
		return matchesPattern(rawURL, listingPatterns)
	}

	for _, indicator := range defaultListingIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	segments := splitPath(u.Path)
	if len(segments) < 2 {
		return false
	}
	last := segments[len(segments)-1]
	return slugPattern.MatchString(last) || isDigits(last)
}

func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
