package normalize

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"vrscout/identity"
	"vrscout/models"
)

const enrichmentPenalty = 0.8

var (
	zipRe      = regexp.MustCompile(`\b(\d{5}(?:-\d{4})?)\b`)
	zipExactRe = regexp.MustCompile(`^\d{5}(-\d{4})?$`)

	// Uppercase only: a case-insensitive match would read words like
	// "in" or "la" as state codes.
	stateCodeRe = regexp.MustCompile(`\b(` + statePattern + `)\b`)

	// Greedy street-name class so suffix tokens bind to the last
	// occurrence ("Crystal Beach Dr" must not stop at the st in
	// Crystal); the trailing \b keeps Dr from matching inside Driveway.
	streetRe = regexp.MustCompile(`(?i)^(\d+\s+[A-Za-z0-9\s]+` +
		`(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Drive|Dr|Lane|Ln|Way|Court|Ct|Circle|Cir|Terrace|Ter|Highway|Hwy|Parkway|Pkwy)\b\.?)`)

	unitRe = regexp.MustCompile(`(?i)\b((?:#|Apt\.?|Unit|Suite|Ste\.?)\s*[A-Za-z0-9-]+)`)

	twoLetterRe = regexp.MustCompile(`\b[A-Z]{2}\b`)
)

// Components is the parsed form of one raw address string.
type Components struct {
	StreetLine1 string
	StreetLine2 string
	City        string
	State       string
	PostalCode  string
}

// Parse splits a raw address into components with a street/city/state/
// ZIP grammar. ok is false when no street line can be identified; such
// candidates carry too little signal to normalize.
func Parse(raw string) (Components, bool) {
	raw = strings.TrimSpace(raw)
	var c Components
	if raw == "" {
		return c, false
	}

	if m := zipRe.FindStringSubmatch(raw); m != nil {
		c.PostalCode = m[1]
	}

	if m := stateCodeRe.FindStringSubmatch(raw); m != nil {
		c.State = strings.ToUpper(m[1])
	} else {
		lower := strings.ToLower(raw)
		for name, code := range stateAbbreviations {
			if strings.Contains(lower, name) {
				c.State = code
				break
			}
		}
	}

	if m := streetRe.FindStringSubmatch(raw); m != nil {
		c.StreetLine1 = strings.TrimSpace(m[1])
		rest := raw[len(m[0]):]
		if um := unitRe.FindStringSubmatch(rest); um != nil {
			c.StreetLine2 = strings.TrimSpace(um[1])
		}
	}

	parts := splitTrim(raw, ",")
	if len(parts) >= 2 {
		// Fallback street line: leading segment that looks like
		// "number words", not a bare coordinate.
		if c.StreetLine1 == "" && startsWithDigit(parts[0]) && hasLetter(parts[0]) {
			c.StreetLine1 = parts[0]
		}
		// The city is the last segment that is not just a state code,
		// a spelled-out state name, or a ZIP.
		for i := len(parts) - 1; i >= 1; i-- {
			city := twoLetterRe.ReplaceAllString(parts[i], "")
			city = zipRe.ReplaceAllString(city, "")
			city = strings.TrimSpace(strings.Trim(city, ","))
			if len(city) <= 2 || !hasLetter(city) {
				continue
			}
			if _, isState := stateAbbreviations[strings.ToLower(city)]; isState {
				continue
			}
			c.City = city
			break
		}
	}

	return c, c.StreetLine1 != ""
}

// Context carries the hints used to fill fields the page itself did not
// provide.
type Context struct {
	// MarketName is the profile's declared market, e.g. "Destin, FL".
	MarketName string
	// KnownPlaces are place names recognized in URL path tokens.
	KnownPlaces []string
}

// Normalizer reconciles extraction candidates into at most one
// normalized address per listing URL.
type Normalizer struct {
	ctx Context
}

func New(ctx Context) *Normalizer {
	return &Normalizer{ctx: ctx}
}

// Normalize picks the best parseable candidate and enriches missing
// city/state from context. Returns nil when no candidate parses: a
// fabricated record with made-up confidence is worse than no record.
func (n *Normalizer) Normalize(pageURL string, candidates []models.AddressCandidate) *models.NormalizedAddress {
	winner, comps, ok := pickWinner(candidates)
	if !ok {
		return nil
	}

	confidence := winner.RawConfidence
	methods := []string{"parser"}

	// Every field filled from context instead of page content costs a
	// penalty, compounding per field.
	if comps.City == "" || comps.State == "" {
		city, state := marketCityState(n.ctx.MarketName)
		enriched := false
		if comps.City == "" && city != "" {
			comps.City = city
			confidence *= enrichmentPenalty
			enriched = true
		}
		if comps.State == "" && state != "" {
			comps.State = state
			confidence *= enrichmentPenalty
			enriched = true
		}
		if enriched {
			methods = append(methods, "market_enrichment")
		}
	}

	if comps.City == "" {
		if city := cityFromURL(pageURL, n.ctx.KnownPlaces); city != "" {
			comps.City = city
			confidence *= enrichmentPenalty
			methods = append(methods, "url_path_enrichment")
		}
	}

	// Invalid values are zeroed, never kept: a wrong ZIP is worse than
	// a missing one.
	if comps.PostalCode != "" && !zipExactRe.MatchString(comps.PostalCode) {
		comps.PostalCode = ""
	}
	if comps.State != "" && !ValidStateCode(comps.State) {
		comps.State = ""
	}

	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	addr := &models.NormalizedAddress{
		ID:              uuid.New(),
		URL:             pageURL,
		StreetLine1:     comps.StreetLine1,
		StreetLine2:     comps.StreetLine2,
		City:            comps.City,
		State:           comps.State,
		PostalCode:      comps.PostalCode,
		Country:         "USA",
		FinalConfidence: confidence,
		InferenceMethod: string(winner.Method) + ":" + strings.Join(methods, "+"),
		CreatedAt:       time.Now().UTC(),
	}
	addr.Fingerprint = identity.Fingerprint(addr)
	return addr
}

// pickWinner chooses the parseable candidate with the highest raw
// confidence; ties break toward the more trusted strategy, then
// lexicographically by raw text so reruns stay stable.
func pickWinner(candidates []models.AddressCandidate) (models.AddressCandidate, Components, bool) {
	type parsed struct {
		cand  models.AddressCandidate
		comps Components
	}
	var pool []parsed
	for _, c := range candidates {
		if c.RequiresEnrichment {
			// Coordinates-only candidates cannot become a postal
			// address without reverse geocoding.
			continue
		}
		if comps, ok := Parse(c.RawText); ok {
			pool = append(pool, parsed{cand: c, comps: comps})
		}
	}
	if len(pool) == 0 {
		return models.AddressCandidate{}, Components{}, false
	}

	sort.SliceStable(pool, func(i, j int) bool {
		a, b := pool[i].cand, pool[j].cand
		if a.RawConfidence != b.RawConfidence {
			return a.RawConfidence > b.RawConfidence
		}
		if a.Method.Priority() != b.Method.Priority() {
			return a.Method.Priority() < b.Method.Priority()
		}
		return a.RawText < b.RawText
	})
	return pool[0].cand, pool[0].comps, true
}

// marketCityState resolves a declared market like "Destin, FL" or
// "Santa Rosa Beach, Florida" into a city/state pair. Markets naming
// several places ("Destin / 30A") are ambiguous: the state still
// resolves, the city stays blank.
func marketCityState(market string) (city, state string) {
	market = strings.TrimSpace(market)
	if market == "" {
		return "", ""
	}

	rest := market
	if m := stateCodeRe.FindStringSubmatch(market); m != nil {
		state = strings.ToUpper(m[1])
		rest = strings.Replace(market, m[1], "", 1)
	} else {
		lower := strings.ToLower(market)
		for name, code := range stateAbbreviations {
			if strings.Contains(lower, name) {
				state = code
				idx := strings.Index(lower, name)
				rest = market[:idx] + market[idx+len(name):]
				break
			}
		}
	}

	places := splitTrim(strings.NewReplacer("/", ",", "&", ",").Replace(rest), ",")
	var nonEmpty []string
	for _, p := range places {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	if len(nonEmpty) == 1 {
		city = nonEmpty[0]
	}
	return city, state
}

// cityFromURL matches URL path tokens against the profile's known
// place names.
func cityFromURL(pageURL string, knownPlaces []string) string {
	if len(knownPlaces) == 0 {
		return ""
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}

	path := strings.ToLower(strings.NewReplacer("-", " ", "_", " ").Replace(u.Path))
	for _, place := range knownPlaces {
		if place == "" {
			continue
		}
		if strings.Contains(path, strings.ToLower(place)) {
			return toTitle(place)
		}
	}
	return ""
}

func toTitle(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func splitTrim(s, sep string) []string {
	var out []string
	for _, p := range strings.Split(s, sep) {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func startsWithDigit(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}

func hasLetter(s string) bool {
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}
