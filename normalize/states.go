package normalize

import (
	"sort"
	"strings"
)

// stateAbbreviations maps lowercase US state names to their two-letter
// postal codes. Used both for parsing spelled-out states and for
// validating abbreviations.
var stateAbbreviations = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR",
	"california": "CA", "colorado": "CO", "connecticut": "CT", "delaware": "DE",
	"florida": "FL", "georgia": "GA", "hawaii": "HI", "idaho": "ID",
	"illinois": "IL", "indiana": "IN", "iowa": "IA", "kansas": "KS",
	"kentucky": "KY", "louisiana": "LA", "maine": "ME", "maryland": "MD",
	"massachusetts": "MA", "michigan": "MI", "minnesota": "MN", "mississippi": "MS",
	"missouri": "MO", "montana": "MT", "nebraska": "NE", "nevada": "NV",
	"new hampshire": "NH", "new jersey": "NJ", "new mexico": "NM", "new york": "NY",
	"north carolina": "NC", "north dakota": "ND", "ohio": "OH", "oklahoma": "OK",
	"oregon": "OR", "pennsylvania": "PA", "rhode island": "RI", "south carolina": "SC",
	"south dakota": "SD", "tennessee": "TN", "texas": "TX", "utah": "UT",
	"vermont": "VT", "virginia": "VA", "washington": "WA", "west virginia": "WV",
	"wisconsin": "WI", "wyoming": "WY",
}

var validStateCodes = func() map[string]bool {
	m := make(map[string]bool, len(stateAbbreviations))
	for _, code := range stateAbbreviations {
		m[code] = true
	}
	return m
}()

// statePattern alternates every abbreviation, longest-first is not
// needed since all are two letters.
var statePattern = func() string {
	codes := make([]string, 0, len(stateAbbreviations))
	for _, code := range stateAbbreviations {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return strings.Join(codes, "|")
}()

// ValidStateCode reports whether code is a recognized two-letter US
// state abbreviation.
func ValidStateCode(code string) bool {
	return validStateCodes[strings.ToUpper(code)]
}
