package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"vrscout/models"
)

var (
	streetReplacements = map[string]string{
		"street":    "st",
		"avenue":    "ave",
		"drive":     "dr",
		"road":      "rd",
		"boulevard": "blvd",
		"lane":      "ln",
		"court":     "ct",
		"place":     "pl",
		"circle":    "cir",
		"terrace":   "ter",
		"highway":   "hwy",
		"parkway":   "pkwy",
		"square":    "sq",
		"north":     "n",
		"south":     "s",
		"east":      "e",
		"west":      "w",
		"apartment": "apt",
		"suite":     "ste",
		"building":  "bldg",
	}
	multiSpaceRegex = regexp.MustCompile(`\s+`)
	nonAlnumRegex   = regexp.MustCompile(`[^a-z0-9\s]`)
)

// Fingerprint keys a normalized address so the same property reached
// through two listing URLs collapses to one row per run.
func Fingerprint(addr *models.NormalizedAddress) string {
	input := fmt.Sprintf("%s|%s|%s|%s",
		NormalizeStreet(addr.StreetLine1+" "+addr.StreetLine2),
		strings.ToLower(strings.TrimSpace(addr.City)),
		strings.ToUpper(strings.TrimSpace(addr.State)),
		strings.TrimSpace(addr.PostalCode),
	)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:16])
}

// NormalizeStreet lowercases a street line and collapses common suffix
// and directional words to their abbreviations.
func NormalizeStreet(line string) string {
	line = strings.ToLower(strings.TrimSpace(line))
	line = nonAlnumRegex.ReplaceAllString(line, " ")
	line = multiSpaceRegex.ReplaceAllString(line, " ")

	words := strings.Fields(line)
	for i, w := range words {
		if abbrev, ok := streetReplacements[w]; ok {
			words[i] = abbrev
		}
	}
	return strings.Join(words, " ")
}
