package models

import (
	"time"

	"github.com/google/uuid"
)

// ExtractionMethod identifies which strategy produced an address candidate.
type ExtractionMethod string

const (
	MethodJSONLD      ExtractionMethod = "json_ld"
	MethodCSSSelector ExtractionMethod = "css_selector"
	MethodTextPattern ExtractionMethod = "text_pattern"
	MethodMapWidget   ExtractionMethod = "map_widget"
	MethodLLM         ExtractionMethod = "llm"
)

// Priority ranks methods for tie-breaking during normalization.
// Lower is better.
func (m ExtractionMethod) Priority() int {
	switch m {
	case MethodJSONLD:
		return 0
	case MethodCSSSelector:
		return 1
	case MethodTextPattern:
		return 2
	case MethodMapWidget:
		return 3
	case MethodLLM:
		return 4
	default:
		return 5
	}
}

// AddressCandidate is a raw, unreconciled address extraction from one
// strategy. Multiple candidates per URL are siblings until normalization
// picks a winner.
type AddressCandidate struct {
	URL           string           `json:"url" db:"url"`
	RawText       string           `json:"raw_text" db:"raw_text"`
	Method        ExtractionMethod `json:"method" db:"method"`
	RawConfidence float64          `json:"raw_confidence" db:"raw_confidence"`
	Snippet       string           `json:"snippet,omitempty" db:"snippet"`

	// RequiresEnrichment marks candidates that cannot become a postal
	// address on their own (map coordinates with no caption).
	RequiresEnrichment bool `json:"requires_enrichment" db:"requires_enrichment"`
}

// NormalizedAddress is the final reconciled result for one listing URL.
type NormalizedAddress struct {
	ID              uuid.UUID `json:"id" db:"id"`
	URL             string    `json:"url" db:"url"`
	Fingerprint     string    `json:"fingerprint" db:"fingerprint"`
	StreetLine1     string    `json:"street_line1" db:"street_line1"`
	StreetLine2     string    `json:"street_line2,omitempty" db:"street_line2"`
	City            string    `json:"city" db:"city"`
	State           string    `json:"state" db:"state"`
	PostalCode      string    `json:"postal_code" db:"postal_code"`
	Country         string    `json:"country" db:"country"`
	FinalConfidence float64   `json:"final_confidence" db:"final_confidence"`

	// InferenceMethod records the winning candidate's method plus any
	// enrichment steps that filled city/state from context rather than
	// the page itself (e.g. "json_ld" or "text_pattern+market_enrichment").
	InferenceMethod string    `json:"inference_method" db:"inference_method"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// PartialAddress is what the optional LLM hook returns.
type PartialAddress struct {
	Street     string  `json:"street_address"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	PostalCode string  `json:"postal_code"`
	Confidence float64 `json:"confidence"`
}
