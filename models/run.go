package models

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// ScrapeRun is one pipeline execution for one site. The count fields
// form the run manifest: partial failure is always visible as a
// discrepancy between them, never a silent full-success claim.
type ScrapeRun struct {
	ID                  int64      `json:"id" db:"id"`
	SiteID              string     `json:"site_id" db:"site_id"`
	StartedAt           time.Time  `json:"started_at" db:"started_at"`
	FinishedAt          *time.Time `json:"finished_at" db:"finished_at"`
	Status              RunStatus  `json:"status" db:"status"`
	URLsDiscovered      int        `json:"urls_discovered" db:"urls_discovered"`
	PagesFetched        int        `json:"pages_fetched" db:"pages_fetched"`
	ListingsClassified  int        `json:"listings_classified" db:"listings_classified"`
	PagesWithCandidates int        `json:"pages_with_candidates" db:"pages_with_candidates"`
	AddressesNormalized int        `json:"addresses_normalized" db:"addresses_normalized"`
	Unreachable         int        `json:"unreachable" db:"unreachable"`
	ErrorsCount         int        `json:"errors_count" db:"errors_count"`
}

type SiteStats struct {
	SiteID            string     `json:"site_id" db:"site_id"`
	LastRunAt         *time.Time `json:"last_run_at" db:"last_run_at"`
	LastRunStatus     string     `json:"last_run_status" db:"last_run_status"`
	TotalAddresses    int        `json:"total_addresses" db:"total_addresses"`
	TotalCandidates   int        `json:"total_candidates" db:"total_candidates"`
	SuccessRate       float64    `json:"success_rate" db:"success_rate"`
	AvgRunDurationSec int        `json:"avg_run_duration_sec" db:"avg_run_duration_sec"`
}
