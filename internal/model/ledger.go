package model

import "time"

// LedgerDayFormat is the key format of daily cost aggregates.
const LedgerDayFormat = "2006-01-02"

// CostLedgerEntry is the daily aggregate of AI spend across all tenants,
// broken down by user, provider and agent. Entries are increment-only.
type CostLedgerEntry struct {
	Day           string             `db:"day" json:"day"`
	TotalCost     float64            `db:"total_cost" json:"total_cost"`
	TotalRequests int                `db:"total_requests" json:"total_requests"`
	ByUser        map[string]float64 `json:"by_user"`
	ByProvider    map[string]float64 `json:"by_provider"`
	ByAgent       map[string]float64 `json:"by_agent"`
	UpdatedAt     time.Time          `db:"updated_at" json:"updated_at"`
}
