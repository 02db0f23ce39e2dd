package entity

import "time"

// Outcome is the terminal state reason of a site crawl.
type Outcome string

const (
	OutcomeQuotaReached Outcome = "quota_reached"
	OutcomeExhausted    Outcome = "exhausted"
	OutcomeCancelled    Outcome = "cancelled"
	OutcomeFailed       Outcome = "failed"
)

// CrawlReport summarises one Scheduler pass over a site.
type CrawlReport struct {
	RunID          string    `json:"run_id"`
	SiteKey        string    `json:"site_key"`
	Language       string    `json:"language"`
	Outcome        Outcome   `json:"outcome"`
	Target         int       `json:"target"`
	Inserted       int       `json:"inserted"`
	Batches        int       `json:"batches"`
	PagesProcessed int       `json:"pages_processed"`
	PagesSkipped   int       `json:"pages_skipped"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	Error          string    `json:"error,omitempty"`
}

// StoreStats is a snapshot of persisted progress.
type StoreStats struct {
	Total       int            `json:"total"`
	ByLanguage  map[string]int `json:"by_language"`
	Checkpoints []Checkpoint   `json:"checkpoints"`
}
