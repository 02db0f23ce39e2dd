package entity

import "time"

// Quote mirrors the `quotes` table schema.
type Quote struct {
	ID          int64
	Language    string
	SiteKey     string
	PageID      int64
	PageTitle   string
	Text        string
	ContentHash string
	SourceURL   string
	FetchedAt   time.Time
}

// Checkpoint is the persisted enumeration cursor of one site.
type Checkpoint struct {
	SiteKey   string    `json:"site_key"`
	Token     string    `json:"token"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PageRef identifies one page returned by a site enumeration batch.
type PageRef struct {
	ID    int64
	Title string
}
