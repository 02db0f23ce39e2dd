package repository

import (
	"context"

	"github.com/user/quote-harvester/internal/entity"
)

// PageEnumerator lists the pages of a site one bounded batch at a time.
type PageEnumerator interface {
	// NextBatch returns the pages after token and the token of the following batch.
	// An empty token means start from the beginning on input and no more pages on output.
	NextBatch(ctx context.Context, site entity.Site, token string) ([]entity.PageRef, string, error)
}

// PageFetcher retrieves the raw markup of a single page.
type PageFetcher interface {
	// FetchContent returns "" when the page has no retrievable revision.
	FetchContent(ctx context.Context, site entity.Site, pageID int64) (string, error)
}

// SiteProber checks that a site endpoint answers before any crawl state is touched.
type SiteProber interface {
	Probe(ctx context.Context, site entity.Site) error
}
