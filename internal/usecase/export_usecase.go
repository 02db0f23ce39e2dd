package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/user/quote-harvester/internal/repository"
	"github.com/user/quote-harvester/pkg/config"
)

// ExportOptions selects what an export writes. Limit <= 0 exports everything;
// Scope decides whether Limit applies to the whole file or to each language.
type ExportOptions struct {
	Limit     int
	Scope     string
	Languages []string
}

// Exporter writes stored quotes for the downstream embedding pipeline.
type Exporter interface {
	Export(ctx context.Context, w io.Writer, opts ExportOptions) (int, error)
}

type exportRecord struct {
	Language  string    `json:"language"`
	SiteKey   string    `json:"site_key"`
	PageID    int64     `json:"page_id"`
	PageTitle string    `json:"page_title"`
	Text      string    `json:"text"`
	Hash      string    `json:"hash"`
	SourceURL string    `json:"source_url"`
	FetchedAt time.Time `json:"fetched_at"`
}

type exportUseCase struct {
	quotes repository.QuoteRepository
}

// NewExporter creates a new Exporter.
func NewExporter(quotes repository.QuoteRepository) Exporter {
	return &exportUseCase{quotes: quotes}
}

// Export writes one JSON object per line and returns how many were written.
func (uc *exportUseCase) Export(ctx context.Context, w io.Writer, opts ExportOptions) (int, error) {
	var groups []string
	switch opts.Scope {
	case config.ExportScopePerLanguage:
		groups = opts.Languages
	case config.ExportScopeGlobal, "":
		groups = []string{""}
	default:
		return 0, fmt.Errorf("unknown export scope %q", opts.Scope)
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	written := 0
	for _, lang := range groups {
		quotes, err := uc.quotes.List(ctx, lang, opts.Limit)
		if err != nil {
			return written, err
		}
		for _, q := range quotes {
			if err := enc.Encode(exportRecord{
				Language:  q.Language,
				SiteKey:   q.SiteKey,
				PageID:    q.PageID,
				PageTitle: q.PageTitle,
				Text:      q.Text,
				Hash:      q.ContentHash,
				SourceURL: q.SourceURL,
				FetchedAt: q.FetchedAt,
			}); err != nil {
				return written, fmt.Errorf("failed to write export record: %w", err)
			}
			written++
		}
	}
	return written, nil
}
