package usecase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/user/quote-harvester/internal/adapter/sqlite"
	"github.com/user/quote-harvester/internal/entity"
	"github.com/user/quote-harvester/internal/repository"
)

type fakeBatch struct {
	pages []entity.PageRef
	next  string
}

// fakeWiki serves a fixed page space split into batches keyed by token.
type fakeWiki struct {
	mu         sync.Mutex
	batches    map[string]fakeBatch
	content    map[int64]string
	fetchErr   map[int64]error
	enumFails  int
	enumCalls  []string
	fetched    []int64
	beforeFetch func(id int64)
}

// newFakeWiki builds nBatches batches of perBatch pages; every page holds
// quotesPerPage distinct bullet quotes. Tokens are T1, T2, ...
func newFakeWiki(nBatches, perBatch, quotesPerPage int) *fakeWiki {
	w := &fakeWiki{
		batches:  make(map[string]fakeBatch),
		content:  make(map[int64]string),
		fetchErr: make(map[int64]error),
	}
	id := int64(1)
	for b := 0; b < nBatches; b++ {
		token := ""
		if b > 0 {
			token = fmt.Sprintf("T%d", b)
		}
		next := ""
		if b < nBatches-1 {
			next = fmt.Sprintf("T%d", b+1)
		}
		var pages []entity.PageRef
		for p := 0; p < perBatch; p++ {
			pages = append(pages, entity.PageRef{ID: id, Title: fmt.Sprintf("Page %03d", id)})
			var lines []string
			for q := 0; q < quotesPerPage; q++ {
				lines = append(lines, fmt.Sprintf("* Quote number %d taken from page %d.", q, id))
			}
			w.content[id] = "== Quotes ==\n" + strings.Join(lines, "\n")
			id++
		}
		w.batches[token] = fakeBatch{pages: pages, next: next}
	}
	return w
}

func (w *fakeWiki) NextBatch(ctx context.Context, site entity.Site, token string) ([]entity.PageRef, string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.enumCalls = append(w.enumCalls, token)
	if w.enumFails != 0 {
		if w.enumFails > 0 {
			w.enumFails--
		}
		return nil, "", fmt.Errorf("api down: %w", repository.ErrTransient)
	}
	b, ok := w.batches[token]
	if !ok {
		return nil, "", nil
	}
	return b.pages, b.next, nil
}

func (w *fakeWiki) FetchContent(ctx context.Context, site entity.Site, pageID int64) (string, error) {
	if w.beforeFetch != nil {
		w.beforeFetch(pageID)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fetched = append(w.fetched, pageID)
	if err := w.fetchErr[pageID]; err != nil {
		return "", err
	}
	return w.content[pageID], nil
}

func (w *fakeWiki) Probe(ctx context.Context, site entity.Site) error { return nil }

func (w *fakeWiki) fetchedIDs() []int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]int64(nil), w.fetched...)
}

// failingQuotes fails InsertBatch for the listed pages.
type failingQuotes struct {
	repository.QuoteRepository
	failPages map[int64]bool
}

func (f *failingQuotes) InsertBatch(ctx context.Context, quotes []entity.Quote) (int, error) {
	if len(quotes) > 0 && f.failPages[quotes[0].PageID] {
		return 0, errors.New("disk full")
	}
	return f.QuoteRepository.InsertBatch(ctx, quotes)
}

type testStore struct {
	db          *sql.DB
	quotes      *sqlite.QuoteRepoImpl
	checkpoints *sqlite.CheckpointRepoImpl
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlite.EnsureSchema(ctx, db))
	return &testStore{
		db:          db,
		quotes:      sqlite.NewQuoteRepo(db),
		checkpoints: sqlite.NewCheckpointRepo(db),
	}
}

func (s *testStore) count(t *testing.T, lang string) int {
	t.Helper()
	n, err := s.quotes.Count(context.Background(), lang)
	require.NoError(t, err)
	return n
}

func (s *testStore) checkpoint(t *testing.T, site string) (string, bool) {
	t.Helper()
	token, ok, err := s.checkpoints.Get(context.Background(), site)
	require.NoError(t, err)
	return token, ok
}

func testSite(quota int) entity.Site {
	return entity.Site{
		Language: "en",
		Key:      "enwikiquote",
		APIURL:   "https://en.wikiquote.org/w/api.php",
		BaseURL:  "https://en.wikiquote.org/wiki/",
		Quota:    quota,
	}
}

var fastBackoff = BackoffPolicy{Initial: time.Millisecond, Max: 2 * time.Millisecond}
