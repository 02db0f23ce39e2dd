// Package mediawiki talks to the MediaWiki action API of a site.
package mediawiki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/user/quote-harvester/internal/entity"
	"github.com/user/quote-harvester/internal/repository"
)

const (
	defaultPageSize = 100
	maxBodyBytes    = 32 << 20
)

var (
	_ repository.PageEnumerator = (*Client)(nil)
	_ repository.PageFetcher    = (*Client)(nil)
	_ repository.SiteProber     = (*Client)(nil)
)

// Options configures a Client.
type Options struct {
	UserAgent string
	// MinInterval is the minimum spacing between two requests to the same endpoint.
	MinInterval time.Duration
	Timeout     time.Duration
}

// Client is a thin MediaWiki API client shared by all sites. Every endpoint
// gets its own limiter so one slow wiki never throttles another.
type Client struct {
	httpClient  *http.Client
	userAgent   string
	minInterval time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewClient creates a new MediaWiki client.
func NewClient(httpClient *http.Client, opts Options) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		httpClient:  httpClient,
		userAgent:   opts.UserAgent,
		minInterval: opts.MinInterval,
		limiters:    make(map[string]*rate.Limiter),
	}
}

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

type allPagesResponse struct {
	Error    *apiError `json:"error"`
	Continue struct {
		GapContinue string `json:"gapcontinue"`
	} `json:"continue"`
	Query struct {
		Pages []struct {
			PageID  int64  `json:"pageid"`
			Title   string `json:"title"`
			Missing bool   `json:"missing"`
		} `json:"pages"`
	} `json:"query"`
}

type revisionsResponse struct {
	Error *apiError `json:"error"`
	Query struct {
		Pages []struct {
			PageID    int64 `json:"pageid"`
			Missing   bool  `json:"missing"`
			Revisions []struct {
				Slots struct {
					Main struct {
						Content string `json:"content"`
					} `json:"main"`
				} `json:"slots"`
				Content string `json:"content"`
			} `json:"revisions"`
		} `json:"pages"`
	} `json:"query"`
}

type siteInfoResponse struct {
	Error *apiError `json:"error"`
	Query struct {
		General struct {
			SiteName string `json:"sitename"`
			Lang     string `json:"lang"`
		} `json:"general"`
	} `json:"query"`
}

// NextBatch lists the next namespace-0 pages after token.
func (c *Client) NextBatch(ctx context.Context, site entity.Site, token string) ([]entity.PageRef, string, error) {
	pageSize := site.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	params := url.Values{
		"action":       {"query"},
		"generator":    {"allpages"},
		"gapnamespace": {"0"},
		"gaplimit":     {strconv.Itoa(pageSize)},
	}
	if token != "" {
		params.Set("gapcontinue", token)
	}

	var resp allPagesResponse
	if err := c.get(ctx, site, params, &resp); err != nil {
		return nil, "", err
	}
	if resp.Error != nil {
		return nil, "", fmt.Errorf("allpages %s: %s: %s: %w", site.Key, resp.Error.Code, resp.Error.Info, repository.ErrTransient)
	}

	pages := make([]entity.PageRef, 0, len(resp.Query.Pages))
	for _, p := range resp.Query.Pages {
		if p.Missing || p.PageID == 0 {
			continue
		}
		pages = append(pages, entity.PageRef{ID: p.PageID, Title: p.Title})
	}
	// generator results carry no order guarantee; allpages walks titles
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].Title < pages[j].Title })

	return pages, resp.Continue.GapContinue, nil
}

// FetchContent returns the wikitext of the latest revision of a page.
func (c *Client) FetchContent(ctx context.Context, site entity.Site, pageID int64) (string, error) {
	id := strconv.FormatInt(pageID, 10)
	params := url.Values{
		"action":  {"query"},
		"prop":    {"revisions"},
		"pageids": {id},
		"rvprop":  {"content"},
		"rvslots": {"main"},
	}

	var resp revisionsResponse
	if err := c.get(ctx, site, params, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", fmt.Errorf("revisions %s/%s: %s: %s: %w", site.Key, id, resp.Error.Code, resp.Error.Info, repository.ErrTransient)
	}

	for _, p := range resp.Query.Pages {
		if p.PageID != pageID || p.Missing || len(p.Revisions) == 0 {
			continue
		}
		rev := p.Revisions[0]
		if rev.Slots.Main.Content != "" {
			return rev.Slots.Main.Content, nil
		}
		return rev.Content, nil
	}
	return "", nil
}

// Probe checks that the endpoint answers a siteinfo query.
func (c *Client) Probe(ctx context.Context, site entity.Site) error {
	params := url.Values{
		"action": {"query"},
		"meta":   {"siteinfo"},
		"siprop": {"general"},
	}
	var resp siteInfoResponse
	if err := c.get(ctx, site, params, &resp); err != nil {
		return err
	}
	if resp.Error != nil {
		return fmt.Errorf("siteinfo %s: %s: %s", site.Key, resp.Error.Code, resp.Error.Info)
	}
	slog.Debug("Site probed", "site", site.Key, "sitename", resp.Query.General.SiteName, "lang", resp.Query.General.Lang)
	return nil
}

func (c *Client) limiter(endpoint string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[endpoint]
	if !ok {
		limit := rate.Inf
		if c.minInterval > 0 {
			limit = rate.Every(c.minInterval)
		}
		l = rate.NewLimiter(limit, 1)
		c.limiters[endpoint] = l
	}
	return l
}

func (c *Client) get(ctx context.Context, site entity.Site, params url.Values, out any) error {
	if err := c.limiter(site.APIURL).Wait(ctx); err != nil {
		return err
	}

	params.Set("format", "json")
	params.Set("formatversion", "2")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, site.APIURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", site.Key, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("request to %s failed: %v: %w", site.Key, err, repository.ErrTransient)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s answered status %d: %w", site.Key, resp.StatusCode, repository.ErrTransient)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %v: %w", site.Key, err, repository.ErrTransient)
	}
	return nil
}
