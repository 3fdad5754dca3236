package jikan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/mrlokans/animedex/internal/config"
)

const (
	userAgent = "animedex/1.0 (https://github.com/mrlokans/animedex)"

	defaultTimeout        = 10 * time.Second
	defaultMinInterval    = 350 * time.Millisecond
	defaultMaxRetries     = 3
	defaultInitialBackoff = 1 * time.Second
	defaultMaxBackoff     = 30 * time.Second

	maxErrorBody = 512
)

// Client talks to the Jikan v4 REST API. Result pages of Search are kept in
// a bounded LRU cache; 429 and 5xx answers are retried with capped
// exponential backoff.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *rateLimiter
	cache       *searchCache
	pageSize    int

	maxRetries     uint64
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

type rateLimiter struct {
	mu       sync.Mutex
	lastCall time.Time
	interval time.Duration
}

func newRateLimiter(interval time.Duration) *rateLimiter {
	return &rateLimiter{interval: interval}
}

// wait blocks until interval has passed since the previous call or ctx ends.
func (r *rateLimiter) wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	since := time.Since(r.lastCall)
	if since < r.interval {
		timer := time.NewTimer(r.interval - since)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	r.lastCall = time.Now()
	return nil
}

// NewClient creates a Jikan client from configuration, filling zero values
// with the public API defaults.
func NewClient(cfg config.Jikan) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = config.DefaultJikanBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MinInterval < 0 {
		cfg.MinInterval = defaultMinInterval
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = PageSize
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaultInitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxBackoff
	}

	cache, err := newSearchCache(cfg.CacheCapacity)
	if err != nil {
		return nil, err
	}

	return &Client{
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		rateLimiter:    newRateLimiter(cfg.MinInterval),
		cache:          cache,
		pageSize:       cfg.PageSize,
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
	}, nil
}

// Search returns one page of results. Without filters it lists the current
// season, otherwise it queries /anime. Identical parameter sets are served
// from the cache without a network call.
func (c *Client) Search(ctx context.Context, params SearchParams) (*SearchResponse, error) {
	if params.Limit <= 0 {
		params.Limit = c.pageSize
	}
	params = params.Normalize()
	key := params.CacheKey()

	if cached, ok := c.cache.get(key); ok {
		return cached, nil
	}

	var resp SearchResponse
	if params.HasFilters() {
		err := c.getJSON(ctx, "/anime", params.Values(), &resp)
		if err != nil {
			return nil, fmt.Errorf("search anime: %w", err)
		}
	} else {
		q := url.Values{}
		q.Set("page", strconv.Itoa(params.Page))
		q.Set("limit", strconv.Itoa(params.Limit))
		if err := c.getJSON(ctx, "/seasons/now", q, &resp); err != nil {
			return nil, fmt.Errorf("fetch current season: %w", err)
		}
	}

	c.cache.add(key, &resp)
	return &resp, nil
}

// IsCached reports whether Search would answer params from the cache.
func (c *Client) IsCached(params SearchParams) bool {
	if params.Limit <= 0 {
		params.Limit = c.pageSize
	}
	return c.cache.contains(params.CacheKey())
}

// CacheLen returns the number of cached result pages.
func (c *Client) CacheLen() int {
	return c.cache.len()
}

// PurgeCache drops every cached result page.
func (c *Client) PurgeCache() {
	c.cache.purge()
}

// Autocomplete returns up to limit titles matching the prefix.
func (c *Client) Autocomplete(ctx context.Context, term string, limit int) ([]Anime, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = AutocompleteLimit
	}

	q := url.Values{}
	q.Set("q", term)
	q.Set("limit", strconv.Itoa(limit))

	var resp SearchResponse
	if err := c.getJSON(ctx, "/anime", q, &resp); err != nil {
		return nil, fmt.Errorf("autocomplete %q: %w", term, err)
	}
	if len(resp.Data) > limit {
		resp.Data = resp.Data[:limit]
	}
	return resp.Data, nil
}

// GetAnimeFull fetches the complete record including streaming and external links.
func (c *Client) GetAnimeFull(ctx context.Context, id int) (*Anime, error) {
	if id <= 0 {
		return nil, fmt.Errorf("invalid anime id: %d", id)
	}
	var env animeEnvelope
	if err := c.getJSON(ctx, fmt.Sprintf("/anime/%d/full", id), nil, &env); err != nil {
		return nil, fmt.Errorf("fetch anime %d: %w", id, err)
	}
	return &env.Data, nil
}

// GetEpisodes fetches one page of the episode list.
func (c *Client) GetEpisodes(ctx context.Context, id, page int) (*EpisodesResponse, error) {
	if id <= 0 {
		return nil, fmt.Errorf("invalid anime id: %d", id)
	}
	if page < 1 {
		page = 1
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))

	var resp EpisodesResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/anime/%d/episodes", id), q, &resp); err != nil {
		return nil, fmt.Errorf("fetch episodes of %d: %w", id, err)
	}
	return &resp, nil
}

// GetStreaming lists the legal streaming services carrying the anime.
func (c *Client) GetStreaming(ctx context.Context, id int) ([]ExternalLink, error) {
	return c.getLinks(ctx, id, "streaming")
}

// GetExternal lists external reference sites (official site, wikis, ...).
func (c *Client) GetExternal(ctx context.Context, id int) ([]ExternalLink, error) {
	return c.getLinks(ctx, id, "external")
}

// GetVideos fetches promos, episode videos and music videos.
func (c *Client) GetVideos(ctx context.Context, id int) (*Videos, error) {
	if id <= 0 {
		return nil, fmt.Errorf("invalid anime id: %d", id)
	}
	var env videosEnvelope
	if err := c.getJSON(ctx, fmt.Sprintf("/anime/%d/videos", id), nil, &env); err != nil {
		return nil, fmt.Errorf("fetch videos of %d: %w", id, err)
	}
	return &env.Data, nil
}

func (c *Client) getLinks(ctx context.Context, id int, kind string) ([]ExternalLink, error) {
	if id <= 0 {
		return nil, fmt.Errorf("invalid anime id: %d", id)
	}
	var env linksEnvelope
	if err := c.getJSON(ctx, fmt.Sprintf("/anime/%d/%s", id, kind), nil, &env); err != nil {
		return nil, fmt.Errorf("fetch %s links of %d: %w", kind, id, err)
	}
	return env.Data, nil
}

func (c *Client) backoff() retry.Backoff {
	b := retry.NewExponential(c.initialBackoff)
	b = retry.WithCappedDuration(c.maxBackoff, b)
	return retry.WithMaxRetries(c.maxRetries, b)
}

// getJSON performs a GET with rate limiting and retries, decoding the body into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	attempts := 0
	err := retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		attempts++
		err := c.doRequest(ctx, target, out)
		if err != nil && isRetryableError(err) {
			log.Printf("[JIKAN] %s failed (attempt %d): %v", path, attempts, err)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil && isRetryableError(err) {
		return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempts, err)
	}
	return err
}

func (c *Client) doRequest(ctx context.Context, target string, out any) error {
	if err := c.rateLimiter.wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
