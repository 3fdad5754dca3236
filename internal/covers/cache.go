package covers

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// MaxPosterSize bounds a single downloaded poster
const MaxPosterSize = 5 << 20

var (
	// ErrNotImage is returned when the upstream answer is not an image
	ErrNotImage = errors.New("poster response is not an image")
	// ErrHostNotAllowed is returned for poster URLs outside the allow-list
	ErrHostNotAllowed = errors.New("poster host not allowed")
)

// DefaultPosterHosts is the image CDN of the records Jikan returns.
var DefaultPosterHosts = HostAllowList{"cdn.myanimelist.net"}

// HostAllowList accepts https URLs whose host is one of the entries or a
// subdomain of one.
type HostAllowList []string

// Allows reports whether rawURL may be fetched or redirected to.
func (l HostAllowList) Allows(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "https" || u.User != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	for _, allowed := range l {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		if allowed == "" {
			continue
		}
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

// Cache keeps local copies of anime posters so favourites and profile pages
// keep rendering when the CDN is slow or unreachable. Only posters on the
// allowed hosts are ever downloaded, redirects included.
type Cache struct {
	cacheDir   string
	hosts      HostAllowList
	httpClient *http.Client
}

// NewCache creates a new poster cache at the specified directory. An empty
// hosts list means DefaultPosterHosts.
func NewCache(cacheDir string, hosts HostAllowList) (*Cache, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	if len(hosts) == 0 {
		hosts = DefaultPosterHosts
	}

	c := &Cache{
		cacheDir: cacheDir,
		hosts:    hosts,
	}
	c.httpClient = &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("too many redirects")
			}
			if !c.hosts.Allows(req.URL.String()) {
				return fmt.Errorf("%w: redirect to %s", ErrHostNotAllowed, req.URL.Host)
			}
			return nil
		},
	}
	return c, nil
}

// GetPoster returns the cached poster of a catalog item, fetching it first
// if needed. A different posterURL for the same item is a different file,
// so metadata refreshes never serve a stale poster.
func (c *Cache) GetPoster(ctx context.Context, malID int, posterURL string) (string, error) {
	if posterURL == "" {
		return "", nil
	}
	if !c.hosts.Allows(posterURL) {
		return "", fmt.Errorf("%w: %s", ErrHostNotAllowed, posterURL)
	}

	cachePath := filepath.Join(c.cacheDir, c.posterFilename(malID, posterURL))
	if _, err := os.Stat(cachePath); err == nil {
		return cachePath, nil
	}

	if err := c.fetchAndCache(ctx, posterURL, cachePath); err != nil {
		return "", err
	}
	return cachePath, nil
}

// Has reports whether the poster for this URL is already on disk.
func (c *Cache) Has(malID int, posterURL string) bool {
	if posterURL == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(c.cacheDir, c.posterFilename(malID, posterURL)))
	return err == nil
}

// Invalidate removes every cached poster of a catalog item.
func (c *Cache) Invalidate(malID int) error {
	pattern := filepath.Join(c.cacheDir, fmt.Sprintf("poster_%d_*", malID))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}

	for _, match := range matches {
		if err := os.Remove(match); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (c *Cache) posterFilename(malID int, posterURL string) string {
	hash := sha256.Sum256([]byte(posterURL))
	ext := strings.ToLower(filepath.Ext(strings.SplitN(posterURL, "?", 2)[0]))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif":
	default:
		ext = ".jpg"
	}
	return fmt.Sprintf("poster_%d_%x%s", malID, hash[:8], ext)
}

func (c *Cache) fetchAndCache(ctx context.Context, url, cachePath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "animedex/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch poster: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch poster: status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return fmt.Errorf("%w: %s", ErrNotImage, ct)
	}

	// Write to a temp file in the same directory so the rename is atomic
	tmpFile, err := os.CreateTemp(c.cacheDir, "poster_tmp_")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}()

	n, err := io.Copy(tmpFile, io.LimitReader(resp.Body, MaxPosterSize+1))
	if err != nil {
		return err
	}
	if n > MaxPosterSize {
		return fmt.Errorf("poster exceeds %d bytes", MaxPosterSize)
	}

	if err := tmpFile.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, cachePath)
}

// CacheDir returns the cache directory path.
func (c *Cache) CacheDir() string {
	return c.cacheDir
}
