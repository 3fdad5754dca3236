package covers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

func posterServer(t *testing.T, contentType string, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write([]byte("fake image data"))
	}))
	t.Cleanup(server.Close)
	return server
}

// newTestCache returns a cache that trusts the TLS test server on 127.0.0.1.
func newTestCache(t *testing.T, server *httptest.Server) *Cache {
	t.Helper()
	cache, err := NewCache(t.TempDir(), HostAllowList{"127.0.0.1"})
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}
	cache.httpClient.Transport = server.Client().Transport
	return cache
}

func TestNewCache(t *testing.T) {
	cacheDir := filepath.Join(t.TempDir(), "posters")

	cache, err := NewCache(cacheDir, nil)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}
	if cache.CacheDir() != cacheDir {
		t.Errorf("expected cache dir %s, got %s", cacheDir, cache.CacheDir())
	}
	if len(cache.hosts) != 1 || cache.hosts[0] != "cdn.myanimelist.net" {
		t.Errorf("expected default poster hosts, got %v", cache.hosts)
	}
	if _, err := os.Stat(cacheDir); os.IsNotExist(err) {
		t.Error("cache directory was not created")
	}
}

func TestGetPoster_EmptyURL(t *testing.T) {
	cache, _ := NewCache(t.TempDir(), nil)

	path, err := cache.GetPoster(context.Background(), 1, "")
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path for empty URL, got %s", path)
	}
}

func TestGetPoster_FetchAndCache(t *testing.T) {
	var hits atomic.Int32
	server := posterServer(t, "image/jpeg", &hits)
	cache := newTestCache(t, server)
	posterURL := server.URL + "/images/anime/1/1l.jpg"

	path1, err := cache.GetPoster(context.Background(), 1, posterURL)
	if err != nil {
		t.Fatalf("GetPoster failed: %v", err)
	}
	if !strings.HasSuffix(path1, ".jpg") {
		t.Errorf("expected .jpg file, got %s", path1)
	}
	if !cache.Has(1, posterURL) {
		t.Error("poster should be reported as cached")
	}

	path2, err := cache.GetPoster(context.Background(), 1, posterURL)
	if err != nil {
		t.Fatalf("GetPoster (cached) failed: %v", err)
	}
	if path1 != path2 {
		t.Error("expected same path for cached request")
	}
	if hits.Load() != 1 {
		t.Errorf("expected a single download, got %d", hits.Load())
	}
}

func TestGetPoster_FetchError(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cache := newTestCache(t, server)

	if _, err := cache.GetPoster(context.Background(), 1, server.URL+"/missing.jpg"); err == nil {
		t.Error("expected error for 404 response")
	}
}

func TestGetPoster_RejectsNonImage(t *testing.T) {
	server := posterServer(t, "text/html", nil)
	cache := newTestCache(t, server)

	_, err := cache.GetPoster(context.Background(), 1, server.URL+"/poster.jpg")
	if !errors.Is(err, ErrNotImage) {
		t.Errorf("expected ErrNotImage, got %v", err)
	}
	if cache.Has(1, server.URL+"/poster.jpg") {
		t.Error("rejected poster must not be cached")
	}
}

func TestInvalidate(t *testing.T) {
	server := posterServer(t, "image/webp", nil)
	cache := newTestCache(t, server)

	path, err := cache.GetPoster(context.Background(), 7, server.URL+"/poster.webp")
	if err != nil {
		t.Fatalf("GetPoster failed: %v", err)
	}
	other, err := cache.GetPoster(context.Background(), 70, server.URL+"/poster.webp")
	if err != nil {
		t.Fatalf("GetPoster failed: %v", err)
	}

	if err := cache.Invalidate(7); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("cached file should be deleted after invalidation")
	}
	if _, err := os.Stat(other); err != nil {
		t.Error("posters of other items must survive invalidation")
	}
}

func TestGetPoster_RejectsInternalURL(t *testing.T) {
	var hits atomic.Int32
	internal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("secret"))
	}))
	defer internal.Close()

	cache, _ := NewCache(t.TempDir(), nil)

	path, err := cache.GetPoster(context.Background(), 7, internal.URL+"/admin/secret")
	if !errors.Is(err, ErrHostNotAllowed) {
		t.Fatalf("expected ErrHostNotAllowed, got %v", err)
	}
	if path != "" {
		t.Errorf("expected no path, got %s", path)
	}
	if hits.Load() != 0 {
		t.Errorf("internal server must not be contacted, got %d requests", hits.Load())
	}
}

func TestGetPoster_RejectsRedirectOffList(t *testing.T) {
	var hits atomic.Int32
	internal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("secret"))
	}))
	defer internal.Close()

	redirector := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, internal.URL+"/admin/secret.png", http.StatusFound)
	}))
	defer redirector.Close()

	cache := newTestCache(t, redirector)

	_, err := cache.GetPoster(context.Background(), 1, redirector.URL+"/poster.png")
	if !errors.Is(err, ErrHostNotAllowed) {
		t.Fatalf("expected ErrHostNotAllowed, got %v", err)
	}
	if hits.Load() != 0 {
		t.Errorf("redirect target must not be contacted, got %d requests", hits.Load())
	}
}

func TestHostAllowList(t *testing.T) {
	hosts := HostAllowList{"cdn.myanimelist.net", " IMG.Example "}

	tests := []struct {
		url  string
		want bool
	}{
		{"https://cdn.myanimelist.net/images/anime/4/19644l.jpg", true},
		{"https://CDN.myanimelist.net/x.jpg", true},
		{"https://a.cdn.myanimelist.net/x.jpg", true},
		{"https://img.example/x.jpg", true},
		{"http://cdn.myanimelist.net/x.jpg", false},
		{"https://cdn.myanimelist.net.evil.example/x.jpg", false},
		{"https://evilcdn.myanimelist.net.example/x.jpg", false},
		{"https://user@cdn.myanimelist.net/x.jpg", false},
		{"https://127.0.0.1/admin", false},
		{"/static/img/poster.jpg", false},
		{"", false},
		{"://bad", false},
	}
	for _, tt := range tests {
		if got := hosts.Allows(tt.url); got != tt.want {
			t.Errorf("Allows(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}

	if (HostAllowList{}).Allows("https://cdn.myanimelist.net/x.jpg") {
		t.Error("empty list must reject everything")
	}
}

func TestPosterFilename(t *testing.T) {
	cache, _ := NewCache(t.TempDir(), nil)

	name1 := cache.posterFilename(1, "https://cdn.example/a.jpg")
	if name1 != cache.posterFilename(1, "https://cdn.example/a.jpg") {
		t.Error("same inputs should produce same filename")
	}
	if name1 == cache.posterFilename(1, "https://cdn.example/b.jpg") {
		t.Error("different URLs should produce different filenames")
	}
	if name1 == cache.posterFilename(2, "https://cdn.example/a.jpg") {
		t.Error("different ids should produce different filenames")
	}
	if got := cache.posterFilename(1, "https://cdn.example/a.webp?s=1"); !strings.HasSuffix(got, ".webp") {
		t.Errorf("expected .webp extension, got %s", got)
	}
	if got := cache.posterFilename(1, "https://cdn.example/poster"); !strings.HasSuffix(got, ".jpg") {
		t.Errorf("expected .jpg fallback, got %s", got)
	}
}
