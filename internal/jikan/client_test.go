package jikan

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/animedex/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, capacity int) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(config.Jikan{
		BaseURL:        server.URL,
		Timeout:        5 * time.Second,
		PageSize:       PageSize,
		CacheCapacity:  capacity,
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	})
	require.NoError(t, err)
	return client
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func samplePage(ids ...int) SearchResponse {
	resp := SearchResponse{Pagination: &Pagination{LastVisiblePage: 3, HasNextPage: true, CurrentPage: 1}}
	for _, id := range ids {
		resp.Data = append(resp.Data, Anime{MalID: id, Title: "Anime"})
	}
	return resp
}

func TestClient_Search_CurrentSeasonWithoutFilters(t *testing.T) {
	var gotPath, gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		writeJSON(t, w, samplePage(1, 2))
	}, 8)

	resp, err := client.Search(context.Background(), SearchParams{Page: 2})
	require.NoError(t, err)

	assert.Equal(t, "/seasons/now", gotPath)
	assert.Equal(t, "limit=12&page=2", gotQuery)
	assert.Len(t, resp.Data, 2)
	assert.Equal(t, 3, resp.Pagination.LastVisiblePage)
}

func TestClient_Search_WithFilters(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		writeJSON(t, w, samplePage(5))
	}, 8)

	_, err := client.Search(context.Background(), SearchParams{
		Query: "naruto", Type: "tv", OrderBy: "score", MinScore: 7, MaxScore: 10,
	})
	require.NoError(t, err)

	assert.Equal(t, "/anime", gotPath)
	assert.Equal(t, []string{"naruto"}, gotQuery["q"])
	assert.Equal(t, []string{"tv"}, gotQuery["type"])
	assert.Equal(t, []string{"score"}, gotQuery["order_by"])
	assert.Equal(t, []string{"desc"}, gotQuery["sort"])
	assert.Equal(t, []string{"7"}, gotQuery["min_score"])
	assert.NotContains(t, gotQuery, "max_score")
	assert.Equal(t, []string{"12"}, gotQuery["limit"])
}

func TestClient_Search_CacheHitSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(t, w, samplePage(1))
	}, 8)

	params := SearchParams{Query: "bleach", Page: 1}
	first, err := client.Search(context.Background(), params)
	require.NoError(t, err)
	second, err := client.Search(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Same(t, first, second)
	assert.True(t, client.IsCached(params))

	_, err = client.Search(context.Background(), params.WithPage(2))
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load(), "another page is a different cache key")
	assert.Equal(t, 2, client.CacheLen())

	client.PurgeCache()
	assert.Equal(t, 0, client.CacheLen())
}

func TestClient_Search_EvictsLeastRecentlyUsed(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(t, w, samplePage(1))
	}, 2)
	ctx := context.Background()

	a := SearchParams{Query: "a"}
	b := SearchParams{Query: "b"}
	c := SearchParams{Query: "c"}

	_, err := client.Search(ctx, a)
	require.NoError(t, err)
	_, err = client.Search(ctx, b)
	require.NoError(t, err)
	_, err = client.Search(ctx, a) // a becomes most recent
	require.NoError(t, err)
	_, err = client.Search(ctx, c) // evicts b
	require.NoError(t, err)

	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 2, client.CacheLen())
	assert.True(t, client.IsCached(a))
	assert.False(t, client.IsCached(b))
	assert.True(t, client.IsCached(c))
}

func TestClient_RetriesRateLimitThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeJSON(t, w, samplePage(1))
	}, 8)

	resp, err := client.Search(context.Background(), SearchParams{Query: "one piece"})
	require.NoError(t, err)
	assert.Len(t, resp.Data, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_RateLimitExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}, 8)

	params := SearchParams{Query: "one piece"}
	_, err := client.Search(context.Background(), params)
	require.Error(t, err)

	assert.True(t, errors.Is(err, ErrRetriesExhausted))
	assert.True(t, errors.Is(err, ErrRateLimited))
	assert.Equal(t, int32(4), calls.Load(), "one attempt plus three retries")
	assert.False(t, client.IsCached(params), "failures are not cached")
}

func TestClient_ServerErrorIsRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, 8)

	_, err := client.GetAnimeFull(context.Background(), 21)
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.True(t, errors.Is(err, ErrRetriesExhausted))
	assert.Equal(t, int32(4), calls.Load())
}

func TestClient_ClientErrorsAreNotRetried(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{
			name:   "not found",
			status: http.StatusNotFound,
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, ErrNotFound))
			},
		},
		{
			name:   "bad request",
			status: http.StatusBadRequest,
			check: func(t *testing.T, err error) {
				var statusErr *StatusError
				require.True(t, errors.As(err, &statusErr))
				assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
				assert.False(t, errors.Is(err, ErrRetriesExhausted))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}, 8)

			_, err := client.GetAnimeFull(context.Background(), 1)
			require.Error(t, err)
			tt.check(t, err)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestClient_CancelledContextAbortsRequest(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, samplePage(1))
	}, 8)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Search(ctx, SearchParams{Query: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestClient_GetAnimeFull(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/anime/5114/full", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":{"mal_id":5114,"title":"Fullmetal Alchemist: Brotherhood",
			"images":{"jpg":{"large_image_url":"https://cdn.example/5114l.jpg"}},
			"trailer":{"youtube_id":"--IcmZkvL0Q"},"score":9.1,"episodes":64,
			"streaming":[{"name":"Crunchyroll","url":"https://crunchyroll.example/fma"}]}}`))
	}, 8)

	anime, err := client.GetAnimeFull(context.Background(), 5114)
	require.NoError(t, err)

	assert.Equal(t, "Fullmetal Alchemist: Brotherhood", anime.Title)
	assert.Equal(t, "https://cdn.example/5114l.jpg", anime.Images.Poster())
	assert.True(t, anime.Trailer.Available())
	require.NotNil(t, anime.Score)
	assert.InDelta(t, 9.1, *anime.Score, 0.001)
	require.Len(t, anime.StreamingSources(), 1)
	assert.Equal(t, "Crunchyroll", anime.StreamingSources()[0].Name)
}

func TestClient_DetailEndpoints(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/anime/1/episodes":
			assert.Equal(t, "2", r.URL.Query().Get("page"))
			_, _ = w.Write([]byte(`{"data":[{"mal_id":13,"title":"Episode 13","filler":true}],
				"pagination":{"last_visible_page":2,"has_next_page":false}}`))
		case "/anime/1/streaming":
			_, _ = w.Write([]byte(`{"data":[{"name":"Netflix","url":"https://netflix.example/1"}]}`))
		case "/anime/1/external":
			_, _ = w.Write([]byte(`{"data":[{"name":"Official Site","url":"https://official.example"}]}`))
		case "/anime/1/videos":
			_, _ = w.Write([]byte(`{"data":{"promo":[{"title":"PV 1","trailer":{"youtube_id":"abcdefghijk"}}],
				"episodes":[],"music_videos":[]}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}, 8)
	ctx := context.Background()

	episodes, err := client.GetEpisodes(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, episodes.Data, 1)
	assert.True(t, episodes.Data[0].Filler)
	assert.False(t, episodes.Pagination.HasNextPage)

	streaming, err := client.GetStreaming(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []ExternalLink{{Name: "Netflix", URL: "https://netflix.example/1"}}, streaming)

	external, err := client.GetExternal(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Official Site", external[0].Name)

	videos, err := client.GetVideos(ctx, 1)
	require.NoError(t, err)
	require.Len(t, videos.Promo, 1)
	assert.Equal(t, "abcdefghijk", videos.Promo[0].Trailer.YoutubeID)

	_, err = client.GetEpisodes(ctx, 0, 1)
	assert.Error(t, err)
}

func TestClient_Autocomplete(t *testing.T) {
	var gotQuery map[string][]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		writeJSON(t, w, samplePage(1, 2, 3, 4, 5, 6))
	}, 8)

	results, err := client.Autocomplete(context.Background(), "  naru ", 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"naru"}, gotQuery["q"])
	assert.Equal(t, []string{"5"}, gotQuery["limit"])
	assert.Len(t, results, AutocompleteLimit)

	empty, err := client.Autocomplete(context.Background(), "   ", 5)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRateLimiter_WaitHonoursContext(t *testing.T) {
	rl := newRateLimiter(time.Hour)
	require.NoError(t, rl.wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := rl.wait(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
