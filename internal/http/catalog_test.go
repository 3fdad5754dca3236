package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/animedex/internal/jikan"
)

func TestSearchPage_CurrentSeason(t *testing.T) {
	app := newTestApp(t, false)

	w := app.get("/", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Cowboy Bebop")
	assert.Contains(t, body, "Witch Hunter Robin")
	assert.Contains(t, body, "8.75")
	assert.Contains(t, body, "/ui/anime/1")

	require.Len(t, app.catalog.searches, 1)
	assert.Equal(t, 1, app.catalog.searches[0].Page)
	assert.False(t, app.catalog.searches[0].HasFilters())
}

func TestSearchPage_FiltersAndPage(t *testing.T) {
	app := newTestApp(t, false)

	w := app.get("/?q=bebop&type=movie&min_score=7&page=3&view=list", nil)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, app.catalog.searches, 1)
	params := app.catalog.searches[0]
	assert.Equal(t, "bebop", params.Query)
	assert.Equal(t, "movie", params.Type)
	assert.Equal(t, 7.0, params.MinScore)
	assert.Equal(t, 3, params.Page)

	body := w.Body.String()
	assert.Contains(t, body, "Movie", "active filter chip")
	assert.Contains(t, body, "page=4", "next page link keeps filters")
}

func TestSearchPage_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"rate limited", jikan.ErrRateLimited, http.StatusTooManyRequests, "Rate limit reached"},
		{"server error", &jikan.StatusError{StatusCode: 503}, http.StatusBadGateway, "An error occurred while fetching the data."},
		{"network", errors.New("connection refused"), http.StatusBadGateway, "An error occurred while fetching the data."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, false)
			app.catalog.searchErr = tt.err

			w := app.get("/", nil)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.message)
		})
	}
}

func TestAnimePage(t *testing.T) {
	app := newTestApp(t, false)

	t.Run("renders details", func(t *testing.T) {
		w := app.get("/ui/anime/1", nil)

		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, "Cowboy Bebop")
		assert.Contains(t, body, "Space bounty hunters.")
		assert.Contains(t, body, "Sci-Fi")
		assert.Contains(t, body, "Asteroid Blues")
		assert.Contains(t, body, "Crunchyroll")
	})

	t.Run("unknown anime", func(t *testing.T) {
		w := app.get("/ui/anime/999", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "Anime not found.")
	})

	t.Run("invalid id", func(t *testing.T) {
		w := app.get("/ui/anime/abc", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPreview(t *testing.T) {
	app := newTestApp(t, false)

	t.Run("fragment", func(t *testing.T) {
		w := app.do(http.MethodGet, "/ui/anime/5/preview", "", nil, map[string]string{"HX-Request": "true"})

		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, "Cowboy Bebop: The Movie")
		assert.Contains(t, body, "No synopsis available.")
		assert.NotContains(t, body, "<html")
	})

	t.Run("json", func(t *testing.T) {
		w := app.getJSON("/ui/anime/5/preview", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Cowboy Bebop: The Movie", resp["Title"])
		assert.Equal(t, "https://www.youtube.com/watch?v=abcdefghijk", resp["TrailerURL"])
	})

	t.Run("missing", func(t *testing.T) {
		w := app.getJSON("/ui/anime/404/preview", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestWatch(t *testing.T) {
	app := newTestApp(t, false)

	t.Run("streaming link first", func(t *testing.T) {
		w := app.getJSON("/ui/anime/1/watch", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "streaming", resp["Source"])
		assert.Equal(t, "Crunchyroll", resp["Provider"])
		assert.Equal(t, false, resp["Embeddable"])
	})

	t.Run("trailer fallback", func(t *testing.T) {
		w := app.getJSON("/ui/anime/5/watch", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "trailer", resp["Source"])
		assert.Equal(t, "https://www.youtube.com/embed/abcdefghijk", resp["EmbedURL"])
	})

	t.Run("nothing to play", func(t *testing.T) {
		w := app.getJSON("/ui/anime/7/watch", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "No streaming links available.")

		w = app.get("/ui/anime/7/watch", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "No streaming links available.")
	})
}

func TestCatalogAPI(t *testing.T) {
	app := newTestApp(t, false)

	t.Run("search", func(t *testing.T) {
		w := app.get("/api/anime/search?q=cowboy&page=2", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data       []map[string]any `json:"data"`
			Pagination jikan.Pagination `json:"pagination"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Data, 3)
		assert.Equal(t, 2, resp.Pagination.CurrentPage)
		assert.Equal(t, false, resp.Data[0]["Favourite"])
	})

	t.Run("autocomplete", func(t *testing.T) {
		w := app.get("/api/anime/autocomplete?q=cowboy&limit=50", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data []struct {
				ID    int    `json:"id"`
				Title string `json:"title"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 2)
		assert.Equal(t, "Cowboy Bebop", resp.Data[0].Title)
	})

	t.Run("anime", func(t *testing.T) {
		w := app.get("/api/anime/1", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"favourite":false`)
	})

	t.Run("invalid id", func(t *testing.T) {
		w := app.get("/api/anime/nope", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid anime id")
	})

	t.Run("not found", func(t *testing.T) {
		w := app.get("/api/anime/999", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "anime not found")
	})

	t.Run("sub-resources", func(t *testing.T) {
		for _, path := range []string{
			"/api/anime/1/episodes?page=2",
			"/api/anime/1/streaming",
			"/api/anime/1/external",
			"/api/anime/1/videos",
		} {
			w := app.get(path, nil)
			assert.Equal(t, http.StatusOK, w.Code, path)
		}
		assert.Contains(t, app.get("/api/anime/1/streaming", nil).Body.String(), "crunchyroll.com")
	})

	t.Run("search rate limited", func(t *testing.T) {
		app.catalog.searchErr = jikan.ErrRateLimited
		defer func() { app.catalog.searchErr = nil }()

		w := app.get("/api/anime/search", nil)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Contains(t, w.Body.String(), "rate_limited")
	})
}

func TestAccountRoutesDisabledWithoutAuth(t *testing.T) {
	app := newTestApp(t, false)

	for _, path := range []string{"/favourites", "/profile", "/api/favourites", "/login"} {
		w := app.get(path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}
