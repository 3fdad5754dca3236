package http

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/animedex/internal/event"
	"github.com/mrlokans/animedex/internal/tasks"
)

func TestThemeToggle(t *testing.T) {
	app := newTestApp(t, false)

	w := app.postForm("/theme/toggle", url.Values{"next": {"/?q=bebop"}}, nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/?q=bebop", w.Header().Get("Location"))

	var theme *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == ThemeCookie {
			theme = c
		}
	}
	require.NotNil(t, theme)
	assert.Equal(t, ThemeDark, theme.Value)

	w = app.do(http.MethodPost, "/theme/toggle", "", []*http.Cookie{theme}, map[string]string{"Accept": "application/json"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"theme":"light"}`, w.Body.String())

	w = app.get("/", []*http.Cookie{theme})
	assert.Contains(t, w.Body.String(), `data-theme="dark"`)
}

func TestThemeToggle_RejectsExternalRedirect(t *testing.T) {
	app := newTestApp(t, false)

	w := app.postForm("/theme/toggle", url.Values{"next": {"https://evil.example/"}}, nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestNextTheme(t *testing.T) {
	assert.Equal(t, ThemeDark, NextTheme(ThemeLight))
	assert.Equal(t, ThemeLight, NextTheme(ThemeDark))
	assert.Equal(t, ThemeDark, NextTheme("anything"))
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, false)

	w := app.get("/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "ok", resp.Checks["database"])
	assert.Equal(t, "test", resp.Version)
	assert.Equal(t, 3, resp.Stats["search_cache_entries"])

	w = app.get("/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pong")
}

func TestHealth_DatabaseDown(t *testing.T) {
	app := newTestApp(t, false)
	require.NoError(t, app.db.Close())

	w := app.get("/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "unhealthy")
}

func TestTasks(t *testing.T) {
	app := newTestApp(t, false)

	t.Run("types", func(t *testing.T) {
		w := app.get("/api/tasks/types", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			TaskTypes []tasks.TypeInfo `json:"task_types"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.TaskTypes, 3)
	})

	t.Run("run", func(t *testing.T) {
		w := app.do(http.MethodPost, "/api/tasks/refresh_favourite/run", `{"mal_id":1}`, nil,
			map[string]string{"Content-Type": "application/json"})
		require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
		assert.Contains(t, w.Body.String(), "task-1")
		require.Len(t, app.queue.tasks, 1)
		assert.Equal(t, tasks.RefreshFavouriteTask{MalID: 1}, app.queue.tasks[0])
	})

	t.Run("missing argument", func(t *testing.T) {
		w := app.do(http.MethodPost, "/api/tasks/refresh_favourite/run", "", nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "mal_id is required")
	})

	t.Run("unknown type", func(t *testing.T) {
		w := app.do(http.MethodPost, "/api/tasks/reindex/run", "", nil, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("status", func(t *testing.T) {
		w := app.get("/api/tasks/task-1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"success"`)

		w = app.get("/api/tasks/task-42", nil)
		assert.Contains(t, w.Body.String(), `"status":"not_found"`)
	})

	t.Run("queue not registered", func(t *testing.T) {
		app.queue.err = fmt.Errorf("%w: cleanup_audit_events", tasks.ErrQueueNotRegistered)
		defer func() { app.queue.err = nil }()

		w := app.do(http.MethodPost, "/api/tasks/cleanup_audit_events/run", "", nil, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "not available")
	})
}

func TestTasks_RequireLoginWithAccounts(t *testing.T) {
	app := newTestApp(t, true)

	w := app.get("/api/tasks/types", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	cookies := app.register(t, "alice")
	w = app.get("/api/tasks/types", cookies)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestEventStream_Filtering(t *testing.T) {
	em := event.NewEventManager()
	s := NewEventStream(em)
	defer s.Close()

	alice := &streamClient{userID: 1, ch: make(chan streamMessage, sseBufferSize)}
	bob := &streamClient{userID: 2, ch: make(chan streamMessage, sseBufferSize)}
	require.True(t, s.add(alice))
	require.True(t, s.add(bob))
	assert.Equal(t, 2, s.ClientCount())

	em.Publish(event.Event{Type: event.FavouritesChanged, Data: event.FavouriteChange{UserID: 1, MalID: 5, Added: true}})
	em.Publish(event.Event{Type: event.AuthStateChanged, Data: event.AuthChange{Kind: event.AuthLogin, UserID: 2}})

	require.Len(t, alice.ch, 2)
	assert.Equal(t, "favourites-changed", (<-alice.ch).Name)
	assert.Equal(t, sseEventChanged, (<-alice.ch).Name)

	require.Len(t, bob.ch, 1)
	assert.Equal(t, sseEventChanged, (<-bob.ch).Name)

	s.remove(bob)
	assert.Equal(t, 1, s.ClientCount())

	s.Close()
	_, open := <-alice.ch
	assert.False(t, open)
	assert.False(t, s.add(&streamClient{ch: make(chan streamMessage, 1)}))
}

func TestEventStream_SlowClientDoesNotBlock(t *testing.T) {
	em := event.NewEventManager()
	s := NewEventStream(em)
	defer s.Close()

	client := &streamClient{ch: make(chan streamMessage, sseBufferSize)}
	require.True(t, s.add(client))

	done := make(chan struct{})
	go func() {
		for i := 0; i < sseBufferSize*2; i++ {
			em.Publish(event.Event{Type: event.AuthStateChanged, Data: event.AuthChange{Kind: event.AuthLogout}})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a full client buffer")
	}
	assert.Len(t, client.ch, sseBufferSize)
}

func TestEventStream_ServesSSE(t *testing.T) {
	app := newTestApp(t, false)
	srv := httptest.NewServer(app.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "retry: 3000\n", line)

	app.events.Publish(event.Event{Type: event.AuthStateChanged, Data: event.AuthChange{Kind: event.AuthLogin}})

	var got []string
	for len(got) < 2 {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if line = strings.TrimSpace(line); line != "" {
			got = append(got, line)
		}
	}
	assert.Equal(t, "event:auth-changed", got[0])
	assert.Equal(t, `data:{"kind":"login"}`, got[1])
}
