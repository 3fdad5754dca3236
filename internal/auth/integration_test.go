package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/animedex/internal/database/users"
	"github.com/mrlokans/animedex/internal/entities"
	"github.com/mrlokans/animedex/internal/event"
)

func setupTestRouter(t *testing.T) (*gin.Engine, *testEnv) {
	t.Helper()
	env := setupTestEnv(t)
	return newTestRouter(t, env, nil), env
}

// newTestRouter serves the auth routes of env. avatarStore may be nil.
func newTestRouter(t *testing.T, env *testEnv, avatarStore AvatarStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mw := NewMiddleware(env.service, env.sm, testAuthConfig())
	controller := NewAuthController(env.service, env.sm, nil, testAuthConfig(), avatarStore, nil)
	t.Cleanup(controller.Stop)

	router := gin.New()
	router.Use(env.sm.LoadAndSave(), mw.Handler())
	controller.RegisterRoutes(router)

	router.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "username": GetUsername(c)})
	})
	router.POST("/api/favourites/:id", mw.RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	router.GET("/favourites", mw.RequireAuth(), func(c *gin.Context) {
		c.String(http.StatusOK, "favourites of %s", GetUsername(c))
	})

	return router
}

func postForm(router *gin.Engine, path string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func get(router *gin.Engine, path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func sessionCookies(w *httptest.ResponseRecorder) []*http.Cookie {
	var out []*http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" {
			out = append(out, c)
		}
	}
	return out
}

func TestIntegration_RegisterLoginLogout(t *testing.T) {
	router, env := setupTestRouter(t)

	w := postForm(router, "/register", url.Values{
		"username":         {"alice"},
		"email":            {"alice@example.com"},
		"password":         {"password123"},
		"confirm_password": {"password123"},
	}, nil)
	if w.Code != http.StatusFound {
		t.Fatalf("register status = %d, body = %s", w.Code, w.Body.String())
	}
	cookies := sessionCookies(w)
	if len(cookies) == 0 {
		t.Fatal("register should set a session cookie")
	}

	w = get(router, "/whoami", cookies)
	if !strings.Contains(w.Body.String(), `"username":"alice"`) {
		t.Fatalf("whoami after register = %s", w.Body.String())
	}

	w = postForm(router, "/logout", nil, cookies)
	if w.Code != http.StatusFound {
		t.Fatalf("logout status = %d", w.Code)
	}

	w = get(router, "/whoami", cookies)
	if !strings.Contains(w.Body.String(), `"user_id":0`) {
		t.Fatalf("whoami after logout = %s", w.Body.String())
	}

	w = postForm(router, "/login", url.Values{
		"username": {"alice"},
		"password": {"password123"},
		"next":     {"/favourites"},
	}, nil)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/favourites" {
		t.Fatalf("login status = %d location = %q", w.Code, w.Header().Get("Location"))
	}

	w = get(router, "/favourites", sessionCookies(w))
	if w.Code != http.StatusOK || w.Body.String() != "favourites of alice" {
		t.Fatalf("favourites = %d %s", w.Code, w.Body.String())
	}

	kinds := make([]event.AuthChangeKind, 0, len(env.changes))
	for _, c := range env.changes {
		kinds = append(kinds, c.Kind)
	}
	want := []event.AuthChangeKind{event.AuthRegister, event.AuthLogout, event.AuthLogin}
	if len(kinds) != len(want) {
		t.Fatalf("events = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("events = %v, want %v", kinds, want)
		}
	}
}

func TestIntegration_LoginFailures(t *testing.T) {
	router, env := setupTestRouter(t)
	env.register(t, "alice", "password123")

	w := postForm(router, "/login", url.Values{"username": {"alice"}, "password": {"wrong-password"}}, nil)
	if w.Code != http.StatusUnauthorized || !strings.Contains(w.Body.String(), "Invalid username or password") {
		t.Errorf("wrong password = %d %s", w.Code, w.Body.String())
	}
	if len(sessionCookies(w)) != 0 {
		t.Error("failed login must not set a session")
	}

	w = postForm(router, "/login", url.Values{"username": {"nobody"}, "password": {"password123"}}, nil)
	if w.Code != http.StatusUnauthorized || !strings.Contains(w.Body.String(), "Invalid username or password") {
		t.Errorf("unknown user = %d %s", w.Code, w.Body.String())
	}
}

func TestIntegration_DuplicateRegistration(t *testing.T) {
	router, env := setupTestRouter(t)
	env.register(t, "alice", "password123")

	w := postForm(router, "/register", url.Values{
		"username":         {"alice"},
		"email":            {"new@example.com"},
		"password":         {"password456"},
		"confirm_password": {"password456"},
	}, nil)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "already registered") {
		t.Errorf("duplicate = %d %s", w.Code, w.Body.String())
	}
}

func TestIntegration_PasswordMismatch(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := postForm(router, "/register", url.Values{
		"username":         {"alice"},
		"email":            {"alice@example.com"},
		"password":         {"password123"},
		"confirm_password": {"password124"},
	}, nil)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "Passwords do not match") {
		t.Errorf("mismatch = %d %s", w.Code, w.Body.String())
	}
}

func TestIntegration_RequireAuth(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := postForm(router, "/api/favourites/1", nil, nil)
	if w.Code != http.StatusUnauthorized || !strings.Contains(w.Body.String(), LoginRequiredMessage) {
		t.Errorf("api = %d %s", w.Code, w.Body.String())
	}

	w = get(router, "/favourites", nil)
	if w.Code != http.StatusFound || !strings.HasPrefix(w.Header().Get("Location"), "/login?next=") {
		t.Errorf("web = %d location %q", w.Code, w.Header().Get("Location"))
	}
}

func TestIntegration_SessionOfDeletedUserIsDropped(t *testing.T) {
	router, env := setupTestRouter(t)
	env.register(t, "alice", "password123")

	w := postForm(router, "/login", url.Values{"username": {"alice"}, "password": {"password123"}}, nil)
	cookies := sessionCookies(w)

	if err := env.db.Exec("DELETE FROM users WHERE username = ?", "alice").Error; err != nil {
		t.Fatal(err)
	}

	w = get(router, "/whoami", cookies)
	if !strings.Contains(w.Body.String(), `"user_id":0`) {
		t.Errorf("stale marker should be ignored, got %s", w.Body.String())
	}
}

func TestIntegration_OpenRedirectBlocked(t *testing.T) {
	router, env := setupTestRouter(t)
	env.register(t, "alice", "password123")

	w := postForm(router, "/login", url.Values{
		"username": {"alice"},
		"password": {"password123"},
		"next":     {"//evil.example"},
	}, nil)
	if w.Header().Get("Location") != "/" {
		t.Errorf("Location = %q, want /", w.Header().Get("Location"))
	}
}

func TestIsLocalPath(t *testing.T) {
	tests := map[string]bool{
		"":                     false,
		"/":                    true,
		"/favourites":          true,
		"//evil.com":           false,
		"https://evil.com":     false,
		"/\\evil.com":          false,
		"relative":             false,
		"/ui/anime/1?page=2":   true,
		"/x?next=https://a.b": false,
	}
	for path, want := range tests {
		if got := isLocalPath(path); got != want {
			t.Errorf("isLocalPath(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestIntegration_AnonymousLogoutIsSilent(t *testing.T) {
	router, env := setupTestRouter(t)

	w := postForm(router, "/logout", nil, nil)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/" {
		t.Fatalf("logout status = %d location = %q", w.Code, w.Header().Get("Location"))
	}
	if len(env.changes) != 0 {
		t.Errorf("anonymous logout published %+v", env.changes)
	}
}

func TestIntegration_LogoutRequiresPost(t *testing.T) {
	router, env := setupTestRouter(t)
	env.register(t, "alice", "password123")

	w := postForm(router, "/login", url.Values{"username": {"alice"}, "password": {"password123"}}, nil)
	cookies := sessionCookies(w)
	env.changes = nil

	w = get(router, "/logout", cookies)
	if w.Code != http.StatusNotFound {
		t.Errorf("GET /logout status = %d, want 404", w.Code)
	}

	w = get(router, "/whoami", cookies)
	if !strings.Contains(w.Body.String(), `"username":"alice"`) {
		t.Errorf("GET /logout must not end the session, got %s", w.Body.String())
	}
	if len(env.changes) != 0 {
		t.Errorf("unexpected notifications: %+v", env.changes)
	}
}

// flakyStore fails user lookups by ID while failing is set.
type flakyStore struct {
	*users.Repository
	failing bool
}

func (s *flakyStore) GetUserByID(id uint) (*entities.User, error) {
	if s.failing {
		return nil, errors.New("database is locked")
	}
	return s.Repository.GetUserByID(id)
}

func TestIntegration_StorageFailureKeepsSession(t *testing.T) {
	env := setupTestEnv(t)
	store := &flakyStore{Repository: env.repo}
	env.service = NewService(store, testAuthConfig())
	router := newTestRouter(t, env, nil)
	env.register(t, "alice", "password123")

	w := postForm(router, "/login", url.Values{"username": {"alice"}, "password": {"password123"}}, nil)
	cookies := sessionCookies(w)
	if len(cookies) == 0 {
		t.Fatal("login should set a session cookie")
	}
	env.changes = nil

	store.failing = true
	w = get(router, "/whoami", cookies)
	if !strings.Contains(w.Body.String(), `"username":"alice"`) {
		t.Errorf("whoami during storage failure = %s", w.Body.String())
	}
	if len(env.changes) != 0 {
		t.Errorf("storage failure must not log the user out, got %+v", env.changes)
	}

	store.failing = false
	w = get(router, "/whoami", cookies)
	if !strings.Contains(w.Body.String(), `"username":"alice"`) {
		t.Errorf("whoami after recovery = %s", w.Body.String())
	}
}
