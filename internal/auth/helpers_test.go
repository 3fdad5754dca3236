package auth

import (
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/animedex/internal/config"
	"github.com/mrlokans/animedex/internal/database/users"
	"github.com/mrlokans/animedex/internal/entities"
	"github.com/mrlokans/animedex/internal/event"
)

func testAuthConfig() config.Auth {
	return config.Auth{
		Mode:                config.AuthModeLocal,
		SessionLifetime:     24 * time.Hour,
		BcryptCost:          4,
		SecureCookies:       false,
		DefaultProfileImage: "/static/img/default-avatar.svg",
		MaxLoginAttempts:    5,
		RateLimitWindow:     15 * time.Minute,
		LockoutDuration:     30 * time.Minute,
	}
}

type testEnv struct {
	db      *gorm.DB
	repo    *users.Repository
	service *Service
	sm      *SessionManager
	events  *event.EventManager
	changes []event.AuthChange
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "auth.db")
	db, err := gorm.Open(sqlite.Open(dbPath+"?_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&entities.User{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get SQL DB: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	env := &testEnv{db: db, events: event.NewEventManager()}
	env.repo = users.NewRepository(db)
	env.service = NewService(env.repo, testAuthConfig())
	env.sm, err = NewSessionManager(sqlDB, testAuthConfig(), env.events)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	env.events.Subscribe(event.AuthStateChanged, func(e event.Event) {
		env.changes = append(env.changes, e.Data.(event.AuthChange))
	})
	return env
}

func (env *testEnv) register(t *testing.T, username, password string) *entities.User {
	t.Helper()
	user, err := env.service.Register(username, username+"@example.com", password, "")
	if err != nil {
		t.Fatalf("Register(%q) error = %v", username, err)
	}
	return user
}

// loadedRequest returns a request whose context carries a fresh session.
func (env *testEnv) loadedRequest(t *testing.T) *http.Request {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	ctx, err := env.sm.Load(req.Context(), "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return req.WithContext(ctx)
}
