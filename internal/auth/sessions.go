package auth

import (
	"database/sql"
	"encoding/gob"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"

	"github.com/mrlokans/animedex/internal/config"
	"github.com/mrlokans/animedex/internal/entities"
	"github.com/mrlokans/animedex/internal/event"
)

// SessionKeyUser holds the SessionUser marker.
const SessionKeyUser = "user"

// SessionUser is the logged-in marker kept in the session. It never
// contains the password hash.
type SessionUser struct {
	ID           uint
	Username     string
	Email        string
	ProfileImage string
	CreatedAt    time.Time
	LoginAt      time.Time
}

func init() {
	gob.Register(SessionUser{})
}

func newSessionUser(user *entities.User, loginAt time.Time) SessionUser {
	return SessionUser{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		ProfileImage: user.ProfileImage,
		CreatedAt:    user.CreatedAt,
		LoginAt:      loginAt,
	}
}

// SessionManager wraps scs.SessionManager and announces every session
// state change on the event bus.
type SessionManager struct {
	*scs.SessionManager
	events *event.EventManager
}

// NewSessionManager creates a configured session manager.
// The sqlDB parameter should be the underlying *sql.DB from GORM.
func NewSessionManager(sqlDB *sql.DB, cfg config.Auth, events *event.EventManager) (*SessionManager, error) {
	_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
	if err != nil {
		return nil, err
	}

	sm := scs.New()
	sm.Store = sqlite3store.New(sqlDB)

	sm.Lifetime = cfg.SessionLifetime
	sm.IdleTimeout = cfg.SessionLifetime / 2

	sm.Cookie.Name = "session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	sm.Cookie.SameSite = http.SameSiteLaxMode // SSE and links from other sites keep the session
	sm.Cookie.Path = "/"

	if events == nil {
		events = event.NewEventManager()
	}

	return &SessionManager{SessionManager: sm, events: events}, nil
}

// Events returns the bus session changes are published on.
func (sm *SessionManager) Events() *event.EventManager {
	return sm.events
}

// CreateSession stores the logged-in marker for user. kind is
// event.AuthLogin after password verification and event.AuthRegister
// right after an account was created.
func (sm *SessionManager) CreateSession(r *http.Request, user *entities.User, kind event.AuthChangeKind) error {
	// Renew token to prevent session fixation
	if err := sm.RenewToken(r.Context()); err != nil {
		return err
	}

	now := time.Now()
	sm.Put(r.Context(), SessionKeyUser, newSessionUser(user, now))
	sm.publish(r, kind, user.ID, user.Username)
	return nil
}

// DestroySession clears the marker and invalidates the session. Only a
// session that held a logged-in marker announces the logout.
func (sm *SessionManager) DestroySession(r *http.Request) error {
	current, loggedIn := sm.CurrentUser(r)
	if err := sm.Destroy(r.Context()); err != nil {
		return err
	}
	if loggedIn {
		sm.publish(r, event.AuthLogout, current.ID, current.Username)
	}
	return nil
}

// UpdateUser refreshes the marker after the account changed (e.g. new profile image).
func (sm *SessionManager) UpdateUser(r *http.Request, user *entities.User) {
	current, ok := sm.CurrentUser(r)
	if !ok || current.ID != user.ID {
		return
	}
	sm.Put(r.Context(), SessionKeyUser, newSessionUser(user, current.LoginAt))
	sm.publish(r, event.AuthProfileUpdated, user.ID, user.Username)
}

// CurrentUser returns the marker stored in the session, if any.
func (sm *SessionManager) CurrentUser(r *http.Request) (SessionUser, bool) {
	user, ok := sm.Get(r.Context(), SessionKeyUser).(SessionUser)
	if !ok || user.ID == 0 {
		return SessionUser{}, false
	}
	return user, true
}

// IsLoggedIn returns true if the request carries a logged-in marker.
func (sm *SessionManager) IsLoggedIn(r *http.Request) bool {
	_, ok := sm.CurrentUser(r)
	return ok
}

func (sm *SessionManager) publish(r *http.Request, kind event.AuthChangeKind, userID uint, username string) {
	sm.events.Publish(event.Event{
		Type: event.AuthStateChanged,
		Data: event.AuthChange{
			Kind:      kind,
			UserID:    userID,
			Username:  username,
			IPAddress: clientIP(r),
			UserAgent: r.UserAgent(),
			At:        time.Now(),
		},
	})
}
