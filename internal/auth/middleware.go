package auth

import (
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/animedex/internal/config"
)

// Context keys for user data
const (
	ContextKeyUserID      = "auth_user_id"
	ContextKeyUsername    = "auth_username"
	ContextKeySessionUser = "auth_session_user"
)

// LoginRequiredMessage is shown when an anonymous visitor tries to change favourites.
const LoginRequiredMessage = "Please login to add favorites"

// AnonymousUserID marks requests without a logged-in user.
const AnonymousUserID = uint(0)

// Middleware resolves the current user for every request. Browsing is
// public; RequireAuth guards the routes that need an account.
type Middleware struct {
	service        *Service
	sessionManager *SessionManager
	config         config.Auth
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(service *Service, sessionManager *SessionManager, cfg config.Auth) *Middleware {
	return &Middleware{
		service:        service,
		sessionManager: sessionManager,
		config:         cfg,
	}
}

// Handler returns a Gin middleware that loads the session user into the context.
func (m *Middleware) Handler() gin.HandlerFunc {
	if m.config.Mode == config.AuthModeNone || m.sessionManager == nil {
		return func(c *gin.Context) {
			c.Set(ContextKeyUserID, AnonymousUserID)
			c.Next()
		}
	}

	return func(c *gin.Context) {
		c.Set(ContextKeyUserID, AnonymousUserID)

		marker, ok := m.sessionManager.CurrentUser(c.Request)
		if ok {
			// The marker is only trusted while its account still exists.
			// Storage failures keep the session and trust the marker.
			_, err := m.service.GetUserByID(marker.ID)
			switch {
			case errors.Is(err, ErrUserNotFound):
				_ = m.sessionManager.DestroySession(c.Request)
				ok = false
			case err != nil:
				log.Printf("Failed to validate session user %d, keeping session: %v", marker.ID, err)
			}
		}
		if ok {
			c.Set(ContextKeyUserID, marker.ID)
			c.Set(ContextKeyUsername, marker.Username)
			c.Set(ContextKeySessionUser, marker)
		}

		c.Next()
	}
}

// RequireAuth rejects anonymous requests. API callers get 401 JSON,
// browsers are sent to the login page.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserID(c) != AnonymousUserID {
			c.Next()
			return
		}

		if isAPIRequest(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": LoginRequiredMessage,
			})
			return
		}

		c.Redirect(http.StatusFound, "/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
		c.Abort()
	}
}

// isAPIRequest determines if this is an API request vs web browser request.
func isAPIRequest(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}

// GetUserID retrieves the logged-in user's ID, or AnonymousUserID.
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextKeyUserID); exists {
		if userID, ok := id.(uint); ok {
			return userID
		}
	}
	return AnonymousUserID
}

// GetUsername retrieves the logged-in user's username from the context.
func GetUsername(c *gin.Context) string {
	return c.GetString(ContextKeyUsername)
}

// GetSessionUser returns the session marker of the logged-in user.
func GetSessionUser(c *gin.Context) (SessionUser, bool) {
	if v, exists := c.Get(ContextKeySessionUser); exists {
		if user, ok := v.(SessionUser); ok {
			return user, true
		}
	}
	return SessionUser{}, false
}

// IsAuthenticated returns true if a user is logged in.
func IsAuthenticated(c *gin.Context) bool {
	return GetUserID(c) != AnonymousUserID
}
