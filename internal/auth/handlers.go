package auth

import (
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/animedex/internal/avatars"
	"github.com/mrlokans/animedex/internal/config"
	"github.com/mrlokans/animedex/internal/entities"
	"github.com/mrlokans/animedex/internal/event"
)

// isLocalPath validates that a redirect path is local to prevent open redirect attacks.
func isLocalPath(path string) bool {
	if path == "" || !strings.HasPrefix(path, "/") {
		return false
	}
	// Reject protocol-relative URLs (//evil.com), schemes and backslash tricks
	if strings.HasPrefix(path, "//") || strings.Contains(path, "://") || strings.Contains(path, "\\") {
		return false
	}
	return true
}

// sanitizeRedirectPath returns a safe redirect path, defaulting to "/" if invalid.
func sanitizeRedirectPath(path string) string {
	if isLocalPath(path) {
		return path
	}
	return "/"
}

// PageDecorator adds layout data (theme, navigation state) to a page.
type PageDecorator func(c *gin.Context, data gin.H)

// AvatarStore keeps uploaded profile images.
type AvatarStore interface {
	MaxBytes() int64
	Save(userID uint, img *avatars.Image) (string, error)
}

// AuthController serves the login, registration and logout pages.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	templates      *template.Template
	config         config.Auth
	rateLimiter    *RateLimiter
	avatars        AvatarStore
	decorate       PageDecorator
}

// NewAuthController creates a new authentication controller. A nil
// templates set makes every page render as JSON. A nil avatar store
// turns profile image uploads off.
func NewAuthController(service *Service, sessionManager *SessionManager, templates *template.Template, cfg config.Auth, avatarStore AvatarStore, decorate PageDecorator) *AuthController {
	rateLimiter := NewRateLimiter(RateLimitConfig{
		MaxAttempts:     cfg.MaxLoginAttempts,
		WindowDuration:  cfg.RateLimitWindow,
		LockoutDuration: cfg.LockoutDuration,
	})

	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		templates:      templates,
		config:         cfg,
		rateLimiter:    rateLimiter,
		avatars:        avatarStore,
		decorate:       decorate,
	}
}

// RegisterRoutes registers authentication routes on the router.
func (ac *AuthController) RegisterRoutes(router gin.IRoutes) {
	router.GET("/login", ac.LoginPage)
	router.POST("/login", ac.Login)
	router.GET("/register", ac.RegisterPage)
	router.POST("/register", ac.Register)
	router.POST("/logout", ac.Logout)
}

// Stop cleans up resources (rate limiter background goroutine).
func (ac *AuthController) Stop() {
	ac.rateLimiter.Stop()
}

// LoginPage renders the login form.
func (ac *AuthController) LoginPage(c *gin.Context) {
	if ac.sessionManager.IsLoggedIn(c.Request) {
		c.Redirect(http.StatusFound, "/")
		return
	}

	ac.render(c, http.StatusOK, "login.html", gin.H{
		"Title": "Login",
		"Next":  sanitizeRedirectPath(c.Query("next")),
		"Error": c.Query("error"),
	})
}

// Login handles the login form submission.
func (ac *AuthController) Login(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")
	next := sanitizeRedirectPath(c.PostForm("next"))
	clientIP := c.ClientIP()

	fail := func(status int, msg string) {
		ac.render(c, status, "login.html", gin.H{
			"Title":    "Login",
			"Next":     next,
			"Username": username,
			"Error":    msg,
		})
	}

	if allowed, retryAfter := ac.rateLimiter.Allow(clientIP, username); !allowed {
		c.Header("Retry-After", retryAfter.String())
		fail(http.StatusTooManyRequests, "Too many login attempts. Please try again later.")
		return
	}

	user, err := ac.service.Authenticate(username, password)
	if err != nil {
		ac.rateLimiter.RecordFailure(clientIP, username)

		switch {
		case errors.Is(err, ErrAccountLocked):
			fail(http.StatusUnauthorized, "Account is locked. Please try again later.")
		case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrInvalidPassword):
			fail(http.StatusUnauthorized, "Invalid username or password")
		default:
			log.Printf("Login failed for %q: %v", username, err)
			fail(http.StatusInternalServerError, "An error occurred. Please try again.")
		}
		return
	}

	ac.rateLimiter.RecordSuccess(clientIP, username)

	if err := ac.sessionManager.CreateSession(c.Request, user, event.AuthLogin); err != nil {
		log.Printf("Failed to create session for %q: %v", username, err)
		fail(http.StatusInternalServerError, "Failed to create session")
		return
	}

	c.Redirect(http.StatusFound, next)
}

// RegisterPage renders the registration form.
func (ac *AuthController) RegisterPage(c *gin.Context) {
	if ac.sessionManager.IsLoggedIn(c.Request) {
		c.Redirect(http.StatusFound, "/")
		return
	}

	ac.render(c, http.StatusOK, "register.html", gin.H{
		"Title": "Register",
		"Error": c.Query("error"),
	})
}

// Register creates the account and logs the new user in. The form may carry
// an uploaded picture in profile_image or a URL in profile_image_url.
func (ac *AuthController) Register(c *gin.Context) {
	// The upload is read before any other field so its size limit applies
	upload, uploadErr := ac.readUpload(c)

	username := strings.TrimSpace(c.PostForm("username"))
	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("password")
	confirmPassword := c.PostForm("confirm_password")
	profileImage := strings.TrimSpace(c.PostForm("profile_image_url"))
	if profileImage == "" {
		profileImage = strings.TrimSpace(c.PostForm("profile_image"))
	}

	fail := func(status int, msg string) {
		ac.render(c, status, "register.html", gin.H{
			"Title":        "Register",
			"Username":     username,
			"Email":        email,
			"ProfileImage": profileImage,
			"Error":        msg,
		})
	}

	if uploadErr != nil {
		status, msg := ac.uploadFailure(uploadErr)
		if status == http.StatusInternalServerError {
			log.Printf("Registration upload failed for %q: %v", username, uploadErr)
		}
		fail(status, msg)
		return
	}

	if password != confirmPassword {
		fail(http.StatusBadRequest, "Passwords do not match")
		return
	}

	if upload != nil {
		profileImage = ""
	}
	user, err := ac.service.Register(username, email, password, profileImage)
	if err != nil {
		status, msg := http.StatusBadRequest, registrationMessage(err)
		if msg == "" {
			log.Printf("Registration failed for %q: %v", username, err)
			status, msg = http.StatusInternalServerError, "Failed to create account"
		}
		fail(status, msg)
		return
	}

	if upload != nil {
		user = ac.attachUpload(user, upload)
	}

	if err := ac.sessionManager.CreateSession(c.Request, user, event.AuthRegister); err != nil {
		log.Printf("Failed to create session for new user %q: %v", username, err)
		c.Redirect(http.StatusFound, "/login")
		return
	}

	c.Redirect(http.StatusFound, "/")
}

// readUpload returns the picture attached to a registration form, if any.
func (ac *AuthController) readUpload(c *gin.Context) (*avatars.Image, error) {
	maxBytes := int64(avatars.DefaultMaxBytes)
	if ac.avatars != nil {
		maxBytes = ac.avatars.MaxBytes()
	}
	img, err := avatars.FromRequest(c.Writer, c.Request, "profile_image", maxBytes)
	if err != nil {
		return nil, err
	}
	if img != nil && ac.avatars == nil {
		return nil, errUploadsDisabled
	}
	return img, nil
}

var errUploadsDisabled = errors.New("profile image uploads are disabled")

// uploadFailure maps upload errors to a status and form message.
func (ac *AuthController) uploadFailure(err error) (int, string) {
	switch {
	case errors.Is(err, avatars.ErrTooLarge):
		maxBytes := int64(avatars.DefaultMaxBytes)
		if ac.avatars != nil {
			maxBytes = ac.avatars.MaxBytes()
		}
		return http.StatusRequestEntityTooLarge, fmt.Sprintf("Profile image must be at most %d KB", maxBytes>>10)
	case errors.Is(err, avatars.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType, "Profile image must be a PNG, JPEG, GIF or WebP file"
	case errors.Is(err, errUploadsDisabled):
		return http.StatusBadRequest, "Profile image uploads are not available. Use an image URL instead."
	}
	return http.StatusInternalServerError, "Could not read the profile image"
}

// attachUpload stores the new account's picture. The account keeps the
// default picture when that fails.
func (ac *AuthController) attachUpload(user *entities.User, img *avatars.Image) *entities.User {
	path, err := ac.avatars.Save(user.ID, img)
	if err != nil {
		log.Printf("Failed to store profile image of %q: %v", user.Username, err)
		return user
	}
	updated, err := ac.service.UpdateProfileImage(user.Username, path)
	if err != nil {
		log.Printf("Failed to set profile image of %q: %v", user.Username, err)
		return user
	}
	return updated
}

// registrationMessage maps validation errors to form messages.
// Returns "" for unexpected errors.
func registrationMessage(err error) string {
	switch {
	case errors.Is(err, ErrUserExists):
		return "Username or email is already registered"
	case errors.Is(err, ErrPasswordTooShort):
		return "Password must be at least 8 characters"
	case errors.Is(err, ErrPasswordTooLong):
		return "Password exceeds maximum length of 72 characters"
	case errors.Is(err, ErrUsernameRequired):
		return "Username is required"
	case errors.Is(err, ErrUsernameInvalid):
		return "Username must be 3-64 characters, alphanumeric with underscore/hyphen only"
	case errors.Is(err, ErrEmailRequired):
		return "Email is required"
	case errors.Is(err, ErrEmailInvalid):
		return "Invalid email format"
	case errors.Is(err, ErrPasswordRequired):
		return "Password is required"
	case errors.Is(err, ErrImageInvalid):
		return "Profile image must be an http(s) URL or an uploaded file"
	}
	return ""
}

// Logout destroys the session and returns to the search page.
func (ac *AuthController) Logout(c *gin.Context) {
	if err := ac.sessionManager.DestroySession(c.Request); err != nil {
		log.Printf("Failed to destroy session: %v", err)
	}
	c.Redirect(http.StatusFound, "/")
}

// render executes an auth template or falls back to JSON.
func (ac *AuthController) render(c *gin.Context, status int, name string, data gin.H) {
	data["CSRFToken"] = GetCSRFToken(c)
	data["CSRFField"] = CSRFTokenField(c)
	data["Uploads"] = ac.avatars != nil
	if ac.decorate != nil {
		ac.decorate(c, data)
	}

	if ac.templates == nil {
		c.JSON(status, data)
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(status)
	if err := ac.templates.ExecuteTemplate(c.Writer, name, data); err != nil {
		log.Printf("Template %s failed: %v", name, err)
	}
}
