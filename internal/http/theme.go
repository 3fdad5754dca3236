package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	ThemeCookie = "theme"
	ThemeLight  = "light"
	ThemeDark   = "dark"

	themeCookieMaxAge = 365 * 24 * 60 * 60
)

// ThemeFromRequest returns the theme stored in the cookie, light by default.
func ThemeFromRequest(c *gin.Context) string {
	if v, err := c.Cookie(ThemeCookie); err == nil && v == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}

// NextTheme flips between light and dark.
func NextTheme(current string) string {
	if current == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// ThemeController switches the colour theme.
type ThemeController struct {
	secure bool
}

func NewThemeController(secureCookies bool) *ThemeController {
	return &ThemeController{secure: secureCookies}
}

// Toggle flips the theme cookie and returns to the page it was sent from.
// POST /theme/toggle
func (tc *ThemeController) Toggle(c *gin.Context) {
	theme := NextTheme(ThemeFromRequest(c))
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(ThemeCookie, theme, themeCookieMaxAge, "/", "", tc.secure, false)

	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"theme": theme})
		return
	}
	c.Redirect(http.StatusSeeOther, localPath(c.PostForm("next")))
}

// localPath accepts only same-site paths as redirect targets.
func localPath(path string) string {
	if path == "" || !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") ||
		strings.Contains(path, "://") || strings.Contains(path, "\\") {
		return "/"
	}
	return path
}
