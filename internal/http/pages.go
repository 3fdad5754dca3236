package http

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/animedex/internal/auth"
	"github.com/mrlokans/animedex/internal/browse"
	"github.com/mrlokans/animedex/internal/player"
)

// templateFuncs are available in every page template.
var templateFuncs = template.FuncMap{
	"join":      strings.Join,
	"embedURL":  player.EmbedURL,
	"scoreText": browse.FormatScore,
}

// Pages renders HTML pages with the shared layout data: theme, the
// logged-in user and the CSRF token.
type Pages struct {
	authEnabled bool
	analytics   template.HTML
}

// NewPages creates the renderer. analytics is a trusted script tag added to
// every page head, empty when analytics is off.
func NewPages(authEnabled bool, analytics template.HTML) *Pages {
	return &Pages{authEnabled: authEnabled, analytics: analytics}
}

// Decorate adds layout data to a page. It matches auth.PageDecorator so the
// login and register pages share the layout.
func (p *Pages) Decorate(c *gin.Context, data gin.H) {
	data["Theme"] = ThemeFromRequest(c)
	data["AuthEnabled"] = p.authEnabled
	data["Analytics"] = p.analytics
	data["CurrentPath"] = c.Request.URL.RequestURI()
	if _, ok := data["CSRFToken"]; !ok {
		data["CSRFToken"] = auth.GetCSRFToken(c)
		data["CSRFField"] = auth.CSRFTokenField(c)
	}

	user, ok := auth.GetSessionUser(c)
	data["LoggedIn"] = ok
	if _, set := data["User"]; !set {
		data["User"] = user
	}
}

// Render writes a decorated page.
func (p *Pages) Render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	p.Decorate(c, data)
	c.HTML(status, name, data)
}

// RenderError shows the error page, or JSON for API callers.
func (p *Pages) RenderError(c *gin.Context, status int, title, message string) {
	if wantsJSON(c) {
		c.JSON(status, ErrorResponse{Error: message, RequestID: GetRequestID(c)})
		return
	}
	p.Render(c, status, "error.html", gin.H{"Title": title, "Error": message})
}

// Nav renders the navigation fragment; pages refetch it when the session
// changes in another tab.
func (p *Pages) Nav(c *gin.Context) {
	data := gin.H{}
	p.Decorate(c, data)
	c.Header("Cache-Control", "no-store")
	c.HTML(http.StatusOK, "auth-nav", data)
}
