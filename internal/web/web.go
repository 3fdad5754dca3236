// Package web holds the HTML templates and static assets compiled into the
// binary. A directory configured in config.UI overrides the embedded copy,
// which is handy while editing templates.
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Templates parses every page and partial template. An empty dir uses the
// embedded templates.
func Templates(dir string, funcs template.FuncMap) (*template.Template, error) {
	t := template.New("").Funcs(funcs)
	if dir != "" {
		return t.ParseGlob(filepath.Join(dir, "*.html"))
	}
	return t.ParseFS(templateFS, "templates/*.html")
}

// Static returns the file system served under /static.
func Static(dir string) http.FileSystem {
	if dir != "" {
		return gin.Dir(dir, false)
	}
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}
