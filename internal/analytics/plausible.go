package analytics

import (
	"html/template"
	"slices"
	"strings"

	"github.com/mrlokans/animedex/internal/config"
)

// DefaultScriptURL is the hosted Plausible script
const DefaultScriptURL = "https://plausible.io/js/script.js"

// PlausibleConfig holds the effective Plausible Analytics configuration
type PlausibleConfig struct {
	Enabled    bool
	Domain     string
	ScriptURL  string
	Extensions []string
}

// FromConfig builds the effective configuration. Analytics is enabled when
// a domain is set; unknown extensions are dropped.
func FromConfig(cfg config.Plausible) *PlausibleConfig {
	scriptURL := strings.TrimSpace(cfg.ScriptURL)
	if scriptURL == "" {
		scriptURL = DefaultScriptURL
	}

	var extensions []string
	for _, ext := range parseExtensions(cfg.Extensions) {
		if IsValidExtension(ext) {
			extensions = append(extensions, ext)
		}
	}

	domain := strings.TrimSpace(cfg.Domain)
	return &PlausibleConfig{
		Enabled:    domain != "",
		Domain:     domain,
		ScriptURL:  scriptURL,
		Extensions: extensions,
	}
}

// BuildScriptURL constructs the Plausible script URL with extensions
func BuildScriptURL(baseURL string, extensions []string) string {
	if len(extensions) == 0 {
		return baseURL
	}

	// Plausible extension format: script.ext1.ext2.js
	// Base: https://plausible.io/js/script.js
	// With extensions: https://plausible.io/js/script.outbound-links.file-downloads.js
	if base, found := strings.CutSuffix(baseURL, ".js"); found {
		return base + "." + strings.Join(extensions, ".") + ".js"
	}

	return baseURL
}

// ScriptTag returns safe HTML for the Plausible script tag, or "" when disabled
func (cfg *PlausibleConfig) ScriptTag() template.HTML {
	if cfg == nil || !cfg.Enabled || cfg.Domain == "" {
		return ""
	}

	scriptURL := BuildScriptURL(cfg.ScriptURL, cfg.Extensions)

	return template.HTML(`<script defer data-domain="` + template.HTMLEscapeString(cfg.Domain) + `" src="` + template.HTMLEscapeString(scriptURL) + `"></script>`)
}

// parseExtensions splits comma-separated extensions and trims whitespace
func parseExtensions(s string) []string {
	if s == "" {
		return []string{}
	}

	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// ValidExtensions lists the known Plausible script extensions
var ValidExtensions = []string{
	"outbound-links",
	"file-downloads",
	"tagged-events",
	"hash",
	"compat",
	"local",
	"manual",
	"pageview-props",
	"revenue",
}

// IsValidExtension checks if an extension is known
func IsValidExtension(ext string) bool {
	return slices.Contains(ValidExtensions, ext)
}
