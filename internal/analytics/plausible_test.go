package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mrlokans/animedex/internal/config"
)

func TestBuildScriptURL(t *testing.T) {
	tests := []struct {
		name       string
		baseURL    string
		extensions []string
		expected   string
	}{
		{
			name:       "no extensions",
			baseURL:    "https://plausible.io/js/script.js",
			extensions: []string{},
			expected:   "https://plausible.io/js/script.js",
		},
		{
			name:       "multiple extensions",
			baseURL:    "https://plausible.io/js/script.js",
			extensions: []string{"outbound-links", "file-downloads"},
			expected:   "https://plausible.io/js/script.outbound-links.file-downloads.js",
		},
		{
			name:       "self-hosted with extension",
			baseURL:    "https://analytics.example.com/js/script.js",
			extensions: []string{"tagged-events"},
			expected:   "https://analytics.example.com/js/script.tagged-events.js",
		},
		{
			name:       "URL without .js suffix unchanged",
			baseURL:    "https://example.com/track",
			extensions: []string{"outbound-links"},
			expected:   "https://example.com/track",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BuildScriptURL(tt.baseURL, tt.extensions))
		})
	}
}

func TestFromConfig(t *testing.T) {
	t.Run("disabled without domain", func(t *testing.T) {
		cfg := FromConfig(config.Plausible{})
		assert.False(t, cfg.Enabled)
		assert.Equal(t, DefaultScriptURL, cfg.ScriptURL)
		assert.Empty(t, cfg.ScriptTag())
	})

	t.Run("drops unknown extensions", func(t *testing.T) {
		cfg := FromConfig(config.Plausible{Domain: "animedex.example", Extensions: "hash, bogus ,outbound-links"})
		assert.True(t, cfg.Enabled)
		assert.Equal(t, []string{"hash", "outbound-links"}, cfg.Extensions)
	})
}

func TestScriptTag(t *testing.T) {
	cfg := FromConfig(config.Plausible{Domain: `a"b.example`, ScriptURL: "https://stats.example/js/script.js", Extensions: "hash"})

	tag := string(cfg.ScriptTag())
	assert.Contains(t, tag, `data-domain="a&#34;b.example"`)
	assert.Contains(t, tag, `src="https://stats.example/js/script.hash.js"`)

	var nilCfg *PlausibleConfig
	assert.Empty(t, nilCfg.ScriptTag())
}

func TestIsValidExtension(t *testing.T) {
	assert.True(t, IsValidExtension("outbound-links"))
	assert.False(t, IsValidExtension("invalid"))
	assert.False(t, IsValidExtension(""))
}
