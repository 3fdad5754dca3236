// Package player resolves what to play for a catalog item and how to embed it.
package player

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/mrlokans/animedex/internal/jikan"
)

// ErrNoStreams means neither streaming links nor a trailer are available
var ErrNoStreams = errors.New("no streaming links available")

const youtubeEmbedBase = "https://www.youtube.com/embed/"

var youtubeID = regexp.MustCompile(`^.*(youtu\.be/|v/|u/\w/|embed/|watch\?v=|&v=)([^#&?]*).*`)

// Source is the kind of media chosen for playback.
type Source string

const (
	SourceStreaming Source = "streaming"
	SourceTrailer   Source = "trailer"
)

// Selection is what the watch action resolved to.
type Selection struct {
	Title    string
	Source   Source
	Provider string
	URL      string
	EmbedURL string
	// Embeddable is false for streaming services that refuse to be framed;
	// those are linked to instead.
	Embeddable bool
}

// YoutubeID extracts the 11-character video id from a YouTube URL.
func YoutubeID(raw string) (string, bool) {
	m := youtubeID.FindStringSubmatch(raw)
	if m == nil || len(m[2]) != 11 {
		return "", false
	}
	return m[2], true
}

// IsYoutube reports whether the URL points at YouTube.
func IsYoutube(raw string) bool {
	return strings.Contains(raw, "youtube.com") || strings.Contains(raw, "youtu.be")
}

// EmbedURL converts YouTube URLs to their embed form and passes other URLs
// through unchanged. A YouTube URL without a valid id yields "".
func EmbedURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if !IsYoutube(raw) {
		return raw
	}
	id, ok := YoutubeID(raw)
	if !ok {
		return ""
	}
	return youtubeEmbedBase + id
}

// Select picks the first streaming link of a full record, falling back to
// the trailer. ErrNoStreams is returned when there is neither.
func Select(a *jikan.Anime) (Selection, error) {
	if a == nil {
		return Selection{}, ErrNoStreams
	}
	for _, link := range a.StreamingSources() {
		if link.URL == "" {
			continue
		}
		embed := EmbedURL(link.URL)
		return Selection{
			Title:      a.Title,
			Source:     SourceStreaming,
			Provider:   link.Name,
			URL:        link.URL,
			EmbedURL:   embed,
			Embeddable: IsYoutube(link.URL) && embed != "",
		}, nil
	}

	if trailer := trailerEmbed(a.Trailer); trailer != "" {
		return Selection{
			Title:      a.Title,
			Source:     SourceTrailer,
			Provider:   "YouTube",
			URL:        trailerWatchURL(a.Trailer),
			EmbedURL:   trailer,
			Embeddable: true,
		}, nil
	}
	return Selection{}, ErrNoStreams
}

func trailerEmbed(t jikan.Trailer) string {
	if t.YoutubeID != "" {
		return youtubeEmbedBase + t.YoutubeID
	}
	for _, candidate := range []string{t.EmbedURL, t.URL} {
		if candidate == "" {
			continue
		}
		if embed := EmbedURL(stripQuery(candidate)); embed != "" {
			return embed
		}
	}
	return ""
}

func trailerWatchURL(t jikan.Trailer) string {
	if t.URL != "" {
		return t.URL
	}
	if t.YoutubeID != "" {
		return "https://www.youtube.com/watch?v=" + t.YoutubeID
	}
	return t.EmbedURL
}

// stripQuery drops embed parameters such as ?enablejsapi=1&wmode=opaque&autoplay=1
// that Jikan appends to trailer embed URLs.
func stripQuery(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || !strings.Contains(u.Path, "/embed/") {
		return raw
	}
	u.RawQuery = ""
	return u.String()
}
