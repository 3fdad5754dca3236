package browse

import (
	"strings"

	"github.com/mrlokans/animedex/internal/jikan"
)

const noSynopsis = "No synopsis available."

// Preview is the quick-preview overlay of a single catalog item.
type Preview struct {
	Card
	Synopsis   string
	Genres     []string
	Studios    []string
	Aired      string
	TrailerURL string
}

// QuickPreview builds the preview model of an item.
func QuickPreview(a *jikan.Anime, favourite bool) Preview {
	p := Preview{
		Card:     NewCard(a, favourite),
		Synopsis: strings.TrimSpace(a.Synopsis),
		Genres:   entityNames(a.Genres),
		Studios:  entityNames(a.Studios),
		Aired:    a.Aired.String,
	}
	if p.Synopsis == "" {
		p.Synopsis = noSynopsis
	}
	switch {
	case a.Trailer.EmbedURL != "":
		p.TrailerURL = a.Trailer.EmbedURL
	case a.Trailer.URL != "":
		p.TrailerURL = a.Trailer.URL
	case a.Trailer.YoutubeID != "":
		p.TrailerURL = "https://www.youtube.com/watch?v=" + a.Trailer.YoutubeID
	}
	return p
}

func entityNames(entities []jikan.Entity) []string {
	names := make([]string, 0, len(entities))
	for _, e := range entities {
		if e.Name != "" {
			names = append(names, e.Name)
		}
	}
	return names
}
