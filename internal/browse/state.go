// Package browse turns a search request and its results into view models.
// Every request parses its own State from the query string, so nothing here
// holds mutable package-level data.
package browse

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/mrlokans/animedex/internal/jikan"
)

const (
	ViewGrid = "grid"
	ViewList = "list"
)

// State is the explicit per-request browsing state: filters, page, view mode.
type State struct {
	Params         jikan.SearchParams
	Page           int
	View           string
	FavouritesOnly bool
}

// ParseState reads browsing state from query values. Unknown or malformed
// values fall back to defaults rather than failing the request.
func ParseState(values url.Values, defaultView string) State {
	s := State{
		Params: jikan.SearchParams{
			Query:    values.Get("q"),
			Type:     values.Get("type"),
			Status:   values.Get("status"),
			Rating:   values.Get("rating"),
			OrderBy:  values.Get("order_by"),
			Sort:     values.Get("sort"),
			MinScore: parseFloat(values.Get("min_score")),
			MaxScore: parseFloat(values.Get("max_score")),
		},
		Page:           parseInt(values.Get("page"), 1),
		View:           normalizeView(values.Get("view"), defaultView),
		FavouritesOnly: parseBool(values.Get("favourites")),
	}
	s.Params = s.Params.Normalize()
	s.Params.Page = 0
	if s.Page < 1 {
		s.Page = 1
	}
	return s
}

// Search returns the client parameters for the current page.
func (s State) Search() jikan.SearchParams {
	return s.Params.WithPage(s.Page).Normalize()
}

// Values encodes the state back into query values, omitting defaults.
func (s State) Values() url.Values {
	v := url.Values{}
	p := s.Params
	setIf := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}
	setIf("q", p.Query)
	setIf("type", p.Type)
	setIf("status", p.Status)
	setIf("rating", p.Rating)
	setIf("order_by", p.OrderBy)
	setIf("sort", p.Sort)
	if p.MinScore > 0 {
		v.Set("min_score", strconv.FormatFloat(p.MinScore, 'f', -1, 64))
	}
	if p.MaxScore > 0 {
		v.Set("max_score", strconv.FormatFloat(p.MaxScore, 'f', -1, 64))
	}
	if s.FavouritesOnly {
		v.Set("favourites", "1")
	}
	if s.View != "" && s.View != ViewGrid {
		v.Set("view", s.View)
	}
	if s.Page > 1 {
		v.Set("page", strconv.Itoa(s.Page))
	}
	return v
}

// URL builds a link to the search page for this state.
func (s State) URL() string {
	encoded := s.Values().Encode()
	if encoded == "" {
		return "/"
	}
	return "/?" + encoded
}

// PageURL links to another page with the same filters.
func (s State) PageURL(page int) string {
	s.Page = page
	return s.URL()
}

// ViewURL links to the same results in another view mode.
func (s State) ViewURL(view string) string {
	s.View = normalizeView(view, ViewGrid)
	return s.URL()
}

// IsList reports whether results render as a list instead of a grid.
func (s State) IsList() bool {
	return s.View == ViewList
}

func normalizeView(view, fallback string) string {
	switch strings.ToLower(strings.TrimSpace(view)) {
	case ViewList:
		return ViewList
	case ViewGrid:
		return ViewGrid
	}
	if fallback == ViewList {
		return ViewList
	}
	return ViewGrid
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "on", "yes", "favourites", "favorites":
		return true
	}
	return false
}
