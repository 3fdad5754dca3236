package jikan

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	// PageSize is the fixed number of results requested per page
	PageSize = 12

	// AutocompleteLimit is the number of suggestions returned for a prefix
	AutocompleteLimit = 5

	// MaxScore is the upper bound of the MyAnimeList score scale
	MaxScore = 10.0
)

// Option is a selectable filter value with its display label.
type Option struct {
	Value string
	Label string
}

var (
	TypeOptions = []Option{
		{"tv", "TV"}, {"movie", "Movie"}, {"ova", "OVA"},
		{"special", "Special"}, {"ona", "ONA"}, {"music", "Music"},
	}
	StatusOptions = []Option{
		{"airing", "Airing"}, {"complete", "Completed"}, {"upcoming", "Upcoming"},
	}
	RatingOptions = []Option{
		{"g", "G - All Ages"}, {"pg", "PG - Children"}, {"pg13", "PG-13"},
		{"r17", "R - 17+"}, {"r", "R+ - Mild Nudity"}, {"rx", "Rx - Hentai"},
	}
	OrderOptions = []Option{
		{"score", "Score"}, {"popularity", "Popularity"}, {"rank", "Rank"},
		{"members", "Members"}, {"favorites", "Favorites"}, {"title", "Title"},
		{"start_date", "Start date"}, {"episodes", "Episodes"},
	}
)

// SearchParams is the full parameter set of one catalog search.
// MinScore and MaxScore use 0 for "not set".
type SearchParams struct {
	Query    string
	Type     string
	Status   string
	Rating   string
	OrderBy  string
	Sort     string
	MinScore float64
	MaxScore float64
	Page     int
	Limit    int
}

// Normalize clamps page, limit and score range into valid values and
// drops enum values the API does not know.
func (p SearchParams) Normalize() SearchParams {
	p.Query = strings.TrimSpace(p.Query)
	p.Type = allowed(p.Type, TypeOptions)
	p.Status = allowed(p.Status, StatusOptions)
	p.Rating = allowed(p.Rating, RatingOptions)
	p.OrderBy = allowed(p.OrderBy, OrderOptions)
	p.Sort = strings.ToLower(strings.TrimSpace(p.Sort))
	if p.Sort != "asc" && p.Sort != "desc" {
		p.Sort = ""
	}
	if p.OrderBy != "" && p.Sort == "" {
		p.Sort = "desc"
	}
	if p.OrderBy == "" {
		p.Sort = ""
	}

	p.MinScore = clampScore(p.MinScore)
	p.MaxScore = clampScore(p.MaxScore)
	if p.MaxScore >= MaxScore {
		p.MaxScore = 0
	}
	if p.MinScore > 0 && p.MaxScore > 0 && p.MinScore > p.MaxScore {
		p.MinScore, p.MaxScore = p.MaxScore, p.MinScore
	}

	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = PageSize
	}
	return p
}

// HasFilters reports whether any filter narrows the result set. Without
// filters the client browses the current season instead of searching.
func (p SearchParams) HasFilters() bool {
	return p.Query != "" || p.Type != "" || p.Status != "" || p.Rating != "" ||
		p.OrderBy != "" || p.MinScore > 0 || (p.MaxScore > 0 && p.MaxScore < MaxScore)
}

// Values encodes the parameters the way the Jikan API expects them.
func (p SearchParams) Values() url.Values {
	v := url.Values{}
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
		v.Set("min_score", formatScore(p.MinScore))
	}
	if p.MaxScore > 0 {
		v.Set("max_score", formatScore(p.MaxScore))
	}
	v.Set("page", strconv.Itoa(p.Page))
	v.Set("limit", strconv.Itoa(p.Limit))
	return v
}

// CacheKey is the canonical serialization of the full parameter set
// including the page. url.Values.Encode sorts keys, so equal parameter
// sets always produce the same key.
func (p SearchParams) CacheKey() string {
	p = p.Normalize()
	if !p.HasFilters() {
		return "season:" + p.Values().Encode()
	}
	return "anime:" + p.Values().Encode()
}

// WithPage returns a copy of the parameters pointing at another page.
func (p SearchParams) WithPage(page int) SearchParams {
	p.Page = page
	return p
}

func allowed(value string, options []Option) string {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, o := range options {
		if o.Value == value {
			return value
		}
	}
	return ""
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > MaxScore {
		return MaxScore
	}
	return s
}

func formatScore(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}
