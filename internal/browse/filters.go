package browse

import (
	"strconv"

	"github.com/mrlokans/animedex/internal/jikan"
)

// FilterChip is an active filter with a link that clears it.
type FilterChip struct {
	Key       string
	Label     string
	Value     string
	RemoveURL string
}

// ActiveFilters returns one chip per non-empty filter. Page, limit and sort
// never produce a chip. Removing a chip returns to page 1.
func ActiveFilters(s State) []FilterChip {
	p := s.Params
	var chips []FilterChip

	add := func(key, label, value string, clear func(*State)) {
		if value == "" {
			return
		}
		next := s
		next.Page = 1
		clear(&next)
		chips = append(chips, FilterChip{Key: key, Label: label, Value: value, RemoveURL: next.URL()})
	}

	add("q", "Search", p.Query, func(n *State) { n.Params.Query = "" })
	add("type", "Type", optionLabel(p.Type, jikan.TypeOptions), func(n *State) { n.Params.Type = "" })
	add("status", "Status", optionLabel(p.Status, jikan.StatusOptions), func(n *State) { n.Params.Status = "" })
	add("rating", "Rating", optionLabel(p.Rating, jikan.RatingOptions), func(n *State) { n.Params.Rating = "" })
	add("order_by", "Order", optionLabel(p.OrderBy, jikan.OrderOptions), func(n *State) {
		n.Params.OrderBy = ""
		n.Params.Sort = ""
	})
	if p.MinScore > 0 {
		add("min_score", "Min score", formatFloat(p.MinScore), func(n *State) { n.Params.MinScore = 0 })
	}
	if p.MaxScore > 0 {
		add("max_score", "Max score", formatFloat(p.MaxScore), func(n *State) { n.Params.MaxScore = 0 })
	}
	if s.FavouritesOnly {
		add("favourites", "Favourites", "only", func(n *State) { n.FavouritesOnly = false })
	}
	return chips
}

func optionLabel(value string, options []jikan.Option) string {
	for _, o := range options {
		if o.Value == value {
			return o.Label
		}
	}
	return value
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
