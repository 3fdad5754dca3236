package browse

import (
	"fmt"
	"strconv"

	"github.com/mrlokans/animedex/internal/entities"
	"github.com/mrlokans/animedex/internal/jikan"
)

const notAvailable = "N/A"

// Card is the view model of one result in the grid or list view.
type Card struct {
	ID         int
	Title      string
	Image      string
	Type       string
	Episodes   string
	Status     string
	Score      string
	ScoreValue *float64
	Synopsis   string
	URL        string
	Favourite  bool
	HasTrailer bool
	DetailURL  string
	PreviewURL string
	WatchURL   string
}

// Cards maps catalog items to card view models, marking the ones present
// in favouriteIDs. A nil set marks nothing.
func Cards(animes []jikan.Anime, favouriteIDs map[int]bool) []Card {
	cards := make([]Card, 0, len(animes))
	for i := range animes {
		cards = append(cards, NewCard(&animes[i], favouriteIDs[animes[i].MalID]))
	}
	return cards
}

// OnlyFavourites keeps the cards flagged as favourites.
func OnlyFavourites(cards []Card) []Card {
	out := cards[:0:0]
	for _, c := range cards {
		if c.Favourite {
			out = append(out, c)
		}
	}
	return out
}

// FavouriteCards builds cards from the stored copies of favourites, so the
// favourites page renders without calling the catalog API.
func FavouriteCards(favourites []entities.Favourite) []Card {
	cards := make([]Card, 0, len(favourites))
	for _, f := range favourites {
		cards = append(cards, Card{
			ID:         f.MalID,
			Title:      f.Title,
			Image:      f.ImageURL,
			Type:       orNA(f.Type),
			Episodes:   notAvailable,
			Status:     notAvailable,
			Score:      FormatScore(f.Score),
			ScoreValue: f.Score,
			Favourite:  true,
			DetailURL:  fmt.Sprintf("/ui/anime/%d", f.MalID),
			PreviewURL: fmt.Sprintf("/ui/anime/%d/preview", f.MalID),
			WatchURL:   fmt.Sprintf("/ui/anime/%d/watch", f.MalID),
		})
	}
	return cards
}

func NewCard(a *jikan.Anime, favourite bool) Card {
	return Card{
		ID:         a.MalID,
		Title:      a.Title,
		Image:      a.Images.Poster(),
		Type:       orNA(a.Type),
		Episodes:   formatEpisodes(a.Episodes),
		Status:     orNA(a.Status),
		Score:      FormatScore(a.Score),
		ScoreValue: a.Score,
		Synopsis:   a.Synopsis,
		URL:        a.URL,
		Favourite:  favourite,
		HasTrailer: a.Trailer.Available(),
		DetailURL:  fmt.Sprintf("/ui/anime/%d", a.MalID),
		PreviewURL: fmt.Sprintf("/ui/anime/%d/preview", a.MalID),
		WatchURL:   fmt.Sprintf("/ui/anime/%d/watch", a.MalID),
	}
}

// FormatScore renders a score with two decimals, or N/A when unscored.
func FormatScore(score *float64) string {
	if score == nil || *score == 0 {
		return notAvailable
	}
	return strconv.FormatFloat(*score, 'f', 2, 64)
}

func formatEpisodes(n *int) string {
	if n == nil || *n == 0 {
		return notAvailable
	}
	return strconv.Itoa(*n)
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}
