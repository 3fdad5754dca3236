package http

import (
	"context"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/animedex/internal/auth"
	"github.com/mrlokans/animedex/internal/entities"
	"github.com/mrlokans/animedex/internal/jikan"
)

// This file collects the interfaces controllers depend on. Each one names
// only the operations its controller uses, so tests can substitute fakes.

// CatalogClient reads the anime catalog (jikan.Client).
type CatalogClient interface {
	Search(ctx context.Context, params jikan.SearchParams) (*jikan.SearchResponse, error)
	Autocomplete(ctx context.Context, term string, limit int) ([]jikan.Anime, error)
	GetAnimeFull(ctx context.Context, id int) (*jikan.Anime, error)
	GetEpisodes(ctx context.Context, id, page int) (*jikan.EpisodesResponse, error)
	GetStreaming(ctx context.Context, id int) ([]jikan.ExternalLink, error)
	GetExternal(ctx context.Context, id int) ([]jikan.ExternalLink, error)
	GetVideos(ctx context.Context, id int) (*jikan.Videos, error)
}

// FavouritesStore reads and writes the favourites of one user.
type FavouritesStore interface {
	PutFavourite(fav *entities.Favourite) error
	RemoveFavourite(userID uint, malID int) error
	ListFavourites(userID uint) ([]entities.Favourite, error)
	GetFavouriteIDs(userID uint) (map[int]bool, error)
	GetFavourite(userID uint, malID int) (*entities.Favourite, error)
	IsFavourite(userID uint, malID int) (bool, error)
	CountFavourites(userID uint) (int64, error)
}

// PosterCache stores favourite posters on local disk (covers.Cache).
type PosterCache interface {
	GetPoster(ctx context.Context, malID int, posterURL string) (string, error)
}

// AvatarStore keeps uploaded profile images on local disk (avatars.Store).
type AvatarStore interface {
	auth.AvatarStore
	Path(userID uint) (string, error)
}

// TaskQueue accepts background tasks and reports their status (tasks.Client).
type TaskQueue interface {
	Enqueue(tasks ...backlite.Task) ([]string, error)
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

// Pinger checks a dependency for the health endpoint.
type Pinger interface {
	Ping() error
}
