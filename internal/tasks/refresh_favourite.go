package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/animedex/internal/jikan"
)

// AnimeFetcher loads the full catalog record of one anime.
type AnimeFetcher interface {
	GetAnimeFull(ctx context.Context, id int) (*jikan.Anime, error)
}

// FavouriteRefresher rewrites the cached metadata of every stored copy of a favourite.
type FavouriteRefresher interface {
	UpdateFavouriteMetadata(malID int, title, imageURL, animeType string, score *float64) (int64, error)
}

// PosterInvalidator drops locally cached posters of an anime.
type PosterInvalidator interface {
	Invalidate(malID int) error
}

// RefreshFavouriteTask re-fetches one anime and updates the stored
// title, poster, type and score of every user's copy.
type RefreshFavouriteTask struct {
	MalID int `json:"mal_id"`
	// ImageURL is the poster currently stored, used to detect poster changes
	ImageURL string `json:"image_url,omitempty"`
}

// Config returns the queue configuration for favourite refresh tasks.
func (t RefreshFavouriteTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        TypeRefreshFavourite,
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// RefreshFavouriteProcessor creates a processor function for RefreshFavouriteTask.
// posters may be nil when poster caching is disabled.
func RefreshFavouriteProcessor(fetcher AnimeFetcher, store FavouriteRefresher, posters PosterInvalidator) backlite.QueueProcessor[RefreshFavouriteTask] {
	return func(ctx context.Context, task RefreshFavouriteTask) error {
		if fetcher == nil || store == nil {
			return fmt.Errorf("favourite refresh not configured")
		}
		if task.MalID <= 0 {
			return fmt.Errorf("invalid mal_id: %d", task.MalID)
		}

		anime, err := fetcher.GetAnimeFull(ctx, task.MalID)
		if errors.Is(err, jikan.ErrNotFound) {
			// Removed from the catalog; keep the stored copy as is
			log.Printf("[TASK] Anime %d no longer in catalog, keeping stored favourite", task.MalID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("refresh favourite %d: %w", task.MalID, err)
		}

		imageURL := anime.Images.Poster()
		updated, err := store.UpdateFavouriteMetadata(task.MalID, anime.Title, imageURL, anime.Type, anime.Score)
		if err != nil {
			return fmt.Errorf("update favourite %d: %w", task.MalID, err)
		}

		if posters != nil && task.ImageURL != "" && imageURL != task.ImageURL {
			if err := posters.Invalidate(task.MalID); err != nil {
				log.Printf("[TASK] Failed to invalidate poster of %d: %v", task.MalID, err)
			}
		}

		log.Printf("[TASK] Refreshed favourite %d (%s): %d copies updated", task.MalID, anime.Title, updated)
		return nil
	}
}

// NewRefreshFavouriteQueue creates a backlite queue for favourite refresh tasks.
func NewRefreshFavouriteQueue(fetcher AnimeFetcher, store FavouriteRefresher, posters PosterInvalidator) backlite.Queue {
	return backlite.NewQueue(RefreshFavouriteProcessor(fetcher, store, posters))
}
