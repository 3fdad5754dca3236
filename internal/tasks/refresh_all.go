package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/animedex/internal/entities"
)

// FavouriteLister lists one stored entry per distinct favourite anime.
type FavouriteLister interface {
	ListAllFavourites() ([]entities.Favourite, error)
}

// Enqueuer saves tasks to the queue.
type Enqueuer interface {
	Enqueue(tasks ...backlite.Task) ([]string, error)
}

// RefreshReporter records the outcome of a bulk refresh.
type RefreshReporter interface {
	LogRefresh(description string, refreshed, failed int, err error)
}

// RefreshAllFavouritesTask fans out one RefreshFavouriteTask per distinct anime.
type RefreshAllFavouritesTask struct {
	Trigger string `json:"trigger,omitempty"` // "schedule" or "manual"
}

// Config returns the queue configuration for bulk refresh tasks.
func (t RefreshAllFavouritesTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        TypeRefreshAllFavourites,
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// RefreshAllFavouritesProcessor creates a processor function for RefreshAllFavouritesTask.
// reporter may be nil.
func RefreshAllFavouritesProcessor(lister FavouriteLister, queue Enqueuer, reporter RefreshReporter) backlite.QueueProcessor[RefreshAllFavouritesTask] {
	return func(ctx context.Context, task RefreshAllFavouritesTask) error {
		if lister == nil || queue == nil {
			return fmt.Errorf("favourite refresh not configured")
		}

		favourites, err := lister.ListAllFavourites()
		if err != nil {
			report(reporter, task, 0, 0, err)
			return fmt.Errorf("list favourites: %w", err)
		}

		batch := make([]backlite.Task, 0, len(favourites))
		for _, f := range favourites {
			if err := ctx.Err(); err != nil {
				return err
			}
			batch = append(batch, RefreshFavouriteTask{MalID: f.MalID, ImageURL: f.ImageURL})
		}

		ids, err := queue.Enqueue(batch...)
		if err != nil {
			report(reporter, task, 0, len(batch), err)
			return fmt.Errorf("enqueue favourite refreshes: %w", err)
		}

		log.Printf("[TASK] Enqueued refresh of %d favourites (%s)", len(ids), triggerName(task))
		report(reporter, task, len(ids), 0, nil)
		return nil
	}
}

// NewRefreshAllFavouritesQueue creates a backlite queue for bulk refresh tasks.
func NewRefreshAllFavouritesQueue(lister FavouriteLister, queue Enqueuer, reporter RefreshReporter) backlite.Queue {
	return backlite.NewQueue(RefreshAllFavouritesProcessor(lister, queue, reporter))
}

func report(reporter RefreshReporter, task RefreshAllFavouritesTask, enqueued, failed int, err error) {
	if reporter == nil {
		return
	}
	reporter.LogRefresh(
		fmt.Sprintf("Favourites refresh (%s): %d enqueued", triggerName(task), enqueued),
		enqueued, failed, err,
	)
}

func triggerName(task RefreshAllFavouritesTask) string {
	if task.Trigger == "" {
		return "manual"
	}
	return task.Trigger
}
