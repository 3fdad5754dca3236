package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"

	"github.com/mrlokans/animedex/internal/config"
	"github.com/mrlokans/animedex/internal/tasks"
)

// AuditCleanupSchedule runs the audit retention cleanup once a day
const AuditCleanupSchedule = "0 3 * * *"

// Enqueuer saves tasks to the background queue.
type Enqueuer interface {
	Enqueue(tasks ...backlite.Task) ([]string, error)
}

// FavouritesSyncScheduler periodically enqueues a refresh of every favourite's
// metadata, and a daily audit cleanup. The work itself runs on the task queue.
type FavouritesSyncScheduler struct {
	config        config.FavouritesSync
	retentionDays int
	queue         Enqueuer

	cron         *cron.Cron
	syncEntry    cron.EntryID
	cleanupEntry cron.EntryID
	mu           sync.RWMutex
	isRunning    bool
	lastRun      time.Time
	lastErr      error
}

// NewFavouritesSyncScheduler creates a new scheduler instance
func NewFavouritesSyncScheduler(cfg config.FavouritesSync, audit config.Audit, queue Enqueuer) *FavouritesSyncScheduler {
	return &FavouritesSyncScheduler{
		config:        cfg,
		retentionDays: audit.RetentionDays,
		queue:         queue,
		cron:          cron.New(cron.WithParser(scheduleParser)),
	}
}

// Start registers the jobs and starts the cron loop. The favourites refresh
// job is only added when enabled; audit cleanup always runs.
func (s *FavouritesSyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if s.queue == nil {
		log.Printf("Favourites sync scheduler: task queue disabled, skipping")
		return nil
	}

	if s.config.Enabled {
		if err := ValidateCronSchedule(s.config.Schedule); err != nil {
			return fmt.Errorf("invalid cron schedule '%s': %w", s.config.Schedule, err)
		}
		entryID, err := s.cron.AddFunc(s.config.Schedule, func() {
			_, _ = s.enqueue(tasks.RefreshAllFavouritesTask{Trigger: "schedule"})
		})
		if err != nil {
			return fmt.Errorf("failed to schedule favourites sync: %w", err)
		}
		s.syncEntry = entryID
	} else {
		log.Printf("Favourites sync scheduler: refresh disabled")
	}

	entryID, err := s.cron.AddFunc(AuditCleanupSchedule, func() {
		_, _ = s.enqueue(tasks.CleanupAuditEventsTask{RetentionDays: s.retentionDays})
	})
	if err != nil {
		return fmt.Errorf("failed to schedule audit cleanup: %w", err)
	}
	s.cleanupEntry = entryID

	s.cron.Start()
	s.isRunning = true

	if s.config.Enabled {
		next, _ := GetNextRunTime(s.config.Schedule, time.Now())
		log.Printf("Favourites sync scheduler: started with schedule '%s' (%s). Next run: %v",
			s.config.Schedule, GetCronDescription(s.config.Schedule), next)
	}

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop stops accepting new jobs and waits for running ones.
func (s *FavouritesSyncScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	// Running jobs take s.mu in enqueue, so wait without holding it
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()

	s.mu.Lock()
	for _, e := range s.cron.Entries() {
		s.cron.Remove(e.ID)
	}
	s.syncEntry, s.cleanupEntry = 0, 0
	s.mu.Unlock()

	log.Printf("Favourites sync scheduler: stopped")
}

// RunNow enqueues an immediate refresh of all favourites.
func (s *FavouritesSyncScheduler) RunNow() (string, error) {
	if s.queue == nil {
		return "", fmt.Errorf("task queue disabled")
	}
	return s.enqueue(tasks.RefreshAllFavouritesTask{Trigger: "manual"})
}

// IsRunning returns whether the scheduler is active
func (s *FavouritesSyncScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns when the next favourites refresh will be enqueued.
func (s *FavouritesSyncScheduler) NextRun() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || s.syncEntry == 0 {
		return nil
	}
	t := s.cron.Entry(s.syncEntry).Next
	return &t
}

// LastRun returns when a job last enqueued work and its error, if any.
func (s *FavouritesSyncScheduler) LastRun() (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun, s.lastErr
}

func (s *FavouritesSyncScheduler) enqueue(task backlite.Task) (string, error) {
	ids, err := s.queue.Enqueue(task)

	s.mu.Lock()
	s.lastRun = time.Now()
	s.lastErr = err
	s.mu.Unlock()

	name := task.Config().Name
	if err != nil {
		log.Printf("Favourites sync scheduler: failed to enqueue %s: %v", name, err)
		return "", err
	}
	if len(ids) == 0 {
		return "", nil
	}
	log.Printf("Favourites sync scheduler: enqueued %s (%s)", name, ids[0])
	return ids[0], nil
}
