package audit

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mrlokans/animedex/internal/database/audit"
	"github.com/mrlokans/animedex/internal/entities"
	"github.com/mrlokans/animedex/internal/event"
)

// Store persists audit events.
type Store interface {
	LogEvent(event *entities.AuditEvent) error
	GetEvents(f audit.Filter) ([]entities.AuditEvent, int64, error)
	DeleteOldEvents(olderThan time.Time) (int64, error)
}

// Service provides high-level audit logging functionality.
type Service struct {
	repo    Store
	pending sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// Log records a generic audit event.
func (s *Service) Log(e *entities.AuditEvent) error {
	return s.repo.LogEvent(e)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(e *entities.AuditEvent) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.repo.LogEvent(e); err != nil {
			log.Printf("Failed to log audit event %s: %v", e.Action, err)
		}
	}()
}

// Flush blocks until all events queued with LogAsync are written.
func (s *Service) Flush() {
	s.pending.Wait()
}

// Subscribe records every session state change published on em.
func (s *Service) Subscribe(em *event.EventManager) func() {
	unsubAuth := em.Subscribe(event.AuthStateChanged, func(e event.Event) {
		change, ok := e.Data.(event.AuthChange)
		if !ok {
			return
		}
		s.LogAuth(change.UserID, string(change.Kind), change.IPAddress, change.UserAgent, true)
	})
	unsubFav := em.Subscribe(event.FavouritesChanged, func(e event.Event) {
		change, ok := e.Data.(event.FavouriteChange)
		if !ok {
			return
		}
		s.LogFavourite(change.UserID, change.MalID, change.Title, change.Added)
	})
	return func() {
		unsubAuth()
		unsubFav()
	}
}

// LogAuth records an authentication event.
func (s *Service) LogAuth(userID uint, action string, ipAddr, userAgent string, success bool) {
	e := &entities.AuditEvent{
		UserID:     userID,
		EventType:  entities.AuditEventAuth,
		Action:     action,
		EntityType: "user",
		EntityID:   &userID,
		IPAddress:  ipAddr,
		UserAgent:  truncate(userAgent, 500),
		Status:     entities.AuditStatusSuccess,
	}

	if !success {
		e.Status = entities.AuditStatusFailed
	}

	s.LogAsync(e)
}

// LogFavourite records a favourite being added or removed.
func (s *Service) LogFavourite(userID uint, malID int, title string, added bool) {
	action, verb := "favourite_remove", "Removed"
	if added {
		action, verb = "favourite_add", "Added"
	}
	id := uint(malID)

	s.LogAsync(&entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventFavourite,
		Action:      action,
		Description: truncate(fmt.Sprintf("%s %q (#%d)", verb, title, malID), 500),
		EntityType:  "anime",
		EntityID:    &id,
		Status:      entities.AuditStatusSuccess,
	})
}

// LogRefresh records a favourites metadata refresh run.
func (s *Service) LogRefresh(description string, refreshed, failed int, err error) {
	e := &entities.AuditEvent{
		EventType:   entities.AuditEventRefresh,
		Action:      "favourites_refresh",
		Description: description,
		EntityType:  "anime",
		Status:      entities.AuditStatusSuccess,
	}

	metadata := map[string]any{
		"refreshed": refreshed,
		"failed":    failed,
	}
	if mdBytes, e2 := json.Marshal(metadata); e2 == nil {
		e.Metadata = string(mdBytes)
	}

	if err != nil {
		e.Status = entities.AuditStatusFailed
		e.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(e)
}

// GetEvents retrieves paginated audit events for a user.
func (s *Service) GetEvents(userID uint, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(audit.Filter{UserID: userID, Limit: limit, Offset: offset})
}

// GetEventsByType returns events of one type for a user.
func (s *Service) GetEventsByType(eventType entities.AuditEventType, userID uint, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(audit.Filter{UserID: userID, EventType: eventType, Limit: limit, Offset: offset})
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(cutoff)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
