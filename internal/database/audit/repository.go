package audit

import (
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/animedex/internal/entities"
)

const defaultPageSize = 50

// Filter narrows an audit event listing. Zero values match everything.
type Filter struct {
	UserID    uint
	EventType entities.AuditEventType
	Since     time.Time
	Limit     int
	Offset    int
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// LogEvent saves an audit event to the database.
func (r *Repository) LogEvent(event *entities.AuditEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	return r.db.Create(event).Error
}

// GetEvents returns matching events, most recent first, and the total match count.
func (r *Repository) GetEvents(f Filter) ([]entities.AuditEvent, int64, error) {
	query := r.db.Model(&entities.AuditEvent{})
	if f.UserID > 0 {
		query = query.Where("user_id = ?", f.UserID)
	}
	if f.EventType != "" {
		query = query.Where("event_type = ?", f.EventType)
	}
	if !f.Since.IsZero() {
		query = query.Where("created_at > ?", f.Since)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	offset := max(f.Offset, 0)

	var events []entities.AuditEvent
	err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&events).Error
	return events, total, err
}

// DeleteOldEvents removes events created before olderThan and returns how many were removed.
func (r *Repository) DeleteOldEvents(olderThan time.Time) (int64, error) {
	result := r.db.Where("created_at < ?", olderThan).Delete(&entities.AuditEvent{})
	return result.RowsAffected, result.Error
}
