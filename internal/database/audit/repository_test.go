package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/animedex/internal/entities"
)

func setupTestDB(t *testing.T) *Repository {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.AuditEvent{})
	require.NoError(t, err)

	return NewRepository(db)
}

func TestRepository_LogEvent(t *testing.T) {
	repo := setupTestDB(t)

	event := &entities.AuditEvent{
		UserID:      1,
		EventType:   entities.AuditEventAuth,
		Action:      "login",
		Description: "User alice logged in",
		Status:      entities.AuditStatusSuccess,
	}

	err := repo.LogEvent(event)
	require.NoError(t, err)
	assert.NotZero(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())
}

func TestRepository_GetEvents_Pagination(t *testing.T) {
	repo := setupTestDB(t)

	for i := 0; i < 15; i++ {
		require.NoError(t, repo.LogEvent(&entities.AuditEvent{
			UserID:    1,
			EventType: entities.AuditEventFavourite,
			Action:    "favourite_add",
			Status:    entities.AuditStatusSuccess,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}))
	}

	events, total, err := repo.GetEvents(Filter{UserID: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(15), total)
	assert.Len(t, events, 10)
	assert.True(t, events[0].CreatedAt.After(events[9].CreatedAt))

	events, _, err = repo.GetEvents(Filter{UserID: 1, Limit: 10, Offset: 10})
	require.NoError(t, err)
	assert.Len(t, events, 5)
}

func TestRepository_GetEvents_Filters(t *testing.T) {
	repo := setupTestDB(t)

	require.NoError(t, repo.LogEvent(&entities.AuditEvent{UserID: 1, EventType: entities.AuditEventAuth, Action: "login"}))
	require.NoError(t, repo.LogEvent(&entities.AuditEvent{UserID: 1, EventType: entities.AuditEventFavourite, Action: "favourite_add"}))
	require.NoError(t, repo.LogEvent(&entities.AuditEvent{UserID: 2, EventType: entities.AuditEventAuth, Action: "login"}))
	require.NoError(t, repo.LogEvent(&entities.AuditEvent{
		UserID: 1, EventType: entities.AuditEventAuth, Action: "logout",
		CreatedAt: time.Now().Add(-48 * time.Hour),
	}))

	events, total, err := repo.GetEvents(Filter{UserID: 1, EventType: entities.AuditEventAuth})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, e := range events {
		assert.Equal(t, entities.AuditEventAuth, e.EventType)
		assert.Equal(t, uint(1), e.UserID)
	}

	_, total, err = repo.GetEvents(Filter{UserID: 1, Since: time.Now().Add(-time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	_, total, err = repo.GetEvents(Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
}

func TestRepository_DeleteOldEvents(t *testing.T) {
	repo := setupTestDB(t)

	require.NoError(t, repo.LogEvent(&entities.AuditEvent{
		UserID: 1, EventType: entities.AuditEventAuth, Action: "old_login",
		CreatedAt: time.Now().Add(-40 * 24 * time.Hour),
	}))
	require.NoError(t, repo.LogEvent(&entities.AuditEvent{
		UserID: 1, EventType: entities.AuditEventAuth, Action: "new_login",
	}))

	deleted, err := repo.DeleteOldEvents(time.Now().Add(-30 * 24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	events, total, err := repo.GetEvents(Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "new_login", events[0].Action)
}
