package tasks

import (
	"errors"
	"fmt"

	"github.com/mikestefanello/backlite"
)

// Queue names, also used as task types by the tasks API.
const (
	TypeRefreshFavourite     = "refresh_favourite"
	TypeRefreshAllFavourites = "refresh_all_favourites"
	TypeCleanupAuditEvents   = "cleanup_audit_events"
)

// ErrUnknownType is returned by Build for unregistered task types
var ErrUnknownType = errors.New("unknown task type")

// TypeInfo describes a task type that can be triggered manually.
type TypeInfo struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Queue       string `json:"queue"`
}

// Types lists the task types in the order they are shown to users.
func Types() []TypeInfo {
	return []TypeInfo{
		{
			Type:        TypeRefreshFavourite,
			Description: "Refresh stored title, poster and score of one favourite anime",
			Queue:       TypeRefreshFavourite,
		},
		{
			Type:        TypeRefreshAllFavourites,
			Description: "Refresh metadata of every favourite anime",
			Queue:       TypeRefreshAllFavourites,
		},
		{
			Type:        TypeCleanupAuditEvents,
			Description: "Delete audit events past the retention period",
			Queue:       TypeCleanupAuditEvents,
		},
	}
}

// RunRequest carries the optional arguments of a manual task run.
type RunRequest struct {
	// MalID is required for refresh_favourite
	MalID int `json:"mal_id,omitempty" form:"mal_id"`
	// RetentionDays overrides the configured audit retention
	RetentionDays int `json:"retention_days,omitempty" form:"retention_days"`
}

// Build creates the task for a type name, validating its arguments.
func Build(taskType string, req RunRequest, cfg Config) (backlite.Task, error) {
	switch taskType {
	case TypeRefreshFavourite:
		if req.MalID <= 0 {
			return nil, fmt.Errorf("mal_id is required for %s task", TypeRefreshFavourite)
		}
		return RefreshFavouriteTask{MalID: req.MalID}, nil

	case TypeRefreshAllFavourites:
		return RefreshAllFavouritesTask{Trigger: "manual"}, nil

	case TypeCleanupAuditEvents:
		days := req.RetentionDays
		if days <= 0 {
			days = cfg.AuditRetentionDays
		}
		return CleanupAuditEventsTask{RetentionDays: days}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, taskType)
	}
}
