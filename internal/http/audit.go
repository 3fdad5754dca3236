package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/animedex/internal/auth"
	"github.com/mrlokans/animedex/internal/entities"
)

// AuditReader lists recorded audit events (audit.Service).
type AuditReader interface {
	GetEvents(userID uint, limit, offset int) ([]entities.AuditEvent, int64, error)
	GetEventsByType(eventType entities.AuditEventType, userID uint, limit, offset int) ([]entities.AuditEvent, int64, error)
}

type AuditController struct {
	auditService AuditReader
}

func NewAuditController(auditService AuditReader) *AuditController {
	return &AuditController{
		auditService: auditService,
	}
}

// GetAuditEvents returns the logged-in user's activity, paginated.
// GET /api/audit?page=&limit=&type=
func (ac *AuditController) GetAuditEvents(c *gin.Context) {
	userID := auth.GetUserID(c)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 25
	}

	eventType := c.Query("type")
	if eventType != "" && !knownEventType(eventType) {
		respondBadRequest(c, "unknown event type: "+eventType)
		return
	}
	offset := (page - 1) * limit

	var events []entities.AuditEvent
	var total int64
	var err error

	if eventType != "" {
		events, total, err = ac.auditService.GetEventsByType(entities.AuditEventType(eventType), userID, limit, offset)
	} else {
		events, total, err = ac.auditService.GetEvents(userID, limit, offset)
	}

	if err != nil {
		respondInternalError(c, err, "audit events")
		return
	}

	totalPages := (int(total) + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	c.JSON(http.StatusOK, gin.H{
		"events":       events,
		"page":         page,
		"limit":        limit,
		"total_pages":  totalPages,
		"total_events": total,
	})
}

func knownEventType(t string) bool {
	switch entities.AuditEventType(t) {
	case entities.AuditEventAuth, entities.AuditEventFavourite, entities.AuditEventProfile,
		entities.AuditEventRefresh, entities.AuditEventCleanup:
		return true
	}
	return false
}
