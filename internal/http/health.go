package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
	Stats   map[string]int    `json:"stats,omitempty"`
}

// CacheStats reports how many search pages are cached (jikan.Client).
type CacheStats interface {
	CacheLen() int
}

type HealthController struct {
	db      Pinger
	cache   CacheStats
	streams *EventStream
	version string
}

// NewHealthController creates the controller. Any dependency may be nil.
func NewHealthController(db Pinger, cache CacheStats, streams *EventStream, version string) *HealthController {
	return &HealthController{
		db:      db,
		cache:   cache,
		streams: streams,
		version: version,
	}
}

func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	stats := make(map[string]int)
	status := "healthy"

	// Check database connectivity
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks["database"] = "ok"
		}
	} else {
		checks["database"] = "not configured"
	}

	if h.cache != nil {
		stats["search_cache_entries"] = h.cache.CacheLen()
	}
	if h.streams != nil {
		stats["event_streams"] = h.streams.ClientCount()
	}

	health := HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
		Stats:   stats,
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}

// Ping is a liveness check.
func (h *HealthController) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}
