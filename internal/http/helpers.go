package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/animedex/internal/jikan"
)

// Messages shown to users when the catalog cannot be reached.
const (
	FetchErrorMessage = "An error occurred while fetching the data."
	RateLimitMessage  = "Rate limit reached. Please wait a moment and try again."
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"` // machine-readable error code
	RequestID string `json:"request_id,omitempty"`
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found"})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	id := GetRequestID(c)
	log.Printf("Internal error (%s) [%s]: %v", context, id, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", RequestID: id})
}

// respondCatalogError maps a catalog client failure to a JSON response.
func respondCatalogError(c *gin.Context, err error, context string) {
	status, message, code := catalogError(err)
	if status == http.StatusNotFound {
		respondNotFound(c, "anime")
		return
	}
	log.Printf("Catalog error (%s) [%s]: %v", context, GetRequestID(c), err)
	c.JSON(status, ErrorResponse{Error: message, Code: code, RequestID: GetRequestID(c)})
}

// catalogError classifies a catalog error into a status code, the message
// shown to users and a machine-readable code.
func catalogError(err error) (int, string, string) {
	var statusErr *jikan.StatusError
	switch {
	case errors.Is(err, jikan.ErrNotFound):
		return http.StatusNotFound, "Anime not found.", "not_found"
	case errors.Is(err, jikan.ErrRateLimited):
		return http.StatusTooManyRequests, RateLimitMessage, "rate_limited"
	case errors.As(err, &statusErr):
		return http.StatusBadGateway, FetchErrorMessage, "upstream_error"
	default:
		return http.StatusBadGateway, FetchErrorMessage, "upstream_unavailable"
	}
}

// --- Success Response Helpers ---

// respondSuccess sends a 200 OK response with a message.
func respondSuccess(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, SuccessResponse{Message: message, Data: data})
}

// respondAccepted sends a 202 Accepted response (for async operations).
func respondAccepted(c *gin.Context, message string, data any) {
	c.JSON(http.StatusAccepted, SuccessResponse{Message: message, Data: data})
}

// --- Parameter Parsing ---

// parseAnimeID extracts a positive catalog id from the URL.
// Responds with a 400 error and returns 0, false when invalid.
func parseAnimeID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		respondBadRequest(c, "invalid anime id")
		return 0, false
	}
	return id, true
}

// parsePositiveQuery reads an optional positive integer query parameter.
func parsePositiveQuery(c *gin.Context, name string, fallback int) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// --- HTMX Support ---

// isHTMXRequest returns true if the request comes from the page script
// asking for an HTML fragment.
func isHTMXRequest(c *gin.Context) bool {
	return c.GetHeader("HX-Request") == "true"
}

// wantsJSON reports whether the caller prefers a JSON response.
func wantsJSON(c *gin.Context) bool {
	return c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON
}
