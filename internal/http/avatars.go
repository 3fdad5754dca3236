package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/animedex/internal/avatars"
)

// AvatarsController serves uploaded profile images.
type AvatarsController struct {
	store AvatarStore
}

func NewAvatarsController(store AvatarStore) *AvatarsController {
	return &AvatarsController{store: store}
}

// GetAvatar serves a user's uploaded picture. The ?v= query only busts caches.
// GET /avatars/:id
func (ac *AvatarsController) GetAvatar(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user id"})
		return
	}

	path, err := ac.store.Path(uint(id))
	if errors.Is(err, avatars.ErrNotFound) {
		c.Status(http.StatusNotFound)
		return
	}
	if err != nil {
		respondInternalError(c, err, "avatar lookup")
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.File(path)
}

// UploadLimitMiddleware caps multipart bodies before any handler or the
// CSRF check parses them.
func UploadLimitMiddleware(maxBytes int64) gin.HandlerFunc {
	limit := avatars.RequestLimit(maxBytes)
	return func(c *gin.Context) {
		if strings.HasPrefix(c.GetHeader("Content-Type"), "multipart/form-data") {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
