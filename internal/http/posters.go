package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/animedex/internal/auth"
	"github.com/mrlokans/animedex/internal/covers"
	"github.com/mrlokans/animedex/internal/database/favourites"
)

// PostersController serves favourite posters from the local cache.
type PostersController struct {
	cache PosterCache
	store FavouritesStore
	hosts covers.HostAllowList
}

func NewPostersController(cache PosterCache, store FavouritesStore, hosts covers.HostAllowList) *PostersController {
	return &PostersController{
		cache: cache,
		store: store,
		hosts: hosts,
	}
}

// GetPoster serves the cached poster of one of the user's favourites.
// GET /posters/:id
func (pc *PostersController) GetPoster(c *gin.Context) {
	id, ok := parseAnimeID(c)
	if !ok {
		return
	}

	fav, err := pc.store.GetFavourite(auth.GetUserID(c), id)
	if errors.Is(err, favourites.ErrFavouriteNotFound) {
		c.Status(http.StatusNotFound)
		return
	}
	if err != nil {
		respondInternalError(c, err, "poster lookup")
		return
	}
	if fav.ImageURL == "" {
		c.Status(http.StatusNotFound)
		return
	}

	// Get cached poster (will fetch if not cached)
	path, err := pc.cache.GetPoster(c.Request.Context(), id, fav.ImageURL)
	if err != nil || path == "" {
		if err != nil {
			log.Printf("Poster %d not cached: %v", id, err)
		}
		// Fallback: redirect to the CDN, never to an arbitrary stored URL
		if !pc.hosts.Allows(fav.ImageURL) {
			c.Status(http.StatusNotFound)
			return
		}
		c.Redirect(http.StatusTemporaryRedirect, fav.ImageURL)
		return
	}

	c.Header("Cache-Control", "private, max-age=86400")
	c.File(path)
}
