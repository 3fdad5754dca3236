package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/animedex/internal/auth"
	"github.com/mrlokans/animedex/internal/browse"
	"github.com/mrlokans/animedex/internal/covers"
	"github.com/mrlokans/animedex/internal/entities"
	"github.com/mrlokans/animedex/internal/event"
)

// FavouriteRequest carries the catalog fields stored with a favourite.
// When Title is empty the record is fetched from the catalog instead; an
// ImageURL outside the poster hosts is replaced by the catalog poster.
type FavouriteRequest struct {
	Title    string   `json:"title" form:"title"`
	ImageURL string   `json:"image_url" form:"image_url"`
	Type     string   `json:"type" form:"type"`
	Score    *float64 `json:"score" form:"score"`
}

// FavouriteResponse reports the favourite state after a change.
type FavouriteResponse struct {
	ID        int    `json:"id"`
	Favourite bool   `json:"favourite"`
	Message   string `json:"message"`
}

// FavouritesController adds and removes favourites of the logged-in user.
// Every route runs behind auth.RequireAuth.
type FavouritesController struct {
	store      FavouritesStore
	catalog    CatalogClient
	events     *event.EventManager
	pages      *Pages
	posterURLs bool

	posterHosts covers.HostAllowList
}

// NewFavouritesController creates the controller. With posterURLs set, the
// favourites page loads images from the local poster cache.
func NewFavouritesController(store FavouritesStore, catalog CatalogClient, events *event.EventManager, pages *Pages, posterURLs bool, posterHosts covers.HostAllowList) *FavouritesController {
	return &FavouritesController{
		store:       store,
		catalog:     catalog,
		events:      events,
		pages:       pages,
		posterURLs:  posterURLs,
		posterHosts: posterHosts,
	}
}

// Toggle adds the anime when absent and removes it when present.
// POST /api/favourites/:id/toggle
func (fc *FavouritesController) Toggle(c *gin.Context) {
	id, ok := parseAnimeID(c)
	if !ok {
		return
	}

	exists, err := fc.store.IsFavourite(auth.GetUserID(c), id)
	if err != nil {
		respondInternalError(c, err, "check favourite")
		return
	}
	if exists {
		fc.remove(c, id)
		return
	}
	fc.add(c, id)
}

// AddFavourite stores the anime, overwriting an existing copy.
// POST /api/favourites/:id
func (fc *FavouritesController) AddFavourite(c *gin.Context) {
	id, ok := parseAnimeID(c)
	if !ok {
		return
	}
	fc.add(c, id)
}

// RemoveFavourite deletes the anime; removing an absent favourite succeeds.
// DELETE /api/favourites/:id
func (fc *FavouritesController) RemoveFavourite(c *gin.Context) {
	id, ok := parseAnimeID(c)
	if !ok {
		return
	}
	fc.remove(c, id)
}

// ListFavourites returns all favourites of the user, newest first.
// GET /api/favourites
func (fc *FavouritesController) ListFavourites(c *gin.Context) {
	favs, err := fc.store.ListFavourites(auth.GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "list favourites")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": favs, "count": len(favs)})
}

// FavouritesPage renders the stored favourites.
// GET /favourites
func (fc *FavouritesController) FavouritesPage(c *gin.Context) {
	favs, err := fc.store.ListFavourites(auth.GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "favourites page")
		return
	}

	cards := browse.FavouriteCards(favs)
	if fc.posterURLs {
		for i := range cards {
			if cards[i].Image != "" {
				cards[i].Image = fmt.Sprintf("/posters/%d", cards[i].ID)
			}
		}
	}

	fc.pages.Render(c, http.StatusOK, "favourites.html", gin.H{
		"Title": "Favorites",
		"Cards": cards,
	})
}

func (fc *FavouritesController) add(c *gin.Context, id int) {
	userID := auth.GetUserID(c)

	var req FavouriteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBind(&req); err != nil {
			respondBadRequest(c, "invalid favourite: "+err.Error())
			return
		}
	}

	fav := &entities.Favourite{
		UserID:   userID,
		MalID:    id,
		Title:    strings.TrimSpace(req.Title),
		ImageURL: req.ImageURL,
		Type:     req.Type,
		Score:    req.Score,
	}
	// Client posters are only kept when they point at a known CDN
	needCatalog := fav.Title == ""
	if fav.ImageURL != "" && !fc.posterHosts.Allows(fav.ImageURL) {
		fav.ImageURL = ""
		needCatalog = true
	}

	if needCatalog {
		anime, err := fc.catalog.GetAnimeFull(c.Request.Context(), id)
		if err != nil {
			respondCatalogError(c, err, "favourite metadata")
			return
		}
		fav.ImageURL = anime.Images.Poster()
		if fav.Title == "" {
			fav.Title = anime.Title
			fav.Type = anime.Type
			fav.Score = anime.Score
		}
	}

	if err := fc.store.PutFavourite(fav); err != nil {
		respondInternalError(c, err, "add favourite")
		return
	}

	fc.publish(userID, id, fav.Title, true)
	fc.respond(c, id, true, "favourite added")
}

func (fc *FavouritesController) remove(c *gin.Context, id int) {
	userID := auth.GetUserID(c)

	title := ""
	if existing, err := fc.store.GetFavourite(userID, id); err == nil {
		title = existing.Title
	}

	if err := fc.store.RemoveFavourite(userID, id); err != nil {
		respondInternalError(c, err, "remove favourite")
		return
	}

	fc.publish(userID, id, title, false)
	fc.respond(c, id, false, "favourite removed")
}

func (fc *FavouritesController) publish(userID uint, malID int, title string, added bool) {
	if fc.events == nil {
		return
	}
	fc.events.Publish(event.Event{
		Type: event.FavouritesChanged,
		Data: event.FavouriteChange{UserID: userID, MalID: malID, Added: added, Title: title},
	})
}

func (fc *FavouritesController) respond(c *gin.Context, id int, favourite bool, message string) {
	if isHTMXRequest(c) {
		c.HTML(http.StatusOK, "favourite-button", browse.Card{ID: id, Favourite: favourite})
		return
	}
	c.JSON(http.StatusOK, FavouriteResponse{ID: id, Favourite: favourite, Message: message})
}
