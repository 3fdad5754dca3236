package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/animedex/internal/auth"
	"github.com/mrlokans/animedex/internal/browse"
	"github.com/mrlokans/animedex/internal/jikan"
	"github.com/mrlokans/animedex/internal/player"
)

// CatalogController serves the search page, anime details and the catalog
// JSON API. Favourites may be nil when accounts are disabled.
type CatalogController struct {
	catalog     CatalogClient
	favourites  FavouritesStore
	pages       *Pages
	defaultView string
}

func NewCatalogController(catalog CatalogClient, favourites FavouritesStore, pages *Pages, defaultView string) *CatalogController {
	return &CatalogController{
		catalog:     catalog,
		favourites:  favourites,
		pages:       pages,
		defaultView: defaultView,
	}
}

// SearchPage renders the current season or the filtered search results.
// GET /
func (cc *CatalogController) SearchPage(c *gin.Context) {
	state := browse.ParseState(c.Request.URL.Query(), cc.defaultView)

	data := gin.H{
		"State":         state,
		"Filters":       browse.ActiveFilters(state),
		"TypeOptions":   jikan.TypeOptions,
		"StatusOptions": jikan.StatusOptions,
		"RatingOptions": jikan.RatingOptions,
		"OrderOptions":  jikan.OrderOptions,
		"GridURL":       state.ViewURL(browse.ViewGrid),
		"ListURL":       state.ViewURL(browse.ViewList),
		"Pagination":    browse.Pagination{},
	}

	result, err := cc.catalog.Search(c.Request.Context(), state.Search())
	if err != nil {
		status, message, _ := catalogError(err)
		log.Printf("Search failed [%s]: %v", GetRequestID(c), err)
		data["Error"] = message
		cc.pages.Render(c, status, "index.html", data)
		return
	}

	cards := browse.Cards(result.Data, cc.favouriteIDs(c))
	if state.FavouritesOnly {
		cards = browse.OnlyFavourites(cards)
	}
	data["Cards"] = cards

	last, hasNext := state.Page, false
	if p := result.Pagination; p != nil {
		last, hasNext = p.LastVisiblePage, p.HasNextPage
		data["Total"] = p.Items.Total
	}
	data["Pagination"] = browse.Paginate(state.Page, last, hasNext, browse.DefaultWindow)

	cc.pages.Render(c, http.StatusOK, "index.html", data)
}

// AnimePage renders the detail page with episodes, videos and links.
// GET /ui/anime/:id
func (cc *CatalogController) AnimePage(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		cc.pages.RenderError(c, http.StatusBadRequest, "Invalid anime", "invalid anime id")
		return
	}

	ctx := c.Request.Context()
	anime, err := cc.catalog.GetAnimeFull(ctx, id)
	if err != nil {
		cc.renderCatalogError(c, err)
		return
	}

	preview := browse.QuickPreview(anime, cc.isFavourite(c, id))
	data := gin.H{
		"Title":      anime.Title,
		"Anime":      anime,
		"Card":       preview.Card,
		"Synopsis":   preview.Synopsis,
		"Genres":     preview.Genres,
		"Studios":    preview.Studios,
		"TrailerURL": player.EmbedURL(preview.TrailerURL),
		"Streaming":  anime.StreamingSources(),
		"External":   anime.External,
	}

	// Episodes and videos are optional sections; their failure still shows the page
	if episodes, err := cc.catalog.GetEpisodes(ctx, id, 1); err != nil {
		log.Printf("Episodes of %d unavailable [%s]: %v", id, GetRequestID(c), err)
	} else {
		data["Episodes"] = episodes.Data
		data["MoreEpisodes"] = episodes.Pagination != nil && episodes.Pagination.HasNextPage
	}
	if videos, err := cc.catalog.GetVideos(ctx, id); err != nil {
		log.Printf("Videos of %d unavailable [%s]: %v", id, GetRequestID(c), err)
	} else {
		data["Videos"] = videos
	}

	cc.pages.Render(c, http.StatusOK, "anime.html", data)
}

// Preview renders the quick preview fragment, or its JSON model.
// GET /ui/anime/:id/preview
func (cc *CatalogController) Preview(c *gin.Context) {
	id, ok := parseAnimeID(c)
	if !ok {
		return
	}

	anime, err := cc.catalog.GetAnimeFull(c.Request.Context(), id)
	if err != nil {
		respondCatalogError(c, err, "preview")
		return
	}

	preview := browse.QuickPreview(anime, cc.isFavourite(c, id))
	if wantsJSON(c) {
		c.JSON(http.StatusOK, preview)
		return
	}
	c.HTML(http.StatusOK, "preview", preview)
}

// Watch resolves what to play: the first streaming link, else the trailer.
// GET /ui/anime/:id/watch
func (cc *CatalogController) Watch(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		cc.pages.RenderError(c, http.StatusBadRequest, "Invalid anime", "invalid anime id")
		return
	}

	anime, err := cc.catalog.GetAnimeFull(c.Request.Context(), id)
	if err != nil {
		cc.renderCatalogError(c, err)
		return
	}

	data := gin.H{
		"Title":      anime.Title,
		"AnimeTitle": anime.Title,
		"BackURL":    browse.NewCard(anime, false).DetailURL,
	}

	selection, err := player.Select(anime)
	if err != nil {
		message := FetchErrorMessage
		if errors.Is(err, player.ErrNoStreams) {
			message = "No streaming links available."
		}
		if wantsJSON(c) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: message})
			return
		}
		data["Error"] = message
	} else {
		if wantsJSON(c) {
			c.JSON(http.StatusOK, selection)
			return
		}
		data["Selection"] = selection
	}

	cc.pages.Render(c, http.StatusOK, "watch.html", data)
}

// --- JSON API ---

// SearchJSON returns one page of search results with favourite flags.
// GET /api/anime/search
func (cc *CatalogController) SearchJSON(c *gin.Context) {
	state := browse.ParseState(c.Request.URL.Query(), cc.defaultView)

	result, err := cc.catalog.Search(c.Request.Context(), state.Search())
	if err != nil {
		respondCatalogError(c, err, "search")
		return
	}

	cards := browse.Cards(result.Data, cc.favouriteIDs(c))
	if state.FavouritesOnly {
		cards = browse.OnlyFavourites(cards)
	}

	resp := gin.H{
		"data":    cards,
		"filters": browse.ActiveFilters(state),
	}
	if p := result.Pagination; p != nil {
		resp["pagination"] = p
	}
	c.JSON(http.StatusOK, resp)
}

// Autocomplete returns up to five titles for the typed prefix.
// GET /api/anime/autocomplete?q=
func (cc *CatalogController) Autocomplete(c *gin.Context) {
	limit := parsePositiveQuery(c, "limit", jikan.AutocompleteLimit)
	if limit > jikan.AutocompleteLimit {
		limit = jikan.AutocompleteLimit
	}

	animes, err := cc.catalog.Autocomplete(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		respondCatalogError(c, err, "autocomplete")
		return
	}

	type suggestion struct {
		ID    int    `json:"id"`
		Title string `json:"title"`
		Image string `json:"image"`
	}
	out := make([]suggestion, 0, len(animes))
	for _, a := range animes {
		out = append(out, suggestion{ID: a.MalID, Title: a.Title, Image: a.Images.Poster()})
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// GetAnime returns the full record.
// GET /api/anime/:id
func (cc *CatalogController) GetAnime(c *gin.Context) {
	id, ok := parseAnimeID(c)
	if !ok {
		return
	}
	anime, err := cc.catalog.GetAnimeFull(c.Request.Context(), id)
	if err != nil {
		respondCatalogError(c, err, "anime")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": anime, "favourite": cc.isFavourite(c, id)})
}

// GetEpisodes returns one page of episodes.
// GET /api/anime/:id/episodes?page=
func (cc *CatalogController) GetEpisodes(c *gin.Context) {
	id, ok := parseAnimeID(c)
	if !ok {
		return
	}
	episodes, err := cc.catalog.GetEpisodes(c.Request.Context(), id, parsePositiveQuery(c, "page", 1))
	if err != nil {
		respondCatalogError(c, err, "episodes")
		return
	}
	c.JSON(http.StatusOK, episodes)
}

// GetStreaming lists streaming services.
// GET /api/anime/:id/streaming
func (cc *CatalogController) GetStreaming(c *gin.Context) {
	id, ok := parseAnimeID(c)
	if !ok {
		return
	}
	links, err := cc.catalog.GetStreaming(c.Request.Context(), id)
	if err != nil {
		respondCatalogError(c, err, "streaming")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": links})
}

// GetExternal lists external reference sites.
// GET /api/anime/:id/external
func (cc *CatalogController) GetExternal(c *gin.Context) {
	id, ok := parseAnimeID(c)
	if !ok {
		return
	}
	links, err := cc.catalog.GetExternal(c.Request.Context(), id)
	if err != nil {
		respondCatalogError(c, err, "external")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": links})
}

// GetVideos returns promos, episode videos and music videos.
// GET /api/anime/:id/videos
func (cc *CatalogController) GetVideos(c *gin.Context) {
	id, ok := parseAnimeID(c)
	if !ok {
		return
	}
	videos, err := cc.catalog.GetVideos(c.Request.Context(), id)
	if err != nil {
		respondCatalogError(c, err, "videos")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": videos})
}

func (cc *CatalogController) renderCatalogError(c *gin.Context, err error) {
	status, message, _ := catalogError(err)
	if status != http.StatusNotFound {
		log.Printf("Catalog request failed [%s]: %v", GetRequestID(c), err)
	}
	cc.pages.RenderError(c, status, "Unavailable", message)
}

// favouriteIDs returns the catalog ids favourited by the current user, or
// nil for anonymous visitors.
func (cc *CatalogController) favouriteIDs(c *gin.Context) map[int]bool {
	userID := auth.GetUserID(c)
	if cc.favourites == nil || userID == auth.AnonymousUserID {
		return nil
	}
	ids, err := cc.favourites.GetFavouriteIDs(userID)
	if err != nil {
		log.Printf("Failed to load favourites of user %d: %v", userID, err)
		return nil
	}
	return ids
}

func (cc *CatalogController) isFavourite(c *gin.Context, malID int) bool {
	userID := auth.GetUserID(c)
	if cc.favourites == nil || userID == auth.AnonymousUserID {
		return false
	}
	ok, err := cc.favourites.IsFavourite(userID, malID)
	if err != nil {
		log.Printf("Failed to check favourite %d of user %d: %v", malID, userID, err)
	}
	return ok
}
