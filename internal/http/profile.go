package http

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/animedex/internal/auth"
	"github.com/mrlokans/animedex/internal/avatars"
	"github.com/mrlokans/animedex/internal/browse"
	"github.com/mrlokans/animedex/internal/entities"
)

var errUploadsDisabled = errors.New("profile image uploads are disabled")

// ProfileController handles the profile page and profile image updates.
type ProfileController struct {
	authService    *auth.Service
	sessionManager *auth.SessionManager
	favourites     FavouritesStore
	avatars        AvatarStore
	pages          *Pages
}

// NewProfileController creates the profile controller. A nil avatar store
// accepts image URLs only.
func NewProfileController(authService *auth.Service, sessionManager *auth.SessionManager, favourites FavouritesStore, avatarStore AvatarStore, pages *Pages) *ProfileController {
	return &ProfileController{
		authService:    authService,
		sessionManager: sessionManager,
		favourites:     favourites,
		avatars:        avatarStore,
		pages:          pages,
	}
}

// ProfilePage shows the account with charts of its favourites.
// GET /profile
func (pc *ProfileController) ProfilePage(c *gin.Context) {
	data := gin.H{"Title": "Profile"}
	if c.Query("updated") == "1" {
		data["Success"] = "Profile image updated."
	}
	pc.render(c, http.StatusOK, data)
}

// UpdateImage stores a new profile picture and refreshes the session.
// The form carries either an upload in profile_image or a URL in
// profile_image_url.
// POST /profile/image
func (pc *ProfileController) UpdateImage(c *gin.Context) {
	username := auth.GetUsername(c)

	user, err := pc.updateImage(c, username)
	if err != nil {
		message := "Failed to update profile image."
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, auth.ErrImageInvalid):
			message, status = "Profile image must be an http(s) URL or a site path.", http.StatusBadRequest
		case errors.Is(err, avatars.ErrTooLarge):
			message = fmt.Sprintf("Profile image must be at most %d KB.", pc.maxUploadBytes()>>10)
			status = http.StatusRequestEntityTooLarge
		case errors.Is(err, avatars.ErrUnsupportedType):
			message, status = "Profile image must be a PNG, JPEG, GIF or WebP file.", http.StatusUnsupportedMediaType
		case errors.Is(err, errUploadsDisabled):
			message, status = "Profile image uploads are not available. Use an image URL instead.", http.StatusBadRequest
		case errors.Is(err, auth.ErrUserNotFound):
			message, status = "Account not found.", http.StatusNotFound
		default:
			log.Printf("Failed to update profile image of %s: %v", username, err)
		}

		if wantsJSON(c) {
			c.JSON(status, ErrorResponse{Error: message})
			return
		}
		pc.render(c, status, gin.H{"Title": "Profile", "Error": message})
		return
	}

	pc.sessionManager.UpdateUser(c.Request, user)

	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"profile_image": user.ProfileImage})
		return
	}
	c.Redirect(http.StatusSeeOther, "/profile?updated=1")
}

func (pc *ProfileController) updateImage(c *gin.Context, username string) (*entities.User, error) {
	upload, err := avatars.FromRequest(c.Writer, c.Request, "profile_image", pc.maxUploadBytes())
	if err != nil {
		return nil, err
	}
	if upload != nil {
		if pc.avatars == nil {
			return nil, errUploadsDisabled
		}
		path, err := pc.avatars.Save(auth.GetUserID(c), upload)
		if err != nil {
			return nil, fmt.Errorf("store profile image: %w", err)
		}
		return pc.authService.UpdateProfileImage(username, path)
	}

	image := strings.TrimSpace(c.PostForm("profile_image_url"))
	if image == "" {
		image = c.PostForm("profile_image")
	}
	return pc.authService.UpdateProfileImage(username, image)
}

func (pc *ProfileController) maxUploadBytes() int64 {
	if pc.avatars == nil {
		return avatars.DefaultMaxBytes
	}
	return pc.avatars.MaxBytes()
}

func (pc *ProfileController) render(c *gin.Context, status int, data gin.H) {
	userID := auth.GetUserID(c)

	favs, err := pc.favourites.ListFavourites(userID)
	if err != nil {
		respondInternalError(c, err, "profile favourites")
		return
	}

	// The session marker may predate this request's image update
	if user, ok := pc.sessionManager.CurrentUser(c.Request); ok {
		data["User"] = user
	}
	data["FavouriteCount"] = len(favs)
	data["Uploads"] = pc.avatars != nil
	data["Charts"] = browse.ProfileCharts(favs)

	pc.pages.Render(c, status, "profile.html", data)
}
