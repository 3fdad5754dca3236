package http

import (
	"html/template"

	"github.com/mrlokans/animedex/internal/auth"
	"github.com/mrlokans/animedex/internal/config"
	"github.com/mrlokans/animedex/internal/covers"
	"github.com/mrlokans/animedex/internal/event"
	"github.com/mrlokans/animedex/internal/tasks"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router. Optional parts are left nil.
type RouterConfig struct {
	// Core dependencies
	Catalog    CatalogClient
	Favourites FavouritesStore
	Database   Pinger
	Events     *event.EventManager
	Audit      AuditReader

	// Authentication (nil AuthService disables accounts and favourites)
	AuthService    *auth.Service
	SessionManager *auth.SessionManager
	AuthConfig     config.Auth
	CSRFSecret     []byte

	// UI paths and defaults; empty paths use the embedded assets
	UI config.UI

	// Local poster cache for favourites (optional)
	Posters PosterCache
	// Hosts favourite posters may point at; empty means covers.DefaultPosterHosts
	PosterHosts covers.HostAllowList

	// Uploaded profile images (optional)
	Avatars AvatarStore

	// Task queue (optional)
	TaskQueue  TaskQueue
	TaskConfig tasks.Config

	// Analytics script tag for the page head (optional)
	Analytics template.HTML

	// Application info
	Version string
}
