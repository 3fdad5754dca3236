package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/animedex/internal/audit"
	"github.com/mrlokans/animedex/internal/auth"
	"github.com/mrlokans/animedex/internal/avatars"
	"github.com/mrlokans/animedex/internal/cli"
	"github.com/mrlokans/animedex/internal/covers"
	"github.com/mrlokans/animedex/internal/database"
	auditrepo "github.com/mrlokans/animedex/internal/database/audit"
	"github.com/mrlokans/animedex/internal/database/favourites"
	"github.com/mrlokans/animedex/internal/database/users"
	"github.com/mrlokans/animedex/internal/http"
	"github.com/mrlokans/animedex/internal/jikan"
	"github.com/mrlokans/animedex/internal/scheduler"
	"github.com/mrlokans/animedex/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ http.FavouritesStore = (*favourites.Repository)(nil)
var _ http.Pinger = (*database.Database)(nil)
var _ auth.UserStore = (*users.Repository)(nil)
var _ audit.Store = (*auditrepo.Repository)(nil)

// =============================================================================
// Catalog API
// =============================================================================

var _ http.CatalogClient = (*jikan.Client)(nil)
var _ http.CacheStats = (*jikan.Client)(nil)
var _ cli.Searcher = (*jikan.Client)(nil)
var _ tasks.AnimeFetcher = (*jikan.Client)(nil)

// =============================================================================
// Posters
// =============================================================================

var _ http.PosterCache = (*covers.Cache)(nil)
var _ tasks.PosterInvalidator = (*covers.Cache)(nil)

// =============================================================================
// Profile Images
// =============================================================================

var _ http.AvatarStore = (*avatars.Store)(nil)
var _ auth.AvatarStore = (*avatars.Store)(nil)

// =============================================================================
// Background Work
// =============================================================================

var _ http.TaskQueue = (*tasks.Client)(nil)
var _ tasks.Enqueuer = (*tasks.Client)(nil)
var _ scheduler.Enqueuer = (*tasks.Client)(nil)
var _ tasks.FavouriteLister = (*favourites.Repository)(nil)
var _ tasks.FavouriteRefresher = (*favourites.Repository)(nil)
var _ tasks.RefreshReporter = (*audit.Service)(nil)
var _ tasks.AuditEventCleaner = (*audit.Service)(nil)
var _ http.AuditReader = (*audit.Service)(nil)
