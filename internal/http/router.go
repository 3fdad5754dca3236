package http

import (
	"html/template"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/animedex/internal/auth"
	"github.com/mrlokans/animedex/internal/avatars"
	"github.com/mrlokans/animedex/internal/covers"
	"github.com/mrlokans/animedex/internal/web"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// The returned function releases background resources (event streams,
// login rate limiter) and must be called on shutdown.
func NewRouter(cfg RouterConfig) (*gin.Engine, func()) {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())
	router.Use(auth.StrictTransportSecurityMiddleware())

	authEnabled := cfg.AuthService != nil && cfg.SessionManager != nil && cfg.AuthService.IsAuthEnabled()

	if authEnabled {
		maxUpload := int64(avatars.DefaultMaxBytes)
		if cfg.Avatars != nil {
			maxUpload = cfg.Avatars.MaxBytes()
		}
		router.Use(UploadLimitMiddleware(maxUpload))
	}

	// CSRF must run before session so that session context is preserved
	if authEnabled && len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.AuthConfig.SecureCookies))
	}
	if authEnabled {
		router.Use(cfg.SessionManager.LoadAndSave())
	}
	authMiddleware := auth.NewMiddleware(cfg.AuthService, cfg.SessionManager, cfg.AuthConfig)
	router.Use(authMiddleware.Handler())

	tmpl := template.Must(web.Templates(cfg.UI.TemplatesPath, templateFuncs))
	router.SetHTMLTemplate(tmpl)
	router.StaticFS("/static", web.Static(cfg.UI.StaticPath))

	pages := NewPages(authEnabled, cfg.Analytics)
	streams := NewEventStream(cfg.Events)
	cleanup := []func(){streams.Close}

	var favourites FavouritesStore
	if authEnabled {
		favourites = cfg.Favourites
	}
	posterHosts := cfg.PosterHosts
	if len(posterHosts) == 0 {
		posterHosts = covers.DefaultPosterHosts
	}

	// Health endpoints
	var cacheStats CacheStats
	if cs, ok := cfg.Catalog.(CacheStats); ok {
		cacheStats = cs
	}
	health := NewHealthController(cfg.Database, cacheStats, streams, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)

	// Catalog pages
	catalog := NewCatalogController(cfg.Catalog, favourites, pages, cfg.UI.DefaultView)
	router.GET("/", catalog.SearchPage)
	router.GET("/ui/anime/:id", catalog.AnimePage)
	router.GET("/ui/anime/:id/preview", catalog.Preview)
	router.GET("/ui/anime/:id/watch", catalog.Watch)
	router.GET("/ui/nav", pages.Nav)

	// Catalog API
	router.GET("/api/anime/search", catalog.SearchJSON)
	router.GET("/api/anime/autocomplete", catalog.Autocomplete)
	router.GET("/api/anime/:id", catalog.GetAnime)
	router.GET("/api/anime/:id/episodes", catalog.GetEpisodes)
	router.GET("/api/anime/:id/streaming", catalog.GetStreaming)
	router.GET("/api/anime/:id/videos", catalog.GetVideos)
	router.GET("/api/anime/:id/external", catalog.GetExternal)

	// Theme and live notifications
	router.POST("/theme/toggle", NewThemeController(cfg.AuthConfig.SecureCookies).Toggle)
	router.GET("/events", streams.Handler)

	// Accounts, favourites and profile
	if authEnabled {
		var authAvatars auth.AvatarStore
		if cfg.Avatars != nil {
			authAvatars = cfg.Avatars
			router.GET("/avatars/:id", NewAvatarsController(cfg.Avatars).GetAvatar)
		}
		authController := auth.NewAuthController(cfg.AuthService, cfg.SessionManager, tmpl, cfg.AuthConfig, authAvatars, pages.Decorate)
		authController.RegisterRoutes(router)
		cleanup = append(cleanup, authController.Stop)

		if favourites != nil {
			required := router.Group("/", authMiddleware.RequireAuth())

			favouritesController := NewFavouritesController(favourites, cfg.Catalog, cfg.Events, pages, cfg.Posters != nil, posterHosts)
			required.POST("/api/favourites/:id/toggle", favouritesController.Toggle)
			required.POST("/api/favourites/:id", favouritesController.AddFavourite)
			required.DELETE("/api/favourites/:id", favouritesController.RemoveFavourite)
			required.GET("/api/favourites", favouritesController.ListFavourites)
			required.GET("/favourites", favouritesController.FavouritesPage)

			profileController := NewProfileController(cfg.AuthService, cfg.SessionManager, favourites, cfg.Avatars, pages)
			required.GET("/profile", profileController.ProfilePage)
			required.POST("/profile/image", profileController.UpdateImage)

			if cfg.Audit != nil {
				auditController := NewAuditController(cfg.Audit)
				required.GET("/api/audit", auditController.GetAuditEvents)
			}

			if cfg.Posters != nil {
				postersController := NewPostersController(cfg.Posters, favourites, posterHosts)
				required.GET("/posters/:id", postersController.GetPoster)
			}
		}
	}

	// Task management endpoints
	if cfg.TaskQueue != nil {
		tasksController := NewTasksController(cfg.TaskQueue, cfg.TaskConfig)
		tasksGroup := router.Group("/api/tasks")
		if authEnabled {
			tasksGroup.Use(authMiddleware.RequireAuth())
		}
		tasksGroup.GET("/types", tasksController.ListTaskTypes)
		tasksGroup.GET("/:id", tasksController.GetTaskStatus)
		tasksGroup.POST("/:type/run", tasksController.RunTask)
	}

	return router, func() {
		for _, fn := range cleanup {
			fn()
		}
	}
}
