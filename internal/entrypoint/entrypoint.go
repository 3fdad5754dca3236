package entrypoint

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/animedex/internal/analytics"
	"github.com/mrlokans/animedex/internal/audit"
	"github.com/mrlokans/animedex/internal/auth"
	"github.com/mrlokans/animedex/internal/avatars"
	"github.com/mrlokans/animedex/internal/config"
	"github.com/mrlokans/animedex/internal/covers"
	"github.com/mrlokans/animedex/internal/database"
	auditrepo "github.com/mrlokans/animedex/internal/database/audit"
	"github.com/mrlokans/animedex/internal/database/favourites"
	"github.com/mrlokans/animedex/internal/database/users"
	"github.com/mrlokans/animedex/internal/event"
	http_controllers "github.com/mrlokans/animedex/internal/http"
	"github.com/mrlokans/animedex/internal/jikan"
	"github.com/mrlokans/animedex/internal/scheduler"
	"github.com/mrlokans/animedex/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill (no param) sends SIGTERM, kill -2 is SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background work first so no task outlives the database
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server Shutdown: %v", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Animedex v%s", version)

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	events := event.NewEventManager()
	favouritesRepo := favourites.NewRepository(db.DB)

	auditService := audit.NewService(auditrepo.NewRepository(db.DB))
	unsubscribeAudit := auditService.Subscribe(events)

	catalog, err := jikan.NewClient(cfg.Jikan)
	if err != nil {
		log.Fatalf("Failed to initialize catalog client: %v", err)
	}
	log.Printf("Catalog API: %s", cfg.Jikan.BaseURL)

	posterDir := cfg.Covers.Dir
	if posterDir == "" {
		posterDir = filepath.Join(filepath.Dir(cfg.Database.Path), "posters")
	}
	posterHosts := covers.HostAllowList(cfg.Covers.AllowedHosts)
	posterCache, err := covers.NewCache(posterDir, posterHosts)
	if err != nil {
		log.Printf("WARNING: Failed to initialize poster cache: %v", err)
	} else {
		log.Printf("Poster cache initialized at %s", posterDir)
	}

	taskCfg := tasks.ConfigFrom(cfg.Tasks, cfg.Audit)

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		var invalidator tasks.PosterInvalidator
		if posterCache != nil {
			invalidator = posterCache
		}
		taskClient.Register(
			tasks.NewRefreshFavouriteQueue(catalog, favouritesRepo, invalidator),
			tasks.NewRefreshAllFavouritesQueue(favouritesRepo, taskClient, auditService),
			tasks.NewCleanupAuditEventsQueue(auditService),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	}

	var syncScheduler *scheduler.FavouritesSyncScheduler
	if taskClient != nil {
		syncScheduler = scheduler.NewFavouritesSyncScheduler(cfg.FavouritesSync, cfg.Audit, taskClient)
		if err := syncScheduler.Start(context.Background()); err != nil {
			log.Printf("WARNING: Failed to start favourites sync scheduler: %v", err)
		}
	}

	// Initialize authentication if enabled
	var authService *auth.Service
	var sessionManager *auth.SessionManager
	var csrfSecret []byte
	var avatarStore *avatars.Store

	if cfg.Auth.Mode == config.AuthModeLocal {
		log.Printf("Authentication mode: local")

		authService = auth.NewService(users.NewRepository(db.DB), cfg.Auth)

		sqlDB, err := db.SQLDB()
		if err != nil {
			log.Fatalf("Failed to get SQL DB for sessions: %v", err)
		}

		sessionManager, err = auth.NewSessionManager(sqlDB, cfg.Auth, events)
		if err != nil {
			log.Fatalf("Failed to initialize session manager: %v", err)
		}

		if cfg.Auth.SessionSecret != "" {
			csrfSecret, err = hex.DecodeString(cfg.Auth.SessionSecret)
			if err != nil {
				// Not hex, use as raw bytes
				csrfSecret = []byte(cfg.Auth.SessionSecret)
			}
		} else {
			secret, err := auth.GenerateSessionSecret()
			if err != nil {
				log.Fatalf("Failed to generate CSRF secret: %v", err)
			}
			csrfSecret, _ = hex.DecodeString(secret)
			log.Printf("Generated session secret (set AUTH_SESSION_SECRET to persist)")
		}

		avatarDir := cfg.Avatars.Dir
		if avatarDir == "" {
			avatarDir = filepath.Join(filepath.Dir(cfg.Database.Path), "avatars")
		}
		avatarStore, err = avatars.NewStore(avatarDir, cfg.Avatars.MaxBytes)
		if err != nil {
			log.Printf("WARNING: Profile image uploads disabled: %v", err)
		}

		if hasUsers, _ := authService.HasUsers(); !hasUsers {
			log.Printf("No users yet. Visit /register or run 'animedex create-user' to create an account.")
		}
	} else {
		log.Printf("Authentication mode: none (favourites disabled)")
	}

	routerCfg := http_controllers.RouterConfig{
		Catalog:        catalog,
		Favourites:     favouritesRepo,
		Database:       db,
		Events:         events,
		Audit:          auditService,
		AuthService:    authService,
		SessionManager: sessionManager,
		AuthConfig:     cfg.Auth,
		CSRFSecret:     csrfSecret,
		UI:             cfg.UI,
		PosterHosts:    posterHosts,
		TaskConfig:     taskCfg,
		Analytics:      analytics.FromConfig(cfg.Plausible).ScriptTag(),
		Version:        version,
	}
	// Interfaces stay nil rather than holding a nil pointer
	if posterCache != nil {
		routerCfg.Posters = posterCache
	}
	if taskClient != nil {
		routerCfg.TaskQueue = taskClient
	}
	if avatarStore != nil {
		routerCfg.Avatars = avatarStore
	}

	router, closeRouter := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		closeRouter()
		if syncScheduler != nil {
			syncScheduler.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
		unsubscribeAudit()
		auditService.Flush()
	}

	Serve(router, cfg, onShutdown)
}
