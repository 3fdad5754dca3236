// Package auth provides accounts, sessions and access control.
//
// It supports two modes:
//   - "none": browsing only, every request is anonymous and favourites are disabled
//   - "local": local user accounts with session cookies (default)
//
// # Configuration
//
//	AUTH_MODE=local                # or "none"
//	AUTH_SESSION_SECRET=<hex>      # Auto-generated if empty
//	AUTH_SESSION_LIFETIME=168h     # Session duration
//	AUTH_BCRYPT_COST=12            # bcrypt cost factor
//	AUTH_SECURE_COOKIES=true       # HTTPS-only cookies
//
// # Session marker
//
// A logged-in browser carries an scs session holding a SessionUser. Every
// CreateSession, DestroySession and UpdateUser call publishes exactly one
// event.AuthStateChanged so that other parts of the application (audit log,
// open browser tabs via server-sent events) can react.
//
// # Usage
//
//	svc := auth.NewService(usersRepo, cfg.Auth)
//	sm, _ := auth.NewSessionManager(sqlDB, cfg.Auth, events)
//	mw := auth.NewMiddleware(svc, sm, cfg.Auth)
//	router.Use(sm.LoadAndSave(), mw.Handler())
//	router.POST("/api/favourites/:id", mw.RequireAuth(), handler)
package auth
