// Package interfaces documents the core abstractions used throughout the application.
//
// # Interface Categories
//
// ## Data Access Interfaces
//
//   - FavouritesStore: favourites of a user (internal/http/stores.go)
//   - UserStore: accounts and login bookkeeping (internal/auth/service.go)
//   - audit.Store: audit event persistence (internal/audit/service.go)
//
// ## External Service Interfaces
//
//   - CatalogClient: the Jikan catalog API (internal/http/stores.go)
//   - PosterCache: locally cached posters (internal/http/stores.go)
//   - AnimeFetcher: full records for background refreshes (internal/tasks/refresh_favourite.go)
//
// ## Background Work
//
//   - TaskQueue / Enqueuer: the backlite task queue (internal/http/stores.go, internal/tasks)
//   - RefreshReporter: records bulk refresh outcomes (internal/tasks/refresh_all.go)
//
// # Adding a New Catalog Endpoint
//
//  1. Add the call to jikan.Client, going through getJSON so it shares the
//     rate limiter and backoff.
//
//  2. Add the method to http.CatalogClient and to the fake catalog used by
//     the http package tests.
//
//  3. Add a handler to CatalogController and register it in router.go.
//
// # Adding a New Background Task
//
//  1. Define the task type and its processor in internal/tasks/
//
//     type ReindexTask struct{}
//
//     func (t ReindexTask) Config() backlite.QueueConfig
//
//  2. Add it to tasks.Types and tasks.Build so the tasks API can trigger it.
//
//  3. Register its queue in entrypoint.go.
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for the full list.
package interfaces
