// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, migrations, schema version
//	├── favourites/      # Per-user favourite anime
//	├── audit/           # Audit event log
//	└── users/           # User accounts
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type with domain-specific operations:
//
//	db, err := database.NewDatabase("./animedex.db")
//
//	usersRepo := users.NewRepository(db.DB)
//	favsRepo := favourites.NewRepository(db.DB)
//
//	user, err := usersRepo.GetUserByUsername("alice")
//	ids, err := favsRepo.GetFavouriteIDs(user.ID)
//
// # Interface Implementations
//
//   - users.Repository: implements auth.UserStore
//   - favourites.Repository: implements http.FavouritesStore and tasks.FavouriteRefresher
//   - audit.Repository: implements audit.Store
//
// # Schema upgrades
//
// Upgrades are additive. A new table or column is added to the entities
// package, included in the AutoMigrate call and CurrentSchemaVersion is
// bumped so the upgrade is recorded in schema_versions.
package database
