// Package favourites provides database operations for per-user favourite anime.
//
// # Usage
//
//	repo := favourites.NewRepository(db)
//	err := repo.PutFavourite(&entities.Favourite{UserID: 1, MalID: 5114, Title: "Fullmetal Alchemist"})
//	ids, err := repo.GetFavouriteIDs(1)
package favourites

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/animedex/internal/entities"
)

var ErrFavouriteNotFound = errors.New("favourite not found")

// Repository handles all favourites database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new favourites repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// PutFavourite adds the entry or overwrites the stored copy for the same
// (user, anime) pair. The original CreatedAt is kept on overwrite.
func (r *Repository) PutFavourite(fav *entities.Favourite) error {
	if fav.UserID == 0 || fav.MalID <= 0 {
		return fmt.Errorf("favourite requires user and anime id, got user=%d anime=%d", fav.UserID, fav.MalID)
	}

	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "mal_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "image_url", "type", "score", "updated_at"}),
	}).Create(fav).Error
	if err != nil {
		return fmt.Errorf("failed to save favourite %d: %w", fav.MalID, err)
	}
	return nil
}

// RemoveFavourite deletes the entry. Removing an absent entry is not an error.
func (r *Repository) RemoveFavourite(userID uint, malID int) error {
	err := r.db.Where("user_id = ? AND mal_id = ?", userID, malID).
		Delete(&entities.Favourite{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove favourite %d: %w", malID, err)
	}
	return nil
}

// ListFavourites returns all favourites of a user, newest first.
func (r *Repository) ListFavourites(userID uint) ([]entities.Favourite, error) {
	var favs []entities.Favourite
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&favs).Error
	return favs, err
}

// GetFavouriteIDs returns the set of anime ids the user has saved.
func (r *Repository) GetFavouriteIDs(userID uint) (map[int]bool, error) {
	var ids []int
	err := r.db.Model(&entities.Favourite{}).
		Where("user_id = ?", userID).
		Pluck("mal_id", &ids).Error
	if err != nil {
		return nil, err
	}

	set := make(map[int]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

func (r *Repository) GetFavourite(userID uint, malID int) (*entities.Favourite, error) {
	var fav entities.Favourite
	err := r.db.Where("user_id = ? AND mal_id = ?", userID, malID).First(&fav).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFavouriteNotFound
	}
	if err != nil {
		return nil, err
	}
	return &fav, nil
}

func (r *Repository) IsFavourite(userID uint, malID int) (bool, error) {
	var count int64
	err := r.db.Model(&entities.Favourite{}).
		Where("user_id = ? AND mal_id = ?", userID, malID).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) CountFavourites(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Favourite{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// ListAllFavourites returns one entry per distinct anime across all users,
// the most recently written copy of each.
func (r *Repository) ListAllFavourites() ([]entities.Favourite, error) {
	var favs []entities.Favourite
	latest := r.db.Model(&entities.Favourite{}).Select("MAX(id)").Group("mal_id")
	err := r.db.Where("id IN (?)", latest).Order("mal_id ASC").Find(&favs).Error
	return favs, err
}

// UpdateFavouriteMetadata refreshes the cached catalog fields on every
// user's copy of the anime. Returns the number of rows touched.
func (r *Repository) UpdateFavouriteMetadata(malID int, title, imageURL, animeType string, score *float64) (int64, error) {
	result := r.db.Model(&entities.Favourite{}).
		Where("mal_id = ?", malID).
		Updates(map[string]any{
			"title":      title,
			"image_url":  imageURL,
			"type":       animeType,
			"score":      score,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}
