package entities

import "time"

// Favourite is a catalog item saved by one user. A catalog id can be a
// favourite of many users but appears at most once per user.
type Favourite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_favourites_user_mal;not null" json:"user_id"`
	MalID     int       `gorm:"uniqueIndex:idx_favourites_user_mal;index;not null" json:"mal_id"`
	Title     string    `gorm:"size:512" json:"title"`
	ImageURL  string    `gorm:"size:2048" json:"image_url"`
	Type      string    `gorm:"size:50" json:"type"`
	Score     *float64  `json:"score,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Favourite) TableName() string {
	return "favourites"
}

// SchemaVersion records which store layout the database file was created with.
type SchemaVersion struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false" json:"version"`
	AppliedAt time.Time `json:"applied_at"`
}

func (SchemaVersion) TableName() string {
	return "schema_versions"
}
