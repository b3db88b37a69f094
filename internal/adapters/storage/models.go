package storage

import "time"

// RepositoryModel is the GORM model for registered repositories. Fetch
// metadata is denormalized onto the row; it is overwritten after every
// fetch attempt.
type RepositoryModel struct {
	ID              string `gorm:"primaryKey"`
	Path            string `gorm:"uniqueIndex;not null"`
	Name            string `gorm:"not null"`
	Enabled         bool   `gorm:"not null;default:true"`
	FetchIntervalMS int64  `gorm:"not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	LastFetchAt    *time.Time
	LastFetchState string
	LastFetchError string
}

// TableName overrides the default table name
func (RepositoryModel) TableName() string {
	return "repositories"
}
