// Package wishes provides database operations for acquisition wishes
// submitted by patrons.
package wishes

import (
	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal/entities"
)

// Repository handles all wish database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new wishes repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create records a patron's wish.
func (r *Repository) Create(userID uint, text string) (*entities.Wish, error) {
	wish := &entities.Wish{
		UserID:   userID,
		WishText: text,
	}
	if err := r.db.Create(wish).Error; err != nil {
		return nil, err
	}
	return wish, nil
}

// ListAll returns every wish, newest first, with the submitting user
// preloaded. Librarians read this feed.
func (r *Repository) ListAll() ([]entities.Wish, error) {
	var wishes []entities.Wish
	err := r.db.Preload("User").
		Order("created_at DESC").
		Find(&wishes).Error
	return wishes, err
}
