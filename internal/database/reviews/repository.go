// Package reviews provides database operations for book reviews.
package reviews

import (
	"database/sql"

	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal/entities"
)

// Repository handles all review database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new reviews repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Add inserts a review. A user may review the same book more than once;
// the average simply reflects every submitted row.
func (r *Repository) Add(userID, bookID uint, text string, rating int) (*entities.Review, error) {
	review := &entities.Review{
		UserID:     userID,
		BookID:     bookID,
		ReviewText: text,
		Rating:     rating,
	}
	if err := r.db.Create(review).Error; err != nil {
		return nil, err
	}
	return review, nil
}

// ListForBook returns all reviews for a book, newest first, with the
// reviewing user preloaded for display.
func (r *Repository) ListForBook(bookID uint) ([]entities.Review, error) {
	var reviews []entities.Review
	err := r.db.Preload("User").
		Where("book_id = ?", bookID).
		Order("created_at DESC").
		Find(&reviews).Error
	return reviews, err
}

// AverageForBook computes the arithmetic mean of all review ratings for
// a book. The second return value is false when no reviews exist.
func (r *Repository) AverageForBook(bookID uint) (float64, bool, error) {
	var avg sql.NullFloat64
	err := r.db.Model(&entities.Review{}).
		Where("book_id = ?", bookID).
		Select("AVG(rating)").
		Scan(&avg).Error
	if err != nil {
		return 0, false, err
	}
	if !avg.Valid {
		return 0, false, nil
	}
	return avg.Float64, true, nil
}
