// Package reservations provides database operations for the per-user
// reservation and reading state of books.
package reservations

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/openshelf/openshelf/internal/entities"
)

// LoanDays is the length of the window granted when a book is marked
// as reserved or currently reading.
const LoanDays = 180

// Repository handles all reservation database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new reservations repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// SetStatus marks a book as reserved (reading=false) or currently
// reading (reading=true) for a user. Repeated calls converge to a
// single row per (user, book, status): the unique key turns the insert
// into an update of the date window.
func (r *Repository) SetStatus(userID, bookID uint, reading bool) error {
	now := time.Now()
	reservation := entities.Reservation{
		UserID:    userID,
		BookID:    bookID,
		Reading:   reading,
		StartDate: now,
		EndDate:   now.AddDate(0, 0, LoanDays),
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "book_id"}, {Name: "reading"}},
		DoUpdates: clause.Assignments(map[string]any{
			"start_date": reservation.StartDate,
			"end_date":   reservation.EndDate,
			"updated_at": now,
		}),
	}).Create(&reservation).Error
}

// ClearStatus removes the reservation row for (user, book, status).
// Clearing a status that was never set is a no-op.
func (r *Repository) ClearStatus(userID, bookID uint, reading bool) error {
	return r.db.Where("user_id = ? AND book_id = ? AND reading = ?", userID, bookID, reading).
		Delete(&entities.Reservation{}).Error
}

// HasStatus reports whether the user currently holds the given status
// on the book.
func (r *Repository) HasStatus(userID, bookID uint, reading bool) (bool, error) {
	var count int64
	err := r.db.Model(&entities.Reservation{}).
		Where("user_id = ? AND book_id = ? AND reading = ?", userID, bookID, reading).
		Count(&count).Error
	return count > 0, err
}

// ListForUser returns the user's reservations with books preloaded,
// most recent first. Used by the profile page.
func (r *Repository) ListForUser(userID uint) ([]entities.Reservation, error) {
	var reservations []entities.Reservation
	err := r.db.Preload("Book").Preload("Book.Author").Preload("Book.Genre").
		Where("user_id = ?", userID).
		Order("start_date DESC").
		Find(&reservations).Error
	return reservations, err
}
