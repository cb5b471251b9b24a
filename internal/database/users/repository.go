// Package users provides database operations for user management.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.GetByLogin(login)
package users

import (
	"errors"

	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal/entities"
)

var ErrUserNotFound = errors.New("user not found")

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// List returns all users ordered by login.
func (r *Repository) List() ([]entities.User, error) {
	var users []entities.User
	err := r.db.Order("login").Find(&users).Error
	return users, err
}

// GetByID retrieves a user by ID.
func (r *Repository) GetByID(id uint) (*entities.User, error) {
	var user entities.User
	err := r.db.First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByLogin retrieves a user by login.
func (r *Repository) GetByLogin(login string) (*entities.User, error) {
	var user entities.User
	err := r.db.Where("login = ?", login).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Update rewrites the editable profile fields of a user.
func (r *Repository) Update(id uint, username, email string, role entities.UserRole) error {
	result := r.db.Model(&entities.User{}).Where("id = ?", id).Updates(map[string]any{
		"username": username,
		"email":    email,
		"role":     role,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Delete removes a user together with their reviews, wishes and
// reservations, all in one transaction.
func (r *Repository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var user entities.User
		if err := tx.First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&entities.Review{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&entities.Wish{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&entities.Reservation{}).Error; err != nil {
			return err
		}
		return tx.Delete(&entities.User{}, id).Error
	})
}
