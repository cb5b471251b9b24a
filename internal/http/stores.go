package http

import (
	"mime/multipart"

	"github.com/openshelf/openshelf/internal/database/books"
	"github.com/openshelf/openshelf/internal/entities"
)

// This file consolidates the store interface definitions used by HTTP
// controllers. Each controller depends only on the methods it uses;
// the repositories under internal/database implement them.

// CatalogStore provides read access to the catalog.
type CatalogStore interface {
	List(filter books.Filter) ([]entities.Book, error)
	ListLatest(limit int) ([]entities.Book, error)
	GetByID(id uint) (*entities.Book, error)
	DistinctAuthorNames() ([]string, error)
	DistinctGenreNames() ([]string, error)
}

// BookAdminStore provides catalog write access for librarians.
type BookAdminStore interface {
	GetByID(id uint) (*entities.Book, error)
	Create(params books.Params) (*entities.Book, error)
	Update(id uint, params books.Params) error
	Delete(id uint) error
}

// ReservationStore manages per-user reservation and reading state.
type ReservationStore interface {
	SetStatus(userID, bookID uint, reading bool) error
	ClearStatus(userID, bookID uint, reading bool) error
	HasStatus(userID, bookID uint, reading bool) (bool, error)
	ListForUser(userID uint) ([]entities.Reservation, error)
}

// ReviewStore manages book reviews.
type ReviewStore interface {
	Add(userID, bookID uint, text string, rating int) (*entities.Review, error)
	ListForBook(bookID uint) ([]entities.Review, error)
	AverageForBook(bookID uint) (float64, bool, error)
}

// WishStore manages patron wishes.
type WishStore interface {
	Create(userID uint, text string) (*entities.Wish, error)
	ListAll() ([]entities.Wish, error)
}

// UserAdminStore provides user management for librarians.
type UserAdminStore interface {
	List() ([]entities.User, error)
	GetByID(id uint) (*entities.User, error)
	Update(id uint, username, email string, role entities.UserRole) error
	Delete(id uint) error
}

// FileStore persists uploaded covers and book documents.
type FileStore interface {
	SaveCover(file *multipart.FileHeader) (string, error)
	SaveDocument(file *multipart.FileHeader) (string, error)
	Path(name string) (string, error)
	CoverPath(stored string) string
	Dir() string
}
