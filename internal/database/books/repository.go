// Package books provides database operations for the catalog.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	results, err := repo.List(books.Filter{Title: "war"})
package books

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal/entities"
)

var ErrBookNotFound = errors.New("book not found")

// Repository handles all book, author and genre database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Filter narrows the catalog listing. Title is a case-insensitive
// substring match; Author matches the full display name exactly;
// Genre matches the genre name exactly. Empty fields are ignored.
type Filter struct {
	Title  string
	Author string
	Genre  string
}

// Params carries the form fields for creating or updating a book.
// CoverImage and BookFile are stored paths; empty values are treated
// as "keep the existing file" on update.
type Params struct {
	Title            string
	AuthorFirstName  string
	AuthorMiddleName string
	AuthorLastName   string
	GenreName        string
	Description      string
	Rating           float64
	CoverImage       string
	BookFile         string
}

// List returns catalog rows matching the filter, with author and genre
// joined in.
func (r *Repository) List(filter Filter) ([]entities.Book, error) {
	query := r.db.Preload("Author").Preload("Genre")

	if filter.Title != "" {
		query = query.Where("LOWER(title) LIKE LOWER(?)", "%"+filter.Title+"%")
	}
	if filter.Genre != "" {
		query = query.Where("genre_id IN (?)",
			r.db.Model(&entities.Genre{}).Select("id").Where("name = ?", filter.Genre))
	}
	if filter.Author != "" {
		ids, err := r.authorIDsByFullName(filter.Author)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return []entities.Book{}, nil
		}
		query = query.Where("author_id IN ?", ids)
	}

	var books []entities.Book
	err := query.Order("title").Find(&books).Error
	return books, err
}

// ListLatest returns the most recently added books, newest first.
func (r *Repository) ListLatest(limit int) ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.Preload("Author").Preload("Genre").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&books).Error
	return books, err
}

// GetByID returns a single book with its author and genre.
func (r *Repository) GetByID(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.Preload("Author").Preload("Genre").First(&book, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return &book, nil
}

// Create inserts a book, creating its author and genre by natural key
// if they do not exist yet. Runs in a single transaction.
func (r *Repository) Create(params Params) (*entities.Book, error) {
	var book *entities.Book
	err := r.db.Transaction(func(tx *gorm.DB) error {
		author, err := getOrCreateAuthor(tx, params.AuthorFirstName, params.AuthorMiddleName, params.AuthorLastName)
		if err != nil {
			return err
		}
		genre, err := getOrCreateGenre(tx, params.GenreName)
		if err != nil {
			return err
		}

		book = &entities.Book{
			Title:       params.Title,
			AuthorID:    author.ID,
			GenreID:     genre.ID,
			Description: params.Description,
			CoverImage:  params.CoverImage,
			BookFile:    params.BookFile,
			Rating:      params.Rating,
		}
		return tx.Create(book).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create book: %w", err)
	}
	return book, nil
}

// Update rewrites a book row from the form params. File paths are only
// overwritten when a new path was supplied, so an edit without a fresh
// upload keeps the stored cover and document.
func (r *Repository) Update(id uint, params Params) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var book entities.Book
		if err := tx.First(&book, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}

		author, err := getOrCreateAuthor(tx, params.AuthorFirstName, params.AuthorMiddleName, params.AuthorLastName)
		if err != nil {
			return err
		}
		genre, err := getOrCreateGenre(tx, params.GenreName)
		if err != nil {
			return err
		}

		updates := map[string]any{
			"title":       params.Title,
			"author_id":   author.ID,
			"genre_id":    genre.ID,
			"description": params.Description,
			"rating":      params.Rating,
		}
		if params.CoverImage != "" {
			updates["cover_image"] = params.CoverImage
		}
		if params.BookFile != "" {
			updates["book_file"] = params.BookFile
		}
		return tx.Model(&book).Updates(updates).Error
	})
}

// Delete removes a book together with its reviews and reservations.
// Everything happens in one transaction so a failure leaves no orphans.
func (r *Repository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var book entities.Book
		if err := tx.First(&book, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}
		if err := tx.Where("book_id = ?", id).Delete(&entities.Review{}).Error; err != nil {
			return err
		}
		if err := tx.Where("book_id = ?", id).Delete(&entities.Reservation{}).Error; err != nil {
			return err
		}
		return tx.Delete(&entities.Book{}, id).Error
	})
}

// DistinctAuthorNames returns every author's display name for
// autocomplete suggestions.
func (r *Repository) DistinctAuthorNames() ([]string, error) {
	var authors []entities.Author
	if err := r.db.Order("last_name, first_name").Find(&authors).Error; err != nil {
		return nil, err
	}
	names := make([]string, 0, len(authors))
	seen := make(map[string]bool, len(authors))
	for i := range authors {
		name := authors[i].FullName()
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names, nil
}

// DistinctGenreNames returns every genre name for autocomplete suggestions.
func (r *Repository) DistinctGenreNames() ([]string, error) {
	var names []string
	err := r.db.Model(&entities.Genre{}).Distinct("name").Order("name").Pluck("name", &names).Error
	return names, err
}

// authorIDsByFullName resolves a display name ("First [Middle] Last")
// back to author IDs. Name assembly lives in Go, so the comparison does too.
func (r *Repository) authorIDsByFullName(fullName string) ([]uint, error) {
	var authors []entities.Author
	if err := r.db.Find(&authors).Error; err != nil {
		return nil, err
	}
	var ids []uint
	for i := range authors {
		if authors[i].FullName() == fullName {
			ids = append(ids, authors[i].ID)
		}
	}
	return ids, nil
}

func getOrCreateAuthor(tx *gorm.DB, first, middle, last string) (*entities.Author, error) {
	var author entities.Author
	err := tx.Where("first_name = ? AND last_name = ? AND middle_name = ?", first, last, middle).
		First(&author).Error
	if err == nil {
		return &author, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	author = entities.Author{FirstName: first, MiddleName: middle, LastName: last}
	if err := tx.Create(&author).Error; err != nil {
		return nil, err
	}
	return &author, nil
}

func getOrCreateGenre(tx *gorm.DB, name string) (*entities.Genre, error) {
	var genre entities.Genre
	err := tx.Where("name = ?", name).First(&genre).Error
	if err == nil {
		return &genre, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	genre = entities.Genre{Name: name}
	if err := tx.Create(&genre).Error; err != nil {
		return nil, err
	}
	return &genre, nil
}
