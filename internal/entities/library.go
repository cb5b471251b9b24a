package entities

import (
	"strings"
	"time"
)

type Author struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FirstName  string    `gorm:"size:100;uniqueIndex:idx_author_name" json:"first_name"`
	LastName   string    `gorm:"size:100;uniqueIndex:idx_author_name" json:"last_name"`
	MiddleName string    `gorm:"size:100;uniqueIndex:idx_author_name" json:"middle_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Author) TableName() string {
	return "authors"
}

// FullName returns the display name: "First [Middle] Last".
func (a *Author) FullName() string {
	parts := []string{a.FirstName}
	if a.MiddleName != "" {
		parts = append(parts, a.MiddleName)
	}
	parts = append(parts, a.LastName)
	return strings.Join(parts, " ")
}

type Genre struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:100" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (Genre) TableName() string {
	return "genres"
}

type Book struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"index;size:512" json:"title"`
	AuthorID    uint      `gorm:"index" json:"author_id"`
	GenreID     uint      `gorm:"index" json:"genre_id"`
	Description string    `gorm:"type:text" json:"description"`
	CoverImage  string    `gorm:"size:1024" json:"cover_image,omitempty"`
	BookFile    string    `gorm:"size:1024" json:"book_file,omitempty"`
	Rating      float64   `json:"rating"`
	Author      Author    `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Genre       Genre     `gorm:"foreignKey:GenreID" json:"genre,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Book) TableName() string {
	return "books"
}

// Reservation rows double as "currently reading" markers: Reading true
// means the patron is reading the book now, false means it is on hold.
// At most one row may exist per (user, book, reading) tuple.
type Reservation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_user_book_status" json:"user_id"`
	BookID    uint      `gorm:"uniqueIndex:idx_user_book_status" json:"book_id"`
	Reading   bool      `gorm:"uniqueIndex:idx_user_book_status" json:"reading"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Book      Book      `gorm:"foreignKey:BookID" json:"book,omitempty"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Reservation) TableName() string {
	return "reservations"
}

type Review struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"index" json:"user_id"`
	BookID     uint      `gorm:"index" json:"book_id"`
	ReviewText string    `gorm:"type:text" json:"review_text"`
	Rating     int       `json:"rating"`
	User       User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Book       Book      `gorm:"foreignKey:BookID" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Review) TableName() string {
	return "reviews"
}

type Wish struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index" json:"user_id"`
	WishText  string    `gorm:"type:text" json:"wish_text"`
	User      User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (Wish) TableName() string {
	return "wishes"
}
