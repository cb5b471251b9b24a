package entities

import (
	"time"
)

// UserRole determines what a user may do. Librarians manage the catalog
// and other users; patrons reserve, read and review books.
type UserRole string

const (
	UserRolePatron    UserRole = "patron"
	UserRoleLibrarian UserRole = "librarian"
)

// Valid reports whether the role is one of the known values.
func (r UserRole) Valid() bool {
	return r == UserRolePatron || r == UserRoleLibrarian
}

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:100" json:"username"`
	Login        string    `gorm:"uniqueIndex;size:100" json:"login"`
	Email        string    `gorm:"uniqueIndex;size:255" json:"email"`
	PasswordHash string    `gorm:"size:100" json:"-"`
	Role         UserRole  `gorm:"size:20;default:'patron'" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// IsLibrarian reports whether the user holds the librarian role.
func (u *User) IsLibrarian() bool {
	return u.Role == UserRoleLibrarian
}
