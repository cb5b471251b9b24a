package auth

import (
	"errors"
	"fmt"
	"regexp"

	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal/config"
	"github.com/openshelf/openshelf/internal/entities"
)

// Validation patterns
var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z]{2,20}$`)
	loginPattern    = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user with this login or email already exists")
	ErrInvalidCredentials = errors.New("invalid login or password")
	ErrInvalidRole        = errors.New("invalid role")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrUsernameInvalid    = errors.New("name must be 2-20 letters")
	ErrLoginInvalid       = errors.New("login must be 3-20 characters, letters, digits and underscore only")
	ErrEmailInvalid       = errors.New("invalid email format")
)

// Service handles authentication and account management.
type Service struct {
	db     *gorm.DB
	config config.Auth
}

// NewService creates a new authentication service.
func NewService(db *gorm.DB, cfg config.Auth) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// RegisterParams carries the registration form fields.
type RegisterParams struct {
	Username        string
	Login           string
	Email           string
	Password        string
	ConfirmPassword string
	Role            entities.UserRole
}

// Register validates the form, hashes the password and creates the
// account. The caller is expected to log the new user in on success.
func (s *Service) Register(params RegisterParams) (*entities.User, error) {
	if !usernamePattern.MatchString(params.Username) {
		return nil, ErrUsernameInvalid
	}
	if !loginPattern.MatchString(params.Login) {
		return nil, ErrLoginInvalid
	}
	// RFC 5321 length limit is 254
	if len(params.Email) > 254 || !emailPattern.MatchString(params.Email) {
		return nil, ErrEmailInvalid
	}
	if params.Password != params.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}
	if !params.Role.Valid() {
		return nil, ErrInvalidRole
	}

	var existing entities.User
	err := s.db.Where("login = ? OR email = ?", params.Login, params.Email).First(&existing).Error
	if err == nil {
		return nil, ErrUserExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	passwordHash, err := HashPassword(params.Password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	user := &entities.User{
		Username:     params.Username,
		Login:        params.Login,
		Email:        params.Email,
		PasswordHash: passwordHash,
		Role:         params.Role,
	}

	if err := s.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Authenticate validates credentials and returns the user. Unknown
// login and wrong password both come back as ErrInvalidCredentials so
// responses cannot be used to enumerate accounts.
func (s *Service) Authenticate(login, password string) (*entities.User, error) {
	var user entities.User
	err := s.db.Where("login = ?", login).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &user, nil
}

// GetUserByID retrieves a user by their ID.
func (s *Service) GetUserByID(id uint) (*entities.User, error) {
	var user entities.User
	err := s.db.First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdateProfile lets a user change their own display name and email.
// An empty newPassword keeps the current one.
func (s *Service) UpdateProfile(userID uint, username, email, newPassword string) error {
	if !usernamePattern.MatchString(username) {
		return ErrUsernameInvalid
	}
	if len(email) > 254 || !emailPattern.MatchString(email) {
		return ErrEmailInvalid
	}

	var existing entities.User
	err := s.db.Where("email = ? AND id <> ?", email, userID).First(&existing).Error
	if err == nil {
		return ErrUserExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check existing user: %w", err)
	}

	updates := map[string]any{
		"username": username,
		"email":    email,
	}
	if newPassword != "" {
		hash, err := HashPassword(newPassword, s.config.BcryptCost)
		if err != nil {
			return err
		}
		updates["password_hash"] = hash
	}

	result := s.db.Model(&entities.User{}).Where("id = ?", userID).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// HasLibrarians reports whether any librarian account exists yet.
func (s *Service) HasLibrarians() (bool, error) {
	var count int64
	err := s.db.Model(&entities.User{}).Where("role = ?", entities.UserRoleLibrarian).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
