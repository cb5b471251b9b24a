package auth

import (
	"crypto/rand"
	"database/sql"
	"encoding/gob"
	"encoding/hex"
	"net/http"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"

	"github.com/openshelf/openshelf/internal/config"
	"github.com/openshelf/openshelf/internal/entities"
)

// Session data keys
const (
	SessionKeyUserID = "user_id"
	SessionKeyLogin  = "login"
	SessionKeyRole   = "role"
	SessionKeyFlash  = "flash"
)

// FlashMessage is a one-shot notice surfaced on the next rendered page.
type FlashMessage struct {
	Level   string // "success", "warning", "danger"
	Message string
}

func init() {
	// Register types that will be stored in sessions
	gob.Register(entities.UserRole(""))
	gob.Register(FlashMessage{})
}

// SessionManager wraps scs.SessionManager with application-specific methods.
type SessionManager struct {
	*scs.SessionManager
}

// NewSessionManager creates a configured session manager backed by the
// application's SQLite database. The sqlDB parameter should be the
// underlying *sql.DB from GORM.
func NewSessionManager(sqlDB *sql.DB, cfg config.Auth) (*SessionManager, error) {
	// Create sessions table if it doesn't exist
	_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
	if err != nil {
		return nil, err
	}

	sm := scs.New()
	sm.Store = sqlite3store.New(sqlDB)

	// The cookie is non-persistent by default; RememberMe upgrades it
	// to survive browser restarts up to RememberLifetime.
	sm.Lifetime = cfg.RememberLifetime
	sm.IdleTimeout = cfg.SessionLifetime
	sm.Cookie.Persist = false

	sm.Cookie.Name = "session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"

	return &SessionManager{SessionManager: sm}, nil
}

// CreateSession establishes a session for a user after successful
// authentication. remember controls whether the cookie persists across
// browser restarts.
func (sm *SessionManager) CreateSession(r *http.Request, user *entities.User, remember bool) error {
	// Renew token to prevent session fixation
	if err := sm.RenewToken(r.Context()); err != nil {
		return err
	}

	sm.Put(r.Context(), SessionKeyUserID, int(user.ID))
	sm.Put(r.Context(), SessionKeyLogin, user.Login)
	sm.Put(r.Context(), SessionKeyRole, user.Role)
	sm.RememberMe(r.Context(), remember)

	return nil
}

// DestroySession removes all session data and invalidates the session.
func (sm *SessionManager) DestroySession(r *http.Request) error {
	return sm.Destroy(r.Context())
}

// GetUserID retrieves the user ID from the session.
// Returns 0 if not authenticated.
func (sm *SessionManager) GetUserID(r *http.Request) uint {
	return uint(sm.GetInt(r.Context(), SessionKeyUserID))
}

// GetLogin retrieves the login from the session.
func (sm *SessionManager) GetLogin(r *http.Request) string {
	return sm.GetString(r.Context(), SessionKeyLogin)
}

// GetUserRole retrieves the user role from the session.
func (sm *SessionManager) GetUserRole(r *http.Request) entities.UserRole {
	role, ok := sm.Get(r.Context(), SessionKeyRole).(entities.UserRole)
	if !ok {
		return ""
	}
	return role
}

// IsAuthenticated returns true if the request has a valid session.
func (sm *SessionManager) IsAuthenticated(r *http.Request) bool {
	return sm.GetUserID(r) != 0
}

// Flash queues a one-shot message for the next rendered page.
func (sm *SessionManager) Flash(r *http.Request, level, message string) {
	sm.Put(r.Context(), SessionKeyFlash, FlashMessage{Level: level, Message: message})
}

// PopFlash returns and clears the queued flash message, if any.
func (sm *SessionManager) PopFlash(r *http.Request) *FlashMessage {
	flash, ok := sm.Pop(r.Context(), SessionKeyFlash).(FlashMessage)
	if !ok {
		return nil
	}
	return &flash
}

// GenerateSessionSecret creates a random 32-byte secret for CSRF signing.
func GenerateSessionSecret() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
