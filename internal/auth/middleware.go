package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf/internal/entities"
)

// Context keys for user data
const (
	ContextKeyUserID = "auth_user_id"
	ContextKeyLogin  = "auth_login"
	ContextKeyRole   = "auth_role"
	ContextKeyUser   = "auth_user"
)

// Middleware resolves the session identity into a user for each request.
type Middleware struct {
	service        *Service
	sessionManager *SessionManager
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(service *Service, sessionManager *SessionManager) *Middleware {
	return &Middleware{
		service:        service,
		sessionManager: sessionManager,
	}
}

// Handler loads the current user from the session into the Gin context.
// Anonymous requests pass through; gating happens in RequireAuth and
// RequireLibrarian.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := m.sessionManager.GetUserID(c.Request)
		if userID != 0 {
			user, err := m.service.GetUserByID(userID)
			if err == nil {
				c.Set(ContextKeyUserID, user.ID)
				c.Set(ContextKeyLogin, user.Login)
				c.Set(ContextKeyRole, user.Role)
				c.Set(ContextKeyUser, user)
			}
		}
		c.Next()
	}
}

// RequireAuth redirects anonymous users to the login page, preserving
// the requested path.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserID(c) == 0 {
			c.Redirect(http.StatusFound, "/auth?next="+c.Request.URL.Path)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireLibrarian rejects requests from anyone without the librarian
// role. Anonymous users are sent to login; authenticated patrons get 403.
func (m *Middleware) RequireLibrarian() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := GetUserID(c)
		if userID == 0 {
			c.Redirect(http.StatusFound, "/auth?next="+c.Request.URL.Path)
			c.Abort()
			return
		}
		if GetUserRole(c) != entities.UserRoleLibrarian {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}

// GetUserID extracts the authenticated user's ID from the Gin context.
// Returns 0 for anonymous requests.
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextKeyUserID); exists {
		if userID, ok := id.(uint); ok {
			return userID
		}
	}
	return 0
}

// GetLogin extracts the authenticated user's login from the Gin context.
func GetLogin(c *gin.Context) string {
	if login, exists := c.Get(ContextKeyLogin); exists {
		if l, ok := login.(string); ok {
			return l
		}
	}
	return ""
}

// GetUserRole extracts the authenticated user's role from the Gin context.
func GetUserRole(c *gin.Context) entities.UserRole {
	if role, exists := c.Get(ContextKeyRole); exists {
		if r, ok := role.(entities.UserRole); ok {
			return r
		}
	}
	return ""
}

// GetCurrentUser extracts the authenticated user from the Gin context.
// Returns nil for anonymous requests.
func GetCurrentUser(c *gin.Context) *entities.User {
	if u, exists := c.Get(ContextKeyUser); exists {
		if user, ok := u.(*entities.User); ok {
			return user
		}
	}
	return nil
}
