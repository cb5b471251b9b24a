package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf/internal/config"
	"github.com/openshelf/openshelf/internal/entities"
)

// isLocalPath validates that a redirect path is local to prevent open
// redirect attacks.
func isLocalPath(path string) bool {
	if path == "" {
		return false
	}
	if !strings.HasPrefix(path, "/") {
		return false
	}
	// Reject protocol-relative URLs (//evil.com)
	if strings.HasPrefix(path, "//") {
		return false
	}
	if strings.Contains(path, "://") {
		return false
	}
	if strings.Contains(path, "\\") {
		return false
	}
	return true
}

// sanitizeRedirectPath returns a safe redirect path, defaulting to the
// catalog if invalid.
func sanitizeRedirectPath(path string) string {
	if isLocalPath(path) {
		return path
	}
	return "/books"
}

// AuthController handles login, registration and logout.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	config         config.Auth
	rateLimiter    *RateLimiter
}

// NewAuthController creates a new authentication controller.
func NewAuthController(service *Service, sessionManager *SessionManager, cfg config.Auth) *AuthController {
	rateLimiter := NewRateLimiter(RateLimitConfig{
		MaxAttempts:     cfg.MaxLoginAttempts,
		WindowDuration:  cfg.RateLimitWindow,
		LockoutDuration: cfg.LockoutDuration,
	})

	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		config:         cfg,
		rateLimiter:    rateLimiter,
	}
}

// RegisterRoutes registers authentication routes on the router.
func (ac *AuthController) RegisterRoutes(router *gin.Engine) {
	router.GET("/auth", ac.LoginPage)
	router.POST("/auth", ac.Login)
	router.GET("/register", ac.RegisterPage)
	router.POST("/register", ac.Register)
	router.GET("/logout", ac.Logout)
}

// Stop cleans up resources (rate limiter background goroutine).
func (ac *AuthController) Stop() {
	if ac.rateLimiter != nil {
		ac.rateLimiter.Stop()
	}
}

// LoginPage renders the login form.
func (ac *AuthController) LoginPage(c *gin.Context) {
	if ac.sessionManager.IsAuthenticated(c.Request) {
		c.Redirect(http.StatusFound, "/books")
		return
	}

	c.HTML(http.StatusOK, "auth.html", gin.H{
		"Title":     "Sign in",
		"Next":      sanitizeRedirectPath(c.Query("next")),
		"Login":     "",
		"CSRFToken": GetCSRFToken(c),
	})
}

// Login handles the login form submission.
func (ac *AuthController) Login(c *gin.Context) {
	login := c.PostForm("login")
	password := c.PostForm("password")
	remember := c.PostForm("remember") != ""
	next := sanitizeRedirectPath(c.PostForm("next"))
	clientIP := c.ClientIP()

	if ac.rateLimiter != nil {
		allowed, retryAfter := ac.rateLimiter.Allow(clientIP, login)
		if !allowed {
			c.Header("Retry-After", retryAfter.String())
			c.HTML(http.StatusTooManyRequests, "auth.html", gin.H{
				"Title":     "Sign in",
				"Next":      next,
				"Login":     login,
				"CSRFToken": GetCSRFToken(c),
				"Error":     "Too many login attempts. Please try again later.",
			})
			return
		}
	}

	user, err := ac.service.Authenticate(login, password)
	if err != nil {
		if ac.rateLimiter != nil {
			ac.rateLimiter.RecordFailure(clientIP, login)
		}

		// One message for every failure path, so responses cannot be
		// used to probe which logins exist.
		c.HTML(http.StatusOK, "auth.html", gin.H{
			"Title":     "Sign in",
			"Next":      next,
			"Login":     login,
			"CSRFToken": GetCSRFToken(c),
			"Error":     "Invalid login or password",
		})
		return
	}

	if ac.rateLimiter != nil {
		ac.rateLimiter.RecordSuccess(clientIP, login)
	}

	if err := ac.sessionManager.CreateSession(c.Request, user, remember); err != nil {
		c.HTML(http.StatusInternalServerError, "auth.html", gin.H{
			"Title":     "Sign in",
			"Next":      next,
			"Login":     login,
			"CSRFToken": GetCSRFToken(c),
			"Error":     "Failed to create session",
		})
		return
	}

	c.Redirect(http.StatusFound, next)
}

// RegisterPage renders the registration form.
func (ac *AuthController) RegisterPage(c *gin.Context) {
	if ac.sessionManager.IsAuthenticated(c.Request) {
		c.Redirect(http.StatusFound, "/books")
		return
	}

	c.HTML(http.StatusOK, "register.html", gin.H{
		"Title":     "Register",
		"Username":  "",
		"Login":     "",
		"Email":     "",
		"CSRFToken": GetCSRFToken(c),
	})
}

// Register handles the registration form submission. New accounts are
// always patrons; librarians are promoted through user management.
func (ac *AuthController) Register(c *gin.Context) {
	params := RegisterParams{
		Username:        c.PostForm("username"),
		Login:           c.PostForm("login"),
		Email:           c.PostForm("email"),
		Password:        c.PostForm("password"),
		ConfirmPassword: c.PostForm("confirm_password"),
		Role:            entities.UserRolePatron,
	}

	user, err := ac.service.Register(params)
	if err != nil {
		c.HTML(http.StatusOK, "register.html", gin.H{
			"Title":     "Register",
			"Username":  params.Username,
			"Login":     params.Login,
			"Email":     params.Email,
			"CSRFToken": GetCSRFToken(c),
			"Error":     registerErrorMessage(err),
		})
		return
	}

	// Log the new user straight in and land on the catalog
	if err := ac.sessionManager.CreateSession(c.Request, user, false); err != nil {
		c.Redirect(http.StatusFound, "/auth")
		return
	}

	ac.sessionManager.Flash(c.Request, "success", "Welcome to the library, "+user.Username+"!")
	c.Redirect(http.StatusFound, "/books")
}

// Logout destroys the session and redirects to the landing page.
func (ac *AuthController) Logout(c *gin.Context) {
	_ = ac.sessionManager.DestroySession(c.Request)
	c.Redirect(http.StatusFound, "/")
}

// registerErrorMessage maps service errors to form messages.
func registerErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrUsernameInvalid):
		return "Name must be 2-20 letters"
	case errors.Is(err, ErrLoginInvalid):
		return "Login must be 3-20 characters: letters, digits and underscore"
	case errors.Is(err, ErrEmailInvalid):
		return "Invalid email address"
	case errors.Is(err, ErrPasswordMismatch):
		return "Passwords do not match"
	case errors.Is(err, ErrPasswordTooShort):
		return "Password must be at least 8 characters"
	case errors.Is(err, ErrPasswordTooLong):
		return "Password exceeds maximum length of 72 characters"
	case errors.Is(err, ErrPasswordWeak):
		return "Password must mix letters, digits and symbols"
	case errors.Is(err, ErrUserExists):
		return "A user with this login or email already exists"
	default:
		return "Failed to create account"
	}
}
