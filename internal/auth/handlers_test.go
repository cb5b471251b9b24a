package auth

import (
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal/config"
	"github.com/openshelf/openshelf/internal/entities"
)

func setupAuthRouter(t *testing.T) (*gin.Engine, *Service, *SessionManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&entities.User{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get SQL DB: %v", err)
	}

	cfg := config.Auth{
		SessionLifetime:  24 * time.Hour,
		RememberLifetime: 720 * time.Hour,
		BcryptCost:       4,
		SecureCookies:    false,
		MaxLoginAttempts: 5,
		RateLimitWindow:  15 * time.Minute,
		LockoutDuration:  30 * time.Minute,
	}

	svc := NewService(db, cfg)
	sm, err := NewSessionManager(sqlDB, cfg)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}

	controller := NewAuthController(svc, sm, cfg)
	t.Cleanup(controller.Stop)

	router := gin.New()
	router.Use(sm.SessionLoadSave())
	router.Use(NewMiddleware(svc, sm).Handler())

	tmpl := template.Must(template.New("auth.html").Parse(`auth page {{.Error}}`))
	template.Must(tmpl.New("register.html").Parse(`register page {{.Error}} login={{.Login}}`))
	router.SetHTMLTemplate(tmpl)

	controller.RegisterRoutes(router)
	return router, svc, sm
}

func registerTestUser(t *testing.T, svc *Service, login string, role entities.UserRole) *entities.User {
	t.Helper()
	user, err := svc.Register(RegisterParams{
		Username:        "Reader",
		Login:           login,
		Email:           login + "@example.com",
		Password:        "sturdy-pass1",
		ConfirmPassword: "sturdy-pass1",
		Role:            role,
	})
	if err != nil {
		t.Fatalf("failed to register test user: %v", err)
	}
	return user
}

func postForm(router *gin.Engine, path string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestLogin_Success(t *testing.T) {
	router, svc, _ := setupAuthRouter(t)
	registerTestUser(t, svc, "reader", entities.UserRolePatron)

	w := postForm(router, "/auth", url.Values{
		"login":    {"reader"},
		"password": {"sturdy-pass1"},
	}, nil)

	if w.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d: %s", w.Code, w.Body.String())
	}
	if loc := w.Header().Get("Location"); loc != "/books" {
		t.Errorf("expected redirect to /books, got %q", loc)
	}
	if len(w.Result().Cookies()) == 0 {
		t.Error("expected a session cookie")
	}
}

func TestLogin_GenericErrorForBothFailurePaths(t *testing.T) {
	router, svc, _ := setupAuthRouter(t)
	registerTestUser(t, svc, "reader", entities.UserRolePatron)

	wrongPassword := postForm(router, "/auth", url.Values{
		"login":    {"reader"},
		"password": {"wrong-pass9!"},
	}, nil)
	unknownLogin := postForm(router, "/auth", url.Values{
		"login":    {"nobody"},
		"password": {"sturdy-pass1"},
	}, nil)

	for name, w := range map[string]*httptest.ResponseRecorder{
		"wrong password": wrongPassword,
		"unknown login":  unknownLogin,
	} {
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected form re-render with 200, got %d", name, w.Code)
		}
		if !strings.Contains(w.Body.String(), "Invalid login or password") {
			t.Errorf("%s: expected the generic failure message, got %s", name, w.Body.String())
		}
	}
}

func TestLogin_RedirectsToNextPath(t *testing.T) {
	router, svc, _ := setupAuthRouter(t)
	registerTestUser(t, svc, "reader", entities.UserRolePatron)

	tests := []struct {
		next string
		want string
	}{
		{next: "/profile", want: "/profile"},
		{next: "https://evil.example.com", want: "/books"},
		{next: "//evil.example.com", want: "/books"},
		{next: "", want: "/books"},
	}

	for _, tt := range tests {
		w := postForm(router, "/auth", url.Values{
			"login":    {"reader"},
			"password": {"sturdy-pass1"},
			"next":     {tt.next},
		}, nil)
		if w.Code != http.StatusFound {
			t.Fatalf("next=%q: expected redirect, got %d", tt.next, w.Code)
		}
		if loc := w.Header().Get("Location"); loc != tt.want {
			t.Errorf("next=%q: redirected to %q, want %q", tt.next, loc, tt.want)
		}
	}
}

func TestLogin_RateLimited(t *testing.T) {
	router, svc, _ := setupAuthRouter(t)
	registerTestUser(t, svc, "reader", entities.UserRolePatron)

	form := url.Values{
		"login":    {"reader"},
		"password": {"wrong-pass9!"},
	}
	for i := 0; i < 5; i++ {
		postForm(router, "/auth", form, nil)
	}

	w := postForm(router, "/auth", form, nil)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 after exhausting attempts, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected a Retry-After header")
	}
}

func TestRegister_CreatesPatronAndLogsIn(t *testing.T) {
	router, svc, _ := setupAuthRouter(t)

	w := postForm(router, "/register", url.Values{
		"username":         {"Reader"},
		"login":            {"fresh_reader"},
		"email":            {"fresh@example.com"},
		"password":         {"sturdy-pass1"},
		"confirm_password": {"sturdy-pass1"},
	}, nil)

	if w.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d: %s", w.Code, w.Body.String())
	}
	if loc := w.Header().Get("Location"); loc != "/books" {
		t.Errorf("expected redirect to /books, got %q", loc)
	}

	user, err := svc.Authenticate("fresh_reader", "sturdy-pass1")
	if err != nil {
		t.Fatalf("account should exist after registration: %v", err)
	}
	if user.Role != entities.UserRolePatron {
		t.Errorf("web registration must create patrons, got role %q", user.Role)
	}
}

func TestRegister_MismatchRerendersAndKeepsFields(t *testing.T) {
	router, svc, _ := setupAuthRouter(t)

	w := postForm(router, "/register", url.Values{
		"username":         {"Reader"},
		"login":            {"fresh_reader"},
		"email":            {"fresh@example.com"},
		"password":         {"sturdy-pass1"},
		"confirm_password": {"other-pass2!"},
	}, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected form re-render, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Passwords do not match") {
		t.Errorf("expected mismatch message, got %s", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "login=fresh_reader") {
		t.Errorf("expected submitted login echoed back, got %s", w.Body.String())
	}

	if _, err := svc.Authenticate("fresh_reader", "sturdy-pass1"); err == nil {
		t.Error("no account should exist after a rejected registration")
	}
}

func TestLogout_DestroysSession(t *testing.T) {
	router, svc, _ := setupAuthRouter(t)
	registerTestUser(t, svc, "reader", entities.UserRolePatron)

	login := postForm(router, "/auth", url.Values{
		"login":    {"reader"},
		"password": {"sturdy-pass1"},
	}, nil)
	cookies := login.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected a session cookie from login")
	}

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/" {
		t.Errorf("expected redirect to /, got %q", loc)
	}

	// The old cookie no longer resolves to a user: the login page
	// renders instead of redirecting to the catalog.
	req = httptest.NewRequest(http.MethodGet, "/auth", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected the login page after logout, got %d", w.Code)
	}
}

func TestSanitizeRedirectPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/profile", "/profile"},
		{"/book/5", "/book/5"},
		{"", "/books"},
		{"relative", "/books"},
		{"//evil.com", "/books"},
		{"https://evil.com", "/books"},
		{"/path\\evil", "/books"},
	}
	for _, tt := range tests {
		if got := sanitizeRedirectPath(tt.in); got != tt.want {
			t.Errorf("sanitizeRedirectPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
