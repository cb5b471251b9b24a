package http

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/config"
	"github.com/openshelf/openshelf/internal/database"
	"github.com/openshelf/openshelf/internal/database/books"
	"github.com/openshelf/openshelf/internal/database/reservations"
	"github.com/openshelf/openshelf/internal/database/reviews"
	"github.com/openshelf/openshelf/internal/database/users"
	"github.com/openshelf/openshelf/internal/database/wishes"
	"github.com/openshelf/openshelf/internal/entities"
	"github.com/openshelf/openshelf/internal/uploads"
)

type testApp struct {
	router *gin.Engine
	db     *database.Database
	books  *books.Repository
	svc    *auth.Service
}

func setupApp(t *testing.T) *testApp {
	t.Helper()
	return setupAppCSRF(t, nil)
}

// setupAppCSRF wires the full router; a non-nil secret enables CSRF
// protection, which most tests leave off to keep form posts simple.
func setupAppCSRF(t *testing.T, csrfSecret []byte) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbPath := "./test_http_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
		os.Remove(dbPath)
	})

	cfg := config.Auth{
		SessionLifetime:  24 * time.Hour,
		RememberLifetime: 720 * time.Hour,
		BcryptCost:       4,
		SecureCookies:    false,
		MaxLoginAttempts: 100,
		RateLimitWindow:  time.Minute,
		LockoutDuration:  time.Minute,
	}

	svc := auth.NewService(db.DB, cfg)
	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	sm, err := auth.NewSessionManager(sqlDB, cfg)
	require.NoError(t, err)

	controller := auth.NewAuthController(svc, sm, cfg)
	t.Cleanup(controller.Stop)

	fileStore, err := uploads.NewStore(t.TempDir(), "/static/img/default_cover.svg", 1)
	require.NoError(t, err)

	bookRepo := books.NewRepository(db.DB)
	router := NewRouter(RouterConfig{
		Database:       db,
		AuthService:    svc,
		AuthController: controller,
		AuthMiddleware: auth.NewMiddleware(svc, sm),
		SessionManager: sm,
		Catalog:        bookRepo,
		BookAdmin:      bookRepo,
		Reservations:   reservations.NewRepository(db.DB),
		Reviews:        reviews.NewRepository(db.DB),
		Wishes:         wishes.NewRepository(db.DB),
		UserAdmin:      users.NewRepository(db.DB),
		Files:          fileStore,
		AuthConfig:     cfg,
		CSRFSecret:     csrfSecret,
		TemplatesPath:  "../../templates",
		StaticPath:     "../../static",
		Version:        "test",
	})

	return &testApp{router: router, db: db, books: bookRepo, svc: svc}
}

func (app *testApp) registerUser(t *testing.T, login string, role entities.UserRole) *entities.User {
	t.Helper()
	user, err := app.svc.Register(auth.RegisterParams{
		Username:        "Reader",
		Login:           login,
		Email:           login + "@example.com",
		Password:        "sturdy-pass1",
		ConfirmPassword: "sturdy-pass1",
		Role:            role,
	})
	require.NoError(t, err)
	return user
}

// login authenticates through the login form and returns the session cookies.
func (app *testApp) login(t *testing.T, login string) []*http.Cookie {
	t.Helper()
	form := url.Values{"login": {login}, "password": {"sturdy-pass1"}}
	req := httptest.NewRequest(http.MethodPost, "/auth", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusFound, w.Code, "login failed: %s", w.Body.String())
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies
}

func (app *testApp) get(path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)
	return w
}

func (app *testApp) postForm(path string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)
	return w
}

func (app *testApp) seedBook(t *testing.T, title string) *entities.Book {
	t.Helper()
	book, err := app.books.Create(books.Params{
		Title:           title,
		AuthorFirstName: "Jane",
		AuthorLastName:  "Doe",
		GenreName:       "Fantasy",
		Description:     "A test book",
	})
	require.NoError(t, err)
	return book
}

func TestHealthEndpoint(t *testing.T) {
	app := setupApp(t)

	w := app.get("/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test")
}

func TestPublicPagesRender(t *testing.T) {
	app := setupApp(t)
	book := app.seedBook(t, "Visible Book")

	for _, path := range []string{"/", "/books", "/book/" + itoa(book.ID)} {
		w := app.get(path, nil)
		assert.Equal(t, http.StatusOK, w.Code, "GET %s", path)
	}

	w := app.get("/book/"+itoa(book.ID), nil)
	assert.Contains(t, w.Body.String(), "Visible Book")
}

func TestBookPage_UnknownIDIs404(t *testing.T) {
	app := setupApp(t)

	assert.Equal(t, http.StatusNotFound, app.get("/book/9999", nil).Code)
	assert.Equal(t, http.StatusNotFound, app.get("/book/garbage", nil).Code)
}

func TestAutocompleteEndpoints(t *testing.T) {
	app := setupApp(t)
	app.seedBook(t, "Some Book")

	w := app.get("/autocomplete/authors", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var authors []string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &authors))
	assert.Contains(t, authors, "Jane Doe")

	w = app.get("/autocomplete/genres", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var genres []string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &genres))
	assert.Contains(t, genres, "Fantasy")
}

func TestBookActions_RequireLogin(t *testing.T) {
	app := setupApp(t)
	book := app.seedBook(t, "Gated Book")

	w := app.postForm("/book/"+itoa(book.ID), url.Values{"action": {"reserve_book"}}, nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "/auth?next="),
		"expected login redirect, got %q", w.Header().Get("Location"))
}

func TestBookActions_ReserveAndReadingToggles(t *testing.T) {
	app := setupApp(t)
	book := app.seedBook(t, "Wanted Book")
	user := app.registerUser(t, "patron", entities.UserRolePatron)
	cookies := app.login(t, "patron")

	repo := reservations.NewRepository(app.db.DB)
	path := "/book/" + itoa(book.ID)

	w := app.postForm(path, url.Values{"action": {"reserve_book"}}, cookies)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, path, w.Header().Get("Location"))

	has, err := repo.HasStatus(user.ID, book.ID, false)
	require.NoError(t, err)
	assert.True(t, has)

	// Reserving again stays a single row.
	app.postForm(path, url.Values{"action": {"reserve_book"}}, cookies)
	var count int64
	app.db.DB.Model(&entities.Reservation{}).
		Where("user_id = ? AND book_id = ? AND reading = ?", user.ID, book.ID, false).
		Count(&count)
	assert.Equal(t, int64(1), count)

	// Reading state is tracked separately.
	app.postForm(path, url.Values{"action": {"mark_reading"}}, cookies)
	has, err = repo.HasStatus(user.ID, book.ID, true)
	require.NoError(t, err)
	assert.True(t, has)

	app.postForm(path, url.Values{"action": {"unreserve_book"}}, cookies)
	has, err = repo.HasStatus(user.ID, book.ID, false)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestBookActions_AddReview(t *testing.T) {
	app := setupApp(t)
	book := app.seedBook(t, "Reviewed Book")
	app.registerUser(t, "patron", entities.UserRolePatron)
	cookies := app.login(t, "patron")

	path := "/book/" + itoa(book.ID)
	w := app.postForm(path, url.Values{
		"action":      {"add_review"},
		"review_text": {"A fine read"},
		"rating":      {"4"},
	}, cookies)
	require.Equal(t, http.StatusFound, w.Code)

	page := app.get(path, cookies)
	assert.Contains(t, page.Body.String(), "A fine read")
	assert.Contains(t, page.Body.String(), "4.0")

	// Out-of-range ratings are rejected without creating a review.
	app.postForm(path, url.Values{
		"action":      {"add_review"},
		"review_text": {"Broken"},
		"rating":      {"6"},
	}, cookies)
	var count int64
	app.db.DB.Model(&entities.Review{}).Where("book_id = ?", book.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestAdminRoutes_RoleGate(t *testing.T) {
	app := setupApp(t)
	app.registerUser(t, "patron", entities.UserRolePatron)
	app.registerUser(t, "keeper", entities.UserRoleLibrarian)

	t.Run("anonymous is sent to login", func(t *testing.T) {
		w := app.get("/admin/users", nil)
		require.Equal(t, http.StatusFound, w.Code)
		assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "/auth?next="))
	})

	t.Run("patron gets 403", func(t *testing.T) {
		cookies := app.login(t, "patron")
		assert.Equal(t, http.StatusForbidden, app.get("/admin/users", cookies).Code)
		assert.Equal(t, http.StatusForbidden, app.get("/admin/add_book", cookies).Code)
	})

	t.Run("librarian gets through", func(t *testing.T) {
		cookies := app.login(t, "keeper")
		assert.Equal(t, http.StatusOK, app.get("/admin/users", cookies).Code)
		assert.Equal(t, http.StatusOK, app.get("/admin/add_book", cookies).Code)
	})
}

func TestAdminAddBook_Multipart(t *testing.T) {
	app := setupApp(t)
	app.registerUser(t, "keeper", entities.UserRoleLibrarian)
	cookies := app.login(t, "keeper")

	body, contentType := multipartForm(t, map[string]string{
		"title":      "Uploaded Book",
		"first_name": "Jane",
		"last_name":  "Doe",
		"genre":      "Fantasy",
		"rating":     "4",
	}, "cover_image", "cover.png", "fake png bytes")

	req := httptest.NewRequest(http.MethodPost, "/admin/add_book", body)
	req.Header.Set("Content-Type", contentType)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code, "body: %s", w.Body.String())
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "/book/"))

	found, err := app.books.List(books.Filter{Title: "Uploaded Book"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.NotEmpty(t, found[0].CoverImage)
}

func TestAdminAddBook_RejectsBadCoverType(t *testing.T) {
	app := setupApp(t)
	app.registerUser(t, "keeper", entities.UserRoleLibrarian)
	cookies := app.login(t, "keeper")

	body, contentType := multipartForm(t, map[string]string{
		"title":      "Bad Upload",
		"first_name": "Jane",
		"last_name":  "Doe",
		"genre":      "Fantasy",
	}, "cover_image", "cover.gif", "gif bytes")

	req := httptest.NewRequest(http.MethodPost, "/admin/add_book", body)
	req.Header.Set("Content-Type", contentType)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "PNG or JPEG")

	found, err := app.books.List(books.Filter{Title: "Bad Upload"})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestAdminEditBook_KeepsFilesWithoutNewUpload(t *testing.T) {
	app := setupApp(t)
	app.registerUser(t, "keeper", entities.UserRoleLibrarian)
	cookies := app.login(t, "keeper")

	book, err := app.books.Create(books.Params{
		Title:           "Before",
		AuthorFirstName: "Jane",
		AuthorLastName:  "Doe",
		GenreName:       "Fantasy",
		CoverImage:      "existing_cover.png",
	})
	require.NoError(t, err)

	body, contentType := multipartForm(t, map[string]string{
		"title":      "After",
		"first_name": "Jane",
		"last_name":  "Doe",
		"genre":      "Fantasy",
	}, "", "", "")

	req := httptest.NewRequest(http.MethodPost, "/admin/edit_book/"+itoa(book.ID), body)
	req.Header.Set("Content-Type", contentType)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusFound, w.Code, "body: %s", w.Body.String())

	got, err := app.books.GetByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, "After", got.Title)
	assert.Equal(t, "existing_cover.png", got.CoverImage)
}

func TestAdminUsers_EditAndDelete(t *testing.T) {
	app := setupApp(t)
	patron := app.registerUser(t, "patron", entities.UserRolePatron)
	keeper := app.registerUser(t, "keeper", entities.UserRoleLibrarian)
	cookies := app.login(t, "keeper")

	w := app.postForm("/admin/edit_user/"+itoa(patron.ID), url.Values{
		"username": {"Promoted"},
		"email":    {"promoted@example.com"},
		"role":     {"librarian"},
	}, cookies)
	require.Equal(t, http.StatusFound, w.Code)

	repo := users.NewRepository(app.db.DB)
	got, err := repo.GetByID(patron.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.UserRoleLibrarian, got.Role)

	// A librarian cannot delete themselves.
	w = app.postForm("/admin/delete_user/"+itoa(keeper.ID), url.Values{}, cookies)
	require.Equal(t, http.StatusFound, w.Code)
	_, err = repo.GetByID(keeper.ID)
	assert.NoError(t, err)

	// Deleting another user works.
	w = app.postForm("/admin/delete_user/"+itoa(patron.ID), url.Values{}, cookies)
	require.Equal(t, http.StatusFound, w.Code)
	_, err = repo.GetByID(patron.ID)
	assert.ErrorIs(t, err, users.ErrUserNotFound)
}

func TestWishes_PatronSubmitsLibrarianReads(t *testing.T) {
	app := setupApp(t)
	app.registerUser(t, "patron", entities.UserRolePatron)
	app.registerUser(t, "keeper", entities.UserRoleLibrarian)

	patronCookies := app.login(t, "patron")
	w := app.postForm("/wishes", url.Values{"wish_text": {"More sea stories"}}, patronCookies)
	require.Equal(t, http.StatusFound, w.Code)

	keeperCookies := app.login(t, "keeper")
	page := app.get("/wishes", keeperCookies)
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "More sea stories")

	// Librarian submissions are bounced.
	w = app.postForm("/wishes", url.Values{"wish_text": {"my own wish"}}, keeperCookies)
	require.Equal(t, http.StatusFound, w.Code)
	all, err := wishes.NewRepository(app.db.DB).ListAll()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

var csrfTokenField = regexp.MustCompile(`name="gorilla\.csrf\.Token" value="([^"]+)"`)

func TestCSRF_RejectedPostNeverReachesHandler(t *testing.T) {
	app := setupAppCSRF(t, []byte("32-byte-long-auth-key-for-tests!"))
	app.registerUser(t, "patron", entities.UserRolePatron)

	// The login page hands out the CSRF cookie and a form token.
	loginPage := app.get("/auth", nil)
	require.Equal(t, http.StatusOK, loginPage.Code)
	cookies := loginPage.Result().Cookies()
	match := csrfTokenField.FindStringSubmatch(loginPage.Body.String())
	require.Len(t, match, 2, "login page should carry a token")
	token := match[1]

	login := app.postForm("/auth", url.Values{
		"login":              {"patron"},
		"password":           {"sturdy-pass1"},
		"gorilla.csrf.Token": {token},
	}, cookies)
	require.Equal(t, http.StatusFound, login.Code, "login failed: %s", login.Body.String())
	cookies = append(cookies, login.Result().Cookies()...)

	// A tokenless post must be rejected and must not run the handler.
	w := app.postForm("/wishes", url.Values{"wish_text": {"forged"}}, cookies)
	assert.Equal(t, http.StatusForbidden, w.Code)

	wishRepo := wishes.NewRepository(app.db.DB)
	all, err := wishRepo.ListAll()
	require.NoError(t, err)
	assert.Empty(t, all, "rejected post must not create a wish")

	// The same post with the token goes through.
	w = app.postForm("/wishes", url.Values{
		"wish_text":          {"More poetry, please"},
		"gorilla.csrf.Token": {token},
	}, cookies)
	require.Equal(t, http.StatusFound, w.Code)
	all, err = wishRepo.ListAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "More poetry, please", all[0].WishText)
}

func TestProfile_ShowsReservations(t *testing.T) {
	app := setupApp(t)
	book := app.seedBook(t, "Held Book")
	app.registerUser(t, "patron", entities.UserRolePatron)
	cookies := app.login(t, "patron")

	app.postForm("/book/"+itoa(book.ID), url.Values{"action": {"reserve_book"}}, cookies)

	page := app.get("/profile", cookies)
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Held Book")
}

func TestEditProfile_UpdatesAccount(t *testing.T) {
	app := setupApp(t)
	user := app.registerUser(t, "patron", entities.UserRolePatron)
	cookies := app.login(t, "patron")

	w := app.postForm("/edit_profile", url.Values{
		"username": {"Renamed"},
		"email":    {"renamed@example.com"},
	}, cookies)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/profile", w.Header().Get("Location"))

	got, err := app.svc.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Username)
}

// multipartForm builds a multipart body with string fields and an
// optional single file part.
func multipartForm(t *testing.T, fields map[string]string, fileField, fileName, fileContent string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if fileField != "" {
		part, err := writer.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = part.Write([]byte(fileContent))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
