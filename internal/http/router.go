package http

import (
	"html/template"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/config"
	"github.com/openshelf/openshelf/internal/database"
)

// RouterConfig bundles the dependencies the router needs. Controllers
// receive narrow store interfaces rather than the whole database.
type RouterConfig struct {
	Database       *database.Database
	AuthService    *auth.Service
	AuthController *auth.AuthController
	AuthMiddleware *auth.Middleware
	SessionManager *auth.SessionManager
	CSRFSecret     []byte

	Catalog      CatalogStore
	BookAdmin    BookAdminStore
	Reservations ReservationStore
	Reviews      ReviewStore
	Wishes       WishStore
	UserAdmin    UserAdminStore
	Files        FileStore

	AuthConfig    config.Auth
	TemplatesPath string
	StaticPath    string
	Version       string
}

// NewRouter wires middleware, templates and all route handlers.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.Use(auth.SecurityHeadersMiddleware())

	// CSRF runs before the session middleware so the session context
	// is not overwritten by CSRF's request replacement.
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.AuthConfig.SecureCookies))
	}
	router.Use(cfg.SessionManager.SessionLoadSave())
	router.Use(cfg.AuthMiddleware.Handler())
	router.Use(AuthContextMiddleware())

	tmpl := template.Must(template.New("").ParseGlob(cfg.TemplatesPath + "/*.html"))
	router.SetHTMLTemplate(tmpl)

	router.Static("/static", cfg.StaticPath)
	router.Static("/uploads", cfg.Files.Dir())

	cfg.AuthController.RegisterRoutes(router)

	health := NewHealthController(cfg.Database, cfg.Version)
	catalog := NewCatalogController(cfg.Catalog, cfg.Reservations, cfg.Reviews, cfg.Files, cfg.SessionManager)
	profile := NewProfileController(cfg.AuthService, cfg.Reservations, cfg.Files, cfg.SessionManager)
	wishes := NewWishesController(cfg.Wishes, cfg.SessionManager)
	adminBooks := NewAdminBooksController(cfg.BookAdmin, cfg.Catalog, cfg.Files, cfg.SessionManager)
	adminUsers := NewAdminUsersController(cfg.UserAdmin, cfg.SessionManager)

	router.GET("/health", health.Status)

	// Public catalog pages.
	router.GET("/", catalog.IndexPage)
	router.GET("/books", catalog.BooksPage)
	router.POST("/books", catalog.BooksPage)
	router.GET("/book/:id", catalog.BookPage)
	router.GET("/autocomplete/authors", catalog.AutocompleteAuthors)
	router.GET("/autocomplete/genres", catalog.AutocompleteGenres)

	// Pages that need a signed-in user.
	authed := router.Group("/", cfg.AuthMiddleware.RequireAuth())
	authed.POST("/book/:id", catalog.BookAction)
	authed.GET("/read_book/:id", catalog.ReadBook)
	authed.GET("/download_book/:id", catalog.DownloadBook)
	authed.GET("/profile", profile.ProfilePage)
	authed.POST("/profile", profile.ProfilePage)
	authed.GET("/edit_profile", profile.EditProfilePage)
	authed.POST("/edit_profile", profile.EditProfile)
	authed.GET("/wishes", wishes.WishesPage)
	authed.POST("/wishes", wishes.SubmitWish)

	// Librarian-only management pages.
	admin := router.Group("/admin", cfg.AuthMiddleware.RequireLibrarian())
	admin.GET("/add_book", adminBooks.AddBookPage)
	admin.POST("/add_book", adminBooks.AddBook)
	admin.GET("/edit_book/:id", adminBooks.EditBookPage)
	admin.POST("/edit_book/:id", adminBooks.EditBook)
	admin.POST("/delete_book/:id", adminBooks.DeleteBook)
	admin.GET("/users", adminUsers.UsersPage)
	admin.GET("/edit_user/:id", adminUsers.EditUserPage)
	admin.POST("/edit_user/:id", adminUsers.EditUser)
	admin.POST("/delete_user/:id", adminUsers.DeleteUser)

	return router
}
