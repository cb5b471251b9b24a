package entrypoint

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/config"
	"github.com/openshelf/openshelf/internal/database"
	"github.com/openshelf/openshelf/internal/database/books"
	"github.com/openshelf/openshelf/internal/database/reservations"
	"github.com/openshelf/openshelf/internal/database/reviews"
	"github.com/openshelf/openshelf/internal/database/users"
	"github.com/openshelf/openshelf/internal/database/wishes"
	http_controllers "github.com/openshelf/openshelf/internal/http"
	"github.com/openshelf/openshelf/internal/uploads"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until SIGINT/SIGTERM, then shuts it down
// within the configured timeout.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

// Run wires the database, stores, auth stack and router, then serves.
func Run(cfg *config.Config, version string) {
	log.Printf("Starting OpenShelf v%s", version)

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	fileStore, err := uploads.NewStore(cfg.Uploads.Dir, cfg.Uploads.DefaultCover, cfg.Uploads.MaxSizeMB)
	if err != nil {
		log.Fatalf("Failed to initialize upload store: %v", err)
	}

	authService := auth.NewService(db.DB, cfg.Auth)

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get SQL DB for sessions: %v", err)
	}
	sessionManager, err := auth.NewSessionManager(sqlDB, cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to initialize session manager: %v", err)
	}

	authMiddleware := auth.NewMiddleware(authService, sessionManager)
	authController := auth.NewAuthController(authService, sessionManager, cfg.Auth)
	defer authController.Stop()

	var csrfSecret []byte
	if cfg.Auth.SessionSecret != "" {
		csrfSecret, err = hex.DecodeString(cfg.Auth.SessionSecret)
		if err != nil {
			// Not hex, use as raw bytes
			csrfSecret = []byte(cfg.Auth.SessionSecret)
		}
	} else {
		secret, err := auth.GenerateSessionSecret()
		if err != nil {
			log.Fatalf("Failed to generate CSRF secret: %v", err)
		}
		csrfSecret, _ = hex.DecodeString(secret)
		log.Printf("Generated session secret (set AUTH_SESSION_SECRET to persist)")
	}

	hasLibrarians, _ := authService.HasLibrarians()
	if !hasLibrarians {
		log.Printf("No librarian accounts found. Run 'openshelf create-admin' to create one.")
	}

	bookRepo := books.NewRepository(db.DB)

	routerCfg := http_controllers.RouterConfig{
		Database:       db,
		AuthService:    authService,
		AuthController: authController,
		AuthMiddleware: authMiddleware,
		SessionManager: sessionManager,
		CSRFSecret:     csrfSecret,
		Catalog:        bookRepo,
		BookAdmin:      bookRepo,
		Reservations:   reservations.NewRepository(db.DB),
		Reviews:        reviews.NewRepository(db.DB),
		Wishes:         wishes.NewRepository(db.DB),
		UserAdmin:      users.NewRepository(db.DB),
		Files:          fileStore,
		AuthConfig:     cfg.Auth,
		TemplatesPath:  cfg.Global.TemplatesPath,
		StaticPath:     cfg.Global.StaticPath,
		Version:        version,
	}

	router := http_controllers.NewRouter(routerCfg)

	Serve(router, cfg, nil)
}
