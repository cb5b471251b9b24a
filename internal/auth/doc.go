// Package auth provides authentication and authorization for the library.
//
// Identity lives in a server-side session (SQLite-backed scs store);
// roles are checked per route group: patrons can reserve, read and
// review books, librarians additionally manage the catalog and users.
//
// # Configuration
//
//	AUTH_SESSION_SECRET=<hex-32-bytes>  # Auto-generated if empty
//	AUTH_SESSION_LIFETIME=24h           # Idle timeout
//	AUTH_REMEMBER_LIFETIME=720h         # "Remember me" cookie lifetime
//	AUTH_BCRYPT_COST=12                 # bcrypt cost factor
//	AUTH_SECURE_COOKIES=true            # HTTPS-only cookies
//
// # Usage
//
// Initialize authentication in entrypoint:
//
//	authService := auth.NewService(db.DB, cfg.Auth)
//	sessionManager, _ := auth.NewSessionManager(sqlDB, cfg.Auth)
//	authMiddleware := auth.NewMiddleware(authService, sessionManager)
//	router.Use(sessionManager.SessionLoadSave())
//	router.Use(authMiddleware.Handler())
//
// Extract user in handlers:
//
//	userID := auth.GetUserID(c) // 0 for anonymous requests
package auth
