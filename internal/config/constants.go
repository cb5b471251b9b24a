package config

// Default filesystem locations.
const (
	// DefaultDatabasePath is the default path for the application database
	DefaultDatabasePath = "./openshelf.db"

	// DefaultUploadsDir is where uploaded covers and book files are stored
	DefaultUploadsDir = "./uploads"

	// DefaultCoverImage is served for books without an uploaded cover
	DefaultCoverImage = "/static/img/default_cover.svg"
)
