// Package uploads stores book cover images and book documents on disk.
//
// Filenames from the browser are sanitized and made unique before
// anything touches the filesystem. Covers must be png/jpg/jpeg, book
// documents must be pdf.
package uploads

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	ErrUnsupportedCoverType = errors.New("cover must be a png or jpeg image")
	ErrUnsupportedFileType  = errors.New("book file must be a pdf document")
	ErrFileTooLarge         = errors.New("uploaded file is too large")
)

var coverExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

var documentExtensions = map[string]bool{
	".pdf": true,
}

// unsafeChars matches everything that is not kept in a stored filename.
var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Store persists uploaded files under a single directory.
type Store struct {
	dir          string
	defaultCover string
	maxSize      int64
}

// NewStore creates the upload directory if needed and returns a store.
// maxSizeMB limits individual uploads; defaultCover is returned by
// CoverPath for books without an uploaded cover.
func NewStore(dir, defaultCover string, maxSizeMB int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{
		dir:          dir,
		defaultCover: defaultCover,
		maxSize:      maxSizeMB << 20,
	}, nil
}

// SaveCover stores an uploaded cover image and returns the stored
// filename (relative to the upload directory).
func (s *Store) SaveCover(file *multipart.FileHeader) (string, error) {
	return s.save(file, coverExtensions, ErrUnsupportedCoverType)
}

// SaveDocument stores an uploaded book document and returns the stored
// filename (relative to the upload directory).
func (s *Store) SaveDocument(file *multipart.FileHeader) (string, error) {
	return s.save(file, documentExtensions, ErrUnsupportedFileType)
}

// Path resolves a stored filename to its absolute location, refusing
// names that escape the upload directory.
func (s *Store) Path(name string) (string, error) {
	cleaned := filepath.Base(name)
	if cleaned != name || name == "" || name == "." {
		return "", fmt.Errorf("invalid stored filename %q", name)
	}
	return filepath.Join(s.dir, cleaned), nil
}

// CoverPath returns the URL path for a stored cover, falling back to
// the configured placeholder when the book has none.
func (s *Store) CoverPath(stored string) string {
	if stored == "" {
		return s.defaultCover
	}
	return "/uploads/" + stored
}

// Dir returns the upload directory, for serving files statically.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) save(file *multipart.FileHeader, allowed map[string]bool, typeErr error) (string, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowed[ext] {
		return "", typeErr
	}
	if s.maxSize > 0 && file.Size > s.maxSize {
		return "", ErrFileTooLarge
	}

	name, err := uniqueName(sanitizeFilename(file.Filename))
	if err != nil {
		return "", err
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	// Write to a temp file in the same directory, then rename into
	// place so a failed upload never leaves a partial file.
	tmp, err := os.CreateTemp(s.dir, "upload_tmp_")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return "", fmt.Errorf("store upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return "", err
	}

	return name, nil
}

// sanitizeFilename strips path components and replaces anything outside
// a conservative character set. The extension is kept as-is so a name
// like ".pdf" never loses the extension the type check validated.
func sanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	stem = unsafeChars.ReplaceAllString(stem, "_")
	stem = strings.Trim(stem, "._")
	if stem == "" {
		stem = "file"
	}
	return stem + ext
}

// uniqueName prefixes a short random token so two uploads with the same
// browser filename never collide.
func uniqueName(base string) (string, error) {
	token := make([]byte, 6)
	if _, err := rand.Read(token); err != nil {
		return "", err
	}
	return hex.EncodeToString(token) + "_" + base, nil
}
