package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/database/books"
	"github.com/openshelf/openshelf/internal/entities"
)

// Book form actions accepted by POST /book/:id.
const (
	actionMarkReading   = "mark_reading"
	actionUnmarkReading = "unmark_reading"
	actionReserveBook   = "reserve_book"
	actionUnreserveBook = "unreserve_book"
	actionAddReview     = "add_review"
)

// BookView is the template-facing projection of a catalog row.
type BookView struct {
	ID          uint
	Title       string
	AuthorName  string
	GenreName   string
	Description string
	CoverURL    string
	Rating      float64
	HasFile     bool
}

// CatalogController serves the public catalog: listing, detail pages,
// reservation toggles, reviews and book file access.
type CatalogController struct {
	store        CatalogStore
	reservations ReservationStore
	reviews      ReviewStore
	files        FileStore
	sessions     *auth.SessionManager
}

func NewCatalogController(store CatalogStore, reservations ReservationStore, reviews ReviewStore, files FileStore, sessions *auth.SessionManager) *CatalogController {
	return &CatalogController{
		store:        store,
		reservations: reservations,
		reviews:      reviews,
		files:        files,
		sessions:     sessions,
	}
}

func (cc *CatalogController) bookView(book *entities.Book) BookView {
	return BookView{
		ID:          book.ID,
		Title:       book.Title,
		AuthorName:  book.Author.FullName(),
		GenreName:   book.Genre.Name,
		Description: book.Description,
		CoverURL:    cc.files.CoverPath(book.CoverImage),
		Rating:      book.Rating,
		HasFile:     book.BookFile != "",
	}
}

// IndexPage renders the landing page with the newest catalog additions.
// GET /
func (cc *CatalogController) IndexPage(c *gin.Context) {
	const latest = 6
	newest, err := cc.store.ListLatest(latest)
	if err != nil {
		failInternal(c, err, "load catalog")
		return
	}

	views := make([]BookView, 0, len(newest))
	for i := range newest {
		views = append(views, cc.bookView(&newest[i]))
	}

	c.HTML(http.StatusOK, "index.html", templateData(c, cc.sessions, gin.H{
		"Title": "Library",
		"Books": views,
	}))
}

// BooksPage renders the filterable catalog listing.
// GET|POST /books
func (cc *CatalogController) BooksPage(c *gin.Context) {
	filter := books.Filter{
		Title:  strings.TrimSpace(formValue(c, "title")),
		Author: strings.TrimSpace(formValue(c, "author")),
		Genre:  strings.TrimSpace(formValue(c, "genre")),
	}

	results, err := cc.store.List(filter)
	if err != nil {
		failInternal(c, err, "list books")
		return
	}

	views := make([]BookView, 0, len(results))
	for i := range results {
		views = append(views, cc.bookView(&results[i]))
	}

	c.HTML(http.StatusOK, "books.html", templateData(c, cc.sessions, gin.H{
		"Title":        "Catalog",
		"Books":        views,
		"FilterTitle":  filter.Title,
		"FilterAuthor": filter.Author,
		"FilterGenre":  filter.Genre,
	}))
}

// BookPage renders a single book with its reviews, average rating, and
// the requesting user's reading/reserved state.
// GET /book/:id
func (cc *CatalogController) BookPage(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := cc.store.GetByID(id)
	if err != nil {
		if err == books.ErrBookNotFound {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		failInternal(c, err, "load book")
		return
	}

	bookReviews, err := cc.reviews.ListForBook(id)
	if err != nil {
		failInternal(c, err, "load reviews")
		return
	}
	average, hasAverage, err := cc.reviews.AverageForBook(id)
	if err != nil {
		failInternal(c, err, "average rating")
		return
	}

	var isReading, isReserved bool
	if userID := auth.GetUserID(c); userID != 0 {
		if isReading, err = cc.reservations.HasStatus(userID, id, true); err != nil {
			failInternal(c, err, "reading state")
			return
		}
		if isReserved, err = cc.reservations.HasStatus(userID, id, false); err != nil {
			failInternal(c, err, "reserved state")
			return
		}
	}

	c.HTML(http.StatusOK, "book.html", templateData(c, cc.sessions, gin.H{
		"Title":         book.Title,
		"Book":          cc.bookView(book),
		"Reviews":       bookReviews,
		"AverageRating": average,
		"HasAverage":    hasAverage,
		"IsReading":     isReading,
		"IsReserved":    isReserved,
	}))
}

// BookAction dispatches the detail-page form actions: reservation and
// reading toggles plus review submission.
// POST /book/:id
func (cc *CatalogController) BookAction(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	userID := auth.GetUserID(c)

	if _, err := cc.store.GetByID(id); err != nil {
		if err == books.ErrBookNotFound {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		failInternal(c, err, "load book")
		return
	}

	location := fmt.Sprintf("/book/%d", id)
	action := c.PostForm("action")

	var err error
	var message string
	switch action {
	case actionMarkReading:
		err = cc.reservations.SetStatus(userID, id, true)
		message = "Marked as currently reading"
	case actionUnmarkReading:
		err = cc.reservations.ClearStatus(userID, id, true)
		message = "Removed from currently reading"
	case actionReserveBook:
		err = cc.reservations.SetStatus(userID, id, false)
		message = "Book reserved"
	case actionUnreserveBook:
		err = cc.reservations.ClearStatus(userID, id, false)
		message = "Reservation cancelled"
	case actionAddReview:
		cc.addReview(c, userID, id, location)
		return
	default:
		flashAndRedirect(c, cc.sessions, "warning", "Unknown action", location)
		return
	}

	if err != nil {
		failInternal(c, err, "book action "+action)
		return
	}
	flashAndRedirect(c, cc.sessions, "success", message, location)
}

func (cc *CatalogController) addReview(c *gin.Context, userID, bookID uint, location string) {
	text := strings.TrimSpace(c.PostForm("review_text"))
	rating, err := strconv.Atoi(c.PostForm("rating"))
	if err != nil || rating < 1 || rating > 5 {
		flashAndRedirect(c, cc.sessions, "warning", "Rating must be between 1 and 5", location)
		return
	}
	if text == "" {
		flashAndRedirect(c, cc.sessions, "warning", "Review text must not be empty", location)
		return
	}

	if _, err := cc.reviews.Add(userID, bookID, text, rating); err != nil {
		failInternal(c, err, "add review")
		return
	}
	flashAndRedirect(c, cc.sessions, "success", "Review added", location)
}

// ReadBook serves the book document inline for reading in the browser.
// GET /read_book/:id
func (cc *CatalogController) ReadBook(c *gin.Context) {
	cc.serveBookFile(c, "inline")
}

// DownloadBook serves the book document as an attachment.
// GET /download_book/:id
func (cc *CatalogController) DownloadBook(c *gin.Context) {
	cc.serveBookFile(c, "attachment")
}

func (cc *CatalogController) serveBookFile(c *gin.Context, disposition string) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := cc.store.GetByID(id)
	if err != nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	if book.BookFile == "" {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	path, err := cc.files.Path(book.BookFile)
	if err != nil {
		failInternal(c, err, "resolve book file")
		return
	}

	filename := strings.ReplaceAll(book.Title, "/", "-") + ".pdf"
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, filename))
	c.Header("Content-Type", "application/pdf")
	c.File(path)
}

// AutocompleteAuthors returns the distinct author display names.
// GET /autocomplete/authors
func (cc *CatalogController) AutocompleteAuthors(c *gin.Context) {
	names, err := cc.store.DistinctAuthorNames()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, names)
}

// AutocompleteGenres returns the distinct genre names.
// GET /autocomplete/genres
func (cc *CatalogController) AutocompleteGenres(c *gin.Context) {
	names, err := cc.store.DistinctGenreNames()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, names)
}
