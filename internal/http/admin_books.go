package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/database/books"
	"github.com/openshelf/openshelf/internal/uploads"
)

// AdminBooksController handles librarian catalog management.
type AdminBooksController struct {
	store    BookAdminStore
	catalog  CatalogStore
	files    FileStore
	sessions *auth.SessionManager
}

func NewAdminBooksController(store BookAdminStore, catalog CatalogStore, files FileStore, sessions *auth.SessionManager) *AdminBooksController {
	return &AdminBooksController{
		store:    store,
		catalog:  catalog,
		files:    files,
		sessions: sessions,
	}
}

// bookForm carries the submitted form values back into the template
// when validation fails, so the librarian does not retype everything.
type bookForm struct {
	Title       string
	FirstName   string
	MiddleName  string
	LastName    string
	Genre       string
	Description string
	Rating      string
}

func readBookForm(c *gin.Context) bookForm {
	return bookForm{
		Title:       strings.TrimSpace(c.PostForm("title")),
		FirstName:   strings.TrimSpace(c.PostForm("first_name")),
		MiddleName:  strings.TrimSpace(c.PostForm("middle_name")),
		LastName:    strings.TrimSpace(c.PostForm("last_name")),
		Genre:       strings.TrimSpace(c.PostForm("genre")),
		Description: strings.TrimSpace(c.PostForm("description")),
		Rating:      strings.TrimSpace(c.PostForm("rating")),
	}
}

// validate returns a message for the first offending field, or "".
func (f bookForm) validate() string {
	switch {
	case f.Title == "":
		return "Title is required"
	case f.FirstName == "" || f.LastName == "":
		return "Author first and last name are required"
	case f.Genre == "":
		return "Genre is required"
	}
	if f.Rating != "" {
		r, err := strconv.ParseFloat(f.Rating, 64)
		if err != nil || r < 0 || r > 5 {
			return "Rating must be a number between 0 and 5"
		}
	}
	return ""
}

func (f bookForm) params() books.Params {
	rating, _ := strconv.ParseFloat(f.Rating, 64)
	return books.Params{
		Title:            f.Title,
		AuthorFirstName:  f.FirstName,
		AuthorMiddleName: f.MiddleName,
		AuthorLastName:   f.LastName,
		GenreName:        f.Genre,
		Description:      f.Description,
		Rating:           rating,
	}
}

// AddBookPage renders the add-book form.
// GET /admin/add_book
func (ac *AdminBooksController) AddBookPage(c *gin.Context) {
	genres, err := ac.catalog.DistinctGenreNames()
	if err != nil {
		failInternal(c, err, "load genres")
		return
	}
	c.HTML(http.StatusOK, "add_book.html", templateData(c, ac.sessions, gin.H{
		"Title":  "Add book",
		"Form":   bookForm{},
		"Genres": genres,
	}))
}

// AddBook handles the add-book form submission.
// POST /admin/add_book
func (ac *AdminBooksController) AddBook(c *gin.Context) {
	form := readBookForm(c)
	if msg := form.validate(); msg != "" {
		ac.renderAddForm(c, form, msg)
		return
	}

	params := form.params()
	var uploadErr string
	params.CoverImage, params.BookFile, uploadErr = ac.saveUploads(c)
	if uploadErr != "" {
		ac.renderAddForm(c, form, uploadErr)
		return
	}

	book, err := ac.store.Create(params)
	if err != nil {
		failInternal(c, err, "create book")
		return
	}

	flashAndRedirect(c, ac.sessions, "success", "Book added to the catalog", fmt.Sprintf("/book/%d", book.ID))
}

// EditBookPage renders the edit form prefilled from the stored book.
// GET /admin/edit_book/:id
func (ac *AdminBooksController) EditBookPage(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	book, err := ac.store.GetByID(id)
	if err != nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	genres, err := ac.catalog.DistinctGenreNames()
	if err != nil {
		failInternal(c, err, "load genres")
		return
	}

	form := bookForm{
		Title:       book.Title,
		FirstName:   book.Author.FirstName,
		MiddleName:  book.Author.MiddleName,
		LastName:    book.Author.LastName,
		Genre:       book.Genre.Name,
		Description: book.Description,
		Rating:      strconv.FormatFloat(book.Rating, 'f', -1, 64),
	}

	c.HTML(http.StatusOK, "edit_book.html", templateData(c, ac.sessions, gin.H{
		"Title":  "Edit book",
		"BookID": book.ID,
		"Form":   form,
		"Genres": genres,
	}))
}

// EditBook handles the edit form submission. Skipped uploads leave the
// stored cover and document untouched.
// POST /admin/edit_book/:id
func (ac *AdminBooksController) EditBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	form := readBookForm(c)
	if msg := form.validate(); msg != "" {
		ac.renderEditForm(c, id, form, msg)
		return
	}

	params := form.params()
	var uploadErr string
	params.CoverImage, params.BookFile, uploadErr = ac.saveUploads(c)
	if uploadErr != "" {
		ac.renderEditForm(c, id, form, uploadErr)
		return
	}

	if err := ac.store.Update(id, params); err != nil {
		if errors.Is(err, books.ErrBookNotFound) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		failInternal(c, err, "update book")
		return
	}

	flashAndRedirect(c, ac.sessions, "success", "Book updated", fmt.Sprintf("/book/%d", id))
}

// DeleteBook removes a book and its dependent reviews and reservations.
// POST /admin/delete_book/:id
func (ac *AdminBooksController) DeleteBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ac.store.Delete(id); err != nil {
		if errors.Is(err, books.ErrBookNotFound) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		failInternal(c, err, "delete book")
		return
	}

	flashAndRedirect(c, ac.sessions, "success", "Book deleted", "/books")
}

// saveUploads stores the optional cover and document from the form.
// Missing files are fine; bad files return a form-level message.
func (ac *AdminBooksController) saveUploads(c *gin.Context) (cover, document, errMsg string) {
	if file, err := c.FormFile("cover_image"); err == nil {
		stored, err := ac.files.SaveCover(file)
		if err != nil {
			return "", "", uploadErrorMessage(err)
		}
		cover = stored
	}
	if file, err := c.FormFile("book_file"); err == nil {
		stored, err := ac.files.SaveDocument(file)
		if err != nil {
			return "", "", uploadErrorMessage(err)
		}
		document = stored
	}
	return cover, document, ""
}

func uploadErrorMessage(err error) string {
	switch {
	case errors.Is(err, uploads.ErrUnsupportedCoverType):
		return "Cover must be a PNG or JPEG image"
	case errors.Is(err, uploads.ErrUnsupportedFileType):
		return "Book file must be a PDF document"
	case errors.Is(err, uploads.ErrFileTooLarge):
		return "Uploaded file is too large"
	default:
		return "Failed to store uploaded file"
	}
}

func (ac *AdminBooksController) renderAddForm(c *gin.Context, form bookForm, errMsg string) {
	genres, _ := ac.catalog.DistinctGenreNames()
	c.HTML(http.StatusOK, "add_book.html", templateData(c, ac.sessions, gin.H{
		"Title":  "Add book",
		"Form":   form,
		"Genres": genres,
		"Error":  errMsg,
	}))
}

func (ac *AdminBooksController) renderEditForm(c *gin.Context, id uint, form bookForm, errMsg string) {
	genres, _ := ac.catalog.DistinctGenreNames()
	c.HTML(http.StatusOK, "edit_book.html", templateData(c, ac.sessions, gin.H{
		"Title":  "Edit book",
		"BookID": id,
		"Form":   form,
		"Genres": genres,
		"Error":  errMsg,
	}))
}
