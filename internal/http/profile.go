package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/entities"
)

// ProfileController serves the reader's own pages: the reservation
// overview and the profile edit form.
type ProfileController struct {
	service      *auth.Service
	reservations ReservationStore
	files        FileStore
	sessions     *auth.SessionManager
}

func NewProfileController(service *auth.Service, reservations ReservationStore, files FileStore, sessions *auth.SessionManager) *ProfileController {
	return &ProfileController{
		service:      service,
		reservations: reservations,
		files:        files,
		sessions:     sessions,
	}
}

// ReservationView is a reservation with its book flattened for templates.
type ReservationView struct {
	BookID     uint
	Title      string
	AuthorName string
	CoverURL   string
	StartDate  string
	EndDate    string
}

func (pc *ProfileController) reservationView(r entities.Reservation) ReservationView {
	return ReservationView{
		BookID:     r.BookID,
		Title:      r.Book.Title,
		AuthorName: r.Book.Author.FullName(),
		CoverURL:   pc.files.CoverPath(r.Book.CoverImage),
		StartDate:  r.StartDate.Format("2006-01-02"),
		EndDate:    r.EndDate.Format("2006-01-02"),
	}
}

// ProfilePage shows the current user's books split into the ones they
// are reading and the ones they reserved.
// GET /profile
func (pc *ProfileController) ProfilePage(c *gin.Context) {
	user := auth.GetCurrentUser(c)
	if user == nil {
		c.Redirect(http.StatusFound, "/auth")
		return
	}

	all, err := pc.reservations.ListForUser(user.ID)
	if err != nil {
		failInternal(c, err, "list reservations")
		return
	}

	var reading, reserved []ReservationView
	for _, r := range all {
		if r.Reading {
			reading = append(reading, pc.reservationView(r))
		} else {
			reserved = append(reserved, pc.reservationView(r))
		}
	}

	c.HTML(http.StatusOK, "profile.html", templateData(c, pc.sessions, gin.H{
		"Title":    "My books",
		"User":     user,
		"Reading":  reading,
		"Reserved": reserved,
	}))
}

// EditProfilePage renders the profile edit form prefilled with the
// current values.
// GET /edit_profile
func (pc *ProfileController) EditProfilePage(c *gin.Context) {
	user := auth.GetCurrentUser(c)
	if user == nil {
		c.Redirect(http.StatusFound, "/auth")
		return
	}
	c.HTML(http.StatusOK, "edit_profile.html", templateData(c, pc.sessions, gin.H{
		"Title":    "Edit profile",
		"Username": user.Username,
		"Email":    user.Email,
	}))
}

// EditProfile updates username, email and optionally the password.
// POST /edit_profile
func (pc *ProfileController) EditProfile(c *gin.Context) {
	user := auth.GetCurrentUser(c)
	if user == nil {
		c.Redirect(http.StatusFound, "/auth")
		return
	}

	username := strings.TrimSpace(c.PostForm("username"))
	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("password")
	confirm := c.PostForm("password_confirm")

	render := func(errMsg string) {
		c.HTML(http.StatusOK, "edit_profile.html", templateData(c, pc.sessions, gin.H{
			"Title":    "Edit profile",
			"Username": username,
			"Email":    email,
			"Error":    errMsg,
		}))
	}

	if password != confirm {
		render("Passwords do not match")
		return
	}

	if err := pc.service.UpdateProfile(user.ID, username, email, password); err != nil {
		render(profileErrorMessage(err))
		return
	}

	flashAndRedirect(c, pc.sessions, "success", "Profile updated", "/profile")
}

func profileErrorMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrUsernameInvalid):
		return "Username must be 2-20 latin letters"
	case errors.Is(err, auth.ErrEmailInvalid):
		return "Enter a valid email address"
	case errors.Is(err, auth.ErrUserExists):
		return "That email is already in use"
	case errors.Is(err, auth.ErrPasswordTooShort), errors.Is(err, auth.ErrPasswordWeak), errors.Is(err, auth.ErrPasswordTooLong):
		return "Password must be at least 8 characters and mix letters, digits and symbols"
	default:
		return "Failed to update profile"
	}
}
