package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/database/users"
	"github.com/openshelf/openshelf/internal/entities"
)

// AdminUsersController handles librarian user management.
type AdminUsersController struct {
	store    UserAdminStore
	sessions *auth.SessionManager
}

func NewAdminUsersController(store UserAdminStore, sessions *auth.SessionManager) *AdminUsersController {
	return &AdminUsersController{store: store, sessions: sessions}
}

// UsersPage lists all registered users.
// GET /admin/users
func (uc *AdminUsersController) UsersPage(c *gin.Context) {
	all, err := uc.store.List()
	if err != nil {
		failInternal(c, err, "list users")
		return
	}
	c.HTML(http.StatusOK, "users.html", templateData(c, uc.sessions, gin.H{
		"Title": "Users",
		"Users": all,
	}))
}

// EditUserPage renders the edit form for a single user.
// GET /admin/edit_user/:id
func (uc *AdminUsersController) EditUserPage(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	user, err := uc.store.GetByID(id)
	if err != nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	c.HTML(http.StatusOK, "edit_user.html", templateData(c, uc.sessions, gin.H{
		"Title": "Edit user",
		"User":  user,
		"Roles": []entities.UserRole{entities.UserRolePatron, entities.UserRoleLibrarian},
	}))
}

// EditUser updates a user's username, email and role.
// POST /admin/edit_user/:id
func (uc *AdminUsersController) EditUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	username := strings.TrimSpace(c.PostForm("username"))
	email := strings.TrimSpace(c.PostForm("email"))
	role := entities.UserRole(c.PostForm("role"))

	if username == "" || email == "" {
		flashAndRedirect(c, uc.sessions, "danger", "Username and email are required", fmt.Sprintf("/admin/edit_user/%d", id))
		return
	}
	if !role.Valid() {
		flashAndRedirect(c, uc.sessions, "danger", "Unknown role", fmt.Sprintf("/admin/edit_user/%d", id))
		return
	}

	if err := uc.store.Update(id, username, email, role); err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		failInternal(c, err, "update user")
		return
	}

	flashAndRedirect(c, uc.sessions, "success", "User updated", "/admin/users")
}

// DeleteUser removes a user together with their reviews, wishes and
// reservations. A librarian cannot delete their own account.
// POST /admin/delete_user/:id
func (uc *AdminUsersController) DeleteUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if current := auth.GetUserID(c); current == id {
		flashAndRedirect(c, uc.sessions, "danger", "You cannot delete your own account", "/admin/users")
		return
	}

	if err := uc.store.Delete(id); err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		failInternal(c, err, "delete user")
		return
	}

	flashAndRedirect(c, uc.sessions, "success", "User deleted", "/admin/users")
}
