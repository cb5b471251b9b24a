package http

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf/internal/auth"
)

// --- Parameter Parsing ---

// parseIDParam extracts and validates an unsigned integer ID from URL
// parameters. Responds with 404 and returns false on garbage input,
// since a malformed ID can never name an existing resource.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	idStr := c.Param(paramName)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		c.AbortWithStatus(http.StatusNotFound)
		return 0, false
	}
	return uint(id), true
}

// formValue reads a field from either the POST form or the query
// string, so filter forms work with both GET and POST submissions.
func formValue(c *gin.Context, name string) string {
	if v := c.PostForm(name); v != "" {
		return v
	}
	return c.Query(name)
}

// --- Error Responses ---

// failInternal logs the error and sends a 500 page. The actual error
// is logged but never shown to the client.
func failInternal(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.String(http.StatusInternalServerError, "Something went wrong. Please try again.")
}

// flashAndRedirect queues a flash message and redirects.
func flashAndRedirect(c *gin.Context, sm *auth.SessionManager, level, message, location string) {
	sm.Flash(c.Request, level, message)
	c.Redirect(http.StatusFound, location)
}

// templateData assembles the base data every page template receives:
// auth state, a popped flash message, and the page-specific fields.
func templateData(c *gin.Context, sm *auth.SessionManager, fields gin.H) gin.H {
	data := gin.H{
		"Auth": GetAuthTemplateData(c),
	}
	if sm != nil {
		if flash := sm.PopFlash(c.Request); flash != nil {
			data["Flash"] = flash
		}
	}
	for k, v := range fields {
		data[k] = v
	}
	return data
}
