package http

import (
	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/entities"
)

// AuthTemplateData holds authentication info for templates.
type AuthTemplateData struct {
	LoggedIn    bool
	Login       string
	IsLibrarian bool
	CSRFToken   string
}

// AuthContextMiddleware injects authentication data into Gin context for
// templates. Templates access it via .Auth in the template data.
func AuthContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authData := AuthTemplateData{
			CSRFToken: auth.GetCSRFToken(c),
		}

		if userID := auth.GetUserID(c); userID != 0 {
			authData.LoggedIn = true
			authData.Login = auth.GetLogin(c)
			authData.IsLibrarian = auth.GetUserRole(c) == entities.UserRoleLibrarian
		}

		c.Set("auth_template_data", authData)
		c.Next()
	}
}

// GetAuthTemplateData retrieves auth data from context for use in templates.
func GetAuthTemplateData(c *gin.Context) AuthTemplateData {
	if data, exists := c.Get("auth_template_data"); exists {
		if authData, ok := data.(AuthTemplateData); ok {
			return authData
		}
	}
	return AuthTemplateData{}
}
