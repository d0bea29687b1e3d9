package middleware

import (
	"net/http"

	"github.com/aznacademy/aznexam-backend/internal/response"
	"github.com/aznacademy/aznexam-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// AdminKeyHeader carries the static admin shared secret.
const AdminKeyHeader = "X-Admin-Key"

// RequireAdminKey guards the admin surface with the shared secret. The key
// arrives in a header on every request; there is no admin login flow.
func RequireAdminKey(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(AdminKeyHeader)
		if key == "" {
			// WebSocket upgrades cannot send custom headers.
			key = c.Query("admin_key")
		}
		if key == "" || !authService.VerifyAdminKey(key) {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrAdminKeyInvalid)
			return
		}
		c.Next()
	}
}
