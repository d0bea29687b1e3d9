package middleware

import (
	"net/http"
	"strings"

	"github.com/aznacademy/aznexam-backend/internal/response"
	"github.com/aznacademy/aznexam-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextKeySessionID is the Gin context key for the authenticated session ID.
const ContextKeySessionID = "session_id"

// RequireSessionToken validates a session JWT from the Authorization header
// and pins the bound session ID into the context. The token proves only
// "this caller started this session"; all state checks happen downstream.
func RequireSessionToken(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		sessionID, err := authService.ValidateSessionToken(tokenStr)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}

		c.Set(ContextKeySessionID, sessionID)
		c.Next()
	}
}

// GetSessionID retrieves the authenticated session ID from the Gin context.
func GetSessionID(c *gin.Context) (uuid.UUID, bool) {
	val, exists := c.Get(ContextKeySessionID)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := val.(uuid.UUID)
	return id, ok
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}
	// Fallback for WebSocket upgrades which cannot send headers.
	return c.Query("token")
}
