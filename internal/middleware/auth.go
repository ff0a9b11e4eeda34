package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"dm-service/internal/auth"
)

// AuthMiddleware validates the Authorization header and attaches the
// resolved identity to the request context.
func AuthMiddleware(authn *auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization", "code": auth.Code(auth.ErrMissingToken)})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header", "code": auth.Code(auth.ErrTokenInvalid)})
			return
		}

		user, err := authn.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			code := auth.Code(err)
			status := http.StatusUnauthorized
			if code == "SERVER_ERROR" {
				status = http.StatusInternalServerError
			}
			c.AbortWithStatusJSON(status, gin.H{"error": "authentication error", "code": code})
			return
		}

		c.Set("userID", user.ID)
		c.Set("user", user)
		c.Next()
	}
}
