package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tasky-chat/internal/auth"
)

// PrincipalKey holds the verified auth.Principal in the gin context.
const PrincipalKey = "principal"

type tokenVerifier interface {
	Verify(ctx context.Context, token string) (auth.Principal, error)
}

// AuthMiddleware requires an "Authorization: Bearer <jwt>" header and stores the
// caller under "userID" and PrincipalKey.
func AuthMiddleware(verifier tokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		principal, err := verifier.Verify(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("userID", principal.UserID)
		c.Set(PrincipalKey, principal)
		c.Next()
	}
}
