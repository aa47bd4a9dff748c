package delivery

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/kentsubra71/keystone/internal/auth/domain"
	"github.com/kentsubra71/keystone/internal/auth/usecase"

	"github.com/gin-gonic/gin"
)

// PrincipalKey is the gin context key holding the authenticated *domain.Principal.
const PrincipalKey = "principal"

func AuthMiddleware(tokens usecase.TokenUsecase) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		principal, err := tokens.ValidateToken(parts[1])
		if err != nil {
			if errors.Is(err, domain.ErrForbidden) {
				c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			} else {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			}
			c.Abort()
			return
		}

		c.Set(PrincipalKey, principal)
		c.Next()
	}
}

// CronMiddleware admits requests carrying "Bearer <secret>". An empty secret rejects everything.
func CronMiddleware(secret string) gin.HandlerFunc {
	expected := []byte("Bearer " + secret)
	return func(c *gin.Context) {
		actual := []byte(c.GetHeader("Authorization"))
		if secret == "" || subtle.ConstantTimeCompare(actual, expected) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}
