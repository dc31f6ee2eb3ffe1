package middleware

import (
	"net/http"
	"strings"

	"tradely/utils"

	"github.com/gin-gonic/gin"
)

// Roles carried in the token's role claim.
const (
	RoleUser     = "user"
	RoleProvider = "provider"
)

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	return token, token != ""
}

// JWTAuthUserMiddleware authenticates a customer token and stores the user
// ID in the request context.
func JWTAuthUserMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Insufficient authorization"})
			return
		}
		id, role, err := utils.ExtractIDAndRole(tokenString)
		if err != nil || id == "" || role != RoleUser {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Insufficient authorization"})
			return
		}
		c.Set("userID", id)
		c.Next()
	}
}

// JWTAuthProviderMiddleware authenticates a provider token and stores the
// provider ID in the request context.
func JWTAuthProviderMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Insufficient authorization"})
			return
		}
		id, role, err := utils.ExtractIDAndRole(tokenString)
		if err != nil || id == "" || role != RoleProvider {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Insufficient authorization"})
			return
		}
		c.Set("providerID", id)
		c.Next()
	}
}

// JWTAuthUserOrAdminMiddleware accepts either a customer token or the admin
// token; handlers check the isAdmin flag for the wider view.
func JWTAuthUserOrAdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Insufficient authorization"})
			return
		}
		if isAdminToken(tokenString) {
			c.Set("isAdmin", true)
			c.Next()
			return
		}
		id, role, err := utils.ExtractIDAndRole(tokenString)
		if err != nil || id == "" || role != RoleUser {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Insufficient authorization"})
			return
		}
		c.Set("userID", id)
		c.Next()
	}
}
