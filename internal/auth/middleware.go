package auth

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Authenticate attaches an Identity when the request carries a valid,
// unrevoked bearer token. Requests without one continue anonymously;
// RequireAuth and RequireRole enforce access.
func Authenticate(issuer *Issuer, revoker Revoker) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			c.Next()
			return
		}
		claims, err := issuer.Parse(token)
		if err != nil {
			c.Next()
			return
		}
		if revoker != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			revoked, err := revoker.IsRevoked(ctx, claims.ID)
			cancel()
			if err != nil {
				log.Printf("[WARN] auth: revocation check failed: %v", err)
			}
			if revoked {
				c.Next()
				return
			}
		}
		WithIdentity(c, IdentityFromClaims(claims))
		c.Next()
	}
}

func BearerToken(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := FromContext(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":    "Authentication required",
				"redirect": "/login",
			})
			return
		}
		c.Next()
	}
}

func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := FromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":    "Authentication required",
				"redirect": "/login",
			})
			return
		}
		if id.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
		c.Next()
	}
}
