package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"collabapi/internal/token"
)

const claimsKey = "authClaims"

// extractToken prefers a bearer header (API clients) and falls back to the
// access cookie (browser sessions).
func extractToken(c *gin.Context) string {
	raw := strings.TrimSpace(c.GetHeader("Authorization"))
	if raw != "" {
		parts := strings.Split(raw, " ")
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}
	if cookie, err := c.Cookie(token.AccessCookie); err == nil {
		return cookie
	}
	return ""
}

// RequireAuth validates the access token and stores the verified claims on the
// context for downstream handlers.
func RequireAuth(tokens *token.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := extractToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		claims, err := tokens.VerifyAccess(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRoles gates a route to the listed roles; must run after RequireAuth.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		for _, role := range roles {
			if claims.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}

// SetClaims attaches an identity outside RequireAuth; the auth handlers use it
// so signup/login/refresh audit entries carry the actor that was just minted.
func SetClaims(c *gin.Context, claims token.Claims) {
	c.Set(claimsKey, claims)
}

// CurrentClaims returns the verified identity set by RequireAuth.
func CurrentClaims(c *gin.Context) (token.Claims, bool) {
	value, exists := c.Get(claimsKey)
	if !exists {
		return token.Claims{}, false
	}
	claims, ok := value.(token.Claims)
	return claims, ok
}
