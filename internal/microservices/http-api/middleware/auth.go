package middleware

import (
	"errors"
	"net/http"
	"strings"

	"lecturehub/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

var (
	errMissingAuth   = errors.New("missing authorization header")
	errBadAuthHeader = errors.New("invalid authorization header format")
)

// AccessTokenCookie is read when a request cannot carry headers (page-teardown beacons).
const AccessTokenCookie = "access_token"

// AuthMiddleware is a Gin middleware for JWT authentication of API requests.
// The token comes from the Authorization header, or the access_token cookie when the header is absent.
func AuthMiddleware(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := extractToken(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		// Set user info in context for handlers to use
		c.Set("claims", claims)
		c.Set("userID", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("scopes", claims.Scopes)
		c.Set("role", claims.Role)

		c.Next()
	}
}

func extractToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie != "" {
			return cookie, nil
		}
		return "", errMissingAuth
	}

	// format: "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errBadAuthHeader
	}
	return parts[1], nil
}

// UserID returns the authenticated user set by AuthMiddleware.
func UserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("userID")
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// RequireScopes rejects tokens missing any of the required scopes.
func RequireScopes(requiredScopes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenScopes, ok := c.Get("scopes")
		granted, isSlice := tokenScopes.([]string)
		if !ok || !isSlice {
			c.JSON(http.StatusForbidden, gin.H{"error": "scopes not found in token"})
			c.Abort()
			return
		}

		if !hasAllScopes(granted, requiredScopes) {
			c.JSON(http.StatusForbidden, gin.H{
				"error":    "insufficient scopes",
				"required": requiredScopes,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// hasAllScopes supports "*" and prefix wildcards such as "read:*".
func hasAllScopes(granted, required []string) bool {
	scopeSet := make(map[string]bool, len(granted))
	for _, s := range granted {
		scopeSet[s] = true
	}
	if scopeSet["*"] {
		return true
	}

	for _, r := range required {
		if scopeSet[r] || matchesWildcardScope(granted, r) {
			continue
		}
		return false
	}
	return true
}

func matchesWildcardScope(granted []string, required string) bool {
	for _, s := range granted {
		if prefix, ok := strings.CutSuffix(s, "*"); ok && strings.HasPrefix(required, prefix) {
			return true
		}
	}
	return false
}

// RequireRole checks the role claim set by AuthMiddleware.
func RequireRole(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get("role")
		if userRole, ok := role.(string); !ok || userRole != requiredRole {
			c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions", "required": requiredRole})
			c.Abort()
			return
		}
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return RequireRole("admin")
}
