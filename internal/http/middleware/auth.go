// Package middleware – bearer-token authentication.
//
// One canonical identity contract: a JWT bearer token whose subject is the
// user id. There is no cookie session and no header-passed user id; endpoints
// either require the token, or accept its absence as the anonymous identity.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/healthsphere/go-health-backend/internal/auth"
)

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// RequireAuth rejects requests without a valid bearer token and stores the
// verified user id in the context.
func RequireAuth(tokens *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.GetString(requestIDKey),
				"code":       "unauthorized",
				"message":    "missing bearer token",
			})
			return
		}
		userID, err := tokens.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.GetString(requestIDKey),
				"code":       "unauthorized",
				"message":    "invalid or expired token",
			})
			return
		}
		c.Set(ContextUserID, userID)
		c.Next()
	}
}

// OptionalAuth stores the verified user id when a valid token is present and
// lets anonymous requests through untouched. An invalid token is still
// rejected: silently downgrading a broken credential to anonymous would mask
// client bugs.
func OptionalAuth(tokens *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Next()
			return
		}
		userID, err := tokens.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.GetString(requestIDKey),
				"code":       "unauthorized",
				"message":    "invalid or expired token",
			})
			return
		}
		c.Set(ContextUserID, userID)
		c.Next()
	}
}
