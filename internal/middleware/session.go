package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/doaamohamed88/shortLinks/internal/auth"
	"github.com/doaamohamed88/shortLinks/internal/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionCookie carries the session token for browser clients.
const SessionCookie = "auth_token"

const sessionKey = "session"

// Authenticator resolves a session token to an admin session.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.Session, error)
}

// TokenFromRequest reads the session token from the cookie, falling back
// to an Authorization: Bearer header.
func TokenFromRequest(c *gin.Context) string {
	if token, err := c.Cookie(SessionCookie); err == nil && token != "" {
		return token
	}

	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

// ClearSessionCookie expires the session cookie on the client.
func ClearSessionCookie(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", secure, true)
}

// RequireAdmin lets a request through only with a live admin session.
// A session that exists but fails the admin policy is revoked and its
// cookie cleared.
func RequireAdmin(authn Authenticator, secureCookie bool, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		token := TokenFromRequest(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthenticated",
				"message": "Sign in required",
			})
			return
		}

		session, err := authn.Authenticate(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrUnauthorized):
				logger.Warn("Revoked non-admin session", zap.String("ip", c.ClientIP()))
				ClearSessionCookie(c, secureCookie)
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error":   "unauthorized",
					"message": "Unauthorized access",
				})
			case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrSessionExpired):
				ClearSessionCookie(c, secureCookie)
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error":   "unauthenticated",
					"message": "Session expired, sign in again",
				})
			default:
				logger.Error("Session lookup failed", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":   "internal_error",
					"message": "Failed to verify session",
				})
			}
			return
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

// SessionFromContext returns the session set by RequireAdmin.
func SessionFromContext(c *gin.Context) (*models.Session, bool) {
	value, exists := c.Get(sessionKey)
	if !exists {
		return nil, false
	}
	session, ok := value.(*models.Session)
	return session, ok
}
