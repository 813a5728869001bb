package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/doaamohamed88/shortLinks/internal/auth"
	"github.com/doaamohamed88/shortLinks/internal/middleware"
	"github.com/doaamohamed88/shortLinks/internal/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthService is the login flow as seen by the HTTP layer.
type AuthService interface {
	Login(ctx context.Context, username, password string) (*auth.LoginResult, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (*models.Session, error)
}

type AuthHandler struct {
	service      AuthService
	secureCookie bool
	logger       *zap.Logger
}

func NewAuthHandler(service AuthService, secureCookie bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service:      service,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type SessionResponse struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login godoc
// @Summary Sign in as the admin
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 413 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.service.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.Info("Login failed", zap.String("ip", c.ClientIP()), zap.Error(err))

		switch {
		case errors.Is(err, auth.ErrEmptyCredentials):
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "missing_credentials",
				Message: "Username and password are required",
			})
		case errors.Is(err, auth.ErrInvalidUsername):
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "invalid_username",
				Message: "Invalid username",
			})
		case errors.Is(err, auth.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "invalid_credentials",
				Message: "Invalid password",
			})
		case errors.Is(err, auth.ErrUnauthorized):
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "unauthorized",
				Message: "Unauthorized access",
			})
		case errors.Is(err, auth.ErrAdminNotConfigured):
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "configuration_error",
				Message: "Admin email is not configured on the server",
			})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "internal_error",
				Message: "Login failed",
			})
		}
		return
	}

	maxAge := int(time.Until(result.Session.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, result.Token, maxAge, "/", "", h.secureCookie, true)

	c.JSON(http.StatusOK, SessionResponse{
		Email:     result.Session.Principal.Email,
		ExpiresAt: result.Session.ExpiresAt,
	})
}

// Logout godoc
// @Summary Sign out
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if token := middleware.TokenFromRequest(c); token != "" {
		if err := h.service.Logout(c.Request.Context(), token); err != nil {
			h.logger.Error("Logout failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "internal_error",
				Message: "Logout failed",
			})
			return
		}
	}

	middleware.ClearSessionCookie(c, h.secureCookie)
	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}

// Me godoc
// @Summary Current admin session
// @Tags auth
// @Produce json
// @Success 200 {object} SessionResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	session, ok := middleware.SessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthenticated",
			Message: "Sign in required",
		})
		return
	}

	c.JSON(http.StatusOK, SessionResponse{
		Email:     session.Principal.Email,
		ExpiresAt: session.ExpiresAt,
	})
}
