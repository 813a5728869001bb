package handler

import (
	"errors"
	"net/http"

	"github.com/doaamohamed88/shortLinks/internal/repository"
	"github.com/doaamohamed88/shortLinks/internal/service"
	"github.com/gin-gonic/gin"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 16 << 10

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// bindJSON decodes a size-limited JSON body into dst. On failure it writes
// the error response and returns false.
func bindJSON(c *gin.Context, dst any) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error:   "request_too_large",
			Message: "Request body is too large",
		})
		return false
	}
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "invalid_request",
		Message: err.Error(),
	})
	return false
}

// writeAliasError maps alias service errors to JSON responses.
func writeAliasError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyURL):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_url",
			Message: "Please enter a URL",
		})
	case errors.Is(err, service.ErrURLTooLong):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_url",
			Message: "URL is too long",
		})
	case errors.Is(err, service.ErrInvalidAlias):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_alias",
			Message: "Alias may only contain letters, numbers, hyphens and underscores, up to 64 characters",
		})
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
	case errors.Is(err, repository.ErrAliasExists):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "alias_taken",
			Message: "This alias is already taken. Please choose another one.",
		})
	case errors.Is(err, service.ErrCodeAllocationExhausted):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "allocation_failed",
			Message: "Could not generate a free short code, try again",
		})
	case errors.Is(err, repository.ErrAliasNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Link not found",
		})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Something went wrong",
		})
	}
}
