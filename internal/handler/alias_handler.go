package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/doaamohamed88/shortLinks/internal/models"
	"github.com/doaamohamed88/shortLinks/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AliasHandler struct {
	service service.AliasService
	baseURL string
	logger  *zap.Logger
}

func NewAliasHandler(service service.AliasService, baseURL string, logger *zap.Logger) *AliasHandler {
	return &AliasHandler{
		service: service,
		baseURL: baseURL,
		logger:  logger,
	}
}

type CreateAliasRequest struct {
	URL   string `json:"url"`
	Alias string `json:"alias,omitempty"`
}

type AliasResponse struct {
	ShortCode    string           `json:"short_code"`
	ShortURL     string           `json:"short_url"`
	OriginalURL  string           `json:"original_url"`
	Clicks       int64            `json:"clicks"`
	CountryStats map[string]int64 `json:"country_stats"`
	CreatedAt    time.Time        `json:"created_at"`
}

func (h *AliasHandler) toResponse(alias *models.Alias) AliasResponse {
	stats := alias.CountryStats
	if stats == nil {
		stats = map[string]int64{}
	}
	return AliasResponse{
		ShortCode:    alias.ShortCode,
		ShortURL:     h.baseURL + "/" + alias.ShortCode,
		OriginalURL:  alias.OriginalURL,
		Clicks:       alias.Clicks,
		CountryStats: stats,
		CreatedAt:    alias.CreatedAt,
	}
}

func (h *AliasHandler) toResponses(aliases []models.Alias) []AliasResponse {
	out := make([]AliasResponse, 0, len(aliases))
	for i := range aliases {
		out = append(out, h.toResponse(&aliases[i]))
	}
	return out
}

// CreateAlias godoc
// @Summary Create a short link
// @Tags links
// @Accept json
// @Produce json
// @Param request body CreateAliasRequest true "Destination and optional alias"
// @Success 201 {object} AliasResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 413 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/links [post]
func (h *AliasHandler) CreateAlias(c *gin.Context) {
	var req CreateAliasRequest
	if !bindJSON(c, &req) {
		h.logger.Warn("Invalid request body")
		return
	}

	alias, err := h.service.CreateAlias(c.Request.Context(), &models.CreateAliasInput{
		OriginalURL: req.URL,
		CustomAlias: req.Alias,
	})
	if err != nil {
		h.logger.Warn("Failed to create alias", zap.Error(err))
		writeAliasError(c, err)
		return
	}

	c.JSON(http.StatusCreated, h.toResponse(alias))
}

// ListAliases godoc
// @Summary List all short links, newest first
// @Tags links
// @Produce json
// @Success 200 {array} AliasResponse
// @Router /api/v1/links [get]
func (h *AliasHandler) ListAliases(c *gin.Context) {
	aliases, err := h.service.ListAliases(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list aliases", zap.Error(err))
		writeAliasError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.toResponses(aliases))
}

// GetAlias godoc
// @Summary Get one short link with its counters
// @Tags links
// @Produce json
// @Param code path string true "Short code"
// @Success 200 {object} AliasResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/links/{code} [get]
func (h *AliasHandler) GetAlias(c *gin.Context) {
	alias, err := h.service.GetAlias(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeAliasError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.toResponse(alias))
}

// DeleteAlias godoc
// @Summary Delete a short link
// @Tags links
// @Produce json
// @Param code path string true "Short code"
// @Success 200 {object} map[string]string
// @Router /api/v1/links/{code} [delete]
func (h *AliasHandler) DeleteAlias(c *gin.Context) {
	code := c.Param("code")

	if err := h.service.DeleteAlias(c.Request.Context(), code); err != nil {
		h.logger.Warn("Failed to delete alias", zap.String("code", code), zap.Error(err))
		writeAliasError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Link deleted successfully"})
}

// GetStats godoc
// @Summary Totals and top countries across all links
// @Tags stats
// @Produce json
// @Success 200 {object} models.Summary
// @Router /api/v1/stats [get]
func (h *AliasHandler) GetStats(c *gin.Context) {
	aliases, err := h.service.ListAliases(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list aliases", zap.Error(err))
		writeAliasError(c, err)
		return
	}

	c.JSON(http.StatusOK, service.Aggregate(aliases))
}

// StreamAliases godoc
// @Summary Live listing as server-sent "snapshot" events
// @Tags links
// @Produce text/event-stream
// @Router /api/v1/links/stream [get]
func (h *AliasHandler) StreamAliases(c *gin.Context) {
	h.stream(c, func(aliases []models.Alias) {
		c.SSEvent("snapshot", h.toResponses(aliases))
	})
}

// StreamStats godoc
// @Summary Live summary as server-sent "summary" events
// @Tags stats
// @Produce text/event-stream
// @Router /api/v1/stats/stream [get]
func (h *AliasHandler) StreamStats(c *gin.Context) {
	h.stream(c, func(aliases []models.Alias) {
		c.SSEvent("summary", service.Aggregate(aliases))
	})
}

func (h *AliasHandler) stream(c *gin.Context, emit func([]models.Alias)) {
	sub, err := h.service.Watch(c.Request.Context())
	if err != nil {
		h.logger.Warn("Failed to open live listing", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "stream_unavailable",
			Message: "Live updates are unavailable",
		})
		return
	}
	defer sub.Close()

	// Streams outlive the server write timeout.
	if err := http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("Cannot lift write deadline for stream", zap.Error(err))
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(io.Writer) bool {
		aliases, ok := <-sub.Updates()
		if !ok {
			return false
		}
		emit(aliases)
		return true
	})
}
