package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/doaamohamed88/shortLinks/internal/repository"
	"github.com/doaamohamed88/shortLinks/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const unavailableTemplate = "unavailable"

const unavailablePage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Link unavailable</title>
<style>
body{font-family:system-ui,sans-serif;display:flex;align-items:center;justify-content:center;min-height:100vh;margin:0;background:#f5f5f5;color:#333}
main{text-align:center;padding:2rem}
a{color:#2563eb}
</style>
</head>
<body>
<main>
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
<p><a href="/">Go home</a></p>
</main>
</body>
</html>`

// Resolver turns a visit into a destination URL.
type Resolver interface {
	Resolve(ctx context.Context, visit *service.Visit) (string, error)
}

type RedirectHandler struct {
	resolver Resolver
	logger   *zap.Logger
}

func NewRedirectHandler(resolver Resolver, logger *zap.Logger) *RedirectHandler {
	return &RedirectHandler{resolver: resolver, logger: logger}
}

// Redirect godoc
// @Summary Follow a short link
// @Tags redirect
// @Produce html
// @Param code path string true "Short code"
// @Success 302
// @Failure 404 {string} string "Link unavailable page"
// @Failure 500 {string} string "Link unavailable page"
// @Router /{code} [get]
func (h *RedirectHandler) Redirect(c *gin.Context) {
	visit := service.NewVisit(c.Param("code"), c.ClientIP(), c.GetHeader("X-Request-ID"))

	destination, err := h.resolver.Resolve(c.Request.Context(), visit)
	if err != nil {
		if errors.Is(err, repository.ErrAliasNotFound) {
			c.HTML(http.StatusNotFound, unavailableTemplate, gin.H{
				"Title":   "Link not found",
				"Message": "This short link does not exist or has been removed.",
			})
			return
		}

		h.logger.Error("Failed to resolve alias", zap.String("code", visit.Code), zap.Error(err))
		c.HTML(http.StatusInternalServerError, unavailableTemplate, gin.H{
			"Title":   "Link unavailable",
			"Message": "Something went wrong while opening this link. Please try again later.",
		})
		return
	}

	visit.BeginRedirect()
	c.Redirect(http.StatusFound, destination)
	visit.Complete()

	h.logger.Debug("Redirected",
		zap.String("code", visit.Code),
		zap.String("country", visit.Country()),
	)
}
