package handler

import (
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/doaamohamed88/shortLinks/internal/middleware"
	"github.com/doaamohamed88/shortLinks/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RouterConfig struct {
	BaseURL       string
	CORSOrigins   []string
	SecureCookies bool

	// TrustedProxies may set the client IP via X-Forwarded-For. Nil trusts
	// nobody, so ClientIP is always the socket peer.
	TrustedProxies []string
}

func NewRouter(
	aliasService service.AliasService,
	resolver Resolver,
	authService AuthService,
	loginLimiter *middleware.RateLimiter,
	cfg RouterConfig,
	logger *zap.Logger,
) (*gin.Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))

	if len(cfg.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.SetHTMLTemplate(template.Must(template.New(unavailableTemplate).Parse(unavailablePage)))

	aliasHandler := NewAliasHandler(aliasService, cfg.BaseURL, logger)
	authHandler := NewAuthHandler(authService, cfg.SecureCookies, logger)
	redirectHandler := NewRedirectHandler(resolver, logger)
	requireAdmin := middleware.RequireAdmin(authService, cfg.SecureCookies, logger)

	router.GET("/", Index)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", HealthCheck)

		authGroup := v1.Group("/auth")
		if loginLimiter != nil {
			authGroup.POST("/login", loginLimiter.Middleware(), authHandler.Login)
		} else {
			authGroup.POST("/login", authHandler.Login)
		}
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.GET("/me", requireAdmin, authHandler.Me)

		admin := v1.Group("", requireAdmin)
		admin.POST("/links", aliasHandler.CreateAlias)
		admin.GET("/links", aliasHandler.ListAliases)
		admin.GET("/links/stream", aliasHandler.StreamAliases)
		admin.GET("/links/:code", aliasHandler.GetAlias)
		admin.DELETE("/links/:code", aliasHandler.DeleteAlias)
		admin.GET("/stats", aliasHandler.GetStats)
		admin.GET("/stats/stream", aliasHandler.StreamStats)
	}

	// Public redirect, no authentication
	router.GET("/:code", redirectHandler.Redirect)

	router.NoRoute(func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/")
	})

	return router, nil
}
