package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const serviceName = "shortlinks"

// Index godoc
// @Summary Service index
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]string
// @Router / [get]
func Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": serviceName,
		"health":  "/api/v1/health",
		"login":   "/api/v1/auth/login",
	})
}

// HealthCheck godoc
// @Summary Liveness check
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/v1/health [get]
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": serviceName})
}
