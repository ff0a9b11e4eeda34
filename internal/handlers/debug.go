package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dm-service/internal/middleware"
	"dm-service/internal/push"
)

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router *gin.Engine, notifier *push.Notifier, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/push-test", func(c *gin.Context) {
		if notifier == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "notifier not configured"})
			return
		}
		notifier.ConnectionEvent(c.Request.Context(), "debug_ping", 0, middleware.RequestIDFromContext(c), "debug route")
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
