package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func statusCode(s Status) int {
	if s == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// RegisterHTTPRoutes 挂载 /health 系列路由；Degraded 返回 200
func RegisterHTTPRoutes(r gin.IRouter, aggregator *Aggregator) {
	g := r.Group("/health")

	g.GET("", func(c *gin.Context) {
		report := aggregator.Report(c.Request.Context())
		c.JSON(statusCode(report.Status), report)
	})

	g.GET("/ready", func(c *gin.Context) {
		if !aggregator.Ready(c.Request.Context()) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": StatusUnhealthy, "ready": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "ready": true})
	})

	g.GET("/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"alive": aggregator.Alive()})
	})

	// GET /health/checks/cameras 等单项检查
	g.GET("/checks/:name", func(c *gin.Context) {
		r, ok := aggregator.Check(c.Request.Context(), c.Param("name"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown check"})
			return
		}
		c.JSON(statusCode(r.Status), r)
	})
}
