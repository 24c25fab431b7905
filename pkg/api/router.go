package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	syncapi "audience-sync/pkg/api/sync"
	"audience-sync/pkg/database"
	"audience-sync/pkg/metrics"
)

// InitRouter builds the HTTP surface around the sync engine endpoints.
func InitRouter(handler *syncapi.Handler) *gin.Engine {
	r := gin.Default()

	r.Use(LoggingMiddleware())
	r.Use(CORSMiddleware())

	r.GET("/health", func(c *gin.Context) {
		status := "ok"
		code := http.StatusOK
		if err := database.IsHealthy(); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":    status,
			"service":   "audience-sync",
			"timestamp": time.Now().Unix(),
		})
	})

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := r.Group("/api/v1")

	accounts := v1.Group("/accounts")
	{
		accounts.POST("/sync", handler.SyncAccount)
		accounts.POST("/sync/force", handler.ForceSyncAccount)
		accounts.POST("/sync/batch", handler.BatchSync)
	}

	influencers := v1.Group("/influencers")
	{
		influencers.POST("/:id/followers/collect", handler.CollectFollowers)
		influencers.GET("/:id/audience", handler.Audience)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":  "route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	return r
}

// LoggingMiddleware provides request logging.
func LoggingMiddleware() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("[%s] %s %s %d %s \"%s\" \"%s\" %s\n",
			param.TimeStamp.Format("2006-01-02 15:04:05"),
			param.Method,
			param.Path,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
			param.ClientIP,
		)
	})
}

// CORSMiddleware handles CORS.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
