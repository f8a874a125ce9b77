package v1

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jaennil/slippymap/internal/infrastructure/http/v1/handler"
	"github.com/jaennil/slippymap/pkg/logger"
	"github.com/jaennil/slippymap/pkg/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(handler *handler.Handler, l logger.Logger, telemetryEnabled bool, serviceName string) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())

	if telemetryEnabled {
		r.Use(telemetry.GinMiddleware(serviceName))
	}

	r.Use(ginZapLogger(l))

	api := r.Group("/api")
	v1 := api.Group("/v1")

	v1.GET("/healthz", handler.Healthz)
	v1.GET("/frame", handler.Frame)
	v1.GET("/cache/stats", handler.CacheStats)
	v1.GET("/view", handler.View)
	v1.POST("/view", handler.SetView)
	v1.POST("/fly", handler.Fly)
	v1.PUT("/markers/:id", handler.PutMarker)
	v1.DELETE("/markers/:id", handler.DeleteMarker)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func ginZapLogger(l logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("logger", l)

		if c.Request.URL.Path == "/api/v1/healthz" {
			c.Next()
			return
		}

		start := time.Now()

		c.Next()

		l.Info("request",
			"status", c.Writer.Status(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"ip", c.ClientIP(),
			"latency", time.Since(start),
			"size", c.Writer.Size(),
		)
	}
}
