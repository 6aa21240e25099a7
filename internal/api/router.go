package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/charge-sim-backend/internal/config"
	"github.com/jengzang/charge-sim-backend/internal/handler"
	"github.com/jengzang/charge-sim-backend/internal/middleware"
	"github.com/jengzang/charge-sim-backend/internal/observability"
	"github.com/jengzang/charge-sim-backend/internal/service"
	"go.uber.org/zap"
)

// SetupRouter builds the HTTP engine
func SetupRouter(cfg *config.Config, svc *service.SimulationService, log *zap.Logger, metrics *observability.Collector) *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(log, metrics),
		middleware.CORS(),
	)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Charge simulation API is running",
		})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)))
	{
		handler.NewSimulationHandler(svc).Register(api)
	}

	return r
}
