package router

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cuongbtq/xe-rate-worker/internal/api/handler"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter configures and returns the Gin router of the rate API
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	rateHandler := handler.NewRateHandler(deps)

	r.GET("/health", rateHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// POST /api/v1/jobs - Enqueue a rate job
		v1.POST("/jobs", rateHandler.EnqueueJob)

		// GET /api/v1/rates - List stored rates with filtering and pagination
		v1.GET("/rates", rateHandler.ListRates)
	}

	return r
}

// OpsDependencies holds what the worker's ops endpoint reports on
type OpsDependencies struct {
	Logger   *slog.Logger
	Gatherer prometheus.Gatherer
	// HealthCheck verifies the store connection
	HealthCheck func(ctx context.Context) error
	// RunningWorkers reports live worker loops
	RunningWorkers func() int
}

// SetupOpsRouter configures the worker service's health and metrics endpoint
func SetupOpsRouter(deps *OpsDependencies) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))

	r.GET("/health", func(c *gin.Context) {
		running := deps.RunningWorkers()

		if err := deps.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":          "unhealthy",
				"service":         "xe-rate-worker",
				"running_workers": running,
				"error":           err.Error(),
			})
			return
		}

		if running == 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":          "unhealthy",
				"service":         "xe-rate-worker",
				"running_workers": running,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":          "healthy",
			"service":         "xe-rate-worker",
			"running_workers": running,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))

	return r
}
