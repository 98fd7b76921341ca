package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"ridedispatch/internal/handler"
	"ridedispatch/internal/logging"
	"ridedispatch/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RideRequestHandler *handler.RideRequestHandler
	FareHandler        *handler.FareHandler
	RedisClient        *redis.Client
	NewRelicApp        *newrelic.Application
	Logger             *logging.Logger
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
		router.Use(middleware.NewRelicAttributes())
	}

	if deps.Logger != nil {
		router.Use(middleware.RequestLogger(deps.Logger))
	}
	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Ride request dispatch routes.
		rides := v1.Group("/ride-requests")
		{
			rides.POST("", deps.RideRequestHandler.Create)
			rides.GET("/pickups", deps.RideRequestHandler.FindPendingPickups)
			rides.GET("/:id", deps.RideRequestHandler.Get)
			rides.GET("/:id/audit", deps.RideRequestHandler.AuditTrail)
			rides.POST("/:id/dispatch", deps.RideRequestHandler.Dispatch)
			rides.POST("/:id/decline", deps.RideRequestHandler.Decline)
			rides.POST("/:id/location", deps.RideRequestHandler.UpdateLocation)
			rides.GET("/:id/drivers/:driverId/dispatched", deps.RideRequestHandler.HasBeenDispatched)
		}

		// Fare routes.
		fares := v1.Group("/fares")
		{
			fares.POST("/estimate", deps.FareHandler.Estimate)
		}
	}

	return router
}
