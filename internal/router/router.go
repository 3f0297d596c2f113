package router

import (
	"github.com/gin-gonic/gin"

	"fapiao/internal/handler"
	"fapiao/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	parseH *handler.ParseHandler,
	exportH *handler.ExportHandler,
	healthH *handler.HealthHandler,
	allowedOrigins []string,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(allowedOrigins))

	// Health check
	r.GET("/healthz", healthH.Liveness)

	api := r.Group("/api")
	api.POST("/parse-fapiao", parseH.Parse)
	api.POST("/export/csv", exportH.CSV)
	api.POST("/export/json", exportH.JSON)

	return r
}
