package router

import (
	"github.com/cuongbtq/convert-be/internal/api/handler"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	convertHandler := handler.NewConvertHandler(deps)

	// Conversion surface (stable contract)
	r.GET("/health", convertHandler.Health)
	r.GET("/capabilities", convertHandler.Capabilities)
	r.GET("/formats", convertHandler.Formats)
	r.GET("/formats/:inputFormat", convertHandler.FormatsForInput)
	r.POST("/convert", convertHandler.Convert)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		conversions := v1.Group("/conversions")
		{
			// GET /api/v1/conversions - List conversion history
			conversions.GET("", convertHandler.ListConversions)

			// GET /api/v1/conversions/:job_id - Get one conversion record
			conversions.GET("/:job_id", convertHandler.GetConversion)
		}
	}

	return r
}
