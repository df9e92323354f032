package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/visits-backend-go/internal/config"
	"github.com/jengzang/visits-backend-go/internal/handler"
	"github.com/jengzang/visits-backend-go/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by SetupRouter
type Handlers struct {
	Ping     *handler.PingHandler
	Visit    *handler.VisitHandler
	Place    *handler.PlaceHandler
	Settings *handler.SettingsHandler
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Logger(), gin.Recovery())

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+middleware.RequestIDHeader)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Visits Backend API is running",
		})
	})

	api := r.Group("/api/v1")
	api.Use(middleware.Auth(cfg.Auth.JWTSecret, cfg.Auth.Issuer))
	{
		limiter := middleware.NewRateLimiter(cfg.RateLimit.PingsPerSecond, cfg.RateLimit.Burst)
		api.POST("/pings", middleware.RateLimit(limiter), h.Ping.RecordPing)

		visits := api.Group("/visits")
		{
			visits.GET("", h.Visit.GetVisits)
			visits.GET("/geojson", h.Visit.GetVisitsGeoJSON)
			visits.GET("/stream", h.Visit.StreamVisits)
			visits.GET("/:id", h.Visit.GetVisitByID)
		}

		places := api.Group("/places")
		{
			places.GET("", h.Place.GetPlaces)
			places.POST("", h.Place.CreatePlace)
			places.GET("/geojson", h.Place.GetPlacesGeoJSON)
			places.GET("/:id", h.Place.GetPlaceByID)
		}

		trips := api.Group("/trips")
		{
			trips.POST("", h.Place.CreateTrip)
			trips.POST("/:id/regions", h.Place.CreateRegion)
		}

		settings := api.Group("/settings")
		{
			settings.GET("", h.Settings.GetSettings)
			settings.PUT("", h.Settings.UpdateSettings)
		}
	}

	return r
}
