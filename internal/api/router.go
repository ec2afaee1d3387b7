// Package api exposes the read-only operator HTTP surface: health and the
// committed reservation listing from the durable store.
package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/facility-booking-bot/internal/auth"
	"github.com/nekogravitycat/facility-booking-bot/internal/reservation"
)

// Config holds the dependencies and settings for the router.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	Reservations reservation.Service
	JWTManager   *auth.JWTManager
}

// NewRouter initializes the HTTP router engine with middleware and routes.
func NewRouter(cfg Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if cfg.IsProduction && cfg.ProdOrigins != "" {
		corsConfig.AllowOrigins = []string{cfg.ProdOrigins}
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:8081"}
	}
	corsConfig.AllowMethods = []string{"GET", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	handler := NewHandler(cfg.Reservations)
	authMiddleware := auth.AuthRequired(cfg.JWTManager)

	v1 := r.Group("/v1")
	v1.Use(authMiddleware)
	{
		v1.GET("/reservations", handler.List)
	}

	return r
}
