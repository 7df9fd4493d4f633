package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wisdom-empire/internal/config"
	"wisdom-empire/internal/middleware"
)

// Handlers bundles everything the router serves.
type Handlers struct {
	Auth      *AuthHandler
	Donation  *DonationHandler
	Webhook   *WebhookHandler
	Admin     *AdminHandler
	Content   *ContentHandler
	WebSocket *WebSocketHandler
}

func NewRouter(cfg config.Config, h Handlers, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.OriginURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/ws/feed", h.WebSocket.ServeFeed)

	api := r.Group("/api")
	{
		api.POST("/auth/login", h.Auth.Login)

		donate := api.Group("/donate")
		{
			donate.GET("/tiers", h.Donation.ListTiers)
			donate.POST("/initiate", h.Donation.InitiateDonation)
			donate.POST("/complete", h.Donation.CompleteDonation)
			donate.POST("/certificate", h.Donation.Certificate)
		}

		api.POST("/webhook/payment", h.Webhook.HandlePaymentNotification)

		api.GET("/content/:category", h.Content.List)
		api.GET("/content/:category/:id", h.Content.Get)

		admin := api.Group("/admin")
		admin.Use(middleware.AuthMiddleware(cfg.JWTSecret, logger))
		{
			admin.GET("/donations", h.Admin.ListDonations)
			admin.POST("/donations/:id/complete", h.Admin.CompleteDonation)
			admin.POST("/donations/:id/fail", h.Admin.FailDonation)
		}
	}
	return r
}
