package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/sharath018/event-escrow-backend/config"
	"github.com/sharath018/event-escrow-backend/internal/auditlog"
	"github.com/sharath018/event-escrow-backend/internal/auth"
	"github.com/sharath018/event-escrow-backend/internal/ledger"
	"github.com/sharath018/event-escrow-backend/internal/notification"
	"github.com/sharath018/event-escrow-backend/internal/reports"
	"github.com/sharath018/event-escrow-backend/middleware"
)

// Handlers bundles everything Setup wires into the router.
type Handlers struct {
	Auth         *auth.Handler
	Ledger       *ledger.Handler
	Notification *notification.Handler
	AuditLog     *auditlog.Handler
	Reports      *reports.Handler
}

// Setup registers all routes. Any call outside this surface is rejected
// unconditionally by the NoRoute handler.
func Setup(r *gin.Engine, cfg *config.Config, authSvc auth.Service, h Handlers) {
	r.Use(middleware.AuditMiddleware())
	r.Use(middleware.RateLimiter())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://127.0.0.1:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")

	// Public auth surface
	api.POST("/auth/register", h.Auth.Register)
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/refresh", h.Auth.Refresh)

	// Unsolicited value transfer in — rejected before authentication is
	// even considered; there is no deposit path into custody.
	api.POST("/treasury/deposit", h.Ledger.RejectDeposit)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(cfg, authSvc))
	{
		protected.GET("/auth/me", h.Auth.Me)

		events := protected.Group("/events")
		{
			events.GET("", h.Ledger.ListEvents)
			events.GET("/:id", h.Ledger.GetEvent)
			events.GET("/:id/participants", h.Ledger.GetParticipants)

			events.POST("", middleware.RBACMiddleware(middleware.RoleOrganizer, middleware.RoleOwner), h.Ledger.CreateEvent)

			// Creator-only authorization is enforced in the service; any
			// authenticated caller may attempt and get Unauthorized back.
			events.POST("/:id/open", h.Ledger.OpenRegistration)
			events.POST("/:id/close", h.Ledger.CloseRegistration)

			events.POST("/:id/register/start", h.Ledger.StartRegistration)
			events.POST("/:id/register", h.Ledger.Register)

			events.GET("/:id/receipt", h.Reports.Receipt)
			events.GET("/:id/export", h.Reports.Export)
		}

		treasury := protected.Group("/treasury")
		treasury.Use(middleware.RBACMiddleware(middleware.RoleOwner))
		{
			treasury.GET("/balance", h.Ledger.Balance)
			treasury.POST("/withdraw", h.Ledger.WithdrawFunds)
		}

		auditlogs := protected.Group("/auditlogs")
		auditlogs.Use(middleware.RBACMiddleware(middleware.RoleOwner))
		{
			auditlogs.GET("", h.AuditLog.List)
			auditlogs.GET("/:id", h.AuditLog.Get)
		}

		notifications := protected.Group("/notifications")
		{
			notifications.GET("", h.Notification.List)
			notifications.PATCH("/:id/read", h.Notification.MarkRead)
		}
	}

	// Call to an undefined operation — unconditional rejection.
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "undefined operation"})
	})
}
