package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/sharath018/event-escrow-backend/config"
	"github.com/sharath018/event-escrow-backend/database"
	"github.com/sharath018/event-escrow-backend/internal/auditlog"
	"github.com/sharath018/event-escrow-backend/internal/auth"
	"github.com/sharath018/event-escrow-backend/internal/ledger"
	"github.com/sharath018/event-escrow-backend/internal/notification"
	"github.com/sharath018/event-escrow-backend/internal/reports"
	"github.com/sharath018/event-escrow-backend/internal/treasury"
	"github.com/sharath018/event-escrow-backend/routes"
	"github.com/sharath018/event-escrow-backend/utils"
)

func main() {
	cfg := config.Load()
	db := database.Connect(cfg)

	// Init Redis
	if err := utils.InitRedis(cfg); err != nil {
		log.Printf("⚠️ Redis init failed, participant caching disabled: %v", err)
	}

	// Init Kafka
	utils.InitializeKafka(cfg)

	// Auto-migrate models
	log.Println("🔄 Running database migrations...")
	if err := db.AutoMigrate(
		&auth.UserRole{},
		&auth.User{},
		&ledger.LedgerState{},
		&ledger.Event{},
		&ledger.Registration{},
		&auditlog.AuditLog{},
		&notification.InAppNotification{},
	); err != nil {
		panic(fmt.Sprintf("❌ DB AutoMigrate failed: %v", err))
	}
	log.Println("✅ Database migrations completed")

	// Seed roles & platform owner — the owner identity is fixed here and
	// the ledger treats it as contract owner for its whole lifetime.
	if err := auth.SeedUserRoles(db); err != nil {
		panic(fmt.Sprintf("❌ Failed to seed roles: %v", err))
	}
	ownerID, err := auth.EnsureOwner(db, cfg)
	if err != nil {
		panic(fmt.Sprintf("❌ Failed to seed platform owner: %v", err))
	}

	// Init repositories & services
	authRepo := auth.NewRepository(db)
	authSvc := auth.NewService(authRepo, cfg)

	auditRepo := auditlog.NewRepository(db)
	auditSvc := auditlog.NewService(auditRepo)

	notificationRepo := notification.NewRepository(db)
	notificationSvc := notification.NewService(notificationRepo, authRepo)
	notification.StartKafkaConsumer(notificationSvc, utils.NewKafkaReader(cfg))

	gateway := treasury.NewRazorpayGateway(cfg)
	emitter := notification.NewKafkaEmitter(utils.KafkaWriter())

	ledgerRepo := ledger.NewRepository(db)
	ledgerSvc := ledger.NewService(ledgerRepo, gateway, emitter, auditSvc, ownerID, cfg.OwnerPayoutAccount)

	reportsSvc := reports.NewService(ledgerSvc, authRepo)

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	routes.Setup(router, cfg, authSvc, routes.Handlers{
		Auth:         auth.NewHandler(authSvc),
		Ledger:       ledger.NewHandler(ledgerSvc, gateway, cfg.RazorpayKey),
		Notification: notification.NewHandler(notificationSvc),
		AuditLog:     auditlog.NewHandler(auditSvc),
		Reports:      reports.NewHandler(reportsSvc, ledgerSvc),
	})

	port := cfg.Port
	if port == "" {
		port = "8080"
	}
	log.Printf("🚀 Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
