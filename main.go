package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Tarif-dev/Forge/handlers"
	"github.com/Tarif-dev/Forge/models"
	"github.com/Tarif-dev/Forge/protocols"
	"github.com/Tarif-dev/Forge/services"
	"github.com/Tarif-dev/Forge/utils"
	"github.com/Tarif-dev/Forge/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 2 * 1024 * 1024, // JSON API only
	})

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOriginsString,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders: "Origin, Content-Type, Accept, X-Request-ID, X-Wallet-Address",
		MaxAge:       86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Bounty{},
		&models.Submission{},
		&models.PaymentRecord{},
		&models.ReputationEvent{},
		&models.ActivityLogEntry{},
		&models.AgentPayment{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracker := services.NewBudgetTracker(db)
	evaluator, err := services.NewOpenAIEvaluator(tracker)
	if err != nil {
		log.Fatal("failed to initialize evaluator:", err)
	}

	rails := protocols.DefaultRegistry()
	settlementService := services.NewSettlementService(db, evaluator, rails)
	bountyService := services.NewBountyService(db)
	submissionService := services.NewSubmissionService(db)
	ledgerService := services.NewLedgerService(db, tracker)

	// audit archive is optional; the trail stays in Postgres regardless
	if err := utils.InitR2(); err != nil {
		log.Printf("⚠️  %v — audit archival disabled", err)
	}
	auditExporter := workers.NewAuditExporter(db)
	go workers.PollAuditLog(ctx, auditExporter, 5*time.Minute)

	settlementService.StartRetryScheduler(5 * time.Minute)

	handlers.SetupSettlementRoutes(app, settlementService)
	handlers.SetupBountyRoutes(app, bountyService, submissionService)
	handlers.SetupLedgerRoutes(app, ledgerService)

	go func() {
		if err := app.Listen(":4000"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:4000")
	log.Println("✅ Settlement retry sweep running (every 5m)")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
