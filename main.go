package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/stitchlink/stitchlink-backend/database"
	"github.com/stitchlink/stitchlink-backend/internal/config"
	"github.com/stitchlink/stitchlink-backend/internal/handlers"
	"github.com/stitchlink/stitchlink-backend/internal/jobs"
	"github.com/stitchlink/stitchlink-backend/internal/models"
	"github.com/stitchlink/stitchlink-backend/internal/routes"
	"github.com/stitchlink/stitchlink-backend/internal/services"
	"github.com/stitchlink/stitchlink-backend/internal/storage"
)

func main() {
	// .env is for local development; Cloud Run injects real env vars.
	if os.Getenv("INSTANCE_CONNECTION_NAME") == "" {
		_ = godotenv.Load(".env")
	}

	cfg := config.Load()

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDevelopment() {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	// Storage.
	var store storage.Store
	if cfg.DBDriver == "memory" {
		log.Warn().Msg("using in-memory storage (not for production)")
		store = storage.NewMemoryStore()
	} else {
		db, err := database.Connect(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("database connection failed")
		}
		if err := db.AutoMigrate(
			&models.Factory{},
			&models.Order{},
			&models.Proposal{},
		); err != nil {
			log.Fatal().Err(err).Msg("database migration failed")
		}
		store = storage.NewDatabaseStore(db)
		log.Info().Str("driver", cfg.DBDriver).Msg("database storage ready")
	}

	// Notification gateway.
	var notifier services.Notifier
	if cfg.TwilioConfigured() {
		tw, err := services.NewTwilioNotifier(cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("twilio init failed")
		}
		notifier = tw
		log.Info().Msg("twilio notifier ready")
	} else {
		log.Warn().Msg("Twilio credentials not set, outbound messages go to the log")
		notifier = services.NewLogNotifier(log)
	}

	// Core services, wired explicitly.
	sessions := services.NewSessionManager(log)
	dispatcher := services.NewDispatcher(store, notifier, log)
	flows := services.NewFlowEngine(store, sessions, dispatcher, log)
	groupChat := services.NewGroupChatService(log)
	bot := services.NewBot(store, sessions, flows, notifier, groupChat, log)
	payments := services.NewPaymentService(bot, log)

	digest := jobs.NewDigestJob(store, notifier, cfg.DigestHour, log)
	digest.Start()

	app := fiber.New(fiber.Config{
		AppName: "StitchLink Backend v1.0.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	routes.SetupRoutes(app, cfg,
		handlers.NewWhatsAppHandler(bot, log),
		handlers.NewPaymentHandler(payments, log),
	)

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-quit
		log.Info().Msg("shutting down")
		digest.Stop()
		_ = app.Shutdown()
	}()

	log.Info().
		Str("port", cfg.Port).
		Str("environment", cfg.Environment).
		Str("storage", cfg.DBDriver).
		Msg("StitchLink backend starting")

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
