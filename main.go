package main

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/sirupsen/logrus"

	"campuscms/config"
	"campuscms/routes"
	"campuscms/utils"
	"campuscms/worker"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	if config.AppConfig.Environment == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	// Error reporting
	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.Warnf("Sentry init failed: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Shared redis client for caching; the rate limiter opens its own
	var cache *redis.Client
	if config.AppConfig.Redis.Enabled {
		cache = redis.NewClient(&redis.Options{
			Addr:     config.AppConfig.Redis.Address,
			Password: config.AppConfig.Redis.Password,
			DB:       config.AppConfig.Redis.DB,
		})
		defer cache.Close()
	}

	// Delivery pipeline
	transport := utils.NewSMTPMailer(config.AppConfig.SMTP)
	directory := utils.NewGormDirectory(config.DB)
	store := utils.NewGormCampaignStore(config.DB)
	mailer := utils.NewCampaignMailer(
		store,
		directory,
		transport,
		logger.WithField("component", "mailer"),
		config.AppConfig.SMTP.FromEmail,
		config.AppConfig.SMTP.FromName,
		config.AppConfig.SendWorkers,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Poll the newsletter mailbox for replies
	if config.AppConfig.IMAP.Enabled {
		inboxWorker := worker.NewInboxWorker(config.DB, config.AppConfig.IMAP, logger.WithField("component", "inbox"))
		go inboxWorker.Start(ctx)
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName: "campuscms",
	})
	app.Use(cors.New())

	// Setup routes
	routes.SetupRoutes(app, routes.Deps{
		DB:     config.DB,
		Log:    logger,
		Mailer: mailer,
		Cache:  cache,
	})

	// Start server
	logger.Infof("Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
