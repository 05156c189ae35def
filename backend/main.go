package main

import (
	"log"

	"quizhub/backend/cache"
	"quizhub/backend/config"
	"quizhub/backend/events"
	"quizhub/backend/middleware"
	"quizhub/backend/routes"
	"quizhub/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Initialize database
	db, err := utils.InitDB(cfg)
	if err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}

	// Initialize logger
	logger := utils.InitLogger()

	// Optional leaderboard cache
	redisCache, err := cache.New(cfg)
	if err != nil {
		log.Fatalf("Error connecting to Redis: %v", err)
	}
	if redisCache == nil {
		logger.Println("Redis not configured, leaderboard caching disabled")
	}
	defer redisCache.Close()

	// Optional event publisher
	var publisher *events.EventPublisher
	if cfg.RabbitURL != "" && cfg.RabbitExchange != "" {
		publisher, err = events.NewEventPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			log.Fatalf("Error connecting to RabbitMQ: %v", err)
		}
		defer publisher.Close()
	} else {
		logger.Println("RabbitMQ not configured, events will not be published")
	}

	// Create Fiber app
	app := fiber.New()

	// Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.LoggingMiddleware(logger))

	// Setup routes
	routes.SetupRoutes(app, db, cfg, redisCache, publisher, logger)

	// Start server
	log.Fatal(app.Listen(":" + cfg.ServerPort))
}
