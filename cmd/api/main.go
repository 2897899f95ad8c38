package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/evacnet/evac_core/internal/api"
	"github.com/evacnet/evac_core/internal/cache"
	"github.com/evacnet/evac_core/internal/config"
	"github.com/evacnet/evac_core/internal/db"
	"github.com/evacnet/evac_core/internal/feed"
	"github.com/evacnet/evac_core/internal/middleware"
	"github.com/evacnet/evac_core/internal/snapshot"
	"github.com/evacnet/evac_core/internal/store"
)

func main() {
	log.Println("Starting EvacNet API server...")

	serverCfg := config.LoadServerConfigFromEnv()

	riskCfg, err := config.LoadRiskConfig(serverCfg.RiskConfigPath)
	if err != nil {
		log.Fatalf("Failed to load risk configuration: %v", err)
	}
	log.Println("✓ Risk configuration loaded")

	// Initialize database connection
	if _, err := db.GetDB(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("✓ Database connection established")

	// Initialize Redis connection
	rdb, err := cache.GetClient()
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer cache.Close()
	log.Println("✓ Redis connection established")

	// Build the first snapshot before serving traffic
	pool, _ := db.GetDB()
	feedStore := store.New(pool)
	snapshots := snapshot.NewStore(riskCfg, serverCfg.StalenessThreshold)
	refresher := feed.New(feedStore, snapshots, serverCfg.RefreshInterval)

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 2*time.Minute)
	if err := refresher.RefreshOnce(loadCtx); err != nil {
		cancelLoad()
		log.Fatalf("Failed to build initial snapshot: %v", err)
	}
	cancelLoad()
	log.Println("✓ Initial snapshot published")

	// Keep the snapshot fresh in the background
	refreshCtx, stopRefresh := context.WithCancel(context.Background())
	defer stopRefresh()
	go refresher.Run(refreshCtx)

	handlers := api.New(snapshots, riskCfg, serverCfg)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "EvacNet API",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	app.Use(middleware.RateLimit(rdb, middleware.DefaultRateLimits()))

	// Routes
	app.Get("/health", handlers.Health)
	app.Get("/v1/routes/safe-route", handlers.SafeRoute)
	app.Get("/v1/routes/alternatives", handlers.AlternativeRoutes)
	app.Get("/v1/routes/distance", handlers.Distance)
	app.Get("/v1/facilities/nearest", handlers.NearestFacilities)
	app.Get("/v1/facilities/capacity", handlers.FacilityCapacity)
	app.Get("/v1/hazards/impact", handlers.HazardImpact)
	app.Get("/v1/hazards/check", handlers.HazardCheck)
	app.Get("/v1/layers/hazards", handlers.HazardLayer)
	app.Get("/v1/layers/facilities", handlers.FacilityLayer)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).JSON(fiber.Map{
			"error": "endpoint not found",
		})
	})

	addr := fmt.Sprintf(":%s", serverCfg.Port)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down gracefully...")
		stopRefresh()
		if err := app.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	// Start server
	log.Printf("🚀 Server listening on http://localhost%s", addr)
	log.Printf("📍 Safe route: http://localhost%s/v1/routes/safe-route?from=LAT,LON&to=LAT,LON", addr)
	log.Printf("❤️  Health check: http://localhost%s/health", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// customErrorHandler handles errors returned from handlers
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	log.Printf("Error: %v", err)

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
