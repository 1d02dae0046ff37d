package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/penang-weather/forecast-aggregation/internal/api/http"
	"github.com/penang-weather/forecast-aggregation/internal/config"
	"github.com/penang-weather/forecast-aggregation/internal/forecast"
	"github.com/penang-weather/forecast-aggregation/internal/forecast/sources"
	"github.com/penang-weather/forecast-aggregation/internal/geo"
	"github.com/penang-weather/forecast-aggregation/internal/scheduler"
	"github.com/penang-weather/forecast-aggregation/internal/store"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound source calls. The timeout here is
	// what turns a hung upstream into a source-unavailable failure.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	clk := clock.NewClock()

	// SQLite persistence, one table per source.
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer db.Close()

	// Source adapters.
	srcs := []forecast.Source{
		sources.NewMETMalaysiaSource(httpClient, cfg.METForecastURL, clk),
		sources.NewOpenWeatherSource(httpClient, cfg.OpenWeatherBaseURL, cfg.OpenWeatherAPIKey, cfg.Latitude, cfg.Longitude),
		sources.NewWindySource(httpClient, cfg.WindyPointURL, cfg.WindyAPIKey, cfg.Latitude, cfg.Longitude),
	}

	// Core service orchestrating sources and store.
	service := forecast.NewService(db, srcs, geo.Penang, clk)

	// Scheduler with one daily run per source.
	sched := scheduler.New(cfg.ScheduleAt, cfg.IngestTimeout)
	for _, src := range srcs {
		tag := src.Tag()
		sched.Register(tag, func(ctx context.Context) error {
			return service.Ingest(ctx, tag)
		})
	}
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "forecast-aggregation",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "forecast-aggregation",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service)

	// Start server with graceful shutdown
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
