package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"pcbuild-backend/internal/admin"
	"pcbuild-backend/internal/auth"
	"pcbuild-backend/internal/compat"
	"pcbuild-backend/internal/config"
	"pcbuild-backend/internal/engine"
	"pcbuild-backend/internal/instrument"
	"pcbuild-backend/internal/logging"
	"pcbuild-backend/internal/metadata"
	"pcbuild-backend/internal/store"
)

func main() {
	ctx := context.Background()

	// 1. Load config
	cfg, err := config.Load(os.Getenv("PCBUILD_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Must(cfg.Log)
	defer logger.Sync()
	logger.Info("Config loaded",
		zap.Int("port", cfg.Server.Port),
		zap.String("driver", cfg.Database.Driver),
		zap.String("database", cfg.Database.Name),
	)

	// 2. Connect to database
	db, err := store.New(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// 3. Bootstrap system tables, categories and the admin account
	if err := db.Bootstrap(ctx, cfg.Admin, logger); err != nil {
		logger.Fatal("Failed to bootstrap system tables", zap.Error(err))
	}

	// 4. Seed rules into an empty rule table
	if cfg.Compat.SeedFile != "" {
		if err := seedRules(ctx, db, cfg.Compat.SeedFile, logger); err != nil {
			logger.Fatal("Failed to seed compatibility rules", zap.Error(err))
		}
	}

	// 5. Load rules into the registry
	reg := metadata.NewRegistry()
	if err := metadata.LoadAll(ctx, db, reg, logger); err != nil {
		logger.Warn("Failed to load compatibility rules", zap.Error(err))
	}

	policy, err := compat.NewPublishPolicy(cfg.Compat.PublishPolicy)
	if err != nil {
		logger.Fatal("Invalid publish policy", zap.String("policy", cfg.Compat.PublishPolicy), zap.Error(err))
	}

	// 6. Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler:          engine.ErrorHandler(logger),
		DisableStartupMessage: true,
		Immutable:             true,
	})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(cors.New(cors.Config{AllowOrigins: joinOrigins(cfg.Server.Origins())}))
	app.Use(instrument.RequestID())
	app.Use(instrument.RequestLogger(logger))
	app.Use(instrument.Metrics())

	// 7. Health check and metrics
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", instrument.MetricsHandler())

	// 8. Auth routes (no auth required)
	auth.RegisterAuthRoutes(app, auth.NewAuthHandler(db, cfg.JWTSecret, logger))

	// 9. Public catalog and compatibility check
	engineHandler, err := engine.NewHandler(db, reg, engine.Options{
		Policy:             policy,
		ResolveConcurrency: cfg.Compat.ResolveConcurrency,
		Logger:             logger,
	})
	if err != nil {
		logger.Fatal("Failed to create compatibility handler", zap.Error(err))
	}
	engine.RegisterRoutes(app, engineHandler)

	// 10. Rule and part management (auth + admin required)
	adminHandler := admin.NewHandler(db, reg, logger)
	admin.RegisterAdminRoutes(app, adminHandler, auth.NewGuard(cfg.JWTSecret, logger).Admin()...)

	cleaner := auth.NewTokenCleaner(db, time.Hour, logger)
	cleaner.Start()
	defer cleaner.Stop()

	// 11. Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		logger.Info("Starting server", zap.String("addr", addr))
		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("Shutdown did not complete cleanly", zap.Error(err))
	}
	logger.Info("Server stopped")
}

func seedRules(ctx context.Context, db *store.Store, path string, logger *zap.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	rules, err := compat.ParseRuleSet(data)
	if err != nil {
		return fmt.Errorf("parse seed file %s: %w", path, err)
	}
	n, err := db.SeedRules(ctx, rules)
	if err != nil {
		return err
	}
	if n > 0 {
		logger.Info("Seeded compatibility rules", zap.String("file", path), zap.Int("count", n))
	}
	return nil
}

func joinOrigins(origins []string) string {
	if len(origins) == 0 {
		return "*"
	}
	return strings.Join(origins, ",")
}
