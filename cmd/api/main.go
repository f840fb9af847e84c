package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/couponhq/coupon-management/internal/config"
	"github.com/couponhq/coupon-management/internal/handler"
	"github.com/couponhq/coupon-management/internal/middleware"
	"github.com/couponhq/coupon-management/internal/repository"
	"github.com/couponhq/coupon-management/internal/service"
	"github.com/couponhq/coupon-management/internal/validator"
	"github.com/couponhq/coupon-management/pkg/database"
)

func main() {
	// Load configuration first
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize zerolog based on configuration
	initLogger(cfg)

	// Create context for startup
	ctx := context.Background()

	// Initialize database pool with retry
	pool, err := database.NewPool(ctx, cfg.DB.DSN(), 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Apply schema migrations
	if err := database.Migrate(cfg.DB.MigrateURL()); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	// Initialize Fiber with production-ready configuration
	app := fiber.New(fiber.Config{
		AppName:      "Coupon Management API",
		ReadTimeout:  30 * time.Second,  // Max time to read request
		WriteTimeout: 30 * time.Second,  // Max time to write response
		IdleTimeout:  120 * time.Second, // Max time for keep-alive connections
		BodyLimit:    1 * 1024 * 1024,   // 1MB body limit (explicit, prevents large payloads)
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New()) // Adds X-Request-ID header to all requests
	app.Use(logger.New())

	// Initialize validator
	validate := validator.New()

	// Initialize components (layered architecture)
	userRepo := repository.NewUserRepository(pool)
	couponRepo := repository.NewCouponRepository(pool)
	assignmentRepo := repository.NewAssignmentRepository(pool)

	authService := service.NewAuthService(userRepo, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())
	userService := service.NewUserService(userRepo)
	couponService := service.NewCouponService(pool, couponRepo)
	assignmentService := service.NewAssignmentService(assignmentRepo, couponRepo, userRepo)

	authHandler := handler.NewAuthHandler(authService, validate)
	userHandler := handler.NewUserHandler(userService, validate)
	couponHandler := handler.NewCouponHandler(couponService, validate)
	assignmentHandler := handler.NewAssignmentHandler(assignmentService, validate)
	healthHandler := handler.NewHealthHandler(pool)

	// Bootstrap admin account (skipped unless a password is configured)
	if cfg.Auth.BootstrapPasswd != "" {
		if err := userService.EnsureAdmin(ctx, cfg.Auth.BootstrapAdmin, cfg.Auth.BootstrapEmail, cfg.Auth.BootstrapPasswd); err != nil {
			log.Fatal().Err(err).Msg("failed to bootstrap admin user")
		}
		log.Info().Str("username", cfg.Auth.BootstrapAdmin).Msg("admin account ensured")
	}

	// Public routes
	app.Get("/health", healthHandler.Check)
	app.Post("/auth/token", authHandler.Login)

	// Authenticated routes; role checks live in the services
	api := app.Group("/api", middleware.Authenticate(authService))

	// Static coupon routes must be registered before the :id parameter routes
	api.Post("/coupons", couponHandler.Create)
	api.Post("/coupons/bulk", couponHandler.BulkCreate)
	api.Post("/coupons/assign", assignmentHandler.Assign)
	api.Post("/coupons/use/:id", assignmentHandler.Redeem)
	api.Get("/coupons", couponHandler.List)
	api.Get("/coupons/my-coupons", assignmentHandler.MyCoupons)
	api.Get("/coupons/my-unused-coupons", assignmentHandler.MyUnusedCoupons)
	api.Get("/coupons/my-created", couponHandler.MyCreated)
	api.Get("/coupons/unassigned", couponHandler.Unassigned)
	api.Get("/coupons/code/:code", couponHandler.GetByCode)
	api.Get("/coupons/:id", couponHandler.Get)
	api.Put("/coupons/:id", couponHandler.Update)
	api.Delete("/coupons/:id", couponHandler.Delete)

	api.Get("/users/me", userHandler.Me)
	api.Post("/users", userHandler.Create)
	api.Get("/users", userHandler.List)
	api.Get("/users/:id/coupons", assignmentHandler.UserCoupons)
	api.Get("/users/:id", userHandler.Get)
	api.Put("/users/:id", userHandler.Update)
	api.Delete("/users/:id", userHandler.Delete)

	// Start server with graceful shutdown
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	log.Info().Int("timeout_seconds", cfg.Server.ShutdownTimeout).Msg("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	// Shutdown server (waits for in-flight requests)
	log.Info().Msg("waiting for in-flight requests to complete...")
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	// Close database pool AFTER server shutdown (even if shutdown timed out)
	log.Info().Msg("closing database connections...")
	pool.Close()
	log.Info().Msg("database connections closed")
	log.Info().Msg("server stopped")
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Log.Pretty {
		// Human-readable output for development
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		// JSON output for production
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
