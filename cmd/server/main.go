package main

import (
	"context"   // context package is needed for Redis operations
	"errors"    // errors.Is for server shutdown
	"net/http"  // HTTP server
	"os"        // Signal channel
	"os/signal" // Graceful shutdown
	"syscall"   // SIGTERM
	"time"      // Shutdown timeout

	"crowdfund_system/internal/api"        // Custom package for API handlers
	"crowdfund_system/internal/config"     // Custom package for configuration
	"crowdfund_system/internal/db"         // Database connection and transactions
	"crowdfund_system/internal/middleware" // Custom package for middleware
	"crowdfund_system/internal/notify"     // Account emails
	"crowdfund_system/internal/service"    // Core services

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}
	if cfg.JWTSecret == "" {
		logrus.Fatal("JWT_SECRET must be set")
	}

	// Connect to the database
	gdb, err := db.Open(cfg.DSN())
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		logrus.Fatalf("failed to get DB pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	// Setup Redis client, optional
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})
		// Test Redis connection
		if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
			logrus.Fatalf("failed to connect to Redis: %v", err)
		}
	}

	// Setup notifications, RabbitMQ when configured
	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.AMQPURL != "" {
		amqpNotifier, err := notify.NewAMQPNotifier(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logrus.Fatalf("failed to connect to RabbitMQ: %v", err)
		}
		defer amqpNotifier.Close()
		notifier = amqpNotifier
	}

	// Wire services
	runner := db.NewTxRunner(gdb, cfg.TxTimeout, cfg.TxMaxRetries)
	deps := api.Deps{
		Tokens: service.NewTokenService(runner, service.TokenConfig{
			Secret:     cfg.JWTSecret,       // Signing key
			AccessTTL:  cfg.AccessTokenTTL,  // Access token lifetime
			RefreshTTL: cfg.RefreshTokenTTL, // Refresh token lifetime
		}),
		Accounts: service.NewAccountService(runner, notifier, redisClient, service.AccountConfig{
			BcryptCost:    cfg.BcryptCost,    // bcrypt cost
			ResetTokenTTL: cfg.ResetTokenTTL, // Reset token lifetime
			CacheTTL:      cfg.CacheTTL,      // Account cache lifetime
		}),
		Ledger: service.NewLedgerService(runner, redisClient, service.LedgerConfig{
			FeePercent:    cfg.PlatformFeePercent, // Platform fee
			PointsPerUnit: cfg.PointsPerUnit,      // Point earning rate
		}),
		Catalog:     service.NewCatalogService(runner),
		Redis:       redisClient,
		Cookie:      api.CookieConfig{TTL: cfg.RefreshTokenTTL, Secure: cfg.CookieSecure},
		Origin:      cfg.AppOrigin,
		RateLimiter: middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		Ping:        sqlDB.Ping,
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}
	r := api.NewRouter(deps) // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logrus.Info("Server running on " + cfg.AppPort) // Log server start
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server failed: %v", err)
		}
	}()

	// Wait for interrupt and drain in-flight requests
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("shutdown: %v", err)
	}
	logrus.Info("Server stopped")
}
