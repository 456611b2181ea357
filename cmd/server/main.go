package main

import (
	"budget_tracker/internal/accounting" // Accounting engine
	"budget_tracker/internal/api"        // Custom package for API handlers
	"budget_tracker/internal/backend"    // Store selection
	"budget_tracker/internal/config"     // Custom package for configuration
	"budget_tracker/internal/utils"      // Cache helpers
	"context"                            // Contexts for startup and shutdown
	"errors"                             // Error inspection
	"net/http"                           // HTTP server
	"os"                                 // Signals and exit codes
	"os/signal"                          // Signal handling
	"syscall"                            // SIGTERM
	"time"                               // Timeouts

	"github.com/gin-contrib/cors"  // CORS middleware
	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"golang.org/x/sync/errgroup"   // Server lifecycle
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}

	// Setup logger
	logger := newLogger(cfg)
	logrus.SetFormatter(logger.Formatter) // Keep package-level calls consistent
	logrus.SetLevel(logger.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open the configured store
	st, err := backend.Open(ctx, cfg)
	if err != nil {
		logger.Fatalf("failed to open store: %v", err) // Fatal error if DB connection fails
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.WithField("error", err.Error()).Error("Failed to close store")
		}
	}()

	cache := utils.NewCache(newRedis(ctx, cfg, logger), utils.DefaultCacheTTL) // Optional list cache
	engine := accounting.NewEngine(st, logger)

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logger.Fatalf("failed to set trusted proxies: %v", err)
	}

	// CORS middleware for the dashboard
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-Cache"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api.RegisterRoutes(r, api.Deps{Engine: engine, Cache: cache, JWTSecret: cfg.JWTSecret})
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set, routes are served without authentication")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithFields(logrus.Fields{"port": cfg.AppPort, "backend": cfg.StoreBackend}).Info("Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done() // Signal received or server failed
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.WithField("error", err.Error()).Error("Server stopped with error")
		return
	}
	logger.Info("Server stopped gracefully")
}

// newLogger builds the application logger: text in development, JSON in production
func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	if cfg.IsProd {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	return logger
}

// newRedis connects to Redis when configured; on failure the server runs without a cache
func newRedis(ctx context.Context, cfg *config.Config, logger *logrus.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		logger.Info("REDIS_ADDR not set, list cache disabled")
		return nil
	}
	// Setup Redis client
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	// Test Redis connection
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.WithField("error", err.Error()).Warn("Failed to connect to Redis, continuing without cache")
		_ = rdb.Close()
		return nil
	}
	return rdb
}
