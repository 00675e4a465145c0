package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"marketplace-indexer/internal/ethrpc"
	"marketplace-indexer/internal/indexer"
	"marketplace-indexer/pkg/api"
	"marketplace-indexer/pkg/cache"
	"marketplace-indexer/pkg/config"
	"marketplace-indexer/pkg/database"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup logging
	setupLogging(cfg)

	logrus.Info("Starting Marketplace Indexer...")

	chains, err := config.LoadChains(cfg.Indexer.ChainsFile)
	if err != nil {
		logrus.Fatalf("Failed to load chain configuration: %v", err)
	}

	// Initialize database
	if err := database.Initialize(cfg); err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// Run database migrations
	if err := database.AutoMigrate(); err != nil {
		logrus.Fatalf("Failed to run database migrations: %v", err)
	}

	// Initialize Redis cache. The indexer works without it, redis only
	// memoizes block timestamps and publishes progress.
	if err := cache.Initialize(cfg); err != nil {
		logrus.Warnf("Redis unavailable, continuing without cache: %v", err)
	} else {
		defer cache.Close()
	}

	// Start one ingestion engine per configured chain
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, chain := range chains {
		client, err := ethrpc.Dial(chain.RPC, chain.Name, chain.ChainID, cfg.Indexer.DialRetries, cfg.Indexer.DialRetryWait)
		if err != nil {
			logrus.Fatalf("Failed to connect to %s: %v", chain.Name, err)
		}
		defer client.Close()

		engine, err := indexer.New(chain, database.GetDB(), client, cfg.Indexer.TrackActivity)
		if err != nil {
			logrus.Fatalf("Failed to build %s pipeline: %v", chain.Name, err)
		}

		go func(name string) {
			if err := engine.Run(ctx); err != nil && err != context.Canceled {
				logrus.Errorf("Chain %s stopped: %v", name, err)
			}
		}(chain.Name)
	}

	// Setup HTTP server
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Initialize API routes
	api.SetupRoutes(router, chains)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		logrus.Infof("Status server starting on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down Marketplace Indexer...")
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Marketplace Indexer stopped successfully")
}

func setupLogging(cfg *config.Config) {
	// Set log format
	logrus.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})

	// Set log level
	if cfg.IsDevelopment() {
		logrus.SetLevel(logrus.DebugLevel)
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}

	logrus.Info("Logging initialized")
}
