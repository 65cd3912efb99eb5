package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	httpapi "github.com/toolsascode/ccm/internal/api/http"
	"github.com/toolsascode/ccm/internal/config"
	"github.com/toolsascode/ccm/internal/engine"
	"github.com/toolsascode/ccm/internal/eventsfactory"
	"github.com/toolsascode/ccm/internal/logger"
	"github.com/toolsascode/ccm/internal/progress"
	"github.com/toolsascode/ccm/internal/store"
	"github.com/toolsascode/ccm/internal/store/memory"
	"github.com/toolsascode/ccm/internal/store/postgres"
)

func main() {
	// Load configuration
	cfg, err := config.LoadFromEnv()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Info("Initializing CCM server...")

	// Initialize association store
	var associationStore store.Store
	switch cfg.Store.Type {
	case "memory":
		associationStore = memory.NewStore()
		logger.Warn("Using in-memory store - data will not survive a restart")
	default:
		pgStore, err := postgres.NewStore(context.Background(), cfg.DSN())
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		if err := pgStore.Initialize(context.Background()); err != nil {
			logger.Fatalf("Failed to initialize schema: %v", err)
		}
		associationStore = pgStore
	}
	defer associationStore.Close()

	// Initialize progress registry with retention eviction
	registry := progress.NewRegistry(cfg.Engine.Retention)
	defer registry.Close()

	// Initialize lifecycle event publisher if enabled
	publisher, err := eventsfactory.NewPublisher(cfg)
	if err != nil {
		logger.Fatalf("Failed to create event publisher: %v", err)
	}
	if publisher != nil {
		defer publisher.Close()
		logger.Infof("Event publishing enabled (%s)", cfg.Events.Type)
	}

	service := engine.NewService(associationStore, registry, publisher, cfg)

	// Initialize HTTP server
	router := gin.New()

	// Custom logger middleware that skips health check endpoints
	router.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		if param.Path == "/health" || param.Path == "/api/v1/health" {
			return ""
		}
		return fmt.Sprintf("[GIN] %s | %3d | %13v | %15s | %-7s %s\n",
			param.TimeStamp.Format("2006/01/02 - 15:04:05"),
			param.StatusCode,
			param.Latency,
			param.ClientIP,
			param.Method,
			param.Path,
		)
	}))
	router.Use(gin.Recovery())

	// Add CORS middleware - must be before routes
	router.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	httpHandler := httpapi.NewHandler(service)
	httpHandler.RegisterRoutes(router)

	// Add /health endpoint to prevent 404s (uses same handler as /api/v1/health)
	router.GET("/health", httpHandler.Health)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Server.HTTPPort,
		Handler: router,
	}

	go func() {
		logger.Infof("Starting HTTP server on port %s", cfg.Server.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	logger.Info("CCM server started successfully")
	logger.Infof("HTTP API available at http://localhost:%s", cfg.Server.HTTPPort)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Warnf("HTTP server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}
