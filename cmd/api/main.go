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

	"paisa/internal/config"
	"paisa/internal/database"
	"paisa/internal/handlers"
	"paisa/internal/ingest"
	"paisa/internal/logger"
	"paisa/internal/middleware"
	"paisa/internal/remote"
	"paisa/internal/store"
	"paisa/internal/syncer"
	"paisa/internal/validator"
)

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Open and migrate the local store
	dbManager, err := database.NewManager(appConfig.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open local store: %w", err)
	}
	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run local store migrations: %w", err)
	}

	// Initialize the store, aggregates, and the ingest write path
	localStore := store.NewStore(dbManager.DB())
	aggregator := store.NewAggregator(localStore)
	recorder := ingest.NewService(localStore, appConfig)

	// Background sync worker against the remote peer
	peer := remote.NewHTTPPeer(appConfig.RemoteURL, appConfig.RemoteAPIKey,
		&http.Client{Timeout: appConfig.RequestTimeout})
	worker := syncer.NewWorker(localStore, peer, log,
		appConfig.SyncInterval, appConfig.UploadBatchSize,
		syncer.Backoff{Base: appConfig.BackoffBase, Cap: appConfig.BackoffCap})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go worker.Run(ctx)
	go purgeLoop(ctx, localStore, appConfig.TombstoneRetention)

	// New local mutations wake the worker so they upload without waiting for
	// the next tick.
	localStore.OnMutate(worker.Notify)

	// Register custom request validators
	validator.Register()

	// Initialize handlers
	transactionHandler := handlers.NewTransactionHandler(recorder, localStore, ingest.RulesFromConfig(appConfig))
	summaryHandler := handlers.NewSummaryHandler(aggregator)
	syncHandler := handlers.NewSyncHandler(localStore, worker)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Transaction routes
	transactions := v1.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.ListTransactions)
	transactions.GET("/:id", transactionHandler.GetTransaction)
	transactions.PATCH("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	// Aggregate routes
	v1.GET("/summary", summaryHandler.GetSummary)
	v1.GET("/balance", summaryHandler.GetBalance)
	v1.GET("/summary/categories", summaryHandler.GetCategoryTotals)

	// Sync routes
	sync := v1.Group("/sync")
	sync.GET("/status", syncHandler.GetStatus)
	sync.POST("/trigger", syncHandler.TriggerSync)

	log.Infof("Starting paisa server on port %s", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}

// purgeLoop removes long-tombstoned, fully synced rows once a day.
func purgeLoop(ctx context.Context, s *store.Store, retention time.Duration) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		purged, err := s.PurgeTombstones(time.Now().Add(-retention))
		if err != nil {
			logger.Get().Warnw("tombstone purge failed", "error", err)
		} else if purged > 0 {
			logger.Get().Infow("purged tombstones", "count", purged)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
