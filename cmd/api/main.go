package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imran-vz/cocoacomaastore/internal/auth"
	"github.com/imran-vz/cocoacomaastore/internal/cache"
	"github.com/imran-vz/cocoacomaastore/internal/catalog"
	"github.com/imran-vz/cocoacomaastore/internal/config"
	"github.com/imran-vz/cocoacomaastore/internal/events"
	"github.com/imran-vz/cocoacomaastore/internal/handlers"
	"github.com/imran-vz/cocoacomaastore/internal/inventory"
	"github.com/imran-vz/cocoacomaastore/internal/orders"
	"github.com/imran-vz/cocoacomaastore/internal/resolver"
	"github.com/imran-vz/cocoacomaastore/internal/store"
	"github.com/imran-vz/cocoacomaastore/internal/store/memory"
	"github.com/imran-vz/cocoacomaastore/internal/store/postgres"
	"github.com/imran-vz/cocoacomaastore/pkg/logger"
	"github.com/imran-vz/cocoacomaastore/pkg/middleware"
)

func main() {
	cfg := config.Load()

	appLogger := logger.New(cfg.Environment)
	defer appLogger.Sync()

	appLogger.Info("Starting POS API",
		zap.String("environment", cfg.Environment),
		zap.String("port", cfg.Port),
		zap.String("store_backend", cfg.StoreBackend),
	)

	// Store backend
	var (
		posStore    store.Store
		catalogRepo store.Catalog
		closeStore  func() error
	)
	switch cfg.StoreBackend {
	case "memory":
		memStore := memory.New()
		posStore, catalogRepo = memStore, memStore
		closeStore = func() error { return nil }
		appLogger.Warn("Using in-memory store; data will not survive restarts")
	default:
		pgStore, err := postgres.New(context.Background(), cfg.DatabaseURL, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to connect to database", zap.Error(err))
		}
		posStore, catalogRepo = pgStore, pgStore
		closeStore = pgStore.Close
	}

	// Event publisher: Kafka when reachable, otherwise the sale still
	// goes through without events.
	publisher, err := events.NewKafkaPublisher(cfg, appLogger)
	if err != nil {
		appLogger.Warn("Kafka unavailable, events disabled", zap.Error(err))
		publisher = events.NewNopPublisher(appLogger)
	}

	catalogCache := cache.New(cfg, appLogger)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, appLogger)

	catalogService := catalog.New(catalogRepo, catalogCache, appLogger)
	orderResolver := resolver.New(posStore, time.Now)
	orderService := orders.New(posStore, publisher, appLogger, time.Now)
	inventoryService := inventory.New(posStore, catalogRepo, publisher, appLogger, time.Now)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.CORSMiddleware())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware(appLogger))
	router.Use(logger.GinMiddleware(appLogger))

	authHandler := handlers.NewAuthHandler(jwtManager, appLogger)
	ordersHandler := handlers.NewOrdersHandler(orderService, appLogger)
	inventoryHandler := handlers.NewInventoryHandler(inventoryService, appLogger)
	catalogHandler := handlers.NewCatalogHandler(catalogService, orderResolver, appLogger)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	v1.POST("/auth/login", authHandler.Login)

	authed := v1.Group("")
	authed.Use(middleware.AuthMiddleware(jwtManager, appLogger))
	{
		authed.GET("/desserts", catalogHandler.ListDesserts)
		authed.POST("/desserts", catalogHandler.CreateDessert)
		authed.PUT("/desserts/:id", catalogHandler.UpdateDessert)
		authed.DELETE("/desserts/:id", catalogHandler.DeleteDessert)

		authed.GET("/combos", catalogHandler.ListCombos)
		authed.POST("/combos", catalogHandler.CreateCombo)
		authed.PUT("/combos/:id", catalogHandler.UpdateCombo)
		authed.DELETE("/combos/:id", catalogHandler.DeleteCombo)

		authed.POST("/cart/resolve", catalogHandler.ResolveSelection)

		authed.POST("/orders", ordersHandler.CommitOrder)
		authed.POST("/orders/:id/cancel", ordersHandler.CancelOrder)
		authed.GET("/orders/:id", ordersHandler.GetOrder)

		authed.GET("/inventory", inventoryHandler.GetStock)
		authed.PUT("/inventory", inventoryHandler.BulkSetStock)
		authed.PUT("/inventory/:dessertId", inventoryHandler.SetStock)
		authed.GET("/inventory/audit", inventoryHandler.GetAuditTrail)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		appLogger.Info("POS API listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
	if kafkaPublisher, ok := publisher.(*events.KafkaPublisher); ok {
		if err := kafkaPublisher.Close(); err != nil {
			appLogger.Error("Kafka shutdown error", zap.Error(err))
		}
	}
	if err := closeStore(); err != nil {
		appLogger.Error("Store shutdown error", zap.Error(err))
	}
	appLogger.Info("Shutdown complete")
}
