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
	"go.uber.org/zap"

	"github.com/missionctl/missionctl/internal/common/config"
	"github.com/missionctl/missionctl/internal/common/logger"
	"github.com/missionctl/missionctl/internal/events/bus"
	"github.com/missionctl/missionctl/internal/resource/api"
	"github.com/missionctl/missionctl/internal/resource/service"
	"github.com/missionctl/missionctl/internal/resource/store"
	"github.com/missionctl/missionctl/internal/resource/streaming"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logger
	log, err := logger.NewLogger(logger.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetDefault(log)

	log.Info("Starting Resource Manager service...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Connect the event bus
	var eventBus bus.EventBus
	var natsBus *bus.NATSEventBus
	if cfg.NATS.Enabled {
		natsBus, err = bus.NewNATSEventBus(cfg.NATS, log)
		if err != nil {
			log.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		eventBus = natsBus
		log.Info("Connected to NATS event bus", zap.String("url", cfg.NATS.URL))
	} else {
		eventBus = bus.NewInProcessBus()
		log.Info("Using in-process event bus")
	}
	defer eventBus.Close()

	// 4. Open the document store
	docStore, err := openStore(ctx, cfg, natsBus)
	if err != nil {
		log.Fatal("Failed to open document store", zap.Error(err))
	}
	defer docStore.Close()
	log.Info("Opened document store", zap.String("backend", cfg.Storage.Backend))

	// 5. Build services
	catalog := service.NewCatalog(docStore, eventBus, log)
	credentials := service.NewCredentials(docStore, eventBus, log)
	bookings := service.NewBookings(docStore, catalog, eventBus, log)
	costs := service.NewCosts(docStore, eventBus, log)
	quotas := service.NewQuotas(docStore, eventBus, log)
	metrics := service.NewMetrics(catalog, bookings, costs, quotas)

	// 6. Start the WebSocket hub
	hub := streaming.NewHub(eventBus, log)
	if err := hub.Start(); err != nil {
		log.Fatal("Failed to start streaming hub", zap.Error(err))
	}

	// 7. Setup HTTP server with Gin
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(api.Recovery(log))
	router.Use(api.RequestLogger(log))
	router.Use(api.CORS())

	handler := api.NewHandler(catalog, credentials, bookings, costs, quotas, metrics, log)
	v1 := router.Group("/api/v1")
	api.SetupRoutes(v1, handler)

	router.GET("/health", handler.HealthCheck)
	router.GET("/ws", func(c *gin.Context) {
		hub.ServeWS(c.Writer, c.Request)
	})

	// 8. Create HTTP server
	port := cfg.Server.Port
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	// 9. Start server in goroutine
	go func() {
		log.Info("HTTP server listening", zap.Int("port", port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// 10. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down Resource Manager service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	hub.Stop()

	log.Info("Resource Manager service stopped")
}

// openStore builds the configured document store backend. The NATS KV backend
// reuses the event bus connection.
func openStore(ctx context.Context, cfg *config.Config, natsBus *bus.NATSEventBus) (store.Store, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return store.NewMemoryStore(), nil
	case "file":
		return store.NewFileStore(cfg.Storage.File.Dir)
	case "nats":
		if natsBus == nil {
			return nil, fmt.Errorf("storage backend 'nats' requires nats.enabled=true")
		}
		return store.NewNATSKVStore(natsBus.Conn(), cfg.Storage.NATS.Bucket)
	case "postgres":
		return store.NewPostgresStore(ctx, cfg.Storage.Postgres.URL)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
