package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/ledgersync/server/internal/config"
	"github.com/ledgersync/server/internal/handlers"
	custommw "github.com/ledgersync/server/internal/middleware"
	"github.com/ledgersync/server/internal/observability"
	"github.com/ledgersync/server/internal/repository"
	"github.com/ledgersync/server/internal/services"
)

const serviceVersion = "1.0.0"

// @title LedgerSync Server API
// @version 1.0
// @description Change-log based multi-device ledger synchronization server
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
func main() {
	// .env is optional; real deployments use environment variables
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	telemetry, err := observability.Initialize(ctx, observability.NewConfig("ledgersync-server", serviceVersion))
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}

	// Initialize database
	var db *sql.DB
	if cfg.UsePostgres() {
		log.Println("Using PostgreSQL database")
		db, err = repository.NewPostgresDB(cfg.DatabaseURL)
	} else {
		log.Println("Using SQLite database")
		db, err = repository.NewSQLiteDB(cfg.DatabasePath)
	}
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Repositories
	changeLogRepo := repository.NewChangeLogRepository(db)
	deviceRepo := repository.NewDeviceRepository(db)
	businessRepo := repository.NewBusinessRepository(db)
	tokenRepo := repository.NewPairingTokenRepository(db)
	itemRepo := repository.NewItemRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	cashRepo := repository.NewCashTransactionRepository(db)

	// Entity appliers; each domain type registers itself here
	registry := services.NewApplierRegistry()
	registry.Register(services.NewItemApplier(itemRepo))
	registry.Register(services.NewCustomerApplier(customerRepo))
	registry.Register(services.NewInvoiceApplier(invoiceRepo))
	registry.Register(services.NewCashTransactionApplier(cashRepo))

	// Services
	detector := services.NewConflictDetector(changeLogRepo)
	syncService := services.NewSyncService(changeLogRepo, deviceRepo, registry, detector)
	deviceService := services.NewDeviceService(
		deviceRepo,
		businessRepo,
		tokenRepo,
		cfg.Sync.MaxDevicesPerBusiness,
		cfg.Security.PairingTokenTTLMinutes,
	)
	retentionService := services.NewRetentionService(changeLogRepo, cfg.Retention.Days, cfg.Retention.IntervalHours)
	if cfg.Retention.Enabled {
		retentionService.Start()
		defer retentionService.Stop()
	}

	hub := services.NewSyncHub()
	go hub.Run()

	httpMetrics, err := observability.NewHTTPMetrics()
	if err != nil {
		log.Fatalf("Failed to create HTTP metrics: %v", err)
	}
	syncMetrics, err := observability.NewSyncMetrics()
	if err != nil {
		log.Fatalf("Failed to create sync metrics: %v", err)
	}

	// Handlers
	syncHandler := handlers.NewSyncHandler(syncService, hub, syncMetrics)
	deviceHandler := handlers.NewDeviceHandler(deviceService, hub, syncMetrics)
	wsHandler := handlers.NewWebSocketHandler(hub, deviceRepo)
	healthHandler := handlers.NewHealthHandler()

	// Setup router
	r := chi.NewRouter()

	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(observability.TracingMiddleware("ledgersync-server"))
	r.Use(observability.MetricsMiddleware(httpMetrics))
	r.Use(custommw.BusinessAPIKeyAuth(businessRepo, cfg.Security.APIKeyHeader, []string{
		"/api/health",
		"/api/devices/pair",
		"/swagger/*",
	}))

	// Routes
	r.Get("/health", healthHandler.HealthCheck)
	r.Get("/api/health", healthHandler.HealthCheck)

	r.Route("/api/sync", func(r chi.Router) {
		r.Post("/pull", syncHandler.Pull)
		r.Post("/push", syncHandler.Push)
		r.Get("/status", syncHandler.Status)
		r.Get("/ws", wsHandler.HandleConnection)
	})

	r.Route("/api/devices", func(r chi.Router) {
		r.Post("/pairing-token", deviceHandler.IssuePairingToken)
		r.Post("/pair", deviceHandler.PairDevice)
		r.Get("/", deviceHandler.ListDevices)
		r.Delete("/{id}", deviceHandler.RevokeDevice)
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("LedgerSync Server starting on %s", cfg.ServerAddress)
		log.Printf("Registered entity types: %v", registry.EntityTypes())

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		log.Printf("Telemetry shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
