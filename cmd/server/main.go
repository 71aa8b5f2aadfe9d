package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	checkoutapp "github.com/scancheckout/backend/internal/application/checkout"
	scanapp "github.com/scancheckout/backend/internal/application/scan"
	"github.com/scancheckout/backend/internal/domain/scan"
	"github.com/scancheckout/backend/internal/infrastructure/cache"
	"github.com/scancheckout/backend/internal/infrastructure/config"
	"github.com/scancheckout/backend/internal/infrastructure/logger"
	"github.com/scancheckout/backend/internal/infrastructure/migration"
	"github.com/scancheckout/backend/internal/infrastructure/odoo"
	"github.com/scancheckout/backend/internal/infrastructure/persistence"
	"github.com/scancheckout/backend/internal/infrastructure/storage"
	"github.com/scancheckout/backend/internal/infrastructure/telemetry"
	"github.com/scancheckout/backend/internal/infrastructure/vision"
	"github.com/scancheckout/backend/internal/interfaces/http/handler"
	"github.com/scancheckout/backend/internal/interfaces/http/middleware"
	"github.com/scancheckout/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting scan checkout backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("scan_store", cfg.Scan.Store),
		zap.String("image_backend", cfg.Scan.ImageBackend),
		zap.String("pos_adapter", cfg.POS.Adapter),
	)

	ctx := context.Background()

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	middleware.SetupValidator()

	// Scans
	scanRepo, closeRepo, err := newScanRepository(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize scan store", zap.Error(err))
	}
	defer func() {
		if err := closeRepo.Close(); err != nil {
			log.Error("Error closing scan store", zap.Error(err))
		}
	}()

	images, err := newImageStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize image storage", zap.Error(err))
	}

	scanService := scanapp.NewService(scanRepo, images, vision.NewHashRecognizer(vision.DefaultCatalog), log)

	// Checkout
	var checkoutService handler.CheckoutService
	if cfg.Odoo.Configured() {
		adapter, err := odoo.NewAdapter(odooConfig(cfg.Odoo), log)
		if err != nil {
			log.Fatal("Failed to initialize Odoo adapter", zap.Error(err))
		}
		defer adapter.Close()

		checkoutService = checkoutapp.NewService(adapter, checkoutapp.Defaults{
			PartnerID:      cfg.Odoo.DefaultPartnerID,
			PricelistID:    cfg.Odoo.DefaultPricelistID,
			POSSessionID:   cfg.Odoo.DefaultPOSSessionID,
			CreatePOSDraft: cfg.Odoo.CreatePOSDraft,
		}, log)
		log.Info("Odoo checkout enabled",
			zap.String("url", cfg.Odoo.URL),
			zap.String("database", cfg.Odoo.Database),
		)
	} else {
		log.Warn("Odoo is not configured, checkout requests will fail until ODOO_URL, ODOO_DB, ODOO_USER and ODOO_PASSWORD are set")
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine, err := router.NewEngine(router.EngineConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: tp.IsEnabled(),
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		MetricsPath:    "/metrics",
	}, log)
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	router.NewRouter(engine).
		Register(handler.NewHealthHandler()).
		Register(handler.NewScanHandler(scanService)).
		Register(handler.NewCheckoutHandler(checkoutService, cfg.POS.Adapter)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited")
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

var nopCloser = closerFunc(func() error { return nil })

// newScanRepository opens the store named by SCANCHECKOUT_SCAN_STORE.
func newScanRepository(cfg *config.Config, log *zap.Logger) (scan.Repository, io.Closer, error) {
	switch cfg.Scan.Store {
	case config.ScanStoreMemory:
		return cache.NewInMemoryScanRepository(), nopCloser, nil

	case config.ScanStoreRedis:
		factory := cache.NewScanRepositoryFactory(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		}, cache.WithLogger(log), cache.WithInMemoryFallback(cfg.App.Env != "production"))
		repo, err := factory.Create()
		if err != nil {
			return nil, nil, err
		}
		if c, ok := repo.(io.Closer); ok {
			return repo, c, nil
		}
		return repo, nopCloser, nil

	case config.ScanStorePostgres, config.ScanStoreSQLite:
		db, err := persistence.NewDatabase(&cfg.Database, log)
		if err != nil {
			return nil, nil, err
		}
		if err := migrateSchema(db, log); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		log.Info("Database connected", zap.String("driver", db.Driver))
		return persistence.NewGormScanRepository(db.DB), db, nil
	}
	return nil, nil, fmt.Errorf("unknown scan store %q", cfg.Scan.Store)
}

// migrateSchema applies the embedded migrations on PostgreSQL and lets GORM
// create the table on SQLite.
func migrateSchema(db *persistence.Database, log *zap.Logger) error {
	if db.Driver == config.DatabaseDriverSQLite {
		return db.AutoMigrate()
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, log)
	if err != nil {
		return err
	}
	return m.Up()
}

func newImageStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (scan.ImageStorage, error) {
	switch cfg.Scan.ImageBackend {
	case config.ImageBackendS3:
		s, err := storage.NewS3ImageStorage(ctx, &cfg.Storage, storage.WithLogger(log))
		if err != nil {
			return nil, err
		}
		ensureCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := s.EnsureBucket(ensureCtx); err != nil {
			return nil, err
		}
		log.Info("Storing scan images in S3", zap.String("bucket", s.Bucket()))
		return s, nil
	default:
		s, err := storage.NewLocalImageStorage(cfg.Scan.ImageDir)
		if err != nil {
			return nil, err
		}
		log.Info("Storing scan images on disk", zap.String("dir", s.Dir()))
		return s, nil
	}
}

func odooConfig(c config.OdooConfig) *odoo.Config {
	return &odoo.Config{
		BaseURL:             c.URL,
		Database:            c.Database,
		Username:            c.Username,
		Password:            c.Password,
		Timeout:             c.Timeout,
		DefaultPartnerID:    c.DefaultPartnerID,
		DefaultPricelistID:  c.DefaultPricelistID,
		DefaultPOSSessionID: c.DefaultPOSSessionID,
		CreatePOSDraft:      c.CreatePOSDraft,
		SKUField:            c.SKUField,
	}
}
