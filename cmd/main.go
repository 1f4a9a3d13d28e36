package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"pwgateway/internal/bootstrap"
	"pwgateway/internal/config"
	cronpkg "pwgateway/internal/cron"
	"pwgateway/internal/delivery"
	"pwgateway/internal/events"
	"pwgateway/internal/handler"
	"pwgateway/internal/middleware"
	"pwgateway/internal/pingback"
	"pwgateway/internal/repository"
	"pwgateway/internal/router"
	"pwgateway/internal/widget"
)

func main() {
	// --- Logger ---
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if hasArg("--bootstrap-db") {
		if err := runDBBootstrap(logger); err != nil {
			logger.Fatal("Database bootstrap failed", zap.Error(err))
		}
		logger.Info("Database bootstrap completed")
		return
	}

	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// --- Database ---
	db, err := config.NewDatabase(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := bootstrap.Migrate(db); err != nil {
		logger.Fatal("Failed to migrate database schema", zap.Error(err))
	}

	store := repository.NewStore(db)
	actions := repository.NewScheduledActionRepository(db)

	// --- Pingback pipeline ---
	validator, err := pingback.NewValidator(pingback.ValidatorConfig{
		SecretKey:  cfg.Paymentwall.SecretKey,
		StrictIP:   cfg.Paymentwall.StrictIP,
		AllowedIPs: cfg.Paymentwall.AllowedIPs,
	})
	if err != nil {
		logger.Fatal("Invalid pingback validator settings", zap.Error(err))
	}
	resolver := pingback.NewResolver(store, cfg.Store.SubscriptionsEnabled)
	engine := pingback.NewEngine(store, actions, pingback.EngineOptions{
		SubscriptionsEnabled: cfg.Store.SubscriptionsEnabled,
	}, logger)
	service := pingback.NewService(validator, resolver, engine, logger)

	// --- Replay cache (Redis with in-memory fallback) ---
	deduper, dedupeErr := middleware.NewPingbackDeduper(
		cfg.Redis.Addr,
		cfg.Redis.Pass,
		cfg.Redis.DB,
		cfg.Redis.DedupTTL,
	)
	if dedupeErr != nil {
		logger.Warn("Redis unavailable for pingback dedup, using in-memory fallback", zap.Error(dedupeErr))
	}
	service.WithDeduper(deduper)

	// --- Order events ---
	var kafkaPublisher *events.KafkaPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := events.NewKafkaProducer(cfg.Kafka.Brokers)
		if err != nil {
			logger.Fatal("Failed to connect to Kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.Error(err))
		}
		kafkaPublisher = events.NewKafkaPublisher(producer, cfg.Kafka.Topic, logger)
		service.WithPublisher(kafkaPublisher)
	}

	// --- Delivery confirmation ---
	if cfg.Paymentwall.DeliveryConfirmation {
		service.WithDelivery(delivery.NewClient(delivery.Config{
			URL:       cfg.Paymentwall.DeliveryURL,
			SecretKey: cfg.Paymentwall.SecretKey,
			TestMode:  cfg.Paymentwall.TestMode,
		}, logger))
	}

	// --- Echo ---
	e := echo.New()
	e.HideBanner = true
	ipExtractor, err := router.IPExtractor(cfg.Server.TrustedProxies)
	if err != nil {
		logger.Fatal("Invalid TRUSTED_PROXIES", zap.Error(err))
	}
	e.IPExtractor = ipExtractor

	widgets := widget.NewBuilder(widget.Config{
		ProjectKey:  cfg.Paymentwall.ProjectKey,
		SecretKey:   cfg.Paymentwall.SecretKey,
		Widget:      cfg.Paymentwall.Widget,
		TestMode:    cfg.Paymentwall.TestMode,
		SignVersion: cfg.Paymentwall.SignVersion,
	})
	pwHandler := handler.NewPaymentwallHandler(service, store, widgets, handler.PaymentwallOptions{
		StoreBaseURL:         cfg.Store.BaseURL,
		SubscriptionsEnabled: cfg.Store.SubscriptionsEnabled,
	}, logger)

	// --- Routes ---
	router.Setup(e, pwHandler, logger)

	// --- Cron Scheduler ---
	scheduler := cronpkg.New(cfg, &cronpkg.CronRepos{
		Store:   store,
		Actions: actions,
	}, logger)
	if err := scheduler.Start(); err != nil {
		logger.Fatal("Failed to start cron scheduler", zap.Error(err))
	}

	// --- Start Server ---
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		logger.Info("Starting Paymentwall gateway", zap.String("addr", addr), zap.String("env", cfg.Server.Env))
		if err := e.Start(addr); err != nil {
			logger.Info("Server stopped", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	// Stop cron
	ctx := scheduler.Stop()
	<-ctx.Done()

	// Stop HTTP server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error("Failed to close Kafka producer", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}

func hasArg(name string) bool {
	for _, arg := range os.Args[1:] {
		if arg == name {
			return true
		}
	}
	return false
}

func runDBBootstrap(logger *zap.Logger) error {
	dbCfg, err := config.LoadDatabaseOnly()
	if err != nil {
		return err
	}
	db, err := config.NewDatabase(dbCfg)
	if err != nil {
		return err
	}
	if err := bootstrap.Migrate(db); err != nil {
		return err
	}
	logger.Info("Schema migration completed")
	return nil
}
