package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"comanda/internal/commons"
	"comanda/internal/config"
	"comanda/internal/feed"
	"comanda/internal/gate"
	"comanda/internal/infrastructure/logger"
	"comanda/internal/infrastructure/mysql"
	"comanda/internal/infrastructure/redis"
	"comanda/internal/menu"
	"comanda/internal/notify"
	"comanda/internal/order"
	"comanda/internal/printer"
	"comanda/internal/server"
	"comanda/internal/settings"
	"comanda/internal/signing"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	db, err := mysql.NewConnection(cfg.Database)
	if err != nil {
		zapLogger.Fatal("connecting to database", zap.Error(err))
	}
	defer db.Close()
	zapLogger.Info("database connected")

	rdb, err := redis.NewClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("connecting to redis", zap.Error(err))
	}
	defer rdb.Close()
	zapLogger.Info("redis connected")

	publisher := feed.NewPublisher(rdb, zapLogger)

	menuModule := menu.NewModule(db, publisher, zapLogger)
	settingsModule := settings.NewModule(db, publisher, zapLogger)

	printClient := printer.NewServiceClient(cfg.Printer.ServiceAddr, cfg.Printer.DialTimeout, zapLogger)
	defer printClient.Close()
	dispatcher := printer.NewDispatcher(printClient, zapLogger)

	orderModule := order.NewModule(
		db,
		menuModule.Repository,
		settingsModule.Repository,
		publisher,
		dispatcher,
		zapLogger,
		cfg.Gate.MaxRetryAttempts,
	)

	printCtrl := printer.NewController(printClient, dispatcher, settingsModule.Repository, zapLogger)

	printGate := gate.New(orderModule.Service, settingsModule.Repository, dispatcher, cfg.Gate.SettleDelay, zapLogger)
	relay := notify.NewRelay(cfg.Notify.Warmup, cfg.Notify.TTL, cfg.Notify.Max, nil, zapLogger)
	notifyHandler := notify.NewHandler(relay, zapLogger)

	var signer *signing.Signer
	if cfg.Signing.KeyPath != "" {
		signer, err = signing.NewFromPEM(cfg.Signing.KeyPath)
		if err != nil {
			zapLogger.Fatal("loading signing key", zap.Error(err))
		}
		zapLogger.Info("signing key loaded", zap.String("path", cfg.Signing.KeyPath))
	} else {
		zapLogger.Warn("no signing key configured, printer pairing disabled")
	}
	signHandler := signing.NewHandler(signer, zapLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The print service is optional at boot; the gate leaves orders unmarked
	// until it comes up.
	go func() {
		if err := printClient.Connect(ctx); err != nil {
			zapLogger.Warn("print service unavailable", zap.Error(err))
		}
	}()

	if err := orderModule.Store.Refresh(ctx); err != nil {
		zapLogger.Warn("initial order load failed", zap.Error(err))
	}

	subscriber := feed.NewSubscriber(rdb, zapLogger)
	subscriber.Register(orderModule.Store.HandleEvent)
	subscriber.Register(printGate.HandleEvent)
	subscriber.Register(relay.HandleEvent)
	go func() {
		if err := subscriber.Run(ctx); err != nil && ctx.Err() == nil {
			zapLogger.Error("change feed stopped", zap.Error(err))
		}
	}()

	go printGate.Sweep(ctx)

	router := server.NewRouter([]server.Routable{
		orderModule.Controller,
		menuModule.Controller,
		settingsModule.Controller,
		printCtrl,
		notifyHandler,
	}, signHandler, zapLogger)

	srv := server.New(cfg.Server.Port, router, zapLogger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			zapLogger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	zapLogger.Info("received shutdown signal")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Fatal("server shutdown failed", zap.Error(err))
	}

	zapLogger.Info("server stopped gracefully")
}

// loadConfig prefers an explicit YAML file over environment variables.
func loadConfig() (*config.Config, error) {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		return commons.LoadConfig(path)
	}
	return config.Load()
}
