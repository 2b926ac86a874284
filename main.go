package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"hotel-booking/config"
	"hotel-booking/database"
	"hotel-booking/events"
	"hotel-booking/handlers"
	"hotel-booking/manager"
	"hotel-booking/middleware"
	"hotel-booking/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	store, closeStore, err := openStore(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatal("failed to open booking store", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer closeStore()

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		log.Info("publishing booking events", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}
	defer func() { _ = publisher.Close() }()

	bookingManager := manager.New(store, cfg.RoomPool, publisher, log.Named("manager"))

	app := fiber.New(fiber.Config{
		AppName:      "hotel-booking",
		ErrorHandler: middleware.ErrorHandler(log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	})
	router.SetupRoutes(app, handlers.New(bookingManager, log.Named("http")))

	go func() {
		log.Info("HTTP server starting",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("backend", cfg.StoreBackend),
			zap.Ints("rooms", cfg.RoomPool),
		)
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down hotel-booking...")
	if err := app.Shutdown(); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}
	log.Info("hotel-booking stopped")
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func openStore(ctx context.Context, cfg config.Config) (manager.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendMongo:
		db, err := database.DBInit(ctx, cfg.MongoConnString, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() { _ = db.Client().Disconnect(context.Background()) }
		store, err := database.NewMongoStore(ctx, db)
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		return store, closeFn, nil
	case config.BackendPostgres:
		db, err := database.PostgresInit(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		store, err := database.NewPostgresStore(db)
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		return store, closeFn, nil
	default:
		store, err := database.NewLocalStore(cfg.LocalDBPath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}
