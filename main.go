package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Ananth-NQI/paypark-backend/database"
	"github.com/Ananth-NQI/paypark-backend/internal/config"
	"github.com/Ananth-NQI/paypark-backend/internal/events"
	"github.com/Ananth-NQI/paypark-backend/internal/logging"
	"github.com/Ananth-NQI/paypark-backend/internal/routes"
	"github.com/Ananth-NQI/paypark-backend/internal/services"
	"github.com/Ananth-NQI/paypark-backend/internal/storage"
)

func main() {
	// Load .env file for local development
	if os.Getenv("INSTANCE_CONNECTION_NAME") == "" {
		config.LoadDotEnv(".env", "environments/.env.development")
	}

	flags := config.Flags()
	if err := flags.Parse(os.Args[1:]); err != nil {
		logrus.WithError(err).Fatal("Invalid command line")
	}

	cfg, err := config.LoadWithFlags(flags)
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	logging.Setup(cfg.Server.LogLevel, cfg.Server.IsProduction())

	store := openStore(cfg)
	notifier := services.NewNotifier(cfg.Twilio, cfg.OTP.TTL)
	publisher := openPublisher(cfg)
	defer publisher.Close()

	deps := routes.Dependencies{
		Config:   cfg,
		Store:    store,
		Tickets:  services.NewTicketService(store, publisher, cfg.OTP, cfg.Rates.Rates(), time.Now),
		OTP:      services.NewOTPService(store, notifier, cfg.OTP, cfg.Rates.Rates(), time.Now),
		Payments: services.NewPaymentService(store, publisher, cfg.Rates.Rates(), cfg.Rates.Currency, time.Now),
		Notifier: notifier,
	}
	rdb := openRedis(cfg)
	if rdb != nil {
		deps.Redis = rdb
		defer rdb.Close()
	}
	if cfg.JWT.Secret == "" {
		logrus.Warn("JWT_SECRET not set, operator routes will reject every request")
	}

	app := routes.NewApp(deps)

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-quit
		logrus.Info("Gracefully shutting down...")
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	logrus.WithFields(logrus.Fields{
		"port":        cfg.Server.Port,
		"environment": cfg.Server.Environment,
		"storage":     store.Kind(),
		"sms_mock":    notifier.IsMockMode(),
	}).Info("Pay Parking backend starting")

	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		logrus.WithError(err).Fatal("Server stopped")
	}
}

func openStore(cfg *config.Config) storage.Store {
	if cfg.Server.UseMemoryStore {
		logrus.Warn("Using in-memory storage (not for production!)")
		return storage.NewMemoryStore()
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	store := storage.NewDatabaseStore(db)
	if err := store.Migrate(); err != nil {
		logrus.WithError(err).Fatal("Failed to migrate database")
	}
	logrus.Info("Database migrations completed")
	return store
}

// openPublisher falls back to logging events when RabbitMQ is not reachable.
func openPublisher(cfg *config.Config) events.Publisher {
	if cfg.RabbitMQ.URL == "" {
		return events.LogPublisher{}
	}
	p, err := events.NewAMQPPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue)
	if err != nil {
		logrus.WithError(err).Warn("RabbitMQ unavailable, ticket events will only be logged")
		return events.LogPublisher{}
	}
	return p
}

// openRedis returns nil when rate limiting is not configured or Redis is down.
func openRedis(cfg *config.Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logrus.WithError(err).Warn("Redis unavailable, OTP rate limiting disabled")
		_ = rdb.Close()
		return nil
	}
	return rdb
}
