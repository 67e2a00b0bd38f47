package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prohmpiriya/hotel-booking-engine/internal/di"
	"github.com/prohmpiriya/hotel-booking-engine/internal/metrics"
	"github.com/prohmpiriya/hotel-booking-engine/internal/service"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/config"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/database"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/logger"
	pkgredis "github.com/prohmpiriya/hotel-booking-engine/pkg/redis"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/telemetry"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(&logger.Config{
		Level:       cfg.App.Environment,
		ServiceName: "session-sweeper",
		Development: cfg.IsDevelopment(),
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting payment session sweeper...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    "session-sweeper",
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		appLog.Warn("Telemetry disabled", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetry.Shutdown(shutdownCtx)
	}()
	if err := metrics.Init(); err != nil {
		appLog.Warn("Failed to register metrics", zap.Error(err))
	}

	// The sweeper has nothing to do without the shared database
	if err := cfg.ValidateDatabase(); err != nil {
		appLog.Fatal("Invalid database configuration", zap.Error(err))
	}
	db, err := database.NewPostgres(ctx, &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        4,
		MinConns:        1,
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      5,
		RetryInterval:   2 * time.Second,
		EnableTracing:   cfg.Database.EnableTracing,
	})
	if err != nil {
		appLog.Fatal("Database connection failed", zap.Error(err))
	}
	defer db.Close()

	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(ctx, &pkgredis.Config{
			Host:          cfg.Redis.Host,
			Port:          cfg.Redis.Port,
			Password:      cfg.Redis.Password,
			DB:            cfg.Redis.DB,
			PoolSize:      4,
			MinIdleConns:  1,
			DialTimeout:   cfg.Redis.DialTimeout,
			ReadTimeout:   cfg.Redis.ReadTimeout,
			WriteTimeout:  cfg.Redis.WriteTimeout,
			PoolTimeout:   4 * time.Second,
			MaxRetries:    3,
			RetryInterval: 100 * time.Millisecond,
		})
		if err != nil {
			appLog.Warn("Redis connection failed, sweeping without a lease", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	var eventPublisher service.EventPublisher = service.NewNoOpEventPublisher()
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher, err := service.NewKafkaEventPublisher(ctx, &service.EventPublisherConfig{
			Brokers:      cfg.Kafka.Brokers,
			BookingTopic: cfg.Kafka.BookingTopic,
			PaymentTopic: cfg.Kafka.PaymentTopic,
			ServiceName:  "session-sweeper",
			ClientID:     cfg.Kafka.ClientID + "-sweeper",
		})
		if err != nil {
			appLog.Warn("Kafka unavailable, expiry events will not be published", zap.Error(err))
		} else {
			eventPublisher = kafkaPublisher
		}
	}
	defer eventPublisher.Close()

	container := di.NewContainer(&di.ContainerConfig{
		DB:             db,
		Redis:          redisClient,
		EventPublisher: eventPublisher,
		Verifier:       di.NewVerifier(cfg),
		Engine:         di.EngineConfigFrom(cfg),
		Sweeper:        di.SweeperConfigFrom(cfg),
	})

	if err := container.SessionSweeper.Start(ctx); err != nil {
		appLog.Fatal("Failed to start session sweeper", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down session sweeper...")
	container.SessionSweeper.Stop()
	cancel()

	stats := container.SessionSweeper.GetStats()
	appLog.Info("Session sweeper stopped",
		zap.Int64("total_expired", stats.TotalExpired),
		zap.Int64("skipped", stats.Skipped),
	)
}
