// Package main is the entry point for the progression engine service.
//
// The engine consumes learning events (module completions, campaign
// completions, scored assessment videos) from Redis Pub/Sub, runs them
// through the progression pipeline and forwards the resulting domain events
// to the notification channel.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/skillstream/progression-engine/config"
	"github.com/skillstream/progression-engine/internal/application/orchestrator"
	"github.com/skillstream/progression-engine/internal/domain/shared"
	"github.com/skillstream/progression-engine/internal/domain/streak"
	"github.com/skillstream/progression-engine/internal/infrastructure/messaging"
	"github.com/skillstream/progression-engine/internal/infrastructure/persistence/postgres"
	"github.com/skillstream/progression-engine/internal/infrastructure/persistence/redis"
	"github.com/skillstream/progression-engine/pkg/logger"
	"github.com/skillstream/progression-engine/pkg/timeutil"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting progression engine",
		slog.String("env", string(cfg.App.Environment)),
		slog.String("version", cfg.App.Version),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. POSTGRESQL
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database")
	conn, err := connectPostgres(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close()

	log.Info("running migrations")
	if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS
	// ─────────────────────────────────────────────────────────────────────────
	var cache *redis.Cache
	if cfg.Redis.Disabled {
		log.Warn("redis disabled, no inbound events or notifications will flow")
	} else {
		log.Info("connecting to redis")
		cache, err = redis.NewCache(redisConfig(cfg))
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer cache.Close()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. EVENT BUS AND NOTIFIER
	// ─────────────────────────────────────────────────────────────────────────
	busConfig := messaging.DefaultInMemoryEventBusConfig()
	busConfig.WorkerPoolSize = cfg.Engine.EventWorkers
	busConfig.Logger = log
	bus := messaging.NewInMemoryEventBus(busConfig)
	defer func() { _ = bus.Close() }()

	if cache != nil {
		notifier, err := messaging.NewNotifier(messaging.NotifierConfig{
			Publisher:  cache,
			ChannelFor: func(shared.EventType) string { return cfg.Engine.NotificationChannel },
			Logger:     log,
		})
		if err != nil {
			return fmt.Errorf("failed to create notifier: %w", err)
		}
		if err := notifier.Start(bus); err != nil {
			return fmt.Errorf("failed to start notifier: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ORCHESTRATOR
	// ─────────────────────────────────────────────────────────────────────────
	progressions := postgres.NewProgressionRepository(conn)
	orch := orchestrator.New(
		progressions,
		postgres.NewEventLedgerRepository(conn),
		postgres.NewStreakRepository(conn),
		postgres.NewSkillRepository(conn),
		streak.NewEngine(uuid.NewString),
		conn,
		bus,
		orchestrator.Config{MaxConflictRetries: cfg.Engine.MaxConflictRetries},
		timeutil.Now,
		log,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. SNAPSHOT CACHE
	// ─────────────────────────────────────────────────────────────────────────
	var progressionCache *redis.ProgressionCache
	if cache != nil {
		progressionCache = redis.NewProgressionCache(cache)
		refresher := redis.NewSnapshotRefresher(progressionCache, progressions, log)
		if err := refresher.Start(bus); err != nil {
			return fmt.Errorf("failed to start snapshot refresher: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. INBOUND CONSUMER
	// ─────────────────────────────────────────────────────────────────────────
	if cache != nil {
		consumer, err := messaging.NewConsumer(messaging.ConsumerConfig{
			Client:       messaging.NewGoRedisClient(cache.Client()),
			Orchestrator: orch,
			Filter:       progressionCache,
			Workers:      cfg.Engine.EventWorkers,
			Logger:       log,
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
		if err := consumer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start consumer: %w", err)
		}
		defer consumer.Stop()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. WAIT FOR SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("progression engine is running")
	<-ctx.Done()

	log.Info("shutting down", slog.Duration("timeout", cfg.App.ShutdownTimeout))
	return nil
}

// connectPostgres prefers DATABASE_URL, falling back to discrete settings.
func connectPostgres(ctx context.Context, cfg *config.Config) (*postgres.Connection, error) {
	if cfg.Database.URL != "" {
		return postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	}
	return postgres.NewConnection(ctx, postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		Database:        cfg.Database.Name,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        int32(cfg.Database.MaxConns),
		MinConns:        int32(cfg.Database.MinConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  cfg.Database.ConnectTimeout,
	})
}

func redisConfig(cfg *config.Config) redis.Config {
	rc := redis.DefaultConfig()
	rc.Host = cfg.Redis.Host
	rc.Port = cfg.Redis.Port
	rc.Password = cfg.Redis.Password
	rc.DB = cfg.Redis.DB
	rc.PoolSize = cfg.Redis.PoolSize
	rc.MinIdleConns = cfg.Redis.MinIdleConns
	rc.DialTimeout = cfg.Redis.DialTimeout
	rc.ReadTimeout = cfg.Redis.ReadTimeout
	rc.WriteTimeout = cfg.Redis.WriteTimeout
	return rc
}

// setupLogger builds the process logger: the zero-dep JSON logger in
// production, a readable text handler in development.
func setupLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	if cfg.Observability.LogFormat == "text" {
		level := slog.LevelInfo
		if cfg.App.Debug {
			level = slog.LevelDebug
		}
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		base := logger.New(logger.Options{
			Output:    os.Stdout,
			Level:     logger.ParseLevel(cfg.Observability.LogLevel),
			AddCaller: false,
		})
		handler = logger.NewSlogHandler(base)
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}
