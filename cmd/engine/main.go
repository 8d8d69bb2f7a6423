// Package main is the entry point of the progression engine.
//
// The process serves the JSON API over one of two durable stores:
// postgres for deployments, an embedded SQLite file for local runs.
// Quiz-throttling markers live in the same store or, optionally, in redis.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/alem-hub/progress-engine/config"
	"github.com/alem-hub/progress-engine/internal/application/engine"
	"github.com/alem-hub/progress-engine/internal/domain/progress"
	"github.com/alem-hub/progress-engine/internal/domain/quiz"
	"github.com/alem-hub/progress-engine/internal/domain/shared"
	"github.com/alem-hub/progress-engine/internal/domain/validation"
	"github.com/alem-hub/progress-engine/internal/infrastructure/messaging"
	"github.com/alem-hub/progress-engine/internal/infrastructure/persistence/postgres"
	"github.com/alem-hub/progress-engine/internal/infrastructure/persistence/redis"
	"github.com/alem-hub/progress-engine/internal/infrastructure/persistence/sqlite"
	httpserver "github.com/alem-hub/progress-engine/internal/interface/http"
	"github.com/alem-hub/progress-engine/internal/interface/http/handlers"
	"github.com/alem-hub/progress-engine/pkg/logger"
	"github.com/alem-hub/progress-engine/pkg/random"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION AND LOGGER
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Log.Level),
		Format:    logger.Format(cfg.Log.Format),
		AddCaller: true,
	}).With(
		logger.String("app", cfg.App.Name),
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
	)
	defer func() { _ = log.Sync() }()

	log.Info("starting progress engine",
		logger.String("storage", cfg.Storage.Driver),
		logger.String("markers", cfg.Redis.MarkerBackend),
		logger.String("timezone", cfg.Location().String()),
	)

	health := handlers.NewHealthChecker(cfg.App.Version)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. STORAGE
	// ─────────────────────────────────────────────────────────────────────────
	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.close()
	health.AddCheck(cfg.Storage.Driver, handlers.PingCheck(store.pinger))

	markers := store.markers
	if cfg.Redis.MarkerBackend == config.MarkerBackendRedis {
		redisCfg := redis.DefaultConfig()
		redisCfg.Addr = cfg.Redis.Addr
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB

		cache, err := redis.NewCache(ctx, redisCfg)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer func() { _ = cache.Close() }()

		markers = redis.NewMarkerStore(cache)
		health.AddCheck("redis", handlers.PingCheck(cache))
		log.Info("connected to redis", logger.String("addr", cfg.Redis.Addr))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	busCfg := messaging.DefaultInMemoryEventBusConfig()
	busCfg.Logger = log
	bus := messaging.NewInMemoryEventBus(busCfg)
	defer func() {
		_ = bus.Close()
		stats := bus.Metrics().Snapshot()
		log.Info("event bus drained",
			logger.Any("published", stats.Published),
			logger.Int64("handler_executions", stats.HandlerExecutions),
			logger.Int64("handler_failures", stats.HandlerFailures),
			logger.Duration("avg_handler_duration", stats.AverageHandlerDuration),
		)
	}()

	eventLog := log.Named("events")
	if err := bus.Subscribe(shared.EventLevelUp, func(event shared.Event) error {
		e, ok := event.(shared.LevelUpEvent)
		if !ok {
			return nil
		}
		eventLog.Info("level up",
			logger.UserID(e.AggregateID()),
			logger.Int("old_level", e.OldLevel),
			logger.LevelNumber(e.NewLevel),
			logger.String("arena", e.ArenaName),
		)
		return nil
	}); err != nil {
		return fmt.Errorf("failed to subscribe to level-ups: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ENGINE
	// ─────────────────────────────────────────────────────────────────────────
	seed, err := random.ResolveSeed(cfg.Quiz.RandomSeed, nil)
	if err != nil {
		return fmt.Errorf("failed to seed admission gate: %w", err)
	}

	engineCfg := engine.DefaultConfig()
	engineCfg.Location = cfg.Location()
	engineCfg.AcceptanceRate = cfg.Quiz.AcceptanceRate
	engineCfg.QuestionCount = cfg.Quiz.QuestionCount
	engineCfg.QuizBaseXP = cfg.Rewards.QuizBase
	engineCfg.QuizPerCorrectXP = cfg.Rewards.QuizPerCorrect
	engineCfg.TaskDefaultXP = cfg.Rewards.TaskDefault

	eng := engine.New(engine.Deps{
		Progress:    store.progress,
		Validations: store.validations,
		Quizzes:     store.quizzes,
		Markers:     markers,
		Random:      random.NewSource(seed),
		Publisher:   bus,
		Logger:      log,
	}, engineCfg)

	// ─────────────────────────────────────────────────────────────────────────
	// 5. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	httpCfg := httpserver.DefaultConfig()
	httpCfg.Host = cfg.HTTP.Host
	httpCfg.Port = cfg.HTTP.Port
	httpCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	httpCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	httpCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins

	server := httpserver.NewServer(httpCfg, httpserver.Dependencies{
		Service: eng,
		Health:  health,
		Logger:  log,
	})
	errCh := server.StartAsync()

	log.Info("progress engine is running", logger.String("http_address", httpCfg.Address()))

	// ─────────────────────────────────────────────────────────────────────────
	// 6. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	select {
	case <-ctx.Done():
		log.Info("received shutdown signal")
	case err, ok := <-errCh:
		if ok && err != nil {
			log.Error("http server failed", logger.Err(err))
			return err
		}
	}

	log.Info("starting graceful shutdown", logger.Duration("timeout", cfg.App.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown completed with errors", logger.Err(err))
		return nil
	}
	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STORAGE WIRING
// ══════════════════════════════════════════════════════════════════════════════

type storage struct {
	progress    progress.Repository
	validations validation.Repository
	quizzes     quiz.Repository
	markers     quiz.MarkerStore
	pinger      handlers.Pinger
	close       func()
}

func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		opts := postgres.DefaultPoolOptions()
		opts.MaxConns = cfg.Storage.MaxConns
		opts.MinConns = cfg.Storage.MinConns

		conn, err := postgres.NewConnection(ctx, cfg.Storage.DatabaseURL, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to migrate postgres: %w", err)
		}
		log.Info("connected to postgres")

		return &storage{
			progress:    postgres.NewProgressRepository(conn),
			validations: postgres.NewValidationRepository(conn),
			quizzes:     postgres.NewQuizRepository(conn),
			markers:     postgres.NewMarkerStore(conn),
			pinger:      conn,
			close:       conn.Close,
		}, nil

	default:
		db, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		log.Info("opened sqlite", logger.String("path", cfg.Storage.SQLitePath))

		return &storage{
			progress:    sqlite.NewProgressRepository(db),
			validations: sqlite.NewValidationRepository(db),
			quizzes:     sqlite.NewQuizRepository(db),
			markers:     sqlite.NewMarkerStore(db),
			pinger:      db,
			close:       func() { _ = db.Close() },
		}, nil
	}
}
