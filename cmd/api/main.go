package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backend-yatube/internal/config"
	"backend-yatube/internal/db"
	"backend-yatube/internal/server"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var mainDepsProvider = defaultDeps
var mainRunner = realMain

func main() {
	mainRunner(mainDepsProvider())
}

type mainDeps struct {
	loadConfig      func() config.Config
	newLogger       func(config.Config) (*zap.Logger, error)
	connectPostgres func(config.Config) (*pgxpool.Pool, error)
	applySchema     func(context.Context, db.Querier) error
	connectRedis    func(config.Config) *redis.Client
	notify          func(chan<- os.Signal, ...os.Signal)
	run             func(context.Context, config.Config, *pgxpool.Pool, *redis.Client, *zap.Logger, <-chan os.Signal, ListenFunc) error
}

func defaultDeps() mainDeps {
	return mainDeps{
		loadConfig:      config.Load,
		newLogger:       newLogger,
		connectPostgres: db.ConnectPostgres,
		applySchema:     db.ApplySchema,
		connectRedis:    db.ConnectRedis,
		notify:          signal.Notify,
		run:             Run,
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.LogLevel != "" {
		level, err := zap.ParseAtomicLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		zc.Level = level
	}
	return zc.Build()
}

func realMain(deps mainDeps) {
	cfg := deps.loadConfig()

	logger, err := deps.newLogger(cfg)
	if err != nil {
		logger, _ = zap.NewProduction()
		logger.Sugar().Warnf("invalid log level %q, using info: %s", cfg.LogLevel, err.Error())
	}
	defer func() { _ = logger.Sync() }()

	pg, err := deps.connectPostgres(cfg)
	if err != nil {
		logger.Error("postgres connection failed", zap.Error(err))
	}
	if pg != nil {
		if err := deps.applySchema(context.Background(), pg); err != nil {
			logger.Error("schema setup failed", zap.Error(err))
		} else {
			logger.Info("Successfully connected to PostgreSQL")
		}
	}

	rdb := deps.connectRedis(cfg)
	if rdb != nil {
		logger.Info("Using Redis feed cache", zap.String("addr", cfg.RedisAddr))
	}

	signals := make(chan os.Signal, 1)
	deps.notify(signals, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server started", zap.String("port", cfg.ServerPort))
	if err := deps.run(context.Background(), cfg, pg, rdb, logger, signals, nil); err != nil {
		logger.Error("server exited with error", zap.Error(err))
	}
	logger.Info("Server shutting down")
}

type ListenFunc func(app *fiber.App, addr string) error

var defaultListen ListenFunc = func(app *fiber.App, addr string) error {
	return app.Listen(addr)
}

var shutdownFn = func(app *fiber.App, ctx context.Context) error {
	return app.ShutdownWithContext(ctx)
}

// Run starts the HTTP server and waits for termination signals.
func Run(ctx context.Context, cfg config.Config, pg *pgxpool.Pool, rdb *redis.Client, logger *zap.Logger, signals <-chan os.Signal, listen ListenFunc) error {
	srv := server.NewServer(cfg, pg, rdb, logger)

	if listen == nil {
		listen = defaultListen
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- listen(srv.App, cfg.ServerPort)
	}()

	select {
	case <-signals:
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := shutdownFn(srv.App, shutdownCtx); err != nil {
		return err
	}
	if pg != nil {
		pg.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	return nil
}
