// Package bootstrap wires the process-level dependencies shared by every
// binary: environment, config, logger, database and redis.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/instance"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

type closer struct {
	name string
	fn   func() error
}

// Runtime holds the shared clients of a running binary.
type Runtime struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *db.Client
	Redis  *redis.Client

	closers []closer
}

// OnClose registers fn to run when the runtime shuts down. Closers run in
// reverse registration order.
func (rt *Runtime) OnClose(name string, fn func() error) {
	rt.closers = append(rt.closers, closer{name: name, fn: fn})
}

func (rt *Runtime) close(ctx context.Context) {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		c := rt.closers[i]
		if err := c.fn(); err != nil {
			rt.Logger.Error(rt.Logger.WithField(ctx, "resource", c.name), "close failed", err)
		}
	}
}

// Main loads configuration, connects the shared clients and hands them to run.
// It exits the process with status 1 when setup or run fails.
func Main(kind string, run func(ctx context.Context, rt *Runtime) error) {
	logg := logger.New(logger.Options{ServiceName: kind})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = kind
	logg = logger.New(logger.Options{
		ServiceName: kind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": kind,
		"instance":    instance.GetID(),
	})

	rt := &Runtime{Config: cfg, Logger: logg}
	err = rt.start(ctx)
	if err == nil {
		err = run(ctx, rt)
	}
	rt.close(context.WithoutCancel(ctx))
	stop()

	if err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, kind+" stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, kind+" shut down")
}

func (rt *Runtime) start(ctx context.Context) error {
	dbClient, err := db.New(ctx, rt.Config.DB, rt.Logger)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	rt.DB = dbClient
	rt.OnClose("database", dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, rt.Config, rt.Logger, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, rt.Config.Redis, rt.Logger)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	rt.Redis = redisClient
	rt.OnClose("redis", redisClient.Close)
	return nil
}
