package cli

import (
	"errors"
	"io"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/roach88/wishrank/internal/config"
	"github.com/roach88/wishrank/internal/engine"
	"github.com/roach88/wishrank/internal/store"
)

// app is everything a command needs: merged config, logger, store and
// engine. Close releases them.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	level  *slog.LevelVar
	store  *store.Store
	engine *engine.Engine
	redis  *redis.Client
	out    *OutputFormatter
}

// newLogger builds the CLI logger: text on w at a runtime-adjustable level.
func newLogger(w io.Writer, level slog.Level) (*slog.Logger, *slog.LevelVar) {
	lv := new(slog.LevelVar)
	lv.Set(level)
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lv})), lv
}

// loadConfig merges config layers with the global flags on top.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{
		Path:    opts.ConfigPath,
		EnvFile: opts.EnvFile,
		Override: func(c *config.Config) {
			if opts.Database != "" {
				c.Database.DSN = opts.Database
			}
			if opts.Driver != "" {
				c.Database.Driver = opts.Driver
			}
			if opts.Verbose {
				c.Log.Level = "debug"
			}
		},
	})
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

// openApp loads config, opens the store and builds the engine.
func openApp(cmd *cobra.Command, opts *RootOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	logger, level := newLogger(cmd.ErrOrStderr(), cfg.Log.SlogLevel())

	step, epsilon, err := cfg.Ordering.Keys()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid ordering config", err)
	}

	logger.Debug("opening database", "driver", cfg.Database.Driver)
	st, err := store.Open(store.Options{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		DefaultPageSize: cfg.Ordering.DefaultPageSize,
		MaxPageSize:     cfg.Ordering.MaxPageSize,
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		level:  level,
		store:  st,
		out: &OutputFormatter{
			Format:    opts.Format,
			Writer:    cmd.OutOrStdout(),
			ErrWriter: cmd.ErrOrStderr(),
			Verbose:   opts.Verbose,
		},
	}

	engineOpts := []engine.Option{engine.WithLogger(logger)}
	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		engineOpts = append(engineOpts, engine.WithLocker(engine.NewRedisLocker(a.redis, engine.DefaultLockTTL)))
		logger.Debug("using redis rebalance lock", "addr", cfg.Redis.Addr)
	}
	engineOpts = append(engineOpts, opts.EngineOptions...)

	a.engine = engine.New(st, engine.Config{
		Step:          step,
		Epsilon:       epsilon,
		AutoRebalance: cfg.Ordering.AutoRebalance,
	}, engineOpts...)
	return a, nil
}

// Close releases the store and the Redis client.
func (a *app) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	errs = append(errs, a.store.Close())
	if err := errors.Join(errs...); err != nil {
		a.logger.Error("error closing resources", "error", err)
		return err
	}
	return nil
}
