package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/miahui/internal/cache"
	"github.com/oggyb/miahui/internal/config"
	"github.com/oggyb/miahui/internal/db"
	"github.com/oggyb/miahui/internal/prefs"
	"github.com/oggyb/miahui/internal/reply"
	"github.com/oggyb/miahui/internal/repository"
	"github.com/oggyb/miahui/internal/schedule"
	"github.com/oggyb/miahui/internal/session"
)

// AppContext holds shared dependencies (store backend, session, logger)
type AppContext struct {
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Store      *prefs.Store
	Session    *session.Session
	Logger     *slog.Logger
}

// New creates a new AppContext around an already opened store.
func New(store *prefs.Store, sess *session.Session, logger *slog.Logger) *AppContext {
	return &AppContext{
		Store:   store,
		Session: sess,
		Logger:  logger,
	}
}

// OpenStore connects the preference backend selected by cfg.Store.Backend.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*AppContext, error) {
	a := &AppContext{Logger: logger}

	var backend prefs.Backend
	switch cfg.Store.Backend {
	case "sql", "":
		database, err := db.NewDB(cfg)
		if err != nil {
			return nil, err
		}
		a.DB = database
		backend = repository.NewPreferenceRepository(database)
	case "redis":
		rdb := cache.NewRedisCache(cfg)
		if err := rdb.Ping(ctx); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.RedisCache = rdb
		backend = rdb
	case "memory":
		backend = prefs.NewMemory()
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}

	a.Store = prefs.New(backend, logger.With("module", "prefs"))
	logger.Info("preference store ready", "backend", cfg.Store.Backend)
	return a, nil
}

// StartSession restores the session from the store with real timers.
func (a *AppContext) StartSession(ctx context.Context, cfg *config.Config) {
	var gen reply.Generator = reply.NewCanned(nil)
	if cfg.Reply.Endpoint != "" {
		gen = reply.NewHTTPClient(reply.ClientOptions{
			Endpoint: cfg.Reply.Endpoint,
			APIKey:   cfg.Reply.APIKey,
			Timeout:  cfg.Reply.Timeout,
			Attempts: cfg.Reply.Attempts,
		})
	}
	a.Session = session.New(ctx, session.Deps{
		Store:     a.Store,
		Scheduler: schedule.NewTimer(),
		Generator: gen,
		Log:       a.Logger.With("module", "session"),
	}, session.OptionsFromConfig(cfg))
}

// Close releases the store backend.
func (a *AppContext) Close() error {
	var errs []error
	if a.RedisCache != nil {
		errs = append(errs, a.RedisCache.Close())
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}
