package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/Alfresco/SearchServices-sub009/core/config"
	"github.com/Alfresco/SearchServices-sub009/core/content"
	"github.com/Alfresco/SearchServices-sub009/core/database"
	"github.com/Alfresco/SearchServices-sub009/core/index"
	"github.com/Alfresco/SearchServices-sub009/core/index/pebblesink"
	"github.com/Alfresco/SearchServices-sub009/core/index/sqlsink"
	"github.com/Alfresco/SearchServices-sub009/core/logger"
	"github.com/Alfresco/SearchServices-sub009/core/metrics"
	"github.com/Alfresco/SearchServices-sub009/core/reconcile"
	"github.com/Alfresco/SearchServices-sub009/core/repo"
	"github.com/Alfresco/SearchServices-sub009/core/repo/sqlsource"
	"github.com/Alfresco/SearchServices-sub009/core/scheduler"
	"github.com/Alfresco/SearchServices-sub009/core/shard"
	"github.com/Alfresco/SearchServices-sub009/core/storage"
	"github.com/Alfresco/SearchServices-sub009/feature/acl"
	"github.com/Alfresco/SearchServices-sub009/feature/cascade"
	contenttracker "github.com/Alfresco/SearchServices-sub009/feature/content"
	"github.com/Alfresco/SearchServices-sub009/feature/metadata"
	"github.com/Alfresco/SearchServices-sub009/feature/model"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// runtime is one hosted core with everything it reads from and writes to.
type runtime struct {
	cfg      *config.Config
	log      *zap.Logger
	metrics  *metrics.Metrics
	core     *reconcile.Core
	registry *model.Registry
	closers  []func() error
}

// bootstrap loads configuration and the logger the way every command does.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, l, nil
}

func openSink(cfg index.Config, l *zap.Logger) (index.Sink, error) {
	switch cfg.Driver {
	case index.DriverMemory:
		l.Warn("Using in-memory index, nothing survives a restart")
		return index.NewMemorySink(), nil
	case index.DriverPebble:
		return pebblesink.Open(cfg.Path, pebblesink.Options{})
	case index.DriverSQL:
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to index database: %w", err)
		}
		return sqlsink.New(db)
	}
	return nil, fmt.Errorf("unknown index driver %q", cfg.Driver)
}

func openContentStore(ctx context.Context, cfg *config.Config) (content.Store, error) {
	if !cfg.Storage.Enabled {
		return nil, nil
	}
	client, err := storage.NewClient(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to storage: %w", err)
	}
	if err := storage.EnsureBucket(ctx, client, cfg.Storage.Bucket, cfg.Storage.Region); err != nil {
		return nil, err
	}
	return content.NewObjectStore(client, cfg.Storage.Bucket, cfg.Tracker.Core)
}

// newRuntime connects the repository, opens the index and registers every tracker.
func newRuntime(ctx context.Context, cfg *config.Config, l *zap.Logger) (*runtime, error) {
	rt := &runtime{cfg: cfg, log: l, metrics: metrics.New(), registry: model.NewRegistry()}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to repository: %w", err)
	}
	if err := sqlsource.Verify(db); err != nil {
		return nil, err
	}
	raw := sqlsource.New(db)
	var src repo.Source = raw
	if cfg.Tracker.RateLimit > 0 {
		src = repo.WithRateLimit(raw, rate.NewLimiter(rate.Limit(cfg.Tracker.RateLimit), max(cfg.Tracker.RateBurst, 1)))
	}

	sink, err := openSink(cfg.Index, l)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, sink.Close)

	store, err := openContentStore(ctx, cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}

	policy := shard.New(cfg.Shard, l)
	rt.core = reconcile.NewCore(reconcile.CoreConfig{
		Name:     cfg.Tracker.Core,
		Instance: cfg.Shard.Instance,
		Count:    cfg.Shard.Count,
		Options:  cfg.Tracker.Options(),
	}, sink, src, policy, store, l, rt.metrics)

	if n, err := model.Restore(ctx, sink, rt.registry); err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to restore models: %w", err)
	} else if n > 0 {
		l.Info("Restored data models", zap.Int("models", n))
	}

	rt.core.Register(
		acl.New(src, sink, l),
		metadata.New(src, sink, policy, cfg.Shard.Instance, rt.registry, l),
		contenttracker.New(raw, sink, store, cfg.Tracker.ContentWorkers, l),
		cascade.New(sink, l),
		model.New(raw, sink, rt.registry, l),
	)
	if err := rt.core.Init(ctx); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

// triggers wraps every tracker for the scheduler.
func (rt *runtime) triggers() []*scheduler.Trigger {
	var out []*scheduler.Trigger
	for _, a := range rt.core.Adapters() {
		name := a.Name()
		out = append(out, scheduler.NewTrigger(name, func(ctx context.Context) error {
			_, err := rt.core.Run(ctx, name)
			if errors.Is(err, reconcile.ErrBusy) {
				return scheduler.ErrSkipped
			}
			return err
		}))
	}
	return out
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			rt.log.Warn("Close failed", zap.Error(err))
		}
	}
	rt.closers = nil
}
