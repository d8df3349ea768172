// Package app wires configuration, stores and the HTTP server into a running service.
package app

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"motor-tariff/adapters/hclfile"
	"motor-tariff/adapters/pubsub"
	"motor-tariff/api"
	"motor-tariff/core/input"
	"motor-tariff/core/quote"
	"motor-tariff/core/tariff"
	"motor-tariff/db"
	"motor-tariff/internal/config"
	"motor-tariff/internal/errors"
	"motor-tariff/internal/logging"
	"motor-tariff/internal/metrics"
	"motor-tariff/internal/refresh"
)

// Run serves until ctx is cancelled.
//
// With a database DSN the active table comes from Postgres and is kept current
// by the cron refresher and, when Redis is configured, by activation events.
// Without one the tariff file is loaded once and served as is.
func Run(ctx context.Context, cfg *config.Config, version string) error {
	logger := logging.Named("app")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	holder := tariff.NewHolder()
	engine := quote.NewEngine(holder, quote.Config{
		Fees:     cfg.Fees,
		Logger:   logging.Named("quote"),
		Observer: m,
	})

	deps := api.Deps{
		Engine:      engine,
		Holder:      holder,
		Normalizer:  input.NewNormalizer(cfg.Tariff.InternalMonths, cfg.Tariff.BorderMonths),
		Gatherer:    reg,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		Version:     version,
		Logger:      logging.Named("api"),
	}

	switch {
	case cfg.Database.DSN != "":
		stop, err := startDatabase(ctx, cfg, holder, m, &deps)
		if err != nil {
			return err
		}
		defer stop()
	case cfg.Tariff.File != "":
		t, err := hclfile.NewReader().ReadFile(cfg.Tariff.File)
		if err != nil {
			return errors.Config("cannot load tariff file "+cfg.Tariff.File, err)
		}
		holder.Publish(t)
		m.TablePublished(t.Version)
		logger.Info("tariff file loaded",
			append(logging.Table(t), zap.String("file", cfg.Tariff.File), zap.Int("rows", t.Len()))...)
	default:
		return errors.Config("either database.dsn or tariff.file must be set", nil)
	}

	if t := holder.Current(); t != nil {
		if c := t.Coverage(); !c.Complete() {
			logger.Warn("active tariff table is incomplete", zap.Int("missing", len(c.Missing)))
		}
	}

	srv := api.NewServer(deps)
	return srv.ListenAndServe(ctx, cfg.HTTP.Addr, time.Duration(cfg.HTTP.ShutdownSeconds)*time.Second)
}

// startDatabase connects the stores, bootstraps the holder and starts the refresh loops.
// The returned func releases everything it started.
func startDatabase(ctx context.Context, cfg *config.Config, holder *tariff.Holder, m *metrics.Metrics, deps *api.Deps) (func(), error) {
	logger := logging.Named("app")

	pool, err := db.NewPool(ctx, cfg.Database.DSN, cfg.Database.MaxConns)
	if err != nil {
		return nil, errors.TableUnavailable(err)
	}
	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	deps.Policies = db.NewPolicyStore(pool)

	var cache *tariff.SnapshotStore
	if cfg.Tariff.SnapshotDir != "" {
		cache, err = tariff.NewSnapshotStore(cfg.Tariff.SnapshotDir)
		if err != nil {
			logger.Warn("snapshot cache disabled", zap.Error(err))
			cache = nil
		}
	}

	r := refresh.New(db.NewPricingStore(pool), holder, refresh.Options{Cache: cache, Metrics: m})
	if err := r.Bootstrap(ctx); err != nil {
		// the server still starts and answers 503 until a table is activated
		logger.Warn("no tariff table at startup", zap.Error(err))
	}
	if err := r.Start(cfg.Tariff.RefreshSchedule); err != nil {
		pool.Close()
		return nil, errors.Config("tariff.refresh_schedule", err)
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = pubsub.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		sub := pubsub.NewSubscriber(rdb, cfg.Redis.Channel)
		if err := sub.Start(ctx, r.OnAnnounced); err != nil {
			logger.Warn("activation events disabled", zap.Error(err))
		}
	}

	return func() {
		r.Stop()
		if rdb != nil {
			_ = rdb.Close()
		}
		pool.Close()
	}, nil
}
