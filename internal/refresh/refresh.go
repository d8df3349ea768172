// Package refresh keeps the in-memory tariff holder in step with the store.
// A cron schedule polls; a pub/sub announcement triggers an immediate poll.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"motor-tariff/adapters/pubsub"
	"motor-tariff/core/tariff"
	"motor-tariff/internal/logging"
	"motor-tariff/internal/metrics"
)

// Outcome of one refresh
type Outcome string

const (
	Swapped   Outcome = "swapped"
	Unchanged Outcome = "unchanged"
	Failed    Outcome = "failed"
)

// Source provides the active table. db.PricingStore satisfies it.
type Source interface {
	ActiveTable(ctx context.Context) (*tariff.Table, error)
}

// Options configures a Refresher
type Options struct {
	// Cache keeps a write-once local copy of every table that was swapped in.
	// Bootstrap falls back to it when the source is unreachable.
	Cache   *tariff.SnapshotStore
	Metrics *metrics.Metrics
	Timeout time.Duration
}

// Refresher swaps the holder when the active table changes
type Refresher struct {
	source  Source
	holder  *tariff.Holder
	cache   *tariff.SnapshotStore
	metrics *metrics.Metrics
	timeout time.Duration
	logger  *zap.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// New creates a refresher
func New(source Source, holder *tariff.Holder, opts Options) *Refresher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Refresher{
		source:  source,
		holder:  holder,
		cache:   opts.Cache,
		metrics: opts.Metrics,
		timeout: opts.Timeout,
		logger:  logging.Named("refresh"),
	}
}

// Bootstrap publishes the first table: from the source, else from the cache
func (r *Refresher) Bootstrap(ctx context.Context) error {
	_, err := r.Refresh(ctx)
	if err == nil {
		return nil
	}
	if r.cache == nil {
		return err
	}

	t, cerr := r.cache.GetLatest(ctx)
	if cerr != nil {
		return fmt.Errorf("%w (cache: %v)", err, cerr)
	}
	r.publish(t)
	r.logger.Warn("serving cached tariff table", append(logging.Table(t), zap.Error(err))...)
	return nil
}

// Refresh loads the active table and swaps it in when version or hash changed.
// Concurrent calls are serialized.
func (r *Refresher) Refresh(ctx context.Context) (Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	next, err := r.source.ActiveTable(ctx)
	if err == nil && next == nil {
		err = tariff.ErrNoTable
	}
	if err != nil {
		r.metrics.Reload(string(Failed))
		r.logger.Error("tariff refresh failed", zap.Error(err))
		return Failed, err
	}

	if cur := r.holder.Current(); cur != nil && cur.Version == next.Version && cur.ContentHash == next.ContentHash {
		r.metrics.Reload(string(Unchanged))
		return Unchanged, nil
	}

	r.publish(next)
	r.metrics.Reload(string(Swapped))

	if r.cache != nil {
		if _, err := r.cache.Store(ctx, next); err != nil && !errors.Is(err, tariff.ErrImmutabilityViolation) {
			r.logger.Warn("failed to cache tariff table", zap.Error(err))
		}
	}
	return Swapped, nil
}

func (r *Refresher) publish(t *tariff.Table) {
	prev := r.holder.Publish(t)
	r.metrics.TablePublished(t.Version)

	fields := logging.Table(t)
	if prev != nil {
		fields = append(fields, zap.Int("previous_version", prev.Version))
	}
	r.logger.Info("tariff table published", fields...)
}

// OnAnnounced handles a pub/sub activation event
func (r *Refresher) OnAnnounced(ctx context.Context, e pubsub.Event) {
	if cur := r.holder.Current(); cur != nil && cur.ID == e.TableID {
		return
	}
	r.logger.Info("activation announced", zap.String("table_id", string(e.TableID)), zap.Int("version", e.Version))
	r.Refresh(ctx)
}

// Start schedules periodic refreshes ("@every 1m", "*/5 * * * *")
func (r *Refresher) Start(schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { r.Refresh(context.Background()) }); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}
	c.Start()

	r.mu.Lock()
	r.cron = c
	r.mu.Unlock()
	r.logger.Info("refresh scheduled", zap.String("schedule", schedule))
	return nil
}

// Stop halts the schedule and waits for a running refresh to finish
func (r *Refresher) Stop() {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}
