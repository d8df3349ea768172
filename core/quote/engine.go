package quote

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"motor-tariff/core/input"
	"motor-tariff/core/tariff"
	"motor-tariff/internal/errors"
	"motor-tariff/internal/logging"
)

// Quote is the result of one calculation. It is never mutated after return;
// record stores persist a copy.
type Quote struct {
	ID           string             `json:"id"`
	Input        input.PricingInput `json:"input"`
	InputHash    string             `json:"inputHash"`
	Key          tariff.Key         `json:"key"`
	Breakdown    Breakdown          `json:"breakdown"`
	TableID      tariff.TableID     `json:"tableId"`
	TableVersion int                `json:"tableVersion"`
	TableHash    string             `json:"tableHash"`
	Warnings     []Warning          `json:"warnings,omitempty"`
	ComputedAt   time.Time          `json:"computedAt"`
}

// Observer receives calculation outcomes
type Observer interface {
	QuoteComputed(insuranceType, status string, d time.Duration)
	Inconsistency(insuranceType string)
}

type noopObserver struct{}

func (noopObserver) QuoteComputed(string, string, time.Duration) {}
func (noopObserver) Inconsistency(string)                         {}

// Config configures the engine
type Config struct {
	Fees     AddOnFees
	Logger   *zap.Logger
	Observer Observer
	// Clock stamps ComputedAt; defaults to time.Now
	Clock func() time.Time
}

// Engine prices requests against the snapshot its store hands out.
// It holds no mutable state; concurrent calls are safe.
type Engine struct {
	store    tariff.Store
	fees     AddOnFees
	logger   *zap.Logger
	observer Observer
	now      func() time.Time
}

// NewEngine creates a pricing engine
func NewEngine(store tariff.Store, cfg Config) *Engine {
	e := &Engine{
		store:    store,
		fees:     cfg.Fees,
		logger:   cfg.Logger,
		observer: cfg.Observer,
		now:      cfg.Clock,
	}
	if e.logger == nil {
		e.logger = logging.Named("quote")
	}
	if e.observer == nil {
		e.observer = noopObserver{}
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Fees returns the add-on fees the engine applies
func (e *Engine) Fees() AddOnFees {
	return e.fees
}

// Calculate loads the active snapshot once and prices the input against it
func (e *Engine) Calculate(ctx context.Context, in input.PricingInput) (*Quote, error) {
	start := time.Now()

	q, err := e.calculate(ctx, in)

	e.observer.QuoteComputed(string(in.Kind), statusLabel(err), time.Since(start))
	if err != nil {
		e.logger.Debug("quote failed",
			zap.String("insurance_type", string(in.Kind)),
			zap.Error(err))
	}
	return q, err
}

func (e *Engine) calculate(ctx context.Context, in input.PricingInput) (*Quote, error) {
	table, err := e.store.ActiveTable(ctx)
	if err != nil {
		if errors.IsType(err, errors.TypeTableUnavailable) {
			return nil, err
		}
		return nil, errors.TableUnavailable(err)
	}
	if table == nil {
		return nil, errors.TableUnavailable(tariff.ErrNoTable)
	}
	return e.Price(table, in)
}

// Price computes a quote against an explicit snapshot.
// It either returns a complete quote or an error, never a partial breakdown.
func (e *Engine) Price(table *tariff.Table, in input.PricingInput) (*Quote, error) {
	if table == nil {
		return nil, errors.TableUnavailable(tariff.ErrNoTable)
	}

	key, err := ResolveKey(in)
	if err != nil {
		if e, ok := errors.As(err); ok && e.Is(errors.TypeTariffNotFound) {
			return nil, e.WithContext("table_version", table.Version)
		}
		return nil, err
	}

	row, ok := table.Lookup(key)
	if !ok {
		return nil, errors.TariffNotFound(describeKey(key, in)).
			WithContext("table_version", table.Version)
	}

	b := Aggregate(Compose(row, in, e.fees))
	now := e.now().UTC()

	q := &Quote{
		ID:           newQuoteID(now),
		Input:        in,
		InputHash:    in.Hash(),
		Key:          key,
		Breakdown:    b,
		TableID:      table.ID,
		TableVersion: table.Version,
		TableHash:    table.ContentHash.Hex(),
		ComputedAt:   now,
	}

	if row.Total != b.Subtotal {
		w := Warning{
			Code:        string(errors.TypeInconsistency),
			Key:         key.String(),
			Message:     fmt.Sprintf("stored total %d differs from component sum %d; using component sum", row.Total, b.Subtotal),
			StoredTotal: row.Total,
			Computed:    b.Subtotal,
		}
		q.Warnings = append(q.Warnings, w)
		e.observer.Inconsistency(string(in.Kind))
		e.logger.Warn("tariff row inconsistent", append(logging.Table(table),
			zap.String("key", w.Key),
			zap.Int64("stored_total", row.Total),
			zap.Int64("computed_subtotal", b.Subtotal))...)
	}

	return q, nil
}

var (
	idMu      sync.Mutex
	idEntropy = ulid.Monotonic(rand.Reader, 0)
)

// newQuoteID returns a ULID so quote IDs sort by computation time.
// IDs minted within the same millisecond keep increasing.
func newQuoteID(at time.Time) string {
	idMu.Lock()
	defer idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), idEntropy).String()
}

func statusLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if e, ok := errors.As(err); ok {
		return strings.ToLower(string(e.Type))
	}
	return "error"
}
