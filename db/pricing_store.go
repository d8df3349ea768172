package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"motor-tariff/core/determinism"
	"motor-tariff/core/tariff"
	terrors "motor-tariff/internal/errors"
)

// ErrTableExists is returned when a table ID or version is already stored
var ErrTableExists = errors.New("tariff table already stored")

// TableInfo is the header of a stored table
type TableInfo struct {
	ID          tariff.TableID `json:"id"`
	Version     int            `json:"version"`
	ContentHash string         `json:"contentHash"`
	Source      string         `json:"source"`
	EffectiveAt time.Time      `json:"effectiveAt"`
	CreatedAt   time.Time      `json:"createdAt"`
	Active      bool           `json:"active"`
}

// PricingStore persists tariff tables. It implements tariff.Store.
type PricingStore struct {
	db *pgxpool.Pool
}

// NewPricingStore creates a store
func NewPricingStore(db *pgxpool.Pool) *PricingStore {
	return &PricingStore{db: db}
}

var rowColumns = []string{
	"table_id", "kind", "code", "variant", "label",
	"net_premium", "stamp_fee", "war_effort", "local_administration",
	"reconstruction", "martyr_fund", "total",
}

// Create stores a table and its rows in one transaction. Stored tables are never updated.
func (s *PricingStore) Create(ctx context.Context, t *tariff.Table) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO tariff_tables (id, version, content_hash, source, effective_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT DO NOTHING`,
		string(t.ID), t.Version, t.ContentHash.Hex(), t.Source.String(), t.EffectiveAt, t.CreatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s (version %d)", ErrTableExists, t.ID, t.Version)
	}

	entries := t.Entries()
	_, err = tx.CopyFrom(ctx, pgx.Identifier{"tariff_rows"}, rowColumns,
		pgx.CopyFromSlice(len(entries), func(i int) ([]any, error) {
			e := entries[i]
			return []any{
				string(t.ID), string(e.Key.Kind), e.Key.Code, e.Key.Variant, e.Row.Label,
				e.Row.NetPremium, e.Row.StampFee, e.Row.WarEffort, e.Row.LocalAdministration,
				e.Row.Reconstruction, e.Row.MartyrFund, e.Row.Total,
			}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to copy tariff rows: %w", err)
	}

	return tx.Commit(ctx)
}

// Activate makes the table with the given ID the single active one
func (s *PricingStore) Activate(ctx context.Context, id tariff.TableID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE tariff_tables SET active = FALSE WHERE active`); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `
		UPDATE tariff_tables SET active = TRUE, activated_at = NOW()
		WHERE id = $1`, string(id),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return terrors.NotFound("tariff table", string(id))
	}
	return tx.Commit(ctx)
}

// ActiveInfo returns the header of the active table without loading rows
func (s *PricingStore) ActiveInfo(ctx context.Context) (TableInfo, error) {
	info, err := scanInfo(s.db.QueryRow(ctx, `
		SELECT id, version, content_hash, source, effective_at, created_at, active
		FROM tariff_tables
		WHERE active`))
	if errors.Is(err, pgx.ErrNoRows) {
		return TableInfo{}, tariff.ErrNoTable
	}
	return info, err
}

// ActiveTable loads the active table
func (s *PricingStore) ActiveTable(ctx context.Context) (*tariff.Table, error) {
	info, err := s.ActiveInfo(ctx)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, info)
}

// Table loads a table by ID
func (s *PricingStore) Table(ctx context.Context, id tariff.TableID) (*tariff.Table, error) {
	info, err := scanInfo(s.db.QueryRow(ctx, `
		SELECT id, version, content_hash, source, effective_at, created_at, active
		FROM tariff_tables
		WHERE id = $1`, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, terrors.NotFound("tariff table", string(id))
	}
	if err != nil {
		return nil, err
	}
	return s.load(ctx, info)
}

// Row returns one row of the table with the given version
func (s *PricingStore) Row(ctx context.Context, key tariff.Key, version int) (tariff.Row, bool, error) {
	var r tariff.Row
	err := s.db.QueryRow(ctx, `
		SELECT r.label, r.net_premium, r.stamp_fee, r.war_effort, r.local_administration,
		       r.reconstruction, r.martyr_fund, r.total
		FROM tariff_rows r
		JOIN tariff_tables t ON t.id = r.table_id
		WHERE t.version = $1 AND r.kind = $2 AND r.code = $3 AND r.variant = $4`,
		version, string(key.Kind), key.Code, key.Variant,
	).Scan(&r.Label, &r.NetPremium, &r.StampFee, &r.WarEffort, &r.LocalAdministration,
		&r.Reconstruction, &r.MartyrFund, &r.Total)
	if errors.Is(err, pgx.ErrNoRows) {
		return tariff.Row{}, false, nil
	}
	if err != nil {
		return tariff.Row{}, false, err
	}
	return r, true, nil
}

// ListVersions returns all table headers, newest first
func (s *PricingStore) ListVersions(ctx context.Context) ([]TableInfo, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, version, content_hash, source, effective_at, created_at, active
		FROM tariff_tables
		ORDER BY version DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TableInfo
	for rows.Next() {
		info, err := scanInfo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *PricingStore) load(ctx context.Context, info TableInfo) (*tariff.Table, error) {
	rows, err := s.db.Query(ctx, `
		SELECT kind, code, variant, label, net_premium, stamp_fee, war_effort,
		       local_administration, reconstruction, martyr_fund, total
		FROM tariff_rows
		WHERE table_id = $1`, string(info.ID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	b := tariff.NewBuilder(info.Version).
		WithSource(tariff.SourceDatabase).
		WithEffectiveAt(info.EffectiveAt).
		WithCreatedAt(info.CreatedAt)
	for rows.Next() {
		var kind string
		var key tariff.Key
		var r tariff.Row
		if err := rows.Scan(&kind, &key.Code, &key.Variant, &r.Label, &r.NetPremium, &r.StampFee,
			&r.WarEffort, &r.LocalAdministration, &r.Reconstruction, &r.MartyrFund, &r.Total); err != nil {
			return nil, err
		}
		key.Kind = tariff.Kind(kind)
		b.AddRow(key, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	t, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("stored table %s is invalid: %w", info.ID, err)
	}
	stored, err := determinism.ParseContentHash(info.ContentHash)
	if err != nil || stored != t.ContentHash {
		return nil, fmt.Errorf("%w: table %s", tariff.ErrHashMismatch, info.ID)
	}
	return t, nil
}

func scanInfo(row pgx.Row) (TableInfo, error) {
	var info TableInfo
	var id string
	err := row.Scan(&id, &info.Version, &info.ContentHash, &info.Source, &info.EffectiveAt, &info.CreatedAt, &info.Active)
	info.ID = tariff.TableID(id)
	return info, err
}
