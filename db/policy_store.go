package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"motor-tariff/core/policy"
	terrors "motor-tariff/internal/errors"
)

// PolicyStore persists issued policy records
type PolicyStore struct {
	db *pgxpool.Pool
}

// NewPolicyStore creates a store
func NewPolicyStore(db *pgxpool.Pool) *PolicyStore {
	return &PolicyStore{db: db}
}

// Create validates and inserts a record, assigning an ID when it has none
func (s *PolicyStore) Create(ctx context.Context, r *policy.Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO policy_records (
			id, vehicle_id, policy_number, amount, payment_method, paid_by, payer_phone,
			payment_status, pricing_input, breakdown, table_version, table_hash,
			policy_start_at, policy_end_at, issued_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		r.ID, r.VehicleID, r.PolicyNumber, r.Amount, string(r.PaymentMethod), r.PaidBy, r.PayerPhone,
		string(r.PaymentStatus), r.PricingInput, r.Breakdown, r.TableVersion, r.TableHash,
		r.StartAt, r.EndAt, r.IssuedAt,
	)
	return err
}

const selectRecord = `
	SELECT id, vehicle_id, policy_number, amount, payment_method, paid_by, payer_phone,
	       payment_status, pricing_input, breakdown, table_version, table_hash,
	       policy_start_at, policy_end_at, issued_at
	FROM policy_records`

// Get returns a record by ID
func (s *PolicyStore) Get(ctx context.Context, id string) (*policy.Record, error) {
	r, err := scanRecord(s.db.QueryRow(ctx, selectRecord+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, terrors.NotFound("policy record", id)
	}
	return r, err
}

// ListByVehicle returns a vehicle's records, newest first
func (s *PolicyStore) ListByVehicle(ctx context.Context, vehicleID string) ([]*policy.Record, error) {
	rows, err := s.db.Query(ctx, selectRecord+` WHERE vehicle_id = $1 ORDER BY issued_at DESC`, vehicleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*policy.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRecord(row pgx.Row) (*policy.Record, error) {
	var r policy.Record
	var method, status string
	err := row.Scan(
		&r.ID, &r.VehicleID, &r.PolicyNumber, &r.Amount, &method, &r.PaidBy, &r.PayerPhone,
		&status, &r.PricingInput, &r.Breakdown, &r.TableVersion, &r.TableHash,
		&r.StartAt, &r.EndAt, &r.IssuedAt,
	)
	if err != nil {
		return nil, err
	}
	r.PaymentMethod = policy.PaymentMethod(method)
	r.PaymentStatus = policy.PaymentStatus(status)
	return &r, nil
}
