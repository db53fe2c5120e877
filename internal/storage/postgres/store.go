package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SweetieBirdX/CipherSwap-sub000/internal/model"
)

// Store provides Postgres persistence for swap and bundle history.
// Records are upserted by id; rows are never deleted.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// PutSwap inserts or updates a swap record.
func (s *Store) PutSwap(ctx context.Context, record model.SwapRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal swap record: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO swap_records (swap_id, user_address, status, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (swap_id)
		DO UPDATE SET
			status = EXCLUDED.status,
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at
	`,
		record.SwapID,
		record.Request.UserAddress,
		string(record.Status),
		payload,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert swap record: %w", err)
	}
	return nil
}

// GetSwap loads a swap record by id.
func (s *Store) GetSwap(ctx context.Context, id string) (model.SwapRecord, bool, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `SELECT payload FROM swap_records WHERE swap_id = $1`, id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.SwapRecord{}, false, nil
	}
	if err != nil {
		return model.SwapRecord{}, false, fmt.Errorf("query swap record: %w", err)
	}

	var record model.SwapRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return model.SwapRecord{}, false, fmt.Errorf("decode swap record: %w", err)
	}
	return record, true, nil
}

// ListSwapsByAddress returns all swap records owned by an address.
func (s *Store) ListSwapsByAddress(ctx context.Context, address string) ([]model.SwapRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT payload FROM swap_records WHERE user_address = $1 ORDER BY created_at
	`, address)
	if err != nil {
		return nil, fmt.Errorf("query swap records: %w", err)
	}
	defer rows.Close()

	var out []model.SwapRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan swap record: %w", err)
		}
		var record model.SwapRecord
		if err := json.Unmarshal(payload, &record); err != nil {
			return nil, fmt.Errorf("decode swap record: %w", err)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// PutBundle inserts or updates a bundle record.
func (s *Store) PutBundle(ctx context.Context, record model.BundleRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal bundle record: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO bundle_records (bundle_id, user_address, status, target_block, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (bundle_id)
		DO UPDATE SET
			status = EXCLUDED.status,
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at
	`,
		record.BundleID,
		record.UserAddress,
		string(record.Status),
		int64(record.TargetBlock),
		payload,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert bundle record: %w", err)
	}
	return nil
}

// GetBundle loads a bundle record by id.
func (s *Store) GetBundle(ctx context.Context, id string) (model.BundleRecord, bool, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `SELECT payload FROM bundle_records WHERE bundle_id = $1`, id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.BundleRecord{}, false, nil
	}
	if err != nil {
		return model.BundleRecord{}, false, fmt.Errorf("query bundle record: %w", err)
	}

	var record model.BundleRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return model.BundleRecord{}, false, fmt.Errorf("decode bundle record: %w", err)
	}
	return record, true, nil
}

// ListBundlesByAddress returns all bundle records owned by an address.
func (s *Store) ListBundlesByAddress(ctx context.Context, address string) ([]model.BundleRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT payload FROM bundle_records WHERE user_address = $1 ORDER BY created_at
	`, address)
	if err != nil {
		return nil, fmt.Errorf("query bundle records: %w", err)
	}
	defer rows.Close()

	var out []model.BundleRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan bundle record: %w", err)
		}
		var record model.BundleRecord
		if err := json.Unmarshal(payload, &record); err != nil {
			return nil, fmt.Errorf("decode bundle record: %w", err)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}
