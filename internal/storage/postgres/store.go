package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"escrowScope/internal/cache"
	"escrowScope/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS escrow_events (
	chain_id BIGINT NOT NULL,
	tx_hash TEXT NOT NULL,
	log_index NUMERIC(20, 0) NOT NULL,
	kind TEXT NOT NULL,
	agreement_id NUMERIC(78, 0) NOT NULL,
	block_number NUMERIC(20, 0) NOT NULL,
	block_time TIMESTAMPTZ NOT NULL,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (chain_id, tx_hash, log_index)
);
CREATE INDEX IF NOT EXISTS escrow_events_agreement_idx ON escrow_events (chain_id, kind, agreement_id);

CREATE TABLE IF NOT EXISTS escrow_agreements (
	chain_id BIGINT NOT NULL,
	agreement_id NUMERIC(78, 0) NOT NULL,
	company TEXT NOT NULL,
	worker TEXT NOT NULL,
	status TEXT NOT NULL,
	payment_type TEXT NOT NULL,
	total_budget NUMERIC(78, 0) NOT NULL,
	amount_released NUMERIC(78, 0) NOT NULL,
	snapshot JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (chain_id, agreement_id)
);

CREATE TABLE IF NOT EXISTS cache_entries (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store provides Postgres persistence for exported events, agreement snapshots
// and the shared event cache.
type Store struct {
	pool    *pgxpool.Pool
	chainID uint64
}

func NewStore(ctx context.Context, dsn string, chainID uint64) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, chainID: chainID}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables used by the store if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// PutEventBatch inserts or updates normalized event records.
func (s *Store) PutEventBatch(ctx context.Context, records []model.EventRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, record := range records {
		payload, err := json.Marshal(record.Payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		blockTime := record.Time()
		if blockTime.IsZero() {
			return fmt.Errorf("record %s has no timestamp", record.TxHash)
		}
		batch.Queue(`
			INSERT INTO escrow_events (
				chain_id, tx_hash, log_index, kind, agreement_id, block_number, block_time, payload, created_at
			) VALUES ($1, $2, $3::numeric, $4, $5::numeric, $6::numeric, $7, $8, now())
			ON CONFLICT (chain_id, tx_hash, log_index)
			DO UPDATE SET
				kind = EXCLUDED.kind,
				agreement_id = EXCLUDED.agreement_id,
				block_number = EXCLUDED.block_number,
				block_time = EXCLUDED.block_time,
				payload = EXCLUDED.payload
		`,
			int64(s.chainID),
			record.TxHash,
			fmt.Sprint(record.LogIndex),
			string(record.Kind),
			record.SubjectID,
			fmt.Sprint(record.BlockNumber),
			blockTime,
			payload,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// PutAgreements inserts or updates agreement snapshots.
func (s *Store) PutAgreements(ctx context.Context, states []model.AggregateState) error {
	if len(states) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, state := range states {
		snapshot, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("marshal agreement %s: %w", state.ID, err)
		}
		batch.Queue(`
			INSERT INTO escrow_agreements (
				chain_id, agreement_id, company, worker, status, payment_type,
				total_budget, amount_released, snapshot, updated_at
			) VALUES ($1, $2::numeric, $3, $4, $5, $6, $7::numeric, $8::numeric, $9, now())
			ON CONFLICT (chain_id, agreement_id)
			DO UPDATE SET
				company = EXCLUDED.company,
				worker = EXCLUDED.worker,
				status = EXCLUDED.status,
				payment_type = EXCLUDED.payment_type,
				total_budget = EXCLUDED.total_budget,
				amount_released = EXCLUDED.amount_released,
				snapshot = EXCLUDED.snapshot,
				updated_at = now()
		`,
			int64(s.chainID),
			state.ID,
			state.Company,
			state.Worker,
			state.StatusLabel,
			state.PaymentTypeLabel,
			state.TotalBudget.Raw,
			state.AmountReleased.Raw,
			snapshot,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range states {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// CacheStore exposes the cache_entries table as an event cache backend.
func (s *Store) CacheStore() *CacheStore {
	return &CacheStore{store: s}
}

var _ cache.Store = (*CacheStore)(nil)

// CacheStore persists serialized cache entries, one row per key.
type CacheStore struct {
	store *Store
}

func (c *CacheStore) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("cache key required")
	}
	var value string
	row := c.store.pool.QueryRow(ctx, `SELECT value FROM cache_entries WHERE key=$1`, key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", cache.ErrNotFound
		}
		return "", err
	}
	return value, nil
}

func (c *CacheStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("cache key required")
	}
	_, err := c.store.pool.Exec(ctx, `
		INSERT INTO cache_entries (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, key, value, time.Now().UTC())
	return err
}
