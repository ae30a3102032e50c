package store

import "context"

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS game_sessions (
		id TEXT PRIMARY KEY,
		owner_identity TEXT NOT NULL,
		seed BIGINT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		checkpoint_count INT NOT NULL DEFAULT 0,
		last_score BIGINT NOT NULL DEFAULT 0,
		last_checkpoint_at TIMESTAMPTZ,
		suspicion_count INT NOT NULL DEFAULT 0,
		final_score BIGINT NOT NULL DEFAULT 0,
		tier TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		completed_at TIMESTAMPTZ,
		expires_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS game_checkpoints (
		session_id TEXT NOT NULL REFERENCES game_sessions(id),
		seq INT NOT NULL,
		score BIGINT NOT NULL,
		client_timestamp BIGINT NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		suspicious BOOLEAN NOT NULL DEFAULT false,
		PRIMARY KEY (session_id, seq)
	)`,
	`CREATE TABLE IF NOT EXISTS game_proofs (
		session_id TEXT PRIMARY KEY REFERENCES game_sessions(id),
		owner_identity TEXT NOT NULL,
		score BIGINT NOT NULL,
		tier TEXT NOT NULL,
		issued_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		valid_until TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		rgb_recipient TEXT NOT NULL,
		unit_count BIGINT NOT NULL,
		amount_expected_sats BIGINT NOT NULL,
		amount_tolerance_sats BIGINT NOT NULL,
		amount_paid_sats BIGINT NOT NULL DEFAULT 0,
		tier TEXT NOT NULL,
		idempotency_key TEXT NOT NULL,
		status TEXT NOT NULL,
		reservation_id TEXT NOT NULL,
		external_id TEXT NOT NULL,
		payment_request TEXT NOT NULL,
		distribution_attempts INT NOT NULL DEFAULT 0,
		artifact BYTEA,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		expires_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS invoices_status_idx ON invoices (status)`,
	`CREATE TABLE IF NOT EXISTS idempotency_records (
		key TEXT PRIMARY KEY,
		cached_result BYTEA NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		expires_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS supply_counter (
		id INT PRIMARY KEY,
		distributed_units BIGINT NOT NULL DEFAULT 0,
		total_capacity_units BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id TEXT PRIMARY KEY,
		units BIGINT NOT NULL,
		state TEXT NOT NULL DEFAULT 'reserved',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// EnsureSchema creates missing tables. Statements are idempotent so startup
// can run this unconditionally.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// EnsureSupplyCounter seeds the single counter row. Capacity follows config
// across boots but is never shrunk below already-distributed units.
func (s *Store) EnsureSupplyCounter(ctx context.Context, capacity int64) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO supply_counter (id, distributed_units, total_capacity_units)
		VALUES (1, 0, $1)
		ON CONFLICT (id) DO UPDATE
		SET total_capacity_units = GREATEST(EXCLUDED.total_capacity_units, supply_counter.distributed_units)`,
		capacity)
	return err
}
