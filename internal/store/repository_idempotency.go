package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// InsertIdempotencyRecord stores a record unless the key already exists.
// The unique-key insert is what makes concurrent check-then-store safe.
func (s *Store) InsertIdempotencyRecord(ctx context.Context, rec IdempotencyRecord) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO idempotency_records (key, cached_result, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO NOTHING`,
		rec.Key, rec.CachedResult, rec.CreatedAt, rec.ExpiresAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *Store) GetIdempotencyRecord(ctx context.Context, key string) (*IdempotencyRecord, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT key, cached_result, created_at, expires_at
		FROM idempotency_records WHERE key = $1`, key)
	var rec IdempotencyRecord
	if err := row.Scan(&rec.Key, &rec.CachedResult, &rec.CreatedAt, &rec.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (s *Store) DeleteExpiredIdempotencyRecords(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM idempotency_records WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
