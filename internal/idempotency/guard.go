package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"lightning-mint/internal/store"
)

// Store is the persistence surface the guard needs; *store.Store satisfies
// it. InsertIdempotencyRecord must be atomic for concurrent callers on the
// same key (unique-key insert), which is what makes CheckOrStore race-safe.
type Store interface {
	InsertIdempotencyRecord(ctx context.Context, rec store.IdempotencyRecord) (bool, error)
	GetIdempotencyRecord(ctx context.Context, key string) (*store.IdempotencyRecord, error)
	DeleteExpiredIdempotencyRecords(ctx context.Context, now time.Time) (int64, error)
}

// Guard deduplicates purchase requests. Keys are derived from the fields
// that define "the same request" plus a coarse time bucket, so client
// retries collide while later, genuinely new purchases do not.
type Guard struct {
	store  Store
	bucket time.Duration
	ttl    time.Duration
	now    func() time.Time
}

func NewGuard(st Store, bucket, ttl time.Duration) *Guard {
	if bucket <= 0 {
		bucket = time.Minute
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Guard{store: st, bucket: bucket, ttl: ttl, now: time.Now}
}

// DeriveKey fingerprints the semantically meaningful request fields. The
// bucket index (not the raw timestamp) goes into the hash so requests close
// in time land on the same key.
func (g *Guard) DeriveKey(recipient string, unitCount, amountSats int64, at time.Time) string {
	bucket := at.UTC().UnixNano() / int64(g.bucket)
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%d|%d", recipient, unitCount, amountSats, bucket)))
	return hex.EncodeToString(h[:])
}

// CheckOrStore returns the previously cached result for key, or stores
// result and returns nil when this caller is first. Exactly one concurrent
// caller per key sees nil.
func (g *Guard) CheckOrStore(ctx context.Context, key string, result []byte) ([]byte, error) {
	now := g.now().UTC()
	inserted, err := g.store.InsertIdempotencyRecord(ctx, store.IdempotencyRecord{
		Key:          key,
		CachedResult: result,
		CreatedAt:    now,
		ExpiresAt:    now.Add(g.ttl),
	})
	if err != nil {
		return nil, err
	}
	if inserted {
		return nil, nil
	}
	rec, err := g.store.GetIdempotencyRecord(ctx, key)
	if err != nil {
		if err == store.ErrNotFound {
			// evicted between insert and read; treat as fresh
			return nil, nil
		}
		return nil, err
	}
	metricDuplicatesSuppressed.Add(1)
	return rec.CachedResult, nil
}

// Check returns the cached result without storing anything.
func (g *Guard) Check(ctx context.Context, key string) ([]byte, error) {
	rec, err := g.store.GetIdempotencyRecord(ctx, key)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	if g.now().UTC().After(rec.ExpiresAt) {
		return nil, nil
	}
	return rec.CachedResult, nil
}
