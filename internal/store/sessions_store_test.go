package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"lightning-mint/internal/store"
	"lightning-mint/internal/testutil"
)

func insertTestSession(t *testing.T, st *store.Store) store.GameSession {
	t.Helper()
	now := time.Now().UTC()
	sess := store.GameSession{
		ID:            store.NewID(),
		OwnerIdentity: "10.0.0.1",
		Seed:          42,
		Status:        "active",
		CreatedAt:     now,
		ExpiresAt:     now.Add(time.Hour),
	}
	if err := st.CreateGameSession(context.Background(), sess); err != nil {
		t.Fatalf("create session: %v", err)
	}
	return sess
}

func TestAppendCheckpointUpdatesAggregates(t *testing.T) {
	st, cleanup := testutil.OpenTestStore(t)
	ctx := context.Background()
	defer cleanup()

	sess := insertTestSession(t, st)
	now := time.Now().UTC()
	cp := store.Checkpoint{
		SessionID:       sess.ID,
		Seq:             1,
		Score:           7,
		ClientTimestamp: now.UnixMilli(),
		RecordedAt:      now,
		Suspicious:      true,
	}
	if err := st.AppendCheckpoint(ctx, cp, 1); err != nil {
		t.Fatalf("append checkpoint: %v", err)
	}

	got, err := st.GetGameSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.CheckpointCount != 1 || got.LastScore != 7 || got.SuspicionCount != 1 {
		t.Fatalf("unexpected aggregates: %+v", got)
	}
}

func TestAppendCheckpointOnCompletedSession(t *testing.T) {
	st, cleanup := testutil.OpenTestStore(t)
	ctx := context.Background()
	defer cleanup()

	sess := insertTestSession(t, st)
	now := time.Now().UTC()
	proof := store.CompletedGameProof{
		SessionID:     sess.ID,
		OwnerIdentity: sess.OwnerIdentity,
		Score:         20,
		Tier:          "b",
		IssuedAt:      now,
		ValidUntil:    now.Add(10 * time.Minute),
	}
	if err := st.CompleteGameSession(ctx, sess.ID, 20, "b", proof); err != nil {
		t.Fatalf("complete session: %v", err)
	}

	cp := store.Checkpoint{SessionID: sess.ID, Seq: 1, Score: 5, RecordedAt: now}
	if err := st.AppendCheckpoint(ctx, cp, 0); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("append on completed = %v, want ErrNotFound", err)
	}
}

func TestCompleteGameSessionExactlyOnce(t *testing.T) {
	st, cleanup := testutil.OpenTestStore(t)
	ctx := context.Background()
	defer cleanup()

	sess := insertTestSession(t, st)
	now := time.Now().UTC()
	proof := store.CompletedGameProof{
		SessionID:     sess.ID,
		OwnerIdentity: sess.OwnerIdentity,
		Score:         30,
		Tier:          "c",
		IssuedAt:      now,
		ValidUntil:    now.Add(10 * time.Minute),
	}
	if err := st.CompleteGameSession(ctx, sess.ID, 30, "c", proof); err != nil {
		t.Fatalf("first complete: %v", err)
	}
	if err := st.CompleteGameSession(ctx, sess.ID, 30, "c", proof); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second complete = %v, want ErrNotFound", err)
	}

	got, err := st.GetProof(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get proof: %v", err)
	}
	if got.Tier != "c" || got.Score != 30 {
		t.Fatalf("unexpected proof: %+v", got)
	}
}

func TestExpireGameSessions(t *testing.T) {
	st, cleanup := testutil.OpenTestStore(t)
	ctx := context.Background()
	defer cleanup()

	stale := insertTestSession(t, st)
	if _, err := st.DB.ExecContext(ctx,
		`UPDATE game_sessions SET expires_at = now() - interval '1 minute' WHERE id = $1`, stale.ID); err != nil {
		t.Fatalf("age session: %v", err)
	}
	fresh := insertTestSession(t, st)

	n, err := st.ExpireGameSessions(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if n != 1 {
		t.Fatalf("expired %d sessions, want 1", n)
	}
	got, _ := st.GetGameSession(ctx, stale.ID)
	if got.Status != "expired" {
		t.Fatalf("stale status = %q", got.Status)
	}
	got, _ = st.GetGameSession(ctx, fresh.ID)
	if got.Status != "active" {
		t.Fatalf("fresh status = %q", got.Status)
	}
}
