package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"lightning-mint/internal/store"
	"lightning-mint/internal/testutil"
)

func insertTestInvoice(t *testing.T, st *store.Store, status string) store.Invoice {
	t.Helper()
	inv := store.Invoice{
		ID:                  store.NewID(),
		RGBRecipient:        "utxob:test-recipient",
		UnitCount:           2,
		AmountExpectedSats:  2000,
		AmountToleranceSats: 10,
		Tier:                "a",
		IdempotencyKey:      store.NewID(),
		Status:              status,
		ReservationID:       store.NewID(),
		ExternalID:          "ext_" + store.NewID(),
		PaymentRequest:      "lnbc1...",
		CreatedAt:           time.Now().UTC(),
		ExpiresAt:           time.Now().UTC().Add(15 * time.Minute),
	}
	if err := st.CreateInvoice(context.Background(), inv); err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	return inv
}

func TestInvoiceRoundTrip(t *testing.T) {
	st, cleanup := testutil.OpenTestStore(t)
	ctx := context.Background()
	defer cleanup()

	inv := insertTestInvoice(t, st, "awaiting_payment")
	got, err := st.GetInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatalf("get invoice: %v", err)
	}
	if got.RGBRecipient != inv.RGBRecipient || got.Status != "awaiting_payment" {
		t.Fatalf("unexpected invoice: %+v", got)
	}

	if _, err := st.GetInvoice(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing invoice err = %v, want store.ErrNotFound", err)
	}
}

func TestMarkInvoicePaidExactlyOnce(t *testing.T) {
	st, cleanup := testutil.OpenTestStore(t)
	ctx := context.Background()
	defer cleanup()

	inv := insertTestInvoice(t, st, "awaiting_payment")

	won, err := st.MarkInvoicePaid(ctx, inv.ID, 2000)
	if err != nil || !won {
		t.Fatalf("first paid: won=%v err=%v", won, err)
	}
	won, err = st.MarkInvoicePaid(ctx, inv.ID, 2000)
	if err != nil {
		t.Fatalf("second paid: %v", err)
	}
	if won {
		t.Fatal("second paid transition should lose")
	}

	got, _ := st.GetInvoice(ctx, inv.ID)
	if got.Status != "paid" || got.AmountPaidSats != 2000 {
		t.Fatalf("unexpected invoice after paid: %+v", got)
	}
}

func TestTransitionInvoiceConditional(t *testing.T) {
	st, cleanup := testutil.OpenTestStore(t)
	ctx := context.Background()
	defer cleanup()

	inv := insertTestInvoice(t, st, "paid")

	won, err := st.TransitionInvoice(ctx, inv.ID, "paid", "distributing")
	if err != nil || !won {
		t.Fatalf("paid->distributing: won=%v err=%v", won, err)
	}
	won, err = st.TransitionInvoice(ctx, inv.ID, "paid", "distributing")
	if err != nil {
		t.Fatalf("repeat transition: %v", err)
	}
	if won {
		t.Fatal("repeat transition should lose")
	}

	delivered, err := st.MarkInvoiceDelivered(ctx, inv.ID, []byte("consignment"))
	if err != nil || !delivered {
		t.Fatalf("deliver: won=%v err=%v", delivered, err)
	}
	got, _ := st.GetInvoice(ctx, inv.ID)
	if got.Status != "delivered" || string(got.Artifact) != "consignment" {
		t.Fatalf("unexpected delivered invoice: %+v", got)
	}
}

func TestListExpiredAwaiting(t *testing.T) {
	st, cleanup := testutil.OpenTestStore(t)
	ctx := context.Background()
	defer cleanup()

	inv := insertTestInvoice(t, st, "awaiting_payment")
	if _, err := st.DB.ExecContext(ctx,
		`UPDATE invoices SET expires_at = now() - interval '1 minute' WHERE id = $1`, inv.ID); err != nil {
		t.Fatalf("age invoice: %v", err)
	}
	insertTestInvoice(t, st, "awaiting_payment")

	items, err := st.ListExpiredAwaiting(ctx, time.Now().UTC(), 10)
	if err != nil {
		t.Fatalf("list expired: %v", err)
	}
	if len(items) != 1 || items[0].ID != inv.ID {
		t.Fatalf("unexpected expired list: %+v", items)
	}
}

func TestIdempotencyInsertOnce(t *testing.T) {
	st, cleanup := testutil.OpenTestStore(t)
	ctx := context.Background()
	defer cleanup()

	rec := store.IdempotencyRecord{
		Key:          "k1",
		CachedResult: []byte(`{"invoice_id":"x"}`),
		CreatedAt:    time.Now().UTC(),
		ExpiresAt:    time.Now().UTC().Add(24 * time.Hour),
	}
	inserted, err := st.InsertIdempotencyRecord(ctx, rec)
	if err != nil || !inserted {
		t.Fatalf("first insert: inserted=%v err=%v", inserted, err)
	}
	inserted, err = st.InsertIdempotencyRecord(ctx, rec)
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if inserted {
		t.Fatal("second insert should not win")
	}

	got, err := st.GetIdempotencyRecord(ctx, "k1")
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if string(got.CachedResult) != `{"invoice_id":"x"}` {
		t.Fatalf("unexpected cached result: %s", got.CachedResult)
	}
}
