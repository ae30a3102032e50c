package invoice

import (
	"context"
	"sync"
	"time"

	"lightning-mint/internal/lightning"
	"lightning-mint/internal/store"
)

// memStore mirrors the Postgres repository semantics in memory: conditional
// invoice transitions, unique-key idempotency inserts and the supply counter
// with reservation states.
type memStore struct {
	mu           sync.Mutex
	invoices     map[string]store.Invoice
	records      map[string]store.IdempotencyRecord
	reservations map[string]*memReservation
	distributed  int64
	capacity     int64
}

type memReservation struct {
	units int64
	state string
}

func newMemStore(capacity int64) *memStore {
	return &memStore{
		invoices:     make(map[string]store.Invoice),
		records:      make(map[string]store.IdempotencyRecord),
		reservations: make(map[string]*memReservation),
		capacity:     capacity,
	}
}

func (m *memStore) CreateInvoice(_ context.Context, inv store.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoices[inv.ID] = inv
	return nil
}

func (m *memStore) GetInvoice(_ context.Context, id string) (*store.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := inv
	return &cp, nil
}

func (m *memStore) TransitionInvoice(_ context.Context, id, from, to string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok || inv.Status != from {
		return false, nil
	}
	inv.Status = to
	m.invoices[id] = inv
	return true, nil
}

func (m *memStore) MarkInvoicePaid(_ context.Context, id string, amountPaid int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok || inv.Status != StatusAwaitingPayment {
		return false, nil
	}
	inv.Status = StatusPaid
	inv.AmountPaidSats = amountPaid
	m.invoices[id] = inv
	return true, nil
}

func (m *memStore) MarkInvoiceAmountMismatch(_ context.Context, id string, amountPaid int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok || inv.Status != StatusAwaitingPayment {
		return false, nil
	}
	inv.Status = StatusAmountMismatch
	inv.AmountPaidSats = amountPaid
	m.invoices[id] = inv
	return true, nil
}

func (m *memStore) ListInvoicesByStatus(_ context.Context, status string, limit int) ([]store.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Invoice
	for _, inv := range m.invoices {
		if inv.Status == status && len(out) < limit {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *memStore) ListExpiredAwaiting(_ context.Context, now time.Time, limit int) ([]store.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Invoice
	for _, inv := range m.invoices {
		if inv.Status == StatusAwaitingPayment && now.After(inv.ExpiresAt) && len(out) < limit {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *memStore) InsertIdempotencyRecord(_ context.Context, rec store.IdempotencyRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[rec.Key]; exists {
		return false, nil
	}
	m.records[rec.Key] = rec
	return true, nil
}

func (m *memStore) GetIdempotencyRecord(_ context.Context, key string) (*store.IdempotencyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := rec
	return &cp, nil
}

func (m *memStore) DeleteExpiredIdempotencyRecords(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, rec := range m.records {
		if now.After(rec.ExpiresAt) {
			delete(m.records, k)
			n++
		}
	}
	return n, nil
}

func (m *memStore) TryReserveUnits(_ context.Context, reservationID string, units int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.distributed+units > m.capacity {
		return false, nil
	}
	m.distributed += units
	m.reservations[reservationID] = &memReservation{units: units, state: store.ReservationReserved}
	return true, nil
}

func (m *memStore) ReleaseReservation(_ context.Context, reservationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[reservationID]
	if !ok {
		return store.ErrNotFound
	}
	switch res.state {
	case store.ReservationReleased:
		return nil
	case store.ReservationCommitted:
		return store.ErrReservationCommitted
	}
	res.state = store.ReservationReleased
	m.distributed -= res.units
	return nil
}

func (m *memStore) CommitReservation(_ context.Context, reservationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[reservationID]
	if !ok {
		return store.ErrNotFound
	}
	switch res.state {
	case store.ReservationCommitted:
		return nil
	case store.ReservationReleased:
		return store.ErrReservationReleased
	}
	res.state = store.ReservationCommitted
	return nil
}

func (m *memStore) GetSupplyState(_ context.Context) (store.SupplyState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return store.SupplyState{DistributedUnits: m.distributed, TotalCapacityUnits: m.capacity}, nil
}

func (m *memStore) countByStatus(status string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, inv := range m.invoices {
		if inv.Status == status {
			n++
		}
	}
	return n
}

type fakeIssuer struct {
	mu       sync.Mutex
	fail     bool
	issued   int
	statuses map[string]lightning.Status
}

func (f *fakeIssuer) Issue(_ context.Context, amountSats int64, _ string, _ time.Duration) (*lightning.Issued, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, context.DeadlineExceeded
	}
	f.issued++
	return &lightning.Issued{
		ExternalID:     store.NewID(),
		PaymentRequest: "lnbc-test-request",
	}, nil
}

func (f *fakeIssuer) CheckStatus(_ context.Context, externalID string) (*lightning.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.statuses[externalID]
	if !ok {
		return &lightning.Status{}, nil
	}
	return &st, nil
}

func (f *fakeIssuer) issueCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issued
}

type fakeVerifier struct {
	proof *store.CompletedGameProof
	err   error
}

func (f *fakeVerifier) VerifyProof(context.Context, string, string) (*store.CompletedGameProof, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.proof, nil
}

type fakeDistributor struct {
	mu       sync.Mutex
	enqueued []string
}

func (f *fakeDistributor) Enqueue(invoiceID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, invoiceID)
}

func (f *fakeDistributor) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.enqueued)
}
