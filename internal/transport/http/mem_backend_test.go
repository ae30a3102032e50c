package httptransport

import (
	"context"
	"sync"
	"time"

	"lightning-mint/internal/invoice"
	"lightning-mint/internal/lightning"
	"lightning-mint/internal/store"
)

// memBackend stands in for Postgres behind every service the router wires
// up. Semantics mirror the repository layer: conditional updates return
// whether they won, inserts on an existing idempotency key lose.
type memBackend struct {
	mu           sync.Mutex
	sessions     map[string]store.GameSession
	proofs       map[string]store.CompletedGameProof
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

func newMemBackend(capacity int64) *memBackend {
	return &memBackend{
		sessions:     make(map[string]store.GameSession),
		proofs:       make(map[string]store.CompletedGameProof),
		invoices:     make(map[string]store.Invoice),
		records:      make(map[string]store.IdempotencyRecord),
		reservations: make(map[string]*memReservation),
		capacity:     capacity,
	}
}

func (m *memBackend) Ping(context.Context) error { return nil }

func (m *memBackend) CreateGameSession(_ context.Context, sess store.GameSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *memBackend) GetGameSession(_ context.Context, id string) (*store.GameSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := sess
	return &cp, nil
}

func (m *memBackend) AppendCheckpoint(_ context.Context, cp store.Checkpoint, suspicionDelta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[cp.SessionID]
	if !ok || sess.Status != "active" {
		return store.ErrNotFound
	}
	sess.CheckpointCount++
	sess.LastScore = cp.Score
	sess.LastCheckpointAt = cp.RecordedAt
	sess.SuspicionCount += suspicionDelta
	m.sessions[cp.SessionID] = sess
	return nil
}

func (m *memBackend) CompleteGameSession(_ context.Context, id string, finalScore int64, tier string, proof store.CompletedGameProof) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok || sess.Status != "active" {
		return store.ErrNotFound
	}
	sess.Status = "completed"
	sess.FinalScore = finalScore
	sess.Tier = tier
	m.sessions[id] = sess
	m.proofs[id] = proof
	return nil
}

func (m *memBackend) GetProof(_ context.Context, sessionID string) (*store.CompletedGameProof, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	proof, ok := m.proofs[sessionID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := proof
	return &cp, nil
}

func (m *memBackend) ExpireGameSessions(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (m *memBackend) CreateInvoice(_ context.Context, inv store.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoices[inv.ID] = inv
	return nil
}

func (m *memBackend) GetInvoice(_ context.Context, id string) (*store.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := inv
	return &cp, nil
}

func (m *memBackend) TransitionInvoice(_ context.Context, id, from, to string) (bool, error) {
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

func (m *memBackend) MarkInvoicePaid(_ context.Context, id string, amountPaid int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok || inv.Status != invoice.StatusAwaitingPayment {
		return false, nil
	}
	inv.Status = invoice.StatusPaid
	inv.AmountPaidSats = amountPaid
	m.invoices[id] = inv
	return true, nil
}

func (m *memBackend) MarkInvoiceAmountMismatch(_ context.Context, id string, amountPaid int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok || inv.Status != invoice.StatusAwaitingPayment {
		return false, nil
	}
	inv.Status = invoice.StatusAmountMismatch
	inv.AmountPaidSats = amountPaid
	m.invoices[id] = inv
	return true, nil
}

func (m *memBackend) MarkInvoiceDelivered(_ context.Context, id string, artifact []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok || inv.Status != invoice.StatusDistributing {
		return false, nil
	}
	inv.Status = invoice.StatusDelivered
	inv.Artifact = artifact
	m.invoices[id] = inv
	return true, nil
}

func (m *memBackend) IncrementDistributionAttempts(_ context.Context, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return 0, store.ErrNotFound
	}
	inv.DistributionAttempts++
	m.invoices[id] = inv
	return inv.DistributionAttempts, nil
}

func (m *memBackend) ListInvoicesByStatus(_ context.Context, status string, limit int) ([]store.Invoice, error) {
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

func (m *memBackend) ListExpiredAwaiting(_ context.Context, now time.Time, limit int) ([]store.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Invoice
	for _, inv := range m.invoices {
		if inv.Status == invoice.StatusAwaitingPayment && now.After(inv.ExpiresAt) && len(out) < limit {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *memBackend) InsertIdempotencyRecord(_ context.Context, rec store.IdempotencyRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[rec.Key]; exists {
		return false, nil
	}
	m.records[rec.Key] = rec
	return true, nil
}

func (m *memBackend) GetIdempotencyRecord(_ context.Context, key string) (*store.IdempotencyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := rec
	return &cp, nil
}

func (m *memBackend) DeleteExpiredIdempotencyRecords(_ context.Context, now time.Time) (int64, error) {
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

func (m *memBackend) TryReserveUnits(_ context.Context, reservationID string, units int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.distributed+units > m.capacity {
		return false, nil
	}
	m.distributed += units
	m.reservations[reservationID] = &memReservation{units: units, state: store.ReservationReserved}
	return true, nil
}

func (m *memBackend) ReleaseReservation(_ context.Context, reservationID string) error {
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

func (m *memBackend) CommitReservation(_ context.Context, reservationID string) error {
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

func (m *memBackend) GetSupplyState(_ context.Context) (store.SupplyState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return store.SupplyState{DistributedUnits: m.distributed, TotalCapacityUnits: m.capacity}, nil
}

type fakeIssuer struct {
	mu     sync.Mutex
	issued int
}

func (f *fakeIssuer) Issue(_ context.Context, _ int64, _ string, _ time.Duration) (*lightning.Issued, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issued++
	return &lightning.Issued{ExternalID: store.NewID(), PaymentRequest: "lnbc-test"}, nil
}

func (f *fakeIssuer) CheckStatus(context.Context, string) (*lightning.Status, error) {
	return &lightning.Status{}, nil
}

type fakeProducer struct{}

func (fakeProducer) Produce(context.Context, string, int64) ([]byte, error) {
	return []byte("consignment-bytes"), nil
}
