package supply

import (
	"context"
	"errors"

	"lightning-mint/internal/store"
)

var (
	ErrCapacityExceeded    = errors.New("capacity_exceeded")
	ErrReservationNotFound = errors.New("reservation_not_found")
	ErrAlreadyCommitted    = errors.New("reservation_already_committed")
	ErrReservationReleased = errors.New("reservation_already_released")
)

// Store is the persistence surface the ledger needs; *store.Store satisfies
// it. TryReserveUnits must be linearizable across callers.
type Store interface {
	TryReserveUnits(ctx context.Context, reservationID string, units int64) (bool, error)
	ReleaseReservation(ctx context.Context, reservationID string) error
	CommitReservation(ctx context.Context, reservationID string) error
	GetSupplyState(ctx context.Context) (store.SupplyState, error)
}

// Ledger is the sole authority on remaining capacity. Reservations are taken
// at invoice-creation time, before payment, so an unpaid invoice's units can
// never be advertised to a second buyer.
type Ledger struct {
	store Store
}

func New(st Store) *Ledger {
	return &Ledger{store: st}
}

// TryReserve claims units against the cap and returns a reservation id, or
// ErrCapacityExceeded with no side effects.
func (l *Ledger) TryReserve(ctx context.Context, units int64) (string, error) {
	id := store.NewID()
	ok, err := l.store.TryReserveUnits(ctx, id, units)
	if err != nil {
		return "", err
	}
	if !ok {
		metricReserveRejected.Add(1)
		return "", ErrCapacityExceeded
	}
	metricUnitsReserved.Add(units)
	return id, nil
}

// Release hands reserved units back. Safe to call twice; refuses to touch a
// committed reservation.
func (l *Ledger) Release(ctx context.Context, reservationID string) error {
	err := l.store.ReleaseReservation(ctx, reservationID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrReservationNotFound
	case errors.Is(err, store.ErrReservationCommitted):
		return ErrAlreadyCommitted
	default:
		return err
	}
}

// Commit marks a reservation permanently consumed.
func (l *Ledger) Commit(ctx context.Context, reservationID string) error {
	err := l.store.CommitReservation(ctx, reservationID)
	switch {
	case err == nil:
		metricReservationsCommitted.Add(1)
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrReservationNotFound
	case errors.Is(err, store.ErrReservationReleased):
		return ErrReservationReleased
	default:
		return err
	}
}

func (l *Ledger) State(ctx context.Context) (store.SupplyState, error) {
	return l.store.GetSupplyState(ctx)
}
