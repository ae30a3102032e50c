package store

import (
	"context"
	"database/sql"
	"errors"
)

const (
	ReservationReserved  = "reserved"
	ReservationCommitted = "committed"
	ReservationReleased  = "released"
)

var (
	ErrReservationCommitted = errors.New("reservation_committed")
	ErrReservationReleased  = errors.New("reservation_released")
)

// TryReserveUnits atomically checks remaining capacity and claims units for
// a new reservation. The FOR UPDATE row lock serializes all reservers, which
// is what keeps distributed_units under the cap when buyers race for the
// last units.
func (s *Store) TryReserveUnits(ctx context.Context, reservationID string, units int64) (bool, error) {
	if units <= 0 {
		return false, errors.New("units must be positive")
	}
	tx, err := s.DB.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var distributed, capacity int64
	row := tx.QueryRowContext(ctx, `
		SELECT distributed_units, total_capacity_units
		FROM supply_counter WHERE id = 1 FOR UPDATE`)
	if err := row.Scan(&distributed, &capacity); err != nil {
		return false, err
	}
	if distributed+units > capacity {
		return false, nil
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE supply_counter SET distributed_units = distributed_units + $1 WHERE id = 1`, units); err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO reservations (id, units, state) VALUES ($1, $2, 'reserved')`, reservationID, units); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// ReleaseReservation hands reserved units back. Releasing twice is a no-op;
// releasing after commit is refused so a finished sale can never inflate the
// remaining supply.
func (s *Store) ReleaseReservation(ctx context.Context, reservationID string) error {
	tx, err := s.DB.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var units int64
	var state string
	row := tx.QueryRowContext(ctx, `
		SELECT units, state FROM reservations WHERE id = $1 FOR UPDATE`, reservationID)
	if err := row.Scan(&units, &state); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	switch state {
	case ReservationReleased:
		return nil
	case ReservationCommitted:
		return ErrReservationCommitted
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE reservations SET state = 'released', updated_at = now() WHERE id = $1`, reservationID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE supply_counter SET distributed_units = distributed_units - $1 WHERE id = 1`, units); err != nil {
		return err
	}
	return tx.Commit()
}

// CommitReservation marks a reservation permanently consumed. Committing an
// already-committed reservation is a no-op.
func (s *Store) CommitReservation(ctx context.Context, reservationID string) error {
	tx, err := s.DB.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var state string
	row := tx.QueryRowContext(ctx, `
		SELECT state FROM reservations WHERE id = $1 FOR UPDATE`, reservationID)
	if err := row.Scan(&state); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	switch state {
	case ReservationCommitted:
		return nil
	case ReservationReleased:
		return ErrReservationReleased
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE reservations SET state = 'committed', updated_at = now() WHERE id = $1`, reservationID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) GetSupplyState(ctx context.Context) (SupplyState, error) {
	var st SupplyState
	row := s.DB.QueryRowContext(ctx, `
		SELECT distributed_units, total_capacity_units FROM supply_counter WHERE id = 1`)
	if err := row.Scan(&st.DistributedUnits, &st.TotalCapacityUnits); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SupplyState{}, ErrNotFound
		}
		return SupplyState{}, err
	}
	return st, nil
}
