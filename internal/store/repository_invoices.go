package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

func (s *Store) CreateInvoice(ctx context.Context, inv Invoice) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO invoices (id, rgb_recipient, unit_count, amount_expected_sats,
			amount_tolerance_sats, tier, idempotency_key, status, reservation_id,
			external_id, payment_request, created_at, expires_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$12)`,
		inv.ID, inv.RGBRecipient, inv.UnitCount, inv.AmountExpectedSats,
		inv.AmountToleranceSats, inv.Tier, inv.IdempotencyKey, inv.Status,
		inv.ReservationID, inv.ExternalID, inv.PaymentRequest,
		inv.CreatedAt, inv.ExpiresAt)
	return err
}

func (s *Store) GetInvoice(ctx context.Context, id string) (*Invoice, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, rgb_recipient, unit_count, amount_expected_sats, amount_tolerance_sats,
		       amount_paid_sats, tier, idempotency_key, status, reservation_id,
		       external_id, payment_request, distribution_attempts, artifact,
		       created_at, expires_at, updated_at
		FROM invoices WHERE id = $1`, id)
	return scanInvoice(row)
}

func scanInvoice(row *sql.Row) (*Invoice, error) {
	var inv Invoice
	if err := row.Scan(&inv.ID, &inv.RGBRecipient, &inv.UnitCount,
		&inv.AmountExpectedSats, &inv.AmountToleranceSats, &inv.AmountPaidSats,
		&inv.Tier, &inv.IdempotencyKey, &inv.Status, &inv.ReservationID,
		&inv.ExternalID, &inv.PaymentRequest, &inv.DistributionAttempts,
		&inv.Artifact, &inv.CreatedAt, &inv.ExpiresAt, &inv.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// TransitionInvoice applies a conditional status change. It reports whether
// this caller won the transition; a false result with a nil error means some
// other path already moved the invoice on.
func (s *Store) TransitionInvoice(ctx context.Context, id, from, to string) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE invoices SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// MarkInvoicePaid is the exactly-once payment transition: only one caller can
// move an invoice out of awaiting_payment.
func (s *Store) MarkInvoicePaid(ctx context.Context, id string, amountPaid int64) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE invoices SET status = 'paid', amount_paid_sats = $2, updated_at = now()
		WHERE id = $1 AND status = 'awaiting_payment'`, id, amountPaid)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *Store) MarkInvoiceAmountMismatch(ctx context.Context, id string, amountPaid int64) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE invoices SET status = 'amount_mismatch', amount_paid_sats = $2, updated_at = now()
		WHERE id = $1 AND status = 'awaiting_payment'`, id, amountPaid)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *Store) MarkInvoiceDelivered(ctx context.Context, id string, artifact []byte) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE invoices SET status = 'delivered', artifact = $2, updated_at = now()
		WHERE id = $1 AND status = 'distributing'`, id, artifact)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *Store) IncrementDistributionAttempts(ctx context.Context, id string) (int, error) {
	row := s.DB.QueryRowContext(ctx, `
		UPDATE invoices SET distribution_attempts = distribution_attempts + 1, updated_at = now()
		WHERE id = $1
		RETURNING distribution_attempts`, id)
	var attempts int
	if err := row.Scan(&attempts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return attempts, nil
}

func (s *Store) ListInvoicesByStatus(ctx context.Context, status string, limit int) ([]Invoice, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, rgb_recipient, unit_count, amount_expected_sats, amount_tolerance_sats,
		       amount_paid_sats, tier, idempotency_key, status, reservation_id,
		       external_id, payment_request, distribution_attempts, artifact,
		       created_at, expires_at, updated_at
		FROM invoices WHERE status = $1 ORDER BY created_at LIMIT $2`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInvoices(rows)
}

// ListExpiredAwaiting returns awaiting_payment invoices whose expiry has
// passed, for the background sweep that releases their reservations.
func (s *Store) ListExpiredAwaiting(ctx context.Context, now time.Time, limit int) ([]Invoice, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, rgb_recipient, unit_count, amount_expected_sats, amount_tolerance_sats,
		       amount_paid_sats, tier, idempotency_key, status, reservation_id,
		       external_id, payment_request, distribution_attempts, artifact,
		       created_at, expires_at, updated_at
		FROM invoices WHERE status = 'awaiting_payment' AND expires_at < $1
		ORDER BY expires_at LIMIT $2`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInvoices(rows)
}

func collectInvoices(rows *sql.Rows) ([]Invoice, error) {
	var out []Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.RGBRecipient, &inv.UnitCount,
			&inv.AmountExpectedSats, &inv.AmountToleranceSats, &inv.AmountPaidSats,
			&inv.Tier, &inv.IdempotencyKey, &inv.Status, &inv.ReservationID,
			&inv.ExternalID, &inv.PaymentRequest, &inv.DistributionAttempts,
			&inv.Artifact, &inv.CreatedAt, &inv.ExpiresAt, &inv.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}
