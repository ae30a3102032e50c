package invoice

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"lightning-mint/internal/lightning"
	"lightning-mint/internal/store"
	"lightning-mint/internal/supply"
)

// DetectorStore is the persistence surface payment detection needs;
// *store.Store satisfies it. The Mark* calls are conditional updates, which
// is what makes a webhook racing the poller harmless.
type DetectorStore interface {
	GetInvoice(ctx context.Context, id string) (*store.Invoice, error)
	TransitionInvoice(ctx context.Context, id, from, to string) (bool, error)
	MarkInvoicePaid(ctx context.Context, id string, amountPaid int64) (bool, error)
	MarkInvoiceAmountMismatch(ctx context.Context, id string, amountPaid int64) (bool, error)
	ListInvoicesByStatus(ctx context.Context, status string, limit int) ([]store.Invoice, error)
	ListExpiredAwaiting(ctx context.Context, now time.Time, limit int) ([]store.Invoice, error)
}

// Detector turns payment signals into at-most-one paid transition per
// invoice. Signals arrive pushed (webhook) and pulled (provider polling);
// both funnel through OnPaymentSignal.
type Detector struct {
	store       DetectorStore
	ledger      *supply.Ledger
	issuer      lightning.Issuer
	distributor Distributor
	now         func() time.Time
}

func NewDetector(st DetectorStore, ledger *supply.Ledger, issuer lightning.Issuer, distributor Distributor) *Detector {
	return &Detector{
		store:       st,
		ledger:      ledger,
		issuer:      issuer,
		distributor: distributor,
		now:         time.Now,
	}
}

// OnPaymentSignal processes one claimed payment for an invoice. Duplicate
// and late signals are absorbed silently; only the first signal for an
// awaiting invoice ever changes state or triggers distribution.
func (d *Detector) OnPaymentSignal(ctx context.Context, invoiceID string, claimedSats int64, source string) error {
	inv, err := d.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		if err == store.ErrNotFound {
			return ErrInvoiceNotFound
		}
		return err
	}
	if inv.Status != StatusAwaitingPayment {
		metricSignalsIgnored.Add(1)
		log.Debug().Str("invoice_id", invoiceID).Str("status", inv.Status).Str("source", source).
			Msg("payment signal for settled invoice ignored")
		return nil
	}

	if d.now().UTC().After(inv.ExpiresAt) {
		d.expire(ctx, *inv)
		log.Info().Str("invoice_id", invoiceID).Str("source", source).
			Msg("payment signal arrived after invoice expiry")
		return nil
	}

	diff := claimedSats - inv.AmountExpectedSats
	if diff < -inv.AmountToleranceSats || diff > inv.AmountToleranceSats {
		won, err := d.store.MarkInvoiceAmountMismatch(ctx, invoiceID, claimedSats)
		if err != nil {
			return err
		}
		if won {
			metricAmountMismatches.Add(1)
			log.Warn().Str("invoice_id", invoiceID).
				Int64("expected_sats", inv.AmountExpectedSats).
				Int64("claimed_sats", claimedSats).
				Msg("payment amount outside tolerance")
		}
		return nil
	}

	won, err := d.store.MarkInvoicePaid(ctx, invoiceID, claimedSats)
	if err != nil {
		return err
	}
	if !won {
		metricSignalsIgnored.Add(1)
		return nil
	}

	metricPaymentsDetected.Add(1)
	log.Info().Str("invoice_id", invoiceID).Int64("amount_sats", claimedSats).Str("source", source).
		Msg("payment confirmed")
	d.distributor.Enqueue(invoiceID)
	return nil
}

// StartPolling asks the payment provider about every awaiting invoice at a
// fixed cadence. This is the recovery path for lost webhooks.
func (d *Detector) StartPolling(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.pollOnce(ctx)
			}
		}
	}()
}

func (d *Detector) pollOnce(ctx context.Context) {
	invoices, err := d.store.ListInvoicesByStatus(ctx, StatusAwaitingPayment, 100)
	if err != nil {
		log.Error().Err(err).Msg("payment poll: listing awaiting invoices failed")
		return
	}
	now := d.now().UTC()
	for _, inv := range invoices {
		if now.After(inv.ExpiresAt) {
			continue // the sweeper owns expiry
		}
		status, err := d.issuer.CheckStatus(ctx, inv.ExternalID)
		if err != nil {
			log.Warn().Str("invoice_id", inv.ID).Err(err).Msg("payment poll: status check failed")
			continue
		}
		if !status.Paid {
			continue
		}
		if err := d.OnPaymentSignal(ctx, inv.ID, status.AmountPaidSats, SourcePoll); err != nil {
			log.Error().Str("invoice_id", inv.ID).Err(err).Msg("payment poll: signal handling failed")
		}
	}
}

// StartExpirySweep retires overdue awaiting invoices and hands their units
// back to the supply ledger.
func (d *Detector) StartExpirySweep(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.sweepOnce(ctx)
			}
		}
	}()
}

func (d *Detector) sweepOnce(ctx context.Context) {
	invoices, err := d.store.ListExpiredAwaiting(ctx, d.now().UTC(), 200)
	if err != nil {
		log.Error().Err(err).Msg("expiry sweep: listing failed")
		return
	}
	for _, inv := range invoices {
		d.expire(ctx, inv)
	}
}

func (d *Detector) expire(ctx context.Context, inv store.Invoice) {
	won, err := d.store.TransitionInvoice(ctx, inv.ID, StatusAwaitingPayment, StatusExpired)
	if err != nil {
		log.Error().Str("invoice_id", inv.ID).Err(err).Msg("expiring invoice failed")
		return
	}
	if !won {
		return
	}
	metricInvoicesExpired.Add(1)
	if err := d.ledger.Release(ctx, inv.ReservationID); err != nil {
		log.Error().Str("invoice_id", inv.ID).Str("reservation_id", inv.ReservationID).Err(err).
			Msg("releasing reservation for expired invoice failed")
	}
}
