package distribution

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"lightning-mint/internal/invoice"
	"lightning-mint/internal/rgb"
	"lightning-mint/internal/store"
)

// Store is the persistence surface delivery needs; *store.Store satisfies
// it. The conditional transitions are what make a retry racing an admin
// retrigger safe: only one caller wins the move into distributing.
type Store interface {
	GetInvoice(ctx context.Context, id string) (*store.Invoice, error)
	TransitionInvoice(ctx context.Context, id, from, to string) (bool, error)
	MarkInvoiceDelivered(ctx context.Context, id string, artifact []byte) (bool, error)
	IncrementDistributionAttempts(ctx context.Context, id string) (int, error)
}

// Ledger finalizes the supply reservation once units are delivered.
type Ledger interface {
	Commit(ctx context.Context, reservationID string) error
}

// Engine delivers units for paid invoices, exactly once per invoice. A single
// worker drains the dispatch channel; failed attempts come back through a
// timer queue with a widening delay until the attempt budget runs out.
type Engine struct {
	store       Store
	ledger      Ledger
	producer    rgb.Producer
	maxAttempts int

	dispatchCh chan deliveryJob
	retryQ     *retryQueue
	done       chan struct{}
}

// Attempt delays. The last entry repeats for every later attempt.
var retrySchedule = []time.Duration{5 * time.Second, 15 * time.Second, 60 * time.Second}

func NewEngine(st Store, ledger Ledger, producer rgb.Producer, maxAttempts int) *Engine {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	e := &Engine{
		store:       st,
		ledger:      ledger,
		producer:    producer,
		maxAttempts: maxAttempts,
		dispatchCh:  make(chan deliveryJob, 256),
		done:        make(chan struct{}),
	}
	e.retryQ = newRetryQueue(e.dispatchCh, e.done)
	return e
}

func (e *Engine) Start(ctx context.Context) {
	go e.worker(ctx)
}

func (e *Engine) Stop() {
	close(e.done)
}

// Enqueue schedules delivery for an invoice. Callers may enqueue the same
// invoice any number of times; settled invoices fall out as no-ops.
func (e *Engine) Enqueue(invoiceID string) {
	job := deliveryJob{InvoiceID: invoiceID}
	select {
	case e.dispatchCh <- job:
		metricQueueLen.Set(int64(len(e.dispatchCh)))
	case <-e.done:
	}
}

func (e *Engine) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.done:
			return
		case job := <-e.dispatchCh:
			metricQueueLen.Set(int64(len(e.dispatchCh)))
			e.processJob(ctx, job)
		}
	}
}

func (e *Engine) processJob(ctx context.Context, job deliveryJob) {
	inv, err := e.store.GetInvoice(ctx, job.InvoiceID)
	if err != nil {
		log.Error().Str("invoice_id", job.InvoiceID).Err(err).Msg("delivery: loading invoice failed")
		return
	}

	// Claim the invoice. Anything other than paid or a retryable failure
	// means another path already settled it.
	var claimed bool
	switch inv.Status {
	case invoice.StatusPaid:
		claimed, err = e.store.TransitionInvoice(ctx, inv.ID, invoice.StatusPaid, invoice.StatusDistributing)
	case invoice.StatusDistributionFailed:
		claimed, err = e.store.TransitionInvoice(ctx, inv.ID, invoice.StatusDistributionFailed, invoice.StatusDistributing)
	default:
		log.Debug().Str("invoice_id", inv.ID).Str("status", inv.Status).Msg("delivery: invoice already settled")
		return
	}
	if err != nil {
		log.Error().Str("invoice_id", inv.ID).Err(err).Msg("delivery: claiming invoice failed")
		return
	}
	if !claimed {
		return
	}

	artifact, produceErr := e.producer.Produce(ctx, inv.RGBRecipient, inv.UnitCount)
	attempts, err := e.store.IncrementDistributionAttempts(ctx, inv.ID)
	if err != nil {
		log.Error().Str("invoice_id", inv.ID).Err(err).Msg("delivery: recording attempt failed")
		attempts = job.Attempt + 1
	}

	if produceErr != nil {
		e.handleFailure(ctx, inv.ID, attempts, produceErr)
		return
	}

	delivered, err := e.store.MarkInvoiceDelivered(ctx, inv.ID, artifact)
	if err != nil {
		log.Error().Str("invoice_id", inv.ID).Err(err).Msg("delivery: persisting artifact failed")
		return
	}
	if !delivered {
		return
	}
	if err := e.ledger.Commit(ctx, inv.ReservationID); err != nil {
		log.Error().Str("invoice_id", inv.ID).Str("reservation_id", inv.ReservationID).Err(err).
			Msg("delivery: committing reservation failed")
	}
	metricDelivered.Add(1)
	log.Info().Str("invoice_id", inv.ID).Int64("unit_count", inv.UnitCount).Int("attempts", attempts).
		Msg("units delivered")
}

func (e *Engine) handleFailure(ctx context.Context, invoiceID string, attempts int, cause error) {
	metricAttemptsFailed.Add(1)
	if _, err := e.store.TransitionInvoice(ctx, invoiceID, invoice.StatusDistributing, invoice.StatusDistributionFailed); err != nil {
		log.Error().Str("invoice_id", invoiceID).Err(err).Msg("delivery: recording failure failed")
	}
	if attempts >= e.maxAttempts {
		metricExhausted.Add(1)
		log.Error().Str("invoice_id", invoiceID).Int("attempts", attempts).Err(cause).
			Msg("delivery attempts exhausted, manual redistribution required")
		return
	}
	delay := retryDelay(attempts)
	log.Warn().Str("invoice_id", invoiceID).Int("attempts", attempts).Dur("retry_in", delay).Err(cause).
		Msg("delivery failed, will retry")
	e.retryQ.Enqueue(deliveryJob{InvoiceID: invoiceID, Attempt: attempts}, delay)
}

func retryDelay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	if attempts > len(retrySchedule) {
		attempts = len(retrySchedule)
	}
	return retrySchedule[attempts-1]
}
