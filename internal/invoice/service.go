package invoice

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"lightning-mint/internal/config"
	"lightning-mint/internal/gamesession"
	"lightning-mint/internal/idempotency"
	"lightning-mint/internal/lightning"
	"lightning-mint/internal/store"
	"lightning-mint/internal/supply"
)

// Store is the persistence surface the service needs; *store.Store satisfies
// it.
type Store interface {
	CreateInvoice(ctx context.Context, inv store.Invoice) error
	GetInvoice(ctx context.Context, id string) (*store.Invoice, error)
	TransitionInvoice(ctx context.Context, id, from, to string) (bool, error)
	ListInvoicesByStatus(ctx context.Context, status string, limit int) ([]store.Invoice, error)
}

// ProofVerifier checks that a completed game session entitles the caller to
// purchase. *gamesession.Validator satisfies it.
type ProofVerifier interface {
	VerifyProof(ctx context.Context, sessionID, ownerIdentity string) (*store.CompletedGameProof, error)
}

// Distributor receives invoices that have been confirmed paid.
type Distributor interface {
	Enqueue(invoiceID string)
}

// Service creates purchase invoices. The ordering inside CreateInvoice is
// load-bearing: units are reserved before the payment provider is called, and
// the idempotency record is written last so a cached result always points at
// a fully persisted invoice.
type Service struct {
	store  Store
	ledger *supply.Ledger
	guard  *idempotency.Guard
	proofs ProofVerifier
	issuer lightning.Issuer
	cfg    config.MintConfig
	now    func() time.Time
}

func NewService(st Store, ledger *supply.Ledger, guard *idempotency.Guard, proofs ProofVerifier, issuer lightning.Issuer, cfg config.MintConfig) *Service {
	return &Service{
		store:  st,
		ledger: ledger,
		guard:  guard,
		proofs: proofs,
		issuer: issuer,
		cfg:    cfg,
		now:    time.Now,
	}
}

func (s *Service) CreateInvoice(ctx context.Context, req CreateRequest) (*CreateResponse, error) {
	if err := ValidateRecipient(req.Recipient); err != nil {
		return nil, err
	}
	if req.UnitCount < 1 {
		return nil, ErrInvalidUnitCount
	}

	proof, err := s.proofs.VerifyProof(ctx, req.SessionID, req.OwnerIdentity)
	if err != nil {
		log.Debug().Str("session_id", req.SessionID).Err(err).Msg("purchase without valid proof")
		metricMintLocked.Add(1)
		return nil, ErrMintLocked
	}
	if proof.Tier == gamesession.TierNone {
		metricMintLocked.Add(1)
		return nil, ErrMintLocked
	}
	if req.UnitCount > gamesession.MaxUnitsForTier(s.cfg, proof.Tier) {
		return nil, ErrTierLimitExceeded
	}

	amount := req.UnitCount * s.cfg.UnitPriceSats
	key := s.guard.DeriveKey(req.Recipient, req.UnitCount, amount, s.now())

	// Fast path for client retries: an identical request in the same bucket
	// returns the original invoice without touching supply.
	if cached, err := s.guard.Check(ctx, key); err != nil {
		return nil, err
	} else if cached != nil {
		return decodeCached(cached)
	}

	reservationID, err := s.ledger.TryReserve(ctx, req.UnitCount)
	if err != nil {
		if err == supply.ErrCapacityExceeded {
			return nil, ErrSaleClosed
		}
		return nil, err
	}

	expiry := s.cfg.InvoiceExpiry()
	issued, err := s.issuer.Issue(ctx, amount, fmt.Sprintf("%d units", req.UnitCount), expiry)
	if err != nil {
		s.unwindReservation(ctx, reservationID)
		log.Error().Err(err).Msg("payment provider rejected invoice issuance")
		return nil, ErrPaymentProvider
	}

	now := s.now().UTC()
	inv := store.Invoice{
		ID:                  store.NewID(),
		RGBRecipient:        req.Recipient,
		UnitCount:           req.UnitCount,
		AmountExpectedSats:  amount,
		AmountToleranceSats: s.cfg.AmountToleranceSat,
		Tier:                proof.Tier,
		IdempotencyKey:      key,
		Status:              StatusAwaitingPayment,
		ReservationID:       reservationID,
		ExternalID:          issued.ExternalID,
		PaymentRequest:      issued.PaymentRequest,
		CreatedAt:           now,
		ExpiresAt:           now.Add(expiry),
		UpdatedAt:           now,
	}
	if err := s.store.CreateInvoice(ctx, inv); err != nil {
		s.unwindReservation(ctx, reservationID)
		return nil, err
	}

	resp := &CreateResponse{
		InvoiceID:      inv.ID,
		PaymentRequest: inv.PaymentRequest,
		AmountSats:     inv.AmountExpectedSats,
		UnitCount:      inv.UnitCount,
		Tier:           inv.Tier,
		ExpiresAt:      inv.ExpiresAt,
	}
	blob, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}

	// Final arbitration: exactly one concurrent duplicate wins the record.
	// A loser unwinds the invoice it just built and returns the winner's.
	prev, err := s.guard.CheckOrStore(ctx, key, blob)
	if err != nil {
		return nil, err
	}
	if prev != nil {
		s.unwindInvoice(ctx, inv)
		return decodeCached(prev)
	}

	metricInvoicesCreated.Add(1)
	log.Info().
		Str("invoice_id", inv.ID).
		Int64("unit_count", inv.UnitCount).
		Int64("amount_sats", inv.AmountExpectedSats).
		Str("tier", inv.Tier).
		Msg("invoice created")
	return resp, nil
}

// Status reports an invoice's lifecycle state, including the artifact once
// delivered.
func (s *Service) Status(ctx context.Context, invoiceID string) (*StatusResponse, error) {
	inv, err := s.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}
	return &StatusResponse{
		InvoiceID:  inv.ID,
		Status:     inv.Status,
		AmountSats: inv.AmountExpectedSats,
		UnitCount:  inv.UnitCount,
		Artifact:   inv.Artifact,
	}, nil
}

// Artifact returns the delivered consignment bytes, or ErrArtifactNotReady
// while the invoice is anywhere short of delivered.
func (s *Service) Artifact(ctx context.Context, invoiceID string) ([]byte, error) {
	inv, err := s.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}
	if inv.Status != StatusDelivered || len(inv.Artifact) == 0 {
		return nil, ErrArtifactNotReady
	}
	return inv.Artifact, nil
}

func (s *Service) ListByStatus(ctx context.Context, status string, limit int) ([]store.Invoice, error) {
	return s.store.ListInvoicesByStatus(ctx, status, limit)
}

func (s *Service) unwindInvoice(ctx context.Context, inv store.Invoice) {
	if _, err := s.store.TransitionInvoice(ctx, inv.ID, StatusAwaitingPayment, StatusExpired); err != nil {
		log.Error().Str("invoice_id", inv.ID).Err(err).Msg("failed to retire duplicate invoice")
	}
	s.unwindReservation(ctx, inv.ReservationID)
}

func (s *Service) unwindReservation(ctx context.Context, reservationID string) {
	if err := s.ledger.Release(ctx, reservationID); err != nil {
		log.Error().Str("reservation_id", reservationID).Err(err).Msg("failed to release reservation")
	}
}

func decodeCached(blob []byte) (*CreateResponse, error) {
	var resp CreateResponse
	if err := json.Unmarshal(blob, &resp); err != nil {
		return nil, err
	}
	metricDuplicateRequests.Add(1)
	return &resp, nil
}
