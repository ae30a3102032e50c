package invoice

import "time"

// Invoice lifecycle. Transitions are monotone and applied through
// conditional store updates; no state is ever applied twice.
const (
	StatusCreated            = "created"
	StatusAwaitingPayment    = "awaiting_payment"
	StatusPaid               = "paid"
	StatusDistributing       = "distributing"
	StatusDelivered          = "delivered"
	StatusExpired            = "expired"
	StatusAmountMismatch     = "amount_mismatch"
	StatusDistributionFailed = "distribution_failed"
)

// Payment signal sources. Push is the primary path; polling is the fallback
// when a webhook is lost. Both must be safe to race.
const (
	SourcePush = "push"
	SourcePoll = "poll"
)

type CreateRequest struct {
	Recipient     string
	UnitCount     int64
	SessionID     string
	OwnerIdentity string
}

type CreateResponse struct {
	InvoiceID      string    `json:"invoice_id"`
	PaymentRequest string    `json:"payment_request"`
	AmountSats     int64     `json:"amount_sats"`
	UnitCount      int64     `json:"unit_count"`
	Tier           string    `json:"tier"`
	ExpiresAt      time.Time `json:"expires_at"`
}

type StatusResponse struct {
	InvoiceID  string `json:"invoice_id"`
	Status     string `json:"status"`
	AmountSats int64  `json:"amount_sats"`
	UnitCount  int64  `json:"unit_count"`
	Artifact   []byte `json:"artifact,omitempty"`
}
