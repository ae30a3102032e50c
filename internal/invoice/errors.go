package invoice

import "errors"

var (
	ErrInvalidRecipient  = errors.New("invalid_recipient")
	ErrInvalidUnitCount  = errors.New("invalid_unit_count")
	ErrMintLocked        = errors.New("mint_locked")
	ErrTierLimitExceeded = errors.New("tier_limit_exceeded")
	ErrSaleClosed        = errors.New("sale_closed")
	ErrPaymentProvider   = errors.New("payment_provider_unavailable")
	ErrInvoiceNotFound   = errors.New("invoice_not_found")
	ErrArtifactNotReady  = errors.New("artifact_not_ready")
)
