package invoice

import "expvar"

var (
	metricInvoicesCreated   = expvar.NewInt("invoices_created_total")
	metricInvoicesExpired   = expvar.NewInt("invoices_expired_total")
	metricDuplicateRequests = expvar.NewInt("invoice_duplicate_requests_total")
	metricMintLocked        = expvar.NewInt("invoice_mint_locked_total")
	metricPaymentsDetected  = expvar.NewInt("payments_detected_total")
	metricAmountMismatches  = expvar.NewInt("payment_amount_mismatches_total")
	metricSignalsIgnored    = expvar.NewInt("payment_signals_ignored_total")
)
