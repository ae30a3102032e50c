package httptransport

import "expvar"

var (
	metricSessionStartTotal    = expvar.NewInt("http_session_start_total")
	metricSessionRejectedTotal = expvar.NewInt("http_session_rejected_total")

	metricInvoiceCreateTotal  = expvar.NewInt("http_invoice_create_total")
	metricInvoiceCreateErrors = expvar.NewInt("http_invoice_create_errors_total")

	metricWebhookTotal = expvar.NewInt("http_payment_webhook_total")
)
