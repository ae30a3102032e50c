package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	"lightning-mint/internal/invoice"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type PurchaseHandlers struct {
	invoices *invoice.Service
	payments *invoice.Detector
}

func NewPurchaseHandlers(invoices *invoice.Service, payments *invoice.Detector) *PurchaseHandlers {
	return &PurchaseHandlers{invoices: invoices, payments: payments}
}

func (h *PurchaseHandlers) CreateInvoice() http.HandlerFunc {
	type request struct {
		Recipient string `json:"recipient"`
		UnitCount int64  `json:"unit_count"`
		SessionID string `json:"session_id"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		resp, err := h.invoices.CreateInvoice(r.Context(), invoice.CreateRequest{
			Recipient:     req.Recipient,
			UnitCount:     req.UnitCount,
			SessionID:     req.SessionID,
			OwnerIdentity: ClientIdentity(r),
		})
		if err != nil {
			metricInvoiceCreateErrors.Add(1)
			writePurchaseError(w, err)
			return
		}
		metricInvoiceCreateTotal.Add(1)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (h *PurchaseHandlers) InvoiceStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.invoices.Status(r.Context(), chi.URLParam(r, "invoice_id"))
		if err != nil {
			writePurchaseError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (h *PurchaseHandlers) InvoiceArtifact() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		artifact, err := h.invoices.Artifact(r.Context(), chi.URLParam(r, "invoice_id"))
		if err != nil {
			writePurchaseError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(artifact)
	}
}

// PaymentWebhook accepts payment notifications from the Lightning provider.
// The provider retries on non-200, so the handler acknowledges everything it
// could parse; invalid or stale signals are logged and absorbed.
func (h *PurchaseHandlers) PaymentWebhook() http.HandlerFunc {
	type request struct {
		InvoiceID  string `json:"invoice_id"`
		AmountSats int64  `json:"amount_sats"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.InvoiceID == "" {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		metricWebhookTotal.Add(1)
		if err := h.payments.OnPaymentSignal(r.Context(), req.InvoiceID, req.AmountSats, invoice.SourcePush); err != nil {
			log.Warn().Str("invoice_id", req.InvoiceID).Err(err).Msg("webhook signal not applied")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}
}

func writePurchaseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, invoice.ErrInvalidRecipient),
		errors.Is(err, invoice.ErrInvalidUnitCount):
		WriteHTTPError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, invoice.ErrMintLocked):
		WriteHTTPError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, invoice.ErrTierLimitExceeded):
		WriteHTTPError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, invoice.ErrSaleClosed):
		WriteHTTPError(w, http.StatusConflict, err.Error())
	case errors.Is(err, invoice.ErrInvoiceNotFound):
		WriteHTTPError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, invoice.ErrArtifactNotReady):
		WriteHTTPError(w, http.StatusConflict, err.Error())
	case errors.Is(err, invoice.ErrPaymentProvider):
		WriteHTTPError(w, http.StatusBadGateway, err.Error())
	default:
		WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
	}
}
