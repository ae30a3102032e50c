package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"lightning-mint/internal/invoice"
	"lightning-mint/internal/supply"

	"github.com/go-chi/chi/v5"
)

// HealthPinger reports backing-store liveness; *store.Store satisfies it.
type HealthPinger interface {
	Ping(ctx context.Context) error
}

type AdminHandlers struct {
	invoices     *invoice.Service
	ledger       *supply.Ledger
	redistribute invoice.Distributor
	health       HealthPinger
}

func NewAdminHandlers(invoices *invoice.Service, ledger *supply.Ledger, redistribute invoice.Distributor, health HealthPinger) *AdminHandlers {
	return &AdminHandlers{invoices: invoices, ledger: ledger, redistribute: redistribute, health: health}
}

func (h *AdminHandlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.health.Ping(r.Context()); err != nil {
			WriteHTTPError(w, http.StatusServiceUnavailable, "store_unavailable")
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "time": time.Now().UTC()})
	}
}

func (h *AdminHandlers) Supply() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := h.ledger.State(r.Context())
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"distributed_units":    state.DistributedUnits,
			"total_capacity_units": state.TotalCapacityUnits,
			"remaining_units":      state.TotalCapacityUnits - state.DistributedUnits,
		})
	}
}

func (h *AdminHandlers) Invoices() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := r.URL.Query().Get("status")
		if status == "" {
			status = invoice.StatusAwaitingPayment
		}
		limit, _ := ParsePagination(r)
		invoices, err := h.invoices.ListByStatus(r.Context(), status, limit)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		type row struct {
			InvoiceID  string    `json:"invoice_id"`
			Status     string    `json:"status"`
			UnitCount  int64     `json:"unit_count"`
			AmountSats int64     `json:"amount_sats"`
			Tier       string    `json:"tier"`
			Attempts   int       `json:"distribution_attempts"`
			CreatedAt  time.Time `json:"created_at"`
			ExpiresAt  time.Time `json:"expires_at"`
		}
		rows := make([]row, 0, len(invoices))
		for _, inv := range invoices {
			rows = append(rows, row{
				InvoiceID:  inv.ID,
				Status:     inv.Status,
				UnitCount:  inv.UnitCount,
				AmountSats: inv.AmountExpectedSats,
				Tier:       inv.Tier,
				Attempts:   inv.DistributionAttempts,
				CreatedAt:  inv.CreatedAt,
				ExpiresAt:  inv.ExpiresAt,
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"invoices": rows})
	}
}

// Redistribute retriggers delivery for a stuck invoice. The engine no-ops on
// anything already settled, so retriggering is always safe.
func (h *AdminHandlers) Redistribute() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		invoiceID := chi.URLParam(r, "invoice_id")
		if _, err := h.invoices.Status(r.Context(), invoiceID); err != nil {
			writePurchaseError(w, err)
			return
		}
		h.redistribute.Enqueue(invoiceID)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "invoice_id": invoiceID})
	}
}
