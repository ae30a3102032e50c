package httptransport

import (
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"lightning-mint/internal/config"
	"lightning-mint/internal/gamesession"
	"lightning-mint/internal/invoice"
	"lightning-mint/internal/supply"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// Deps carries the assembled services the router exposes.
type Deps struct {
	Sessions     *gamesession.Validator
	Invoices     *invoice.Service
	Payments     *invoice.Detector
	Ledger       *supply.Ledger
	Redistribute invoice.Distributor
	Health       HealthPinger
	Cfg          config.ServerConfig
}

func NewRouter(deps Deps) *chi.Mux {
	gameHandlers := NewGameHandlers(deps.Sessions)
	purchaseHandlers := NewPurchaseHandlers(deps.Invoices, deps.Payments)
	adminHandlers := NewAdminHandlers(deps.Invoices, deps.Ledger, deps.Redistribute, deps.Health)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", adminHandlers.Health())

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())

		r.Post("/game/start", gameHandlers.Start())
		r.Post("/game/checkpoint", gameHandlers.Checkpoint())
		r.Post("/game/complete", gameHandlers.Complete())

		r.Post("/purchase/invoice", purchaseHandlers.CreateInvoice())
		r.Get("/purchase/invoice/{invoice_id}/status", purchaseHandlers.InvoiceStatus())
		r.Get("/purchase/invoice/{invoice_id}/artifact", purchaseHandlers.InvoiceArtifact())

		r.Post("/webhook/payment", purchaseHandlers.PaymentWebhook())

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(deps.Cfg.AdminAPIKey))
			r.Get("/supply", adminHandlers.Supply())
			r.Get("/invoices", adminHandlers.Invoices())
			r.Post("/invoices/{invoice_id}/redistribute", adminHandlers.Redistribute())

			r.Route("/debug", func(r chi.Router) {
				r.Use(BodyCaptureMiddleware(4096))
				r.Get("/vars", expvar.Handler().ServeHTTP)
			})
		})
	})

	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 64)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
