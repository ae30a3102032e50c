package main

import (
	"context"
	"net/http"
	"time"

	"lightning-mint/internal/config"
	"lightning-mint/internal/distribution"
	"lightning-mint/internal/gamesession"
	"lightning-mint/internal/idempotency"
	"lightning-mint/internal/invoice"
	"lightning-mint/internal/lightning"
	"lightning-mint/internal/logging"
	"lightning-mint/internal/rgb"
	"lightning-mint/internal/store"
	"lightning-mint/internal/supply"
	httptransport "lightning-mint/internal/transport/http"

	"github.com/rs/zerolog/log"
)

func main() {
	appCfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	logging.Init(appCfg.Log)
	cfg := appCfg.Server
	mintCfg := appCfg.Mint

	st, err := store.New(cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("store init failed")
	}
	ctx := context.Background()
	if err := st.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("db ping failed")
	}
	if err := st.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("ensure schema failed")
	}
	if err := st.EnsureSupplyCounter(ctx, mintCfg.TotalCapacityUnits); err != nil {
		log.Fatal().Err(err).Msg("ensure supply counter failed")
	}

	issuer := lightning.NewClient(cfg.LightningBaseURL, cfg.LightningAPIKey, 10*time.Second)
	producer := rgb.NewClient(cfg.RGBBaseURL, cfg.RGBAPIKey, 30*time.Second)

	ledger := supply.New(st)
	guard := idempotency.NewGuard(st, mintCfg.IdempotencyBucket(), mintCfg.IdempotencyTTL())
	sessions := gamesession.NewValidator(st, mintCfg)
	engine := distribution.NewEngine(st, ledger, producer, mintCfg.DistributionMaxAttempts)
	invoices := invoice.NewService(st, ledger, guard, sessions, issuer, mintCfg)
	payments := invoice.NewDetector(st, ledger, issuer, engine)

	janitorEvery := time.Duration(cfg.JanitorSecs) * time.Second
	pollEvery := time.Duration(cfg.PaymentPollSecs) * time.Second
	engine.Start(ctx)
	sessions.StartJanitor(ctx, janitorEvery)
	guard.StartJanitor(ctx, janitorEvery)
	payments.StartPolling(ctx, pollEvery)
	payments.StartExpirySweep(ctx, janitorEvery)

	// Paid invoices stuck in distributing or distribution_failed from a
	// previous run are re-fed to the engine on boot.
	requeueStuckInvoices(ctx, st, engine)

	r := httptransport.NewRouter(httptransport.Deps{
		Sessions:     sessions,
		Invoices:     invoices,
		Payments:     payments,
		Ledger:       ledger,
		Redistribute: engine,
		Health:       st,
		Cfg:          cfg,
	})
	httptransport.LogRoutes(r)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	log.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
	log.Fatal().Err(server.ListenAndServe()).Msg("server stopped")
}

func requeueStuckInvoices(ctx context.Context, st *store.Store, engine *distribution.Engine) {
	for _, status := range []string{invoice.StatusPaid, invoice.StatusDistributing, invoice.StatusDistributionFailed} {
		stuck, err := st.ListInvoicesByStatus(ctx, status, 500)
		if err != nil {
			log.Error().Str("status", status).Err(err).Msg("listing stuck invoices failed")
			continue
		}
		for _, inv := range stuck {
			// A crash mid-attempt leaves distributing; reset it so the
			// engine can claim the invoice again.
			if status == invoice.StatusDistributing {
				if _, err := st.TransitionInvoice(ctx, inv.ID, invoice.StatusDistributing, invoice.StatusDistributionFailed); err != nil {
					log.Error().Str("invoice_id", inv.ID).Err(err).Msg("resetting stuck invoice failed")
					continue
				}
			}
			engine.Enqueue(inv.ID)
		}
		if len(stuck) > 0 {
			log.Info().Str("status", status).Int("count", len(stuck)).Msg("requeued invoices for delivery")
		}
	}
}
