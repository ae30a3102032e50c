package config

import (
	"testing"
	"time"
)

func TestLoadMintDefaults(t *testing.T) {
	cfg, err := LoadMint()
	if err != nil {
		t.Fatalf("LoadMint() error = %v", err)
	}
	if cfg.TotalCapacityUnits != 21000 {
		t.Fatalf("TotalCapacityUnits = %d, want 21000", cfg.TotalCapacityUnits)
	}
	if cfg.UnitPriceSats != 1000 {
		t.Fatalf("UnitPriceSats = %d, want 1000", cfg.UnitPriceSats)
	}
	if cfg.AmountToleranceSat != 10 {
		t.Fatalf("AmountToleranceSat = %d, want 10", cfg.AmountToleranceSat)
	}
	if cfg.InvoiceExpiry() != 15*time.Minute {
		t.Fatalf("InvoiceExpiry = %v, want 15m", cfg.InvoiceExpiry())
	}
	if cfg.IdempotencyBucket() != time.Minute {
		t.Fatalf("IdempotencyBucket = %v, want 1m", cfg.IdempotencyBucket())
	}
}

func TestLoadMintOverrides(t *testing.T) {
	t.Setenv("TOTAL_CAPACITY_UNITS", "5")
	t.Setenv("TIER_A_THRESHOLD", "100")
	t.Setenv("SCORE_RATE_CEILING", "2.5")

	cfg, err := LoadMint()
	if err != nil {
		t.Fatalf("LoadMint() error = %v", err)
	}
	if cfg.TotalCapacityUnits != 5 {
		t.Fatalf("TotalCapacityUnits = %d, want 5", cfg.TotalCapacityUnits)
	}
	if cfg.TierAThreshold != 100 {
		t.Fatalf("TierAThreshold = %d, want 100", cfg.TierAThreshold)
	}
	if cfg.ScoreRateCeiling != 2.5 {
		t.Fatalf("ScoreRateCeiling = %v, want 2.5", cfg.ScoreRateCeiling)
	}
}
