package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// MintConfig holds the sale policy: supply cap, pricing, tier thresholds and
// the game-session plausibility rules. All values are policy, not invariants;
// the invariants live in the packages that consume them.
type MintConfig struct {
	TotalCapacityUnits int64 `env:"TOTAL_CAPACITY_UNITS" envDefault:"21000"`
	UnitPriceSats      int64 `env:"UNIT_PRICE_SATS" envDefault:"1000"`
	AmountToleranceSat int64 `env:"AMOUNT_TOLERANCE_SATS" envDefault:"10"`

	InvoiceExpiryMins int `env:"INVOICE_EXPIRY_MINUTES" envDefault:"15"`

	TierAThreshold int64 `env:"TIER_A_THRESHOLD" envDefault:"11"`
	TierBThreshold int64 `env:"TIER_B_THRESHOLD" envDefault:"18"`
	TierCThreshold int64 `env:"TIER_C_THRESHOLD" envDefault:"28"`
	TierAMaxUnits  int64 `env:"TIER_A_MAX_UNITS" envDefault:"3"`
	TierBMaxUnits  int64 `env:"TIER_B_MAX_UNITS" envDefault:"10"`
	TierCMaxUnits  int64 `env:"TIER_C_MAX_UNITS" envDefault:"25"`

	SessionMinCheckpoints   int     `env:"SESSION_MIN_CHECKPOINTS" envDefault:"5"`
	SessionMinDurationSecs  int     `env:"SESSION_MIN_DURATION_SECONDS" envDefault:"30"`
	SessionMaxDurationSecs  int     `env:"SESSION_MAX_DURATION_SECONDS" envDefault:"900"`
	SessionMinCheckpointGap int     `env:"SESSION_MIN_CHECKPOINT_GAP_MS" envDefault:"500"`
	FinalScoreTolerance     int64   `env:"FINAL_SCORE_TOLERANCE" envDefault:"2"`
	ScoreRateCeiling        float64 `env:"SCORE_RATE_CEILING" envDefault:"10"`
	SuspicionThreshold      int     `env:"SUSPICION_THRESHOLD" envDefault:"3"`
	ProofValidityMins       int     `env:"PROOF_VALIDITY_MINUTES" envDefault:"10"`

	// Idempotency bucket width trades replay safety against false dedup:
	// identical purchase requests inside one bucket collapse into one invoice.
	IdempotencyBucketSecs int `env:"IDEMPOTENCY_BUCKET_SECONDS" envDefault:"60"`
	IdempotencyTTLHours   int `env:"IDEMPOTENCY_TTL_HOURS" envDefault:"24"`

	DistributionMaxAttempts int `env:"DISTRIBUTION_MAX_ATTEMPTS" envDefault:"5"`
}

func (c MintConfig) InvoiceExpiry() time.Duration {
	return time.Duration(c.InvoiceExpiryMins) * time.Minute
}

func (c MintConfig) ProofValidity() time.Duration {
	return time.Duration(c.ProofValidityMins) * time.Minute
}

func (c MintConfig) SessionMinDuration() time.Duration {
	return time.Duration(c.SessionMinDurationSecs) * time.Second
}

func (c MintConfig) SessionMaxDuration() time.Duration {
	return time.Duration(c.SessionMaxDurationSecs) * time.Second
}

func (c MintConfig) MinCheckpointGap() time.Duration {
	return time.Duration(c.SessionMinCheckpointGap) * time.Millisecond
}

func (c MintConfig) IdempotencyBucket() time.Duration {
	return time.Duration(c.IdempotencyBucketSecs) * time.Second
}

func (c MintConfig) IdempotencyTTL() time.Duration {
	return time.Duration(c.IdempotencyTTLHours) * time.Hour
}

func LoadMint() (MintConfig, error) {
	var cfg MintConfig
	err := env.Parse(&cfg)
	return cfg, err
}
