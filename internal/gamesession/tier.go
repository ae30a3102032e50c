package gamesession

import "lightning-mint/internal/config"

const (
	TierNone = "none"
	TierA    = "a"
	TierB    = "b"
	TierC    = "c"
)

// TierForScore maps a final score onto a purchase tier. The mapping is
// monotone: a higher score never yields a lower tier.
func TierForScore(cfg config.MintConfig, score int64) string {
	switch {
	case score >= cfg.TierCThreshold:
		return TierC
	case score >= cfg.TierBThreshold:
		return TierB
	case score >= cfg.TierAThreshold:
		return TierA
	default:
		return TierNone
	}
}

// MaxUnitsForTier returns the purchase cap for a tier; zero means the tier
// unlocks nothing.
func MaxUnitsForTier(cfg config.MintConfig, tier string) int64 {
	switch tier {
	case TierA:
		return cfg.TierAMaxUnits
	case TierB:
		return cfg.TierBMaxUnits
	case TierC:
		return cfg.TierCMaxUnits
	default:
		return 0
	}
}
