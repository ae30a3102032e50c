package gamesession

import "errors"

var (
	ErrSessionNotFound           = errors.New("session_not_found")
	ErrSessionNotActive          = errors.New("session_not_active")
	ErrSessionAlreadyCompleted   = errors.New("session_already_completed")
	ErrOwnerMismatch             = errors.New("owner_mismatch")
	ErrDurationTooShort          = errors.New("duration_too_short")
	ErrDurationTooLong           = errors.New("duration_too_long")
	ErrInsufficientCheckpoints   = errors.New("insufficient_checkpoints")
	ErrScoreMismatch             = errors.New("score_mismatch")
	ErrScoringRateImplausible    = errors.New("scoring_rate_implausible")
	ErrTooMuchSuspiciousActivity = errors.New("too_much_suspicious_activity")
	ErrProofNotFound             = errors.New("proof_not_found")
	ErrProofExpired              = errors.New("proof_expired")
)
