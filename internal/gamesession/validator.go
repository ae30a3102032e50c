package gamesession

import (
	"context"
	"math/rand"
	"time"

	"lightning-mint/internal/config"
	"lightning-mint/internal/store"
)

// Store is the persistence surface the validator needs. *store.Store
// satisfies it; tests use an in-memory fake.
type Store interface {
	CreateGameSession(ctx context.Context, sess store.GameSession) error
	GetGameSession(ctx context.Context, id string) (*store.GameSession, error)
	AppendCheckpoint(ctx context.Context, cp store.Checkpoint, suspicionDelta int) error
	CompleteGameSession(ctx context.Context, id string, finalScore int64, tier string, proof store.CompletedGameProof) error
	GetProof(ctx context.Context, sessionID string) (*store.CompletedGameProof, error)
	ExpireGameSessions(ctx context.Context, now time.Time) (int64, error)
}

// Validator issues time-boxed play sessions and turns a completed, plausible
// run into a short-lived tier proof. All thresholds are policy from config.
type Validator struct {
	store Store
	cfg   config.MintConfig
	now   func() time.Time
	seed  func() int64
}

func NewValidator(st Store, cfg config.MintConfig) *Validator {
	return &Validator{
		store: st,
		cfg:   cfg,
		now:   time.Now,
		seed:  rand.Int63,
	}
}

type StartResult struct {
	SessionID string
	Seed      int64
}

func (v *Validator) StartSession(ctx context.Context, ownerIdentity string) (*StartResult, error) {
	now := v.now().UTC()
	sess := store.GameSession{
		ID:            store.NewID(),
		OwnerIdentity: ownerIdentity,
		Seed:          v.seed(),
		Status:        "active",
		CreatedAt:     now,
		ExpiresAt:     now.Add(v.cfg.SessionMaxDuration() + v.cfg.ProofValidity()),
	}
	if err := v.store.CreateGameSession(ctx, sess); err != nil {
		return nil, err
	}
	metricSessionsStarted.Add(1)
	return &StartResult{SessionID: sess.ID, Seed: sess.Seed}, nil
}

// RecordCheckpoint accepts a mid-game score sample. Implausibly quick
// checkpoints and score regressions are flagged rather than rejected; the
// suspicion counter decides at completion time. The stored aggregate score
// stays monotone regardless of what the client sent.
func (v *Validator) RecordCheckpoint(ctx context.Context, sessionID, ownerIdentity string, score, clientTimestamp int64) error {
	sess, err := v.loadActive(ctx, sessionID, ownerIdentity)
	if err != nil {
		return err
	}

	now := v.now().UTC()
	suspicious := false
	if sess.CheckpointCount > 0 && now.Sub(sess.LastCheckpointAt) < v.cfg.MinCheckpointGap() {
		suspicious = true
	}
	if score < sess.LastScore {
		suspicious = true
	}
	effectiveScore := score
	if effectiveScore < sess.LastScore {
		effectiveScore = sess.LastScore
	}

	cp := store.Checkpoint{
		SessionID:       sessionID,
		Seq:             sess.CheckpointCount + 1,
		Score:           effectiveScore,
		ClientTimestamp: clientTimestamp,
		RecordedAt:      now,
		Suspicious:      suspicious,
	}
	delta := 0
	if suspicious {
		delta = 1
		metricCheckpointsSuspicious.Add(1)
	}
	if err := v.store.AppendCheckpoint(ctx, cp, delta); err != nil {
		if err == store.ErrNotFound {
			return ErrSessionNotActive
		}
		return err
	}
	return nil
}

func (v *Validator) CompleteSession(ctx context.Context, sessionID, ownerIdentity string, finalScore int64) (*store.CompletedGameProof, error) {
	sess, err := v.loadActive(ctx, sessionID, ownerIdentity)
	if err != nil {
		return nil, err
	}

	now := v.now().UTC()
	elapsed := now.Sub(sess.CreatedAt)
	switch {
	case elapsed < v.cfg.SessionMinDuration():
		return nil, ErrDurationTooShort
	case elapsed > v.cfg.SessionMaxDuration():
		return nil, ErrDurationTooLong
	case sess.CheckpointCount < v.cfg.SessionMinCheckpoints:
		return nil, ErrInsufficientCheckpoints
	}
	if diff := finalScore - sess.LastScore; diff > v.cfg.FinalScoreTolerance || diff < -v.cfg.FinalScoreTolerance {
		return nil, ErrScoreMismatch
	}
	if rate := float64(finalScore) / float64(sess.CheckpointCount); rate > v.cfg.ScoreRateCeiling {
		return nil, ErrScoringRateImplausible
	}
	if sess.SuspicionCount >= v.cfg.SuspicionThreshold {
		return nil, ErrTooMuchSuspiciousActivity
	}

	proof := store.CompletedGameProof{
		SessionID:     sessionID,
		OwnerIdentity: ownerIdentity,
		Score:         finalScore,
		Tier:          TierForScore(v.cfg, finalScore),
		IssuedAt:      now,
		ValidUntil:    now.Add(v.cfg.ProofValidity()),
	}
	if err := v.store.CompleteGameSession(ctx, sessionID, finalScore, proof.Tier, proof); err != nil {
		if err == store.ErrNotFound {
			return nil, ErrSessionAlreadyCompleted
		}
		return nil, err
	}
	metricSessionsCompleted.Add(1)
	return &proof, nil
}

// VerifyProof checks that a completed session's proof is still valid and
// belongs to the requesting identity. A stolen session id must not unlock a
// tier for somebody else.
func (v *Validator) VerifyProof(ctx context.Context, sessionID, ownerIdentity string) (*store.CompletedGameProof, error) {
	proof, err := v.store.GetProof(ctx, sessionID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, ErrProofNotFound
		}
		return nil, err
	}
	if proof.OwnerIdentity != ownerIdentity {
		return nil, ErrOwnerMismatch
	}
	if v.now().UTC().After(proof.ValidUntil) {
		return nil, ErrProofExpired
	}
	return proof, nil
}

func (v *Validator) loadActive(ctx context.Context, sessionID, ownerIdentity string) (*store.GameSession, error) {
	sess, err := v.store.GetGameSession(ctx, sessionID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if sess.OwnerIdentity != ownerIdentity {
		return nil, ErrOwnerMismatch
	}
	switch sess.Status {
	case "completed":
		return nil, ErrSessionAlreadyCompleted
	case "active":
	default:
		return nil, ErrSessionNotActive
	}
	if v.now().UTC().After(sess.ExpiresAt) {
		return nil, ErrSessionNotActive
	}
	return sess, nil
}
