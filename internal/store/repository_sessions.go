package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

func (s *Store) CreateGameSession(ctx context.Context, sess GameSession) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO game_sessions (id, owner_identity, seed, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		sess.ID, sess.OwnerIdentity, sess.Seed, sess.Status, sess.CreatedAt, sess.ExpiresAt)
	return err
}

func (s *Store) GetGameSession(ctx context.Context, id string) (*GameSession, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, owner_identity, seed, status, checkpoint_count, last_score,
		       COALESCE(last_checkpoint_at, created_at), suspicion_count,
		       final_score, tier, created_at, completed_at, expires_at
		FROM game_sessions WHERE id = $1`, id)
	var sess GameSession
	var completedAt sql.NullTime
	if err := row.Scan(&sess.ID, &sess.OwnerIdentity, &sess.Seed, &sess.Status,
		&sess.CheckpointCount, &sess.LastScore, &sess.LastCheckpointAt,
		&sess.SuspicionCount, &sess.FinalScore, &sess.Tier,
		&sess.CreatedAt, &completedAt, &sess.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if completedAt.Valid {
		sess.CompletedAt = &completedAt.Time
	}
	return &sess, nil
}

// AppendCheckpoint records a checkpoint and bumps the session aggregates in
// one transaction. The aggregate update is conditional on the session still
// being active so a racing completion cannot be overwritten.
func (s *Store) AppendCheckpoint(ctx context.Context, cp Checkpoint, suspicionDelta int) error {
	tx, err := s.DB.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE game_sessions
		SET checkpoint_count = checkpoint_count + 1,
		    last_score = $2,
		    last_checkpoint_at = $3,
		    suspicion_count = suspicion_count + $4
		WHERE id = $1 AND status = 'active'`,
		cp.SessionID, cp.Score, cp.RecordedAt, suspicionDelta)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO game_checkpoints (session_id, seq, score, client_timestamp, recorded_at, suspicious)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		cp.SessionID, cp.Seq, cp.Score, cp.ClientTimestamp, cp.RecordedAt, cp.Suspicious); err != nil {
		return err
	}
	return tx.Commit()
}

// CompleteGameSession flips an active session to completed and stores the
// proof in the same transaction. Returns ErrNotFound when the session was
// not active anymore.
func (s *Store) CompleteGameSession(ctx context.Context, id string, finalScore int64, tier string, proof CompletedGameProof) error {
	tx, err := s.DB.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE game_sessions
		SET status = 'completed', final_score = $2, tier = $3, completed_at = $4
		WHERE id = $1 AND status = 'active'`,
		id, finalScore, tier, proof.IssuedAt)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO game_proofs (session_id, owner_identity, score, tier, issued_at, valid_until)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		proof.SessionID, proof.OwnerIdentity, proof.Score, proof.Tier, proof.IssuedAt, proof.ValidUntil); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) GetProof(ctx context.Context, sessionID string) (*CompletedGameProof, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT session_id, owner_identity, score, tier, issued_at, valid_until
		FROM game_proofs WHERE session_id = $1`, sessionID)
	var p CompletedGameProof
	if err := row.Scan(&p.SessionID, &p.OwnerIdentity, &p.Score, &p.Tier, &p.IssuedAt, &p.ValidUntil); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ExpireGameSessions garbage-collects stale sessions and proofs.
func (s *Store) ExpireGameSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE game_sessions SET status = 'expired'
		WHERE status = 'active' AND expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM game_proofs WHERE valid_until < $1`, now); err != nil {
		return n, err
	}
	return n, nil
}
