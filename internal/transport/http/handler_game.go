package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	"lightning-mint/internal/gamesession"
)

type GameHandlers struct {
	sessions *gamesession.Validator
}

func NewGameHandlers(sessions *gamesession.Validator) *GameHandlers {
	return &GameHandlers{sessions: sessions}
}

func (h *GameHandlers) Start() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := h.sessions.StartSession(r.Context(), ClientIdentity(r))
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		metricSessionStartTotal.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"session_id": res.SessionID,
			"seed":       res.Seed,
		})
	}
}

func (h *GameHandlers) Checkpoint() http.HandlerFunc {
	type request struct {
		SessionID string `json:"session_id"`
		Score     int64  `json:"score"`
		Timestamp int64  `json:"timestamp"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		err := h.sessions.RecordCheckpoint(r.Context(), req.SessionID, ClientIdentity(r), req.Score, req.Timestamp)
		if err != nil {
			writeGameError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}
}

func (h *GameHandlers) Complete() http.HandlerFunc {
	type request struct {
		SessionID  string `json:"session_id"`
		FinalScore int64  `json:"final_score"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		proof, err := h.sessions.CompleteSession(r.Context(), req.SessionID, ClientIdentity(r), req.FinalScore)
		if err != nil {
			metricSessionRejectedTotal.Add(1)
			writeGameError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"session_id":  proof.SessionID,
			"score":       proof.Score,
			"tier":        proof.Tier,
			"valid_until": proof.ValidUntil,
		})
	}
}

func writeGameError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gamesession.ErrSessionNotFound):
		WriteHTTPError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, gamesession.ErrOwnerMismatch):
		WriteHTTPError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, gamesession.ErrSessionAlreadyCompleted):
		WriteHTTPError(w, http.StatusConflict, err.Error())
	case errors.Is(err, gamesession.ErrSessionNotActive),
		errors.Is(err, gamesession.ErrDurationTooShort),
		errors.Is(err, gamesession.ErrDurationTooLong),
		errors.Is(err, gamesession.ErrInsufficientCheckpoints),
		errors.Is(err, gamesession.ErrScoreMismatch),
		errors.Is(err, gamesession.ErrScoringRateImplausible),
		errors.Is(err, gamesession.ErrTooMuchSuspiciousActivity):
		WriteHTTPError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
	}
}
