package gamesession

import "expvar"

var (
	metricSessionsStarted       = expvar.NewInt("game_sessions_started_total")
	metricSessionsCompleted     = expvar.NewInt("game_sessions_completed_total")
	metricSessionsExpired       = expvar.NewInt("game_sessions_expired_total")
	metricCheckpointsSuspicious = expvar.NewInt("game_checkpoints_suspicious_total")
)
