package distribution

import "expvar"

var (
	metricDelivered      = expvar.NewInt("distribution_delivered_total")
	metricAttemptsFailed = expvar.NewInt("distribution_attempts_failed_total")
	metricExhausted      = expvar.NewInt("distribution_exhausted_total")
	metricQueueLen       = expvar.NewInt("distribution_queue_len")
)
