package idempotency

import "expvar"

var (
	metricDuplicatesSuppressed = expvar.NewInt("idempotency_duplicates_suppressed_total")
	metricRecordsEvicted       = expvar.NewInt("idempotency_records_evicted_total")
)
