package supply

import "expvar"

var (
	metricUnitsReserved         = expvar.NewInt("supply_units_reserved_total")
	metricReserveRejected       = expvar.NewInt("supply_reserve_rejected_total")
	metricReservationsCommitted = expvar.NewInt("supply_reservations_committed_total")
)
