// Package metrics exposes the prometheus series the engine updates while
// running:
//
//	turtle_cycles_total                     – pipeline passes completed
//	turtle_markets_dropped_total            – markets excluded for missing data
//	turtle_orders_total{kind,side}          – orders submitted (kind: entry|stop)
//	turtle_entries_blocked_total{reason}    – entries dropped by the risk gate
//	turtle_risk_capital                     – current risk capital (gauge)
//	turtle_long_risk / turtle_short_risk    – open positions by direction
//	turtle_session_stops                    – stops placed in the latest cycle
//
// Registered in init() and served by the status server at /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	mtxCycles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "turtle_cycles_total",
			Help: "Pipeline passes completed",
		},
	)

	mtxDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "turtle_markets_dropped_total",
			Help: "Markets excluded from a cycle for incomplete data",
		},
	)

	mtxOrders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "turtle_orders_total",
			Help: "Orders submitted to the broker",
		},
		[]string{"kind", "side"}, // kind: entry|stop; side: long|short
	)

	mtxBlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "turtle_entries_blocked_total",
			Help: "Entry signals dropped by the risk gate, split by reason",
		},
		[]string{"reason"},
	)

	mtxCapital = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "turtle_risk_capital",
			Help: "Current risk capital in account currency",
		},
	)

	mtxLongRisk = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "turtle_long_risk",
			Help: "Open long positions across all markets",
		},
	)

	mtxShortRisk = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "turtle_short_risk",
			Help: "Open short positions across all markets",
		},
	)

	mtxSessionStops = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "turtle_session_stops",
			Help: "Protective stops placed in the latest cycle",
		},
	)
)

func init() {
	prometheus.MustRegister(mtxCycles, mtxDropped, mtxOrders, mtxBlocked)
	prometheus.MustRegister(mtxCapital, mtxLongRisk, mtxShortRisk, mtxSessionStops)
}

// IncCycle counts a completed pipeline pass.
func IncCycle() { mtxCycles.Inc() }

// AddDropped counts markets excluded this cycle.
func AddDropped(n int) { mtxDropped.Add(float64(n)) }

// IncOrder counts a submitted order.
func IncOrder(kind, side string) { mtxOrders.WithLabelValues(kind, side).Inc() }

// IncBlocked counts an entry dropped by the gate.
func IncBlocked(reason string) { mtxBlocked.WithLabelValues(reason).Inc() }

// SetSessionStops publishes how many stops the latest cycle placed.
func SetSessionStops(n int) { mtxSessionStops.Set(float64(n)) }

// SetRisk publishes the latest risk counters.
func SetRisk(capital float64, longRisk, shortRisk int) {
	mtxCapital.Set(capital)
	mtxLongRisk.Set(float64(longRisk))
	mtxShortRisk.Set(float64(shortRisk))
}
