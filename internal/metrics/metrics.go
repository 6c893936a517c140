// Package metrics registers the bot's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ticks_total", Help: "Count of streamed market ticks ingested"},
		[]string{"symbol"},
	)
	SymbolPassesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "symbol_passes_total", Help: "Per-symbol evaluations performed by the trading loop"},
		[]string{"symbol"},
	)
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "decisions_total", Help: "Signal decisions by kind"},
		[]string{"symbol", "kind"},
	)
	SymbolErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "symbol_errors_total", Help: "Per-symbol failures isolated by the trading loop"},
		[]string{"symbol"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Orders submitted"},
		[]string{"symbol", "side"},
	)
	NotificationsFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "notifications_failed_total", Help: "Notifications that could not be delivered"},
	)
	OpenPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "open_positions", Help: "Positions currently held"},
	)
	RealizedPnL = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "realized_pnl_total", Help: "Cumulative realized profit and loss in quote currency"},
	)
)

func init() {
	prometheus.MustRegister(
		TicksTotal,
		SymbolPassesTotal,
		DecisionsTotal,
		SymbolErrorsTotal,
		OrdersTotal,
		NotificationsFailedTotal,
		OpenPositions,
		RealizedPnL,
	)
}

// Handler exposes the default registry.
func Handler() http.Handler { return promhttp.Handler() }
