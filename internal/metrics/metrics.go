// Package metrics exposes the live engine's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "argo_ladder"

// Metrics holds all Prometheus metrics for the live engine.
type Metrics struct {
	registry *prometheus.Registry

	BarsProcessed prometheus.Counter
	StepDuration  prometheus.Histogram

	// Order flow
	OrdersPlaced *prometheus.CounterVec // labels: side, intent
	OrdersFailed prometheus.Counter
	FillFees     prometheus.Counter

	// Risk manager decisions
	PositionsOpened *prometheus.CounterVec // labels: side
	TradesClosed    *prometheus.CounterVec // labels: reason
	Rejections      *prometheus.CounterVec // labels: reason

	// Account state
	Capital       prometheus.Gauge
	Equity        prometheus.Gauge
	DailyPnL      prometheus.Gauge
	OpenPositions prometheus.Gauge
	BreakerActive prometheus.Gauge // 0=inactive, 1=tripped
}

// NewMetrics creates the collectors and registers them on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		BarsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bars_processed_total",
			Help:      "Total bars stepped through the risk manager",
		}),
		StepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Wall time of one live step including order placement",
			Buckets:   prometheus.DefBuckets,
		}),
		OrdersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Orders accepted by the gateway",
		}, []string{"side", "intent"}),
		OrdersFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_failed_total",
			Help:      "Orders the gateway returned an error or a non-filled status for",
		}),
		FillFees: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fill_fees_total",
			Help:      "Sum of fees reported on fills",
		}),
		PositionsOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "positions_opened_total",
			Help:      "Positions opened by the risk manager",
		}, []string{"side"}),
		TradesClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_closed_total",
			Help:      "Closing trades by exit reason",
		}, []string{"reason"}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entry_rejections_total",
			Help:      "Entry signals the risk manager refused",
		}, []string{"reason"}),
		Capital: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "capital",
			Help:      "Realized capital",
		}),
		Equity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "equity",
			Help:      "Capital plus unrealized PnL at the last close",
		}),
		DailyPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "daily_pnl",
			Help:      "Realized PnL of the current trading day",
		}),
		OpenPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_positions",
			Help:      "Number of open positions",
		}),
		BreakerActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "daily_breaker_active",
			Help:      "1 while the daily loss breaker blocks new entries",
		}),
	}

	m.registry.MustRegister(
		m.BarsProcessed,
		m.StepDuration,
		m.OrdersPlaced,
		m.OrdersFailed,
		m.FillFees,
		m.PositionsOpened,
		m.TradesClosed,
		m.Rejections,
		m.Capital,
		m.Equity,
		m.DailyPnL,
		m.OpenPositions,
		m.BreakerActive,
	)

	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SetBreaker records the breaker state.
func (m *Metrics) SetBreaker(active bool) {
	if active {
		m.BreakerActive.Set(1)

		return
	}

	m.BreakerActive.Set(0)
}
