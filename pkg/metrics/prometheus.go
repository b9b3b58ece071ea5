package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"NodeFlow/internal/domain/models"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	tradesTotal      *prometheus.CounterVec
	rejectsTotal     *prometheus.CounterVec
	barsTotal        *prometheus.CounterVec
	transitionsTotal *prometheus.CounterVec
	actionsTotal     *prometheus.CounterVec
	engineState      *prometheus.GaugeVec
	sessionPnL       prometheus.Gauge
	lastPrice        *prometheus.GaugeVec
	latency          *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		tradesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodeflow_trades_total",
				Help: "Total number of trades accepted from the stream",
			},
			[]string{"symbol"},
		),
		rejectsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodeflow_trade_rejects_total",
				Help: "Trades rejected at the boundary, by reason",
			},
			[]string{"reason"},
		),
		barsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodeflow_bars_total",
				Help: "Finished bars folded into the engine",
			},
			[]string{"symbol"},
		),
		transitionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodeflow_state_transitions_total",
				Help: "Breakout state machine transitions, by kind",
			},
			[]string{"kind"},
		),
		actionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodeflow_actions_total",
				Help: "Actions emitted by the engine, by kind",
			},
			[]string{"kind"},
		),
		engineState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nodeflow_engine_state",
				Help: "Current breakout machine phase (1 for the active phase)",
			},
			[]string{"state"},
		),
		sessionPnL: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "nodeflow_session_pnl_points",
				Help: "Accumulated net points for the current session",
			},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nodeflow_last_price",
				Help: "Last accepted trade price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nodeflow_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordTrade counts an accepted trade.
func (r *Recorder) RecordTrade(symbol string) {
	r.tradesTotal.WithLabelValues(symbol).Inc()
}

// RecordReject counts a boundary rejection.
func (r *Recorder) RecordReject(reason string) {
	r.rejectsTotal.WithLabelValues(reason).Inc()
}

// RecordBar counts a finished bar.
func (r *Recorder) RecordBar(symbol string) {
	r.barsTotal.WithLabelValues(symbol).Inc()
}

// RecordTransition counts a state machine transition.
func (r *Recorder) RecordTransition(kind string) {
	r.transitionsTotal.WithLabelValues(kind).Inc()
}

// RecordAction counts an emitted action.
func (r *Recorder) RecordAction(kind models.ActionKind) {
	r.actionsTotal.WithLabelValues(string(kind)).Inc()
}

// RecordState marks the active engine phase.
func (r *Recorder) RecordState(state string) {
	r.engineState.Reset()
	r.engineState.WithLabelValues(state).Set(1)
}

// RecordSessionPnL sets the session P&L gauge.
func (r *Recorder) RecordSessionPnL(points float64) {
	r.sessionPnL.Set(points)
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
