package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cyclesTotal  *prometheus.CounterVec
	signalsTotal *prometheus.CounterVec
	tradesTotal  *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	ledgerWrites *prometheus.CounterVec
	lastPrice    *prometheus.GaugeVec
	balance      prometheus.Gauge
	latency      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		cyclesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinpilot_cycles_total",
				Help: "Total number of completed decision cycles",
			},
			[]string{"symbol", "interval"},
		),
		signalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinpilot_signals_total",
				Help: "Total number of generated trading signals",
			},
			[]string{"action"},
		),
		tradesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinpilot_trades_total",
				Help: "Total number of simulated trade events",
			},
			[]string{"event"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinpilot_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		ledgerWrites: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinpilot_ledger_writes_total",
				Help: "Total number of trade records written to the ledger backend",
			},
			[]string{"backend"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "coinpilot_last_price",
				Help: "Last observed close price for a symbol",
			},
			[]string{"symbol"},
		),
		balance: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "coinpilot_balance",
				Help: "Current simulated account balance",
			},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coinpilot_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordCycle records a completed decision cycle.
func (r *Recorder) RecordCycle(symbol, interval string) {
	r.cyclesTotal.WithLabelValues(symbol, interval).Inc()
}

// RecordSignal records a generated signal by action.
func (r *Recorder) RecordSignal(action string) {
	r.signalsTotal.WithLabelValues(action).Inc()
}

// RecordTrade records a trade lifecycle event ("open", "win", "loss").
func (r *Recorder) RecordTrade(event string) {
	r.tradesTotal.WithLabelValues(event).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last close price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordBalance records the current simulated balance.
func (r *Recorder) RecordBalance(balance float64) {
	r.balance.Set(balance)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordLedgerWrite records a successful ledger write by backend.
func (r *Recorder) RecordLedgerWrite(backend string) {
	r.ledgerWrites.WithLabelValues(backend).Inc()
}
