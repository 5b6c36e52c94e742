// Package metrics counts what a simulation run did and exports it in the
// Prometheus text format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds one run's metrics on a private registry. A nil *Recorder
// is valid and records nothing.
type Recorder struct {
	reg *prometheus.Registry

	fills     *prometheus.CounterVec
	traded    *prometheus.CounterVec
	rejected  *prometheus.CounterVec
	warnings  *prometheus.CounterVec
	stopExits prometheus.Counter
	days      prometheus.Counter
	nav       prometheus.Gauge
	cash      prometheus.Gauge
	positions prometheus.Gauge
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Recorder{
		reg: reg,
		fills: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendsim_fills_total",
				Help: "Executed fills by side",
			},
			[]string{"side"},
		),
		traded: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendsim_traded_amount_total",
				Help: "Absolute cash moved by fills, by side",
			},
			[]string{"side"},
		),
		rejected: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendsim_rejected_orders_total",
				Help: "Orders the ledger refused",
			},
			[]string{"reason"},
		),
		warnings: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendsim_warnings_total",
				Help: "Warnings raised during the run",
			},
			[]string{"kind"},
		),
		stopExits: f.NewCounter(prometheus.CounterOpts{
			Name: "trendsim_stop_exits_total",
			Help: "Positions flagged by the trailing stop",
		}),
		days: f.NewCounter(prometheus.CounterOpts{
			Name: "trendsim_days_total",
			Help: "Trading days simulated",
		}),
		nav: f.NewGauge(prometheus.GaugeOpts{
			Name: "trendsim_nav",
			Help: "Net asset value at the last simulated close",
		}),
		cash: f.NewGauge(prometheus.GaugeOpts{
			Name: "trendsim_cash",
			Help: "Cash at the last simulated close",
		}),
		positions: f.NewGauge(prometheus.GaugeOpts{
			Name: "trendsim_positions",
			Help: "Open positions at the last simulated close",
		}),
	}
}

// Registry exposes the underlying registry, e.g. for an HTTP handler.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

func (r *Recorder) Fill(side string, amount float64) {
	if r == nil {
		return
	}
	r.fills.WithLabelValues(side).Inc()
	if amount < 0 {
		amount = -amount
	}
	r.traded.WithLabelValues(side).Add(amount)
}

func (r *Recorder) Rejected(reason string) {
	if r == nil {
		return
	}
	r.rejected.WithLabelValues(reason).Inc()
}

func (r *Recorder) Warning(kind string) {
	if r == nil {
		return
	}
	r.warnings.WithLabelValues(kind).Inc()
}

func (r *Recorder) StopExits(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.stopExits.Add(float64(n))
}

// Day records the end-of-day account state.
func (r *Recorder) Day(nav, cash float64, positions int) {
	if r == nil {
		return
	}
	r.days.Inc()
	r.nav.Set(nav)
	r.cash.Set(cash)
	r.positions.Set(float64(positions))
}

// WriteTextfile writes every metric to path in the node-exporter textfile
// format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.reg)
}
