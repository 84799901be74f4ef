package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
)

// Metrics exposes the reconciliation counters served on /metrics.
type Metrics struct {
	SyncRuns       *prometheus.CounterVec
	SignalsApplied *prometheus.CounterVec
	SyncErrors     *prometheus.CounterVec
	AlertsRaised   prometheus.Counter
}

func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		SyncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orderflow",
			Name:      "sync_runs_total",
			Help:      "Sync runs by source and status.",
		}, []string{"source", "status"}),
		SignalsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orderflow",
			Name:      "signals_applied_total",
			Help:      "Signals applied to orders by source and category.",
		}, []string{"source", "category"}),
		SyncErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orderflow",
			Name:      "sync_errors_total",
			Help:      "Per-item sync errors by source.",
		}, []string{"source"}),
		AlertsRaised: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "orderflow",
			Name:      "alerts_raised_total",
			Help:      "Alerts raised by the exception sweep.",
		}),
	}
	reg.MustRegister(m.SyncRuns, m.SignalsApplied, m.SyncErrors, m.AlertsRaised)
	return m
}

var Module = fx.Module("metrics",
	fx.Provide(NewRegistry),
	fx.Provide(New),
)
