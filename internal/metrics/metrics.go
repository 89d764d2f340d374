package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	LabelStatus = "status"
	LabelReason = "reason"
	LabelMode   = "mode"
)

// Emitter records optimizer and model activity. A nil *Emitter is valid and
// records nothing.
type Emitter struct {
	optimizationsTotal   *prometheus.CounterVec
	optimizationDuration *prometheus.HistogramVec
	searchNodes          prometheus.Histogram
	sweepInfeasible      prometheus.Counter
	modelTraining        *prometheus.CounterVec
	cacheLookups         *prometheus.CounterVec
}

// InitMetrics registers all showdown metrics with registry and returns the
// emitter that writes them.
func InitMetrics(registry prometheus.Registerer) *Emitter {
	e := &Emitter{
		optimizationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dfs_optimizations_total",
				Help: "Total number of lineup optimizations by outcome",
			},
			[]string{LabelMode, LabelStatus, LabelReason},
		),
		optimizationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dfs_optimization_duration_seconds",
				Help:    "Wall time of lineup optimizations",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 9),
			},
			[]string{LabelMode},
		),
		searchNodes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dfs_bb_nodes",
				Help:    "Branch-and-bound nodes explored per optimization",
				Buckets: prometheus.ExponentialBuckets(1, 4, 10),
			},
		),
		sweepInfeasible: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dfs_sweep_infeasible_total",
				Help: "Forced premium candidates that admitted no lineup",
			},
		),
		modelTraining: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dfs_model_training_total",
				Help: "Over/under model training runs by outcome",
			},
			[]string{LabelStatus},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dfs_optimization_cache_lookups_total",
				Help: "Optimization cache lookups by result",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		e.optimizationsTotal,
		e.optimizationDuration,
		e.searchNodes,
		e.sweepInfeasible,
		e.modelTraining,
		e.cacheLookups,
	)
	return e
}

func (e *Emitter) EmitOptimization(mode, status, reason string, duration time.Duration, nodes int) {
	if e == nil {
		return
	}
	e.optimizationsTotal.With(prometheus.Labels{
		LabelMode:   mode,
		LabelStatus: status,
		LabelReason: reason,
	}).Inc()
	e.optimizationDuration.WithLabelValues(mode).Observe(duration.Seconds())
	if nodes > 0 {
		e.searchNodes.Observe(float64(nodes))
	}
}

func (e *Emitter) EmitSweepInfeasible(count int) {
	if e == nil || count <= 0 {
		return
	}
	e.sweepInfeasible.Add(float64(count))
}

func (e *Emitter) EmitModelTraining(status string) {
	if e == nil {
		return
	}
	e.modelTraining.WithLabelValues(status).Inc()
}

func (e *Emitter) EmitCacheLookup(hit bool) {
	if e == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	e.cacheLookups.WithLabelValues(result).Inc()
}
