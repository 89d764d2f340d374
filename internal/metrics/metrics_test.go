package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestEmitter(t *testing.T) {
	registry := prometheus.NewRegistry()
	e := InitMetrics(registry)

	e.EmitOptimization("optimize", "success", "none", 20*time.Millisecond, 42)
	e.EmitOptimization("optimize", "error", "budget_infeasible", time.Millisecond, 0)
	e.EmitSweepInfeasible(2)
	e.EmitModelTraining("success")
	e.EmitCacheLookup(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(e.optimizationsTotal.WithLabelValues("optimize", "success", "none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.optimizationsTotal.WithLabelValues("optimize", "error", "budget_infeasible")))
	assert.Equal(t, 2.0, testutil.ToFloat64(e.sweepInfeasible))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.modelTraining.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.cacheLookups.WithLabelValues("hit")))

	count, err := testutil.GatherAndCount(registry, "dfs_bb_nodes")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNilEmitter(t *testing.T) {
	var e *Emitter
	assert.NotPanics(t, func() {
		e.EmitOptimization("sweep", "success", "none", time.Second, 1)
		e.EmitSweepInfeasible(1)
		e.EmitModelTraining("error")
		e.EmitCacheLookup(false)
	})
}
