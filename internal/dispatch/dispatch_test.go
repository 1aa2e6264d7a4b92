package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarioSingleConsumerSingleSourceFeasible(t *testing.T) {
	sources := []EnergySource{{ID: "s1", MaxSupplyAmps: 10, CostPerAmp: 0.10}}
	nodes := []string{"1"}
	forecast := map[string][]float64{"1": flatSeries(2.5, 10)}
	cfg := DefaultConfig()

	m := BuildModel(sources, nodes, forecast, cfg)
	sol, err := NewStubSolver().Solve(context.Background(), m, time.Second)
	require.NoError(t, err)

	insts := Extract(m, sol)
	require.Len(t, insts, 1)
	assert.Equal(t, "1", insts[0].NodeID)
	assert.Equal(t, "s1", insts[0].SourceID)
	assert.InDelta(t, 2.5, insts[0].SupplyAmps, 1e-6)
}

func TestScenarioInsufficientCapacity(t *testing.T) {
	sources := []EnergySource{{ID: "s1", MaxSupplyAmps: 1.0, CostPerAmp: 0.10}}
	nodes := []string{"1"}
	forecast := map[string][]float64{"1": flatSeries(2.5, 10)}
	cfg := DefaultConfig()

	m := BuildModel(sources, nodes, forecast, cfg)
	sol, err := NewStubSolver().Solve(context.Background(), m, time.Second)
	require.NoError(t, err)

	insts := Extract(m, sol)
	require.Len(t, insts, 1)
	assert.InDelta(t, 1.0, insts[0].SupplyAmps, 1e-6)

	unmet := sol.Values[uName("1", 1)]
	assert.InDelta(t, 1.5, unmet, 1e-6)
}

func TestFeasibleDispatchRespectsSourceCapacity(t *testing.T) {
	sources := []EnergySource{
		{ID: "s1", MaxSupplyAmps: 3, CostPerAmp: 0.10},
		{ID: "s2", MaxSupplyAmps: 3, CostPerAmp: 0.05},
	}
	nodes := []string{"1", "2"}
	forecast := map[string][]float64{
		"1": flatSeries(2.0, 10),
		"2": flatSeries(3.0, 10),
	}
	cfg := DefaultConfig()
	cfg.Horizon = 1

	m := BuildModel(sources, nodes, forecast, cfg)
	sol, err := NewBranchBoundSolver().Solve(context.Background(), m, 500*time.Millisecond)
	require.NoError(t, err)

	totals := map[string]float64{}
	for _, s := range sources {
		for _, n := range nodes {
			totals[s.ID] += sol.Values[xName(s.ID, n, 1)]
		}
	}
	for _, s := range sources {
		assert.LessOrEqual(t, totals[s.ID], s.MaxSupplyAmps+1e-6)
	}
}

func TestEmptySourcesYieldsEmptyDispatch(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Horizon = 1
	m := BuildModel(nil, []string{"1"}, map[string][]float64{"1": {2.5}}, cfg)
	sol, err := NewStubSolver().Solve(context.Background(), m, time.Second)
	require.NoError(t, err)
	insts := Extract(m, sol)
	assert.Empty(t, insts)
}

func flatSeries(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
