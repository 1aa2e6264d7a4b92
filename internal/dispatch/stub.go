package dispatch

import (
	"context"
	"time"
)

// StubSolver is a deterministic, non-optimizing Solver for tests: it
// greedily assigns each node's epoch-1 demand to the cheapest source with
// remaining capacity, ignoring epochs beyond 1 and ramp limits. It exists
// so callers of dispatch can be tested without depending on branch-and-bound
// timing.
type StubSolver struct{}

func NewStubSolver() *StubSolver { return &StubSolver{} }

func (s *StubSolver) Solve(_ context.Context, m *Model, _ time.Duration) (*Solution, error) {
	values := make(map[string]float64, m.NumVars())
	for _, v := range m.vars {
		values[v.name] = 0
	}

	remaining := make(map[string]float64, len(m.Sources))
	for _, src := range m.Sources {
		remaining[src.ID] = src.MaxSupplyAmps
	}

	obj := 0.0
	for _, n := range m.Nodes {
		demandRow := m.rows[m.demandRowIndex(n, 1)]
		demand := demandRow.rhs

		cheapest := ""
		for _, src := range m.Sources {
			if remaining[src.ID] <= eps {
				continue
			}
			if cheapest == "" || src.CostPerAmp < sourceByID(m.Sources, cheapest).CostPerAmp {
				cheapest = src.ID
			}
		}

		if cheapest == "" {
			values[uName(n, 1)] = demand
			obj += demand * 1000
			continue
		}

		serve := demand
		if serve > remaining[cheapest] {
			serve = remaining[cheapest]
		}
		values[xName(cheapest, n, 1)] = serve
		values[yName(cheapest, n, 1)] = 1
		remaining[cheapest] -= serve
		unmet := demand - serve
		values[uName(n, 1)] = unmet
		obj += serve*sourceByID(m.Sources, cheapest).CostPerAmp + unmet*1000
	}

	return &Solution{Status: StatusOptimal, Values: values, Objective: obj}, nil
}

func sourceByID(sources []EnergySource, id string) EnergySource {
	for _, s := range sources {
		if s.ID == id {
			return s
		}
	}
	return EnergySource{}
}

// demandRowIndex locates the demand-balance row for (node, epoch) among the
// model's constraint rows; rows are appended in node-major, epoch-minor
// order by BuildModel's first constraint block.
func (m *Model) demandRowIndex(node string, epoch int) int {
	i := 0
	for _, n := range m.Nodes {
		for t := 1; t <= m.Horizon; t++ {
			if n == node && t == epoch {
				return i
			}
			i++
		}
	}
	return 0
}
