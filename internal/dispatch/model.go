// Package dispatch assembles the per-cycle MILP dispatch program, drives a
// pluggable solver against it under a wall-clock deadline, and extracts the
// next-epoch dispatch instructions from the solved model.
package dispatch

import (
	"fmt"
	"math"
)

// EnergySource is the configuration of one dispatchable source.
type EnergySource struct {
	ID            string
	MaxSupplyAmps float64
	CostPerAmp    float64
	HasRampLimit  bool
	RampLimitAmps float64
}

// Config parameterizes model assembly; field names mirror the recognized
// external configuration options.
type Config struct {
	Horizon      int // H
	UnmetPenalty float64
	SwitchPenalty float64
}

// DefaultConfig returns the default model tuning.
func DefaultConfig() Config {
	return Config{Horizon: 10, UnmetPenalty: 1000, SwitchPenalty: 0.1}
}

// varKind distinguishes continuous from binary decision variables.
type varKind int

const (
	continuous varKind = iota
	binary
)

type variable struct {
	name string
	kind varKind
	ub   float64 // math.Inf(1) when unbounded
}

// Model is the assembled MILP: variables, objective, and constraint rows,
// plus a name-to-column index used while assembling the rows and exposed
// through VarIndex.
type Model struct {
	Sources []EnergySource
	Nodes   []string
	Horizon int

	vars      []variable
	nameIndex map[string]int
	objective []float64
	rows      []denseRow
}

func xName(s, n string, t int) string { return fmt.Sprintf("x|%s|%s|%d", s, n, t) }
func yName(s, n string, t int) string { return fmt.Sprintf("y|%s|%s|%d", s, n, t) }
func uName(n string, t int) string    { return fmt.Sprintf("u|%s|%d", n, t) }

// NumVars returns the number of decision variables in the model.
func (m *Model) NumVars() int { return len(m.vars) }

// VarIndex returns the column index of a named variable, or -1 if absent.
func (m *Model) VarIndex(name string) int {
	if idx, ok := m.nameIndex[name]; ok {
		return idx
	}
	return -1
}

// BuildModel assembles the MILP dispatch program:
// demand balance, source capacity, big-M source/route linkage, single
// source per node, and (where configured) ramp limits, over forecast[n][t-1]
// for t in 1..Horizon.
func BuildModel(sources []EnergySource, nodes []string, forecast map[string][]float64, cfg Config) *Model {
	m := &Model{Sources: sources, Nodes: nodes, Horizon: cfg.Horizon, nameIndex: map[string]int{}}

	addVar := func(name string, kind varKind, ub float64) int {
		idx := len(m.vars)
		m.vars = append(m.vars, variable{name: name, kind: kind, ub: ub})
		m.nameIndex[name] = idx
		return idx
	}

	inf := math.Inf(1)
	for _, s := range sources {
		for _, n := range nodes {
			for t := 1; t <= cfg.Horizon; t++ {
				addVar(xName(s.ID, n, t), continuous, inf)
				addVar(yName(s.ID, n, t), binary, 1)
			}
		}
	}
	for _, n := range nodes {
		for t := 1; t <= cfg.Horizon; t++ {
			addVar(uName(n, t), continuous, inf)
		}
	}

	m.objective = make([]float64, len(m.vars))
	for _, s := range sources {
		for _, n := range nodes {
			for t := 1; t <= cfg.Horizon; t++ {
				m.objective[m.nameIndex[xName(s.ID, n, t)]] = s.CostPerAmp
				m.objective[m.nameIndex[yName(s.ID, n, t)]] = cfg.SwitchPenalty
			}
		}
	}
	for _, n := range nodes {
		for t := 1; t <= cfg.Horizon; t++ {
			m.objective[m.nameIndex[uName(n, t)]] = cfg.UnmetPenalty
		}
	}

	bigMCoeff := 2 * maxForecastValue(forecast)

	row := func(n int) []float64 { return make([]float64, n) }
	numVars := len(m.vars)

	// 1. Demand balance: sum_s x[s,n,t] + u[n,t] = forecast[n][t-1].
	for _, n := range nodes {
		for t := 1; t <= cfg.Horizon; t++ {
			c := row(numVars)
			for _, s := range sources {
				c[m.nameIndex[xName(s.ID, n, t)]] = 1
			}
			c[m.nameIndex[uName(n, t)]] = 1
			demand := 0.0
			if hist, ok := forecast[n]; ok && t-1 < len(hist) {
				demand = hist[t-1]
			}
			m.rows = append(m.rows, denseRow{coeffs: c, op: eq, rhs: demand})
		}
	}

	// 2. Source capacity: sum_n x[s,n,t] <= s.max_supply_amps.
	for _, s := range sources {
		for t := 1; t <= cfg.Horizon; t++ {
			c := row(numVars)
			for _, n := range nodes {
				c[m.nameIndex[xName(s.ID, n, t)]] = 1
			}
			m.rows = append(m.rows, denseRow{coeffs: c, op: le, rhs: s.MaxSupplyAmps})
		}
	}

	// 3. Big-M linkage: x[s,n,t] - M*y[s,n,t] <= 0.
	for _, s := range sources {
		for _, n := range nodes {
			for t := 1; t <= cfg.Horizon; t++ {
				c := row(numVars)
				c[m.nameIndex[xName(s.ID, n, t)]] = 1
				c[m.nameIndex[yName(s.ID, n, t)]] = -bigMCoeff
				m.rows = append(m.rows, denseRow{coeffs: c, op: le, rhs: 0})
			}
		}
	}

	// 4. Single source per node: sum_s y[s,n,t] <= 1.
	for _, n := range nodes {
		for t := 1; t <= cfg.Horizon; t++ {
			c := row(numVars)
			for _, s := range sources {
				c[m.nameIndex[yName(s.ID, n, t)]] = 1
			}
			m.rows = append(m.rows, denseRow{coeffs: c, op: le, rhs: 1})
		}
	}

	// 5. Ramp limits, linearized as two inequalities, t >= 2.
	for _, s := range sources {
		if !s.HasRampLimit {
			continue
		}
		for t := 2; t <= cfg.Horizon; t++ {
			up := row(numVars)
			down := row(numVars)
			for _, n := range nodes {
				up[m.nameIndex[xName(s.ID, n, t)]] += 1
				up[m.nameIndex[xName(s.ID, n, t-1)]] -= 1
				down[m.nameIndex[xName(s.ID, n, t-1)]] += 1
				down[m.nameIndex[xName(s.ID, n, t)]] -= 1
			}
			m.rows = append(m.rows, denseRow{coeffs: up, op: le, rhs: s.RampLimitAmps})
			m.rows = append(m.rows, denseRow{coeffs: down, op: le, rhs: s.RampLimitAmps})
		}
	}

	// Finite upper bounds (binary y <= 1) as explicit rows for the simplex
	// solver, which otherwise only enforces x >= 0.
	for idx, v := range m.vars {
		if !math.IsInf(v.ub, 1) {
			c := row(numVars)
			c[idx] = 1
			m.rows = append(m.rows, denseRow{coeffs: c, op: le, rhs: v.ub})
		}
	}

	return m
}

func maxForecastValue(forecast map[string][]float64) float64 {
	max := 0.0
	for _, hist := range forecast {
		for _, v := range hist {
			if v > max {
				max = v
			}
		}
	}
	if max == 0 {
		return 1 // avoid a degenerate M=0 big-M constraint when all demand is zero
	}
	return max
}
