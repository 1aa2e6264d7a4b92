package dispatch

import (
	"context"
	"math"
	"time"
)

// Status reports how a solve attempt concluded.
type Status int

const (
	StatusOptimal Status = iota
	StatusSuboptimal
	StatusInfeasible
	StatusNoSolution
)

// Solution is the result of a solve call: variable values keyed by name
// (see xName/yName/uName), the achieved objective value, and a status.
type Solution struct {
	Status    Status
	Values    map[string]float64
	Objective float64
}

// Solver is the injected MILP-solving capability: a single method taking a
// model and a deadline, substitutable in tests with a deterministic stub.
type Solver interface {
	Solve(ctx context.Context, m *Model, deadline time.Duration) (*Solution, error)
}

// BranchBoundSolver is a pure-Go branch-and-bound MILP solver: it relaxes
// the binary y variables to [0,1], solves the continuous relaxation with
// the Big-M simplex, and branches on the most fractional y variable until
// every y is integral or the deadline elapses. It reports the best
// incumbent found so far when the deadline cuts branching short.
type BranchBoundSolver struct{}

func NewBranchBoundSolver() *BranchBoundSolver { return &BranchBoundSolver{} }

type bound struct {
	lb, ub float64
}

func (s *BranchBoundSolver) Solve(ctx context.Context, m *Model, deadline time.Duration) (*Solution, error) {
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	bounds := make([]bound, m.NumVars())
	for i, v := range m.vars {
		bounds[i] = bound{lb: 0, ub: v.ub}
	}

	var best *Solution
	bestObj := math.Inf(1)
	timedOut := false

	var branch func(bounds []bound, depth int)
	branch = func(bounds []bound, depth int) {
		if timedOut || ctx.Err() != nil {
			timedOut = true
			return
		}
		values, obj, status := solveRelaxation(ctx, m, bounds)
		switch status {
		case lpInfeasible, lpUnbounded:
			return
		case lpAborted:
			timedOut = true
			return
		}
		if best != nil && obj >= bestObj-eps {
			return // bound: can't possibly beat the incumbent
		}

		fracIdx, fracVal := mostFractionalBinary(m, values)
		if fracIdx == -1 {
			// Integral solution: candidate incumbent.
			best = valuesToSolution(m, values, obj, StatusOptimal)
			bestObj = obj
			return
		}
		if depth > 200 {
			// Pathological depth guard: abandon this subtree; the incumbent
			// found elsewhere, if any, stands.
			return
		}

		lower := append([]bound(nil), bounds...)
		lower[fracIdx] = bound{lb: 0, ub: 0}
		upper := append([]bound(nil), bounds...)
		upper[fracIdx] = bound{lb: 1, ub: 1}

		// Branch toward the rounded direction first: a slightly better
		// heuristic for finding a good incumbent early under a deadline.
		if fracVal >= 0.5 {
			branch(upper, depth+1)
			branch(lower, depth+1)
		} else {
			branch(lower, depth+1)
			branch(upper, depth+1)
		}
	}

	branch(bounds, 0)

	if best == nil {
		if timedOut {
			return &Solution{Status: StatusNoSolution, Values: map[string]float64{}}, nil
		}
		return &Solution{Status: StatusInfeasible, Values: map[string]float64{}}, nil
	}
	if timedOut {
		best.Status = StatusSuboptimal
	}
	return best, nil
}

func solveRelaxation(ctx context.Context, m *Model, bounds []bound) ([]float64, float64, lpStatus) {
	rows := make([]denseRow, len(m.rows))
	copy(rows, m.rows)
	numVars := m.NumVars()
	for i, b := range bounds {
		if b.lb > eps {
			c := make([]float64, numVars)
			c[i] = -1
			rows = append(rows, denseRow{coeffs: c, op: le, rhs: -b.lb})
		}
		if !math.IsInf(b.ub, 1) {
			c := make([]float64, numVars)
			c[i] = 1
			rows = append(rows, denseRow{coeffs: c, op: le, rhs: b.ub})
		}
	}
	return solveLP(ctx, numVars, m.objective, rows)
}

func mostFractionalBinary(m *Model, values []float64) (int, float64) {
	bestIdx := -1
	bestDist := eps
	for i, v := range m.vars {
		if v.kind != binary {
			continue
		}
		val := values[i]
		dist := val - math.Floor(val)
		distToHalf := math.Abs(dist - 0.5)
		if dist > eps && dist < 1-eps && (0.5-distToHalf) > bestDist {
			bestDist = 0.5 - distToHalf
			bestIdx = i
		}
	}
	if bestIdx == -1 {
		return -1, 0
	}
	return bestIdx, values[bestIdx]
}

func valuesToSolution(m *Model, values []float64, obj float64, status Status) *Solution {
	out := make(map[string]float64, len(values))
	for i, v := range m.vars {
		out[v.name] = values[i]
	}
	return &Solution{Status: status, Values: out, Objective: obj}
}
