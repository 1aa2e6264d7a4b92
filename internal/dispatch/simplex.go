package dispatch

import (
	"context"
	"math"
)

// constraintOp identifies the comparison used by a linear constraint row.
type constraintOp int

const (
	le constraintOp = iota
	ge
	eq
)

// denseRow is one linear constraint over the model's variables, in dense
// coefficient form, used internally by the simplex tableau.
type denseRow struct {
	coeffs []float64
	op     constraintOp
	rhs    float64
}

type lpStatus int

const (
	lpOptimal lpStatus = iota
	lpInfeasible
	lpUnbounded
	lpAborted // deadline/context cancellation mid-solve
)

// bigM is the penalty cost attached to artificial variables in the Big-M
// method; it must dominate any plausible objective value so artificials
// never remain basic in an optimal solution unless the problem is
// genuinely infeasible.
const bigM = 1e7

const eps = 1e-9

// solveLP solves min c^T x subject to the given dense rows (x >= 0
// implicitly; finite upper bounds must be supplied as explicit <= rows by
// the caller) via the Big-M tableau simplex method with Bland's rule to
// guarantee termination.
func solveLP(ctx context.Context, numVars int, objective []float64, rows []denseRow) ([]float64, float64, lpStatus) {
	numSlackSurplus := 0
	numArtificial := 0
	for _, r := range rows {
		switch r.op {
		case le:
			numSlackSurplus++
		case ge:
			numSlackSurplus++
			numArtificial++
		case eq:
			numArtificial++
		}
	}
	totalCols := numVars + numSlackSurplus + numArtificial

	tableau := make([][]float64, len(rows))
	basis := make([]int, len(rows))
	artificialCols := make(map[int]bool, numArtificial)

	extraCol := numVars
	for i, r := range rows {
		row := make([]float64, totalCols+1)
		copy(row, r.coeffs)
		rhs := r.rhs
		op := r.op
		if rhs < 0 {
			// Normalize to a non-negative RHS so the slack/artificial
			// basis below starts feasible.
			for j := range row[:numVars] {
				row[j] = -row[j]
			}
			rhs = -rhs
			switch op {
			case le:
				op = ge
			case ge:
				op = le
			}
		}
		row[totalCols] = rhs

		switch op {
		case le:
			row[extraCol] = 1
			basis[i] = extraCol
			extraCol++
		case ge:
			row[extraCol] = -1
			extraCol++
			row[extraCol] = 1
			basis[i] = extraCol
			artificialCols[extraCol] = true
			extraCol++
		case eq:
			row[extraCol] = 1
			basis[i] = extraCol
			artificialCols[extraCol] = true
			extraCol++
		}
		tableau[i] = row
	}

	objRow := make([]float64, totalCols+1)
	copy(objRow, objective)
	for col := range artificialCols {
		objRow[col] = bigM
	}
	// Zero out the objective row under each basic column (reduced cost of
	// a basic variable must be 0).
	for i, b := range basis {
		if objRow[b] == 0 {
			continue
		}
		factor := objRow[b]
		for j := range objRow {
			objRow[j] -= factor * tableau[i][j]
		}
	}

	iterations := 0
	const maxIterations = 20000
	for {
		iterations++
		if iterations > maxIterations {
			return nil, 0, lpAborted
		}
		if ctx.Err() != nil {
			return nil, 0, lpAborted
		}

		// Bland's rule: smallest-index column with a negative reduced cost.
		enter := -1
		for j := 0; j < totalCols; j++ {
			if objRow[j] < -eps {
				enter = j
				break
			}
		}
		if enter == -1 {
			break // optimal
		}

		leave := -1
		bestRatio := math.Inf(1)
		for i, row := range tableau {
			if row[enter] > eps {
				ratio := row[totalCols] / row[enter]
				if ratio < bestRatio-eps || (ratio < bestRatio+eps && (leave == -1 || basis[i] < basis[leave])) {
					bestRatio = ratio
					leave = i
				}
			}
		}
		if leave == -1 {
			return nil, 0, lpUnbounded
		}

		pivot := tableau[leave][enter]
		for j := range tableau[leave] {
			tableau[leave][j] /= pivot
		}
		for i := range tableau {
			if i == leave {
				continue
			}
			factor := tableau[i][enter]
			if factor == 0 {
				continue
			}
			for j := range tableau[i] {
				tableau[i][j] -= factor * tableau[leave][j]
			}
		}
		factor := objRow[enter]
		if factor != 0 {
			for j := range objRow {
				objRow[j] -= factor * tableau[leave][j]
			}
		}
		basis[leave] = enter
	}

	for i, b := range basis {
		if artificialCols[b] && tableau[i][totalCols] > eps {
			return nil, 0, lpInfeasible
		}
	}

	values := make([]float64, numVars)
	for i, b := range basis {
		if b < numVars {
			values[b] = tableau[i][totalCols]
		}
	}
	obj := 0.0
	for j, c := range objective {
		obj += c * values[j]
	}
	return values, obj, lpOptimal
}
