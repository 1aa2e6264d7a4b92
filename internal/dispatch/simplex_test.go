package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSolveLPSimpleFeasible(t *testing.T) {
	// minimize x0 + x1 s.t. x0 + x1 = 5, x0 <= 3
	rows := []denseRow{
		{coeffs: []float64{1, 1}, op: eq, rhs: 5},
		{coeffs: []float64{1, 0}, op: le, rhs: 3},
	}
	values, obj, status := solveLP(context.Background(), 2, []float64{1, 1}, rows)
	assert.Equal(t, lpOptimal, status)
	assert.InDelta(t, 5.0, obj, 1e-6)
	assert.InDelta(t, 5.0, values[0]+values[1], 1e-6)
}

func TestSolveLPInfeasible(t *testing.T) {
	rows := []denseRow{
		{coeffs: []float64{1}, op: eq, rhs: 5},
		{coeffs: []float64{1}, op: le, rhs: 1},
	}
	_, _, status := solveLP(context.Background(), 1, []float64{1}, rows)
	assert.Equal(t, lpInfeasible, status)
}

func TestSolveLPPrefersCheaperSource(t *testing.T) {
	// minimize 2*x0 + 1*x1 s.t. x0+x1 = 4, x0<=10, x1<=10
	rows := []denseRow{
		{coeffs: []float64{1, 1}, op: eq, rhs: 4},
		{coeffs: []float64{1, 0}, op: le, rhs: 10},
		{coeffs: []float64{0, 1}, op: le, rhs: 10},
	}
	values, obj, status := solveLP(context.Background(), 2, []float64{2, 1}, rows)
	assert.Equal(t, lpOptimal, status)
	assert.InDelta(t, 0.0, values[0], 1e-6)
	assert.InDelta(t, 4.0, values[1], 1e-6)
	assert.InDelta(t, 4.0, obj, 1e-6)
}
