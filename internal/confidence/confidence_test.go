package confidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreClampedToZeroOne(t *testing.T) {
	c := Score(Inputs{OptTimeMS: 10000, TotalSupply: 0, TotalDemand: 0})
	assert.GreaterOrEqual(t, c, 0.0)
	assert.LessOrEqual(t, c, 1.0)
}

func TestScoreFullySatisfiedFastSolveIsHighConfidence(t *testing.T) {
	c := Score(Inputs{OptTimeMS: 5, TotalSupply: 10, TotalDemand: 10})
	assert.Greater(t, c, 0.5)
}

func TestScoreUnmetDemandLowersConfidenceViaSatisfactionTerm(t *testing.T) {
	full := Score(Inputs{OptTimeMS: 5, TotalSupply: 10, TotalDemand: 10})
	partial := Score(Inputs{OptTimeMS: 5, TotalSupply: 1, TotalDemand: 10})
	assert.Less(t, partial, full)
}

func TestVarianceConfidenceDefaultsWhenFewerThanTenSamples(t *testing.T) {
	c := Score(Inputs{OptTimeMS: 0, TotalSupply: 1, TotalDemand: 1, RecentDemands: []float64{1, 2, 3}})
	// V defaults to 0.5 so confidence = 0.3*1 + 0.5*1 + 0.2*0.5 = 0.9
	assert.InDelta(t, 0.9, c, 1e-9)
}

func TestShouldEscalateBelowThreshold(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, ShouldEscalate(0.2, cfg))
	assert.False(t, ShouldEscalate(0.8, cfg))
}

func TestTimeConfidenceFloorsAtZero(t *testing.T) {
	c := Score(Inputs{OptTimeMS: 1000, TotalSupply: 10, TotalDemand: 10, RecentDemands: flatRecent(10)})
	// T floors at 0 (not 1-1000/100), S = 1, V = 1 for a flat window:
	// confidence = 0.3*0 + 0.5*1 + 0.2*1 = 0.7
	assert.InDelta(t, 0.7, c, 1e-9)
}

func flatRecent(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 5
	}
	return out
}
