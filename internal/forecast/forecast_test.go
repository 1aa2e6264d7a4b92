package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlatForecastBelowMinHistory(t *testing.T) {
	cfg := DefaultConfig()
	history := []float64{1, 2, 3, 4} // length 4 < MinHistory (5)
	out := Project(history, 6, cfg)
	for _, v := range out {
		assert.Equal(t, 4.0, v)
	}
}

func TestFlatForecastAtExactlyMMinusOne(t *testing.T) {
	cfg := DefaultConfig()
	history := make([]float64, cfg.MinHistory-1)
	for i := range history {
		history[i] = float64(i)
	}
	out := Project(history, 3, cfg)
	last := history[len(history)-1]
	for _, v := range out {
		assert.Equal(t, last, v)
	}
}

func TestSpectralForecastAtExactlyM(t *testing.T) {
	cfg := DefaultConfig()
	history := make([]float64, cfg.MinHistory)
	for i := range history {
		if i%2 == 0 {
			history[i] = 1
		} else {
			history[i] = 3
		}
	}
	out := Project(history, 4, cfg)
	assert.Len(t, out, 4)
	for _, v := range out {
		assert.GreaterOrEqual(t, v, 0.0)
	}
}

func TestForecastNonNegativeForAllHorizonIndices(t *testing.T) {
	cfg := DefaultConfig()
	history := []float64{0, 0, 0, 0, 0, 0, 0, 0}
	out := Project(history, 10, cfg)
	for _, v := range out {
		assert.GreaterOrEqual(t, v, 0.0)
	}
}

func TestSpectralForecastBlendsTowardLatest(t *testing.T) {
	cfg := DefaultConfig()
	history := make([]float64, 48)
	for i := range history {
		if i%2 == 0 {
			history[i] = 1
		} else {
			history[i] = 3
		}
	}
	out := Project(history, 4, cfg)
	latest := history[len(history)-1] // 3
	// Weight decays with t, so forecast[0] should sit closer to latest than
	// forecast[3] does (monotonically decreasing influence of `latest`).
	d0 := abs(out[0] - latest)
	d3 := abs(out[3] - latest)
	assert.LessOrEqual(t, d0, d3+1e-9)
}

func TestEmptyHistoryYieldsZeroed(t *testing.T) {
	out := Project(nil, 5, DefaultConfig())
	assert.Len(t, out, 5)
	for _, v := range out {
		assert.Equal(t, 0.0, v)
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
