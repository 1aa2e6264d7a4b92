// Package forecast projects a node's recent demand history over a horizon,
// using a flat forecast for short histories and a spectral reconstruction
// once enough samples have accumulated.
package forecast

import (
	"math"
	"math/cmplx"
)

// Config parameterizes the forecaster; field names mirror the recognized
// configuration options in the external interface.
type Config struct {
	MinHistory         int     // M: history length below which the forecast is flat
	SpectralComponents int     // K: number of non-DC bins retained
	BlendDecay         float64 // exponential blend decay rate
}

// DefaultConfig returns the default forecaster tuning.
func DefaultConfig() Config {
	return Config{MinHistory: 5, SpectralComponents: 2, BlendDecay: 0.1}
}

// Project emits H non-negative demand projections for one node's history,
// ordered from the nearest horizon index to the farthest.
func Project(history []float64, horizon int, cfg Config) []float64 {
	out := make([]float64, horizon)
	if len(history) == 0 {
		return out
	}
	latest := history[len(history)-1]

	if len(history) < cfg.MinHistory {
		for t := range out {
			out[t] = latest
		}
		return out
	}

	raw := spectralReconstruct(history, cfg.SpectralComponents)
	l := len(raw)
	for t := 0; t < horizon; t++ {
		w := weight(t, cfg.BlendDecay)
		v := w*latest + (1-w)*raw[t%l]
		if v < 0 {
			v = 0
		}
		out[t] = v
	}
	return out
}

func weight(t int, decay float64) float64 {
	return math.Exp(-decay * float64(t))
}

// spectralReconstruct computes the DFT of history, retains the DC bin plus
// the k highest-magnitude non-DC bins (with their conjugate mirrors), zeroes
// the rest, and inverts. No FFT library is available, and L is small
// (bounded by ring_capacity), so a direct O(L^2) transform is used.
func spectralReconstruct(history []float64, k int) []float64 {
	l := len(history)
	maxK := l/2 - 1
	if maxK < 0 {
		maxK = 0
	}
	if k > maxK {
		k = maxK
	}

	spectrum := dft(history)

	type bin struct {
		idx int
		mag float64
	}
	var candidates []bin
	for i := 1; i <= l/2; i++ {
		candidates = append(candidates, bin{idx: i, mag: cmplx.Abs(spectrum[i])})
	}
	// Selection sort for the top-k; k is tiny (<=2) so this is simpler and
	// just as fast as pulling in sort.Slice for two elements.
	for i := 0; i < k && i < len(candidates); i++ {
		best := i
		for j := i + 1; j < len(candidates); j++ {
			if candidates[j].mag > candidates[best].mag {
				best = j
			}
		}
		candidates[i], candidates[best] = candidates[best], candidates[i]
	}

	keep := make(map[int]bool, k*2+1)
	keep[0] = true
	for i := 0; i < k && i < len(candidates); i++ {
		keep[candidates[i].idx] = true
		mirror := (l - candidates[i].idx) % l
		keep[mirror] = true
	}

	filtered := make([]complex128, l)
	for i, c := range spectrum {
		if keep[i] {
			filtered[i] = c
		}
	}
	return idft(filtered)
}

func dft(x []float64) []complex128 {
	n := len(x)
	out := make([]complex128, n)
	for k := 0; k < n; k++ {
		var sum complex128
		for t := 0; t < n; t++ {
			angle := -2 * math.Pi * float64(k) * float64(t) / float64(n)
			sum += complex(x[t], 0) * cmplx.Exp(complex(0, angle))
		}
		out[k] = sum
	}
	return out
}

func idft(x []complex128) []float64 {
	n := len(x)
	out := make([]float64, n)
	for t := 0; t < n; t++ {
		var sum complex128
		for k := 0; k < n; k++ {
			angle := 2 * math.Pi * float64(k) * float64(t) / float64(n)
			sum += x[k] * cmplx.Exp(complex(0, angle))
		}
		out[t] = real(sum) / float64(n)
	}
	return out
}
