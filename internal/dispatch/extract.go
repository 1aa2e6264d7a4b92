package dispatch

import "math"

// Instruction is one next-epoch dispatch instruction.
type Instruction struct {
	NodeID     string
	SupplyAmps float64
	SourceID   string
}

// Extract reads x[s,n,1] for every (source, node) pair from a solved model
// and emits one instruction for any pair whose value exceeds 1e-6, rounded
// to 3 decimal places.
func Extract(m *Model, sol *Solution) []Instruction {
	var out []Instruction
	for _, s := range m.Sources {
		for _, n := range m.Nodes {
			v, ok := sol.Values[xName(s.ID, n, 1)]
			if !ok || v <= 1e-6 {
				continue
			}
			out = append(out, Instruction{
				NodeID:     n,
				SupplyAmps: round3(v),
				SourceID:   s.ID,
			})
		}
	}
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
