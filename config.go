package griddy

import (
	"github.com/tetraslam/griddy/internal/dispatch"
)

// Config holds every recognized external configuration option.
type Config struct {
	EpochLenSeconds    float64
	Horizon            int
	RingCapacity       int
	MinHistory         int
	SpectralComponents int
	BlendDecay         float64
	UnmetPenalty       float64
	SwitchPenalty      float64
	SolverDeadlineMS   int
	CycleDeadlineMS    int
	ConfidenceThreshold float64
	SupplyRefAmps      float64

	LLMEndpoint string
	LLMAPIKey   string

	KVURL      string
	FallbackIP string

	Sources []dispatch.EnergySource
}

// DefaultConfig returns the controller's documented default tuning.
func DefaultConfig() Config {
	return Config{
		EpochLenSeconds:     1.0 / 24.0,
		Horizon:             10,
		RingCapacity:        1000,
		MinHistory:          5,
		SpectralComponents:  2,
		BlendDecay:          0.1,
		UnmetPenalty:        1000,
		SwitchPenalty:       0.1,
		SolverDeadlineMS:    500,
		CycleDeadlineMS:     83,
		ConfidenceThreshold: 0.5,
		SupplyRefAmps:       5.0,
		FallbackIP:          "192.168.1.1",
	}
}

// Validate returns a ConfigError describing the first violated
// precondition, or nil if the configuration is usable.
func (c Config) Validate() error {
	switch {
	case c.EpochLenSeconds <= 0:
		return NewError("Config.Validate", ErrCodeConfig, "epoch_len_seconds must be > 0")
	case c.Horizon < 1:
		return NewError("Config.Validate", ErrCodeConfig, "horizon must be >= 1")
	case c.RingCapacity < 1:
		return NewError("Config.Validate", ErrCodeConfig, "ring_capacity must be >= 1")
	case c.MinHistory < 1:
		return NewError("Config.Validate", ErrCodeConfig, "min_history must be >= 1")
	case c.SpectralComponents < 0:
		return NewError("Config.Validate", ErrCodeConfig, "spectral_components must be >= 0")
	case c.SolverDeadlineMS < 1:
		return NewError("Config.Validate", ErrCodeConfig, "solver_deadline_ms must be >= 1")
	case c.CycleDeadlineMS < 1:
		return NewError("Config.Validate", ErrCodeConfig, "cycle_deadline_ms must be >= 1")
	case c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1:
		return NewError("Config.Validate", ErrCodeConfig, "confidence_threshold must be in [0,1]")
	case c.SupplyRefAmps <= 0:
		return NewError("Config.Validate", ErrCodeConfig, "supply_ref_amps must be > 0")
	case len(c.Sources) == 0:
		return NewError("Config.Validate", ErrCodeConfig, "at least one energy source must be configured")
	}
	for _, s := range c.Sources {
		if s.ID == "" {
			return NewError("Config.Validate", ErrCodeConfig, "every source must have a non-empty id")
		}
		if s.MaxSupplyAmps < 0 {
			return NewError("Config.Validate", ErrCodeConfig, "source max_supply_amps must be >= 0")
		}
	}
	return nil
}
