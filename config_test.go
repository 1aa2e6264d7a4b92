package griddy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tetraslam/griddy/internal/dispatch"
)

func TestDefaultConfigRejectedWithoutSources(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Validate()
	assert.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeConfig))
}

func TestDefaultConfigWithSourcesIsValid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sources = []dispatch.EnergySource{{ID: "s1", MaxSupplyAmps: 5, CostPerAmp: 0.1}}
	assert.NoError(t, cfg.Validate())
}

func TestConfigRejectsZeroHorizon(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sources = []dispatch.EnergySource{{ID: "s1", MaxSupplyAmps: 5}}
	cfg.Horizon = 0
	assert.Error(t, cfg.Validate())
}

func TestConfigRejectsOutOfRangeConfidenceThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sources = []dispatch.EnergySource{{ID: "s1", MaxSupplyAmps: 5}}
	cfg.ConfidenceThreshold = 1.5
	assert.Error(t, cfg.Validate())
}

func TestConfigRejectsSourceWithoutID(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sources = []dispatch.EnergySource{{ID: "", MaxSupplyAmps: 5}}
	assert.Error(t, cfg.Validate())
}
