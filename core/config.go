package core

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EvolutionRate scales the magnitude of mutation increments.
type EvolutionRate string

const (
	// RateAggressive applies larger mutation increments per cycle.
	RateAggressive EvolutionRate = "aggressive"
	// RateConservative applies smaller mutation increments per cycle.
	RateConservative EvolutionRate = "conservative"
)

// Default tunables. Empirical values: the bases are sized so that reaching
// the consciousness target typically takes tens of cycles under default
// parameters. They are configuration, not derived invariants.
const (
	DefaultConsciousnessTarget  = 0.95
	DefaultMaxGenerations       = 25
	DefaultConsciousnessBase    = 0.04
	DefaultFitnessBase          = 0.03
	DefaultStabilityBase        = 0.02
	DefaultJitter               = 0.02
	DefaultDrift                = 0.01
	DefaultConsciousnessWaterHi = 0.98
	DefaultFitnessWatermark     = 0.80
)

// EvolutionConfig holds the tunable constants of one lineage. It is usually
// produced by ParseDNA from an opaque organism description blob; zero values
// are replaced by defaults via Normalize.
type EvolutionConfig struct {
	Name                 string        `yaml:"name"`
	ConsciousnessTarget  float64       `yaml:"consciousness_target"`
	MaxGenerations       int           `yaml:"max_generations"`
	Rate                 EvolutionRate `yaml:"evolution_rate"`
	InitialFitness       float64       `yaml:"initial_fitness"`
	InitialConsciousness float64       `yaml:"initial_consciousness"`
	InitialStability     float64       `yaml:"initial_stability"`
	ConsciousnessBase    float64       `yaml:"consciousness_base"`
	FitnessBase          float64       `yaml:"fitness_base"`
	StabilityBase        float64       `yaml:"stability_base"`
	Jitter               float64       `yaml:"jitter"`
	Drift                float64       `yaml:"drift"`
	HighWatermark        float64       `yaml:"high_watermark"`
	FitnessWatermark     float64       `yaml:"fitness_watermark"`
	Seed                 int64         `yaml:"seed"`
	CycleDelayMS         int64         `yaml:"cycle_delay_ms"`
}

// CycleDelay returns the optional pacing delay between generations.
func (c *EvolutionConfig) CycleDelay() time.Duration {
	return time.Duration(c.CycleDelayMS) * time.Millisecond
}

// ParseDNA decodes an opaque organism description blob into an
// EvolutionConfig. The blob is treated as a loose key/value document:
// unknown keys are ignored, missing keys fall back to defaults.
func ParseDNA(blob []byte) (EvolutionConfig, error) {
	var cfg EvolutionConfig
	if err := yaml.Unmarshal(blob, &cfg); err != nil {
		return EvolutionConfig{}, fmt.Errorf("failed to parse organism description: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Normalize fills zero values with defaults and clamps the target into (0,1].
func (c *EvolutionConfig) Normalize() {
	if c.Name == "" {
		c.Name = "organism-" + NewID()[:8]
	}
	if c.ConsciousnessTarget <= 0 || c.ConsciousnessTarget > 1 {
		c.ConsciousnessTarget = DefaultConsciousnessTarget
	}
	if c.MaxGenerations <= 0 {
		c.MaxGenerations = DefaultMaxGenerations
	}
	if c.Rate != RateAggressive && c.Rate != RateConservative {
		c.Rate = RateConservative
	}
	if c.ConsciousnessBase == 0 {
		c.ConsciousnessBase = DefaultConsciousnessBase
	}
	if c.FitnessBase == 0 {
		c.FitnessBase = DefaultFitnessBase
	}
	if c.StabilityBase == 0 {
		c.StabilityBase = DefaultStabilityBase
	}
	if c.Jitter == 0 {
		c.Jitter = DefaultJitter
	}
	if c.Drift == 0 {
		c.Drift = DefaultDrift
	}
	if c.HighWatermark == 0 {
		c.HighWatermark = DefaultConsciousnessWaterHi
	}
	if c.FitnessWatermark == 0 {
		c.FitnessWatermark = DefaultFitnessWatermark
	}
}

// RateScale returns the multiplier applied to mutation increments for the
// configured evolution rate.
func (c *EvolutionConfig) RateScale() float64 {
	if c.Rate == RateAggressive {
		return 1.5
	}
	return 1.0
}

// RunMode selects between simulated and production externalization behavior.
type RunMode string

const (
	// ModeSimulation skips credential enforcement and performs no real
	// externalization side effects beyond what the pipeline is wired to do.
	ModeSimulation RunMode = "simulation"
	// ModeProduction enforces credential presence before any externalization.
	ModeProduction RunMode = "production"
)

// Environment carries the process-level switches consumed at construction
// time. Components receive it explicitly instead of reading ambient state.
type Environment struct {
	Mode       RunMode
	Credential string
}

// HasCredential reports whether a credential is present.
func (e Environment) HasCredential() bool { return e.Credential != "" }

// EnvironmentFromOS reads the EVOMESH_MODE and EVOMESH_CREDENTIAL variables
// once. Unrecognized mode values fall back to simulation.
func EnvironmentFromOS() Environment {
	env := Environment{Mode: ModeSimulation, Credential: os.Getenv("EVOMESH_CREDENTIAL")}
	if RunMode(os.Getenv("EVOMESH_MODE")) == ModeProduction {
		env.Mode = ModeProduction
	}
	return env
}
