package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	// Traversal ceiling. Deeper networks are treated as cyclic.
	MaxDepth int `yaml:"max_depth"`

	RotChance         float64 `yaml:"rot_chance"`
	RapidRot          bool    `yaml:"rapid_rot"`
	HarvestMultiplier float64 `yaml:"harvest_multiplier"`
	StripLeaves       bool    `yaml:"strip_leaves"`

	PlantFertility      int    `yaml:"plant_fertility"`
	TwinkleParticle     string `yaml:"twinkle_particle"`
	ParticlesPerTwinkle int    `yaml:"particles_per_twinkle"`

	Forest Forest `yaml:"forest"`
}

// Forest controls deterministic tree seeding.
type Forest struct {
	Seed         int64    `yaml:"seed"`
	Density      float64  `yaml:"density"`
	CellSize     int      `yaml:"cell_size"`
	Species      []string `yaml:"species"`
	GrowthPulses int      `yaml:"growth_pulses"`
}

func Default() Tuning {
	var t Tuning
	t.ApplyDefaults()
	return t
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.ApplyDefaults()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// ApplyDefaults fills every unset field. Zero rot chance and the boolean
// switches are valid settings and stay as they are.
func (t *Tuning) ApplyDefaults() {
	if t.MaxDepth <= 0 {
		t.MaxDepth = 32
	}
	if t.HarvestMultiplier <= 0 {
		t.HarvestMultiplier = 1
	}
	if t.PlantFertility <= 0 {
		t.PlantFertility = 15
	}
	if t.TwinkleParticle == "" {
		t.TwinkleParticle = "spark"
	}
	if t.ParticlesPerTwinkle <= 0 {
		t.ParticlesPerTwinkle = 8
	}
	if t.Forest.CellSize <= 0 {
		t.Forest.CellSize = 8
	}
	if t.Forest.Density <= 0 {
		t.Forest.Density = 0.35
	}
	if len(t.Forest.Species) == 0 {
		t.Forest.Species = []string{"oak", "birch", "spruce"}
	}
	if t.Forest.GrowthPulses <= 0 {
		t.Forest.GrowthPulses = 24
	}
}

func (t Tuning) Validate() error {
	if t.RotChance < 0 || t.RotChance > 1 {
		return fmt.Errorf("rot_chance %v out of [0,1]", t.RotChance)
	}
	if t.Forest.Density > 1 {
		return fmt.Errorf("forest.density %v above 1", t.Forest.Density)
	}
	if t.PlantFertility > 15 {
		return fmt.Errorf("plant_fertility %d above 15", t.PlantFertility)
	}
	return nil
}
