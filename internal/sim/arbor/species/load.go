package species

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed species.schema.json
var schemaJSON string

//go:embed default_species.yaml
var defaultYAML []byte

type File struct {
	Families []FamilyConfig  `yaml:"families" json:"families"`
	Species  []SpeciesConfig `yaml:"species" json:"species"`
}

type FamilyConfig struct {
	Name          string  `yaml:"name" json:"name"`
	CommonSpecies string  `yaml:"common_species,omitempty" json:"common_species,omitempty"`
	PrimitiveLog  string  `yaml:"primitive_log" json:"primitive_log"`
	Stick         string  `yaml:"stick,omitempty" json:"stick,omitempty"`
	Hardness      float64 `yaml:"hardness,omitempty" json:"hardness,omitempty"`
	FireSpread    int     `yaml:"fire_spread,omitempty" json:"fire_spread,omitempty"`
	Flammability  int     `yaml:"flammability,omitempty" json:"flammability,omitempty"`
	Decay         string  `yaml:"decay,omitempty" json:"decay,omitempty"`
}

type SpeciesConfig struct {
	Name               string  `yaml:"name" json:"name"`
	Family             string  `yaml:"family" json:"family"`
	Tapering           float64 `yaml:"tapering,omitempty" json:"tapering,omitempty"`
	SignalEnergy       float64 `yaml:"signal_energy,omitempty" json:"signal_energy,omitempty"`
	UpProbability      int     `yaml:"up_probability,omitempty" json:"up_probability,omitempty"`
	LowestBranchHeight int     `yaml:"lowest_branch_height,omitempty" json:"lowest_branch_height,omitempty"`
	SecondaryThickness float64 `yaml:"secondary_thickness,omitempty" json:"secondary_thickness,omitempty"`
	Direction          string  `yaml:"direction,omitempty" json:"direction,omitempty"`
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("species.schema.json", schemaJSON)
	})
	return schema, schemaErr
}

// Load reads and validates a species catalog.
func Load(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	reg, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}

// Default returns the built-in catalog.
func Default() *Registry {
	reg, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("default species catalog: %v", err))
	}
	return reg
}

func DefaultYAML() []byte { return append([]byte(nil), defaultYAML...) }

func Parse(raw []byte) (*Registry, error) {
	// Validate the document shape first: yaml -> generic -> json values.
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("species.yaml: %w", err)
	}
	js, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("species.yaml: %w", err)
	}
	var generic any
	if err := json.Unmarshal(js, &generic); err != nil {
		return nil, fmt.Errorf("species.yaml: %w", err)
	}
	sch, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("species schema: %w", err)
	}
	if err := sch.Validate(generic); err != nil {
		return nil, fmt.Errorf("species.yaml: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("species.yaml: %w", err)
	}
	return f.Build()
}

// Build turns a decoded catalog into a Registry.
func (f File) Build() (*Registry, error) {
	reg := NewRegistry()
	for _, fc := range f.Families {
		decay, err := DecayPolicyByName(fc.Decay)
		if err != nil {
			return nil, fmt.Errorf("family %q: %w", fc.Name, err)
		}
		stick := fc.Stick
		if stick == "" {
			stick = "stick"
		}
		if err := reg.AddFamily(&Family{
			Name:          fc.Name,
			CommonSpecies: fc.CommonSpecies,
			PrimitiveLog:  fc.PrimitiveLog,
			Stick:         stick,
			Hardness:      fc.Hardness,
			FireSpread:    fc.FireSpread,
			Flammability:  fc.Flammability,
			Decay:         decay,
		}); err != nil {
			return nil, err
		}
	}
	for _, sc := range f.Species {
		dir, err := DirectionPolicyByName(sc.Direction)
		if err != nil {
			return nil, fmt.Errorf("species %q: %w", sc.Name, err)
		}
		energy := sc.SignalEnergy
		if energy <= 0 {
			energy = 12
		}
		if err := reg.AddSpecies(&Species{
			Name:               sc.Name,
			Family:             sc.Family,
			Tapering:           sc.Tapering,
			SignalEnergy:       energy,
			UpProbability:      sc.UpProbability,
			LowestBranchHeight: sc.LowestBranchHeight,
			SecondaryThickness: sc.SecondaryThickness,
			Direction:          dir,
		}); err != nil {
			return nil, err
		}
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return reg, nil
}
