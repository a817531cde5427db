package species

import (
	"errors"
	"fmt"
	"sort"

	"arborcraft.ai/internal/sim/arbor/network"
)

var (
	ErrUnknownSpecies = errors.New("unknown species")
	ErrUnknownFamily  = errors.New("unknown family")
)

// Family is a tree kind as seen by branches: every branch cell carries a
// family tag, and a family owns its common species and material.
type Family struct {
	Name          string
	CommonSpecies string
	PrimitiveLog  string
	Stick         string
	Hardness      float64
	FireSpread    int
	Flammability  int

	Decay DecayPolicy

	common *Species
}

// Common returns the family's default species.
func (f *Family) Common() *Species { return f.common }

// BlockHardness scales the base log hardness by cross-section: a full
// radius-8 branch is eight times as hard as a log.
func (f *Family) BlockHardness(radius int) float64 {
	return f.Hardness * float64(radius*radius) / 64.0 * 8.0
}

func (f *Family) FireSpreadSpeed(radius int) int {
	return f.FireSpread * radius / 8
}

// Material is how a branch of one radius behaves under tools and fire.
type Material struct {
	Hardness     float64 `json:"hardness"`
	FireSpread   int     `json:"fire_spread"`
	Flammability int     `json:"flammability"`
}

func (f *Family) Material(radius int) Material {
	return Material{
		Hardness:     f.BlockHardness(radius),
		FireSpread:   f.FireSpreadSpeed(radius),
		Flammability: f.Flammability,
	}
}

// Species carries the per-species growth constants.
type Species struct {
	Name               string
	Family             string
	Tapering           float64
	SignalEnergy       float64
	UpProbability      int
	LowestBranchHeight int
	SecondaryThickness float64

	Direction DirectionPolicy

	family *Family
}

func (s *Species) FamilyDef() *Family { return s.family }

type Registry struct {
	families map[string]*Family
	species  map[string]*Species
}

func NewRegistry() *Registry {
	return &Registry{
		families: map[string]*Family{},
		species:  map[string]*Species{},
	}
}

// AddFamily registers f. The family's common species must be added with
// AddSpecies before Validate succeeds.
func (r *Registry) AddFamily(f *Family) error {
	if f == nil || f.Name == "" {
		return fmt.Errorf("family: empty name")
	}
	if _, dup := r.families[f.Name]; dup {
		return fmt.Errorf("family %q: duplicate", f.Name)
	}
	if f.CommonSpecies == "" {
		f.CommonSpecies = f.Name
	}
	if f.Decay == nil {
		f.Decay = SproutDecay{}
	}
	r.families[f.Name] = f
	if sp, ok := r.species[f.CommonSpecies]; ok && sp.Family == f.Name {
		f.common = sp
	}
	return nil
}

func (r *Registry) AddSpecies(s *Species) error {
	if s == nil || s.Name == "" {
		return fmt.Errorf("species: empty name")
	}
	if _, dup := r.species[s.Name]; dup {
		return fmt.Errorf("species %q: duplicate", s.Name)
	}
	f, ok := r.families[s.Family]
	if !ok {
		return fmt.Errorf("species %q: %w %q", s.Name, ErrUnknownFamily, s.Family)
	}
	if s.SecondaryThickness <= 0 {
		s.SecondaryThickness = 1
	}
	if s.Direction == nil {
		s.Direction = WeightedPolicy{}
	}
	s.family = f
	r.species[s.Name] = s
	if f.CommonSpecies == s.Name {
		f.common = s
	}
	return nil
}

// Validate checks every family resolved its common species.
func (r *Registry) Validate() error {
	for _, name := range r.FamilyNames() {
		f := r.families[name]
		if f.common == nil {
			return fmt.Errorf("family %q: common species %q: %w", name, f.CommonSpecies, ErrUnknownSpecies)
		}
	}
	return nil
}

func (r *Registry) Family(name string) (*Family, error) {
	f, ok := r.families[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownFamily, name)
	}
	return f, nil
}

func (r *Registry) Species(name string) (*Species, error) {
	s, ok := r.species[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownSpecies, name)
	}
	return s, nil
}

// FamilyOf resolves the family of a branch, terminator or root node.
func (r *Registry) FamilyOf(n network.Node) (*Family, error) {
	switch n.Kind {
	case network.KindBranch, network.KindTerminator:
		return r.Family(n.Family)
	case network.KindRoot:
		s, err := r.Species(n.Species)
		if err != nil {
			return nil, err
		}
		return s.family, nil
	default:
		return nil, fmt.Errorf("%w for %s", ErrUnknownFamily, n.Kind)
	}
}

// SameFamily reports whether n belongs to family. Unknown species never
// match.
func (r *Registry) SameFamily(n network.Node, family string) bool {
	switch n.Kind {
	case network.KindBranch, network.KindTerminator:
		return n.Family == family
	case network.KindRoot:
		s, ok := r.species[n.Species]
		return ok && s.Family == family
	default:
		return false
	}
}

func (r *Registry) FamilyNames() []string {
	out := make([]string, 0, len(r.families))
	for name := range r.families {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) SpeciesNames() []string {
	out := make([]string, 0, len(r.species))
	for name := range r.species {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
