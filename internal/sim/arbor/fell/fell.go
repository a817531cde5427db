// Package fell cuts branch networks down and reports the harvested volume.
package fell

import (
	"fmt"
	"strings"

	"arborcraft.ai/internal/sim/arbor/network"
	"arborcraft.ai/internal/sim/arbor/species"
	"arborcraft.ai/internal/sim/arbor/visitors"
)

type Mode int

const (
	// ModePartial removes the cut branch and everything on the far side of
	// it from the root.
	ModePartial Mode = iota
	// ModeFull removes the whole network reachable from the cut.
	ModeFull
)

func (m Mode) String() string {
	switch m {
	case ModePartial:
		return "partial"
	case ModeFull:
		return "full"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "partial", "from_node":
		return ModePartial, nil
	case "full", "entire_tree":
		return ModeFull, nil
	default:
		return 0, fmt.Errorf("unknown fell mode %q", s)
	}
}

type Result struct {
	Mode         Mode
	Volume       int
	Species      *species.Species
	Branches     int
	Leaves       int
	RootFound    bool
	Root         network.Pos
	Roots        int
	LocalRootDir network.Dir
	Overflow     bool
}

type Options struct {
	StripLeaves bool
	Ceiling     int
}

// Fell cuts the branch at p. A first walk over the whole network finds the
// root and the side it lies on; the second walk measures and destroys.
// A partial cut on a network with no root takes the whole network.
func Fell(s network.Store, reg *species.Registry, p network.Pos, mode Mode, sink visitors.DropSink, opts Options) (Result, error) {
	cut := s.Get(p)
	if !cut.IsBranch() {
		return Result{}, fmt.Errorf("fell %v: %w", p, network.ErrNotBranch)
	}
	fam, err := reg.Family(cut.Family)
	if err != nil {
		return Result{}, fmt.Errorf("fell %v: %w", p, err)
	}

	survey := network.NewMapSignal()
	survey.Ceiling = opts.Ceiling
	survey = network.Analyse(s, p, network.DirNone, survey)

	res := Result{
		Mode:         mode,
		Species:      ResolveSpecies(s, reg, survey, fam),
		RootFound:    survey.Found,
		Root:         survey.Root,
		Roots:        survey.Roots,
		LocalRootDir: survey.LocalRootDir,
		Overflow:     survey.Overflow,
	}
	if !s.Get(p).IsBranch() {
		// the cycle breaker took the cut itself
		return res, nil
	}

	from := network.DirNone
	if mode == ModePartial {
		from = survey.LocalRootDir
	}
	vol := &visitors.NetVolume{}
	d := &visitors.Destroyer{Species: res.Species, Sink: sink, StripLeaves: opts.StripLeaves}
	sig := network.NewMapSignal(vol, d)
	sig.Ceiling = opts.Ceiling
	sig = network.Analyse(s, p, from, sig)

	res.Volume = vol.Volume
	res.Branches = d.Branches
	res.Leaves = d.Leaves
	res.Overflow = res.Overflow || sig.Overflow
	return res, nil
}

// ResolveSpecies picks the species a network drops as. A reachable anchor
// is trusted when its species belongs to the cut family; anything else
// falls back to the family's common species.
func ResolveSpecies(s network.Store, reg *species.Registry, sig *network.MapSignal, fam *species.Family) *species.Species {
	if sig.Found {
		anchor := s.Get(sig.Root)
		if sp, err := reg.Species(anchor.Species); err == nil && sp.Family == fam.Name {
			return sp
		}
	}
	return fam.Common()
}

// OnBurned runs after fire removed the branch burned from p. Every
// neighboring network cut off from its root by the loss is destroyed.
// It returns the number of branches removed.
func OnBurned(s network.Store, reg *species.Registry, p network.Pos, burned network.Node, sink visitors.DropSink) (int, error) {
	if !burned.IsBranch() {
		return 0, nil
	}
	fam, err := reg.Family(burned.Family)
	if err != nil {
		return 0, fmt.Errorf("burned %v: %w", p, err)
	}
	total := 0
	for _, dir := range network.Dirs {
		np := p.Offset(dir)
		if !s.Get(np).IsBranch() {
			continue
		}
		if _, ok := network.FindRoot(s, np); ok {
			continue
		}
		d := &visitors.Destroyer{Species: fam.Common(), Sink: sink}
		network.Analyse(s, np, network.DirNone, network.NewMapSignal(d))
		total += d.Branches
	}
	return total, nil
}

// Drops converts a fell result into items. fortune adds a quarter of the
// volume per level before the harvest multiplier applies.
func Drops(res Result, multiplier float64, fortune int) []species.ItemStack {
	if res.Species == nil {
		return nil
	}
	fortuneFactor := 1.0 + 0.25*float64(fortune)
	volume := int(float64(res.Volume) * fortuneFactor)
	volume = int(float64(volume) * multiplier)
	return res.Species.LogDrops(volume)
}
