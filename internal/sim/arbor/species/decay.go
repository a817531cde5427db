package species

import (
	"fmt"

	"arborcraft.ai/internal/sim/arbor/network"
)

// DecayPolicy decides the fate of a branch that failed its support check.
// It returns true when the branch was destroyed.
type DecayPolicy interface {
	Decay(s network.Store, p network.Pos, f *Family, reinforcement, radius int, rng network.Rand) bool
}

// SproutDecay lets an unsupported twig survive by putting out leaves into
// the first free neighbor cell. Thicker branches are removed.
type SproutDecay struct{}

func (SproutDecay) Decay(s network.Store, p network.Pos, f *Family, reinforcement, radius int, rng network.Rand) bool {
	if radius <= network.MinRadius {
		for _, d := range network.UpFirst {
			np := p.Offset(d)
			if s.IsEmpty(np) {
				s.Set(np, network.Terminator(f.Name))
				return false
			}
		}
	}
	s.Set(p, network.Empty)
	return true
}

// RotDecay always removes the branch.
type RotDecay struct{}

func (RotDecay) Decay(s network.Store, p network.Pos, _ *Family, _, _ int, _ network.Rand) bool {
	s.Set(p, network.Empty)
	return true
}

var decayPolicies = map[string]DecayPolicy{
	"":       SproutDecay{},
	"sprout": SproutDecay{},
	"rot":    RotDecay{},
}

func DecayPolicyByName(name string) (DecayPolicy, error) {
	p, ok := decayPolicies[name]
	if !ok {
		return nil, fmt.Errorf("unknown decay policy %q", name)
	}
	return p, nil
}
