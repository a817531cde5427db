package species

import (
	"fmt"

	"arborcraft.ai/internal/sim/arbor/network"
)

// GrowthState is the part of a growth signal a direction policy may read.
type GrowthState struct {
	Dir   network.Dir
	Steps int
	Turns int

	// Blocked marks neighbors that read as empty but cannot take growth,
	// such as cells past the world boundary.
	Blocked [6]bool
}

func (g GrowthState) InTrunk() bool { return g.Turns == 0 }

// DirectionPolicy picks where a growth signal goes next from the current
// branch. around holds the six neighbors in canonical order.
type DirectionPolicy interface {
	SelectDirection(sp *Species, here network.Node, around [6]network.Node, st GrowthState, rng network.Rand) network.Dir
}

// WeightedPolicy prefers thick same-family branches, then leaves, then open
// air. The arrival side gets no neighbor weight, so it is only picked when
// the upward bias points there.
type WeightedPolicy struct{}

func (WeightedPolicy) SelectDirection(sp *Species, here network.Node, around [6]network.Node, st GrowthState, rng network.Rand) network.Dir {
	if st.Steps <= sp.LowestBranchHeight {
		return network.Up
	}
	origin := st.Dir.Opposite()

	var weights [6]int
	for _, d := range network.Dirs {
		if d == origin {
			continue
		}
		weights[d] = neighborWeight(here.Family, around[d], st.Blocked[d])
	}
	weights[network.Up] += sp.UpProbability
	if !st.InTrunk() && st.Dir.Valid() {
		if st.Turns == 1 {
			weights[st.Dir] += 2
		} else {
			weights[st.Dir]++
		}
	}
	for _, d := range network.Dirs {
		if st.Blocked[d] {
			weights[d] = 0
		}
	}
	return pickWeighted(weights, rng)
}

// UprightPolicy keeps climbing while the cell above can take growth.
type UprightPolicy struct{}

func (UprightPolicy) SelectDirection(sp *Species, here network.Node, around [6]network.Node, st GrowthState, rng network.Rand) network.Dir {
	if neighborWeight(here.Family, around[network.Up], st.Blocked[network.Up]) > 0 {
		return network.Up
	}
	return WeightedPolicy{}.SelectDirection(sp, here, around, st, rng)
}

func neighborWeight(family string, n network.Node, blocked bool) int {
	switch n.Kind {
	case network.KindBranch:
		if n.Family == family {
			return n.Radius + 2
		}
		return 0
	case network.KindTerminator:
		if n.Family == family {
			return 2
		}
		return 0
	case network.KindEmpty:
		if blocked {
			return 0
		}
		return 1
	default:
		return 0
	}
}

func pickWeighted(weights [6]int, rng network.Rand) network.Dir {
	total := 0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return network.Up
	}
	roll := int(rng.Float64() * float64(total))
	for _, d := range network.Dirs {
		roll -= weights[d]
		if roll < 0 {
			return d
		}
	}
	return network.Up
}

var directionPolicies = map[string]DirectionPolicy{
	"":         WeightedPolicy{},
	"weighted": WeightedPolicy{},
	"upright":  UprightPolicy{},
}

func DirectionPolicyByName(name string) (DirectionPolicy, error) {
	p, ok := directionPolicies[name]
	if !ok {
		return nil, fmt.Errorf("unknown direction policy %q", name)
	}
	return p, nil
}
