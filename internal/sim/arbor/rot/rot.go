// Package rot decides whether a branch is still held up by the rest of its
// tree and lets unsupported branches decay.
package rot

import (
	"fmt"

	"arborcraft.ai/internal/sim/arbor/network"
	"arborcraft.ai/internal/sim/arbor/species"
)

// Support tallies the neighbors holding a branch in place. Hard counts
// same-family branches and anchors; Total counts every reinforcing neighbor,
// hard ones included.
type Support struct {
	Hard  int
	Total int
}

// Reinforced is the survival threshold: one hard support and a second
// reinforcing neighbor of any kind.
func (s Support) Reinforced() bool { return s.Hard >= 1 && s.Total >= 2 }

type Checker struct {
	Store   network.Store
	Species *species.Registry

	// OnCollapse, when set, observes every branch the decay policy removed.
	OnCollapse func(p network.Pos, n network.Node)
}

// Outcome is what a single support check did to a branch.
type Outcome int

const (
	// Skipped means the chance gate did not let the check run.
	Skipped Outcome = iota
	Supported
	// Sprouted means the decay policy kept the branch alive.
	Sprouted
	Collapsed
)

func (o Outcome) String() string {
	switch o {
	case Supported:
		return "supported"
	case Sprouted:
		return "sprouted"
	case Collapsed:
		return "collapsed"
	default:
		return "skipped"
	}
}

// CheckSupport tests the branch at p. Outside rapid mode the check only runs
// when rng passes the chance gate. It reports whether the branch collapsed.
// In rapid mode a collapse re-checks every same-family branch next to it.
func (c *Checker) CheckSupport(p network.Pos, radius int, rng network.Rand, chance float64, rapid bool) (bool, error) {
	out, err := c.Check(p, radius, rng, chance, rapid)
	return out == Collapsed, err
}

// Check is CheckSupport with the full outcome.
func (c *Checker) Check(p network.Pos, radius int, rng network.Rand, chance float64, rapid bool) (Outcome, error) {
	here := c.Store.Get(p)
	if !here.IsBranch() {
		return Skipped, fmt.Errorf("check support %v: %w", p, network.ErrNotBranch)
	}
	if !rapid && (chance == 0 || rng.Float64() > chance) {
		return Skipped, nil
	}
	fam, err := c.Species.Family(here.Family)
	if err != nil {
		return Skipped, fmt.Errorf("check support %v: %w", p, err)
	}

	var sup Support
	for _, d := range network.Dirs {
		c.score(&sup, here.Family, c.Store.Get(p.Offset(d)))
		if sup.Reinforced() {
			return Supported, nil
		}
	}

	if !fam.Decay.Decay(c.Store, p, fam, sup.Total, radius, rng) {
		return Sprouted, nil
	}
	if c.OnCollapse != nil {
		c.OnCollapse(p, here)
	}
	if rapid {
		for _, d := range network.Dirs {
			np := p.Offset(d)
			nb := c.Store.Get(np)
			if !nb.IsBranch() || nb.Family != here.Family {
				continue
			}
			if _, err := c.Check(np, nb.Radius, rng, 1, true); err != nil {
				return Collapsed, err
			}
		}
	}
	return Collapsed, nil
}

// Score returns the support tally of the branch at p without acting on it.
func (c *Checker) Score(p network.Pos) Support {
	var sup Support
	here := c.Store.Get(p)
	for _, d := range network.Dirs {
		c.score(&sup, here.Family, c.Store.Get(p.Offset(d)))
	}
	return sup
}

func (c *Checker) score(sup *Support, family string, nb network.Node) {
	switch nb.Kind {
	case network.KindBranch:
		if nb.Family == family {
			sup.Hard++
			sup.Total++
		}
	case network.KindRoot:
		if c.Species.SameFamily(nb, family) {
			sup.Hard++
			sup.Total++
			// fertile soil holds a trunk on its own
			if nb.Fertility > 0 {
				sup.Total++
			}
		}
	case network.KindTerminator:
		if nb.Family == family && !nb.Frozen {
			sup.Total++
		}
	}
}
