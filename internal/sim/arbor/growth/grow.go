package growth

import (
	"fmt"
	"math"

	"arborcraft.ai/internal/sim/arbor/network"
	"arborcraft.ai/internal/sim/arbor/species"
)

// Grower pushes growth signals through branch networks. It is not safe for
// concurrent use; callers serialize access to the store.
type Grower struct {
	Store   network.Store
	Species *species.Registry
	Rand    network.Rand
}

// Grow advances sig through the branch at p and thickens it on the way back.
// The branch's family common species chooses the direction; the signal's own
// species supplies the tapering.
func (g *Grower) Grow(p network.Pos, sig *Signal) (*Signal, error) {
	here := g.Store.Get(p)
	if !here.IsBranch() {
		return sig, fmt.Errorf("grow %v: %w", p, network.ErrNotBranch)
	}
	if !sig.Step() {
		return sig, nil
	}
	fam, err := g.Species.Family(here.Family)
	if err != nil {
		return sig, fmt.Errorf("grow %v: %w", p, err)
	}
	picker := fam.Common()

	origin := sig.Dir.Opposite()
	around := network.Neighbors(g.Store, p)
	st := sig.state()
	for _, d := range network.Dirs {
		st.Blocked[d] = around[d].IsEmpty() && !g.Store.IsEmpty(p.Offset(d))
	}
	target := picker.Direction.SelectDirection(picker, here, around, st, g.Rand)
	sig.Turn(target)

	next := p.Offset(target)
	nb := g.Store.Get(next)
	switch nb.Kind {
	case network.KindBranch:
		if nb.Family != here.Family {
			sig.Success = false
			break
		}
		if sig, err = g.Grow(next, sig); err != nil {
			return sig, err
		}
	case network.KindTerminator:
		if nb.Family != here.Family {
			sig.Success = false
			break
		}
		if sig.Step() {
			g.branchOut(next, here.Family, sig)
		}
	case network.KindEmpty:
		if st.Blocked[target] {
			sig.Success = false
			break
		}
		g.growIntoAir(next, here, sig)
	case network.KindRoot:
		sig.Success = false
	}

	// Pipe model: the cross-section here carries everything feeding into it.
	area := sig.Radius * sig.Radius
	for _, d := range network.Dirs {
		if d == origin || d == target {
			continue
		}
		side := g.Store.Get(p.Offset(d))
		if side.IsBranch() && side.Family == here.Family {
			area += float64(side.Radius * side.Radius)
		}
	}
	sig.Radius = clamp(math.Sqrt(area)+sig.Species.Tapering, float64(here.Radius), network.MaxRadius)
	g.Store.Set(p, here.WithRadius(int(math.Floor(sig.Radius))))
	return sig, nil
}

func (g *Grower) growIntoAir(p network.Pos, from network.Node, sig *Signal) {
	if from.Radius == network.MinRadius {
		g.Store.Set(p, network.Terminator(from.Family))
		sig.Success = true
		return
	}
	g.branchOut(p, from.Family, sig)
}

func (g *Grower) branchOut(p network.Pos, family string, sig *Signal) {
	g.Store.Set(p, network.Branch(family, int(sig.Species.SecondaryThickness)))
	sig.Radius = sig.Species.SecondaryThickness
	sig.Success = true
}

// GrowFromRoot sends a fresh signal from the root anchor at rootPos into its
// trunk. An infertile anchor or one with no trunk yields an unsuccessful
// signal and no error.
func (g *Grower) GrowFromRoot(rootPos network.Pos) (*Signal, error) {
	root := g.Store.Get(rootPos)
	if !root.IsRoot() {
		return nil, fmt.Errorf("grow from %v: %w", rootPos, network.ErrNotRoot)
	}
	sp, err := g.Species.Species(root.Species)
	if err != nil {
		return nil, fmt.Errorf("grow from %v: %w", rootPos, err)
	}
	sig := NewSignal(sp, network.Up)
	if root.Fertility == 0 {
		sig.Success = false
		return sig, nil
	}
	for _, d := range network.UpFirst {
		trunk := g.Store.Get(rootPos.Offset(d))
		if trunk.IsBranch() && trunk.Family == sp.Family {
			sig.Dir = d
			return g.Grow(rootPos.Offset(d), sig)
		}
	}
	sig.Success = false
	return sig, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
