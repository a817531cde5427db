// Package visitors holds the traversal consumers plugged into network.Analyse.
package visitors

import (
	"arborcraft.ai/internal/sim/arbor/network"
	"arborcraft.ai/internal/sim/arbor/species"
)

// UnitVolume is the volume of a radius-1 branch segment. A radius-8 segment
// is one full log.
const UnitVolume = 64

// BranchVolume is the wood volume of one branch cell.
func BranchVolume(radius int) int { return radius * radius * UnitVolume }

// NetVolume sums the wood volume of every branch it visits.
type NetVolume struct {
	Volume int
}

func (v *NetVolume) Visit(_ network.Store, n network.Node, _ network.Pos, _ network.Dir) {
	if n.IsBranch() {
		v.Volume += BranchVolume(n.Radius)
	}
}

func (v *NetVolume) Leave(network.Store, network.Node, network.Pos, network.Dir) {}

// DropSink receives what a Destroyer removed. Turning that into items is the
// sink's business.
type DropSink interface {
	BranchDestroyed(p network.Pos, n network.Node, sp *species.Species)
	LeavesDestroyed(p network.Pos, n network.Node, sp *species.Species)
}

// Destroyer empties every branch it visits. Root anchors stay. With
// StripLeaves set, leaf clusters of the same family touching a destroyed
// branch go too.
type Destroyer struct {
	Species     *species.Species
	Sink        DropSink
	StripLeaves bool

	Branches int
	Leaves   int
}

func (d *Destroyer) Visit(s network.Store, n network.Node, p network.Pos, _ network.Dir) {
	if !n.IsBranch() {
		return
	}
	s.Set(p, network.Empty)
	d.Branches++
	if d.Sink != nil {
		d.Sink.BranchDestroyed(p, n, d.Species)
	}
	if !d.StripLeaves {
		return
	}
	for _, dir := range network.Dirs {
		lp := p.Offset(dir)
		leaf := s.Get(lp)
		if !leaf.IsTerminator() || leaf.Family != n.Family {
			continue
		}
		s.Set(lp, network.Empty)
		d.Leaves++
		if d.Sink != nil {
			d.Sink.LeavesDestroyed(lp, leaf, d.Species)
		}
	}
}

func (d *Destroyer) Leave(network.Store, network.Node, network.Pos, network.Dir) {}

type ParticleSink interface {
	Emit(p network.Pos, particle string, count int)
}

// Twinkle is cosmetic: it asks for particles above every branch.
type Twinkle struct {
	Particle string
	Count    int
	Sink     ParticleSink
}

func (t *Twinkle) Visit(_ network.Store, n network.Node, p network.Pos, _ network.Dir) {
	if n.IsBranch() && t.Sink != nil && t.Count > 0 {
		t.Sink.Emit(p.Up(), t.Particle, t.Count)
	}
}

func (t *Twinkle) Leave(network.Store, network.Node, network.Pos, network.Dir) {}

// Freezer marks the leaves around every visited branch as frozen. Frozen
// leaves no longer reinforce their branch.
type Freezer struct {
	Frozen int
}

func (f *Freezer) Visit(s network.Store, n network.Node, p network.Pos, _ network.Dir) {
	if !n.IsBranch() {
		return
	}
	for _, d := range network.Dirs {
		lp := p.Offset(d)
		leaf := s.Get(lp)
		if leaf.IsTerminator() && leaf.Family == n.Family && !leaf.Frozen {
			leaf.Frozen = true
			s.Set(lp, leaf)
			f.Frozen++
		}
	}
}

func (f *Freezer) Leave(network.Store, network.Node, network.Pos, network.Dir) {}

// Counter tallies visits per occupant kind.
type Counter struct {
	Visits map[network.Kind]int
	Leaves int
}

func NewCounter() *Counter { return &Counter{Visits: map[network.Kind]int{}} }

func (c *Counter) Visit(_ network.Store, n network.Node, _ network.Pos, _ network.Dir) {
	c.Visits[n.Kind]++
}

func (c *Counter) Leave(network.Store, network.Node, network.Pos, network.Dir) { c.Leaves++ }
