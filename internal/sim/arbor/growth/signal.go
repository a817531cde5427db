package growth

import (
	"arborcraft.ai/internal/sim/arbor/network"
	"arborcraft.ai/internal/sim/arbor/species"
)

// Signal carries one growth pulse through a tree. Radius is the fractional
// radius handed back up the recursion; each node persists only its floor.
type Signal struct {
	Species *species.Species
	Dir     network.Dir
	Radius  float64
	Energy  float64
	Success bool

	Steps int
	Turns int
}

// NewSignal starts a pulse travelling in dir with the species' energy budget.
func NewSignal(sp *species.Species, dir network.Dir) *Signal {
	return &Signal{
		Species: sp,
		Dir:     dir,
		Energy:  sp.SignalEnergy,
		Success: true,
	}
}

// Step spends one unit of energy. It reports whether the pulse may act on
// the current node.
func (s *Signal) Step() bool {
	s.Steps++
	s.Energy--
	if s.Energy <= 0 {
		s.Success = false
	}
	return s.Success
}

func (s *Signal) Turn(d network.Dir) {
	if d != s.Dir {
		s.Turns++
	}
	s.Dir = d
}

func (s *Signal) state() species.GrowthState {
	return species.GrowthState{Dir: s.Dir, Steps: s.Steps, Turns: s.Turns}
}
