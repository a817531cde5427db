// Package forest seeds trees over a region. Placement depends only on the
// seed and the region, so the same settings always give the same forest.
package forest

import (
	"errors"
	"fmt"

	"arborcraft.ai/internal/sim/arbor"
	"arborcraft.ai/internal/sim/arbor/growth"
	"arborcraft.ai/internal/sim/arbor/network"
	"arborcraft.ai/internal/sim/mathx"
	"arborcraft.ai/internal/sim/tuning"
)

// Planter is the part of the engine seeding needs.
type Planter interface {
	Plant(p network.Pos, species string) error
	GrowFromRoot(rootPos network.Pos) (*growth.Signal, error)
}

type Region struct {
	MinX, MinZ int
	MaxX, MaxZ int
	Y          int
}

type Planted struct {
	Pos     network.Pos
	Species string
}

// Sites lists where trees go without touching any store. The region is cut
// into cells of cfg.CellSize; each cell holds at most one tree.
func Sites(cfg tuning.Forest, r Region) []Planted {
	size := cfg.CellSize
	if size <= 0 {
		size = 8
	}
	if len(cfg.Species) == 0 {
		return nil
	}
	var out []Planted
	for cz := mathx.FloorDiv(r.MinZ, size); cz <= mathx.FloorDiv(r.MaxZ, size); cz++ {
		for cx := mathx.FloorDiv(r.MinX, size); cx <= mathx.FloorDiv(r.MaxX, size); cx++ {
			h := mathx.Hash2(cfg.Seed, cx, cz)
			if mathx.Unit(h) >= cfg.Density {
				continue
			}
			jitter := mathx.Hash3(cfg.Seed, cx, 1, cz)
			x := cx*size + int(jitter%uint64(size))
			z := cz*size + int((jitter>>16)%uint64(size))
			if x < r.MinX || x > r.MaxX || z < r.MinZ || z > r.MaxZ {
				continue
			}
			sp := cfg.Species[int((h>>32)%uint64(len(cfg.Species)))]
			out = append(out, Planted{Pos: network.Pos{X: x, Y: r.Y, Z: z}, Species: sp})
		}
	}
	return out
}

// Seed plants every site and gives each tree cfg.GrowthPulses pulses.
// Sites that are already occupied are skipped.
func Seed(p Planter, cfg tuning.Forest, r Region) ([]Planted, error) {
	var planted []Planted
	for _, site := range Sites(cfg, r) {
		if err := p.Plant(site.Pos, site.Species); err != nil {
			if errors.Is(err, arbor.ErrOccupied) {
				continue
			}
			return planted, fmt.Errorf("seed forest: %w", err)
		}
		for i := 0; i < cfg.GrowthPulses; i++ {
			if _, err := p.GrowFromRoot(site.Pos); err != nil {
				return planted, fmt.Errorf("seed forest: %w", err)
			}
		}
		planted = append(planted, site)
	}
	return planted, nil
}
