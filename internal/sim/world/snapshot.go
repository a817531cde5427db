package world

import (
	"fmt"

	"arborcraft.ai/internal/persistence/snapshot"
	"arborcraft.ai/internal/sim/mathx"
	"arborcraft.ai/internal/sim/store"
)

// Snapshot captures the store, the random stream and the tuning values that
// change behavior. Call it from the world goroutine (inside Do) or while the
// world is not running.
func (w *World) Snapshot() snapshot.SnapshotV1 {
	t := w.engine.Tuning()
	return snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			WorldID: w.cfg.ID,
			Seq:     w.seq,
		},
		Seed:              w.cfg.Seed,
		RandState:         w.rng.State,
		BoundaryR:         w.cfg.BoundaryR,
		MaxDepth:          t.MaxDepth,
		RotChance:         t.RotChance,
		HarvestMultiplier: t.HarvestMultiplier,
		Palette:           w.store.Palette.Names(),
		Chunks:            w.store.ExportChunks(),
		Species:           w.engine.Species().SpeciesNames(),
	}
}

// Restore rebuilds a world from a snapshot. Values captured in the snapshot
// override the matching fields of opts.Tuning.
func Restore(snap snapshot.SnapshotV1, cfg Config, opts Options) (*World, error) {
	if snap.Header.Version != snapshot.Version {
		return nil, fmt.Errorf("restore %s: %w", snap.Header.WorldID, snapshot.ErrVersion)
	}
	st, err := store.ImportChunks(snap.BoundaryR, snap.Palette, snap.Chunks)
	if err != nil {
		return nil, fmt.Errorf("restore %s: %w", snap.Header.WorldID, err)
	}
	if opts.Species != nil {
		for _, name := range snap.Species {
			if _, err := opts.Species.Species(name); err != nil {
				return nil, fmt.Errorf("restore %s: %w", snap.Header.WorldID, err)
			}
		}
	}
	if snap.MaxDepth > 0 {
		opts.Tuning.MaxDepth = snap.MaxDepth
	}
	opts.Tuning.RotChance = snap.RotChance
	if snap.HarvestMultiplier > 0 {
		opts.Tuning.HarvestMultiplier = snap.HarvestMultiplier
	}
	cfg.ID = snap.Header.WorldID
	cfg.Seed = snap.Seed
	cfg.BoundaryR = snap.BoundaryR
	w := newWorld(cfg, st, &mathx.Rand{State: snap.RandState}, opts)
	w.seq = snap.Header.Seq
	return w, nil
}
