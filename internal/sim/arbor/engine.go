// Package arbor ties the tree network algorithms to a world store and
// reports what they did through logs, metrics and events.
package arbor

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"arborcraft.ai/internal/sim/arbor/fell"
	"arborcraft.ai/internal/sim/arbor/growth"
	"arborcraft.ai/internal/sim/arbor/network"
	"arborcraft.ai/internal/sim/arbor/rot"
	"arborcraft.ai/internal/sim/arbor/species"
	"arborcraft.ai/internal/sim/arbor/visitors"
	"arborcraft.ai/internal/sim/tuning"
)

var ErrOccupied = errors.New("cell occupied")

type Options struct {
	Store   network.Store
	Species *species.Registry
	Tuning  tuning.Tuning
	Rand    network.Rand

	Logger    *log.Logger
	Events    EventSink
	Drops     visitors.DropSink
	Particles visitors.ParticleSink
	Now       func() time.Time
}

// Engine is the single writer for one store. It is not safe for concurrent
// use.
type Engine struct {
	store     network.Store
	species   *species.Registry
	tuning    tuning.Tuning
	rng       network.Rand
	logger    *log.Logger
	events    EventSink
	drops     visitors.DropSink
	particles visitors.ParticleSink
	now       func() time.Time

	grower  *growth.Grower
	checker *rot.Checker

	seq uint64
}

func New(opts Options) *Engine {
	e := &Engine{
		store:     opts.Store,
		species:   opts.Species,
		tuning:    opts.Tuning,
		rng:       opts.Rand,
		logger:    opts.Logger,
		events:    opts.Events,
		drops:     opts.Drops,
		particles: opts.Particles,
		now:       opts.Now,
	}
	if e.store == nil {
		e.store = network.NewMapStore()
	}
	if e.species == nil {
		e.species = species.Default()
	}
	e.tuning.ApplyDefaults()
	if e.logger == nil {
		e.logger = log.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.rng == nil {
		panic("arbor: Options.Rand is required")
	}
	e.grower = &growth.Grower{Store: e.store, Species: e.species, Rand: e.rng}
	e.checker = &rot.Checker{Store: e.store, Species: e.species, OnCollapse: e.onCollapse}
	return e
}

func (e *Engine) Store() network.Store { return e.store }

func (e *Engine) Species() *species.Registry { return e.species }

func (e *Engine) Tuning() tuning.Tuning { return e.tuning }

func (e *Engine) Inspect(p network.Pos) network.Node { return e.store.Get(p) }

func (e *Engine) Connections(p network.Pos) [6]int { return network.Connections(e.store, p) }

// Material reports the hardness and fire values of the branch at p.
func (e *Engine) Material(p network.Pos) (species.Material, error) {
	n := e.store.Get(p)
	if !n.IsBranch() {
		return species.Material{}, fmt.Errorf("material %v: %w", p, network.ErrNotBranch)
	}
	fam, err := e.species.Family(n.Family)
	if err != nil {
		return species.Material{}, fmt.Errorf("material %v: %w", p, err)
	}
	return fam.Material(n.Radius), nil
}

// Plant places a root anchor for the named species with a twig above it.
func (e *Engine) Plant(p network.Pos, speciesName string) error {
	sp, err := e.species.Species(speciesName)
	if err != nil {
		return fmt.Errorf("plant %v: %w", p, err)
	}
	if !e.store.IsEmpty(p) || !e.store.IsEmpty(p.Up()) {
		return fmt.Errorf("plant %v: %w", p, ErrOccupied)
	}
	e.store.Set(p, network.Root(sp.Name, e.tuning.PlantFertility))
	e.store.Set(p.Up(), network.Branch(sp.Family, network.MinRadius))
	e.emit(Event{Kind: EventPlant, Pos: p.ToArray(), Species: sp.Name})
	e.logger.Debug("planted", "pos", p, "species", sp.Name)
	return nil
}

// Analyse walks the network at p with the configured depth ceiling.
func (e *Engine) Analyse(p network.Pos, from network.Dir, vs ...network.Visitor) *network.MapSignal {
	sig := network.NewMapSignal(vs...)
	sig.Ceiling = e.tuning.MaxDepth
	sig = network.Analyse(e.store, p, from, sig)
	traversals.Inc()
	e.noteOverflow(sig)
	return sig
}

func (e *Engine) noteOverflow(sig *network.MapSignal) {
	if !sig.Overflow {
		return
	}
	traversalOverflows.Inc()
	for _, b := range sig.Broken {
		e.logger.Warn("network overflow, node removed", "pos", b, "ceiling", sig.Ceiling)
		e.emit(Event{Kind: EventOverflow, Pos: b.ToArray()})
	}
}

func (e *Engine) Grow(p network.Pos, sig *growth.Signal) (*growth.Signal, error) {
	sig, err := e.grower.Grow(p, sig)
	return e.afterGrow(p, sig, err)
}

func (e *Engine) GrowFromRoot(rootPos network.Pos) (*growth.Signal, error) {
	sig, err := e.grower.GrowFromRoot(rootPos)
	return e.afterGrow(rootPos, sig, err)
}

func (e *Engine) afterGrow(p network.Pos, sig *growth.Signal, err error) (*growth.Signal, error) {
	if err != nil {
		e.logger.Warn("grow rejected", "pos", p, "err", err)
		return sig, err
	}
	result := "failed"
	if sig.Success {
		result = "success"
	}
	growSignals.WithLabelValues(result).Inc()
	ev := Event{Kind: EventGrow, Pos: p.ToArray(), Detail: result}
	if sig.Species != nil {
		ev.Species = sig.Species.Name
	}
	e.emit(ev)
	return sig, nil
}

// CheckSupport runs the support check on the branch at p. A negative chance
// uses the configured rot chance.
func (e *Engine) CheckSupport(p network.Pos, radius int, chance float64, rapid bool) (bool, error) {
	if chance < 0 {
		chance = e.tuning.RotChance
	}
	out, err := e.checker.Check(p, radius, e.rng, chance, rapid)
	if err != nil {
		e.logger.Warn("support check rejected", "pos", p, "err", err)
		return false, err
	}
	rotChecks.WithLabelValues(out.String()).Inc()
	return out == rot.Collapsed, nil
}

func (e *Engine) onCollapse(p network.Pos, n network.Node) {
	e.emit(Event{Kind: EventRot, Pos: p.ToArray(), Species: n.Family, Branches: 1})
}

// FellReport is a fell result plus the items it yields.
type FellReport struct {
	fell.Result
	Items []species.ItemStack
}

func (e *Engine) Fell(p network.Pos, mode fell.Mode, fortune int) (FellReport, error) {
	res, err := fell.Fell(e.store, e.species, p, mode, e.drops, fell.Options{
		StripLeaves: e.tuning.StripLeaves,
		Ceiling:     e.tuning.MaxDepth,
	})
	if err != nil {
		e.logger.Warn("fell rejected", "pos", p, "err", err)
		return FellReport{}, err
	}
	traversals.Add(2)
	if res.Overflow {
		traversalOverflows.Inc()
		e.logger.Warn("network overflow during fell", "pos", p)
	}
	if res.Roots > 1 {
		e.logger.Warn("network has several roots", "pos", p, "roots", res.Roots, "used", res.Root)
	}
	rep := FellReport{Result: res, Items: fell.Drops(res, e.tuning.HarvestMultiplier, fortune)}
	fellVolume.WithLabelValues(mode.String()).Observe(float64(res.Volume))
	e.emit(Event{
		Kind:     EventFell,
		Pos:      p.ToArray(),
		Species:  res.Species.Name,
		Volume:   res.Volume,
		Branches: res.Branches,
		Items:    rep.Items,
		Detail:   mode.String(),
	})
	e.logger.Info("felled", "pos", p, "mode", mode, "volume", res.Volume, "branches", res.Branches)
	return rep, nil
}

// OnBranchBurned clears the networks cut off by the loss of burned at p.
func (e *Engine) OnBranchBurned(p network.Pos, burned network.Node) (int, error) {
	n, err := fell.OnBurned(e.store, e.species, p, burned, e.drops)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		e.emit(Event{Kind: EventBurn, Pos: p.ToArray(), Species: burned.Family, Branches: n})
	}
	return n, nil
}

// Burn removes the branch at p as fire would and cleans up after it.
func (e *Engine) Burn(p network.Pos) (int, error) {
	n := e.store.Get(p)
	if !n.IsBranch() {
		return 0, fmt.Errorf("burn %v: %w", p, network.ErrNotBranch)
	}
	e.store.Set(p, network.Empty)
	removed, err := e.OnBranchBurned(p, n)
	return removed + 1, err
}

// Freeze stops the tree anchored at rootPos: its leaves freeze and the soil
// loses all fertility.
func (e *Engine) Freeze(rootPos network.Pos) (int, error) {
	root := e.store.Get(rootPos)
	if !root.IsRoot() {
		return 0, fmt.Errorf("freeze %v: %w", rootPos, network.ErrNotRoot)
	}
	f := &visitors.Freezer{}
	if trunk, ok := e.trunkOf(rootPos, root); ok {
		e.Analyse(trunk, network.DirNone, f)
	}
	e.store.Set(rootPos, root.WithFertility(0))
	e.emit(Event{Kind: EventFreeze, Pos: rootPos.ToArray(), Species: root.Species, Branches: f.Frozen})
	return f.Frozen, nil
}

// Twinkle asks the particle sink for sparkles over the tree at p. p may be
// a branch or a root anchor.
func (e *Engine) Twinkle(p network.Pos, particle string, count int) error {
	if particle == "" {
		particle = e.tuning.TwinkleParticle
	}
	if count <= 0 {
		count = e.tuning.ParticlesPerTwinkle
	}
	start := p
	n := e.store.Get(p)
	switch {
	case n.IsRoot():
		trunk, ok := e.trunkOf(p, n)
		if !ok {
			return nil
		}
		start = trunk
	case !n.IsBranch():
		return fmt.Errorf("twinkle %v: %w", p, network.ErrNotBranch)
	}
	e.Analyse(start, network.DirNone, &visitors.Twinkle{Particle: particle, Count: count, Sink: e.particles})
	return nil
}

func (e *Engine) trunkOf(rootPos network.Pos, root network.Node) (network.Pos, bool) {
	for _, d := range network.UpFirst {
		np := rootPos.Offset(d)
		if n := e.store.Get(np); n.IsBranch() && e.species.SameFamily(root, n.Family) {
			return np, true
		}
	}
	return network.Pos{}, false
}

// RootSpecies resolves the species of the network containing the branch at
// p the same way felling does.
func (e *Engine) RootSpecies(p network.Pos) (*species.Species, *network.MapSignal, error) {
	n := e.store.Get(p)
	if !n.IsBranch() {
		return nil, nil, fmt.Errorf("species at %v: %w", p, network.ErrNotBranch)
	}
	fam, err := e.species.Family(n.Family)
	if err != nil {
		return nil, nil, err
	}
	sig := e.Analyse(p, network.DirNone)
	return fell.ResolveSpecies(e.store, e.species, sig, fam), sig, nil
}

func (e *Engine) emit(ev Event) {
	if e.events == nil {
		return
	}
	e.seq++
	ev.ID = newEventID()
	ev.Seq = e.seq
	ev.Time = e.now().UTC()
	if err := e.events.WriteEvent(ev); err != nil {
		e.logger.Error("event sink", "kind", ev.Kind, "err", err)
	}
}
