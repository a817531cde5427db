// Package world runs one arbor engine on its own goroutine. Every change to
// the store goes through the world loop, so the engine never sees concurrent
// callers.
package world

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"arborcraft.ai/internal/protocol"
	"arborcraft.ai/internal/sim/arbor"
	"arborcraft.ai/internal/sim/arbor/network"
	"arborcraft.ai/internal/sim/arbor/species"
	"arborcraft.ai/internal/sim/arbor/visitors"
	"arborcraft.ai/internal/sim/mathx"
	"arborcraft.ai/internal/sim/store"
	"arborcraft.ai/internal/sim/tuning"
)

var ErrStopped = errors.New("world stopped")

type Config struct {
	ID        string
	Seed      int64
	BoundaryR int

	// GrowEvery sends a growth pulse from every root anchor on each tick.
	// Zero disables background growth.
	GrowEvery time.Duration
}

type Options struct {
	Species   *species.Registry
	Tuning    tuning.Tuning
	Logger    *log.Logger
	Events    arbor.EventSink
	Drops     visitors.DropSink
	Particles visitors.ParticleSink
}

type World struct {
	cfg    Config
	store  *store.ChunkStore
	rng    *mathx.Rand
	engine *arbor.Engine
	logger *log.Logger

	inbox    chan job
	stop     chan struct{}
	stopOnce sync.Once

	seq uint64
}

type job struct {
	fn   func(*arbor.Engine)
	done chan struct{}
}

func New(cfg Config, opts Options) *World {
	return newWorld(cfg, store.NewChunkStore(cfg.BoundaryR), mathx.NewRand(cfg.Seed), opts)
}

func newWorld(cfg Config, st *store.ChunkStore, rng *mathx.Rand, opts Options) *World {
	if cfg.ID == "" {
		cfg.ID = "world"
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	w := &World{
		cfg:    cfg,
		store:  st,
		rng:    rng,
		logger: opts.Logger.With("world", cfg.ID),
		inbox:  make(chan job, 256),
		stop:   make(chan struct{}),
	}
	w.engine = arbor.New(arbor.Options{
		Store:     st,
		Species:   opts.Species,
		Tuning:    opts.Tuning,
		Rand:      rng,
		Logger:    w.logger,
		Events:    opts.Events,
		Drops:     opts.Drops,
		Particles: opts.Particles,
	})
	return w
}

func (w *World) ID() string { return w.cfg.ID }

func (w *World) Seed() int64 { return w.cfg.Seed }

func (w *World) BoundaryR() int { return w.cfg.BoundaryR }

// Engine gives direct access for callers that own the world outright (CLI
// tools, tests). Servers go through Do instead.
func (w *World) Engine() *arbor.Engine { return w.engine }

func (w *World) Store() *store.ChunkStore { return w.store }

// Run processes queued jobs until ctx ends or Stop is called.
func (w *World) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if w.cfg.GrowEvery > 0 {
		t := time.NewTicker(w.cfg.GrowEvery)
		defer t.Stop()
		tick = t.C
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case j := <-w.inbox:
			w.Apply(j.fn)
			close(j.done)
		case <-tick:
			if n := w.GrowAll(); n > 0 {
				w.logger.Debug("growth tick", "roots", n)
			}
		}
	}
}

func (w *World) Stop() { w.stopOnce.Do(func() { close(w.stop) }) }

// Do runs fn on the world goroutine and waits for it to finish.
func (w *World) Do(ctx context.Context, fn func(*arbor.Engine)) error {
	j := job{fn: fn, done: make(chan struct{})}
	select {
	case w.inbox <- j:
	case <-ctx.Done():
		return ctx.Err()
	case <-w.stop:
		return ErrStopped
	}
	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-w.stop:
		return ErrStopped
	}
}

// Apply runs fn on the calling goroutine. Use it only while the world is
// not running; Run uses it for every queued job.
func (w *World) Apply(fn func(*arbor.Engine)) {
	fn(w.engine)
	w.seq++
}

// Seq counts the jobs and growth ticks applied so far. Snapshots are
// numbered by it.
func (w *World) Seq() uint64 { return w.seq }

// Execute runs one protocol command on the world goroutine.
func (w *World) Execute(ctx context.Context, cmd protocol.CommandMsg) protocol.ResultMsg {
	var res protocol.ResultMsg
	if err := w.Do(ctx, func(e *arbor.Engine) { res = Dispatch(e, cmd) }); err != nil {
		return protocol.Fail(cmd.ID, protocol.ErrInternal, err.Error())
	}
	return res
}

// GrowAll sends one growth pulse from every root anchor in the store. It
// must run on the world goroutine or while the world is not running.
func (w *World) GrowAll() int {
	var roots []network.Pos
	w.store.Each(func(p network.Pos, n network.Node) {
		if n.IsRoot() {
			roots = append(roots, p)
		}
	})
	grown := 0
	for _, p := range roots {
		if _, err := w.engine.GrowFromRoot(p); err == nil {
			grown++
		}
	}
	w.seq++
	return grown
}
