package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"arborcraft.ai/internal/persistence/indexdb"
	persistlog "arborcraft.ai/internal/persistence/log"
	"arborcraft.ai/internal/persistence/snapshot"
	"arborcraft.ai/internal/sim/arbor"
	"arborcraft.ai/internal/sim/arbor/species"
	"arborcraft.ai/internal/sim/tuning"
	"arborcraft.ai/internal/sim/world"
)

// session is one opened world directory: the world itself plus the event
// log and index that record what happens to it.
type session struct {
	dir     string
	world   *world.World
	tuning  tuning.Tuning
	species *species.Registry
	digests catalogDigests
	events  *persistlog.EventLogger
	index   *indexdb.SQLiteIndex
	logger  *log.Logger
}

type catalogDigests struct {
	Species string
	Tuning  string
}

type sessionOptions struct {
	snapshotPath string
	world        world.Config
}

func openSession(ctx context.Context, g *globalFlags, so sessionOptions) (*session, error) {
	logger := loggerFromContext(ctx)

	tune := tuning.Default()
	if g.tuningPath != "" {
		t, err := tuning.Load(g.tuningPath)
		if err != nil {
			return nil, err
		}
		tune = t
	}
	speciesRaw := species.DefaultYAML()
	reg := species.Default()
	if g.species != "" {
		raw, err := os.ReadFile(g.species)
		if err != nil {
			return nil, err
		}
		r, err := species.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", g.species, err)
		}
		speciesRaw, reg = raw, r
	}

	s := &session{
		dir:     filepath.Join(g.dataDir, "worlds", g.worldID),
		tuning:  tune,
		species: reg,
		logger:  logger,
		digests: catalogDigests{Species: digestBytes(speciesRaw), Tuning: digestJSON(tune)},
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, err
	}
	s.events = persistlog.NewEventLogger(s.dir)
	sinks := arbor.MultiSink{s.events}
	if !g.disableDB {
		idx, err := indexdb.OpenSQLite(filepath.Join(s.dir, "index.db"))
		if err != nil {
			_ = s.events.Close()
			return nil, fmt.Errorf("open index: %w", err)
		}
		s.index = idx
		sinks = append(sinks, idx)
		if err := idx.UpsertCatalog(ctx, "species", reg.SpeciesNames()); err != nil {
			logger.Warn("index: upsert species catalog", "err", err)
		}
		if err := idx.UpsertCatalog(ctx, "tuning", tune); err != nil {
			logger.Warn("index: upsert tuning", "err", err)
		}
	}

	opts := world.Options{
		Species: reg,
		Tuning:  tune,
		Logger:  logger,
		Events:  sinks,
	}
	cfg := so.world
	cfg.ID = g.worldID
	cfg.Seed = g.seed
	cfg.BoundaryR = g.boundaryR

	path := so.snapshotPath
	if path == "" {
		path = latestSnapshot(s.dir)
	}
	if path == "" {
		s.world = world.New(cfg, opts)
		logger.Debug("fresh world", "world", cfg.ID, "seed", cfg.Seed)
		return s, nil
	}
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if snap.Header.WorldID != "" && snap.Header.WorldID != g.worldID {
		s.close()
		return nil, fmt.Errorf("snapshot world id mismatch: flag=%s snap=%s", g.worldID, snap.Header.WorldID)
	}
	w, err := world.Restore(snap, cfg, opts)
	if err != nil {
		s.close()
		return nil, err
	}
	s.world = w
	logger.Debug("resumed world", "snapshot", filepath.Base(path), "seq", snap.Header.Seq)
	return s, nil
}

// save writes a snapshot of the world and records it in the index. The world
// must not be running, or save must be called from inside world.Do.
func (s *session) save() (string, snapshot.SnapshotV1, error) {
	snap := s.world.Snapshot()
	path := filepath.Join(s.dir, "snapshots", fmt.Sprintf("%d.snap.zst", snap.Header.Seq))
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		return "", snap, err
	}
	s.index.RecordSnapshot(path, snap)
	return path, snap, nil
}

func (s *session) close() {
	if s.events != nil {
		if err := s.events.Close(); err != nil {
			s.logger.Warn("close event log", "err", err)
		}
	}
	if s.index != nil {
		if err := s.index.Close(); err != nil {
			s.logger.Warn("close index", "err", err)
		}
	}
}

// latestSnapshot returns the highest numbered <seq>.snap.zst in the world's
// snapshot directory, or "" when there is none.
func latestSnapshot(worldDir string) string {
	dir := filepath.Join(worldDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestSeq uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		seq, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || seq > bestSeq {
			bestSeq = seq
			best = filepath.Join(dir, name)
		}
	}
	return best
}

func digestBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func digestJSON(v any) string { return digestBytes(mustJSON(v)) }

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
