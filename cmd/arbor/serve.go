package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"arborcraft.ai/internal/persistence/archive"
	"arborcraft.ai/internal/persistence/snapshot"
	"arborcraft.ai/internal/protocol"
	"arborcraft.ai/internal/sim/arbor"
	"arborcraft.ai/internal/sim/store"
	"arborcraft.ai/internal/sim/world"
	"arborcraft.ai/internal/transport/ws"
)

type serveFlags struct {
	addr          string
	snapshotPath  string
	snapshotEvery time.Duration
	growEvery     time.Duration
	archiveEvery  uint64
	keepSnapshots int
}

func newServeCmd(g *globalFlags) *cobra.Command {
	f := &serveFlags{}
	c := &cobra.Command{
		Use:   "serve",
		Short: "Serve a world over websocket with metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), g, f)
		},
	}
	c.Flags().StringVar(&f.addr, "addr", ":8080", "http listen address")
	c.Flags().StringVar(&f.snapshotPath, "snapshot", "", "snapshot to load (latest in the data dir when empty)")
	c.Flags().DurationVar(&f.snapshotEvery, "snapshot_every", time.Minute, "interval between snapshots (0 disables periodic snapshots)")
	c.Flags().DurationVar(&f.growEvery, "grow_every", 0, "interval between growth pulses for every tree (0 disables)")
	c.Flags().Uint64Var(&f.archiveEvery, "archive_every", 0, "archive the first snapshot of every N sequence numbers (0 disables)")
	c.Flags().IntVar(&f.keepSnapshots, "keep_snapshots", 10, "snapshots to keep in the data dir (0 keeps all)")
	return c
}

func serve(ctx context.Context, g *globalFlags, f *serveFlags) error {
	s, err := openSession(ctx, g, sessionOptions{
		snapshotPath: f.snapshotPath,
		world:        world.Config{GrowEvery: f.growEvery},
	})
	if err != nil {
		return err
	}
	defer s.close()
	w := s.world
	logger := s.logger

	welcome := protocol.WelcomeMsg{
		WorldParams: protocol.WorldParams{
			Seed:      w.Seed(),
			BoundaryR: w.BoundaryR(),
			ChunkSize: [3]int{store.ChunkSize, store.ChunkSize, store.ChunkSize},
			MaxDepth:  s.tuning.MaxDepth,
		},
		Catalogs: protocol.CatalogDigests{SpeciesDigest: s.digests.Species, TuningDigest: s.digests.Tuning},
		Species:  s.species.SpeciesNames(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ws", ws.NewServer(w, welcome, logger).Handler())
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok\n"))
	})
	mux.HandleFunc("/admin/v1/snapshot", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		path, err := snapshotNow(r.Context(), s, f)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusInternalServerError)
			return
		}
		_ = writeJSON(rw, map[string]string{"path": path})
	})

	srv := &http.Server{Addr: f.addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	worldCtx, stopWorld := context.WithCancel(context.Background())
	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		_ = w.Run(worldCtx)
	}()

	if f.snapshotEvery > 0 {
		go func() {
			t := time.NewTicker(f.snapshotEvery)
			defer t.Stop()
			for {
				select {
				case <-worldCtx.Done():
					return
				case <-t.C:
					if path, err := snapshotNow(worldCtx, s, f); err != nil {
						if !errors.Is(err, context.Canceled) {
							logger.Error("periodic snapshot", "err", err)
						}
					} else {
						logger.Debug("snapshot written", "path", path)
					}
				}
			}
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", f.addr, "world", w.ID())
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			stopWorld()
			<-worldDone
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	stopWorld()
	<-worldDone

	path, snap, err := s.save()
	if err != nil {
		return err
	}
	retain(s, f, path, snap)
	logger.Info("final snapshot", "path", path, "seq", w.Seq())
	return nil
}

func snapshotNow(ctx context.Context, s *session, f *serveFlags) (string, error) {
	var (
		path    string
		snap    snapshot.SnapshotV1
		saveErr error
	)
	if err := s.world.Do(ctx, func(*arbor.Engine) { path, snap, saveErr = s.save() }); err != nil {
		return "", err
	}
	if saveErr != nil {
		return "", saveErr
	}
	retain(s, f, path, snap)
	return path, nil
}

// retain archives and prunes after a snapshot. Failures only cost history,
// so they are logged.
func retain(s *session, f *serveFlags, path string, snap snapshot.SnapshotV1) {
	if epoch, dst, ok, err := archive.ArchiveEpochSnapshot(s.dir, path, snap, f.archiveEvery); err != nil {
		s.logger.Warn("archive snapshot", "err", err)
	} else if ok {
		s.logger.Info("snapshot archived", "epoch", epoch, "path", dst)
	}
	if removed, err := archive.PruneSnapshots(s.dir, f.keepSnapshots); err != nil {
		s.logger.Warn("prune snapshots", "err", err)
	} else if len(removed) > 0 {
		s.logger.Debug("snapshots pruned", "count", len(removed))
	}
}
