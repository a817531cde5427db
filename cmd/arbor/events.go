package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"arborcraft.ai/internal/persistence/indexdb"
	persistlog "arborcraft.ai/internal/persistence/log"
	"arborcraft.ai/internal/sim/arbor"
)

func newEventsCmd(g *globalFlags) *cobra.Command {
	var (
		last int
		kind string
	)
	c := &cobra.Command{
		Use:   "events",
		Short: "List recent world events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := filepath.Join(g.dataDir, "worlds", g.worldID)
			var evs []arbor.Event
			var err error
			if g.disableDB {
				evs, err = eventsFromLog(dir)
			} else {
				evs, err = eventsFromIndex(cmd, dir)
			}
			if err != nil {
				return err
			}
			evs = filterEvents(evs, arbor.EventKind(kind), last)
			return writeJSON(cmd.OutOrStdout(), evs)
		},
	}
	c.Flags().IntVarP(&last, "last", "n", 20, "number of events to show")
	c.Flags().StringVar(&kind, "kind", "", "only show events of this kind")
	return c
}

func eventsFromIndex(cmd *cobra.Command, dir string) ([]arbor.Event, error) {
	idx, err := indexdb.OpenSQLite(filepath.Join(dir, "index.db"))
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	defer idx.Close()
	n, err := idx.CountEvents(cmd.Context(), "")
	if err != nil {
		return nil, err
	}
	evs, err := idx.RecentEvents(cmd.Context(), n)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(evs)-1; i < j; i, j = i+1, j-1 {
		evs[i], evs[j] = evs[j], evs[i]
	}
	return evs, nil
}

func eventsFromLog(dir string) ([]arbor.Event, error) {
	return persistlog.ReadWorldEvents(dir)
}

// filterEvents keeps events of kind (all kinds when empty) and returns the
// newest last of them in log order.
func filterEvents(evs []arbor.Event, kind arbor.EventKind, last int) []arbor.Event {
	out := evs[:0:0]
	for _, e := range evs {
		if kind == "" || e.Kind == kind {
			out = append(out, e)
		}
	}
	if last > 0 && len(out) > last {
		out = out[len(out)-last:]
	}
	return out
}
