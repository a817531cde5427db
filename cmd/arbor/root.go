package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	verbose    bool
	tuningPath string
	species    string
	dataDir    string
	worldID    string
	seed       int64
	boundaryR  int
	disableDB  bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:          "arbor",
		Short:        "Grow, fell and inspect voxel tree networks",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := log.InfoLevel
			if g.verbose {
				level = log.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(os.Stderr, level)))
		},
	}
	pf := root.PersistentFlags()
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "enable verbose logging")
	pf.StringVar(&g.tuningPath, "tuning", "", "path to tuning.yaml (built-in defaults when empty)")
	pf.StringVar(&g.species, "species", "", "path to species.yaml (built-in catalog when empty)")
	pf.StringVar(&g.dataDir, "data", "./data", "runtime data directory")
	pf.StringVar(&g.worldID, "world", "world_1", "world id")
	pf.Int64Var(&g.seed, "seed", 1337, "world seed (used only when starting a fresh world)")
	pf.IntVar(&g.boundaryR, "boundary", 1024, "world boundary radius on every axis (0 for none)")
	pf.BoolVar(&g.disableDB, "disable_db", false, "disable the sqlite event index")

	root.AddCommand(newServeCmd(g))
	root.AddCommand(newSeedCmd(g))
	root.AddCommand(newPlantCmd(g))
	root.AddCommand(newGrowCmd(g))
	root.AddCommand(newFellCmd(g))
	root.AddCommand(newRotCmd(g))
	root.AddCommand(newBurnCmd(g))
	root.AddCommand(newFreezeCmd(g))
	root.AddCommand(newInspectCmd(g))
	root.AddCommand(newEventsCmd(g))
	return root
}
