package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"arborcraft.ai/internal/protocol"
	"arborcraft.ai/internal/sim/arbor"
	"arborcraft.ai/internal/sim/arbor/network"
	"arborcraft.ai/internal/sim/arbor/species"
	"arborcraft.ai/internal/sim/arbor/visitors"
	"arborcraft.ai/internal/sim/forest"
	"arborcraft.ai/internal/sim/world"
)

func parsePos(args []string) ([3]int, error) {
	var p [3]int
	if len(args) < 3 {
		return p, fmt.Errorf("expected X Y Z, got %d arguments", len(args))
	}
	for i := 0; i < 3; i++ {
		v, err := strconv.Atoi(args[i])
		if err != nil {
			return p, fmt.Errorf("coordinate %q: %w", args[i], err)
		}
		p[i] = v
	}
	return p, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// runOffline opens the world, applies fn, saves a snapshot when fn changed
// something and closes the session.
func runOffline(cmd *cobra.Command, g *globalFlags, mutate bool, fn func(s *session, e *arbor.Engine) error) error {
	s, err := openSession(cmd.Context(), g, sessionOptions{})
	if err != nil {
		return err
	}
	defer s.close()

	var runErr error
	s.world.Apply(func(e *arbor.Engine) { runErr = fn(s, e) })
	if runErr != nil {
		return runErr
	}
	if !mutate {
		return nil
	}
	path, _, err := s.save()
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	s.logger.Debug("snapshot written", "path", path)
	return nil
}

// runProtocol executes one wire command against the stored world and prints
// its RESULT.
func runProtocol(cmd *cobra.Command, g *globalFlags, msg protocol.CommandMsg) error {
	msg.ProtocolVersion = protocol.Version
	if msg.ID == "" {
		msg.ID = strings.ToLower(msg.Type)
	}
	return runOffline(cmd, g, true, func(_ *session, e *arbor.Engine) error {
		res := world.Dispatch(e, msg)
		if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
			return err
		}
		if !res.OK {
			return fmt.Errorf("%s: %s", res.Code, res.Message)
		}
		return nil
	})
}

func newPlantCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "plant X Y Z SPECIES",
		Short: "Place a root anchor with a twig above it",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := parsePos(args)
			if err != nil {
				return err
			}
			return runProtocol(cmd, g, protocol.CommandMsg{Type: protocol.TypePlant, Pos: pos, Species: args[3]})
		},
	}
}

func newGrowCmd(g *globalFlags) *cobra.Command {
	var pulses int
	c := &cobra.Command{
		Use:   "grow X Y Z",
		Short: "Send growth pulses from a root anchor or branch",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := parsePos(args)
			if err != nil {
				return err
			}
			if pulses < 1 {
				pulses = 1
			}
			return runOffline(cmd, g, true, func(_ *session, e *arbor.Engine) error {
				var last protocol.ResultMsg
				for i := 0; i < pulses; i++ {
					last = world.Dispatch(e, protocol.CommandMsg{Type: protocol.TypeGrow, ProtocolVersion: protocol.Version, ID: "grow", Pos: pos})
					if !last.OK {
						break
					}
				}
				if err := writeJSON(cmd.OutOrStdout(), last); err != nil {
					return err
				}
				if !last.OK {
					return fmt.Errorf("%s: %s", last.Code, last.Message)
				}
				return nil
			})
		},
	}
	c.Flags().IntVarP(&pulses, "pulses", "n", 1, "number of growth pulses")
	return c
}

func newFellCmd(g *globalFlags) *cobra.Command {
	var (
		mode    string
		fortune int
	)
	c := &cobra.Command{
		Use:   "fell X Y Z",
		Short: "Cut the tree at a branch and report the harvest",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := parsePos(args)
			if err != nil {
				return err
			}
			return runProtocol(cmd, g, protocol.CommandMsg{Type: protocol.TypeFell, Pos: pos, Mode: mode, Fortune: fortune})
		},
	}
	c.Flags().StringVar(&mode, "mode", "partial", "partial (from the cut outward) or full (entire tree)")
	c.Flags().IntVar(&fortune, "fortune", 0, "fortune level applied to drops")
	return c
}

func newRotCmd(g *globalFlags) *cobra.Command {
	var (
		chance float64
		rapid  bool
	)
	c := &cobra.Command{
		Use:   "rot X Y Z",
		Short: "Run the support check on a branch",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := parsePos(args)
			if err != nil {
				return err
			}
			msg := protocol.CommandMsg{Type: protocol.TypeCheck, Pos: pos}
			if cmd.Flags().Changed("chance") {
				msg.Chance = &chance
			}
			if cmd.Flags().Changed("rapid") {
				msg.Rapid = &rapid
			}
			return runProtocol(cmd, g, msg)
		},
	}
	c.Flags().Float64Var(&chance, "chance", 1, "probability the check runs (tuning rot_chance when unset)")
	c.Flags().BoolVar(&rapid, "rapid", false, "always check and cascade through collapsed neighbors (tuning rapid_rot when unset)")
	return c
}

func newBurnCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "burn X Y Z",
		Short: "Burn away a branch and clear what it disconnects",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := parsePos(args)
			if err != nil {
				return err
			}
			return runOffline(cmd, g, true, func(_ *session, e *arbor.Engine) error {
				n, err := e.Burn(network.PosFromArray(pos))
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]int{"removed": n})
			})
		},
	}
}

func newFreezeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "freeze X Y Z",
		Short: "Freeze the tree anchored at a root and exhaust its soil",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := parsePos(args)
			if err != nil {
				return err
			}
			return runOffline(cmd, g, true, func(_ *session, e *arbor.Engine) error {
				n, err := e.Freeze(network.PosFromArray(pos))
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]int{"frozen": n})
			})
		},
	}
}

type inspectReport struct {
	Pos         [3]int                  `json:"pos"`
	Node        network.Node            `json:"node"`
	Kind        string                  `json:"kind"`
	Connections [6]int                  `json:"connections"`
	Network     *protocol.AnalyseResult `json:"network,omitempty"`
	Species     string                  `json:"species,omitempty"`
	Material    *species.Material       `json:"material,omitempty"`
}

func newInspectCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect X Y Z",
		Short: "Describe the cell at a position and the network it belongs to",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := parsePos(args)
			if err != nil {
				return err
			}
			return runOffline(cmd, g, false, func(_ *session, e *arbor.Engine) error {
				p := network.PosFromArray(pos)
				n := e.Inspect(p)
				rep := inspectReport{Pos: pos, Node: n, Kind: n.Kind.String(), Connections: e.Connections(p)}
				if n.IsBranch() {
					vol := &visitors.NetVolume{}
					count := visitors.NewCounter()
					sig := e.Analyse(p, network.DirNone, vol, count)
					an := &protocol.AnalyseResult{
						Found:    sig.Found,
						Roots:    sig.Roots,
						Overflow: sig.Overflow,
						MaxDepth: sig.MaxDepth,
						Volume:   vol.Volume,
						Branches: count.Visits[network.KindBranch],
					}
					if sig.Found {
						root := sig.Root.ToArray()
						an.Root = &root
						an.LocalRootDir = sig.LocalRootDir.String()
					}
					rep.Network = an
					if sp, _, err := e.RootSpecies(p); err == nil {
						rep.Species = sp.Name
					}
					if m, err := e.Material(p); err == nil {
						rep.Material = &m
					}
				}
				return writeJSON(cmd.OutOrStdout(), rep)
			})
		},
	}
}

func newSeedCmd(g *globalFlags) *cobra.Command {
	var (
		region string
		y      int
	)
	c := &cobra.Command{
		Use:   "seed",
		Short: "Plant and grow a deterministic forest over a region",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := parseRegion(region, y)
			if err != nil {
				return err
			}
			return runOffline(cmd, g, true, func(s *session, e *arbor.Engine) error {
				planted, err := forest.Seed(e, s.tuning.Forest, r)
				if err != nil {
					return err
				}
				s.logger.Info("forest seeded", "trees", len(planted), "region", region)
				return writeJSON(cmd.OutOrStdout(), planted)
			})
		},
	}
	c.Flags().StringVar(&region, "region", "-32,-32,32,32", "minX,minZ,maxX,maxZ")
	c.Flags().IntVar(&y, "y", 64, "ground level for root anchors")
	return c
}

func parseRegion(s string, y int) (forest.Region, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return forest.Region{}, fmt.Errorf("region %q: want minX,minZ,maxX,maxZ", s)
	}
	var v [4]int
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return forest.Region{}, fmt.Errorf("region %q: %w", s, err)
		}
		v[i] = n
	}
	if v[0] > v[2] || v[1] > v[3] {
		return forest.Region{}, fmt.Errorf("region %q: min above max", s)
	}
	return forest.Region{MinX: v[0], MinZ: v[1], MaxX: v[2], MaxZ: v[3], Y: y}, nil
}
