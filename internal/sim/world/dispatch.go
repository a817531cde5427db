package world

import (
	"fmt"

	"arborcraft.ai/internal/protocol"
	"arborcraft.ai/internal/sim/arbor"
	"arborcraft.ai/internal/sim/arbor/fell"
	"arborcraft.ai/internal/sim/arbor/growth"
	"arborcraft.ai/internal/sim/arbor/network"
	"arborcraft.ai/internal/sim/arbor/visitors"
)

// Dispatch runs cmd against e and wraps the outcome as a RESULT message.
func Dispatch(e *arbor.Engine, cmd protocol.CommandMsg) protocol.ResultMsg {
	data, err := dispatch(e, cmd)
	if err != nil {
		return protocol.Fail(cmd.ID, protocol.CodeFor(err), err.Error())
	}
	return protocol.OK(cmd.ID, data)
}

func dispatch(e *arbor.Engine, cmd protocol.CommandMsg) (any, error) {
	p := network.PosFromArray(cmd.Pos)
	switch cmd.Type {
	case protocol.TypePlant:
		return nil, e.Plant(p, cmd.Species)

	case protocol.TypeGrow:
		sig, err := grow(e, p)
		if err != nil {
			return nil, err
		}
		return protocol.GrowResult{Success: sig.Success, Steps: sig.Steps, Turns: sig.Turns, Radius: sig.Radius}, nil

	case protocol.TypeFell:
		mode, err := fell.ParseMode(cmd.Mode)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", protocol.ErrInvalid, err)
		}
		rep, err := e.Fell(p, mode, cmd.Fortune)
		if err != nil {
			return nil, err
		}
		out := protocol.FellResult{
			Mode:      rep.Mode.String(),
			Volume:    rep.Volume,
			Branches:  rep.Branches,
			Leaves:    rep.Leaves,
			RootFound: rep.RootFound,
			Overflow:  rep.Overflow,
		}
		if rep.Species != nil {
			out.Species = rep.Species.Name
		}
		for _, it := range rep.Items {
			out.Items = append(out.Items, protocol.ItemStack{Item: it.Item, Count: it.Count})
		}
		return out, nil

	case protocol.TypeCheck:
		chance := -1.0
		if cmd.Chance != nil {
			chance = *cmd.Chance
		}
		radius := cmd.Radius
		if radius == 0 {
			radius = e.Inspect(p).BranchRadius()
		}
		rapid := e.Tuning().RapidRot
		if cmd.Rapid != nil {
			rapid = *cmd.Rapid
		}
		collapsed, err := e.CheckSupport(p, radius, chance, rapid)
		if err != nil {
			return nil, err
		}
		return protocol.CheckResult{Survived: !collapsed}, nil

	case protocol.TypeAnalyse:
		from, err := network.ParseDir(cmd.From)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", protocol.ErrInvalid, err)
		}
		if !e.Inspect(p).IsBranch() {
			return nil, fmt.Errorf("analyse %v: %w", p, network.ErrNotBranch)
		}
		vol := &visitors.NetVolume{}
		count := visitors.NewCounter()
		sig := e.Analyse(p, from, vol, count)
		out := protocol.AnalyseResult{
			Found:    sig.Found,
			Roots:    sig.Roots,
			Overflow: sig.Overflow,
			MaxDepth: sig.MaxDepth,
			Volume:   vol.Volume,
			Branches: count.Visits[network.KindBranch],
		}
		if sig.Found {
			root := sig.Root.ToArray()
			out.Root = &root
			out.LocalRootDir = sig.LocalRootDir.String()
		}
		return out, nil

	case protocol.TypeConnections:
		return protocol.ConnectionsResult{Radii: e.Connections(p)}, nil
	}
	return nil, fmt.Errorf("%w: unknown command %q", protocol.ErrInvalid, cmd.Type)
}

// grow starts a pulse at a root anchor or, for a branch, from the branch
// itself using the species that owns its network.
func grow(e *arbor.Engine, p network.Pos) (*growth.Signal, error) {
	if e.Inspect(p).IsRoot() {
		return e.GrowFromRoot(p)
	}
	sp, _, err := e.RootSpecies(p)
	if err != nil {
		return nil, err
	}
	return e.Grow(p, growth.NewSignal(sp, network.Up))
}
