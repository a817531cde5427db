package fell

import (
	"errors"
	"testing"

	"arborcraft.ai/internal/sim/arbor/network"
	"arborcraft.ai/internal/sim/arbor/species"
)

type countingSink struct {
	branches int
	leaves   int
}

func (c *countingSink) BranchDestroyed(network.Pos, network.Node, *species.Species) { c.branches++ }
func (c *countingSink) LeavesDestroyed(network.Pos, network.Node, *species.Species) { c.leaves++ }

// root at the origin, radii 3,2,1 going up.
func chain(rootSpecies string) *network.MapStore {
	s := network.NewMapStore()
	if rootSpecies != "" {
		s.Set(network.Pos{}, network.Root(rootSpecies, 15))
	}
	s.Set(network.Pos{Y: 1}, network.Branch("oak", 3))
	s.Set(network.Pos{Y: 2}, network.Branch("oak", 2))
	s.Set(network.Pos{Y: 3}, network.Branch("oak", 1))
	return s
}

func TestFell_PartialTakesOnlyFarSide(t *testing.T) {
	s := chain("oak")
	sink := &countingSink{}
	res, err := Fell(s, species.Default(), network.Pos{Y: 3}, ModePartial, sink, Options{})
	if err != nil {
		t.Fatalf("Fell: %v", err)
	}
	if res.Volume != 64 || res.Branches != 1 || sink.branches != 1 {
		t.Fatalf("partial result=%+v", res)
	}
	if res.LocalRootDir != network.Down || !res.RootFound {
		t.Fatalf("root side=%v found=%v", res.LocalRootDir, res.RootFound)
	}
	if !s.Get(network.Pos{Y: 2}).IsBranch() || !s.Get(network.Pos{Y: 1}).IsBranch() {
		t.Fatalf("root side destroyed")
	}
}

func TestFell_PartialMidTrunk(t *testing.T) {
	s := chain("oak")
	res, err := Fell(s, species.Default(), network.Pos{Y: 2}, ModePartial, nil, Options{})
	if err != nil {
		t.Fatalf("Fell: %v", err)
	}
	if res.Volume != (4+1)*64 || s.Len() != 2 {
		t.Fatalf("result=%+v store=%v", res, s.Cells)
	}
}

func TestFell_FullTakesEverything(t *testing.T) {
	s := chain("oak")
	res, err := Fell(s, species.Default(), network.Pos{Y: 3}, ModeFull, nil, Options{})
	if err != nil {
		t.Fatalf("Fell: %v", err)
	}
	if res.Volume != 896 || res.Branches != 3 {
		t.Fatalf("full result=%+v", res)
	}
	if s.Len() != 1 || !s.Get(network.Pos{}).IsRoot() {
		t.Fatalf("store=%v", s.Cells)
	}
}

func TestFell_PartialWithoutRootTakesNetwork(t *testing.T) {
	s := chain("")
	res, err := Fell(s, species.Default(), network.Pos{Y: 2}, ModePartial, nil, Options{})
	if err != nil {
		t.Fatalf("Fell: %v", err)
	}
	if res.RootFound || res.Volume != 896 || s.Len() != 0 {
		t.Fatalf("result=%+v store=%v", res, s.Cells)
	}
	if res.Species.Name != "oak" {
		t.Fatalf("species=%s want family common", res.Species.Name)
	}
}

func TestFell_SpeciesResolution(t *testing.T) {
	reg := species.Default()
	for _, tc := range []struct {
		root, want string
	}{
		{"apple_oak", "apple_oak"},
		{"birch", "oak"},
		{"oak", "oak"},
	} {
		s := chain(tc.root)
		res, err := Fell(s, reg, network.Pos{Y: 3}, ModePartial, nil, Options{})
		if err != nil {
			t.Fatalf("Fell: %v", err)
		}
		if res.Species.Name != tc.want {
			t.Fatalf("root %s: species=%s want %s", tc.root, res.Species.Name, tc.want)
		}
	}
}

func TestFell_StripLeaves(t *testing.T) {
	s := chain("oak")
	s.Set(network.Pos{Y: 4}, network.Terminator("oak"))
	sink := &countingSink{}
	res, err := Fell(s, species.Default(), network.Pos{Y: 3}, ModePartial, sink, Options{StripLeaves: true})
	if err != nil {
		t.Fatalf("Fell: %v", err)
	}
	if res.Leaves != 1 || sink.leaves != 1 || !s.IsEmpty(network.Pos{Y: 4}) {
		t.Fatalf("leaves=%d sink=%d", res.Leaves, sink.leaves)
	}
}

func TestFell_NotBranch(t *testing.T) {
	s := chain("oak")
	if _, err := Fell(s, species.Default(), network.Pos{}, ModeFull, nil, Options{}); !errors.Is(err, network.ErrNotBranch) {
		t.Fatalf("err=%v want ErrNotBranch", err)
	}
}

func TestOnBurned_DropsOrphans(t *testing.T) {
	s := chain("oak")
	s.Set(network.Pos{Y: 4}, network.Branch("oak", 1))
	s.Set(network.Pos{X: 1, Y: 2}, network.Branch("oak", 1))
	s.Set(network.Pos{X: 2, Y: 2}, network.Branch("oak", 1))

	burned := s.Get(network.Pos{Y: 2})
	s.Set(network.Pos{Y: 2}, network.Empty)

	n, err := OnBurned(s, species.Default(), network.Pos{Y: 2}, burned, nil)
	if err != nil {
		t.Fatalf("OnBurned: %v", err)
	}
	if n != 4 {
		t.Fatalf("removed %d want 4", n)
	}
	if !s.Get(network.Pos{Y: 1}).IsBranch() || s.Len() != 2 {
		t.Fatalf("store=%v", s.Cells)
	}
}

func TestDrops(t *testing.T) {
	sp, _ := species.Default().Species("oak")
	res := Result{Volume: 4096 + 1024, Species: sp}

	got := Drops(res, 1, 0)
	if len(got) != 2 || got[0].Count != 1 || got[1].Count != 2 {
		t.Fatalf("drops=%v", got)
	}
	// fortune 4 doubles the volume
	got = Drops(res, 1, 4)
	if got[0].Count != 2 || got[1].Count != 4 {
		t.Fatalf("fortune drops=%v", got)
	}
	if Drops(Result{}, 1, 0) != nil {
		t.Fatalf("nil species should drop nothing")
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode("FULL"); err != nil || m != ModeFull {
		t.Fatalf("m=%v err=%v", m, err)
	}
	if m, err := ParseMode(""); err != nil || m != ModePartial {
		t.Fatalf("m=%v err=%v", m, err)
	}
	if _, err := ParseMode("sideways"); err == nil {
		t.Fatalf("expected error")
	}
}
