package growth

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"arborcraft.ai/internal/sim/arbor/network"
	"arborcraft.ai/internal/sim/arbor/species"
)

type fixedDir network.Dir

func (f fixedDir) SelectDirection(*species.Species, network.Node, [6]network.Node, species.GrowthState, network.Rand) network.Dir {
	return network.Dir(f)
}

func testRegistry(t *testing.T, dir species.DirectionPolicy, energy float64) *species.Registry {
	t.Helper()
	reg := species.NewRegistry()
	if err := reg.AddFamily(&species.Family{Name: "oak", PrimitiveLog: "oak_log", Stick: "stick"}); err != nil {
		t.Fatalf("AddFamily: %v", err)
	}
	if err := reg.AddSpecies(&species.Species{Name: "oak", Family: "oak", Tapering: 0.3, SignalEnergy: energy, Direction: dir}); err != nil {
		t.Fatalf("AddSpecies: %v", err)
	}
	if err := reg.AddFamily(&species.Family{Name: "birch", PrimitiveLog: "birch_log", Stick: "stick"}); err != nil {
		t.Fatalf("AddFamily: %v", err)
	}
	if err := reg.AddSpecies(&species.Species{Name: "birch", Family: "birch", SignalEnergy: energy, Direction: dir}); err != nil {
		t.Fatalf("AddSpecies: %v", err)
	}
	if err := reg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return reg
}

func newGrower(t *testing.T, dir network.Dir, energy float64) (*Grower, *network.MapStore) {
	s := network.NewMapStore()
	return &Grower{Store: s, Species: testRegistry(t, fixedDir(dir), energy), Rand: rand.New(rand.NewSource(1))}, s
}

func TestGrow_TwigMakesLeavesNotBranch(t *testing.T) {
	g, s := newGrower(t, network.Up, 12)
	s.Set(network.Pos{}, network.Root("oak", 15))
	s.Set(network.Pos{Y: 1}, network.Branch("oak", 1))

	sig, err := g.GrowFromRoot(network.Pos{})
	if err != nil {
		t.Fatalf("GrowFromRoot: %v", err)
	}
	if !sig.Success {
		t.Fatalf("expected success")
	}
	if n := s.Get(network.Pos{Y: 2}); !n.IsTerminator() {
		t.Fatalf("expected terminator above twig, got %+v", n)
	}
	if n := s.Get(network.Pos{Y: 1}); n.Radius != 1 {
		t.Fatalf("twig radius=%d want 1", n.Radius)
	}
}

func TestGrow_ThickBranchBranchesOut(t *testing.T) {
	g, s := newGrower(t, network.Up, 12)
	s.Set(network.Pos{}, network.Root("oak", 15))
	s.Set(network.Pos{Y: 1}, network.Branch("oak", 2))

	sig, err := g.GrowFromRoot(network.Pos{})
	if err != nil {
		t.Fatalf("GrowFromRoot: %v", err)
	}
	if n := s.Get(network.Pos{Y: 2}); !n.IsBranch() || n.Radius != 1 || n.Family != "oak" {
		t.Fatalf("expected new radius-1 branch, got %+v", n)
	}
	if n := s.Get(network.Pos{Y: 1}); n.Radius != 2 {
		t.Fatalf("parent radius=%d want 2", n.Radius)
	}
	if sig.Radius != 2 {
		t.Fatalf("signal radius=%v want 2", sig.Radius)
	}
}

func TestGrow_PipeModelRecompute(t *testing.T) {
	g, s := newGrower(t, network.Up, 12)
	here := network.Pos{Y: 1}
	s.Set(network.Pos{}, network.Root("oak", 15))
	s.Set(here, network.Branch("oak", 2))
	s.Set(here.Offset(network.North), network.Branch("oak", 3))
	s.Set(here.Offset(network.South), network.Branch("oak", 4))

	sig, err := g.GrowFromRoot(network.Pos{})
	if err != nil {
		t.Fatalf("GrowFromRoot: %v", err)
	}
	// new branch above contributes 1, sides 9 and 16
	want := math.Sqrt(26) + 0.3
	if math.Abs(sig.Radius-want) > 1e-9 {
		t.Fatalf("signal radius=%v want %v", sig.Radius, want)
	}
	if n := s.Get(here); n.Radius != 5 {
		t.Fatalf("persisted radius=%d want 5", n.Radius)
	}
}

func TestGrow_FractionalRadiusCarriesUp(t *testing.T) {
	g, s := newGrower(t, network.Up, 12)
	s.Set(network.Pos{}, network.Root("oak", 15))
	s.Set(network.Pos{Y: 1}, network.Branch("oak", 1))
	s.Set(network.Pos{Y: 2}, network.Branch("oak", 1))

	sig, err := g.GrowFromRoot(network.Pos{})
	if err != nil {
		t.Fatalf("GrowFromRoot: %v", err)
	}
	// twig at y=2 reports 1, the node below adds tapering on top of it
	if math.Abs(sig.Radius-1.3) > 1e-9 {
		t.Fatalf("signal radius=%v want 1.3", sig.Radius)
	}
	if n := s.Get(network.Pos{Y: 1}); n.Radius != 1 {
		t.Fatalf("persisted radius=%d want 1", n.Radius)
	}
}

func TestGrow_StepBudget(t *testing.T) {
	g, s := newGrower(t, network.Up, 3)
	s.Set(network.Pos{}, network.Root("oak", 15))
	for y := 1; y <= 10; y++ {
		s.Set(network.Pos{Y: y}, network.Branch("oak", 1))
	}

	sig, err := g.GrowFromRoot(network.Pos{})
	if err != nil {
		t.Fatalf("GrowFromRoot: %v", err)
	}
	if sig.Success {
		t.Fatalf("expected budget exhaustion")
	}
	if sig.Steps != 3 {
		t.Fatalf("steps=%d want 3", sig.Steps)
	}
	if !s.IsEmpty(network.Pos{Y: 11}) {
		t.Fatalf("exhausted signal must not reach the tip")
	}
}

func TestGrow_RadiusNeverShrinks(t *testing.T) {
	reg := species.Default()
	s := network.NewMapStore()
	g := &Grower{Store: s, Species: reg, Rand: rand.New(rand.NewSource(7))}
	s.Set(network.Pos{}, network.Root("oak", 15))
	s.Set(network.Pos{Y: 1}, network.Branch("oak", 3))
	s.Set(network.Pos{Y: 2}, network.Branch("oak", 2))
	s.Set(network.Pos{X: 1, Y: 2}, network.Branch("oak", 1))

	for i := 0; i < 60; i++ {
		before := map[network.Pos]int{}
		for p, n := range s.Cells {
			if n.IsBranch() {
				before[p] = n.Radius
			}
		}
		if _, err := g.GrowFromRoot(network.Pos{}); err != nil {
			t.Fatalf("pulse %d: %v", i, err)
		}
		for p, r := range before {
			n := s.Get(p)
			if !n.IsBranch() {
				t.Fatalf("pulse %d: branch at %v disappeared", i, p)
			}
			if n.Radius < r {
				t.Fatalf("pulse %d: radius at %v shrank %d -> %d", i, p, r, n.Radius)
			}
		}
	}
}

func TestGrow_ContractViolations(t *testing.T) {
	g, s := newGrower(t, network.Up, 12)
	if _, err := g.Grow(network.Pos{}, NewSignal(mustSpecies(t, g.Species), network.Up)); !errors.Is(err, network.ErrNotBranch) {
		t.Fatalf("err=%v want ErrNotBranch", err)
	}
	s.Set(network.Pos{Y: 1}, network.Branch("oak", 1))
	if _, err := g.GrowFromRoot(network.Pos{Y: 1}); !errors.Is(err, network.ErrNotRoot) {
		t.Fatalf("err=%v want ErrNotRoot", err)
	}
	s.Set(network.Pos{}, network.Root("maple", 15))
	if _, err := g.GrowFromRoot(network.Pos{}); !errors.Is(err, species.ErrUnknownSpecies) {
		t.Fatalf("err=%v want ErrUnknownSpecies", err)
	}
}

func TestGrowFromRoot_Infertile(t *testing.T) {
	g, s := newGrower(t, network.Up, 12)
	s.Set(network.Pos{}, network.Root("oak", 0))
	s.Set(network.Pos{Y: 1}, network.Branch("oak", 1))

	sig, err := g.GrowFromRoot(network.Pos{})
	if err != nil {
		t.Fatalf("GrowFromRoot: %v", err)
	}
	if sig.Success || sig.Steps != 0 {
		t.Fatalf("infertile root grew: %+v", sig)
	}
	if !s.IsEmpty(network.Pos{Y: 2}) {
		t.Fatalf("infertile root changed the tree")
	}
}

// boundedStore refuses every cell above maxY, the way a world boundary does.
type boundedStore struct {
	*network.MapStore
	maxY int
}

func (b boundedStore) Set(p network.Pos, n network.Node) {
	if p.Y > b.maxY {
		return
	}
	b.MapStore.Set(p, n)
}

func (b boundedStore) IsEmpty(p network.Pos) bool {
	return p.Y <= b.maxY && b.MapStore.IsEmpty(p)
}

func TestGrow_BoundaryStopsSignal(t *testing.T) {
	s := boundedStore{MapStore: network.NewMapStore(), maxY: 1}
	g := &Grower{Store: s, Species: testRegistry(t, fixedDir(network.Up), 12), Rand: rand.New(rand.NewSource(1))}
	s.Set(network.Pos{}, network.Root("oak", 15))
	s.Set(network.Pos{Y: 1}, network.Branch("oak", 2))

	sig, err := g.GrowFromRoot(network.Pos{})
	if err != nil {
		t.Fatalf("GrowFromRoot: %v", err)
	}
	if sig.Success {
		t.Fatalf("growth past the boundary reported success")
	}
	if s.Len() != 2 {
		t.Fatalf("cells=%d want 2", s.Len())
	}
	if n := s.Get(network.Pos{Y: 1}); n.Radius != 2 {
		t.Fatalf("radius=%d want 2", n.Radius)
	}
}

func TestGrow_OtherFamilyBranchStopsSignal(t *testing.T) {
	g, s := newGrower(t, network.Up, 12)
	s.Set(network.Pos{}, network.Root("oak", 15))
	s.Set(network.Pos{Y: 1}, network.Branch("oak", 2))
	s.Set(network.Pos{Y: 2}, network.Branch("birch", 3))

	sig, err := g.GrowFromRoot(network.Pos{})
	if err != nil {
		t.Fatalf("GrowFromRoot: %v", err)
	}
	if sig.Success || sig.Steps != 1 {
		t.Fatalf("signal=%+v want failure after one step", sig)
	}
	if n := s.Get(network.Pos{Y: 2}); n != network.Branch("birch", 3) {
		t.Fatalf("birch branch changed: %+v", n)
	}
	if n := s.Get(network.Pos{Y: 1}); n.Radius != 2 {
		t.Fatalf("radius=%d want 2", n.Radius)
	}
}

func TestGrow_RootTargetStopsSignal(t *testing.T) {
	g, s := newGrower(t, network.Up, 12)
	s.Set(network.Pos{}, network.Root("oak", 15))
	s.Set(network.Pos{Y: 1}, network.Branch("oak", 2))
	s.Set(network.Pos{Y: 2}, network.Root("oak", 7))

	sig, err := g.GrowFromRoot(network.Pos{})
	if err != nil {
		t.Fatalf("GrowFromRoot: %v", err)
	}
	if sig.Success {
		t.Fatalf("growth into an anchor reported success")
	}
	if n := s.Get(network.Pos{Y: 2}); n != network.Root("oak", 7) {
		t.Fatalf("anchor changed: %+v", n)
	}
}

func TestGrow_SameFamilyLeavesBranchOut(t *testing.T) {
	g, s := newGrower(t, network.Up, 12)
	s.Set(network.Pos{}, network.Root("oak", 15))
	s.Set(network.Pos{Y: 1}, network.Branch("oak", 1))
	s.Set(network.Pos{Y: 2}, network.Terminator("oak"))

	sig, err := g.GrowFromRoot(network.Pos{})
	if err != nil {
		t.Fatalf("GrowFromRoot: %v", err)
	}
	if !sig.Success || sig.Steps != 2 {
		t.Fatalf("signal=%+v want success after two steps", sig)
	}
	if n := s.Get(network.Pos{Y: 2}); n != network.Branch("oak", 1) {
		t.Fatalf("leaves became %+v want radius-1 oak branch", n)
	}
	if math.Abs(sig.Radius-1.3) > 1e-9 {
		t.Fatalf("signal radius=%v want 1.3", sig.Radius)
	}
}

func TestGrow_OtherFamilyLeavesStopSignal(t *testing.T) {
	g, s := newGrower(t, network.Up, 12)
	s.Set(network.Pos{}, network.Root("oak", 15))
	s.Set(network.Pos{Y: 1}, network.Branch("oak", 2))
	s.Set(network.Pos{Y: 2}, network.Terminator("birch"))

	sig, err := g.GrowFromRoot(network.Pos{})
	if err != nil {
		t.Fatalf("GrowFromRoot: %v", err)
	}
	if sig.Success || sig.Steps != 1 {
		t.Fatalf("signal=%+v want failure after one step", sig)
	}
	if n := s.Get(network.Pos{Y: 2}); n != network.Terminator("birch") {
		t.Fatalf("birch leaves changed: %+v", n)
	}
}

func TestGrow_PipeModelIgnoresOtherFamily(t *testing.T) {
	g, s := newGrower(t, network.Up, 12)
	here := network.Pos{Y: 1}
	s.Set(network.Pos{}, network.Root("oak", 15))
	s.Set(here, network.Branch("oak", 2))
	s.Set(here.Offset(network.North), network.Branch("birch", 5))
	s.Set(here.Offset(network.South), network.Branch("oak", 3))

	sig, err := g.GrowFromRoot(network.Pos{})
	if err != nil {
		t.Fatalf("GrowFromRoot: %v", err)
	}
	// new branch above contributes 1, the oak side 9, the birch side nothing
	want := math.Sqrt(10) + 0.3
	if math.Abs(sig.Radius-want) > 1e-9 {
		t.Fatalf("signal radius=%v want %v", sig.Radius, want)
	}
	if n := s.Get(here); n.Radius != 3 {
		t.Fatalf("persisted radius=%d want 3", n.Radius)
	}
}

func mustSpecies(t *testing.T, reg *species.Registry) *species.Species {
	t.Helper()
	sp, err := reg.Species("oak")
	if err != nil {
		t.Fatalf("Species: %v", err)
	}
	return sp
}
