package store

import (
	"testing"

	"arborcraft.ai/internal/sim/arbor/fell"
	"arborcraft.ai/internal/sim/arbor/growth"
	"arborcraft.ai/internal/sim/arbor/network"
	"arborcraft.ai/internal/sim/arbor/species"
)

func TestChunkStore_PackRoundTrip(t *testing.T) {
	s := NewChunkStore(0)
	nodes := map[network.Pos]network.Node{
		{X: -1, Y: 0, Z: -17}: network.Root("apple_oak", 11),
		{X: 15, Y: 16, Z: 0}:  network.Branch("oak", 8),
		{X: 16, Y: -300}:      network.Branch("birch", 1),
		{X: 2, Y: 2, Z: 2}:    {Kind: network.KindTerminator, Family: "oak", Frozen: true},
	}
	for p, n := range nodes {
		s.Set(p, n)
	}
	for p, want := range nodes {
		if got := s.Get(p); got != want {
			t.Fatalf("Get(%v)=%+v want %+v", p, got, want)
		}
		if s.IsEmpty(p) {
			t.Fatalf("IsEmpty(%v) on occupied cell", p)
		}
	}
	if s.Len() != len(nodes) {
		t.Fatalf("Len=%d want %d", s.Len(), len(nodes))
	}
	if !s.IsEmpty(network.Pos{X: 100}) || !s.Get(network.Pos{X: 100}).IsEmpty() {
		t.Fatalf("untouched cell not empty")
	}
}

func TestChunkStore_DropsEmptyChunks(t *testing.T) {
	s := NewChunkStore(0)
	p := network.Pos{X: 40, Y: 40, Z: 40}
	s.Set(p, network.Branch("oak", 2))
	if len(s.Chunks) != 1 {
		t.Fatalf("chunks=%d", len(s.Chunks))
	}
	s.Set(p, network.Empty)
	if len(s.Chunks) != 0 {
		t.Fatalf("empty chunk kept")
	}
	s.Set(network.Pos{X: 1}, network.Empty)
	if len(s.Chunks) != 0 {
		t.Fatalf("writing empty created a chunk")
	}
}

func TestChunkStore_Boundary(t *testing.T) {
	s := NewChunkStore(8)
	s.Set(network.Pos{X: 9}, network.Branch("oak", 1))
	if s.Len() != 0 {
		t.Fatalf("write past boundary stored")
	}
	if s.IsEmpty(network.Pos{X: 9}) {
		t.Fatalf("cells past the boundary must not report empty")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	s := NewChunkStore(0)
	s.Set(network.Pos{}, network.Root("oak", 15))
	for y := 1; y <= 20; y++ {
		s.Set(network.Pos{Y: y}, network.Branch("oak", 1+y%8))
	}
	s.Set(network.Pos{Y: 21}, network.Terminator("oak"))
	s.Set(network.Pos{X: -5, Z: 30}, network.Root("birch", 3))

	got, err := ImportChunks(0, s.Palette.Names(), s.ExportChunks())
	if err != nil {
		t.Fatalf("ImportChunks: %v", err)
	}
	if got.Digest() != s.Digest() {
		t.Fatalf("digest mismatch after round trip")
	}
	var a, b []network.Node
	s.Each(func(_ network.Pos, n network.Node) { a = append(a, n) })
	got.Each(func(_ network.Pos, n network.Node) { b = append(b, n) })
	if len(a) != len(b) || len(a) != 23 {
		t.Fatalf("cells %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("cell %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestImportChunks_Rejects(t *testing.T) {
	s := NewChunkStore(0)
	s.Set(network.Pos{}, network.Branch("oak", 1))
	chunks := s.ExportChunks()

	if _, err := ImportChunks(0, []string{""}, chunks); err == nil {
		t.Fatalf("expected palette range error")
	}
	if _, err := ImportChunks(0, []string{"oak"}, chunks); err == nil {
		t.Fatalf("expected palette shape error")
	}
	chunks[0].Cells = "AQE="
	if _, err := ImportChunks(0, s.Palette.Names(), chunks); err == nil {
		t.Fatalf("expected length error")
	}
}

func TestChunkStore_DrivesFelling(t *testing.T) {
	s := NewChunkStore(0)
	s.Set(network.Pos{Y: 15}, network.Root("oak", 15))
	s.Set(network.Pos{Y: 16}, network.Branch("oak", 3))
	s.Set(network.Pos{Y: 17}, network.Branch("oak", 2))
	s.Set(network.Pos{Y: 18}, network.Branch("oak", 1))

	res, err := fell.Fell(s, species.Default(), network.Pos{Y: 18}, fell.ModeFull, nil, fell.Options{})
	if err != nil {
		t.Fatalf("Fell: %v", err)
	}
	if res.Volume != 896 || s.Len() != 1 {
		t.Fatalf("volume=%d len=%d", res.Volume, s.Len())
	}
}

func TestChunkStore_GrowthStopsAtBoundary(t *testing.T) {
	s := NewChunkStore(2)
	s.Set(network.Pos{Y: 1}, network.Root("spruce", 15))
	s.Set(network.Pos{Y: 2}, network.Branch("spruce", 2))
	g := &growth.Grower{Store: s, Species: species.Default(), Rand: fixedRand(0.5)}

	sig, err := g.GrowFromRoot(network.Pos{Y: 1})
	if err != nil {
		t.Fatalf("GrowFromRoot: %v", err)
	}
	if sig.Success {
		t.Fatalf("growth past the boundary reported success")
	}
	if s.Len() != 2 {
		t.Fatalf("cells=%d want 2", s.Len())
	}
	if n := s.Get(network.Pos{Y: 2}); n.Radius != 2 {
		t.Fatalf("radius=%d want 2", n.Radius)
	}
}

type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }
