package network

import "testing"

type recordingVisitor struct {
	visits map[Pos]int
	order  []Pos
	leaves int
}

func newRecorder() *recordingVisitor { return &recordingVisitor{visits: map[Pos]int{}} }

func (r *recordingVisitor) Visit(_ Store, _ Node, p Pos, _ Dir) {
	r.visits[p]++
	r.order = append(r.order, p)
}

func (r *recordingVisitor) Leave(_ Store, _ Node, _ Pos, _ Dir) { r.leaves++ }

// small oak: root at origin, trunk of 4, two side limbs, a leaf cluster.
func buildTree(s *MapStore) {
	s.Set(Pos{}, Root("oak", 15))
	for y := 1; y <= 4; y++ {
		s.Set(Pos{Y: y}, Branch("oak", 5-y))
	}
	s.Set(Pos{X: 1, Y: 3}, Branch("oak", 1))
	s.Set(Pos{X: 2, Y: 3}, Branch("oak", 1))
	s.Set(Pos{Z: -1, Y: 2}, Branch("oak", 1))
	s.Set(Pos{X: 3, Y: 3}, Terminator("oak"))
}

func TestAnalyse_AcyclicVisitsEveryNodeOnce(t *testing.T) {
	s := NewMapStore()
	buildTree(s)

	rec := newRecorder()
	sig := Analyse(s, Pos{X: 2, Y: 3}, DirNone, NewMapSignal(rec))

	networked := 0
	for p, n := range s.Cells {
		if !n.Networked() {
			if rec.visits[p] != 0 {
				t.Fatalf("non-network node %v visited", p)
			}
			continue
		}
		networked++
		if rec.visits[p] != 1 {
			t.Fatalf("node %v visited %d times, want 1", p, rec.visits[p])
		}
	}
	if len(rec.visits) != networked {
		t.Fatalf("visited %d nodes want %d", len(rec.visits), networked)
	}
	if !sig.Found || sig.Root != (Pos{}) || sig.Roots != 1 {
		t.Fatalf("root not found: %+v", sig)
	}
	if sig.LocalRootDir != West {
		t.Fatalf("LocalRootDir=%v want west", sig.LocalRootDir)
	}
	if sig.Overflow || sig.Depth != 0 {
		t.Fatalf("unexpected overflow=%v depth=%d", sig.Overflow, sig.Depth)
	}
	// Leave runs for branches only.
	if rec.leaves != networked-1 {
		t.Fatalf("leaves=%d want %d", rec.leaves, networked-1)
	}
}

func TestAnalyse_NoRootLeavesLocalRootDirUnset(t *testing.T) {
	s := NewMapStore()
	s.Set(Pos{Y: 1}, Branch("oak", 2))
	s.Set(Pos{Y: 2}, Branch("oak", 1))

	sig := Analyse(s, Pos{Y: 2}, DirNone, NewMapSignal())
	if sig.Found || sig.LocalRootDir != DirNone {
		t.Fatalf("expected no root, got found=%v dir=%v", sig.Found, sig.LocalRootDir)
	}
}

func TestAnalyse_CycleIsBrokenAtCeiling(t *testing.T) {
	s := NewMapStore()
	loop := []Pos{{X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 2}, {X: 0, Y: 2}}
	for _, p := range loop {
		s.Set(p, Branch("oak", 1))
	}

	sig := Analyse(s, loop[0], DirNone, NewMapSignal())
	if !sig.Overflow {
		t.Fatalf("expected overflow on a cycle")
	}
	if len(sig.Broken) != 1 {
		t.Fatalf("broken=%v want exactly one removed node", sig.Broken)
	}
	if !s.IsEmpty(sig.Broken[0]) {
		t.Fatalf("node crossing the ceiling was not removed")
	}
	if s.Len() != len(loop)-1 {
		t.Fatalf("store has %d nodes want %d", s.Len(), len(loop)-1)
	}
	if sig.MaxDepth > len(loop)+DefaultCeiling {
		t.Fatalf("max depth %d exceeds bound", sig.MaxDepth)
	}
	if sig.Depth != 0 {
		t.Fatalf("depth not unwound: %d", sig.Depth)
	}
}

func TestAnalyse_TwoRootsPicksFirstInCanonicalOrder(t *testing.T) {
	s := NewMapStore()
	s.Set(Pos{Y: 1}, Branch("oak", 2))
	s.Set(Pos{Y: 0}, Root("oak", 10))
	s.Set(Pos{X: 1, Y: 1}, Branch("oak", 1))
	s.Set(Pos{X: 1, Y: 0}, Root("birch", 10))

	for i := 0; i < 3; i++ {
		sig := Analyse(s, Pos{Y: 1}, DirNone, NewMapSignal())
		if sig.LocalRootDir != Down || sig.Root != (Pos{}) {
			t.Fatalf("run %d: dir=%v root=%v", i, sig.LocalRootDir, sig.Root)
		}
		if sig.Roots != 2 {
			t.Fatalf("roots=%d want 2", sig.Roots)
		}
	}
}

func TestAnalyse_FromDirRestrictsWalk(t *testing.T) {
	s := NewMapStore()
	buildTree(s)

	rec := newRecorder()
	Analyse(s, Pos{X: 1, Y: 3}, West, NewMapSignal(rec))
	if len(rec.visits) != 2 || rec.visits[Pos{X: 1, Y: 3}] != 1 || rec.visits[Pos{X: 2, Y: 3}] != 1 {
		t.Fatalf("unexpected partial walk: %v", rec.visits)
	}
}

func TestAnalyse_VisitOrderIsReproducible(t *testing.T) {
	s := NewMapStore()
	buildTree(s)

	a := newRecorder()
	b := newRecorder()
	Analyse(s, Pos{Y: 2}, DirNone, NewMapSignal(a))
	Analyse(s, Pos{Y: 2}, DirNone, NewMapSignal(b))
	if len(a.order) != len(b.order) {
		t.Fatalf("order length differs")
	}
	for i := range a.order {
		if a.order[i] != b.order[i] {
			t.Fatalf("order differs at %d: %v vs %v", i, a.order[i], b.order[i])
		}
	}
	if a.order[0] != (Pos{Y: 2}) || a.order[1] != (Pos{Y: 1}) || a.order[2] != (Pos{}) {
		t.Fatalf("expected down-first walk, got %v", a.order[:3])
	}
}

func TestFindRoot(t *testing.T) {
	s := NewMapStore()
	buildTree(s)
	p, ok := FindRoot(s, Pos{X: 2, Y: 3})
	if !ok || p != (Pos{}) {
		t.Fatalf("FindRoot=%v,%v", p, ok)
	}
	s.Set(Pos{Y: 1}, Empty)
	if _, ok := FindRoot(s, Pos{X: 2, Y: 3}); ok {
		t.Fatalf("expected no root after cutting the trunk")
	}
}

func TestConnections(t *testing.T) {
	s := NewMapStore()
	buildTree(s)

	c := Connections(s, Pos{Y: 3})
	if c[Down] != 3 || c[Up] != 1 || c[East] != 1 || c[West] != 0 {
		t.Fatalf("unexpected connections: %v", c)
	}
	// Trunk base joins the anchor at its own radius.
	if got := SideConnectionRadius(s, Pos{Y: 1}, Down); got != 4 {
		t.Fatalf("root joint=%d want 4", got)
	}
	// Twig touching leaves of its family.
	if got := SideConnectionRadius(s, Pos{X: 2, Y: 3}, East); got != 1 {
		t.Fatalf("leaf joint=%d want 1", got)
	}
	if got := SideConnectionRadius(s, Pos{X: 3, Y: 3}, West); got != 0 {
		t.Fatalf("terminator should not report joints, got %d", got)
	}
}

func TestDirOpposite(t *testing.T) {
	for _, d := range Dirs {
		if d.Opposite().Opposite() != d || d.Opposite() == d {
			t.Fatalf("bad opposite for %v", d)
		}
		v, o := d.Vec(), d.Opposite().Vec()
		if v.X+o.X != 0 || v.Y+o.Y != 0 || v.Z+o.Z != 0 {
			t.Fatalf("vectors of %v and opposite do not cancel", d)
		}
	}
	if DirNone.Opposite() != DirNone {
		t.Fatalf("DirNone opposite should stay none")
	}
}
