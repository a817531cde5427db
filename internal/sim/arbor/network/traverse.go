package network

// DefaultCeiling bounds traversal depth. Networks deeper than this are
// treated as cyclic or malformed.
const DefaultCeiling = 32

// Visitor observes a traversal. Visit runs before a node's neighbors are
// walked, Leave after. Root anchors only receive Visit.
type Visitor interface {
	Visit(s Store, n Node, p Pos, from Dir)
	Leave(s Store, n Node, p Pos, from Dir)
}

// MapSignal is the state threaded through Analyse.
type MapSignal struct {
	Visitors []Visitor

	Depth        int
	MaxDepth     int
	Ceiling      int
	Found        bool
	Root         Pos
	Roots        int
	LocalRootDir Dir
	Overflow     bool

	// Cells removed by the cycle breaker.
	Broken []Pos
}

func NewMapSignal(visitors ...Visitor) *MapSignal {
	return &MapSignal{
		Visitors:     visitors,
		Ceiling:      DefaultCeiling,
		LocalRootDir: DirNone,
	}
}

func (sig *MapSignal) ceiling() int {
	if sig.Ceiling <= 0 {
		return DefaultCeiling
	}
	return sig.Ceiling
}

// Analyse walks the network reachable from p depth-first. from is the
// direction the walk arrived from, or DirNone at the origin.
func Analyse(s Store, p Pos, from Dir, sig *MapSignal) *MapSignal {
	if sig == nil {
		sig = NewMapSignal()
	}
	n := s.Get(p)
	switch n.Kind {
	case KindBranch:
		return analyseBranch(s, n, p, from, sig)
	case KindRoot:
		for _, v := range sig.Visitors {
			v.Visit(s, n, p, from)
		}
		if !sig.Found {
			sig.Root = p
		}
		sig.Found = true
		sig.Roots++
		return sig
	case KindTerminator, KindEmpty:
		return sig
	default:
		return sig
	}
}

func analyseBranch(s Store, n Node, p Pos, from Dir, sig *MapSignal) *MapSignal {
	depth := sig.Depth
	sig.Depth++
	if sig.Depth > sig.MaxDepth {
		sig.MaxDepth = sig.Depth
	}
	if depth >= sig.ceiling() {
		s.Set(p, Empty)
		sig.Overflow = true
		sig.Broken = append(sig.Broken, p)
		sig.Depth--
		return sig
	}

	for _, v := range sig.Visitors {
		v.Visit(s, n, p, from)
	}
	for _, d := range Dirs {
		if d == from {
			continue
		}
		sig = Analyse(s, p.Offset(d), d.Opposite(), sig)
		if from == DirNone && sig.Found && sig.LocalRootDir == DirNone {
			sig.LocalRootDir = d
		}
	}
	for _, v := range sig.Visitors {
		v.Leave(s, n, p, from)
	}

	sig.Depth--
	return sig
}

// FindRoot reports the first root anchor reachable from p.
func FindRoot(s Store, p Pos) (Pos, bool) {
	sig := Analyse(s, p, DirNone, NewMapSignal())
	return sig.Root, sig.Found
}
