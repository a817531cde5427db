package network

import "errors"

const (
	MinRadius    = 1
	MaxRadius    = 8
	MaxFertility = 15
)

var (
	ErrNotBranch = errors.New("occupant is not a branch")
	ErrNotRoot   = errors.New("occupant is not a root anchor")
)

type Kind uint8

const (
	KindEmpty Kind = iota
	KindBranch
	KindTerminator
	KindRoot
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindBranch:
		return "branch"
	case KindTerminator:
		return "terminator"
	case KindRoot:
		return "root"
	default:
		return "unknown"
	}
}

// Node is the occupant of one cell. Which fields are meaningful depends on
// Kind: Radius for branches, Family for branches and terminators, Species
// and Fertility for root anchors.
type Node struct {
	Kind      Kind   `json:"kind"`
	Radius    int    `json:"radius,omitempty"`
	Family    string `json:"family,omitempty"`
	Species   string `json:"species,omitempty"`
	Fertility int    `json:"fertility,omitempty"`
	Frozen    bool   `json:"frozen,omitempty"`
}

var Empty = Node{}

func Branch(family string, radius int) Node {
	return Node{Kind: KindBranch, Family: family, Radius: clampRadius(radius)}
}

func Terminator(family string) Node {
	return Node{Kind: KindTerminator, Family: family}
}

func Root(species string, fertility int) Node {
	return Node{Kind: KindRoot, Species: species, Fertility: clampFertility(fertility)}
}

func (n Node) IsEmpty() bool      { return n.Kind == KindEmpty }
func (n Node) IsBranch() bool     { return n.Kind == KindBranch }
func (n Node) IsTerminator() bool { return n.Kind == KindTerminator }
func (n Node) IsRoot() bool       { return n.Kind == KindRoot }

// Networked reports whether the node carries network connectivity.
func (n Node) Networked() bool { return n.Kind == KindBranch || n.Kind == KindRoot }

// BranchRadius returns the radius for branches and 0 for everything else.
func (n Node) BranchRadius() int {
	if n.Kind != KindBranch {
		return 0
	}
	return n.Radius
}

func (n Node) WithRadius(r int) Node {
	n.Radius = clampRadius(r)
	return n
}

func (n Node) WithFertility(f int) Node {
	n.Fertility = clampFertility(f)
	return n
}

func clampRadius(r int) int {
	if r < MinRadius {
		return MinRadius
	}
	if r > MaxRadius {
		return MaxRadius
	}
	return r
}

func clampFertility(f int) int {
	if f < 0 {
		return 0
	}
	if f > MaxFertility {
		return MaxFertility
	}
	return f
}
