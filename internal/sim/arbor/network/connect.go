package network

// SideConnectionRadius is the radius of the joint the branch at p makes
// toward d. Zero means no connection on that side.
func SideConnectionRadius(s Store, p Pos, d Dir) int {
	here := s.Get(p)
	if here.Kind != KindBranch {
		return 0
	}
	nb := s.Get(p.Offset(d))
	switch nb.Kind {
	case KindBranch:
		return nb.Radius
	case KindRoot:
		return here.Radius
	case KindTerminator:
		if here.Radius == MinRadius && nb.Family == here.Family {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// Connections returns SideConnectionRadius for all six sides in canonical
// order.
func Connections(s Store, p Pos) [6]int {
	var out [6]int
	for _, d := range Dirs {
		out[d] = SideConnectionRadius(s, p, d)
	}
	return out
}
