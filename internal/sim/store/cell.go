package store

import "arborcraft.ai/internal/sim/arbor/network"

// Cell layout, low bits first:
//
//	0-1   kind
//	2-5   radius
//	6-9   fertility
//	10    frozen
//	16-31 palette id (family, or species for roots)
const (
	kindMask    = 0x3
	radiusShift = 2
	fertShift   = 6
	nibbleMask  = 0xF
	frozenBit   = 1 << 10
	nameShift   = 16
)

func (s *ChunkStore) pack(n network.Node) uint32 {
	if n.Kind == network.KindEmpty {
		return 0
	}
	v := uint32(n.Kind) & kindMask
	v |= uint32(n.Radius&nibbleMask) << radiusShift
	v |= uint32(n.Fertility&nibbleMask) << fertShift
	if n.Frozen {
		v |= frozenBit
	}
	name := n.Family
	if n.Kind == network.KindRoot {
		name = n.Species
	}
	v |= uint32(s.Palette.ID(name)) << nameShift
	return v
}

func (s *ChunkStore) unpack(v uint32) network.Node {
	if v == 0 {
		return network.Empty
	}
	kind := network.Kind(v & kindMask)
	name := s.Palette.Name(uint16(v >> nameShift))
	switch kind {
	case network.KindBranch:
		return network.Branch(name, int(v>>radiusShift)&nibbleMask)
	case network.KindTerminator:
		n := network.Terminator(name)
		n.Frozen = v&frozenBit != 0
		return n
	case network.KindRoot:
		return network.Root(name, int(v>>fertShift)&nibbleMask)
	default:
		return network.Empty
	}
}
