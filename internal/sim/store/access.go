package store

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"

	"arborcraft.ai/internal/sim/arbor/network"
	"arborcraft.ai/internal/sim/mathx"
)

// ChunkStore implements network.Store over sparse 16³ chunks. Chunks are
// created on first write and dropped when their last cell empties.
type ChunkStore struct {
	// BoundaryR limits every axis to [-BoundaryR, BoundaryR]; 0 means no limit.
	BoundaryR int
	Chunks    map[ChunkKey]*Chunk
	Palette   *Palette
}

func NewChunkStore(boundaryR int) *ChunkStore {
	return &ChunkStore{
		BoundaryR: boundaryR,
		Chunks:    map[ChunkKey]*Chunk{},
		Palette:   NewPalette(),
	}
}

func (s *ChunkStore) InBounds(p network.Pos) bool {
	if s.BoundaryR <= 0 {
		return true
	}
	r := s.BoundaryR
	return mathx.AbsInt(p.X) <= r && mathx.AbsInt(p.Y) <= r && mathx.AbsInt(p.Z) <= r
}

func split(p network.Pos) (ChunkKey, int, int, int) {
	k := ChunkKey{
		CX: mathx.FloorDiv(p.X, ChunkSize),
		CY: mathx.FloorDiv(p.Y, ChunkSize),
		CZ: mathx.FloorDiv(p.Z, ChunkSize),
	}
	return k, mathx.Mod(p.X, ChunkSize), mathx.Mod(p.Y, ChunkSize), mathx.Mod(p.Z, ChunkSize)
}

func (s *ChunkStore) Get(p network.Pos) network.Node {
	if !s.InBounds(p) {
		return network.Empty
	}
	k, x, y, z := split(p)
	ch, ok := s.Chunks[k]
	if !ok {
		return network.Empty
	}
	return s.unpack(ch.Get(x, y, z))
}

// Set writes n at p. Writes outside the boundary are dropped.
func (s *ChunkStore) Set(p network.Pos, n network.Node) {
	if !s.InBounds(p) {
		return
	}
	k, x, y, z := split(p)
	v := s.pack(n)
	ch, ok := s.Chunks[k]
	if !ok {
		if v == 0 {
			return
		}
		ch = newChunk(k)
		s.Chunks[k] = ch
	}
	ch.Set(x, y, z, v)
	if ch.Occupied() == 0 {
		delete(s.Chunks, k)
	}
}

func (s *ChunkStore) IsEmpty(p network.Pos) bool {
	if !s.InBounds(p) {
		// nothing grows past the boundary
		return false
	}
	k, x, y, z := split(p)
	ch, ok := s.Chunks[k]
	return !ok || ch.Get(x, y, z) == 0
}

func (s *ChunkStore) LoadedChunkKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(s.Chunks))
	for k := range s.Chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		if keys[i].CY != keys[j].CY {
			return keys[i].CY < keys[j].CY
		}
		return keys[i].CZ < keys[j].CZ
	})
	return keys
}

// Len counts occupied cells.
func (s *ChunkStore) Len() int {
	n := 0
	for _, ch := range s.Chunks {
		n += ch.Occupied()
	}
	return n
}

// Each calls fn for every occupied cell in chunk order, then y, z, x.
func (s *ChunkStore) Each(fn func(p network.Pos, n network.Node)) {
	for _, k := range s.LoadedChunkKeys() {
		ch := s.Chunks[k]
		for i, v := range ch.Cells {
			if v == 0 {
				continue
			}
			x := i % ChunkSize
			z := (i / ChunkSize) % ChunkSize
			y := i / (ChunkSize * ChunkSize)
			fn(network.Pos{X: k.CX*ChunkSize + x, Y: k.CY*ChunkSize + y, Z: k.CZ*ChunkSize + z}, s.unpack(v))
		}
	}
}

// Digest hashes the palette and every loaded chunk in key order.
func (s *ChunkStore) Digest() [32]byte {
	h := sha256.New()
	for _, name := range s.Palette.names {
		h.Write([]byte(name))
		h.Write([]byte{0})
	}
	var tmp [8]byte
	for _, k := range s.LoadedChunkKeys() {
		for _, v := range [3]int{k.CX, k.CY, k.CZ} {
			binary.LittleEndian.PutUint64(tmp[:], uint64(int64(v)))
			h.Write(tmp[:])
		}
		d := s.Chunks[k].Digest()
		h.Write(d[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
