// Package store is a sparse chunked cell store for tree networks.
package store

import (
	"crypto/sha256"
	"encoding/binary"
)

const (
	ChunkSize  = 16
	ChunkCells = ChunkSize * ChunkSize * ChunkSize
)

type ChunkKey struct {
	CX int
	CY int
	CZ int
}

type Chunk struct {
	CX, CY, CZ int
	Cells      []uint32 // len = 16*16*16, packed nodes

	occupied int
	dirty    bool
	hash     [32]byte
}

func newChunk(k ChunkKey) *Chunk {
	return &Chunk{CX: k.CX, CY: k.CY, CZ: k.CZ, Cells: make([]uint32, ChunkCells)}
}

func (c *Chunk) index(x, y, z int) int {
	return x + z*ChunkSize + y*ChunkSize*ChunkSize
}

func (c *Chunk) Get(x, y, z int) uint32 {
	return c.Cells[c.index(x, y, z)]
}

func (c *Chunk) Set(x, y, z int, v uint32) {
	i := c.index(x, y, z)
	old := c.Cells[i]
	if old == v {
		return
	}
	switch {
	case old == 0:
		c.occupied++
	case v == 0:
		c.occupied--
	}
	c.Cells[i] = v
	c.dirty = true
}

// Occupied is the number of non-empty cells.
func (c *Chunk) Occupied() int { return c.occupied }

func (c *Chunk) Digest() [32]byte {
	if c.dirty || c.hash == ([32]byte{}) {
		h := sha256.New()
		var tmp [4]byte
		for _, v := range c.Cells {
			binary.LittleEndian.PutUint32(tmp[:], v)
			h.Write(tmp[:])
		}
		copy(c.hash[:], h.Sum(nil))
		c.dirty = false
	}
	return c.hash
}

func (c *Chunk) recount() {
	c.occupied = 0
	for _, v := range c.Cells {
		if v != 0 {
			c.occupied++
		}
	}
}

// Palette interns the family and species names packed into cells. Id 0 is
// the empty name.
type Palette struct {
	names []string
	ids   map[string]uint16
}

func NewPalette() *Palette {
	return &Palette{names: []string{""}, ids: map[string]uint16{"": 0}}
}

func (p *Palette) ID(name string) uint16 {
	if id, ok := p.ids[name]; ok {
		return id
	}
	id := uint16(len(p.names))
	p.names = append(p.names, name)
	p.ids[name] = id
	return id
}

func (p *Palette) Name(id uint16) string {
	if int(id) >= len(p.names) {
		return ""
	}
	return p.names[id]
}

func (p *Palette) Names() []string { return append([]string(nil), p.names...) }
