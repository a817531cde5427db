package store

import (
	"fmt"

	snapv1 "arborcraft.ai/internal/persistence/snapshot"
	"arborcraft.ai/internal/sim/encoding"
)

// ExportChunks converts loaded chunk data into snapshot chunks.
func (s *ChunkStore) ExportChunks() []snapv1.ChunkV1 {
	keys := s.LoadedChunkKeys()
	out := make([]snapv1.ChunkV1, 0, len(keys))
	for _, k := range keys {
		ch := s.Chunks[k]
		out = append(out, snapv1.ChunkV1{
			CX:    k.CX,
			CY:    k.CY,
			CZ:    k.CZ,
			Cells: encoding.EncodeRLE(ch.Cells),
		})
	}
	return out
}

// ImportChunks rebuilds a chunk store from snapshot data.
func ImportChunks(boundaryR int, palette []string, chunks []snapv1.ChunkV1) (*ChunkStore, error) {
	s := NewChunkStore(boundaryR)
	if len(palette) > 0 {
		if palette[0] != "" {
			return nil, fmt.Errorf("snapshot palette id 0 must be empty, got %q", palette[0])
		}
		for _, name := range palette[1:] {
			s.Palette.ID(name)
		}
	}
	for _, sc := range chunks {
		cells, err := encoding.DecodeRLE(sc.Cells, ChunkCells)
		if err != nil {
			return nil, fmt.Errorf("snapshot chunk %d,%d,%d: %w", sc.CX, sc.CY, sc.CZ, err)
		}
		if len(cells) != ChunkCells {
			return nil, fmt.Errorf("snapshot chunk cells length mismatch: got %d want %d", len(cells), ChunkCells)
		}
		for _, v := range cells {
			if id := v >> nameShift; int(id) >= len(s.Palette.names) {
				return nil, fmt.Errorf("snapshot chunk %d,%d,%d: palette id %d out of range", sc.CX, sc.CY, sc.CZ, id)
			}
		}
		k := ChunkKey{CX: sc.CX, CY: sc.CY, CZ: sc.CZ}
		c := &Chunk{CX: k.CX, CY: k.CY, CZ: k.CZ, Cells: cells}
		c.recount()
		if c.occupied == 0 {
			continue
		}
		_ = c.Digest()
		s.Chunks[k] = c
	}
	return s, nil
}
