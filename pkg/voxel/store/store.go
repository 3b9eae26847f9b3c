// Package store persists world grids and chunks.
//
// Chunks are encoded recursively in little-endian binary and compressed
// per chunk with snappy, so large uniform regions stay cheap while single
// chunks remain individually decodable.
package store

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/golang/snappy"

	"github.com/Faultbox/voxelworld/pkg/voxel"
	"github.com/Faultbox/voxelworld/pkg/voxel/world"
)

// Store errors.
var (
	ErrBadMagic     = errors.New("invalid store magic: expected 'VXW1'")
	ErrCorruptChunk = errors.New("corrupt chunk data")
	ErrTooDeep      = errors.New("chunk recursion exceeds depth limit")
)

var magic = [4]byte{'V', 'X', 'W', '1'}

// maxDepth bounds decode recursion so corrupt input cannot exhaust the
// stack.
const maxDepth = 16

type fileHeader struct {
	Magic  [4]byte
	DimX   uint32
	DimY   uint32
	DimZ   uint32
	Chunks uint32
}

type chunkHeader struct {
	X, Y, Z int32
	Size    uint32
}

// EncodeChunk serializes one chunk, nested detail included, and returns
// the snappy-compressed block.
func EncodeChunk(c *voxel.Chunk) []byte {
	var buf bytes.Buffer
	writeChunk(&buf, c)
	return snappy.Encode(nil, buf.Bytes())
}

func writeChunk(buf *bytes.Buffer, c *voxel.Chunk) {
	dx, dy, dz := c.Dims()
	var dims [3]uint32
	dims[0], dims[1], dims[2] = uint32(dx), uint32(dy), uint32(dz)
	binary.Write(buf, binary.LittleEndian, dims)

	for z := 0; z < dz; z++ {
		for y := 0; y < dy; y++ {
			for x := 0; x < dx; x++ {
				cell := c.At(x, y, z)
				buf.WriteByte(byte(cell.Kind))
				if cell.Kind == voxel.CellEmpty {
					continue
				}
				binary.Write(buf, binary.LittleEndian, uint16(cell.Material))
				if cell.Kind == voxel.CellDetail {
					writeChunk(buf, cell.Detail)
				}
			}
		}
	}
}

// DecodeChunk rebuilds a chunk from a snappy-compressed block produced by
// EncodeChunk. Malformed input fails; it is never padded or truncated.
func DecodeChunk(data []byte) (*voxel.Chunk, error) {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptChunk, err)
	}
	r := bytes.NewReader(raw)
	c, err := readChunk(r, 0)
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, ErrCorruptChunk
	}
	return c, nil
}

func readChunk(r *bytes.Reader, depth int) (*voxel.Chunk, error) {
	if depth > maxDepth {
		return nil, ErrTooDeep
	}

	var dims [3]uint32
	if err := binary.Read(r, binary.LittleEndian, &dims); err != nil {
		return nil, ErrCorruptChunk
	}
	c, err := voxel.NewChunk(int(dims[0]), int(dims[1]), int(dims[2]))
	if err != nil {
		return nil, err
	}

	dx, dy, dz := c.Dims()
	for z := 0; z < dz; z++ {
		for y := 0; y < dy; y++ {
			for x := 0; x < dx; x++ {
				kind, err := r.ReadByte()
				if err != nil {
					return nil, ErrCorruptChunk
				}
				switch voxel.CellKind(kind) {
				case voxel.CellEmpty:
					continue
				case voxel.CellLeaf:
					var m uint16
					if err := binary.Read(r, binary.LittleEndian, &m); err != nil {
						return nil, ErrCorruptChunk
					}
					if err := c.SetMaterial(x, y, z, voxel.Material(m)); err != nil {
						return nil, err
					}
				case voxel.CellDetail:
					var m uint16
					if err := binary.Read(r, binary.LittleEndian, &m); err != nil {
						return nil, ErrCorruptChunk
					}
					nested, err := readChunk(r, depth+1)
					if err != nil {
						return nil, err
					}
					if err := installDetail(c, x, y, z, voxel.Material(m), nested); err != nil {
						return nil, err
					}
				default:
					return nil, ErrCorruptChunk
				}
			}
		}
	}
	return c, nil
}

// installDetail grafts a decoded nested chunk into a cell by subdividing
// to the stored dimensions and copying the decoded cells over.
func installDetail(c *voxel.Chunk, x, y, z int, m voxel.Material, nested *voxel.Chunk) error {
	if err := c.SetMaterial(x, y, z, m); err != nil {
		return err
	}
	ndx, ndy, ndz := nested.Dims()
	if ndx != ndy || ndy != ndz {
		return ErrCorruptChunk
	}
	target, err := c.Subdivide(x, y, z, ndx)
	if err != nil {
		return err
	}
	for nz := 0; nz < ndz; nz++ {
		for ny := 0; ny < ndy; ny++ {
			for nx := 0; nx < ndx; nx++ {
				cell := nested.At(nx, ny, nz)
				switch cell.Kind {
				case voxel.CellEmpty:
					if err := target.SetMaterial(nx, ny, nz, voxel.Air); err != nil {
						return err
					}
				case voxel.CellLeaf:
					if err := target.SetMaterial(nx, ny, nz, cell.Material); err != nil {
						return err
					}
				case voxel.CellDetail:
					if err := installDetail(target, nx, ny, nz, cell.Material, cell.Detail); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// SaveGrid writes every loaded chunk of a grid. Each chunk is pinned while
// it is encoded so it cannot be unloaded mid-write.
func SaveGrid(w io.Writer, g *world.Grid) error {
	coords := g.Coords()
	dims := g.ChunkDims()

	hdr := fileHeader{
		Magic:  magic,
		DimX:   uint32(dims[0]),
		DimY:   uint32(dims[1]),
		DimZ:   uint32(dims[2]),
		Chunks: uint32(len(coords)),
	}
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return err
	}

	for _, coord := range coords {
		ch, release, ok := g.Acquire(coord)
		if !ok {
			// Unloaded between Coords and Acquire; skip but keep the
			// declared count honest.
			if err := writeEmptyEntry(w, coord); err != nil {
				return err
			}
			continue
		}
		block := EncodeChunk(ch)
		release()

		chdr := chunkHeader{
			X: int32(coord.X), Y: int32(coord.Y), Z: int32(coord.Z),
			Size: uint32(len(block)),
		}
		if err := binary.Write(w, binary.LittleEndian, chdr); err != nil {
			return err
		}
		if _, err := w.Write(block); err != nil {
			return err
		}
	}
	return nil
}

func writeEmptyEntry(w io.Writer, coord world.Coord) error {
	chdr := chunkHeader{
		X: int32(coord.X), Y: int32(coord.Y), Z: int32(coord.Z),
	}
	return binary.Write(w, binary.LittleEndian, chdr)
}

// LoadGrid reads a grid written by SaveGrid. The grid's chunk dimensions
// come from the file header.
func LoadGrid(r io.Reader) (*world.Grid, error) {
	var hdr fileHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, err
	}
	if hdr.Magic != magic {
		return nil, ErrBadMagic
	}

	g, err := world.NewGrid(world.Options{
		ChunkDims: [3]int{int(hdr.DimX), int(hdr.DimY), int(hdr.DimZ)},
	})
	if err != nil {
		return nil, err
	}

	for i := uint32(0); i < hdr.Chunks; i++ {
		var chdr chunkHeader
		if err := binary.Read(r, binary.LittleEndian, &chdr); err != nil {
			return nil, err
		}
		coord := world.Coord{X: int(chdr.X), Y: int(chdr.Y), Z: int(chdr.Z)}
		if chdr.Size == 0 {
			g.Load(coord)
			continue
		}
		block := make([]byte, chdr.Size)
		if _, err := io.ReadFull(r, block); err != nil {
			return nil, err
		}
		ch, err := DecodeChunk(block)
		if err != nil {
			return nil, err
		}
		if err := g.LoadChunk(coord, ch); err != nil {
			return nil, err
		}
	}
	return g, nil
}
