// Package world maintains the sparse grid of loaded top-level chunks.
//
// The grid is the only shared structure in the core: its mutex guards the
// coordinate map and the per-entry pin counts, and is held only for map
// mutation, never across a mesh extraction or raycast traversal. Chunk
// contents themselves have a single logical owner and are not locked here.
package world

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/voxelworld/pkg/voxel"
)

// Grid errors.
var (
	// ErrInUse is returned by Unload while an operation still pins the
	// chunk. The caller should retry after the operation completes.
	ErrInUse = errors.New("chunk is pinned by an active operation")

	// ErrDimensionMismatch is returned by LoadChunk when the chunk's
	// dimensions differ from the grid's configured chunk dimensions.
	ErrDimensionMismatch = errors.New("chunk dimensions do not match grid")
)

// Coord addresses a top-level chunk in the grid.
type Coord struct {
	X, Y, Z int
}

// Add returns the coordinate offset by a direction.
func (c Coord) Add(d Direction) Coord {
	ox, oy, oz := d.Offset()
	return Coord{c.X + ox, c.Y + oy, c.Z + oz}
}

// Direction identifies one of the six axis neighbors of a chunk.
type Direction int

// Neighbor directions.
const (
	NegX Direction = iota
	PosX
	NegY
	PosY
	NegZ
	PosZ
)

var dirOffsets = [6][3]int{
	{-1, 0, 0},
	{1, 0, 0},
	{0, -1, 0},
	{0, 1, 0},
	{0, 0, -1},
	{0, 0, 1},
}

// Offset returns the unit coordinate step for the direction.
func (d Direction) Offset() (dx, dy, dz int) {
	o := dirOffsets[d]
	return o[0], o[1], o[2]
}

// Options configures a grid.
type Options struct {
	// ChunkDims are the per-axis cell dimensions of every top-level chunk.
	// Each must be a power of two. Zero values default to 16.
	ChunkDims [3]int

	// Log receives streaming events at debug level. Nil disables logging.
	Log *zap.Logger
}

type entry struct {
	chunk *voxel.Chunk
	pins  int
}

// Grid is a sparse mapping from chunk coordinates to loaded chunks. At
// most one chunk exists per coordinate.
type Grid struct {
	mu     sync.RWMutex
	chunks map[Coord]*entry
	dims   [3]int
	log    *zap.Logger
}

// NewGrid creates an empty grid.
func NewGrid(opts Options) (*Grid, error) {
	dims := opts.ChunkDims
	for a := 0; a < 3; a++ {
		if dims[a] == 0 {
			dims[a] = 16
		}
	}
	// Validate once here so Load can allocate without error paths.
	if _, err := voxel.NewChunk(dims[0], dims[1], dims[2]); err != nil {
		return nil, err
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Grid{
		chunks: make(map[Coord]*entry),
		dims:   dims,
		log:    log,
	}, nil
}

// ChunkDims returns the per-axis cell dimensions of top-level chunks.
func (g *Grid) ChunkDims() [3]int {
	return g.dims
}

// Load returns the chunk at the coordinate, allocating an empty one if the
// coordinate is not loaded. Idempotent.
func (g *Grid) Load(c Coord) *voxel.Chunk {
	g.mu.Lock()
	defer g.mu.Unlock()

	if e, ok := g.chunks[c]; ok {
		return e.chunk
	}
	ch, _ := voxel.NewChunk(g.dims[0], g.dims[1], g.dims[2])
	g.chunks[c] = &entry{chunk: ch}
	g.log.Debug("chunk loaded",
		zap.Int("x", c.X), zap.Int("y", c.Y), zap.Int("z", c.Z))
	return ch
}

// LoadChunk installs an externally built chunk (an imported model, or one
// read back from a store) at the coordinate, replacing any unpinned chunk
// already there.
func (g *Grid) LoadChunk(c Coord, ch *voxel.Chunk) error {
	dx, dy, dz := ch.Dims()
	if [3]int{dx, dy, dz} != g.dims {
		return ErrDimensionMismatch
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if e, ok := g.chunks[c]; ok && e.pins > 0 {
		return ErrInUse
	}
	g.chunks[c] = &entry{chunk: ch}
	g.log.Debug("chunk installed",
		zap.Int("x", c.X), zap.Int("y", c.Y), zap.Int("z", c.Z))
	return nil
}

// Chunk returns the chunk at the coordinate without loading.
func (g *Grid) Chunk(c Coord) (*voxel.Chunk, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	e, ok := g.chunks[c]
	if !ok {
		return nil, false
	}
	return e.chunk, true
}

// Neighbor returns the chunk adjacent to c in the given direction, or
// false if that coordinate is not loaded. Callers must treat an unloaded
// neighbor as unknown, not as unoccupied.
func (g *Grid) Neighbor(c Coord, d Direction) (*voxel.Chunk, bool) {
	return g.Chunk(c.Add(d))
}

// Acquire pins the chunk at the coordinate for the duration of a read
// operation, preventing Unload from destroying it mid-traversal. The
// returned release function must be called exactly once.
func (g *Grid) Acquire(c Coord) (*voxel.Chunk, func(), bool) {
	g.mu.Lock()
	e, ok := g.chunks[c]
	if !ok {
		g.mu.Unlock()
		return nil, nil, false
	}
	e.pins++
	g.mu.Unlock()

	var released bool
	release := func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if !released {
			released = true
			e.pins--
		}
	}
	return e.chunk, release, true
}

// Unload destroys the chunk entry at the coordinate. It fails with ErrInUse
// while an active operation holds the chunk; unloading an absent coordinate
// is a no-op.
func (g *Grid) Unload(c Coord) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.chunks[c]
	if !ok {
		return nil
	}
	if e.pins > 0 {
		return ErrInUse
	}
	delete(g.chunks, c)
	g.log.Debug("chunk unloaded",
		zap.Int("x", c.X), zap.Int("y", c.Y), zap.Int("z", c.Z))
	return nil
}

// Len returns the number of loaded chunks.
func (g *Grid) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.chunks)
}

// Coords returns the coordinates of all loaded chunks in unspecified order.
func (g *Grid) Coords() []Coord {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Coord, 0, len(g.chunks))
	for c := range g.chunks {
		out = append(out, c)
	}
	return out
}

// Bounds returns the inclusive coordinate bounds of all loaded chunks,
// or false if the grid is empty.
func (g *Grid) Bounds() (min, max Coord, ok bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	first := true
	for c := range g.chunks {
		if first {
			min, max = c, c
			first = false
			continue
		}
		if c.X < min.X {
			min.X = c.X
		}
		if c.Y < min.Y {
			min.Y = c.Y
		}
		if c.Z < min.Z {
			min.Z = c.Z
		}
		if c.X > max.X {
			max.X = c.X
		}
		if c.Y > max.Y {
			max.Y = c.Y
		}
		if c.Z > max.Z {
			max.Z = c.Z
		}
	}
	return min, max, !first
}
