package voxel

// Chunk is a dense 3D grid of cells. Dimensions are fixed at construction
// and every axis must individually be a power of two; axes may differ.
//
// Cells are stored in a single contiguous slice with x varying fastest
// (index = x + y*DX + z*DX*DY), which keeps face-culling sweeps and DDA
// traversal cache-friendly.
//
// A chunk has a single logical owner and performs no internal locking.
// Read-only queries (mesh extraction, raycasting) may run concurrently on
// different chunks, but must not race a mutation on the same chunk.
type Chunk struct {
	dx, dy, dz int
	cells      []Cell
	depth      int
	dirty      bool
}

// isPowerOfTwo reports whether n is a positive power of two.
func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// NewChunk allocates an empty chunk with the given per-axis dimensions.
// Each dimension must be a power of two.
func NewChunk(dx, dy, dz int) (*Chunk, error) {
	if !isPowerOfTwo(dx) || !isPowerOfTwo(dy) || !isPowerOfTwo(dz) {
		return nil, ErrInvalidDimension
	}
	return &Chunk{
		dx:    dx,
		dy:    dy,
		dz:    dz,
		cells: make([]Cell, dx*dy*dz),
		dirty: true,
	}, nil
}

// FromGrid builds a chunk from a dense material grid, the construction
// interface used by voxel model importers. The grid must hold exactly
// dx*dy*dz entries in x-fastest order; material 0 produces empty cells.
func FromGrid(dx, dy, dz int, materials []Material) (*Chunk, error) {
	c, err := NewChunk(dx, dy, dz)
	if err != nil {
		return nil, err
	}
	if len(materials) != len(c.cells) {
		return nil, ErrGridSizeMismatch
	}
	for i, m := range materials {
		if m != Air {
			c.cells[i] = Cell{Kind: CellLeaf, Material: m}
		}
	}
	return c, nil
}

// Dims returns the per-axis dimensions.
func (c *Chunk) Dims() (dx, dy, dz int) {
	return c.dx, c.dy, c.dz
}

// Depth returns the recursion depth of this chunk. Top-level chunks are at
// depth 0; each subdivision adds one.
func (c *Chunk) Depth() int {
	return c.depth
}

// Len returns the number of cells in the chunk.
func (c *Chunk) Len() int {
	return len(c.cells)
}

// InBounds reports whether (x, y, z) is a valid cell index.
func (c *Chunk) InBounds(x, y, z int) bool {
	return x >= 0 && x < c.dx && y >= 0 && y < c.dy && z >= 0 && z < c.dz
}

// index converts a cell coordinate to a slice offset. Callers must check
// bounds first.
func (c *Chunk) index(x, y, z int) int {
	return x + y*c.dx + z*c.dx*c.dy
}

// Get returns the cell at the given local index.
func (c *Chunk) Get(x, y, z int) (Cell, error) {
	if !c.InBounds(x, y, z) {
		return Cell{}, ErrOutOfBounds
	}
	return c.cells[c.index(x, y, z)], nil
}

// At returns the cell at the given local index without bounds checking.
// Callers must have validated the coordinate with InBounds.
func (c *Chunk) At(x, y, z int) Cell {
	return c.cells[c.index(x, y, z)]
}

// SetMaterial sets a leaf cell's material, discarding any existing
// subdivision so the cell is never both a leaf and subdivided. Setting
// material 0 empties the cell. Marks the chunk dirty.
func (c *Chunk) SetMaterial(x, y, z int, m Material) error {
	if !c.InBounds(x, y, z) {
		return ErrOutOfBounds
	}
	i := c.index(x, y, z)
	if m == Air {
		c.cells[i] = Cell{}
	} else {
		c.cells[i] = Cell{Kind: CellLeaf, Material: m}
	}
	c.dirty = true
	return nil
}

// Subdivide replaces a leaf or empty cell with a nested dim³ chunk,
// inheriting the cell's material as a uniform fill. It fails with
// ErrAlreadySubdivided if a nested chunk exists; callers must Collapse
// first. Marks the chunk dirty and returns the nested chunk.
func (c *Chunk) Subdivide(x, y, z, dim int) (*Chunk, error) {
	if !c.InBounds(x, y, z) {
		return nil, ErrOutOfBounds
	}
	if !isPowerOfTwo(dim) {
		return nil, ErrInvalidDimension
	}
	i := c.index(x, y, z)
	cell := c.cells[i]
	if cell.Kind == CellDetail {
		return nil, ErrAlreadySubdivided
	}

	nested, err := NewChunk(dim, dim, dim)
	if err != nil {
		return nil, err
	}
	nested.depth = c.depth + 1
	if cell.Kind == CellLeaf {
		for j := range nested.cells {
			nested.cells[j] = Cell{Kind: CellLeaf, Material: cell.Material}
		}
	}

	c.cells[i] = Cell{Kind: CellDetail, Material: cell.Material, Detail: nested}
	c.dirty = true
	return nested, nil
}

// Collapse discards a nested chunk, replacing it with a single leaf cell.
// The leaf material is the most common material among the nested occupied
// leaves, ties broken by the smallest id; a fully empty nested chunk
// collapses to an empty cell. No-op if the cell is not subdivided.
func (c *Chunk) Collapse(x, y, z int) error {
	if !c.InBounds(x, y, z) {
		return ErrOutOfBounds
	}
	i := c.index(x, y, z)
	cell := c.cells[i]
	if cell.Kind != CellDetail {
		return nil
	}

	counts := make(map[Material]int)
	cell.Detail.countLeaves(counts)

	var best Material
	bestCount := 0
	for m, n := range counts {
		if n > bestCount || (n == bestCount && m < best) {
			best, bestCount = m, n
		}
	}

	if bestCount == 0 {
		c.cells[i] = Cell{}
	} else {
		c.cells[i] = Cell{Kind: CellLeaf, Material: best}
	}
	c.dirty = true
	return nil
}

// countLeaves tallies occupied leaf materials across all recursion levels.
func (c *Chunk) countLeaves(counts map[Material]int) {
	for i := range c.cells {
		switch c.cells[i].Kind {
		case CellLeaf:
			counts[c.cells[i].Material]++
		case CellDetail:
			c.cells[i].Detail.countLeaves(counts)
		}
	}
}

// HasOccupied reports whether any leaf in the chunk is occupied.
func (c *Chunk) HasOccupied() bool {
	for i := range c.cells {
		switch c.cells[i].Kind {
		case CellLeaf:
			return true
		case CellDetail:
			if c.cells[i].Detail.HasOccupied() {
				return true
			}
		}
	}
	return false
}

// Dirty reports whether derived mesh data is stale.
func (c *Chunk) Dirty() bool {
	return c.dirty
}

// MarkDirty flags the chunk so the next mesh query regenerates its buffer.
func (c *Chunk) MarkDirty() {
	c.dirty = true
}

// MarkClean clears the dirty flag. Mesh extraction calls this after a
// successful rebuild.
func (c *Chunk) MarkClean() {
	c.dirty = false
}
