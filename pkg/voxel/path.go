package voxel

// CellIndex addresses one cell within a chunk.
type CellIndex struct {
	X, Y, Z int
}

// Path addresses a cell through successive recursion levels, from the root
// chunk down to a leaf. The first index selects a cell of the root chunk,
// each following index a cell of the nested chunk above it.
type Path []CellIndex

// Clone returns an independent copy of the path.
func (p Path) Clone() Path {
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// CellBounds is the exact spatial extent of a cell, expressed per axis as
// the rational interval [MinNum/Denom, MaxNum/Denom) in root cell units.
// Keeping numerator and denominator as integers makes the mapping exact at
// every recursion level; conversion to world space happens only when the
// caller asks for floating-point coordinates.
type CellBounds struct {
	MinNum [3]int64
	MaxNum [3]int64
	Denom  [3]int64
}

// Bounds resolves a path against the chunk, returning the addressed cell's
// exact bounds in root cell units. It fails with ErrOutOfBounds if any
// index exceeds its level's dimensions and with ErrBadPath if the path
// descends into a cell that is not subdivided.
func (c *Chunk) Bounds(path Path) (CellBounds, error) {
	if len(path) == 0 {
		return CellBounds{}, ErrBadPath
	}

	b := CellBounds{Denom: [3]int64{1, 1, 1}}
	cur := c
	for level, idx := range path {
		if !cur.InBounds(idx.X, idx.Y, idx.Z) {
			return CellBounds{}, ErrOutOfBounds
		}
		if level > 0 {
			dx, dy, dz := cur.Dims()
			dims := [3]int64{int64(dx), int64(dy), int64(dz)}
			for a := 0; a < 3; a++ {
				b.MinNum[a] *= dims[a]
				b.Denom[a] *= dims[a]
			}
		}
		b.MinNum[0] += int64(idx.X)
		b.MinNum[1] += int64(idx.Y)
		b.MinNum[2] += int64(idx.Z)

		if level < len(path)-1 {
			cell := cur.At(idx.X, idx.Y, idx.Z)
			if cell.Kind != CellDetail {
				return CellBounds{}, ErrBadPath
			}
			cur = cell.Detail
		}
	}

	for a := 0; a < 3; a++ {
		b.MaxNum[a] = b.MinNum[a] + 1
	}
	return b, nil
}

// Min returns the lower corner in root cell units.
func (b CellBounds) Min() [3]float64 {
	return [3]float64{
		float64(b.MinNum[0]) / float64(b.Denom[0]),
		float64(b.MinNum[1]) / float64(b.Denom[1]),
		float64(b.MinNum[2]) / float64(b.Denom[2]),
	}
}

// Max returns the upper corner in root cell units.
func (b CellBounds) Max() [3]float64 {
	return [3]float64{
		float64(b.MaxNum[0]) / float64(b.Denom[0]),
		float64(b.MaxNum[1]) / float64(b.Denom[1]),
		float64(b.MaxNum[2]) / float64(b.Denom[2]),
	}
}

// World converts the bounds to world space with the given chunk origin and
// cell scale. This is the only place floating-point enters the mapping.
func (b CellBounds) World(origin [3]float64, scale float64) (min, max [3]float64) {
	lo, hi := b.Min(), b.Max()
	for a := 0; a < 3; a++ {
		min[a] = origin[a] + lo[a]*scale
		max[a] = origin[a] + hi[a]*scale
	}
	return min, max
}
