package mesh

import (
	"github.com/Faultbox/voxelworld/pkg/voxel"
)

// BoundaryPolicy controls how face culling treats cells beyond the reach of
// the current neighborhood, typically because the adjacent chunk is not
// loaded. An unloaded neighbor is unknown, not unoccupied, so the choice is
// deliberate and observable.
type BoundaryPolicy int

const (
	// BoundaryOpen treats unknown neighbors as empty: boundary faces are
	// emitted. This is the default; it avoids holes when a neighbor chunk
	// is unloaded while this one stays visible.
	BoundaryOpen BoundaryPolicy = iota

	// BoundarySolid treats unknown neighbors as solid: boundary faces are
	// skipped. Useful when the surrounding volume is known to be filled.
	BoundarySolid
)

// Neighborhood resolves cells just outside a chunk's bounds during mesh
// extraction. Covered receives the out-of-bounds cell coordinate in the
// chunk's local space together with the face direction that crossed the
// boundary; Solid is the coarse occupancy sample used for ambient
// occlusion.
type Neighborhood interface {
	Covered(x, y, z int, side Side, m voxel.Material) bool
	Solid(x, y, z int) bool
}

// PolicyNeighborhood returns a Neighborhood with no neighbor data at all,
// answering every query according to the boundary policy.
func PolicyNeighborhood(p BoundaryPolicy) Neighborhood {
	return policyNeighborhood{policy: p}
}

type policyNeighborhood struct {
	policy BoundaryPolicy
}

func (n policyNeighborhood) Covered(_, _, _ int, _ Side, _ voxel.Material) bool {
	return n.policy == BoundarySolid
}

func (n policyNeighborhood) Solid(_, _, _ int) bool {
	return n.policy == BoundarySolid
}

// CellCovers reports whether a cell's face on the given side is completely
// filled with material m, so that an adjacent face of the same material
// can be culled. A detail cell covers only if its entire facing boundary
// layer does.
func CellCovers(c voxel.Cell, side Side, m voxel.Material) bool {
	switch c.Kind {
	case voxel.CellLeaf:
		return c.Material == m
	case voxel.CellDetail:
		return boundaryCovers(c.Detail, side, m)
	default:
		return false
	}
}

// boundaryCovers reports whether every cell of the chunk's face layer on
// the given side covers with material m.
func boundaryCovers(c *voxel.Chunk, side Side, m voxel.Material) bool {
	dx, dy, dz := c.Dims()
	dims := [3]int{dx, dy, dz}
	a := side.Axis()
	u, v := side.planeAxes()

	layer := 0
	if side.Positive() {
		layer = dims[a] - 1
	}

	var p [3]int
	p[a] = layer
	for pv := 0; pv < dims[v]; pv++ {
		for pu := 0; pu < dims[u]; pu++ {
			p[u], p[v] = pu, pv
			if !CellCovers(c.At(p[0], p[1], p[2]), side, m) {
				return false
			}
		}
	}
	return true
}

// detailContext resolves neighbor queries for a nested chunk through its
// parent cell's siblings, falling back to the parent's own neighborhood at
// the parent boundary. This is what keeps meshes watertight across
// recursion seams.
type detailContext struct {
	parent *voxel.Chunk
	nb     Neighborhood
	cell   [3]int
}

func (d *detailContext) Covered(x, y, z int, side Side, m voxel.Material) bool {
	nested := d.parent.At(d.cell[0], d.cell[1], d.cell[2]).Detail
	ex, ey, ez := nested.Dims()
	edims := [3]int{ex, ey, ez}
	local := [3]int{x, y, z}

	ox, oy, oz := side.Offset()
	q := [3]int{d.cell[0] + ox, d.cell[1] + oy, d.cell[2] + oz}
	if !d.parent.InBounds(q[0], q[1], q[2]) {
		return d.nb.Covered(q[0], q[1], q[2], side, m)
	}

	cell := d.parent.At(q[0], q[1], q[2])
	switch cell.Kind {
	case voxel.CellEmpty:
		return false
	case voxel.CellLeaf:
		return cell.Material == m
	}

	// The neighboring parent cell is itself subdivided: check the cells of
	// its facing layer that overlap this fine face. Dimensions may differ
	// between the two nested chunks, so the overlap is a rectangle.
	n := cell.Detail
	ndx, ndy, ndz := n.Dims()
	ndims := [3]int{ndx, ndy, ndz}
	a := side.Axis()
	u, v := side.planeAxes()

	layer := ndims[a] - 1
	if side.Positive() {
		layer = 0
	}

	u0, u1 := spanOverlap(local[u], edims[u], ndims[u])
	v0, v1 := spanOverlap(local[v], edims[v], ndims[v])

	var p [3]int
	p[a] = layer
	for pv := v0; pv < v1; pv++ {
		for pu := u0; pu < u1; pu++ {
			p[u], p[v] = pu, pv
			if !CellCovers(n.At(p[0], p[1], p[2]), side.Opposite(), m) {
				return false
			}
		}
	}
	return true
}

func (d *detailContext) Solid(x, y, z int) bool {
	nested := d.parent.At(d.cell[0], d.cell[1], d.cell[2]).Detail
	ex, ey, ez := nested.Dims()
	edims := [3]int{ex, ey, ez}
	local := [3]int{x, y, z}

	q := d.cell
	for a := 0; a < 3; a++ {
		if local[a] < 0 {
			q[a]--
		} else if local[a] >= edims[a] {
			q[a]++
		}
	}
	if !d.parent.InBounds(q[0], q[1], q[2]) {
		return d.nb.Solid(q[0], q[1], q[2])
	}
	return d.parent.At(q[0], q[1], q[2]).Occupied()
}

// spanOverlap maps the fine cell i out of `from` cells onto the index range
// of the neighboring layer subdivided into `to` cells.
func spanOverlap(i, from, to int) (lo, hi int) {
	// wrap into [0, from) first: the coordinate is one step outside.
	i = ((i % from) + from) % from
	lo = i * to / from
	hi = ((i+1)*to + from - 1) / from
	if hi <= lo {
		hi = lo + 1
	}
	return lo, hi
}
