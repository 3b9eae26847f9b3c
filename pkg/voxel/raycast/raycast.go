// Package raycast finds intersections of rays with voxel geometry.
//
// Traversal is a 3D grid walk (DDA): from the ray's entry point into a
// chunk's bounding box it steps cell by cell along the axis with the
// nearest boundary crossing, so cells are visited in strictly increasing
// distance order and the first occupied leaf is the nearest hit.
// Subdivided cells recurse with the same walk on the nested chunk's finer
// grid, carrying the entry distance forward so global ordering holds.
package raycast

import (
	gomath "math"

	"github.com/Faultbox/voxelworld/pkg/math"
	"github.com/Faultbox/voxelworld/pkg/voxel"
	"github.com/Faultbox/voxelworld/pkg/voxel/world"
)

// Ray is a half-line with a maximum reach. Dir must be normalized; a Max
// of zero or less means unbounded.
type Ray struct {
	Origin math.Vec3
	Dir    math.Vec3
	Max    float64
}

// Hit describes one surface intersection. Path identifies the struck leaf
// cell through all recursion levels; Chunk is the grid coordinate for
// world casts and zero for single-chunk casts.
type Hit struct {
	Point    math.Vec3
	Normal   math.Vec3
	Material voxel.Material
	Distance float64
	Chunk    world.Coord
	Path     voxel.Path
}

const boundaryEps = 1e-9

// Cast returns the nearest intersection of the ray with a chunk occupying
// [0,dx)×[0,dy)×[0,dz) in world units, one unit per top-level cell.
func Cast(c *voxel.Chunk, r Ray) (Hit, bool) {
	var hit Hit
	found := false
	castChunk(c, normalize(r), math.Vec3{}, chunkSize(c), nil, func(h Hit) bool {
		hit = h
		found = true
		return true
	})
	return hit, found
}

// CastAll returns every occupied leaf crossed by the ray, in strictly
// increasing distance order.
func CastAll(c *voxel.Chunk, r Ray) []Hit {
	var hits []Hit
	castChunk(c, normalize(r), math.Vec3{}, chunkSize(c), nil, func(h Hit) bool {
		hits = append(hits, h)
		return false
	})
	return hits
}

// CastGrid returns the nearest intersection of the ray with all loaded
// chunks of a grid. Chunks are placed at coordinate*dims in world units.
// Each visited chunk is pinned for the duration of its traversal.
func CastGrid(g *world.Grid, r Ray) (Hit, bool) {
	var hit Hit
	found := false
	castGrid(g, normalize(r), func(h Hit) bool {
		hit = h
		found = true
		return true
	})
	return hit, found
}

// CastGridAll returns every occupied leaf crossed by the ray across the
// grid, in strictly increasing distance order.
func CastGridAll(g *world.Grid, r Ray) []Hit {
	var hits []Hit
	castGrid(g, normalize(r), func(h Hit) bool {
		hits = append(hits, h)
		return false
	})
	return hits
}

func normalize(r Ray) Ray {
	r.Dir = r.Dir.Normalize()
	if r.Max <= 0 {
		r.Max = gomath.Inf(1)
	}
	return r
}

func chunkSize(c *voxel.Chunk) math.Vec3 {
	dx, dy, dz := c.Dims()
	return math.Vec3{X: float64(dx), Y: float64(dy), Z: float64(dz)}
}

// clipBox intersects the ray with an axis-aligned box, returning the entry
// and exit distances and the axis of the entered face (-1 when the origin
// is inside). Zero direction components never cross their slabs; they
// only reject rays outside the slab entirely.
func clipBox(r Ray, min, size math.Vec3) (tEnter, tExit float64, enterAxis int, ok bool) {
	tEnter = gomath.Inf(-1)
	tExit = gomath.Inf(1)
	enterAxis = -1

	for a := 0; a < 3; a++ {
		o := r.Origin.Axis(a)
		d := r.Dir.Axis(a)
		lo := min.Axis(a)
		hi := lo + size.Axis(a)

		if d == 0 {
			if o < lo || o > hi {
				return 0, 0, -1, false
			}
			continue
		}

		t1 := (lo - o) / d
		t2 := (hi - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tEnter {
			tEnter = t1
			enterAxis = a
		}
		if t2 < tExit {
			tExit = t2
		}
	}

	if tExit < tEnter || tExit < 0 {
		return 0, 0, -1, false
	}
	if tEnter < 0 {
		enterAxis = -1
	}
	return tEnter, tExit, enterAxis, true
}

// entryNormal is the surface normal for a hit entered along the given
// axis. With no entry axis (ray started inside the cell) the normal
// opposes the ray's dominant direction component.
func entryNormal(r Ray, axis int) math.Vec3 {
	if axis < 0 {
		axis = 0
		best := gomath.Abs(r.Dir.X)
		if gomath.Abs(r.Dir.Y) > best {
			axis, best = 1, gomath.Abs(r.Dir.Y)
		}
		if gomath.Abs(r.Dir.Z) > best {
			axis = 2
		}
	}
	var n math.Vec3
	if r.Dir.Axis(axis) > 0 {
		n = n.SetAxis(axis, -1)
	} else {
		n = n.SetAxis(axis, 1)
	}
	return n
}

// castChunk walks the chunk's cells in ascending distance order inside the
// box [min, min+size), invoking visit for every occupied leaf. visit
// returning true stops the walk; castChunk reports whether it stopped.
func castChunk(c *voxel.Chunk, r Ray, min, size math.Vec3, path voxel.Path, visit func(Hit) bool) bool {
	tEnter, tExit, enterAxis, ok := clipBox(r, min, size)
	if !ok || tEnter > r.Max {
		return false
	}

	dx, dy, dz := c.Dims()
	dims := [3]int{dx, dy, dz}
	var cell [3]float64
	for a := 0; a < 3; a++ {
		cell[a] = size.Axis(a) / float64(dims[a])
	}

	t := gomath.Max(tEnter, 0)
	p := r.Origin.Add(r.Dir.Scale(t))

	// Current integer cell. A point exactly on a boundary with a negative
	// direction component belongs to the cell on the negative side.
	var idx [3]int
	for a := 0; a < 3; a++ {
		f := (p.Axis(a) - min.Axis(a)) / cell[a]
		i := int(gomath.Floor(f))
		if gomath.Abs(f-gomath.Round(f)) < boundaryEps && r.Dir.Axis(a) < 0 {
			i = int(gomath.Round(f)) - 1
		}
		if i < 0 {
			i = 0
		}
		if i >= dims[a] {
			i = dims[a] - 1
		}
		idx[a] = i
	}

	var step [3]int
	var tMax, tDelta [3]float64
	for a := 0; a < 3; a++ {
		d := r.Dir.Axis(a)
		switch {
		case d > 0:
			step[a] = 1
			next := min.Axis(a) + float64(idx[a]+1)*cell[a]
			tMax[a] = (next - r.Origin.Axis(a)) / d
			tDelta[a] = cell[a] / d
		case d < 0:
			step[a] = -1
			next := min.Axis(a) + float64(idx[a])*cell[a]
			tMax[a] = (next - r.Origin.Axis(a)) / d
			tDelta[a] = cell[a] / -d
		default:
			step[a] = 0
			tMax[a] = gomath.Inf(1)
			tDelta[a] = gomath.Inf(1)
		}
	}

	for {
		if t > r.Max {
			return false
		}

		cur := c.At(idx[0], idx[1], idx[2])
		switch cur.Kind {
		case voxel.CellLeaf:
			h := Hit{
				Point:    r.Origin.Add(r.Dir.Scale(t)),
				Normal:   entryNormal(r, enterAxis),
				Material: cur.Material,
				Distance: t,
				Path:     append(path.Clone(), voxel.CellIndex{X: idx[0], Y: idx[1], Z: idx[2]}),
			}
			if visit(h) {
				return true
			}
		case voxel.CellDetail:
			subMin := math.Vec3{
				X: min.X + float64(idx[0])*cell[0],
				Y: min.Y + float64(idx[1])*cell[1],
				Z: min.Z + float64(idx[2])*cell[2],
			}
			subSize := math.Vec3{X: cell[0], Y: cell[1], Z: cell[2]}
			subPath := append(path.Clone(), voxel.CellIndex{X: idx[0], Y: idx[1], Z: idx[2]})
			if castChunk(cur.Detail, r, subMin, subSize, subPath, visit) {
				return true
			}
		}

		// Advance to the neighboring cell with the nearest boundary.
		axis := 0
		if tMax[1] < tMax[axis] {
			axis = 1
		}
		if tMax[2] < tMax[axis] {
			axis = 2
		}
		t = tMax[axis]
		if t > tExit+boundaryEps {
			return false
		}
		idx[axis] += step[axis]
		if idx[axis] < 0 || idx[axis] >= dims[axis] {
			return false
		}
		tMax[axis] += tDelta[axis]
		enterAxis = axis
	}
}

// castGrid walks loaded chunk coordinates in ascending distance order,
// clipped to the bounding box of the loaded region, and traverses each
// loaded chunk it crosses.
func castGrid(g *world.Grid, r Ray, visit func(Hit) bool) {
	lo, hi, ok := g.Bounds()
	if !ok {
		return
	}

	dims := g.ChunkDims()
	cell := math.Vec3{X: float64(dims[0]), Y: float64(dims[1]), Z: float64(dims[2])}
	min := math.Vec3{
		X: float64(lo.X) * cell.X,
		Y: float64(lo.Y) * cell.Y,
		Z: float64(lo.Z) * cell.Z,
	}
	size := math.Vec3{
		X: float64(hi.X-lo.X+1) * cell.X,
		Y: float64(hi.Y-lo.Y+1) * cell.Y,
		Z: float64(hi.Z-lo.Z+1) * cell.Z,
	}

	tEnter, tExit, _, ok := clipBox(r, min, size)
	if !ok || tEnter > r.Max {
		return
	}

	span := [3]int{hi.X - lo.X + 1, hi.Y - lo.Y + 1, hi.Z - lo.Z + 1}
	t := gomath.Max(tEnter, 0)
	p := r.Origin.Add(r.Dir.Scale(t))

	var idx [3]int
	for a := 0; a < 3; a++ {
		f := (p.Axis(a) - min.Axis(a)) / cell.Axis(a)
		i := int(gomath.Floor(f))
		if gomath.Abs(f-gomath.Round(f)) < boundaryEps && r.Dir.Axis(a) < 0 {
			i = int(gomath.Round(f)) - 1
		}
		if i < 0 {
			i = 0
		}
		if i >= span[a] {
			i = span[a] - 1
		}
		idx[a] = i
	}

	var step [3]int
	var tMax, tDelta [3]float64
	for a := 0; a < 3; a++ {
		d := r.Dir.Axis(a)
		switch {
		case d > 0:
			step[a] = 1
			next := min.Axis(a) + float64(idx[a]+1)*cell.Axis(a)
			tMax[a] = (next - r.Origin.Axis(a)) / d
			tDelta[a] = cell.Axis(a) / d
		case d < 0:
			step[a] = -1
			next := min.Axis(a) + float64(idx[a])*cell.Axis(a)
			tMax[a] = (next - r.Origin.Axis(a)) / d
			tDelta[a] = cell.Axis(a) / -d
		default:
			step[a] = 0
			tMax[a] = gomath.Inf(1)
			tDelta[a] = gomath.Inf(1)
		}
	}

	for {
		if t > r.Max {
			return
		}

		coord := world.Coord{X: lo.X + idx[0], Y: lo.Y + idx[1], Z: lo.Z + idx[2]}
		if ch, release, ok := g.Acquire(coord); ok {
			chunkMin := math.Vec3{
				X: float64(coord.X) * cell.X,
				Y: float64(coord.Y) * cell.Y,
				Z: float64(coord.Z) * cell.Z,
			}
			stopped := castChunk(ch, r, chunkMin, cell, nil, func(h Hit) bool {
				h.Chunk = coord
				return visit(h)
			})
			release()
			if stopped {
				return
			}
		}

		axis := 0
		if tMax[1] < tMax[axis] {
			axis = 1
		}
		if tMax[2] < tMax[axis] {
			axis = 2
		}
		t = tMax[axis]
		if t > tExit+boundaryEps {
			return
		}
		idx[axis] += step[axis]
		if idx[axis] < 0 || idx[axis] >= span[axis] {
			return
		}
		tMax[axis] += tDelta[axis]
	}
}
