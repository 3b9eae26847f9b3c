// Package mesh extracts renderable surface geometry from voxel chunks.
//
// Extraction is a face-culling pass: every occupied leaf cell emits a quad
// for each of its six faces that is not covered by an equal-material
// neighbor, consulting the chunk's Neighborhood across chunk and recursion
// boundaries. Coplanar adjacent faces of equal material are merged into
// larger quads with a deterministic axis preference (X, then Y, then Z),
// so identical input always produces identical output.
package mesh

import (
	"github.com/Faultbox/voxelworld/pkg/voxel"
)

// Vertex is one corner of the extracted surface. Positions are in world
// units after applying the extraction origin and scale; AO is a baked
// ambient occlusion factor in (0, 1], 1 meaning fully lit.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	Material voxel.Material
	AO       float32
}

// Buffer is the transient mesh artifact produced for one chunk. It is
// regenerated whenever the chunk is dirty and owned by the consumer.
type Buffer struct {
	Vertices []Vertex
	Indices  []uint32
}

// Empty reports whether extraction produced no geometry.
func (b *Buffer) Empty() bool {
	return len(b.Indices) == 0
}

// Quads returns the number of emitted quads.
func (b *Buffer) Quads() int {
	return len(b.Vertices) / 4
}

// Options configures extraction.
type Options struct {
	// Neighborhood resolves cells beyond the chunk bounds. Nil means no
	// neighbor data; the Policy decides how that is treated.
	Neighborhood Neighborhood

	// Policy applies when Neighborhood is nil.
	Policy BoundaryPolicy

	// AmbientOcclusion bakes per-vertex corner occlusion. Faces with
	// non-uniform occlusion are not merged so shading stays correct.
	AmbientOcclusion bool

	// Origin is the world position of the chunk's (0,0,0) corner.
	Origin [3]float32

	// Scale is the world size of one top-level cell. Zero means 1.
	Scale float32
}

// Extract produces the surface mesh of a chunk and clears its dirty flag.
// It never fails on a well-formed chunk; malformed dimensions are rejected
// at construction time.
func Extract(c *voxel.Chunk, opts Options) *Buffer {
	if opts.Scale <= 0 {
		opts.Scale = 1
	}
	nb := opts.Neighborhood
	if nb == nil {
		nb = PolicyNeighborhood(opts.Policy)
	}

	e := &extractor{buf: &Buffer{}, occlusion: opts.AmbientOcclusion}
	scale := [3]float32{opts.Scale, opts.Scale, opts.Scale}
	e.chunk(c, nb, opts.Origin, scale)
	c.MarkClean()
	return e.buf
}

type extractor struct {
	buf       *Buffer
	occlusion bool
}

// faceCell is one mask entry during a layer sweep.
type faceCell struct {
	emit     bool
	flat     bool
	material voxel.Material
	ao       [4]float32
}

// chunk emits the surface of one chunk. Subdivided cells contribute the
// surface of their nested chunk, translated into this chunk's frame,
// instead of coarse faces.
func (e *extractor) chunk(c *voxel.Chunk, nb Neighborhood, origin [3]float32, scale [3]float32) {
	dx, dy, dz := c.Dims()

	for z := 0; z < dz; z++ {
		for y := 0; y < dy; y++ {
			for x := 0; x < dx; x++ {
				cell := c.At(x, y, z)
				if cell.Kind != voxel.CellDetail {
					continue
				}
				nx, ny, nz := cell.Detail.Dims()
				childOrigin := [3]float32{
					origin[0] + float32(x)*scale[0],
					origin[1] + float32(y)*scale[1],
					origin[2] + float32(z)*scale[2],
				}
				childScale := [3]float32{
					scale[0] / float32(nx),
					scale[1] / float32(ny),
					scale[2] / float32(nz),
				}
				ctx := &detailContext{parent: c, nb: nb, cell: [3]int{x, y, z}}
				e.chunk(cell.Detail, ctx, childOrigin, childScale)
			}
		}
	}

	for _, s := range Sides {
		e.side(c, nb, s, origin, scale)
	}
}

// side sweeps all layers perpendicular to one face direction, masking the
// exposed leaf faces and merging them into quads.
func (e *extractor) side(c *voxel.Chunk, nb Neighborhood, s Side, origin [3]float32, scale [3]float32) {
	dx, dy, dz := c.Dims()
	dims := [3]int{dx, dy, dz}
	a := s.Axis()
	u, v := s.planeAxes()
	du, dv := dims[u], dims[v]

	step := -1
	if s.Positive() {
		step = 1
	}

	mask := make([]faceCell, du*dv)
	var p [3]int
	for layer := 0; layer < dims[a]; layer++ {
		for pv := 0; pv < dv; pv++ {
			for pu := 0; pu < du; pu++ {
				fc := &mask[pu+pv*du]
				*fc = faceCell{}

				p[a], p[u], p[v] = layer, pu, pv
				cell := c.At(p[0], p[1], p[2])
				if cell.Kind != voxel.CellLeaf {
					continue
				}

				q := p
				q[a] += step
				if e.covered(c, nb, q, s, cell.Material) {
					continue
				}

				fc.emit = true
				fc.material = cell.Material
				fc.ao, fc.flat = e.faceAO(c, nb, p, s)
			}
		}
		e.mergeLayer(mask, du, dv, layer, s, origin, scale)
	}
}

// covered reports whether the face toward q is hidden by its neighbor.
func (e *extractor) covered(c *voxel.Chunk, nb Neighborhood, q [3]int, s Side, m voxel.Material) bool {
	if c.InBounds(q[0], q[1], q[2]) {
		return CellCovers(c.At(q[0], q[1], q[2]), s.Opposite(), m)
	}
	return nb.Covered(q[0], q[1], q[2], s, m)
}

// solid samples occupancy for ambient occlusion, in or out of bounds.
func (e *extractor) solid(c *voxel.Chunk, nb Neighborhood, x, y, z int) bool {
	if c.InBounds(x, y, z) {
		return c.At(x, y, z).Occupied()
	}
	return nb.Solid(x, y, z)
}

// faceAO computes the four corner occlusion factors for an exposed face,
// ordered (u0,v0), (u1,v0), (u1,v1), (u0,v1). flat is true when all four
// corners are equal, which allows the face to merge with neighbors.
func (e *extractor) faceAO(c *voxel.Chunk, nb Neighborhood, p [3]int, s Side) (ao [4]float32, flat bool) {
	if !e.occlusion {
		return [4]float32{1, 1, 1, 1}, true
	}

	a := s.Axis()
	u, v := s.planeAxes()
	q := p
	if s.Positive() {
		q[a]++
	} else {
		q[a]--
	}

	corner := func(cu, cv int) float32 {
		su := q
		su[u] += cu
		sv := q
		sv[v] += cv
		sc := q
		sc[u] += cu
		sc[v] += cv

		s1 := e.solid(c, nb, su[0], su[1], su[2])
		s2 := e.solid(c, nb, sv[0], sv[1], sv[2])
		sd := e.solid(c, nb, sc[0], sc[1], sc[2])
		return vertexAO(s1, s2, sd)
	}

	ao[0] = corner(-1, -1)
	ao[1] = corner(1, -1)
	ao[2] = corner(1, 1)
	ao[3] = corner(-1, 1)
	flat = ao[0] == ao[1] && ao[1] == ao[2] && ao[2] == ao[3]
	return ao, flat
}

// vertexAO is the classic three-neighbor corner rule: two adjacent solid
// sides fully pinch the corner regardless of the diagonal.
func vertexAO(side1, side2, diag bool) float32 {
	if side1 && side2 {
		return 0.25
	}
	occ := 0
	if side1 {
		occ++
	}
	if side2 {
		occ++
	}
	if diag {
		occ++
	}
	return 1 - 0.25*float32(occ)
}

// mergeable reports whether b can join a quad started at a. Only faces
// with flat, identical occlusion merge.
func mergeable(b, a faceCell) bool {
	return b.emit && b.flat && a.flat && b.material == a.material && b.ao[0] == a.ao[0]
}

// mergeLayer greedily merges the masked faces of one layer into quads:
// first runs along the lower in-plane axis, then rectangle extension along
// the higher one. Consumed entries are cleared so each face is emitted
// exactly once.
func (e *extractor) mergeLayer(mask []faceCell, du, dv, layer int, s Side, origin [3]float32, scale [3]float32) {
	for pv := 0; pv < dv; pv++ {
		for pu := 0; pu < du; {
			fc := mask[pu+pv*du]
			if !fc.emit {
				pu++
				continue
			}

			w := 1
			for pu+w < du && mergeable(mask[pu+w+pv*du], fc) && fc.flat {
				w++
			}

			h := 1
		expand:
			for fc.flat && pv+h < dv {
				for k := 0; k < w; k++ {
					if !mergeable(mask[pu+k+(pv+h)*du], fc) {
						break expand
					}
				}
				h++
			}

			for hh := 0; hh < h; hh++ {
				for ww := 0; ww < w; ww++ {
					mask[pu+ww+(pv+hh)*du].emit = false
				}
			}

			e.quad(s, layer, pu, pv, w, h, fc, origin, scale)
			pu += w
		}
	}
}

// quad appends one merged face to the buffer.
func (e *extractor) quad(s Side, layer, pu, pv, w, h int, fc faceCell, origin [3]float32, scale [3]float32) {
	a := s.Axis()
	u, v := s.planeAxes()

	plane := layer
	if s.Positive() {
		plane++
	}

	// corners in mask order: (u0,v0), (u1,v0), (u1,v1), (u0,v1)
	cu := [4]int{pu, pu + w, pu + w, pu}
	cv := [4]int{pv, pv, pv + h, pv + h}

	var pos [4][3]float32
	for k := 0; k < 4; k++ {
		var cc [3]float32
		cc[a] = float32(plane)
		cc[u] = float32(cu[k])
		cc[v] = float32(cv[k])
		pos[k] = [3]float32{
			origin[0] + cc[0]*scale[0],
			origin[1] + cc[1]*scale[1],
			origin[2] + cc[2]*scale[2],
		}
	}

	order := [4]int{0, 1, 2, 3}
	if s.flipWinding() {
		order = [4]int{0, 3, 2, 1}
	}

	base := uint32(len(e.buf.Vertices))
	normal := s.Normal()
	var ao [4]float32
	for i, k := range order {
		ao[i] = fc.ao[k]
		e.buf.Vertices = append(e.buf.Vertices, Vertex{
			Position: pos[k],
			Normal:   normal,
			Material: fc.material,
			AO:       fc.ao[k],
		})
	}

	// Split the quad along the diagonal that keeps occlusion interpolation
	// correct: the darker diagonal wins.
	if ao[0]+ao[2] >= ao[1]+ao[3] {
		e.buf.Indices = append(e.buf.Indices,
			base, base+1, base+2,
			base, base+2, base+3)
	} else {
		e.buf.Indices = append(e.buf.Indices,
			base+1, base+2, base+3,
			base+1, base+3, base)
	}
}
