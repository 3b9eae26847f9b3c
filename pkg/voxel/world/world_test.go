package world

import (
	"errors"
	"testing"

	"github.com/Faultbox/voxelworld/pkg/voxel"
	"github.com/Faultbox/voxelworld/pkg/voxel/mesh"
)

func newTestGrid(t *testing.T) *Grid {
	t.Helper()
	g, err := NewGrid(Options{ChunkDims: [3]int{4, 4, 4}})
	if err != nil {
		t.Fatalf("NewGrid failed: %v", err)
	}
	return g
}

func TestNewGridDefaults(t *testing.T) {
	g, err := NewGrid(Options{})
	if err != nil {
		t.Fatalf("NewGrid failed: %v", err)
	}
	if g.ChunkDims() != [3]int{16, 16, 16} {
		t.Errorf("expected default dims 16x16x16, got %v", g.ChunkDims())
	}
	if g.Len() != 0 {
		t.Errorf("new grid should be empty, got %d chunks", g.Len())
	}
}

func TestNewGridRejectsBadDims(t *testing.T) {
	if _, err := NewGrid(Options{ChunkDims: [3]int{5, 4, 4}}); !errors.Is(err, voxel.ErrInvalidDimension) {
		t.Errorf("expected ErrInvalidDimension, got %v", err)
	}
}

func TestLoadIdempotent(t *testing.T) {
	g := newTestGrid(t)
	c := Coord{X: 1, Y: -2, Z: 3}

	first := g.Load(c)
	if first == nil {
		t.Fatal("Load returned nil chunk")
	}
	second := g.Load(c)
	if first != second {
		t.Error("loading the same coordinate twice should return the same chunk")
	}
	if g.Len() != 1 {
		t.Errorf("expected 1 loaded chunk, got %d", g.Len())
	}
}

func TestLoadChunk(t *testing.T) {
	g := newTestGrid(t)
	c := Coord{}

	ch, err := voxel.NewChunk(4, 4, 4)
	if err != nil {
		t.Fatalf("NewChunk failed: %v", err)
	}
	ch.SetMaterial(0, 0, 0, 7)

	if err := g.LoadChunk(c, ch); err != nil {
		t.Fatalf("LoadChunk failed: %v", err)
	}
	got, ok := g.Chunk(c)
	if !ok || got != ch {
		t.Error("Chunk should return the installed chunk")
	}

	// Mismatched dimensions are rejected.
	bad, _ := voxel.NewChunk(8, 8, 8)
	if err := g.LoadChunk(c, bad); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}

	// Replacing a pinned chunk fails.
	_, release, ok := g.Acquire(c)
	if !ok {
		t.Fatal("Acquire failed")
	}
	replacement, _ := voxel.NewChunk(4, 4, 4)
	if err := g.LoadChunk(c, replacement); !errors.Is(err, ErrInUse) {
		t.Errorf("expected ErrInUse while pinned, got %v", err)
	}
	release()
	if err := g.LoadChunk(c, replacement); err != nil {
		t.Errorf("LoadChunk after release failed: %v", err)
	}
}

func TestUnload(t *testing.T) {
	g := newTestGrid(t)
	c := Coord{X: 2}
	g.Load(c)

	// Pinned chunks cannot be unloaded.
	_, release, ok := g.Acquire(c)
	if !ok {
		t.Fatal("Acquire failed")
	}
	if err := g.Unload(c); !errors.Is(err, ErrInUse) {
		t.Errorf("expected ErrInUse while pinned, got %v", err)
	}

	release()
	if err := g.Unload(c); err != nil {
		t.Fatalf("Unload after release failed: %v", err)
	}
	if _, ok := g.Chunk(c); ok {
		t.Error("chunk should be gone after Unload")
	}

	// Unloading an absent coordinate is a no-op.
	if err := g.Unload(Coord{X: 99}); err != nil {
		t.Errorf("unloading absent coordinate should succeed, got %v", err)
	}
}

func TestReleaseIdempotent(t *testing.T) {
	g := newTestGrid(t)
	c := Coord{}
	g.Load(c)

	_, release, _ := g.Acquire(c)
	release()
	release() // second call must not unpin someone else's hold

	_, release2, _ := g.Acquire(c)
	defer release2()
	if err := g.Unload(c); !errors.Is(err, ErrInUse) {
		t.Errorf("expected ErrInUse, got %v", err)
	}
}

func TestAcquireMissing(t *testing.T) {
	g := newTestGrid(t)
	if _, _, ok := g.Acquire(Coord{X: 5}); ok {
		t.Error("Acquire of an unloaded coordinate should fail")
	}
}

func TestNeighbor(t *testing.T) {
	g := newTestGrid(t)
	center := Coord{}
	g.Load(center)
	g.Load(Coord{X: 1})

	if _, ok := g.Neighbor(center, PosX); !ok {
		t.Error("expected +X neighbor to be loaded")
	}
	if _, ok := g.Neighbor(center, NegX); ok {
		t.Error("-X neighbor should be unloaded")
	}

	// All six directions step one coordinate.
	dirs := []Direction{NegX, PosX, NegY, PosY, NegZ, PosZ}
	for _, d := range dirs {
		n := center.Add(d)
		dx := abs(n.X) + abs(n.Y) + abs(n.Z)
		if dx != 1 {
			t.Errorf("direction %d: expected unit step, got %+v", d, n)
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestBounds(t *testing.T) {
	g := newTestGrid(t)

	if _, _, ok := g.Bounds(); ok {
		t.Error("empty grid should have no bounds")
	}

	g.Load(Coord{X: -1, Y: 2, Z: 0})
	g.Load(Coord{X: 3, Y: -4, Z: 1})

	lo, hi, ok := g.Bounds()
	if !ok {
		t.Fatal("expected bounds")
	}
	if lo != (Coord{X: -1, Y: -4, Z: 0}) {
		t.Errorf("expected min (-1,-4,0), got %+v", lo)
	}
	if hi != (Coord{X: 3, Y: 2, Z: 1}) {
		t.Errorf("expected max (3,2,1), got %+v", hi)
	}
}

func TestCoords(t *testing.T) {
	g := newTestGrid(t)
	want := map[Coord]bool{
		{X: 0}: true,
		{X: 1}: true,
		{Y: 5}: true,
	}
	for c := range want {
		g.Load(c)
	}

	got := g.Coords()
	if len(got) != len(want) {
		t.Fatalf("expected %d coords, got %d", len(want), len(got))
	}
	for _, c := range got {
		if !want[c] {
			t.Errorf("unexpected coordinate %+v", c)
		}
	}
}

func TestNeighborhoodCullsAcrossChunks(t *testing.T) {
	g := newTestGrid(t)

	// Two chunks sharing a face, filled along the seam with one material.
	left := g.Load(Coord{})
	right := g.Load(Coord{X: 1})
	for z := 0; z < 4; z++ {
		for y := 0; y < 4; y++ {
			left.SetMaterial(3, y, z, 1)
			right.SetMaterial(0, y, z, 1)
		}
	}

	nb := g.Neighborhood(Coord{}, mesh.BoundaryOpen)
	buf := mesh.Extract(left, mesh.Options{Neighborhood: nb})

	// The seam at local x=4 faces into the right chunk's filled layer and
	// must not emit.
	for _, v := range buf.Vertices {
		if v.Position[0] == 4 && v.Normal[0] > 0 {
			t.Fatalf("seam face leaked at %v", v.Position)
		}
	}
}

func TestNeighborhoodPolicyFallback(t *testing.T) {
	g := newTestGrid(t)
	c := g.Load(Coord{})
	for z := 0; z < 4; z++ {
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				c.SetMaterial(x, y, z, 1)
			}
		}
	}

	// No neighbors loaded: open policy emits the whole shell, solid
	// policy culls it.
	open := mesh.Extract(c, mesh.Options{Neighborhood: g.Neighborhood(Coord{}, mesh.BoundaryOpen)})
	if open.Quads() != 6 {
		t.Errorf("expected 6 boundary quads under open policy, got %d", open.Quads())
	}

	c.MarkDirty()
	solid := mesh.Extract(c, mesh.Options{Neighborhood: g.Neighborhood(Coord{}, mesh.BoundarySolid)})
	if !solid.Empty() {
		t.Errorf("expected no geometry under solid policy, got %d quads", solid.Quads())
	}
}
