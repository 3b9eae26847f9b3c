// Package voxel implements a recursively subdivided voxel chunk data model.
//
// A Chunk is a fixed-size, power-of-two-per-axis 3D grid of cells. Each cell
// is either empty, a leaf holding a material, or subdivided into a nested
// chunk of finer cells. Ownership of nested chunks is strictly tree-shaped:
// a chunk belongs to exactly one parent cell (or to the world grid at the
// top level), so cycles cannot be constructed.
package voxel

// Material identifies a voxel material. Material 0 (Air) marks an
// unoccupied cell; palettes map the remaining ids to surface properties.
type Material uint16

// Air is the reserved empty material.
const Air Material = 0

// PaletteEntry describes the surface properties of one material.
// The channels follow the MagicaVoxel PBR model: albedo plus alpha for the
// base color, emission for glow, and metallic/roughness for shading.
type PaletteEntry struct {
	Albedo    [3]uint8
	Alpha     uint8
	Emission  [3]uint8
	Metallic  uint8
	Roughness uint8
}

// Palette maps material ids to surface properties. Index 0 is unused.
type Palette [256]PaletteEntry

// CellKind discriminates the states of a cell.
type CellKind uint8

// Cell states. A cell is exactly one of these at any time.
const (
	CellEmpty CellKind = iota
	CellLeaf
	CellDetail
)

// String returns a human-readable kind name.
func (k CellKind) String() string {
	switch k {
	case CellEmpty:
		return "Empty"
	case CellLeaf:
		return "Leaf"
	case CellDetail:
		return "Detail"
	default:
		return "Unknown"
	}
}

// Cell is the smallest addressable unit of a chunk.
//
// Detail is non-nil if and only if Kind is CellDetail. For a detail cell,
// Material retains the fill material the cell had before subdivision, which
// lets coarse consumers treat the cell as a single block of that material.
type Cell struct {
	Kind     CellKind
	Material Material
	Detail   *Chunk
}

// Occupied reports whether the cell contributes solid volume. A detail cell
// is occupied if any of its descendant leaves is occupied.
func (c Cell) Occupied() bool {
	switch c.Kind {
	case CellLeaf:
		return true
	case CellDetail:
		return c.Detail.HasOccupied()
	default:
		return false
	}
}
