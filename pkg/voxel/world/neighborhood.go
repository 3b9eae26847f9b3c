package world

import (
	"github.com/Faultbox/voxelworld/pkg/voxel"
	"github.com/Faultbox/voxelworld/pkg/voxel/mesh"
)

// Neighborhood adapts the grid to mesh extraction for the chunk at the
// given coordinate. Out-of-bounds cell queries resolve into the adjacent
// loaded chunks; unloaded neighbors are answered by the boundary policy.
func (g *Grid) Neighborhood(at Coord, policy mesh.BoundaryPolicy) mesh.Neighborhood {
	return &gridNeighborhood{g: g, at: at, policy: policy}
}

type gridNeighborhood struct {
	g      *Grid
	at     Coord
	policy mesh.BoundaryPolicy
}

// resolve maps a local out-of-bounds cell coordinate to the owning chunk
// and its local coordinate. All top-level chunks share the grid's
// dimensions, so wrapping is a per-axis shift.
func (n *gridNeighborhood) resolve(x, y, z int) (*voxel.Chunk, [3]int, bool) {
	dims := n.g.dims
	coord := n.at
	local := [3]int{x, y, z}
	cc := [3]int{coord.X, coord.Y, coord.Z}
	for a := 0; a < 3; a++ {
		for local[a] < 0 {
			local[a] += dims[a]
			cc[a]--
		}
		for local[a] >= dims[a] {
			local[a] -= dims[a]
			cc[a]++
		}
	}
	ch, ok := n.g.Chunk(Coord{cc[0], cc[1], cc[2]})
	return ch, local, ok
}

func (n *gridNeighborhood) Covered(x, y, z int, side mesh.Side, m voxel.Material) bool {
	ch, local, ok := n.resolve(x, y, z)
	if !ok {
		return n.policy == mesh.BoundarySolid
	}
	return mesh.CellCovers(ch.At(local[0], local[1], local[2]), side.Opposite(), m)
}

func (n *gridNeighborhood) Solid(x, y, z int) bool {
	ch, local, ok := n.resolve(x, y, z)
	if !ok {
		return n.policy == mesh.BoundarySolid
	}
	return ch.At(local[0], local[1], local[2]).Occupied()
}
