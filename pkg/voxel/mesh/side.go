package mesh

// Side identifies one of the six cell faces by its outward normal.
type Side int

// Face directions.
const (
	SideNegX Side = iota
	SidePosX
	SideNegY
	SidePosY
	SideNegZ
	SidePosZ
)

// Sides lists all face directions in a fixed order.
var Sides = [6]Side{SideNegX, SidePosX, SideNegY, SidePosY, SideNegZ, SidePosZ}

var sideOffsets = [6][3]int{
	{-1, 0, 0},
	{1, 0, 0},
	{0, -1, 0},
	{0, 1, 0},
	{0, 0, -1},
	{0, 0, 1},
}

// Offset returns the unit step toward the neighboring cell.
func (s Side) Offset() (dx, dy, dz int) {
	o := sideOffsets[s]
	return o[0], o[1], o[2]
}

// Axis returns the normal axis (0 = X, 1 = Y, 2 = Z).
func (s Side) Axis() int {
	return int(s) / 2
}

// Positive reports whether the face points toward the positive axis
// direction.
func (s Side) Positive() bool {
	return int(s)%2 == 1
}

// Opposite returns the face pointing the other way.
func (s Side) Opposite() Side {
	return s ^ 1
}

// Normal returns the outward unit normal.
func (s Side) Normal() [3]float32 {
	o := sideOffsets[s]
	return [3]float32{float32(o[0]), float32(o[1]), float32(o[2])}
}

// String returns a human-readable face name.
func (s Side) String() string {
	switch s {
	case SideNegX:
		return "-X"
	case SidePosX:
		return "+X"
	case SideNegY:
		return "-Y"
	case SidePosY:
		return "+Y"
	case SideNegZ:
		return "-Z"
	case SidePosZ:
		return "+Z"
	default:
		return "?"
	}
}

// planeAxes returns the two in-plane axes for a face in ascending order,
// which fixes the merge preference to X, then Y, then Z.
func (s Side) planeAxes() (u, v int) {
	switch s.Axis() {
	case 0:
		return 1, 2
	case 1:
		return 0, 2
	default:
		return 0, 1
	}
}

// flipWinding reports whether the default corner order must be reversed so
// the emitted triangles face outward. With in-plane axes (u, v) in
// ascending order, u cross v equals +X, -Y and +Z respectively.
func (s Side) flipWinding() bool {
	switch s {
	case SideNegX, SidePosY, SideNegZ:
		return true
	default:
		return false
	}
}
