package voxel

import "errors"

// Chunk and cell errors.
var (
	// ErrOutOfBounds is returned when a cell index lies outside [0, D) on any axis.
	// This is always a caller bug; the operation is never partially applied.
	ErrOutOfBounds = errors.New("cell index out of chunk bounds")

	// ErrInvalidDimension is returned when a chunk dimension is not a power of two.
	ErrInvalidDimension = errors.New("chunk dimension must be a power of two")

	// ErrAlreadySubdivided is returned by Subdivide when the target cell already
	// holds a nested chunk. The caller must Collapse first.
	ErrAlreadySubdivided = errors.New("cell is already subdivided")

	// ErrGridSizeMismatch is returned by FromGrid when the cell count does not
	// match the declared dimensions.
	ErrGridSizeMismatch = errors.New("cell count does not match declared dimensions")

	// ErrBadPath is returned when a cell path descends into a cell that is not
	// subdivided.
	ErrBadPath = errors.New("path descends into a cell that is not subdivided")
)
