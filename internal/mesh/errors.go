package mesh

import (
	"errors"
	"fmt"
)

// Whole-request failures. Per-sample problems never surface as errors.
var (
	// ErrEmptyInput is returned when the dataset has no usable bounds.
	ErrEmptyInput = errors.New("mesh: no samples to mesh")

	// ErrDegenerateRegion is returned when the requested region clamps to
	// zero cells in either direction.
	ErrDegenerateRegion = errors.New("mesh: region does not intersect the field")

	// ErrCapacityExceeded is matched by every *CapacityError.
	ErrCapacityExceeded = errors.New("mesh: vertex count exceeds 16-bit index space")

	// ErrNilColorFunc is returned when no color function is supplied.
	ErrNilColorFunc = errors.New("mesh: nil color function")
)

// CapacityError reports a request whose grid would need more vertices than a
// 16-bit index buffer can address. The caller should retry with a smaller
// region or a coarser grid.
type CapacityError struct {
	Rows     int
	Cols     int
	Vertices int
	Limit    int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("mesh: %dx%d cells need %d vertices, limit is %d", e.Rows, e.Cols, e.Vertices, e.Limit)
}

// Is makes errors.Is(err, ErrCapacityExceeded) hold.
func (e *CapacityError) Is(target error) bool {
	return target == ErrCapacityExceeded
}

// IsEmpty reports whether err only means there is nothing to render.
func IsEmpty(err error) bool {
	return errors.Is(err, ErrEmptyInput) || errors.Is(err, ErrDegenerateRegion)
}
