package index

import (
	"errors"
	"fmt"

	"github.com/hupe1980/proximity/distance"
	"github.com/hupe1980/proximity/model"
)

// ErrInvalidEpsilon is returned when the approximation factor is negative.
var ErrInvalidEpsilon = errors.New("epsilon must be >= 0")

// ErrDimensionMismatch is a named error type for dimension mismatch
type ErrDimensionMismatch struct {
	Expected int // Expected dimensions
	Actual   int // Actual dimensions
}

// Error returns the error message for dimension mismatch
func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrInvalidDimension is returned when the configured dimension is not positive.
type ErrInvalidDimension struct {
	Dimension int
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

// ErrInvalidMetric is returned for an unsupported distance metric.
type ErrInvalidMetric struct {
	Metric distance.Metric
}

func (e *ErrInvalidMetric) Error() string {
	return fmt.Sprintf("invalid metric: %s", e.Metric)
}

// ErrDuplicateID is returned when inserting an ID that is already indexed.
type ErrDuplicateID struct {
	ID model.EntryID
}

func (e *ErrDuplicateID) Error() string {
	return fmt.Sprintf("duplicate entry id: %d", uint64(e.ID))
}
