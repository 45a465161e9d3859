package index

import (
	"github.com/hupe1980/proximity/distance"
	"github.com/hupe1980/proximity/model"
)

// ValidateBasicOptions validates the options every index shares.
func ValidateBasicOptions(dimension int, metric distance.Metric) error {
	if dimension <= 0 {
		return &ErrInvalidDimension{Dimension: dimension}
	}
	if !metric.Valid() {
		return &ErrInvalidMetric{Metric: metric}
	}
	return nil
}

// CheckDimension returns an ErrDimensionMismatch if v does not have dimension dim.
func CheckDimension(dim int, v model.Vector) error {
	if v.Dim() != dim {
		return &ErrDimensionMismatch{Expected: dim, Actual: v.Dim()}
	}
	return nil
}
