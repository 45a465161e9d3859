package proximity

import (
	"errors"
	"fmt"

	"github.com/hupe1980/proximity/index"
	"github.com/hupe1980/proximity/store"
)

var (
	// ErrInconsistentState is returned once the index and the store have
	// diverged. The cache is faulted: every later call fails with it.
	ErrInconsistentState = errors.New("proximity: inconsistent state")

	// ErrClosed is returned by operations on a closed cache.
	ErrClosed = errors.New("proximity: cache closed")

	// ErrInvalidVector is returned for vectors containing NaN or Inf.
	ErrInvalidVector = errors.New("proximity: vector contains NaN or Inf")

	// ErrNilSearcher is returned by New when no backing searcher is given.
	ErrNilSearcher = errors.New("proximity: searcher must not be nil")

	// ErrCapacityExceeded is returned when a store insert is attempted while full.
	ErrCapacityExceeded = store.ErrCapacityExceeded

	// ErrEntryTooLarge is returned when one answer alone exceeds the memory
	// limit. The answer is still served, it is just not cached.
	ErrEntryTooLarge = store.ErrEntryTooLarge
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// ErrInvalidDimension indicates an invalid configured dimension.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidDimension struct {
	Dimension int
	cause     error
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

func (e *ErrInvalidDimension) Unwrap() error { return e.cause }

// ErrInvalidOption reports an invalid construction parameter.
type ErrInvalidOption struct {
	Name   string
	Reason string
}

func (e *ErrInvalidOption) Error() string {
	return fmt.Sprintf("invalid option %s: %s", e.Name, e.Reason)
}

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var dm *index.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}
	var id *index.ErrInvalidDimension
	if errors.As(err, &id) {
		return &ErrInvalidDimension{Dimension: id.Dimension, cause: err}
	}
	var dup *index.ErrDuplicateID
	if errors.As(err, &dup) {
		return fmt.Errorf("%w: %w", ErrInconsistentState, err)
	}

	return err
}
