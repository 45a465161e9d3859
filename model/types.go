package model

import (
	"fmt"
	"slices"
)

// EntryID identifies a cached region.
// IDs are allocated monotonically by the store and never reused.
type EntryID uint64

// String returns a string representation of the EntryID.
func (id EntryID) String() string {
	return fmt.Sprintf("Entry(%d)", uint64(id))
}

// Vector is an immutable, fixed-dimension embedding.
//
// The zero value is an empty vector. Use NewVector to construct one; the
// constructor copies its input so later mutation of the caller's slice
// cannot leak into cached state.
type Vector struct {
	data []float32
}

// NewVector returns a Vector holding a copy of values.
func NewVector(values []float32) Vector {
	return Vector{data: slices.Clone(values)}
}

// Dim returns the dimensionality of v.
func (v Vector) Dim() int {
	return len(v.data)
}

// At returns the i-th component.
func (v Vector) At(i int) float32 {
	return v.data[i]
}

// Values returns a copy of the components.
func (v Vector) Values() []float32 {
	return slices.Clone(v.data)
}

// View returns the backing slice without copying.
// Callers must treat it as read-only.
func (v Vector) View() []float32 {
	return v.data
}

// Equal reports whether v and o have identical components.
func (v Vector) Equal(o Vector) bool {
	return slices.Equal(v.data, o.data)
}

// String returns a compact representation of the vector.
func (v Vector) String() string {
	if len(v.data) <= 8 {
		return fmt.Sprintf("%v", v.data)
	}
	return fmt.Sprintf("%v...(dim=%d)", v.data[:8], len(v.data))
}

// Neighbor is a single hit returned by the backing vector database.
type Neighbor struct {
	// ID is the identifier of the matched item in the backing database.
	ID uint64 `json:"id"`
	// Distance is the metric-dependent distance reported by the backend.
	Distance float32 `json:"distance"`
}

// Result is the authoritative answer to a nearest-neighbor query.
// The cache stores it as an opaque payload.
type Result struct {
	Neighbors []Neighbor `json:"neighbors"`
}

// Clone returns a deep copy of r.
func (r Result) Clone() Result {
	return Result{Neighbors: slices.Clone(r.Neighbors)}
}

// Len returns the number of neighbors.
func (r Result) Len() int {
	return len(r.Neighbors)
}

// Recall returns the fraction of neighbors in truth that also appear in r.
// An empty truth yields 1.
func (r Result) Recall(truth Result) float64 {
	if len(truth.Neighbors) == 0 {
		return 1
	}
	seen := make(map[uint64]struct{}, len(r.Neighbors))
	for _, n := range r.Neighbors {
		seen[n.ID] = struct{}{}
	}
	found := 0
	for _, n := range truth.Neighbors {
		if _, ok := seen[n.ID]; ok {
			found++
		}
	}
	return float64(found) / float64(len(truth.Neighbors))
}
