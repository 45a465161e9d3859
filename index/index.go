package index

import (
	"fmt"
	"strings"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hupe1980/proximity/distance"
	"github.com/hupe1980/proximity/model"
)

// Match is the result of a proximity query.
type Match struct {
	// ID is the entry whose center was matched.
	ID model.EntryID
	// Distance is the metric distance between the query and the matched center.
	Distance float64
}

// Less reports whether m ranks before o: closer first, then smaller ID.
func (m Match) Less(o Match) bool {
	if m.Distance == o.Distance {
		return m.ID < o.ID
	}
	return m.Distance < o.Distance
}

// Index is the proximity index contract.
type Index interface {
	// Name returns a short human-readable name of the implementation.
	Name() string

	// Dimension returns the fixed dimensionality of the index.
	Dimension() int

	// Metric returns the distance metric used by the index.
	Metric() distance.Metric

	// Query returns the cached center nearest to v.
	// ok is false if and only if the index is empty.
	Query(v model.Vector) (m Match, ok bool, err error)

	// Within returns the IDs of all regions whose center lies within radius
	// of v, in metric distance.
	Within(v model.Vector, radius float64) ([]model.EntryID, error)

	// Insert adds a region with the given center.
	Insert(id model.EntryID, center model.Vector) error

	// Remove deletes a region. It reports whether the ID was present.
	Remove(id model.EntryID) bool

	// Len returns the number of regions in the index.
	Len() int

	// IDs returns a snapshot of all entry IDs in the index.
	IDs() *roaring64.Bitmap
}

// Kind selects an index implementation.
type Kind int

const (
	KindBallTree Kind = iota
	KindFlat
	KindLSH
)

// String returns a string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindBallTree:
		return "balltree"
	case KindFlat:
		return "flat"
	case KindLSH:
		return "lsh"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// ParseKind parses an index kind as used in configuration files.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "balltree", "ball-tree", "":
		return KindBallTree, nil
	case "flat", "linear":
		return KindFlat, nil
	case "lsh":
		return KindLSH, nil
	default:
		return 0, fmt.Errorf("unsupported index kind: %q", s)
	}
}
