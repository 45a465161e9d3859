package proximity

import (
	"context"

	"github.com/hupe1980/proximity/model"
)

// Searcher is the authoritative nearest-neighbor search of the backing
// vector database. It is slow relative to a cache lookup and is the sole
// source of ground truth.
type Searcher interface {
	Search(ctx context.Context, v model.Vector) (model.Result, error)
}

// SearcherFunc adapts an ordinary function to the Searcher interface.
type SearcherFunc func(ctx context.Context, v model.Vector) (model.Result, error)

// Search calls f(ctx, v).
func (f SearcherFunc) Search(ctx context.Context, v model.Vector) (model.Result, error) {
	return f(ctx, v)
}
