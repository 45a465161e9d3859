// Package proximity provides an approximate query cache for vector databases.
//
// A Cache sits in front of an authoritative nearest-neighbor search (a
// Searcher) and remembers answered queries as regions: a center vector, an
// acceptance radius and the backend's result. A later query that falls
// within the radius of the nearest cached center is served from memory
// without touching the backend.
//
// # Quick Start
//
//	backend := proximity.SearcherFunc(func(ctx context.Context, v model.Vector) (model.Result, error) {
//	    return db.Search(ctx, v, 10)
//	})
//
//	cache, _ := proximity.New(768, backend,
//	    proximity.WithMetric(distance.MetricCosine),
//	    proximity.WithCapacity(10_000),
//	    proximity.WithRadius(0.05),
//	)
//	defer cache.Close()
//
//	res, hit, err := cache.Answer(ctx, model.NewVector(query))
//
// # Hits
//
// A query is a hit when all of the following hold for the nearest cached
// center c (as found by the proximity index):
//
//   - dist(query, c) <= radius(c)
//   - the effective confidence of c is at least the configured floor
//
// The ball tree index returns a center within (1+ε) of the true nearest;
// the flat index is exact and LSH is probabilistic.
//
// # Misses
//
// On a miss the backend is called without holding any cache lock. Identical
// concurrent misses share one backend call. The answer is inserted as a new
// region unless a concurrent miss already inserted one covering the query.
// If the cache is full, one entry is evicted per missing slot.
//
// # Confidence and feedback
//
// Entries lose confidence exponentially with age (WithConfidence). With
// WithFeedback a fraction of hits is re-checked against the backend; the
// measured recall lowers the entry's confidence and drives an adaptive
// controller that scales the acceptance radius and the decay rate.
//
// # Consistency
//
// Index and store are always updated together. If they are ever found to
// disagree, the cache is faulted and every later call returns
// ErrInconsistentState.
package proximity
