// Package index provides the proximity index contract and its shared types.
//
// A proximity index maps cached regions (entry ID + center vector) to the
// embedding space and answers "which cached center is nearest to v, and how
// far is it". It never holds payloads; IDs are non-owning references into
// the cache store.
//
// # Implementations
//
//   - flat: exact linear scan (ε = 0), the reference implementation
//   - balltree: bounded-degree ball tree with (1+ε)-approximate best-first search
//   - lsh: locality-sensitive hashing (SimHash for cosine, p-stable for L2)
//
// # Concurrency
//
// Indexes are not internally synchronized. Concurrent Query calls are safe as
// long as no Insert or Remove runs at the same time; the cache controller
// guarantees this with a reader/writer lock held around both the index and
// the store.
//
// # Determinism
//
// Equidistant centers are resolved in favor of the smallest EntryID.
package index
