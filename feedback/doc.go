// Package feedback implements the optional metrics and adaptation loop of the cache.
//
// The loop has four parts:
//
//   - Window aggregates hit ratio, hit/miss latency and sampled recall over a
//     sliding time window.
//   - Sampler re-runs a rate-limited fraction of cache hits against the
//     backend in the background and reports the recall of the served payload.
//   - Controller consumes WindowSnapshots from a bounded channel and publishes
//     Params (radius scale, confidence decay rate) through an atomic pointer.
//   - InvalidationLog remembers recently invalidated regions so radius
//     policies can narrow new entries in unstable neighborhoods.
//
// Nothing here is required for correctness: with feedback disabled the cache
// serves identical results, only the radius and decay stay fixed.
package feedback
