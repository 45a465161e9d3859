// Package testutil provides testing utilities for the cache and its indexes.
//
// This package is intended for use in tests and benchmarks only.
//
//	rng := testutil.NewRNG(seed)
//	data := rng.UnitVectors(1000, 64)
//	q := rng.Perturb(data[0], 0.01)
//	truth := testutil.ExactTopK(q, data, 10, distance.MetricCosine)
package testutil
