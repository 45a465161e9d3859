// Package distance provides vector distance calculations for proximity.
//
// # Supported Metrics
//
//   - MetricL2: Euclidean distance
//   - MetricCosine: cosine distance (1 - cosine similarity)
//
// The set of metrics is closed and selected at construction time. Indexes
// reduce cosine to Euclidean geometry on the unit sphere (see Metric.Embed),
// which lets tree-based indexes rely on the triangle inequality for both.
//
// # Usage
//
//	dist := distance.Euclidean(a, b)
//	fn, _ := distance.Provider(distance.MetricCosine)
//	d := fn(a, b)
package distance
