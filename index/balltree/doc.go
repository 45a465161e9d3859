// Package balltree implements a bounded-degree ball tree proximity index.
//
// Every node covers a ball (center, radius) that contains all centers stored
// beneath it. Leaves hold up to LeafSize entries; an overflowing leaf is split
// into Fanout children with 2-means (k-means for Fanout > 2), so the degree of
// every internal node is bounded by Fanout.
//
// # Search
//
// Query runs a best-first search over a min-heap keyed by the lower bound
// max(0, d(q, c) - r). A node is pruned when lb·(1+ε) > best, which yields a
// (1+ε)-approximate nearest neighbor. With ε = 0 the search is exact and
// equidistant centers resolve to the smallest EntryID.
//
// For cosine, vectors are normalized on entry and the tree works with chord
// distances on the unit sphere. The chord approximation factor is derived
// from ε so the returned cosine distance stays within (1+ε) of the optimum.
//
// # Maintenance
//
// Node centers are fixed at creation. Radii grow on insert and are left
// conservative on removal. When the tree depth exceeds MaxDepth the whole
// tree is rebuilt top-down from the live entries.
package balltree
