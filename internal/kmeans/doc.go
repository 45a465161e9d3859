// Package kmeans implements Lloyd's k-means clustering over embedded vectors.
//
// Used by the ball-tree index to split overflowing leaves and to bulk-build
// balanced trees on rebuild.
package kmeans
