package kmeans

import (
	"context"
	"errors"
	"math"
	"math/rand"

	"github.com/hupe1980/proximity/distance"
)

// ErrInvalidK is returned when k is not positive.
var ErrInvalidK = errors.New("k must be positive")

// Train clusters points into k groups using Lloyd's algorithm in Euclidean space.
//
// It returns the centroids and, for every point, the index of its cluster.
// If there are fewer points than k, nil centroids are returned.
// Centroid initialization draws from rng, so a seeded rng yields a
// deterministic clustering.
func Train(ctx context.Context, points [][]float32, k int, maxIter int, rng *rand.Rand) ([][]float32, []int, error) {
	if k <= 0 {
		return nil, nil, ErrInvalidK
	}
	n := len(points)
	if n < k {
		return nil, nil, nil
	}
	dim := len(points[0])

	centroids := make([][]float32, k)
	perm := rng.Perm(n)
	for i := 0; i < k; i++ {
		centroids[i] = append([]float32(nil), points[perm[i]]...)
	}

	assignments := make([]int, n)
	for i := range assignments {
		assignments[i] = -1
	}
	counts := make([]int, k)
	sums := make([][]float32, k)
	for i := range sums {
		sums[i] = make([]float32, dim)
	}

	for iter := 0; iter < maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		changed := false

		// Assignment step
		for i, p := range points {
			best := Assign(p, centroids)
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}

		if !changed {
			break
		}

		// Update step
		for j := range sums {
			clear(sums[j])
			counts[j] = 0
		}
		for i, p := range points {
			c := assignments[i]
			for d, x := range p {
				sums[c][d] += x
			}
			counts[c]++
		}
		for j := 0; j < k; j++ {
			if counts[j] == 0 {
				// Re-seed empty cluster with a random point.
				copy(centroids[j], points[rng.Intn(n)])
				continue
			}
			scale := 1 / float32(counts[j])
			for d := range centroids[j] {
				centroids[j][d] = sums[j][d] * scale
			}
		}
	}

	return centroids, assignments, nil
}

// Assign returns the index of the centroid closest to p.
// Ties resolve to the lower index.
func Assign(p []float32, centroids [][]float32) int {
	best := -1
	minDist := float32(math.MaxFloat32)
	for j, c := range centroids {
		d := distance.SquaredL2(p, c)
		if d < minDist {
			minDist = d
			best = j
		}
	}
	return best
}

// Centroid returns the arithmetic mean of points.
func Centroid(points [][]float32) []float32 {
	if len(points) == 0 {
		return nil
	}
	c := make([]float32, len(points[0]))
	for _, p := range points {
		for d, x := range p {
			c[d] += x
		}
	}
	scale := 1 / float32(len(points))
	for d := range c {
		c[d] *= scale
	}
	return c
}
