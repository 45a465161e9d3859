package testutil

import (
	"cmp"
	"math"
	"math/rand"
	"slices"
	"sync"

	"github.com/hupe1980/proximity/distance"
	"github.com/hupe1980/proximity/model"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// FillUniform fills dst with random values in range [0, 1).
// Locks only once per call (preferred over calling Float64 in a loop).
func (r *RNG) FillUniform(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float32()
	}
}

// UniformVectors generates random vectors with values in range [0, 1).
func (r *RNG) UniformVectors(num int, dimensions int) []model.Vector {
	r.mu.Lock()
	defer r.mu.Unlock()

	vectors := make([]model.Vector, num)
	buf := make([]float32, dimensions)
	for i := range num {
		for j := range buf {
			buf[j] = r.rand.Float32()
		}
		vectors[i] = model.NewVector(buf)
	}
	return vectors
}

// GaussianVectors generates random vectors from a standard normal distribution.
func (r *RNG) GaussianVectors(num int, dimensions int) []model.Vector {
	r.mu.Lock()
	defer r.mu.Unlock()

	vectors := make([]model.Vector, num)
	buf := make([]float32, dimensions)
	for i := range num {
		for j := range buf {
			buf[j] = float32(r.rand.NormFloat64())
		}
		vectors[i] = model.NewVector(buf)
	}
	return vectors
}

// UnitVectors generates L2-normalized random vectors (on the hypersphere).
func (r *RNG) UnitVectors(num int, dimensions int) []model.Vector {
	vectors := r.GaussianVectors(num, dimensions)
	for i, v := range vectors {
		buf := v.Values()
		distance.NormalizeL2InPlace(buf)
		vectors[i] = model.NewVector(buf)
	}
	return vectors
}

// Perturb returns v plus Gaussian noise with the given standard deviation.
// Query streams built this way revisit the neighborhood of earlier queries.
func (r *RNG) Perturb(v model.Vector, stddev float32) model.Vector {
	r.mu.Lock()
	defer r.mu.Unlock()

	buf := v.Values()
	for j := range buf {
		buf[j] += float32(r.rand.NormFloat64()) * stddev
	}
	return model.NewVector(buf)
}

// ClusteredVectors generates vectors clustered around random unit centroids.
func (r *RNG) ClusteredVectors(num, dim, clusters int, spread float32) []model.Vector {
	centroids := r.UnitVectors(clusters, dim)

	vectors := make([]model.Vector, num)
	for i := range num {
		vectors[i] = r.Perturb(centroids[i%clusters], spread)
	}
	return vectors
}

// Zipf returns a Zipfian-distributed value in [0, n).
// s=1.0 gives standard Zipf, larger s gives a heavier head.
func (r *RNG) Zipf(n int, s float64) int {
	if n <= 1 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}

	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1
		}
	}
	return n - 1
}

// ExactTopK returns the k nearest items of dataset to q under metric as a
// Result, with item IDs being dataset positions. Ties go to the lower ID.
func ExactTopK(q model.Vector, dataset []model.Vector, k int, metric distance.Metric) model.Result {
	fn, err := distance.Provider(metric)
	if err != nil {
		panic(err)
	}

	out := make([]model.Neighbor, 0, len(dataset))
	for i, v := range dataset {
		out = append(out, model.Neighbor{ID: uint64(i), Distance: fn(q.View(), v.View())})
	}

	sortNeighbors(out)
	if k < len(out) {
		out = out[:k]
	}
	return model.Result{Neighbors: out}
}

func sortNeighbors(ns []model.Neighbor) {
	slices.SortFunc(ns, func(a, b model.Neighbor) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
