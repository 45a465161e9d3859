package balltree

import (
	"context"
	"math"
	"math/rand"
	"slices"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hupe1980/proximity/distance"
	"github.com/hupe1980/proximity/index"
	"github.com/hupe1980/proximity/internal/kmeans"
	"github.com/hupe1980/proximity/internal/queue"
	"github.com/hupe1980/proximity/model"
)

// Compile-time check to ensure BallTree satisfies the index interface.
var _ index.Index = (*BallTree)(nil)

// radiusSlack inflates stored radii so float rounding never makes a ball
// exclude one of its own centers.
const radiusSlack = 1e-9

// Options contains configuration options for the ball tree.
type Options struct {
	// Dimension is the fixed vector dimensionality for this index.
	Dimension int

	// Metric is the distance metric.
	Metric distance.Metric

	// Epsilon is the approximation factor ε >= 0. Zero means exact search.
	Epsilon float64

	// LeafSize is the maximum number of entries in a leaf before it splits.
	LeafSize int

	// Fanout is the number of children created by a split.
	Fanout int

	// MaxDepth triggers a full rebuild when exceeded.
	MaxDepth int

	// KMeansIterations bounds the clustering work per split.
	KMeansIterations int

	// Seed makes splits reproducible.
	Seed int64
}

// DefaultOptions contains the default configuration options for the ball tree.
var DefaultOptions = Options{
	Metric:           distance.MetricL2,
	Epsilon:          0,
	LeafSize:         16,
	Fanout:           2,
	MaxDepth:         48,
	KMeansIterations: 10,
	Seed:             1,
}

// BallTree is a bounded-degree ball tree over cached region centers.
type BallTree struct {
	opts Options

	// chordEps is ε expressed in the embedded (Euclidean) space.
	chordEps float64

	arena  arena
	root   uint32
	points map[model.EntryID][]float32
	leafOf map[model.EntryID]uint32
	rng    *rand.Rand

	rebuilds        int
	lastRebuildSize int
}

// New creates a new ball tree.
func New(optFns ...func(o *Options)) (*BallTree, error) {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if err := index.ValidateBasicOptions(opts.Dimension, opts.Metric); err != nil {
		return nil, err
	}
	if opts.Epsilon < 0 || math.IsNaN(opts.Epsilon) {
		return nil, index.ErrInvalidEpsilon
	}
	if opts.LeafSize < 1 {
		opts.LeafSize = DefaultOptions.LeafSize
	}
	if opts.Fanout < 2 {
		opts.Fanout = 2
	}
	if opts.MaxDepth < 1 {
		opts.MaxDepth = DefaultOptions.MaxDepth
	}
	if opts.KMeansIterations < 1 {
		opts.KMeansIterations = DefaultOptions.KMeansIterations
	}

	chordEps := opts.Epsilon
	if opts.Metric == distance.MetricCosine {
		// cos = chord²/2, so (1+ε') ² = 1+ε keeps the cosine bound.
		chordEps = math.Sqrt(1+opts.Epsilon) - 1
	}

	return &BallTree{
		opts:     opts,
		chordEps: chordEps,
		root:     noNode,
		points:   make(map[model.EntryID][]float32),
		leafOf:   make(map[model.EntryID]uint32),
		rng:      rand.New(rand.NewSource(opts.Seed)), //nolint:gosec // clustering only
	}, nil
}

func (*BallTree) Name() string { return "BallTree" }

// Dimension returns the dimensionality of the index.
func (t *BallTree) Dimension() int { return t.opts.Dimension }

// Metric returns the distance metric of the index.
func (t *BallTree) Metric() distance.Metric { return t.opts.Metric }

// Len returns the number of indexed centers.
func (t *BallTree) Len() int { return len(t.points) }

// Depth returns the height of the tree (a single leaf has depth 1).
func (t *BallTree) Depth() int {
	if t.root == noNode {
		return 0
	}
	maxDepth := 0
	for i := range t.arena.nodes {
		n := &t.arena.nodes[i]
		if n.live && n.depth > maxDepth {
			maxDepth = n.depth
		}
	}
	return maxDepth + 1
}

// NodeCount returns the number of live nodes.
func (t *BallTree) NodeCount() int { return t.arena.liveCount() }

// Rebuilds returns how often the tree was rebuilt because it grew too deep.
func (t *BallTree) Rebuilds() int { return t.rebuilds }

// IDs returns a snapshot of all IDs.
func (t *BallTree) IDs() *roaring64.Bitmap {
	bm := roaring64.New()
	for id := range t.points {
		bm.Add(uint64(id))
	}
	return bm
}

func dist(a, b []float32) float64 {
	return math.Sqrt(float64(distance.SquaredL2(a, b)))
}

// Insert adds a center to the tree.
func (t *BallTree) Insert(id model.EntryID, center model.Vector) error {
	if err := index.CheckDimension(t.opts.Dimension, center); err != nil {
		return err
	}
	if _, ok := t.points[id]; ok {
		return &index.ErrDuplicateID{ID: id}
	}

	p := t.opts.Metric.Embed(center.View())
	t.points[id] = p

	if t.root == noNode {
		t.root = t.arena.alloc(slices.Clone(p), noNode, 0)
	}

	cur := t.root
	for {
		n := t.arena.get(cur)
		if d := dist(n.center, p) * (1 + radiusSlack); d > n.radius {
			n.radius = d
		}
		if n.isLeaf() {
			break
		}
		cur = t.closestChild(n, p)
	}

	leaf := t.arena.get(cur)
	leaf.entries = append(leaf.entries, id)
	t.leafOf[id] = cur

	if len(leaf.entries) > t.opts.LeafSize {
		switch {
		case leaf.depth+1 < t.opts.MaxDepth:
			t.split(cur)
		case len(t.points) >= 2*t.lastRebuildSize:
			// Too deep: rebuild, at most once per doubling of the tree.
			t.Rebuild()
		}
	}

	return nil
}

func (t *BallTree) closestChild(n *node, p []float32) uint32 {
	best := n.children[0]
	bestD := dist(t.arena.get(best).center, p)
	for _, c := range n.children[1:] {
		d := dist(t.arena.get(c).center, p)
		if d < bestD || (d == bestD && c < best) {
			best, bestD = c, d
		}
	}
	return best
}

// split turns an overflowing leaf into an internal node with up to Fanout children.
// Degenerate partitions (all entries in one cluster) leave the leaf oversized.
func (t *BallTree) split(leafID uint32) {
	leaf := t.arena.get(leafID)
	groups := t.partition(leaf.entries)
	if groups == nil {
		return
	}

	depth := leaf.depth
	leaf.entries = nil

	for _, g := range groups {
		child := t.newLeaf(g, leafID, depth+1)
		// newLeaf may grow the arena; re-fetch the parent.
		parent := t.arena.get(leafID)
		parent.children = append(parent.children, child)
	}
}

// partition clusters ids into at most Fanout non-empty groups, or returns nil
// when no useful split exists.
func (t *BallTree) partition(ids []model.EntryID) [][]model.EntryID {
	if len(ids) < t.opts.Fanout {
		return nil
	}

	pts := make([][]float32, len(ids))
	for i, id := range ids {
		pts[i] = t.points[id]
	}

	_, assign, err := kmeans.Train(context.Background(), pts, t.opts.Fanout, t.opts.KMeansIterations, t.rng)
	if err != nil || assign == nil {
		return nil
	}

	groups := make([][]model.EntryID, t.opts.Fanout)
	for i, c := range assign {
		groups[c] = append(groups[c], ids[i])
	}

	out := groups[:0]
	for _, g := range groups {
		if len(g) > 0 {
			out = append(out, g)
		}
	}
	if len(out) < 2 {
		return nil
	}
	return out
}

// newLeaf allocates a leaf for ids centered at their centroid.
func (t *BallTree) newLeaf(ids []model.EntryID, parent uint32, depth int) uint32 {
	pts := make([][]float32, len(ids))
	for i, id := range ids {
		pts[i] = t.points[id]
	}
	center := kmeans.Centroid(pts)

	nid := t.arena.alloc(center, parent, depth)
	n := t.arena.get(nid)
	n.entries = slices.Clone(ids)
	for _, p := range pts {
		if d := dist(center, p) * (1 + radiusSlack); d > n.radius {
			n.radius = d
		}
	}
	for _, id := range ids {
		t.leafOf[id] = nid
	}
	return nid
}

// Rebuild reconstructs the tree top-down from the live entries.
func (t *BallTree) Rebuild() {
	t.rebuilds++
	t.lastRebuildSize = len(t.points)
	t.arena.reset()
	t.root = noNode
	if len(t.points) == 0 {
		return
	}

	ids := make([]model.EntryID, 0, len(t.points))
	for id := range t.points {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	t.root = t.build(ids, noNode, 0)
}

func (t *BallTree) build(ids []model.EntryID, parent uint32, depth int) uint32 {
	nid := t.newLeaf(ids, parent, depth)
	if len(ids) <= t.opts.LeafSize || depth+1 >= t.opts.MaxDepth {
		return nid
	}

	groups := t.partition(ids)
	if groups == nil {
		return nid
	}

	t.arena.get(nid).entries = nil
	for _, g := range groups {
		child := t.build(g, nid, depth+1)
		n := t.arena.get(nid)
		n.children = append(n.children, child)
	}
	return nid
}

// Remove deletes a center. Emptied nodes are detached; radii are not shrunk.
func (t *BallTree) Remove(id model.EntryID) bool {
	leafID, ok := t.leafOf[id]
	if !ok {
		return false
	}
	delete(t.leafOf, id)
	delete(t.points, id)

	leaf := t.arena.get(leafID)
	if i := slices.Index(leaf.entries, id); i >= 0 {
		leaf.entries = slices.Delete(leaf.entries, i, i+1)
	}

	cur := leafID
	for {
		n := t.arena.get(cur)
		if len(n.entries) > 0 || len(n.children) > 0 {
			break
		}
		parent := n.parent
		t.arena.release(cur)
		if parent == noNode {
			t.root = noNode
			break
		}
		p := t.arena.get(parent)
		if i := slices.Index(p.children, cur); i >= 0 {
			p.children = slices.Delete(p.children, i, i+1)
		}
		cur = parent
	}

	return true
}

// frontierItem is a node awaiting expansion, keyed by its distance lower bound.
type frontierItem struct {
	node  uint32
	bound float64
}

func frontierLess(a, b frontierItem) bool {
	if a.bound == b.bound {
		return a.node < b.node
	}
	return a.bound < b.bound
}

// Query returns a (1+ε)-approximate nearest center.
func (t *BallTree) Query(v model.Vector) (index.Match, bool, error) {
	if err := index.CheckDimension(t.opts.Dimension, v); err != nil {
		return index.Match{}, false, err
	}
	if t.root == noNode || len(t.points) == 0 {
		return index.Match{}, false, nil
	}

	q := t.opts.Metric.Embed(v.View())
	best := index.Match{Distance: math.Inf(1)}
	found := false

	frontier := queue.New(32, frontierLess)
	frontier.Push(frontierItem{node: t.root, bound: t.lowerBound(t.root, q)})

	for frontier.Len() > 0 {
		item, _ := frontier.Pop()
		if found && item.bound*(1+t.chordEps) > best.Distance {
			break
		}

		n := t.arena.get(item.node)
		if n.isLeaf() {
			for _, id := range n.entries {
				m := index.Match{ID: id, Distance: dist(q, t.points[id])}
				if !found || m.Less(best) {
					best = m
					found = true
				}
			}
			continue
		}

		for _, c := range n.children {
			lb := t.lowerBound(c, q)
			if found && lb*(1+t.chordEps) > best.Distance {
				continue
			}
			frontier.Push(frontierItem{node: c, bound: lb})
		}
	}

	if !found {
		return index.Match{}, false, nil
	}

	best.Distance = t.opts.Metric.FromEmbedded(best.Distance)
	return best, true, nil
}

func (t *BallTree) lowerBound(nid uint32, q []float32) float64 {
	n := t.arena.get(nid)
	return math.Max(0, dist(q, n.center)-n.radius)
}

// Within returns the IDs of all centers within radius of v.
func (t *BallTree) Within(v model.Vector, radius float64) ([]model.EntryID, error) {
	if err := index.CheckDimension(t.opts.Dimension, v); err != nil {
		return nil, err
	}
	if t.root == noNode {
		return nil, nil
	}

	q := t.opts.Metric.Embed(v.View())
	limit := t.opts.Metric.ToEmbedded(radius)

	var out []model.EntryID
	stack := []uint32{t.root}
	for len(stack) > 0 {
		nid := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if t.lowerBound(nid, q) > limit {
			continue
		}
		n := t.arena.get(nid)
		if n.isLeaf() {
			for _, id := range n.entries {
				if dist(q, t.points[id]) <= limit {
					out = append(out, id)
				}
			}
			continue
		}
		stack = append(stack, n.children...)
	}

	return out, nil
}
