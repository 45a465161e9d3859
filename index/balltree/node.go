package balltree

import "github.com/hupe1980/proximity/model"

const noNode = ^uint32(0)

// node is a ball in the tree arena. A node is a leaf iff children is empty.
type node struct {
	center   []float32
	radius   float64
	parent   uint32
	depth    int
	children []uint32
	entries  []model.EntryID
	live     bool
}

func (n *node) isLeaf() bool { return len(n.children) == 0 }

// arena owns all nodes; freed slots are recycled through the free list.
type arena struct {
	nodes []node
	free  []uint32
}

func (a *arena) alloc(center []float32, parent uint32, depth int) uint32 {
	n := node{center: center, parent: parent, depth: depth, live: true}

	if k := len(a.free); k > 0 {
		id := a.free[k-1]
		a.free = a.free[:k-1]
		a.nodes[id] = n
		return id
	}

	a.nodes = append(a.nodes, n)
	return uint32(len(a.nodes) - 1)
}

func (a *arena) release(id uint32) {
	a.nodes[id] = node{}
	a.free = append(a.free, id)
}

func (a *arena) get(id uint32) *node { return &a.nodes[id] }

func (a *arena) reset() {
	a.nodes = a.nodes[:0]
	a.free = a.free[:0]
}

func (a *arena) liveCount() int { return len(a.nodes) - len(a.free) }
