// Package queue provides the binary heap used by best-first tree searches
// and bounded top-K selection.
package queue

import "container/heap"

// Heap is a binary heap whose top is the element that sorts first under
// less. Use New; the zero value has no ordering.
type Heap[T any] struct {
	h items[T]
}

// New returns an empty heap ordered by less.
func New[T any](capacity int, less func(a, b T) bool) *Heap[T] {
	return &Heap[T]{h: items[T]{s: make([]T, 0, capacity), less: less}}
}

// Len returns the number of elements.
func (q *Heap[T]) Len() int { return len(q.h.s) }

// Push adds v.
func (q *Heap[T]) Push(v T) { heap.Push(&q.h, v) }

// Pop removes and returns the top element.
func (q *Heap[T]) Pop() (T, bool) {
	if len(q.h.s) == 0 {
		var zero T
		return zero, false
	}
	return heap.Pop(&q.h).(T), true
}

// Peek returns the top element without removing it.
func (q *Heap[T]) Peek() (T, bool) {
	if len(q.h.s) == 0 {
		var zero T
		return zero, false
	}
	return q.h.s[0], true
}

// ReplaceTop overwrites the top element with v and restores the order.
// It is a no-op on an empty heap.
func (q *Heap[T]) ReplaceTop(v T) {
	if len(q.h.s) == 0 {
		return
	}
	q.h.s[0] = v
	heap.Fix(&q.h, 0)
}

// Reset empties the heap, keeping its storage.
func (q *Heap[T]) Reset() {
	clear(q.h.s)
	q.h.s = q.h.s[:0]
}

type items[T any] struct {
	s    []T
	less func(a, b T) bool
}

func (h *items[T]) Len() int           { return len(h.s) }
func (h *items[T]) Less(i, j int) bool { return h.less(h.s[i], h.s[j]) }
func (h *items[T]) Swap(i, j int)      { h.s[i], h.s[j] = h.s[j], h.s[i] }
func (h *items[T]) Push(x any)         { h.s = append(h.s, x.(T)) }

func (h *items[T]) Pop() any {
	n := len(h.s) - 1
	v := h.s[n]
	var zero T
	h.s[n] = zero
	h.s = h.s[:n]
	return v
}
