// Package graph provides the search primitives of the KCMC engine:
//   - Level BFS labeling sensors by hop distance to the nearest sink
//   - Level-guided best-first path search for node-disjoint paths
//   - A unit-capacity residual network with augmenting-path helpers
//
// Frontier ties are broken by sensor id, so search results do not depend on
// map iteration order.
package graph

import (
	"container/heap"
)

// =============================================================================
// FIFO Queue
// =============================================================================

// Queue provides a FIFO queue for BFS traversal.
// It uses a slice with a head pointer to avoid repeated allocations.
type Queue struct {
	data []int
	head int
}

// NewQueue creates a new Queue with the specified initial capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{data: make([]int, 0, capacity)}
}

// Push adds an element to the end of the queue.
func (q *Queue) Push(v int) {
	q.data = append(q.data, v)
}

// Pop removes and returns the element at the front of the queue.
//
// Panics if the queue is empty. Always check Empty() before calling Pop().
func (q *Queue) Pop() int {
	v := q.data[q.head]
	q.head++
	return v
}

// Empty returns true if the queue contains no elements.
func (q *Queue) Empty() bool {
	return q.head >= len(q.data)
}

// Len returns the number of elements currently in the queue.
func (q *Queue) Len() int {
	return len(q.data) - q.head
}

// Reset clears the queue for reuse, keeping the underlying capacity.
func (q *Queue) Reset() {
	q.data = q.data[:0]
	q.head = 0
}

// =============================================================================
// Priority Frontier
// =============================================================================

// frontierItem is a sensor waiting in the frontier with its priority key.
type frontierItem struct {
	sensor   int
	priority int
}

// frontierHeap orders items by ascending priority, then ascending sensor id.
type frontierHeap []frontierItem

func (h frontierHeap) Len() int { return len(h) }

func (h frontierHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].sensor < h[j].sensor
}

func (h frontierHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *frontierHeap) Push(x any) { *h = append(*h, x.(frontierItem)) }

func (h *frontierHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Frontier is a min-priority queue of sensors keyed by an external priority
// array. Ties are broken by ascending sensor id, so pop order is fully
// deterministic.
type Frontier struct {
	items    frontierHeap
	priority []int
}

// NewFrontier creates an empty frontier keyed by priority[sensor].
func NewFrontier(priority []int) *Frontier {
	return &Frontier{priority: priority}
}

// Push enqueues a sensor with its current priority.
func (f *Frontier) Push(sensor int) {
	heap.Push(&f.items, frontierItem{sensor: sensor, priority: f.priority[sensor]})
}

// Pop removes and returns the sensor with the lowest (priority, id).
func (f *Frontier) Pop() int {
	return heap.Pop(&f.items).(frontierItem).sensor
}

// Empty returns true if the frontier contains no sensors.
func (f *Frontier) Empty() bool {
	return len(f.items) == 0
}

// Len returns the number of queued sensors.
func (f *Frontier) Len() int {
	return len(f.items)
}

// Reset clears the frontier and switches it to a new priority array.
func (f *Frontier) Reset(priority []int) {
	f.items = f.items[:0]
	f.priority = priority
}
