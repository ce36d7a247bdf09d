// Package queue implements the priority queue used to rank eviction candidates.
package queue

import "container/heap"

// Item is a value with the tick of its last access.
type Item[T any] struct {
	Value T
	Tick  uint64
}

// Oldest is a min-heap that yields the item with the smallest tick first.
// The zero value is ready to use.
type Oldest[T any] struct {
	h items[T]
}

// NewOldest returns a queue with room for capacity items.
func NewOldest[T any](capacity int) *Oldest[T] {
	return &Oldest[T]{h: make(items[T], 0, capacity)}
}

// Push adds v with the given tick.
func (q *Oldest[T]) Push(v T, tick uint64) {
	heap.Push(&q.h, Item[T]{Value: v, Tick: tick})
}

// Pop removes and returns the oldest item.
func (q *Oldest[T]) Pop() (Item[T], bool) {
	if len(q.h) == 0 {
		return Item[T]{}, false
	}
	return heap.Pop(&q.h).(Item[T]), true
}

// Peek returns the oldest item without removing it.
func (q *Oldest[T]) Peek() (Item[T], bool) {
	if len(q.h) == 0 {
		return Item[T]{}, false
	}
	return q.h[0], true
}

// Len returns the number of queued items.
func (q *Oldest[T]) Len() int { return len(q.h) }

// Reset empties the queue, keeping its storage.
func (q *Oldest[T]) Reset() {
	clear(q.h)
	q.h = q.h[:0]
}

// Compile time check to ensure items satisfies the heap interface.
var _ heap.Interface = (*items[int])(nil)

type items[T any] []Item[T]

func (s items[T]) Len() int           { return len(s) }
func (s items[T]) Less(i, j int) bool { return s[i].Tick < s[j].Tick }
func (s items[T]) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

func (s *items[T]) Push(x any) {
	*s = append(*s, x.(Item[T]))
}

func (s *items[T]) Pop() any {
	old := *s
	n := len(old)
	it := old[n-1]
	old[n-1] = Item[T]{}
	*s = old[:n-1]
	return it
}
