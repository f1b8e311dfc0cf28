package pool

// ObjectPool is a bounded LIFO free list. Each herd shard keeps one to hold
// its idle arenas; recently released objects are handed out first, so a hot
// shard keeps reusing the same warmed-up arenas.
//
// The pool itself is not synchronized. The owning shard's mutex guards every
// Acquire and Release.
type ObjectPool[T any] struct {
	stack []T
}

// NewObjectPool builds a pool that retains at most capacity idle objects.
func NewObjectPool[T any](capacity int) ObjectPool[T] {
	return ObjectPool[T]{
		stack: make([]T, 0, capacity),
	}
}

// Acquire pops the most recently released object, or returns the zero value
// when the pool is empty and the caller must construct a fresh one.
func (o *ObjectPool[T]) Acquire() (obj T) {
	if len(o.stack) != 0 {
		obj = o.stack[len(o.stack)-1]
		o.stack = o.stack[:len(o.stack)-1]
	}

	return obj
}

// Release stores obj for reuse. A full pool drops it on the floor, leaving
// the garbage collector to reclaim it.
func (o *ObjectPool[T]) Release(obj T) {
	if len(o.stack) == cap(o.stack) {
		return
	}

	o.stack = append(o.stack, obj)
}
