// Package watch runs the two background database pollers — desired music and
// server status — and the shared latest-value cells they publish through.
//
// Each cell is a single-producer value cache with an edge-triggered consume
// operation: the watcher overwrites the slot on every observed change (values
// are overwritten, never queued) and the control loop either samples the
// latest value or atomically takes-and-clears the pending-change flag.
package watch

import "sync"

// Cell is a mutex-protected slot holding the latest observed value plus a
// "has unconsumed change" flag. It is safe for concurrent use.
type Cell[T any] struct {
	mu      sync.Mutex
	value   T
	seeded  bool
	pending bool
}

// Set overwrites the slot and marks the change as unconsumed, regardless of
// whether the previous change was ever read.
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = v
	c.seeded = true
	c.pending = true
}

// Latest returns the current value without touching the change flag.
// ok is false until the first Set.
func (c *Cell[T]) Latest() (v T, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.seeded
}

// Consume atomically takes the value and clears the change flag. ok is false
// when no unconsumed change is pending.
func (c *Cell[T]) Consume() (v T, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.pending {
		var zero T
		return zero, false
	}
	c.pending = false
	return c.value, true
}
