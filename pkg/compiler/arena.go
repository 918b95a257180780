package compiler

import "fmt"

// CapacityError reports an exhausted region.
type CapacityError struct {
	Region   string
	Capacity int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s region exhausted (capacity %d)", e.Region, e.Capacity)
}

// Arena is a bump region with a fixed object budget. Objects are handed out
// zeroed and live until the compilation ends; there is no per-object free.
type Arena struct {
	name     string
	capacity int
	used     int
}

// NewArena returns a region that hands out at most capacity objects.
func NewArena(name string, capacity int) *Arena {
	return &Arena{name: name, capacity: capacity}
}

// reserve charges one object against the budget.
func (a *Arena) reserve() error {
	if a.used >= a.capacity {
		return &CapacityError{Region: a.name, Capacity: a.capacity}
	}
	a.used++
	return nil
}

// Used reports how many objects have been handed out.
func (a *Arena) Used() int { return a.used }

// Cap reports the configured budget.
func (a *Arena) Cap() int { return a.capacity }

// Reset forgets every allocation. Objects handed out earlier must no
// longer be used.
func (a *Arena) Reset() { a.used = 0 }

const slabSize = 64

// Pool allocates values of one type out of an Arena. Backing storage comes
// in fixed-size slabs that are never re-sliced, so returned pointers stay
// valid for the life of the pool.
type Pool[T any] struct {
	arena *Arena
	slabs [][]T
}

func NewPool[T any](a *Arena) *Pool[T] {
	return &Pool[T]{arena: a}
}

// New returns a pointer to a zeroed T.
func (p *Pool[T]) New() (*T, error) {
	if err := p.arena.reserve(); err != nil {
		return nil, err
	}
	n := len(p.slabs)
	if n == 0 || len(p.slabs[n-1]) == cap(p.slabs[n-1]) {
		p.slabs = append(p.slabs, make([]T, 0, slabSize))
		n++
	}
	last := &p.slabs[n-1]
	*last = append(*last, *new(T))
	return &(*last)[len(*last)-1], nil
}

// Len reports the number of values allocated from this pool.
func (p *Pool[T]) Len() int {
	total := 0
	for _, s := range p.slabs {
		total += len(s)
	}
	return total
}
