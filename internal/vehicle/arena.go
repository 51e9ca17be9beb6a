// Package vehicle holds the car records of all rides in an arena addressed by
// generation-checked handles, and the trains that chain them together.
package vehicle

import (
	"errors"
	"fmt"
)

// ErrStaleHandle is returned for a handle whose car has been freed.
var ErrStaleHandle = errors.New("vehicle: stale handle")

// Handle addresses a car in an Arena. The generation detects reuse of the slot
// after the car was freed.
type Handle struct {
	index uint32
	gen   uint32
}

// Nil is the zero handle; it never resolves.
var Nil Handle

func (h Handle) IsNil() bool { return h.gen == 0 }

func (h Handle) String() string { return fmt.Sprintf("car#%d.%d", h.index, h.gen) }

type slot struct {
	v    Vehicle
	gen  uint32
	live bool
}

// Arena stores every car. It is not safe for concurrent use.
type Arena struct {
	slots []slot
	free  []uint32
	live  int
}

func NewArena() *Arena { return &Arena{} }

// Alloc stores v and returns its handle. Freed slots are reused lowest first
// so allocation order is reproducible.
func (a *Arena) Alloc(v Vehicle) Handle {
	var idx uint32
	if n := len(a.free); n > 0 {
		best := 0
		for i := 1; i < n; i++ {
			if a.free[i] < a.free[best] {
				best = i
			}
		}
		idx = a.free[best]
		a.free[best] = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		idx = uint32(len(a.slots))
		a.slots = append(a.slots, slot{})
	}
	s := &a.slots[idx]
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	s.v = v
	s.live = true
	a.live++
	return Handle{index: idx, gen: s.gen}
}

// Get resolves h.
func (a *Arena) Get(h Handle) (*Vehicle, error) {
	if h.gen == 0 || int(h.index) >= len(a.slots) {
		return nil, fmt.Errorf("%s: %w", h, ErrStaleHandle)
	}
	s := &a.slots[h.index]
	if !s.live || s.gen != h.gen {
		return nil, fmt.Errorf("%s: %w", h, ErrStaleHandle)
	}
	return &s.v, nil
}

// Free releases the car. Later lookups of h fail with ErrStaleHandle.
func (a *Arena) Free(h Handle) error {
	if _, err := a.Get(h); err != nil {
		return err
	}
	s := &a.slots[h.index]
	s.live = false
	s.v = Vehicle{}
	a.free = append(a.free, h.index)
	a.live--
	return nil
}

// Len returns the number of live cars.
func (a *Arena) Len() int { return a.live }

// Each visits live cars in slot order.
func (a *Arena) Each(fn func(Handle, *Vehicle)) {
	for i := range a.slots {
		s := &a.slots[i]
		if s.live {
			fn(Handle{index: uint32(i), gen: s.gen}, &s.v)
		}
	}
}
