package ride

import (
	"fmt"
	"sync"
)

// Breakdown is a pending maintenance problem reported for a ride.
type Breakdown uint8

const (
	BreakdownNone Breakdown = iota
	BreakdownSafetyCutOut
	BreakdownRestraintsStuckClosed
	BreakdownRestraintsStuckOpen
	BreakdownDoorsStuckClosed
	BreakdownDoorsStuckOpen
	BreakdownVehicleMalfunction
	BreakdownBrakesFailure
	BreakdownControlFailure
)

var breakdownNames = [...]string{
	"none", "safety_cut_out", "restraints_stuck_closed", "restraints_stuck_open",
	"doors_stuck_closed", "doors_stuck_open", "vehicle_malfunction", "brakes_failure", "control_failure",
}

func (b Breakdown) String() string {
	if int(b) < len(breakdownNames) {
		return breakdownNames[b]
	}
	return fmt.Sprintf("breakdown(%d)", b)
}

// HoldsStation reports breakdowns that keep a loaded train in the station
// until maintenance clears them.
func (b Breakdown) HoldsStation() bool {
	switch b {
	case BreakdownSafetyCutOut, BreakdownRestraintsStuckClosed, BreakdownRestraintsStuckOpen,
		BreakdownDoorsStuckClosed, BreakdownDoorsStuckOpen, BreakdownControlFailure:
		return true
	}
	return false
}

// ManifestKey refers to a car's passenger list, owned outside the engine.
type ManifestKey uint32

// Manifest reports passenger counts. The engine only reads counts.
type Manifest interface {
	Passengers(k ManifestKey) int
	Capacity(k ManifestKey) int
}

// Maintenance is the breakdown state of rides. Pending is read every tick;
// the Mark methods are the only writes the engine makes.
type Maintenance interface {
	Pending(id ID) Breakdown
	MarkStalled(id ID, train int32)
	MarkCollided(id ID, train int32)
}

// Seats is an in-memory Manifest.
type Seats struct {
	mu       sync.RWMutex
	capacity int
	riders   map[ManifestKey]int
}

// NewSeats returns a manifest where every car holds capacity riders.
func NewSeats(capacity int) *Seats {
	return &Seats{capacity: capacity, riders: make(map[ManifestKey]int)}
}

func (s *Seats) Set(k ManifestKey, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > s.capacity {
		n = s.capacity
	}
	s.riders[k] = n
}

func (s *Seats) Passengers(k ManifestKey) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.riders[k]
}

func (s *Seats) Capacity(ManifestKey) int { return s.capacity }

// Logbook is an in-memory Maintenance record.
type Logbook struct {
	mu       sync.Mutex
	pending  map[ID]Breakdown
	stalled  map[ID]int
	collided map[ID]int
}

func NewLogbook() *Logbook {
	return &Logbook{
		pending:  make(map[ID]Breakdown),
		stalled:  make(map[ID]int),
		collided: make(map[ID]int),
	}
}

// Report sets the pending breakdown of a ride; BreakdownNone clears it.
func (l *Logbook) Report(id ID, b Breakdown) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if b == BreakdownNone {
		delete(l.pending, id)
		return
	}
	l.pending[id] = b
}

func (l *Logbook) Pending(id ID) Breakdown {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending[id]
}

func (l *Logbook) MarkStalled(id ID, _ int32) {
	l.mu.Lock()
	l.stalled[id]++
	l.mu.Unlock()
}

func (l *Logbook) MarkCollided(id ID, _ int32) {
	l.mu.Lock()
	l.collided[id]++
	l.mu.Unlock()
}

// Stalled returns how many stall notifications a ride has received.
func (l *Logbook) Stalled(id ID) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stalled[id]
}

// Collided returns how many collisions a ride has reported.
func (l *Logbook) Collided(id ID) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.collided[id]
}
