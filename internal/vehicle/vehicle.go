package vehicle

import (
	"ridesim/internal/ride"
	"ridesim/internal/track"
)

// Role marks the ends of a train. A single-car train is both head and tail.
type Role uint8

const (
	RoleMiddle Role = 0
	RoleHead   Role = 1 << 0
	RoleTail   Role = 1 << 1
)

func (r Role) Head() bool { return r&RoleHead != 0 }
func (r Role) Tail() bool { return r&RoleTail != 0 }

// Snapshot is the committed pose of a car for the current tick. It is written
// once per tick after the car has moved and read by renderers and queries.
type Snapshot struct {
	Pos    track.Position
	Yaw    uint8
	Pitch  track.Pitch
	Bank   track.Bank
	Sprite uint8
	Swing  uint8
	Spin   uint8
}

// Swing is the pendulum state of a suspended car.
type Swing struct {
	Position int32
	Speed    int32
}

// Spin is the free rotation of a spinning car, Angle in 1/65536 turns.
type Spin struct {
	Angle uint16
	Speed int32
}

// GForce is the force estimate of the last step, in hundredths of g.
type GForce struct {
	Lateral  int32
	Vertical int32
}

// Crash is the ballistic state of a car flung off the track.
type Crash struct {
	Velocity track.Position
	Landed   bool
}

// Vehicle is one car.
type Vehicle struct {
	Ride  ride.ID
	Train int32
	Index int // position in its train, 0 at the head

	Velocity     int32 // Q16.16, positive is forward along the track
	Acceleration int32

	Segment   track.SegmentID
	Key       track.Key // segment identity for re-resolving after track edits
	Progress  int
	Remaining int32 // unspent distance, carried between ticks

	Role     Role
	Reversed bool // bogies swapped by a reverser

	Broken   bool
	Manifest ride.ManifestKey

	// Free is the position of boats and bumper cars, which leave the track.
	Free    track.Position
	Heading uint8

	Force GForce
	Swing Swing
	Spin  Spin
	Crash Crash

	Snapshot Snapshot
}

// Place puts the car at progress of seg and refreshes its key.
func (v *Vehicle) Place(seg *track.Segment, progress int) {
	v.Segment = seg.ID
	v.Key = seg.Key()
	v.Progress = progress
}
