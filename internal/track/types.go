// Package track is the static path index of a ride: segments placed on tiles,
// each owning a precomputed table of move steps that vehicles walk through.
package track

import "fmt"

// World geometry constants. A tile is 32 units wide; one height level is 8 units.
const (
	TileSize    = 32
	HeightUnit  = 8
	YawSteps    = 32 // sprite yaw resolution, 8 per quarter turn
	yawPerQuart = YawSteps / 4
)

// Pitch is the slope of a single move step. It selects the gravity term and the
// sprite variant of a car standing on that step.
type Pitch uint8

const (
	PitchFlat Pitch = iota
	PitchUp12
	PitchUp25
	PitchUp42
	PitchUp60
	PitchDown12
	PitchDown25
	PitchDown42
	PitchDown60
)

var pitchNames = [...]string{"flat", "up12", "up25", "up42", "up60", "down12", "down25", "down42", "down60"}

func (p Pitch) String() string {
	if int(p) < len(pitchNames) {
		return pitchNames[p]
	}
	return fmt.Sprintf("pitch(%d)", p)
}

// accelerationFromPitch is the per-car gravity term before train averaging.
var accelerationFromPitch = [...]int32{
	PitchFlat:   0,
	PitchUp12:   -124548,
	PitchUp25:   -243318,
	PitchUp42:   -416016,
	PitchUp60:   -546342,
	PitchDown12: 124548,
	PitchDown25: 243318,
	PitchDown42: 416016,
	PitchDown60: 546342,
}

// Gravity returns the pitch's contribution to acceleration.
func (p Pitch) Gravity() int32 {
	if int(p) < len(accelerationFromPitch) {
		return accelerationFromPitch[p]
	}
	return 0
}

// Descending reports whether the step goes downhill.
func (p Pitch) Descending() bool { return p >= PitchDown12 }

// Steep reports a pitch of 42 degrees or more in either direction.
func (p Pitch) Steep() bool {
	return p == PitchUp42 || p == PitchUp60 || p == PitchDown42 || p == PitchDown60
}

// slopeQuarter is the pitch expressed as rise per run in quarters.
func slopeQuarter(p Pitch) int {
	switch p {
	case PitchUp25:
		return 2
	case PitchUp60:
		return 8
	case PitchDown25:
		return -2
	case PitchDown60:
		return -8
	}
	return 0
}

// pitchFromSlope maps a rise over run (both in world units) back to a step pitch.
func pitchFromSlope(rise, run int) Pitch {
	if run <= 0 {
		return PitchFlat
	}
	down := rise < 0
	if down {
		rise = -rise
	}
	// compare rise/run against thresholds in eighths
	r8 := rise * 8 / run
	var p Pitch
	switch {
	case r8 < 1:
		return PitchFlat
	case r8 < 3:
		p = PitchUp12
	case r8 < 6:
		p = PitchUp25
	case r8 < 12:
		p = PitchUp42
	default:
		p = PitchUp60
	}
	if down {
		p += PitchDown12 - PitchUp12
	}
	return p
}

// Bank is the roll of a move step.
type Bank uint8

const (
	BankNone Bank = iota
	BankLeft
	BankRight
)

func (b Bank) String() string {
	switch b {
	case BankLeft:
		return "left"
	case BankRight:
		return "right"
	}
	return "none"
}

// Tile addresses one map tile.
type Tile struct {
	X, Y int32
}

func (t Tile) String() string { return fmt.Sprintf("(%d,%d)", t.X, t.Y) }

// Position is a world coordinate in track units.
type Position struct {
	X, Y, Z int32
}

// Tile returns the map tile containing the position.
func (p Position) Tile() Tile {
	return Tile{X: floorDiv(p.X, TileSize), Y: floorDiv(p.Y, TileSize)}
}

func (p Position) Add(o Position) Position {
	return Position{X: p.X + o.X, Y: p.Y + o.Y, Z: p.Z + o.Z}
}

func (p Position) Sub(o Position) Position {
	return Position{X: p.X - o.X, Y: p.Y - o.Y, Z: p.Z - o.Z}
}

// MoveStep is one entry of a segment's step table. Offsets are relative to the
// segment's tile corner and base height; Yaw is already rotated into world space.
type MoveStep struct {
	X, Y, Z int16
	Yaw     uint8
	Pitch   Pitch
	Bank    Bank
}

// Offset returns the step offset as a position.
func (m MoveStep) Offset() Position {
	return Position{X: int32(m.X), Y: int32(m.Y), Z: int32(m.Z)}
}

func floorDiv(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Direction is the traversal direction of a walk.
type Direction int8

const (
	Forward  Direction = 1
	Backward Direction = -1
)
