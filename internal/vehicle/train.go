package vehicle

import (
	"errors"
	"fmt"

	"ridesim/internal/ride"
	"ridesim/internal/track"
)

// Status is the ride-cycle state shared by all cars of a train.
type Status uint8

const (
	StatusMovingToEndOfStation Status = iota
	StatusWaitingForPassengers
	StatusWaitingToDepart
	StatusDeparting
	StatusTravelling
	StatusArriving
	StatusUnloadingPassengers
	StatusTravellingBoat
	StatusTravellingBumper
	StatusSwinging
	StatusRotating
	StatusFerrisWheelRotating
	StatusSimulatorOperating
	StatusShowingFilm
	StatusSpaceRingsOperating
	StatusTopSpinOperating
	StatusHauntedHouseOperating
	StatusCrookedHouseOperating
	StatusDoingCircusShow
	StatusWaitingForCableLift
	StatusTravellingCableLift
	StatusStoppedByBlockBrakes
	StatusCrashing
	StatusCrashed

	statusCount
)

var statusNames = [statusCount]string{
	"moving_to_end_of_station",
	"waiting_for_passengers",
	"waiting_to_depart",
	"departing",
	"travelling",
	"arriving",
	"unloading_passengers",
	"travelling_boat",
	"travelling_bumper",
	"swinging",
	"rotating",
	"ferris_wheel_rotating",
	"simulator_operating",
	"showing_film",
	"space_rings_operating",
	"top_spin_operating",
	"haunted_house_operating",
	"crooked_house_operating",
	"doing_circus_show",
	"waiting_for_cable_lift",
	"travelling_cable_lift",
	"stopped_by_block_brakes",
	"crashing",
	"crashed",
}

func (s Status) String() string {
	if s < statusCount {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", s)
}

// Terminal reports the only state nothing leaves.
func (s Status) Terminal() bool { return s == StatusCrashed }

// Moving reports states in which the train is out on the track, which matters
// to synchronised stations waiting for it.
func (s Status) Moving() bool {
	switch s {
	case StatusMovingToEndOfStation, StatusDeparting, StatusTravelling, StatusArriving,
		StatusWaitingForCableLift, StatusTravellingCableLift, StatusStoppedByBlockBrakes:
		return true
	}
	return false
}

// Operating reports the self-contained timed loops of flat rides, boats and bumper cars.
func (s Status) Operating() bool {
	return s >= StatusTravellingBoat && s <= StatusDoingCircusShow
}

// ErrBrokenChain is returned when a train does not have exactly one head and one tail.
var ErrBrokenChain = errors.New("vehicle: train chain broken")

// Train is an ordered chain of cars, head first.
type Train struct {
	ID   int32
	Ride ride.ID
	Cars []Handle

	Status      Status
	StatusTicks uint32 // ticks spent in the current status

	Berth        int // station berth index, -1 when none
	CircuitsLeft int
	Operations   int // swings, rotations or show repeats still to do
	Phase        int32

	Reversals int // shuttle direction changes this cycle
	Heading   track.Direction

	StallTicks   uint32
	LastSegment  track.SegmentID
	LastProgress int

	SyncWait          uint32
	Discontinuities   uint32 // consecutive ticks blocked by a geometry mismatch
	BreakdownNotified bool
	BreakdownStopped  bool
	CrashReported     bool

	// Channels holds the sound playing on each of the train's two channels.
	Channels          [2]uint8
	Screaming         bool
	CrashSoundPending bool // set when the train starts crashing, cleared once the crash is heard
}

// Head returns the first car.
func (t *Train) Head() Handle {
	if len(t.Cars) == 0 {
		return Nil
	}
	return t.Cars[0]
}

// Tail returns the last car.
func (t *Train) Tail() Handle {
	if len(t.Cars) == 0 {
		return Nil
	}
	return t.Cars[len(t.Cars)-1]
}

// Neighbours returns the cars before and after car i in the chain.
func (t *Train) Neighbours(i int) (prev, next Handle) {
	if i > 0 && i < len(t.Cars) {
		prev = t.Cars[i-1]
	}
	if i >= 0 && i+1 < len(t.Cars) {
		next = t.Cars[i+1]
	}
	return prev, next
}

// Order returns the car indices in walking order for dir: head first going
// forward, tail first going backward.
func (t *Train) Order(dir track.Direction) []int {
	out := make([]int, len(t.Cars))
	for i := range out {
		if dir == track.Backward {
			out[i] = len(t.Cars) - 1 - i
		} else {
			out[i] = i
		}
	}
	return out
}

// SetStatus switches status and resets the status timer.
func (t *Train) SetStatus(s Status) {
	if t.Status != s {
		t.Status = s
		t.StatusTicks = 0
	}
}

// AssignRoles marks head and tail and renumbers the cars.
func (t *Train) AssignRoles(a *Arena) error {
	if len(t.Cars) == 0 {
		return fmt.Errorf("train %d has no cars: %w", t.ID, ErrBrokenChain)
	}
	for i, h := range t.Cars {
		v, err := a.Get(h)
		if err != nil {
			return fmt.Errorf("train %d car %d: %w", t.ID, i, err)
		}
		v.Role = RoleMiddle
		if i == 0 {
			v.Role |= RoleHead
		}
		if i == len(t.Cars)-1 {
			v.Role |= RoleTail
		}
		v.Index = i
		v.Train = t.ID
		v.Ride = t.Ride
	}
	return nil
}

// CheckChain verifies the head and tail invariant.
func (t *Train) CheckChain(a *Arena) error {
	heads, tails := 0, 0
	for _, h := range t.Cars {
		v, err := a.Get(h)
		if err != nil {
			return err
		}
		if v.Role.Head() {
			heads++
		}
		if v.Role.Tail() {
			tails++
		}
	}
	if heads != 1 || tails != 1 {
		return fmt.Errorf("train %d: %d heads, %d tails: %w", t.ID, heads, tails, ErrBrokenChain)
	}
	return nil
}
