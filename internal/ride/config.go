package ride

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("ride: invalid configuration")

// WaitFor is the load a train waits for before it may depart.
type WaitFor uint8

const (
	WaitForNone WaitFor = iota
	WaitForAny
	WaitForQuarter
	WaitForHalf
	WaitForThreeQuarter
	WaitForFull
)

// Satisfied reports whether passengers out of capacity meets the requirement.
func (w WaitFor) Satisfied(passengers, capacity int) bool {
	switch w {
	case WaitForNone:
		return true
	case WaitForAny:
		return passengers > 0
	}
	if capacity <= 0 {
		return true
	}
	var quarters int
	switch w {
	case WaitForQuarter:
		quarters = 1
	case WaitForHalf:
		quarters = 2
	case WaitForThreeQuarter:
		quarters = 3
	default:
		quarters = 4
	}
	return passengers*4 >= capacity*quarters
}

// Config is the operator's setup of a ride. The engine never modifies it.
type Config struct {
	Type Type
	Mode Mode

	// LaunchSpeed is the velocity given to launched trains, Q16.16.
	LaunchSpeed int32
	// LiftSpeed is the chain and cable lift speed, Q16.16.
	LiftSpeed int32

	// MinWait and MaxWait bound the loading time in ticks; zero disables.
	MinWait uint32
	MaxWait uint32
	WaitFor WaitFor

	Synchronised            bool
	LeaveWhenAnotherArrives bool

	// Circuits is the number of laps per ride cycle, at least 1.
	Circuits int
	// Operations is the number of swings, rotations or show repeats for flat rides.
	Operations int
}

// Describe returns the ride type payload.
func (c Config) Describe() *Descriptor { return c.Type.Describe() }

// Validate checks the configuration against the ride type.
func (c Config) Validate() error {
	if !c.Type.Valid() {
		return fmt.Errorf("type %d: %w", c.Type, ErrInvalidConfig)
	}
	if c.Mode >= modeCount {
		return fmt.Errorf("mode %d: %w", c.Mode, ErrInvalidConfig)
	}
	if !c.Describe().Supports(c.Mode) {
		return fmt.Errorf("%s does not support mode %s: %w", c.Type, c.Mode, ErrInvalidConfig)
	}
	if c.Circuits < 0 || c.Circuits > 20 {
		return fmt.Errorf("circuits %d out of range: %w", c.Circuits, ErrInvalidConfig)
	}
	if c.MaxWait > 0 && c.MinWait > c.MaxWait {
		return fmt.Errorf("min wait %d exceeds max wait %d: %w", c.MinWait, c.MaxWait, ErrInvalidConfig)
	}
	if c.Mode.Launched() && c.LaunchSpeed <= 0 {
		return fmt.Errorf("mode %s needs a launch speed: %w", c.Mode, ErrInvalidConfig)
	}
	return nil
}

// WithDefaults fills zero fields with the values a freshly built ride has.
func (c Config) WithDefaults() Config {
	if c.Circuits == 0 {
		c.Circuits = 1
	}
	if c.Operations == 0 {
		c.Operations = 3
	}
	if c.LiftSpeed == 0 {
		c.LiftSpeed = 3 << 16
	}
	return c
}
