// Package ride holds the read-only description of a ride: its type, operating
// mode and configuration, plus the collaborator contracts the engine consults
// for passengers and maintenance.
package ride

import (
	"fmt"
	"strings"
)

// ID identifies a ride within a park.
type ID int32

// Type is the kind of ride. Each type carries a Descriptor payload.
type Type uint8

const (
	TypeSteelCoaster Type = iota
	TypeWoodenCoaster
	TypeSuspendedCoaster
	TypeSpinningCoaster
	TypeReverserCoaster
	TypeLogFlume
	TypeMiniatureRailway
	TypeGoKarts
	TypeBoatHire
	TypeDodgems
	TypeSwingingShip
	TypeMerryGoRound
	TypeFerrisWheel
	TypeMotionSimulator
	Type3DCinema
	TypeSpaceRings
	TypeTopSpin
	TypeHauntedHouse
	TypeCrookedHouse
	TypeCircus

	typeCount
)

// Strategy selects how vehicles of a ride type move.
type Strategy uint8

const (
	StrategyTrack  Strategy = iota // walk a track layout
	StrategyBoat                   // free movement on water tiles
	StrategyBumper                 // free movement inside an arena floor
	StrategyFlat                   // no translation, animation only
)

// CollisionResponse is what happens to a train that runs into another one.
type CollisionResponse uint8

const (
	CollisionCrash   CollisionResponse = iota // both trains crash
	CollisionRebound                          // mover bounces back
	CollisionHold                             // mover waits behind
)

func (c CollisionResponse) String() string {
	switch c {
	case CollisionCrash:
		return "crash"
	case CollisionRebound:
		return "rebound"
	case CollisionHold:
		return "hold"
	}
	return fmt.Sprintf("collision(%d)", c)
}

// Descriptor is the payload of a ride Type.
type Descriptor struct {
	Name      string
	Strategy  Strategy
	Collision CollisionResponse

	// Footprint is the length of one car in world units. Two cars touch when
	// closer than the mean of their footprints.
	Footprint int32
	// CarSpacing is the distance between consecutive cars, in move steps.
	CarSpacing int

	Powered         bool
	PoweredAccel    int32
	MaxPoweredSpeed int32

	// AirDrag scales the quadratic drag term; zero means the default.
	AirDrag int32

	Swinging bool
	Spinning bool
	Water    bool

	// Modes lists the operating modes the type supports; the first is the default.
	Modes []Mode
}

// Supports reports whether m is one of the type's modes.
func (d *Descriptor) Supports(m Mode) bool {
	for _, x := range d.Modes {
		if x == m {
			return true
		}
	}
	return false
}

var coasterModes = []Mode{ModeContinuousCircuit, ModeContinuousCircuitBlockSectioned, ModePoweredLaunch, ModePoweredLaunchPassthrough, ModeReverseInclineLaunchedShuttle, ModeShuttle, ModeRace}

var descriptors = [typeCount]Descriptor{
	TypeSteelCoaster:     {Name: "steel_coaster", Footprint: 24, CarSpacing: 26, Modes: coasterModes},
	TypeWoodenCoaster:    {Name: "wooden_coaster", Footprint: 26, CarSpacing: 28, AirDrag: 3, Modes: coasterModes},
	TypeSuspendedCoaster: {Name: "suspended_coaster", Footprint: 22, CarSpacing: 24, Swinging: true, Modes: coasterModes},
	TypeSpinningCoaster:  {Name: "spinning_coaster", Footprint: 20, CarSpacing: 22, Spinning: true, Modes: coasterModes},
	TypeReverserCoaster:  {Name: "reverser_coaster", Footprint: 20, CarSpacing: 22, Modes: coasterModes},
	TypeLogFlume:         {Name: "log_flume", Footprint: 22, CarSpacing: 24, Water: true, Modes: []Mode{ModeContinuousCircuit}},
	TypeMiniatureRailway: {
		Name: "miniature_railway", Footprint: 24, CarSpacing: 26,
		Powered: true, PoweredAccel: 2400, MaxPoweredSpeed: 4 << 16,
		Modes: []Mode{ModeShuttle, ModeContinuousCircuit},
	},
	TypeGoKarts: {
		Name: "go_karts", Collision: CollisionHold, Footprint: 16, CarSpacing: 18,
		Powered: true, PoweredAccel: 6000, MaxPoweredSpeed: 6 << 16,
		Modes: []Mode{ModeRace, ModeContinuousCircuit},
	},
	TypeBoatHire: {
		Name: "boat_hire", Strategy: StrategyBoat, Collision: CollisionRebound, Footprint: 20,
		Powered: true, PoweredAccel: 1200, MaxPoweredSpeed: 2 << 16, Water: true,
		Modes: []Mode{ModeBoatHire},
	},
	TypeDodgems: {
		Name: "dodgems", Strategy: StrategyBumper, Collision: CollisionRebound, Footprint: 16,
		Powered: true, PoweredAccel: 3000, MaxPoweredSpeed: 3 << 16,
		Modes: []Mode{ModeDodgems},
	},
	TypeSwingingShip:    {Name: "swinging_ship", Strategy: StrategyFlat, Footprint: 32, Modes: []Mode{ModeSwing}},
	TypeMerryGoRound:    {Name: "merry_go_round", Strategy: StrategyFlat, Footprint: 32, Modes: []Mode{ModeRotation}},
	TypeFerrisWheel:     {Name: "ferris_wheel", Strategy: StrategyFlat, Footprint: 32, Modes: []Mode{ModeForwardRotation, ModeBackwardRotation}},
	TypeMotionSimulator: {Name: "motion_simulator", Strategy: StrategyFlat, Footprint: 32, Modes: []Mode{ModeSimulator}},
	Type3DCinema:        {Name: "3d_cinema", Strategy: StrategyFlat, Footprint: 32, Modes: []Mode{ModeFilm}},
	TypeSpaceRings:      {Name: "space_rings", Strategy: StrategyFlat, Footprint: 32, Modes: []Mode{ModeSpaceRings}},
	TypeTopSpin:         {Name: "top_spin", Strategy: StrategyFlat, Footprint: 32, Modes: []Mode{ModeTopSpinBeginners, ModeTopSpinIntense, ModeTopSpinBerserk}},
	TypeHauntedHouse:    {Name: "haunted_house", Strategy: StrategyFlat, Footprint: 32, Modes: []Mode{ModeHauntedHouse}},
	TypeCrookedHouse:    {Name: "crooked_house", Strategy: StrategyFlat, Footprint: 32, Modes: []Mode{ModeCrookedHouse}},
	TypeCircus:          {Name: "circus", Strategy: StrategyFlat, Footprint: 32, Modes: []Mode{ModeCircus}},
}

// Describe returns the payload of t.
func (t Type) Describe() *Descriptor {
	if t >= typeCount {
		return &Descriptor{Name: "invalid"}
	}
	return &descriptors[t]
}

func (t Type) Valid() bool { return t < typeCount }

func (t Type) String() string { return t.Describe().Name }

// ParseType resolves a ride type name.
func ParseType(name string) (Type, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i := range descriptors {
		if descriptors[i].Name == name {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("unknown ride type %q", name)
}
