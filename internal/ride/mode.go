package ride

import (
	"fmt"
	"strings"
)

// Mode is the operating mode a ride runs in.
type Mode uint8

const (
	ModeContinuousCircuit Mode = iota
	ModeContinuousCircuitBlockSectioned
	ModePoweredLaunch
	ModePoweredLaunchPassthrough
	ModeReverseInclineLaunchedShuttle
	ModeShuttle
	ModeBoatHire
	ModeDodgems
	ModeSwing
	ModeRotation
	ModeForwardRotation
	ModeBackwardRotation
	ModeSimulator
	ModeFilm
	ModeSpaceRings
	ModeTopSpinBeginners
	ModeTopSpinIntense
	ModeTopSpinBerserk
	ModeHauntedHouse
	ModeCrookedHouse
	ModeCircus
	ModeRace

	modeCount
)

var modeNames = [modeCount]string{
	"continuous_circuit",
	"continuous_circuit_block_sectioned",
	"powered_launch",
	"powered_launch_passthrough",
	"reverse_incline_launched_shuttle",
	"shuttle",
	"boat_hire",
	"dodgems",
	"swing",
	"rotation",
	"forward_rotation",
	"backward_rotation",
	"simulator",
	"film",
	"space_rings",
	"top_spin_beginners",
	"top_spin_intense",
	"top_spin_berserk",
	"haunted_house",
	"crooked_house",
	"circus",
	"race",
}

func (m Mode) String() string {
	if m < modeCount {
		return modeNames[m]
	}
	return fmt.Sprintf("mode(%d)", m)
}

// ParseMode resolves a mode name.
func ParseMode(name string) (Mode, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range modeNames {
		if n == name {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown ride mode %q", name)
}

// Shuttle modes run back and forth on open track instead of looping.
func (m Mode) Shuttle() bool {
	return m == ModeShuttle || m == ModeReverseInclineLaunchedShuttle
}

// Launched modes leave the station at the configured launch speed.
func (m Mode) Launched() bool {
	return m == ModePoweredLaunch || m == ModePoweredLaunchPassthrough || m == ModeReverseInclineLaunchedShuttle
}

// BlockSectioned modes only dispatch when the section ahead of the station is clear.
func (m Mode) BlockSectioned() bool {
	return m == ModeContinuousCircuitBlockSectioned || m == ModeRace
}

// TopSpinIntensity returns 0, 1 or 2 for the three top spin modes, -1 otherwise.
func (m Mode) TopSpinIntensity() int {
	switch m {
	case ModeTopSpinBeginners:
		return 0
	case ModeTopSpinIntense:
		return 1
	case ModeTopSpinBerserk:
		return 2
	}
	return -1
}
