package sim

import (
	"ridesim/internal/fixed"
	"ridesim/internal/ride"
	"ridesim/internal/track"
	"ridesim/internal/vehicle"
)

// Flat ride timing. A phase of 256 is one full swing or revolution.
const (
	phaseTurn      = 256
	swingStep      = 4
	swingAmplitude = 15
	ferrisStep     = 1
	spaceRingsTime = 384
	spinLimit      = 512
)

// showTicks is the running time of each timed show.
var showTicks = map[vehicle.Status]uint32{
	vehicle.StatusSimulatorOperating:    320,
	vehicle.StatusShowingFilm:           480,
	vehicle.StatusHauntedHouseOperating: 600,
	vehicle.StatusCrookedHouseOperating: 240,
	vehicle.StatusDoingCircusShow:       720,
}

// flatMover runs rides whose vehicles never leave the platform.
type flatMover struct{}

func (flatMover) depart(e *Engine, tc *tickContext) {
	t := tc.train
	t.Phase = 0
	t.SetStatus(operatingStatus(tc.ride.cfg))
}

// operatingStatus maps a flat ride mode to the status its cycle runs in.
func operatingStatus(cfg ride.Config) vehicle.Status {
	switch cfg.Mode {
	case ride.ModeSwing:
		return vehicle.StatusSwinging
	case ride.ModeRotation, ride.ModeForwardRotation, ride.ModeBackwardRotation:
		if cfg.Type == ride.TypeFerrisWheel {
			return vehicle.StatusFerrisWheelRotating
		}
		return vehicle.StatusRotating
	case ride.ModeSimulator:
		return vehicle.StatusSimulatorOperating
	case ride.ModeFilm:
		return vehicle.StatusShowingFilm
	case ride.ModeSpaceRings:
		return vehicle.StatusSpaceRingsOperating
	case ride.ModeTopSpinBeginners, ride.ModeTopSpinIntense, ride.ModeTopSpinBerserk:
		return vehicle.StatusTopSpinOperating
	case ride.ModeHauntedHouse:
		return vehicle.StatusHauntedHouseOperating
	case ride.ModeCrookedHouse:
		return vehicle.StatusCrookedHouseOperating
	case ride.ModeCircus:
		return vehicle.StatusDoingCircusShow
	}
	return vehicle.StatusRotating
}

func (flatMover) operate(e *Engine, tc *tickContext) {
	var done bool
	switch tc.train.Status {
	case vehicle.StatusSwinging:
		done = swing(tc)
	case vehicle.StatusRotating, vehicle.StatusFerrisWheelRotating:
		done = rotate(tc)
	case vehicle.StatusTopSpinOperating:
		done = topSpin(tc)
	case vehicle.StatusSpaceRingsOperating:
		done = e.spaceRings(tc)
	default:
		done = show(tc)
	}
	if done {
		tc.train.SetStatus(vehicle.StatusArriving)
	}
}

// swing rocks the ship with an amplitude that builds over the first half of
// the swings and dies away over the second.
func swing(tc *tickContext) bool {
	t := tc.train
	t.Phase += swingStep
	swings := int(t.Phase / phaseTurn)
	if swings >= t.Operations {
		for _, c := range tc.cars {
			c.Snapshot.Swing = track.YawSteps / 2
			c.Snapshot.Sprite = track.YawSteps / 2
		}
		return true
	}
	amp := int32(min(swings+1, t.Operations-swings)) * 4
	amp = min(amp, swingAmplitude)
	angle := fixed.Sin(uint8(t.Phase)) * amp >> fixed.Shift
	for _, c := range tc.cars {
		c.Snapshot.Swing = uint8(angle + track.YawSteps/2)
		c.Snapshot.Sprite = c.Snapshot.Swing
	}
	return false
}

// rotate turns a carousel or wheel. Backward rotation runs the phase down.
func rotate(tc *tickContext) bool {
	t := tc.train
	speed := int32(ferrisStep)
	if t.Status == vehicle.StatusRotating {
		speed = 1 + int32(min(t.StatusTicks/32, 3))
	}
	if tc.ride.cfg.Mode == ride.ModeBackwardRotation {
		speed = -speed
	}
	t.Phase += speed
	for i, c := range tc.cars {
		c.Snapshot.Sprite = uint8((t.Phase>>3)+int32(i*track.YawSteps/len(tc.cars))) & (track.YawSteps - 1)
	}
	return fixed.Abs(t.Phase) >= int32(t.Operations)*phaseTurn
}

// topSpin swings the arm over and spins the seat at a rate set by intensity.
func topSpin(tc *tickContext) bool {
	t := tc.train
	level := int32(tc.ride.cfg.Mode.TopSpinIntensity())
	t.Phase += 2 + level
	for _, c := range tc.cars {
		c.Spin.Angle += uint16((level + 1) << 9)
		c.Snapshot.Sprite = uint8(t.Phase>>3) & (track.YawSteps - 1)
		c.Snapshot.Spin = uint8(c.Spin.Angle >> 11)
	}
	return t.Phase >= int32(t.Operations)*phaseTurn
}

// spaceRings lets each ring tumble freely, pushed at random.
func (e *Engine) spaceRings(tc *tickContext) bool {
	for _, c := range tc.cars {
		c.Spin.Speed = fixed.Clamp(c.Spin.Speed+int32(e.rng.Intn(65)-32), -spinLimit, spinLimit)
		c.Spin.Angle += uint16(c.Spin.Speed)
		c.Snapshot.Spin = uint8(c.Spin.Angle >> 11)
		c.Snapshot.Sprite = c.Snapshot.Spin
	}
	return tc.train.StatusTicks >= spaceRingsTime
}

// show runs a timed show with a looping animation frame.
func show(tc *tickContext) bool {
	t := tc.train
	for _, c := range tc.cars {
		c.Snapshot.Sprite = uint8(t.StatusTicks/8) % 16
	}
	d, ok := showTicks[t.Status]
	if !ok {
		d = showTicks[vehicle.StatusSimulatorOperating]
	}
	return t.StatusTicks >= d
}
