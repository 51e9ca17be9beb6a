package sim

import (
	"ridesim/internal/fixed"
	"ridesim/internal/ride"
	"ridesim/internal/vehicle"
)

const (
	swingLimit     = 0x2000
	swingGain      = 16
	swingStiffness = 3
	swingDamping   = 2
	swingFrames    = 14

	spinGain     = 8
	spinFriction = 5
	spinMax      = 0x1000
)

// gforce estimates the force on riders from the piece's factors and speed, in
// hundredths of g. Moving backward mirrors the lateral term.
func gforce(lateral, vertical, v int32) vehicle.GForce {
	s := v >> fixed.Shift
	k := s * s / 64
	g := vehicle.GForce{Lateral: lateral * k / 4, Vertical: 100 + vertical*k/4}
	if v < 0 {
		g.Lateral = -g.Lateral
	}
	return g
}

// animate derives the force estimate, swing and spin of each car from the
// motion of this tick. Nothing here feeds back into position.
func (e *Engine) animate(tc *tickContext) {
	rs := tc.ride
	if rs.desc.Strategy != ride.StrategyTrack || tc.train.Status == vehicle.StatusCrashing || tc.train.Status.Terminal() {
		return
	}
	v := tc.velocity()
	for _, c := range tc.cars {
		seg, err := rs.layout.Segment(c.Segment)
		if err != nil {
			continue
		}
		d := seg.Describe()
		c.Force = gforce(d.Lateral, d.Vertical, v)
		if rs.desc.Swinging {
			swingCar(c, int32(d.SwingAmount))
		}
		if rs.desc.Spinning {
			spinCar(c, int32(d.SpinDirection))
		}
	}
}

// swingCar runs the damped pendulum of a suspended car toward the angle the
// lateral force pushes it to, bounded by the piece's swing amount.
func swingCar(c *vehicle.Vehicle, amount int32) {
	target := fixed.Clamp(c.Force.Lateral*amount*swingGain, -swingLimit, swingLimit)
	s := &c.Swing
	s.Speed += (target - s.Position) >> swingStiffness
	s.Speed -= s.Speed >> swingDamping
	s.Position = fixed.Clamp(s.Position+s.Speed, -swingLimit, swingLimit)
	c.Snapshot.Swing = uint8((s.Position + swingLimit) * swingFrames / (2 * swingLimit))
}

// spinCar lets lateral force turn a free-spinning car against friction.
func spinCar(c *vehicle.Vehicle, dir int32) {
	s := &c.Spin
	s.Speed += fixed.Abs(c.Force.Lateral) * dir * spinGain
	s.Speed -= s.Speed >> spinFriction
	s.Speed = fixed.Clamp(s.Speed, -spinMax, spinMax)
	s.Angle += uint16(s.Speed)
	c.Snapshot.Spin = uint8(s.Angle >> 11)
}
