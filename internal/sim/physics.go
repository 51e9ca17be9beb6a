package sim

import (
	"ridesim/internal/fixed"
	"ridesim/internal/ride"
	"ridesim/internal/track"
)

// Velocity and acceleration constants, Q16.16 per tick.
const (
	creepThreshold = 0x8000
	creepNudge     = 400
	creepFloor     = -500

	stationCrawl     = 1 << 16
	departSpeed      = 2 << 16
	stationAccel     = 0x1000
	stationBrake     = 0x4000
	brakeDecel       = 0x6000
	brakeDefault     = 3 << 16
	boosterAccel     = 0x3000
	blockSpeed       = 2 << 16
	blockAccel       = 0x2000
	malfunctionDecel = 0x2000
)

// acceleration sums gravity over the cars' pitches, subtracts rolling friction
// and air drag, then adds powered, booster and block brake drive.
func (e *Engine) acceleration(tc *tickContext) int32 {
	v := tc.velocity()
	var sum int64
	for _, c := range tc.cars {
		sum += int64(c.Snapshot.Pitch.Gravity())
	}
	a := fixed.Clamp64(((sum / int64(len(tc.cars))) * 21) >> 9)
	a = fixed.SatSub(a, v>>12)
	a = fixed.SatSub(a, drag(v, tc.ride.desc.AirDrag))

	d := tc.ride.desc
	if d.Powered && !tc.train.BreakdownStopped {
		a = fixed.SatAdd(a, powered(d, tc.train.Heading, v))
	}

	if seg, err := tc.ride.layout.Segment(tc.leader().Segment); err == nil {
		sd := seg.Describe()
		switch {
		case sd.Has(track.FlagBooster):
			if target := speedOr(seg.Speed, departSpeed*2); fixed.Abs(v) < target {
				a = fixed.SatAdd(a, int32(tc.train.Heading)*boosterAccel)
			}
		case sd.Has(track.FlagBlockBrake):
			if target := speedOr(seg.Speed, blockSpeed); v >= 0 && v < target {
				a = fixed.SatAdd(a, blockAccel)
			}
		}
	}

	if v > 0 && v <= creepThreshold && a >= creepFloor && a <= 0 {
		a += creepNudge
	}
	return a
}

// drag is the quadratic air resistance, signed against v.
func drag(v, k int32) int32 {
	if k <= 0 {
		k = 1
	}
	s := int64(fixed.Abs(v) >> 8)
	d := fixed.Clamp64(s * s * int64(k) >> 14)
	if v < 0 {
		return -d
	}
	return d
}

// powered drives a self-propelled train toward its top speed in its heading.
func powered(d *ride.Descriptor, heading track.Direction, v int32) int32 {
	along := v * int32(heading)
	if along < d.MaxPoweredSpeed {
		return int32(heading) * d.PoweredAccel
	}
	return 0
}

func speedOr(v, def int32) int32 {
	if v > 0 {
		return v
	}
	return def
}

// integrateVelocity applies a to the train velocity, clamps it, then lets
// lifts, trim brakes and the caller's adjust override the result.
func (e *Engine) integrateVelocity(tc *tickContext, a int32, adjust func(int32) int32) int32 {
	vmax := e.settings.MaxVelocity
	v := fixed.Clamp(fixed.SatAdd(tc.velocity(), a), -vmax, vmax)

	l := tc.ride.layout
	lift := tc.ride.cfg.LiftSpeed
	for _, c := range tc.cars {
		seg, err := l.Segment(c.Segment)
		if err != nil || !seg.Chain {
			continue
		}
		tc.outcome |= OnLiftHill
		if v < lift {
			v = lift
			a = 0
		}
		break
	}

	if seg, err := l.Segment(tc.leader().Segment); err == nil && seg.Describe().Has(track.FlagBrakes) {
		target := speedOr(seg.Speed, brakeDefault)
		if fixed.Abs(v) > target {
			tc.outcome |= OnBrakes
			v = towards(v, target*fixed.Sign(v), brakeDecel)
		}
	}

	if adjust != nil {
		v = adjust(v)
	}
	tc.setVelocity(v, a)
	return v
}

// towards moves v to target by at most step.
func towards(v, target, step int32) int32 {
	switch {
	case v < target:
		return fixed.Clamp64(min(int64(v)+int64(step), int64(target)))
	case v > target:
		return fixed.Clamp64(max(int64(v)-int64(step), int64(target)))
	}
	return v
}

// crawlTo accelerates from rest or brakes toward the station crawl speed in dir.
func crawlTo(speed int32, dir track.Direction, accel, brake int32) func(int32) int32 {
	target := speed * int32(dir)
	return func(v int32) int32 {
		along := v * int32(dir)
		if along > speed {
			return towards(v, target, brake)
		}
		return towards(v, target, accel)
	}
}
