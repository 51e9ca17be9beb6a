package sim

import (
	"ridesim/internal/ride"
	"ridesim/internal/track"
	"ridesim/internal/vehicle"
)

// CarFrame is what a renderer needs to draw one car for a tick.
type CarFrame struct {
	Ride   ride.ID
	Train  int32
	Index  int
	Status vehicle.Status
	Pos    track.Position
	Yaw    uint8
	Pitch  track.Pitch
	Bank   track.Bank
	Sprite uint8
	Swing  uint8
	Spin   uint8
}

// RenderSink receives every car's committed pose once per tick. The slice is
// reused by the next tick; sinks that keep it must copy.
type RenderSink interface {
	Frame(tick uint64, cars []CarFrame)
}

func (e *Engine) publishFrame() {
	if e.render == nil {
		return
	}
	e.frame = e.frame[:0]
	for _, rid := range e.rideOrder {
		for _, tid := range e.rides[rid].trains {
			t := e.trains[tid]
			for i, h := range t.Cars {
				v, err := e.arena.Get(h)
				if err != nil {
					continue
				}
				s := v.Snapshot
				e.frame = append(e.frame, CarFrame{
					Ride:   rid,
					Train:  tid,
					Index:  i,
					Status: t.Status,
					Pos:    s.Pos,
					Yaw:    s.Yaw,
					Pitch:  s.Pitch,
					Bank:   s.Bank,
					Sprite: s.Sprite,
					Swing:  s.Swing,
					Spin:   s.Spin,
				})
			}
		}
	}
	e.render.Frame(e.tick, e.frame)
}
