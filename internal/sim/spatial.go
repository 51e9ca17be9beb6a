package sim

import (
	"ridesim/internal/track"
	"ridesim/internal/vehicle"
)

// bucketSize is the side of one spatial bucket in world units.
const bucketSize = 64

type bucketKey struct{ x, y int32 }

func bucketOf(p track.Position) bucketKey {
	return bucketKey{x: floorDiv(p.X, bucketSize), y: floorDiv(p.Y, bucketSize)}
}

// spatialIndex buckets cars by their committed position. It is rebuilt at the
// start of every tick and only the car being processed is relocated.
type spatialIndex struct {
	buckets map[bucketKey][]vehicle.Handle
}

func newSpatialIndex() *spatialIndex {
	return &spatialIndex{buckets: make(map[bucketKey][]vehicle.Handle)}
}

func (g *spatialIndex) clear() {
	for k, b := range g.buckets {
		g.buckets[k] = b[:0]
	}
}

func (g *spatialIndex) add(h vehicle.Handle, p track.Position) {
	k := bucketOf(p)
	g.buckets[k] = append(g.buckets[k], h)
}

// remove drops h from the bucket at p, keeping the order of the rest so
// queries stay reproducible.
func (g *spatialIndex) remove(h vehicle.Handle, p track.Position) {
	k := bucketOf(p)
	b := g.buckets[k]
	for i := range b {
		if b[i] == h {
			g.buckets[k] = append(b[:i], b[i+1:]...)
			return
		}
	}
}

func (g *spatialIndex) relocate(h vehicle.Handle, from, to track.Position) {
	if bucketOf(from) == bucketOf(to) {
		return
	}
	g.remove(h, from)
	g.add(h, to)
}

// near visits every car in buckets overlapping the square of radius r around p.
// Buckets are visited row by row so the visiting order is fixed.
func (g *spatialIndex) near(p track.Position, r int32, fn func(vehicle.Handle) bool) {
	lo := bucketOf(track.Position{X: p.X - r, Y: p.Y - r})
	hi := bucketOf(track.Position{X: p.X + r, Y: p.Y + r})
	for y := lo.y; y <= hi.y; y++ {
		for x := lo.x; x <= hi.x; x++ {
			for _, h := range g.buckets[bucketKey{x: x, y: y}] {
				if !fn(h) {
					return
				}
			}
		}
	}
}

func floorDiv(a, b int32) int32 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
