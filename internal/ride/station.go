package ride

import "ridesim/internal/track"

// NoTrain marks an empty berth.
const NoTrain int32 = -1

// Berth is the loading platform of one station and the train standing at it.
type Berth struct {
	Index        int
	Segments     []track.SegmentID
	Occupant     int32
	Synchronised bool

	// Release is the tick at which a synchronised departure was agreed, so
	// every sibling leaves on the same tick.
	Release uint64
}

// NewBerths creates one empty berth per station of l.
func NewBerths(l *track.Layout, cfg Config) []Berth {
	stations := l.Stations()
	out := make([]Berth, len(stations))
	for i, st := range stations {
		out[i] = Berth{
			Index:        i,
			Segments:     append([]track.SegmentID(nil), st.Segments...),
			Occupant:     NoTrain,
			Synchronised: cfg.Synchronised,
		}
	}
	return out
}

// Occupy claims the berth for train. It fails when another train holds it.
func (b *Berth) Occupy(train int32) bool {
	if b.Occupant != NoTrain && b.Occupant != train {
		return false
	}
	b.Occupant = train
	return true
}

// Vacate frees the berth if train holds it.
func (b *Berth) Vacate(train int32) {
	if b.Occupant == train {
		b.Occupant = NoTrain
	}
}

func (b *Berth) Empty() bool { return b.Occupant == NoTrain }

// Contains reports whether seg is one of the berth's platform pieces.
func (b *Berth) Contains(seg track.SegmentID) bool {
	for _, s := range b.Segments {
		if s == seg {
			return true
		}
	}
	return false
}

// End is the platform piece a forward train stops on.
func (b *Berth) End() track.SegmentID { return b.Segments[len(b.Segments)-1] }

// Start is the first platform piece.
func (b *Berth) Start() track.SegmentID { return b.Segments[0] }
