package track

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no track exists at the requested location.
	ErrNotFound = errors.New("track: no segment at location")
	// ErrDiscontinuity is returned when two pieces do not join.
	ErrDiscontinuity = errors.New("track: discontinuity")
)

// SegmentID is a stable index into a Layout.
type SegmentID int32

const NoSegment SegmentID = -1

// Obstruction explains why NextSegment did not return a segment.
type Obstruction uint8

const (
	Clear Obstruction = iota
	DeadEnd
	BlockClosed
	JunctionBlocked
)

func (o Obstruction) String() string {
	switch o {
	case Clear:
		return "clear"
	case DeadEnd:
		return "dead_end"
	case BlockClosed:
		return "block_closed"
	case JunctionBlocked:
		return "junction_blocked"
	}
	return fmt.Sprintf("obstruction(%d)", o)
}

// Key identifies a segment independently of the layout it lives in, so vehicles
// can find their piece again after the track is rebuilt.
type Key struct {
	Tile    Tile
	Element int
	Type    TrackType
}

// Segment is one placed piece of track.
type Segment struct {
	ID        SegmentID
	Tile      Tile
	Element   int
	Type      TrackType
	Direction uint8
	BaseZ     int32
	Next      SegmentID
	Prev      SegmentID
	Station   int // index into Layout.Stations, -1 when not a station piece
	Chain     bool
	Speed     int32 // brake or booster target speed
}

func (s *Segment) Key() Key { return Key{Tile: s.Tile, Element: s.Element, Type: s.Type} }

// Origin is the world position of the segment's tile corner at its base height.
func (s *Segment) Origin() Position {
	return Position{X: s.Tile.X * TileSize, Y: s.Tile.Y * TileSize, Z: s.BaseZ}
}

// Steps returns the number of move steps in the segment.
func (s *Segment) Steps() int { return len(tables[s.Type][s.Direction&3].steps) }

func (s *Segment) Describe() *Descriptor { return s.Type.Describe() }

// Station is a run of consecutive station pieces, in forward order.
type Station struct {
	Index    int
	Segments []SegmentID
}

// End is the last station piece a forward-moving train reaches.
func (s Station) End() SegmentID { return s.Segments[len(s.Segments)-1] }

// Start is the first station piece.
func (s Station) Start() SegmentID { return s.Segments[0] }

// Layout is the path index of one ride. It is immutable apart from brake and
// closure state; an edited ride gets a new Layout.
type Layout struct {
	segments []Segment
	byKey    map[tileElement]SegmentID
	stations []Station
	circuit  bool

	closed        []bool
	sectionOwners map[SegmentID][]int32
}

type tileElement struct {
	tile    Tile
	element int
}

// Len returns the number of segments.
func (l *Layout) Len() int { return len(l.segments) }

// Circuit reports whether the track is a closed loop.
func (l *Layout) Circuit() bool { return l.circuit }

// Segment returns the segment with the given id.
func (l *Layout) Segment(id SegmentID) (*Segment, error) {
	if id < 0 || int(id) >= len(l.segments) {
		return nil, fmt.Errorf("segment %d: %w", id, ErrNotFound)
	}
	return &l.segments[id], nil
}

// Lookup finds the segment placed as element on tile.
func (l *Layout) Lookup(tile Tile, element int) (*Segment, error) {
	id, ok := l.byKey[tileElement{tile: tile, element: element}]
	if !ok {
		return nil, fmt.Errorf("tile %s element %d: %w", tile, element, ErrNotFound)
	}
	return &l.segments[id], nil
}

// Find resolves a key, also checking the piece type still matches.
func (l *Layout) Find(k Key) (SegmentID, bool) {
	id, ok := l.byKey[tileElement{tile: k.Tile, element: k.Element}]
	if !ok || l.segments[id].Type != k.Type {
		return NoSegment, false
	}
	return id, true
}

// MoveStepAt returns step progress of segment id.
func (l *Layout) MoveStepAt(id SegmentID, progress int) (MoveStep, error) {
	seg, err := l.Segment(id)
	if err != nil {
		return MoveStep{}, err
	}
	steps := tables[seg.Type][seg.Direction&3].steps
	if progress < 0 || progress >= len(steps) {
		return MoveStep{}, fmt.Errorf("segment %d progress %d of %d: %w", id, progress, len(steps), ErrNotFound)
	}
	return steps[progress], nil
}

// WorldStep resolves step progress of segment id to world coordinates.
func (l *Layout) WorldStep(id SegmentID, progress int) (WorldStep, error) {
	m, err := l.MoveStepAt(id, progress)
	if err != nil {
		return WorldStep{}, err
	}
	seg := &l.segments[id]
	return WorldStep{Pos: seg.Origin().Add(m.Offset()), Yaw: m.Yaw, Pitch: m.Pitch, Bank: m.Bank}, nil
}

// NextSegment returns the segment a car enters when leaving id in dir. The
// train id lets block brakes ignore the train that is itself leaving them.
func (l *Layout) NextSegment(id SegmentID, dir Direction, train int32) (SegmentID, Obstruction) {
	seg, err := l.Segment(id)
	if err != nil {
		return NoSegment, DeadEnd
	}
	next := seg.Next
	if dir == Backward {
		next = seg.Prev
	}
	if next == NoSegment {
		return NoSegment, DeadEnd
	}
	if l.closed[next] {
		return NoSegment, JunctionBlocked
	}
	if dir == Forward && seg.Describe().Has(FlagBlockBrake) && l.blockClosed(id, train) {
		return NoSegment, BlockClosed
	}
	return next, Clear
}

// Continuous checks that entering to from from in dir keeps pitch, bank and
// position continuous. A mismatch means the track was edited under a train.
func (l *Layout) Continuous(from, to SegmentID, dir Direction) bool {
	a, err := l.Segment(from)
	if err != nil {
		return false
	}
	b, err := l.Segment(to)
	if err != nil {
		return false
	}
	da, db := a.Describe(), b.Describe()
	var last, first WorldStep
	if dir == Forward {
		if da.ExitPitch != db.EntryPitch || da.ExitBank != db.EntryBank {
			return false
		}
		last, _ = l.WorldStep(from, a.Steps()-1)
		first, _ = l.WorldStep(to, 0)
	} else {
		if da.EntryPitch != db.ExitPitch || da.EntryBank != db.ExitBank {
			return false
		}
		last, _ = l.WorldStep(from, 0)
		first, _ = l.WorldStep(to, b.Steps()-1)
	}
	d := last.Pos.Sub(first.Pos)
	return abs32(d.X) <= 2 && abs32(d.Y) <= 2 && abs32(d.Z) <= 4
}

// Stations returns the stations in placement order.
func (l *Layout) Stations() []Station { return l.stations }

// SetClosed closes or opens a segment to traffic, as a junction set against
// the train would.
func (l *Layout) SetClosed(id SegmentID, closed bool) error {
	if _, err := l.Segment(id); err != nil {
		return err
	}
	l.closed[id] = closed
	return nil
}

// UpdateBlocks recomputes which trains occupy the section ahead of every block
// brake. owners lists the trains with a car on a segment.
func (l *Layout) UpdateBlocks(owners func(SegmentID) []int32) {
	for k := range l.sectionOwners {
		delete(l.sectionOwners, k)
	}
	for i := range l.segments {
		if !l.segments[i].Describe().Has(FlagBlockBrake) {
			continue
		}
		id := SegmentID(i)
		l.sectionOwners[id] = l.SectionOwners(id, owners)
	}
}

// SectionOwners walks the block section after from up to and including the
// next block boundary and returns every train found in it.
func (l *Layout) SectionOwners(from SegmentID, owners func(SegmentID) []int32) []int32 {
	var found []int32
	add := func(ids []int32) {
		for _, t := range ids {
			dup := false
			for _, f := range found {
				if f == t {
					dup = true
					break
				}
			}
			if !dup {
				found = append(found, t)
			}
		}
	}
	seg := &l.segments[from]
	inStation := false
	for n, id := 0, seg.Next; id != NoSegment && id != from && n < len(l.segments); n++ {
		s := &l.segments[id]
		isStation := s.Station >= 0
		if inStation && !isStation {
			break
		}
		add(owners(id))
		if s.Describe().Has(FlagBlockBrake) {
			break
		}
		inStation = isStation
		id = s.Next
	}
	return found
}

func (l *Layout) blockClosed(id SegmentID, train int32) bool {
	for _, t := range l.sectionOwners[id] {
		if t != train {
			return true
		}
	}
	return false
}

// BlockClosed reports whether the block brake id currently holds train.
func (l *Layout) BlockClosed(id SegmentID, train int32) bool { return l.blockClosed(id, train) }

// Walk returns up to limit segment ids reached from id in dir, not including id.
func (l *Layout) Walk(id SegmentID, dir Direction, limit int) []SegmentID {
	var out []SegmentID
	cur := id
	for len(out) < limit {
		seg, err := l.Segment(cur)
		if err != nil {
			break
		}
		next := seg.Next
		if dir == Backward {
			next = seg.Prev
		}
		if next == NoSegment || next == id {
			break
		}
		out = append(out, next)
		cur = next
	}
	return out
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
