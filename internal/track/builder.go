package track

import "fmt"

// Option adjusts a piece as it is placed.
type Option func(*Segment)

// WithChain puts a chain lift on the piece.
func WithChain() Option { return func(s *Segment) { s.Chain = true } }

// WithSpeed sets the target speed of brakes, block brakes and boosters.
func WithSpeed(v int32) Option { return func(s *Segment) { s.Speed = v } }

// Builder places pieces one after another, the way a track designer does,
// starting from a tile, height and facing direction.
type Builder struct {
	startTile Tile
	startZ    int32
	startDir  uint8

	tile Tile
	z    int32
	dir  uint8

	segs     []Segment
	elements map[Tile]int
	err      error
}

func NewBuilder(start Tile, z int32, dir uint8) *Builder {
	return &Builder{
		startTile: start,
		startZ:    z,
		startDir:  dir & 3,
		tile:      start,
		z:         z,
		dir:       dir & 3,
		elements:  make(map[Tile]int),
	}
}

// Add appends a piece at the cursor and moves the cursor to its exit.
func (b *Builder) Add(t TrackType, opts ...Option) *Builder {
	if b.err != nil {
		return b
	}
	if !t.Valid() {
		b.err = fmt.Errorf("piece %d: invalid track type %d", len(b.segs), t)
		return b
	}
	seg := Segment{
		ID:        SegmentID(len(b.segs)),
		Tile:      b.tile,
		Element:   b.elements[b.tile],
		Type:      t,
		Direction: b.dir,
		BaseZ:     b.z,
		Next:      NoSegment,
		Prev:      NoSegment,
		Station:   -1,
	}
	for _, o := range opts {
		o(&seg)
	}
	b.elements[b.tile]++
	b.segs = append(b.segs, seg)

	tab := &tables[t][b.dir]
	exit := seg.Origin().Add(tab.exit)
	corner := exit.Sub(entryOffset(tab.exitDir))
	if corner.X%TileSize != 0 || corner.Y%TileSize != 0 {
		b.err = fmt.Errorf("piece %d (%s): exit %v off tile grid: %w", seg.ID, t, exit, ErrDiscontinuity)
		return b
	}
	b.tile = Tile{X: corner.X / TileSize, Y: corner.Y / TileSize}
	b.z = exit.Z
	b.dir = tab.exitDir
	return b
}

// AddN appends the same piece n times.
func (b *Builder) AddN(t TrackType, n int, opts ...Option) *Builder {
	for i := 0; i < n; i++ {
		b.Add(t, opts...)
	}
	return b
}

// Cursor returns where the next piece would be placed.
func (b *Builder) Cursor() (Tile, int32, uint8) { return b.tile, b.z, b.dir }

// Build finishes an open-ended layout, such as a shuttle.
func (b *Builder) Build() (*Layout, error) {
	return b.finish(false)
}

// Close finishes a circuit. The cursor must be back at the start.
func (b *Builder) Close() (*Layout, error) {
	if b.err == nil && (b.tile != b.startTile || b.z != b.startZ || b.dir != b.startDir) {
		return nil, fmt.Errorf("circuit ends at %s z=%d dir=%d, started at %s z=%d dir=%d: %w",
			b.tile, b.z, b.dir, b.startTile, b.startZ, b.startDir, ErrDiscontinuity)
	}
	return b.finish(true)
}

func (b *Builder) finish(circuit bool) (*Layout, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.segs) == 0 {
		return nil, fmt.Errorf("empty layout: %w", ErrNotFound)
	}
	segs := make([]Segment, len(b.segs))
	copy(segs, b.segs)
	n := len(segs)
	for i := range segs {
		if i+1 < n {
			segs[i].Next = SegmentID(i + 1)
		}
		if i > 0 {
			segs[i].Prev = SegmentID(i - 1)
		}
	}
	if circuit {
		segs[n-1].Next = 0
		segs[0].Prev = SegmentID(n - 1)
	}
	l := &Layout{
		segments:      segs,
		byKey:         make(map[tileElement]SegmentID, n),
		circuit:       circuit,
		closed:        make([]bool, n),
		sectionOwners: make(map[SegmentID][]int32),
	}
	for i := range segs {
		l.byKey[tileElement{tile: segs[i].Tile, element: segs[i].Element}] = segs[i].ID
	}
	l.indexStations()
	return l, nil
}

// indexStations groups consecutive station pieces. On a circuit the scan starts
// after a non-station piece so a platform spanning the seam stays whole.
func (l *Layout) indexStations() {
	n := len(l.segments)
	start := 0
	if l.circuit {
		for i := 0; i < n; i++ {
			if !l.segments[i].Describe().Has(FlagStation) {
				start = (i + 1) % n
				break
			}
		}
	}
	var cur *Station
	for k := 0; k < n; k++ {
		i := (start + k) % n
		if !l.circuit {
			i = k
		}
		seg := &l.segments[i]
		if !seg.Describe().Has(FlagStation) {
			cur = nil
			continue
		}
		if cur == nil {
			l.stations = append(l.stations, Station{Index: len(l.stations)})
			cur = &l.stations[len(l.stations)-1]
		}
		cur.Segments = append(cur.Segments, seg.ID)
		seg.Station = cur.Index
	}
}
