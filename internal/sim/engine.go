// Package sim advances ride vehicles one tick at a time: motion along track,
// the ride-cycle state machine, collisions, station synchronisation and the
// swing, spin and sound parameters derived from motion.
package sim

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"ridesim/internal/fixed"
	"ridesim/internal/ride"
	"ridesim/internal/track"
	"ridesim/internal/vehicle"
)

var (
	ErrUnknownTrain   = errors.New("sim: unknown train")
	ErrUnknownRide    = errors.New("sim: unknown ride")
	ErrTickInProgress = errors.New("sim: tick in progress")
	ErrPlacement      = errors.New("sim: train does not fit on track")
)

// Settings are the engine-wide tuning constants.
type Settings struct {
	// MaxVelocity bounds the magnitude of every train velocity, Q16.16.
	MaxVelocity int32
	// StallTicks is how long a moving train may make no progress before a
	// stalled-progress notification.
	StallTicks uint32
	// SyncTimeoutTicks releases a synchronised station that has waited this long.
	SyncTimeoutTicks uint32
	// SyncSearchSegments bounds the search for sibling stations along the track.
	SyncSearchSegments int
	// UnloadTicks is the time passengers take to leave a train.
	UnloadTicks uint32
	// DiscontinuityTicks is how many consecutive blocked ticks a geometry
	// mismatch is tolerated before the train derails.
	DiscontinuityTicks uint32
	Seed               uint64
}

func DefaultSettings() Settings {
	return Settings{
		MaxVelocity:        40 << 16,
		StallTicks:         1200,
		SyncTimeoutTicks:   600,
		SyncSearchSegments: 64,
		UnloadTicks:        40,
		DiscontinuityTicks: 3,
		Seed:               1,
	}
}

// Metrics receives engine counters.
type Metrics interface {
	Event(kind string)
}

// Options wires an Engine to its collaborators. Nil collaborators are skipped.
type Options struct {
	Log         zerolog.Logger
	Settings    Settings
	Manifest    ride.Manifest
	Maintenance ride.Maintenance
	Audio       AudioSink
	Render      RenderSink
	Viewport    Viewport
	Events      EventSink
	Surface     Surface
	Metrics     Metrics
}

type rideState struct {
	id       ride.ID
	cfg      ride.Config
	desc     *ride.Descriptor
	layout   *track.Layout
	berths   []ride.Berth
	trains   []int32
	mover    mover
	raceWon  bool
	broken   int32 // train stopped by a vehicle malfunction
	occupied map[track.SegmentID][]int32
}

// Engine owns every vehicle and advances them once per tick. It is not safe
// for concurrent use; Runner serialises access.
type Engine struct {
	log      zerolog.Logger
	settings Settings

	manifest ride.Manifest
	maint    ride.Maintenance
	audio    AudioSink
	render   RenderSink
	viewport Viewport
	sink     EventSink
	surface  Surface
	metrics  Metrics

	arena     *vehicle.Arena
	rides     map[ride.ID]*rideState
	rideOrder []ride.ID
	trains    map[int32]*vehicle.Train
	nextTrain int32

	grid     *spatialIndex
	contacts map[trainPair]struct{}
	rng      *fixed.Rand
	events   []Event
	frame    []CarFrame

	tick   uint64
	inTick bool
}

func NewEngine(opts Options) *Engine {
	s := opts.Settings
	def := DefaultSettings()
	if s.MaxVelocity <= 0 {
		s.MaxVelocity = def.MaxVelocity
	}
	if s.StallTicks == 0 {
		s.StallTicks = def.StallTicks
	}
	if s.SyncTimeoutTicks == 0 {
		s.SyncTimeoutTicks = def.SyncTimeoutTicks
	}
	if s.SyncSearchSegments <= 0 {
		s.SyncSearchSegments = def.SyncSearchSegments
	}
	if s.UnloadTicks == 0 {
		s.UnloadTicks = def.UnloadTicks
	}
	if s.DiscontinuityTicks == 0 {
		s.DiscontinuityTicks = def.DiscontinuityTicks
	}
	surface := opts.Surface
	if surface == nil {
		surface = OpenWater{}
	}
	return &Engine{
		log:      opts.Log,
		settings: s,
		manifest: opts.Manifest,
		maint:    opts.Maintenance,
		audio:    opts.Audio,
		render:   opts.Render,
		viewport: opts.Viewport,
		sink:     opts.Events,
		surface:  surface,
		metrics:  opts.Metrics,
		arena:    vehicle.NewArena(),
		rides:    make(map[ride.ID]*rideState),
		trains:   make(map[int32]*vehicle.Train),
		grid:     newSpatialIndex(),
		contacts: make(map[trainPair]struct{}),
		rng:      fixed.NewRand(s.Seed),
	}
}

// AddRide registers a ride with its layout. Every ride needs at least one
// station, which flat rides, boats and bumper cars use as their loading point.
func (e *Engine) AddRide(id ride.ID, cfg ride.Config, layout *track.Layout) error {
	if e.inTick {
		return ErrTickInProgress
	}
	if _, ok := e.rides[id]; ok {
		return fmt.Errorf("ride %d already registered", id)
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("ride %d: %w", id, err)
	}
	if layout == nil || len(layout.Stations()) == 0 {
		return fmt.Errorf("ride %d: layout has no station: %w", id, track.ErrNotFound)
	}
	rs := &rideState{
		id:       id,
		cfg:      cfg,
		desc:     cfg.Describe(),
		layout:   layout,
		berths:   ride.NewBerths(layout, cfg),
		broken:   ride.NoTrain,
		occupied: make(map[track.SegmentID][]int32),
	}
	rs.mover = moverFor(rs.desc.Strategy)
	e.rides[id] = rs
	e.rideOrder = append(e.rideOrder, id)
	sort.Slice(e.rideOrder, func(i, j int) bool { return e.rideOrder[i] < e.rideOrder[j] })
	e.log.Info().Int32("ride", int32(id)).Str("type", cfg.Type.String()).Str("mode", cfg.Mode.String()).
		Int("segments", layout.Len()).Msg("ride added")
	return nil
}

// RemoveRide demolishes a ride and frees its vehicles.
func (e *Engine) RemoveRide(id ride.ID) error {
	if e.inTick {
		return ErrTickInProgress
	}
	rs, ok := e.rides[id]
	if !ok {
		return fmt.Errorf("ride %d: %w", id, ErrUnknownRide)
	}
	for _, tid := range append([]int32(nil), rs.trains...) {
		if err := e.RemoveTrain(tid); err != nil {
			return err
		}
	}
	delete(e.rides, id)
	for i, r := range e.rideOrder {
		if r == id {
			e.rideOrder = append(e.rideOrder[:i], e.rideOrder[i+1:]...)
			break
		}
	}
	return nil
}

// TrainSpec describes a train to place on a ride.
type TrainSpec struct {
	Cars     int
	Segment  track.SegmentID
	Progress int
	Velocity int32
	Manifest []ride.ManifestKey
	// At places free-roaming vehicles; nil uses the ride's station.
	At *track.Position
}

// AddTrain builds a train with its head at spec.Segment/Progress and the other
// cars behind it. A train placed at rest on a platform starts in the station
// cycle; anything else starts travelling.
func (e *Engine) AddTrain(id ride.ID, spec TrainSpec) (int32, error) {
	if e.inTick {
		return 0, ErrTickInProgress
	}
	rs, ok := e.rides[id]
	if !ok {
		return 0, fmt.Errorf("ride %d: %w", id, ErrUnknownRide)
	}
	if spec.Cars <= 0 {
		spec.Cars = 1
	}
	t := &vehicle.Train{
		ID:          e.nextTrain,
		Ride:        id,
		Berth:       -1,
		Heading:     track.Forward,
		LastSegment: track.NoSegment,
	}
	places, err := e.placements(rs, spec)
	if err != nil {
		return 0, fmt.Errorf("ride %d: %w", id, err)
	}
	for i, p := range places {
		v := vehicle.Vehicle{Velocity: spec.Velocity, Segment: p.seg, Progress: p.progress, Free: p.free}
		if seg, err := rs.layout.Segment(p.seg); err == nil {
			v.Key = seg.Key()
		}
		if i < len(spec.Manifest) {
			v.Manifest = spec.Manifest[i]
		}
		if rs.desc.Strategy == ride.StrategyTrack {
			pose(&v, p.step)
		} else {
			v.Snapshot = vehicle.Snapshot{Pos: p.free, Yaw: p.step.Yaw}
			v.Heading = p.step.Yaw
		}
		t.Cars = append(t.Cars, e.arena.Alloc(v))
	}
	if err := t.AssignRoles(e.arena); err != nil {
		return 0, err
	}
	e.nextTrain++
	e.trains[t.ID] = t
	rs.trains = append(rs.trains, t.ID)
	e.initialStatus(rs, t, spec)
	e.refreshOccupancy(rs)
	rs.layout.UpdateBlocks(rs.owners)
	e.log.Debug().Int32("ride", int32(id)).Int32("train", t.ID).Int("cars", len(t.Cars)).
		Str("status", t.Status.String()).Msg("train added")
	return t.ID, nil
}

type placement struct {
	seg      track.SegmentID
	progress int
	step     track.WorldStep
	free     track.Position
}

func (e *Engine) placements(rs *rideState, spec TrainSpec) ([]placement, error) {
	l := rs.layout
	if rs.desc.Strategy != ride.StrategyTrack {
		b := &rs.berths[0]
		ws, err := l.WorldStep(b.Start(), 0)
		if err != nil {
			return nil, err
		}
		out := make([]placement, spec.Cars)
		for i := range out {
			free := ws.Pos
			if spec.At != nil {
				free = *spec.At
			}
			free.X += int32(i) * rs.desc.Footprint
			out[i] = placement{seg: b.Start(), step: ws, free: free}
		}
		return out, nil
	}
	c, err := cursorAt(l, spec.Segment, spec.Progress)
	if err != nil {
		return nil, err
	}
	spacing := rs.desc.CarSpacing
	if spacing <= 0 {
		spacing = int(rs.desc.Footprint) + 2
	}
	out := []placement{{seg: c.seg, progress: c.progress, step: c.step}}
	for len(out) < spec.Cars {
		for k := 0; k < spacing; k++ {
			prev, ok := stepBack(l, c)
			if !ok {
				return nil, fmt.Errorf("car %d behind segment %d: %w", len(out), spec.Segment, ErrPlacement)
			}
			c = prev
		}
		out = append(out, placement{seg: c.seg, progress: c.progress, step: c.step})
	}
	return out, nil
}

// stepBack moves one step backward ignoring brakes and junctions.
func stepBack(l *track.Layout, c cursor) (cursor, bool) {
	if c.progress > 0 {
		n, err := cursorAt(l, c.seg, c.progress-1)
		return n, err == nil
	}
	seg, err := l.Segment(c.seg)
	if err != nil || seg.Prev == track.NoSegment {
		return c, false
	}
	prev, err := l.Segment(seg.Prev)
	if err != nil {
		return c, false
	}
	n, err := cursorAt(l, prev.ID, prev.Steps()-1)
	return n, err == nil
}

func (e *Engine) initialStatus(rs *rideState, t *vehicle.Train, spec TrainSpec) {
	if rs.desc.Strategy != ride.StrategyTrack {
		t.Berth = 0
		if rs.berths[0].Occupy(t.ID) || rs.desc.Strategy == ride.StrategyBumper {
			t.SetStatus(vehicle.StatusWaitingForPassengers)
			return
		}
		t.SetStatus(vehicle.StatusMovingToEndOfStation)
		return
	}
	head, _ := e.arena.Get(t.Head())
	seg, err := rs.layout.Segment(head.Segment)
	if err != nil || seg.Station < 0 || spec.Velocity != 0 {
		t.SetStatus(vehicle.StatusTravelling)
		t.CircuitsLeft = rs.cfg.Circuits
		return
	}
	t.Berth = seg.Station
	b := &rs.berths[seg.Station]
	if head.Segment == b.End() && head.Progress == seg.Steps()-1 && b.Occupy(t.ID) {
		t.SetStatus(vehicle.StatusWaitingForPassengers)
		return
	}
	t.SetStatus(vehicle.StatusMovingToEndOfStation)
}

// RemoveTrain frees a train and its cars. Only allowed between ticks.
func (e *Engine) RemoveTrain(id int32) error {
	if e.inTick {
		return ErrTickInProgress
	}
	t, ok := e.trains[id]
	if !ok {
		return fmt.Errorf("train %d: %w", id, ErrUnknownTrain)
	}
	rs := e.rides[t.Ride]
	for _, h := range t.Cars {
		if v, err := e.arena.Get(h); err == nil {
			e.grid.remove(h, v.Snapshot.Pos)
		}
		if err := e.arena.Free(h); err != nil {
			return fmt.Errorf("train %d: %w", id, err)
		}
	}
	if rs != nil {
		if rs.broken == id {
			rs.broken = ride.NoTrain
		}
		for i := range rs.berths {
			rs.berths[i].Vacate(id)
		}
		for i, tid := range rs.trains {
			if tid == id {
				rs.trains = append(rs.trains[:i], rs.trains[i+1:]...)
				break
			}
		}
		e.refreshOccupancy(rs)
		rs.layout.UpdateBlocks(rs.owners)
	}
	for p := range e.contacts {
		if p.a == id || p.b == id {
			delete(e.contacts, p)
		}
	}
	delete(e.trains, id)
	return nil
}

// ReplaceLayout swaps in an edited track. Cars find their piece again by tile,
// element and type; a train with any car on a removed piece derails.
func (e *Engine) ReplaceLayout(id ride.ID, l *track.Layout) error {
	if e.inTick {
		return ErrTickInProgress
	}
	rs, ok := e.rides[id]
	if !ok {
		return fmt.Errorf("ride %d: %w", id, ErrUnknownRide)
	}
	if l == nil || len(l.Stations()) == 0 {
		return fmt.Errorf("ride %d: layout has no station: %w", id, track.ErrNotFound)
	}
	berths := ride.NewBerths(l, rs.cfg)
	for i := range berths {
		if i < len(rs.berths) {
			berths[i].Occupant = rs.berths[i].Occupant
		}
	}
	rs.layout = l
	rs.berths = berths
	for _, tid := range rs.trains {
		t := e.trains[tid]
		tc, err := e.context(rs, t)
		if err != nil {
			continue
		}
		if t.Berth >= len(berths) {
			t.Berth = -1
		}
		if rs.desc.Strategy != ride.StrategyTrack || t.Status == vehicle.StatusCrashing || t.Status.Terminal() {
			continue
		}
		lost := false
		for _, car := range tc.cars {
			sid, ok := l.Find(car.Key)
			if !ok {
				lost = true
				break
			}
			seg, _ := l.Segment(sid)
			p := car.Progress
			if p >= seg.Steps() {
				p = seg.Steps() - 1
			}
			car.Place(seg, p)
		}
		if lost {
			e.emit(trainEvent(EventDerailed, tc, "track removed under train"))
			e.startCrash(tc)
		}
	}
	e.refreshOccupancy(rs)
	l.UpdateBlocks(rs.owners)
	e.log.Info().Int32("ride", int32(id)).Int("segments", l.Len()).Msg("layout replaced")
	return nil
}

// context resolves a train's cars for one pass of the state machine.
func (e *Engine) context(rs *rideState, t *vehicle.Train) (*tickContext, error) {
	tc := &tickContext{tick: e.tick, ride: rs, train: t, enteredBerth: -1}
	for _, h := range t.Cars {
		v, err := e.arena.Get(h)
		if err != nil {
			return nil, fmt.Errorf("train %d: %w", t.ID, err)
		}
		tc.handles = append(tc.handles, h)
		tc.cars = append(tc.cars, v)
	}
	if len(tc.cars) == 0 {
		return nil, fmt.Errorf("train %d: %w", t.ID, vehicle.ErrBrokenChain)
	}
	return tc, nil
}

// owners lists the trains with a car on seg, for block brake sections.
func (rs *rideState) owners(seg track.SegmentID) []int32 { return rs.occupied[seg] }

func (e *Engine) refreshOccupancy(rs *rideState) {
	for k := range rs.occupied {
		delete(rs.occupied, k)
	}
	if rs.desc.Strategy != ride.StrategyTrack {
		return
	}
	for _, tid := range rs.trains {
		t := e.trains[tid]
		if t.Status == vehicle.StatusCrashing || t.Status.Terminal() {
			continue
		}
		for _, h := range t.Cars {
			v, err := e.arena.Get(h)
			if err != nil {
				continue
			}
			ids := rs.occupied[v.Segment]
			if len(ids) == 0 || ids[len(ids)-1] != tid {
				rs.occupied[v.Segment] = append(ids, tid)
			}
		}
	}
}

// Tick returns the last tick advanced.
func (e *Engine) Tick() uint64 { return e.tick }

// Events drains the notification queue.
func (e *Engine) Events() []Event {
	out := e.events
	e.events = nil
	return out
}
