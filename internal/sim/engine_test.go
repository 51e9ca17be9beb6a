package sim

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridesim/internal/ride"
	"ridesim/internal/track"
	"ridesim/internal/vehicle"
)

// circuit closes a flat loop whose first side is the given pieces, followed
// by straights of the same length and four right quarter turns.
func circuit(t *testing.T, first ...track.TrackType) *track.Layout {
	t.Helper()
	b := track.NewBuilder(track.Tile{}, 0, 0)
	for _, p := range first {
		b.Add(p)
	}
	for i := 0; i < 4; i++ {
		b.Add(track.RightQuarterTurn3)
		if i < 3 {
			b.AddN(track.Flat, len(first))
		}
	}
	l, err := b.Close()
	require.NoError(t, err)
	return l
}

// oval is a circuit with one station of stationLen pieces at its start.
func oval(t *testing.T, stationLen, side int) *track.Layout {
	t.Helper()
	first := []track.TrackType{track.BeginStation}
	for i := 0; i < stationLen-2; i++ {
		first = append(first, track.MiddleStation)
	}
	first = append(first, track.EndStation)
	for len(first) < side {
		first = append(first, track.Flat)
	}
	return circuit(t, first...)
}

func newTestEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	opts.Log = zerolog.Nop()
	return NewEngine(opts)
}

func coaster(mode ride.Mode) ride.Config {
	return ride.Config{Type: ride.TypeSteelCoaster, Mode: mode}
}

// run advances n ticks after the engine's current tick and returns the events.
func run(e *Engine, n int) []Event {
	var out []Event
	for i := 0; i < n; i++ {
		e.AdvanceAllTrains(e.Tick() + 1)
		out = append(out, e.Events()...)
	}
	return out
}

func ofKind(events []Event, k EventKind) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Kind == k {
			out = append(out, ev)
		}
	}
	return out
}

func contextOf(t *testing.T, e *Engine, id int32) *tickContext {
	t.Helper()
	tr, ok := e.trains[id]
	require.True(t, ok)
	tc, err := e.context(e.rides[tr.Ride], tr)
	require.NoError(t, err)
	return tc
}

func TestAddRideNeedsStation(t *testing.T) {
	e := newTestEngine(t, Options{})
	l, err := track.NewBuilder(track.Tile{}, 0, 0).AddN(track.Flat, 4).Build()
	require.NoError(t, err)
	err = e.AddRide(1, coaster(ride.ModeContinuousCircuit), l)
	require.ErrorIs(t, err, track.ErrNotFound)

	require.NoError(t, e.AddRide(1, coaster(ride.ModeContinuousCircuit), oval(t, 3, 4)))
	assert.Error(t, e.AddRide(1, coaster(ride.ModeContinuousCircuit), oval(t, 3, 4)))
	_, err = e.AddTrain(9, TrainSpec{Cars: 1})
	assert.ErrorIs(t, err, ErrUnknownRide)
}

func TestAddTrainStatus(t *testing.T) {
	e := newTestEngine(t, Options{})
	require.NoError(t, e.AddRide(1, coaster(ride.ModeContinuousCircuit), oval(t, 3, 8)))

	parked, err := e.AddTrain(1, TrainSpec{Cars: 1, Segment: 2, Progress: 31})
	require.NoError(t, err)
	moving, err := e.AddTrain(1, TrainSpec{Cars: 3, Segment: 6, Progress: 0, Velocity: 2 << 16})
	require.NoError(t, err)

	v, err := e.TrainStatus(parked)
	require.NoError(t, err)
	assert.Equal(t, vehicle.StatusWaitingForPassengers, v.Status)
	assert.Equal(t, 0, v.Berth)

	v, err = e.TrainStatus(moving)
	require.NoError(t, err)
	assert.Equal(t, vehicle.StatusTravelling, v.Status)
	assert.Equal(t, 3, v.Cars)
	assert.Equal(t, int32(2<<16), v.Velocity)

	_, err = e.TrainStatus(42)
	assert.ErrorIs(t, err, ErrUnknownTrain)
}

func TestAddTrainNoRoomBehind(t *testing.T) {
	e := newTestEngine(t, Options{})
	l, err := track.NewBuilder(track.Tile{}, 0, 0).
		Add(track.BeginStation).Add(track.EndStation).Add(track.Flat).Build()
	require.NoError(t, err)
	require.NoError(t, e.AddRide(1, coaster(ride.ModeShuttle), l))
	_, err = e.AddTrain(1, TrainSpec{Cars: 4, Segment: 0, Progress: 5})
	assert.ErrorIs(t, err, ErrPlacement)
}

func TestProgressStaysInBounds(t *testing.T) {
	e := newTestEngine(t, Options{})
	l := oval(t, 3, 4)
	require.NoError(t, e.AddRide(1, coaster(ride.ModeContinuousCircuit), l))
	id, err := e.AddTrain(1, TrainSpec{Cars: 3, Segment: 3, Progress: 31, Velocity: 5 << 16})
	require.NoError(t, err)

	for tick := uint64(1); tick <= 500; tick++ {
		e.AdvanceAllTrains(tick)
		cars, err := e.TrainPositions(id)
		require.NoError(t, err)
		for _, c := range cars {
			seg, err := l.Segment(c.Segment)
			require.NoError(t, err)
			require.GreaterOrEqual(t, c.Progress, 0, "tick %d car %d", tick, c.Index)
			require.Less(t, c.Progress, seg.Steps(), "tick %d car %d", tick, c.Index)
		}
		v, err := e.TrainStatus(id)
		require.NoError(t, err)
		require.NotEqual(t, vehicle.StatusCrashing, v.Status, "tick %d", tick)
		require.NotEqual(t, vehicle.StatusCrashed, v.Status, "tick %d", tick)
	}
	assert.Empty(t, ofKind(e.Events(), EventDerailed))
}

func TestQueriesAreIdempotent(t *testing.T) {
	e := newTestEngine(t, Options{})
	require.NoError(t, e.AddRide(1, coaster(ride.ModeContinuousCircuit), oval(t, 3, 4)))
	id, err := e.AddTrain(1, TrainSpec{Cars: 2, Segment: 3, Progress: 31, Velocity: 3 << 16})
	require.NoError(t, err)
	run(e, 20)

	s1, err := e.TrainStatus(id)
	require.NoError(t, err)
	p1, err := e.TrainPositions(id)
	require.NoError(t, err)
	s2, err := e.TrainStatus(id)
	require.NoError(t, err)
	p2, err := e.TrainPositions(id)
	require.NoError(t, err)
	assert.Equal(t, s1, s2)
	assert.Equal(t, p1, p2)
	assert.Equal(t, uint64(20), e.Tick())
}

func TestWalkIsReversible(t *testing.T) {
	for _, budget := range []int32{50000, 100000} {
		e := newTestEngine(t, Options{})
		require.NoError(t, e.AddRide(1, coaster(ride.ModeContinuousCircuit), oval(t, 3, 12)))
		id, err := e.AddTrain(1, TrainSpec{Cars: 3, Segment: 8, Progress: 10, Velocity: 3 << 16})
		require.NoError(t, err)

		start, err := e.TrainPositions(id)
		require.NoError(t, err)

		tc := contextOf(t, e, id)
		e.walkTrain(tc, budget)
		moved, err := e.TrainPositions(id)
		require.NoError(t, err)
		assert.Greater(t, moved[0].Progress, start[0].Progress, "budget %d", budget)

		tc = contextOf(t, e, id)
		tc.setVelocity(-3<<16, 0)
		e.walkTrain(tc, -budget)
		back, err := e.TrainPositions(id)
		require.NoError(t, err)
		for i := range start {
			assert.Equal(t, start[i].Segment, back[i].Segment, "budget %d car %d", budget, i)
			assert.Equal(t, start[i].Progress, back[i].Progress, "budget %d car %d", budget, i)
			assert.Equal(t, int32(0), tc.cars[i].Remaining, "budget %d car %d", budget, i)
		}
	}
}

func TestCreepNudge(t *testing.T) {
	e := newTestEngine(t, Options{})
	require.NoError(t, e.AddRide(1, coaster(ride.ModeContinuousCircuit), oval(t, 3, 8)))
	id, err := e.AddTrain(1, TrainSpec{Cars: 1, Segment: 5, Progress: 0, Velocity: 1})
	require.NoError(t, err)
	tc := contextOf(t, e, id)

	tc.setVelocity(0x4000, 0)
	assert.Equal(t, int32(396), e.acceleration(tc))

	tc.setVelocity(0x9000, 0)
	assert.Equal(t, int32(-10), e.acceleration(tc))

	tc.setVelocity(0, 0)
	assert.Equal(t, int32(0), e.acceleration(tc))
}

func TestDrag(t *testing.T) {
	assert.Equal(t, int32(0), drag(0, 0))
	assert.Equal(t, int32(1024*1024>>14), drag(4<<16, 1))
	assert.Equal(t, -int32(1024*1024>>14), drag(-4<<16, 1))
	assert.Equal(t, int32(3*(1024*1024)>>14), drag(4<<16, 3))
}

func TestMaxVelocityClamp(t *testing.T) {
	e := newTestEngine(t, Options{Settings: Settings{MaxVelocity: 2 << 16}})
	require.NoError(t, e.AddRide(1, coaster(ride.ModeContinuousCircuit), oval(t, 3, 8)))
	id, err := e.AddTrain(1, TrainSpec{Cars: 1, Segment: 5, Velocity: 9 << 16})
	require.NoError(t, err)
	run(e, 1)
	v, err := e.TrainStatus(id)
	require.NoError(t, err)
	assert.LessOrEqual(t, v.Velocity, int32(2<<16))
}

func TestRemoveTrainBetweenTicksOnly(t *testing.T) {
	e := newTestEngine(t, Options{})
	require.NoError(t, e.AddRide(1, coaster(ride.ModeContinuousCircuit), oval(t, 3, 4)))
	id, err := e.AddTrain(1, TrainSpec{Cars: 2, Segment: 3, Progress: 31, Velocity: 1 << 16})
	require.NoError(t, err)

	e.inTick = true
	assert.ErrorIs(t, e.RemoveTrain(id), ErrTickInProgress)
	e.inTick = false

	require.NoError(t, e.RemoveTrain(id))
	assert.Zero(t, e.arena.Len())
	assert.Empty(t, e.Trains())
	assert.ErrorIs(t, e.RemoveTrain(id), ErrUnknownTrain)
}

func TestReplaceLayoutKeepsTrains(t *testing.T) {
	e := newTestEngine(t, Options{})
	require.NoError(t, e.AddRide(1, coaster(ride.ModeContinuousCircuit), oval(t, 3, 8)))
	id, err := e.AddTrain(1, TrainSpec{Cars: 2, Segment: 6, Progress: 12, Velocity: 2 << 16})
	require.NoError(t, err)
	before, err := e.TrainPositions(id)
	require.NoError(t, err)

	l := oval(t, 3, 8)
	require.NoError(t, e.ReplaceLayout(1, l))
	got, err := e.Layout(1)
	require.NoError(t, err)
	assert.Same(t, l, got)

	after, err := e.TrainPositions(id)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Empty(t, ofKind(e.Events(), EventDerailed))
}

func TestReplaceLayoutDerailsOnRemovedPiece(t *testing.T) {
	e := newTestEngine(t, Options{})
	require.NoError(t, e.AddRide(1, coaster(ride.ModeContinuousCircuit), oval(t, 3, 8)))
	id, err := e.AddTrain(1, TrainSpec{Cars: 1, Segment: 6, Progress: 12, Velocity: 2 << 16})
	require.NoError(t, err)

	// a smaller loop has no piece on the tile the train stands on
	require.NoError(t, e.ReplaceLayout(1, oval(t, 3, 4)))
	v, err := e.TrainStatus(id)
	require.NoError(t, err)
	assert.Equal(t, vehicle.StatusCrashing, v.Status)
	assert.Len(t, ofKind(e.Events(), EventDerailed), 1)
}

func TestShuttleReversesAtTrackEnd(t *testing.T) {
	e := newTestEngine(t, Options{})
	l, err := track.NewBuilder(track.Tile{}, 0, 0).
		Add(track.BeginStation).Add(track.EndStation).AddN(track.Flat, 4).Build()
	require.NoError(t, err)
	require.NoError(t, e.AddRide(1, coaster(ride.ModeShuttle), l))
	id, err := e.AddTrain(1, TrainSpec{Cars: 1, Segment: 4, Progress: 0, Velocity: 2 << 16})
	require.NoError(t, err)

	var reversed bool
	for i := 0; i < 200 && !reversed; i++ {
		run(e, 1)
		reversed = e.trains[id].Reversals > 0
	}
	require.True(t, reversed)
	v, err := e.TrainStatus(id)
	require.NoError(t, err)
	assert.Less(t, v.Velocity, int32(0))
	assert.Equal(t, track.Backward, e.trains[id].Heading)
	assert.Empty(t, ofKind(e.Events(), EventDerailed))
}

func TestOpenTrackDerails(t *testing.T) {
	e := newTestEngine(t, Options{})
	l, err := track.NewBuilder(track.Tile{}, 0, 0).
		Add(track.BeginStation).Add(track.EndStation).AddN(track.Flat, 2).Build()
	require.NoError(t, err)
	require.NoError(t, e.AddRide(1, coaster(ride.ModeContinuousCircuit), l))
	id, err := e.AddTrain(1, TrainSpec{Cars: 1, Segment: 3, Progress: 0, Velocity: 3 << 16})
	require.NoError(t, err)

	events := run(e, 300)
	require.Len(t, ofKind(events, EventDerailed), 1)
	assert.Len(t, ofKind(events, EventCrashed), 1)
	v, err := e.TrainStatus(id)
	require.NoError(t, err)
	assert.Equal(t, vehicle.StatusCrashed, v.Status)
}

type countingMetrics struct{ kinds map[string]int }

func (m *countingMetrics) Event(kind string) { m.kinds[kind]++ }

func TestEventsReachSinkAndMetrics(t *testing.T) {
	m := &countingMetrics{kinds: map[string]int{}}
	var seen []Event
	e := newTestEngine(t, Options{
		Metrics: m,
		Events:  EventSinkFunc(func(ev Event) { seen = append(seen, ev) }),
	})
	require.NoError(t, e.AddRide(1, coaster(ride.ModeContinuousCircuit), oval(t, 3, 4)))
	_, err := e.AddTrain(1, TrainSpec{Cars: 1, Segment: 2, Progress: 31})
	require.NoError(t, err)

	events := run(e, 2)
	require.Len(t, ofKind(events, EventDeparture), 1)
	assert.Equal(t, events, seen)
	assert.Equal(t, 1, m.kinds["departure"])
	assert.Equal(t, "continuous_circuit", events[0].Detail)
	assert.Equal(t, uint64(2), events[0].Tick)
}
