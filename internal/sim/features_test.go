package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridesim/internal/ride"
	"ridesim/internal/track"
	"ridesim/internal/vehicle"
)

func TestReverserSwapsBogies(t *testing.T) {
	e := newTestEngine(t, Options{})
	l := circuit(t,
		track.BeginStation, track.MiddleStation, track.EndStation, track.Flat,
		track.LeftReverser, track.Flat, track.Flat, track.Flat)
	cfg := ride.Config{Type: ride.TypeReverserCoaster, Mode: ride.ModeContinuousCircuit}
	require.NoError(t, e.AddRide(1, cfg, l))
	id, err := e.AddTrain(1, TrainSpec{Cars: 1, Segment: 4, Progress: 0, Velocity: 2 << 16})
	require.NoError(t, err)

	head, err := e.arena.Get(e.trains[id].Head())
	require.NoError(t, err)
	flips := 0
	was := head.Reversed
	for i := 0; i < 200; i++ {
		run(e, 1)
		if head.Reversed != was {
			flips++
			was = head.Reversed
		}
	}
	assert.Equal(t, 1, flips)
	assert.True(t, head.Reversed)

	v, err := e.TrainStatus(id)
	require.NoError(t, err)
	assert.Equal(t, vehicle.StatusTravelling, v.Status)

	pos, err := e.TrainPositions(id)
	require.NoError(t, err)
	ws, err := l.WorldStep(pos[0].Segment, pos[0].Progress)
	require.NoError(t, err)
	assert.Equal(t, (ws.Yaw+track.YawSteps/2)%track.YawSteps, pos[0].Yaw)
}

func TestBrakesFailureOverrunsPlatform(t *testing.T) {
	lb := ride.NewLogbook()
	e := newTestEngine(t, Options{Maintenance: lb})
	require.NoError(t, e.AddRide(1, coaster(ride.ModeContinuousCircuit), oval(t, 3, 4)))
	id, err := e.AddTrain(1, TrainSpec{Cars: 1, Segment: 15, Velocity: 6 << 16})
	require.NoError(t, err)
	lb.Report(1, ride.BreakdownBrakesFailure)

	arriving, overran := false, false
	var events []Event
	for i := 0; i < 3000 && !overran; i++ {
		events = append(events, run(e, 1)...)
		v, err := e.TrainStatus(id)
		require.NoError(t, err)
		switch {
		case v.Status == vehicle.StatusArriving:
			arriving = true
		case arriving && v.Status == vehicle.StatusTravelling:
			require.Equal(t, -1, v.Berth)
			require.Equal(t, 1, v.CircuitsLeft)
			overran = true
		}
	}
	require.True(t, arriving)
	require.True(t, overran)
	assert.Empty(t, ofKind(events, EventArrival))

	lb.Report(1, ride.BreakdownNone)
	var arrivals []Event
	for i := 0; i < 5000 && len(arrivals) == 0; i++ {
		arrivals = ofKind(run(e, 1), EventArrival)
	}
	require.Len(t, arrivals, 1)
	assert.Equal(t, 0, arrivals[0].Station)
}

func TestCableLiftWaitsThenPulls(t *testing.T) {
	e := newTestEngine(t, Options{})
	l := circuit(t,
		track.BeginStation, track.EndStation, track.FlatToUp25, track.CableLiftHill,
		track.Up25ToFlat, track.FlatToDown25, track.Down25, track.Down25ToFlat)
	require.NoError(t, e.AddRide(1, coaster(ride.ModeContinuousCircuit), l))
	id, err := e.AddTrain(1, TrainSpec{Cars: 1, Segment: 2, Progress: 28, Velocity: 3 << 16})
	require.NoError(t, err)

	var seen []vehicle.Status
	waited := 0
	for i := 0; i < 1000; i++ {
		run(e, 1)
		v, err := e.TrainStatus(id)
		require.NoError(t, err)
		switch v.Status {
		case vehicle.StatusWaitingForCableLift:
			waited++
			require.Equal(t, int32(0), v.Velocity)
		case vehicle.StatusTravellingCableLift:
			if v.StatusTicks > 0 {
				require.Equal(t, int32(3<<16), v.Velocity)
			}
		}
		if len(seen) == 0 || seen[len(seen)-1] != v.Status {
			seen = append(seen, v.Status)
		}
		if len(seen) == 4 {
			break
		}
	}
	assert.Equal(t, []vehicle.Status{
		vehicle.StatusTravelling,
		vehicle.StatusWaitingForCableLift,
		vehicle.StatusTravellingCableLift,
		vehicle.StatusTravelling,
	}, seen)
	assert.Equal(t, cableLiftWaitTicks, waited)
}

func TestPoweredLaunch(t *testing.T) {
	tests := []struct {
		name     string
		mode     ride.Mode
		circuits int
		passes   int
	}{
		{name: "launch", mode: ride.ModePoweredLaunch, circuits: 1, passes: 0},
		{name: "passthrough", mode: ride.ModePoweredLaunchPassthrough, circuits: 2, passes: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, Options{})
			cfg := ride.Config{Type: ride.TypeSteelCoaster, Mode: tt.mode, LaunchSpeed: 8 << 16}
			require.NoError(t, e.AddRide(1, cfg, oval(t, 3, 4)))
			id, err := e.AddTrain(1, TrainSpec{Cars: 1, Segment: 2, Progress: 31})
			require.NoError(t, err)

			var departed []Event
			for i := 0; i < 10 && len(departed) == 0; i++ {
				departed = ofKind(run(e, 1), EventDeparture)
			}
			require.Len(t, departed, 1)
			v, err := e.TrainStatus(id)
			require.NoError(t, err)
			assert.Equal(t, tt.circuits, v.CircuitsLeft)

			run(e, 1)
			v, err = e.TrainStatus(id)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, v.Velocity, int32(8<<16))

			passes, left := 0, v.CircuitsLeft
			var arrivals []Event
			for i := 0; i < 4000 && len(arrivals) == 0; i++ {
				arrivals = ofKind(run(e, 1), EventArrival)
				v, err = e.TrainStatus(id)
				require.NoError(t, err)
				if v.CircuitsLeft < left && v.Status == vehicle.StatusTravelling {
					passes++
				}
				left = v.CircuitsLeft
			}
			require.Len(t, arrivals, 1)
			assert.Equal(t, tt.passes, passes)
		})
	}
}

func TestRaceHasOneWinner(t *testing.T) {
	// the winner stays on the platform until the other kart is in
	e := newTestEngine(t, Options{Settings: Settings{UnloadTicks: 1000}})
	cfg := ride.Config{Type: ride.TypeGoKarts, Mode: ride.ModeRace}
	require.NoError(t, e.AddRide(1, cfg, oval(t, 3, 8)))
	behind, err := e.AddTrain(1, TrainSpec{Cars: 1, Segment: 20, Velocity: 3 << 16})
	require.NoError(t, err)
	ahead, err := e.AddTrain(1, TrainSpec{Cars: 1, Segment: 30, Velocity: 3 << 16})
	require.NoError(t, err)

	var events []Event
	for i := 0; i < 3000; i++ {
		events = append(events, run(e, 1)...)
		if e.trains[behind].CircuitsLeft == 0 && e.trains[ahead].CircuitsLeft == 0 {
			break
		}
	}
	require.Zero(t, e.trains[ahead].CircuitsLeft)
	require.Zero(t, e.trains[behind].CircuitsLeft)
	events = append(events, run(e, 50)...)

	won := ofKind(events, EventRaceWon)
	require.Len(t, won, 1)
	assert.Equal(t, ahead, won[0].Train)
	assert.Empty(t, ofKind(events, EventCrashed))
}

func TestTrackFeatureSounds(t *testing.T) {
	tests := []struct {
		name  string
		piece track.TrackType
		sound SoundID
		want  int
	}{
		{name: "splash", piece: track.Watersplash, sound: SoundSplash, want: 1},
		{name: "covered_splash", piece: track.WatersplashCovered, sound: SoundSplash, want: 0},
		{name: "doors", piece: track.Doors, sound: SoundDoors, want: 1},
		{name: "covered_doors", piece: track.DoorsCovered, sound: SoundDoors, want: 0},
		{name: "photo", piece: track.OnRidePhoto, sound: SoundPhoto, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			audio := &recordingAudio{}
			e := newTestEngine(t, Options{Audio: audio})
			l := circuit(t,
				track.BeginStation, track.MiddleStation, track.EndStation, track.Flat,
				tt.piece, track.Flat, track.Flat, track.Flat)
			require.NoError(t, e.AddRide(1, coaster(ride.ModeContinuousCircuit), l))
			id, err := e.AddTrain(1, TrainSpec{Cars: 1, Segment: 3, Velocity: 4 << 16})
			require.NoError(t, err)

			run(e, 80)
			pos, err := e.TrainPositions(id)
			require.NoError(t, err)
			require.Greater(t, pos[0].Segment, track.SegmentID(4))
			assert.Equal(t, tt.want, played(audio, id, ChannelEvent, tt.sound))
		})
	}
}

func TestBrakesSoundWhileSlowing(t *testing.T) {
	audio := &recordingAudio{}
	e := newTestEngine(t, Options{Audio: audio})
	l := circuit(t,
		track.BeginStation, track.MiddleStation, track.EndStation, track.Flat,
		track.Brakes, track.Flat, track.Flat, track.Flat)
	require.NoError(t, e.AddRide(1, coaster(ride.ModeContinuousCircuit), l))
	id, err := e.AddTrain(1, TrainSpec{Cars: 1, Segment: 4, Velocity: 8 << 16})
	require.NoError(t, err)

	run(e, 3)
	assert.Equal(t, 3, played(audio, id, ChannelEvent, SoundBrakes))
	assert.Empty(t, audio.stopped)
	assert.True(t, SoundBrakes.Looping())

	v, err := e.TrainStatus(id)
	require.NoError(t, err)
	assert.Less(t, v.Velocity, int32(8<<16))
}

func TestCrashSoundForBothTrains(t *testing.T) {
	audio := &recordingAudio{}
	e := newTestEngine(t, Options{Audio: audio})
	require.NoError(t, e.AddRide(1, coaster(ride.ModeContinuousCircuit), oval(t, 3, 8)))
	front, err := e.AddTrain(1, TrainSpec{Cars: 1, Segment: 6, Progress: 0, Velocity: 2 << 16})
	require.NoError(t, err)
	rear, err := e.AddTrain(1, TrainSpec{Cars: 1, Segment: 4, Progress: 0, Velocity: 4 << 16})
	require.NoError(t, err)

	var hits []Event
	for i := 0; i < 400 && len(hits) == 0; i++ {
		hits = ofKind(run(e, 1), EventCollision)
	}
	require.Len(t, hits, 1)
	run(e, 20)

	for _, id := range []int32{front, rear} {
		assert.Equal(t, 1, played(audio, id, ChannelEvent, SoundCrash), "train %d", id)
		assert.False(t, e.trains[id].CrashSoundPending, "train %d", id)
	}
}

func TestScreamLastsWhileFast(t *testing.T) {
	e := newTestEngine(t, Options{})
	require.NoError(t, e.AddRide(1, coaster(ride.ModeContinuousCircuit), oval(t, 3, 8)))
	id, err := e.AddTrain(1, TrainSpec{Cars: 1, Segment: 5, Velocity: 6 << 16})
	require.NoError(t, err)
	tc := contextOf(t, e, id)
	lead := tc.leader()

	lead.Snapshot.Pitch = track.PitchFlat
	assert.False(t, e.screaming(tc, screamSpeed))

	lead.Snapshot.Pitch = track.PitchDown60
	assert.Equal(t, SoundScream, e.eventSound(tc, screamSpeed))
	assert.True(t, tc.train.Screaming)

	lead.Snapshot.Pitch = track.PitchFlat
	assert.Equal(t, SoundScream, e.eventSound(tc, screamSpeed))

	assert.Equal(t, SoundNone, e.eventSound(tc, screamSpeed-1))
	assert.False(t, tc.train.Screaming)

	tc.train.Screaming = true
	tc.train.CrashSoundPending = true
	assert.Equal(t, SoundCrash, e.eventSound(tc, screamSpeed))
	assert.False(t, tc.train.Screaming)
	assert.False(t, tc.train.CrashSoundPending)
}

// played counts the times sound s started on channel ch of a train.
func played(a *recordingAudio, train int32, ch int, s SoundID) int {
	n := 0
	for _, p := range a.played {
		if p.Train == train && p.Channel == ch && p.Sound == s {
			n++
		}
	}
	return n
}
