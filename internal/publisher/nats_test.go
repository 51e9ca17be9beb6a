package publisher

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridesim/internal/ride"
	"ridesim/internal/sim"
	"ridesim/internal/track"
	"ridesim/internal/vehicle"
)

type msg struct {
	subject string
	data    []byte
}

type fakeConn struct {
	sent []msg
	err  error
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	c.sent = append(c.sent, msg{subject, data})
	return c.err
}

type countingMetrics struct {
	published, failed, observed int
}

func (m *countingMetrics) NATSPublishedInc()            { m.published++ }
func (m *countingMetrics) NATSPublishErrInc()           { m.failed++ }
func (m *countingMetrics) PublishObserve(time.Duration) { m.observed++ }
func (m *countingMetrics) NATSSetConnected(bool)        {}

func TestSubjectToken(t *testing.T) {
	tests := map[string]string{
		"merry go round": "merry_go_round",
		" a.b>c*d/e ":    "a_b_c_d_e",
		"":               "_",
		"departure":      "departure",
	}
	for in, want := range tests {
		assert.Equal(t, want, subjectToken(in), in)
	}
}

func TestPublishEventCollision(t *testing.T) {
	c := &fakeConn{}
	m := &countingMetrics{}
	p := newPublisher(c, "park.", false, m, zerolog.Nop())

	require.NoError(t, p.PublishEvent(sim.Event{
		Tick:    12,
		Kind:    sim.EventCollision,
		Ride:    3,
		Train:   1,
		Other:   2,
		Station: -1,
		Before:  [2]int32{4 << 16, 2 << 16},
		After:   [2]int32{2 << 16, 1 << 16},
		Detail:  "crash",
	}))
	require.Len(t, c.sent, 1)
	assert.Equal(t, "park.events.3.collision", c.sent[0].subject)

	var got map[string]any
	require.NoError(t, json.Unmarshal(c.sent[0].data, &got))
	assert.Equal(t, "collision", got["kind"])
	assert.EqualValues(t, 2, got["other"])
	assert.NotContains(t, got, "station")
	assert.Equal(t, []any{float64(4 << 16), float64(2 << 16)}, got["before"])
	assert.Equal(t, 1, m.published)
	assert.Equal(t, 1, m.observed)
}

func TestPublishEventSingleTrain(t *testing.T) {
	c := &fakeConn{}
	p := newPublisher(c, "", false, nil, zerolog.Nop())
	require.NoError(t, p.PublishEvent(sim.Event{Kind: sim.EventDeparture, Ride: 1, Other: ride.NoTrain, Station: 0}))
	assert.Equal(t, "park.events.1.departure", c.sent[0].subject)

	var got EventMessage
	require.NoError(t, json.Unmarshal(c.sent[0].data, &got))
	assert.Nil(t, got.Other)
	require.NotNil(t, got.Station)
	assert.Equal(t, 0, *got.Station)
}

func TestPublishPositions(t *testing.T) {
	c := &fakeConn{}
	p := newPublisher(c, "sim.rides", false, nil, zerolog.Nop())
	view := sim.TrainView{ID: 7, Ride: 2, Status: vehicle.StatusTravelling, Velocity: 3 << 15, CircuitsLeft: 1, Cars: 2}
	cars := []sim.CarPosition{
		{Train: 7, Index: 0, Segment: 4, Progress: 10, Snapshot: vehicle.Snapshot{Pos: track.Position{X: 100, Y: 20, Z: 8}, Yaw: 3}},
		{Train: 7, Index: 1, Segment: 3, Progress: 22, Snapshot: vehicle.Snapshot{Pos: track.Position{X: 80, Y: 20, Z: 8}, Yaw: 3}},
	}
	require.NoError(t, p.PublishPositions(40, view, cars))
	require.Len(t, c.sent, 1)
	assert.Equal(t, "sim.rides.positions.2.7", c.sent[0].subject)

	var got PositionMessage
	require.NoError(t, json.Unmarshal(c.sent[0].data, &got))
	assert.Equal(t, uint64(40), got.Tick)
	assert.Equal(t, vehicle.StatusTravelling.String(), got.Status)
	assert.Equal(t, 1.5, got.Velocity)
	require.Len(t, got.Cars, 2)
	assert.Equal(t, int32(3), got.Cars[1].Segment)
	assert.Equal(t, int32(80), got.Cars[1].X)
}

func TestPublishErrorCounts(t *testing.T) {
	c := &fakeConn{err: errors.New("no responders")}
	m := &countingMetrics{}
	p := newPublisher(c, "park", true, m, zerolog.Nop())
	err := p.PublishEvent(sim.Event{Kind: sim.EventCrashed, Ride: 1, Other: ride.NoTrain, Station: -1})
	assert.Error(t, err)
	assert.Equal(t, 1, m.failed)
	assert.Zero(t, m.published)
}
