package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridesim/internal/ride"
	"ridesim/internal/track"
)

func loop(first ...Element) []Element {
	out := append([]Element(nil), first...)
	for i := 0; i < 4; i++ {
		out = append(out, Element{Type: "right_quarter_turn_3"})
		if i < 3 {
			for range first {
				out = append(out, Element{Type: "flat"})
			}
		}
	}
	return out
}

func TestBuildLayoutCircuit(t *testing.T) {
	elems := loop(
		Element{Type: "begin_station"},
		Element{Type: "end_station"},
		Element{Type: "flat", Chain: true},
		Element{Type: " block_brakes ", Speed: 2 << 16},
	)
	l, err := BuildLayout(Origin{Circuit: true}, elems)
	require.NoError(t, err)
	assert.True(t, l.Circuit())
	assert.Equal(t, len(elems), l.Len())
	require.Len(t, l.Stations(), 1)

	seg, err := l.Segment(2)
	require.NoError(t, err)
	assert.True(t, seg.Chain)
	seg, err = l.Segment(3)
	require.NoError(t, err)
	assert.Equal(t, track.BlockBrakes, seg.Type)
	assert.Equal(t, int32(2<<16), seg.Speed)
}

func TestBuildLayoutOpen(t *testing.T) {
	l, err := BuildLayout(Origin{}, []Element{
		{Type: "begin_station"}, {Type: "end_station"}, {Type: "flat"}, {Type: "flat_to_up25"},
	})
	require.NoError(t, err)
	assert.False(t, l.Circuit())
	assert.Equal(t, 4, l.Len())
}

func TestBuildLayoutErrors(t *testing.T) {
	_, err := BuildLayout(Origin{}, []Element{{Type: "flat"}, {Type: "loop_the_loop"}})
	assert.ErrorContains(t, err, "element 1")

	_, err = BuildLayout(Origin{Circuit: true}, []Element{{Type: "begin_station"}, {Type: "flat"}})
	assert.ErrorIs(t, err, track.ErrDiscontinuity)

	_, err = BuildLayout(Origin{}, nil)
	assert.ErrorIs(t, err, track.ErrNotFound)
}

func TestRideRowConfig(t *testing.T) {
	cfg, err := rideRow{
		typ:     "Wooden_Coaster",
		mode:    "continuous_circuit",
		waitFor: "half",
		minWait: 10,
		maxWait: 60,
		synced:  true,
	}.config()
	require.NoError(t, err)
	assert.Equal(t, ride.TypeWoodenCoaster, cfg.Type)
	assert.Equal(t, ride.ModeContinuousCircuit, cfg.Mode)
	assert.Equal(t, ride.WaitForHalf, cfg.WaitFor)
	assert.Equal(t, uint32(10), cfg.MinWait)
	assert.Equal(t, uint32(60), cfg.MaxWait)
	assert.True(t, cfg.Synchronised)
	assert.Equal(t, 1, cfg.Circuits)
	assert.Equal(t, int32(3<<16), cfg.LiftSpeed)
}

func TestRideRowConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		row  rideRow
	}{
		{"unknown type", rideRow{typ: "log_ride", mode: "continuous_circuit"}},
		{"unknown mode", rideRow{typ: "steel_coaster", mode: "sideways"}},
		{"unknown wait", rideRow{typ: "steel_coaster", mode: "continuous_circuit", waitFor: "most"}},
		{"negative wait", rideRow{typ: "steel_coaster", mode: "continuous_circuit", minWait: -1}},
		{"unsupported mode", rideRow{typ: "merry_go_round", mode: "continuous_circuit"}},
		{"launch without speed", rideRow{typ: "steel_coaster", mode: "powered_launch"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.row.config()
			assert.Error(t, err)
		})
	}
}

func TestParseWaitFor(t *testing.T) {
	for name, want := range waitForNames {
		got, err := parseWaitFor(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	got, err := parseWaitFor(" Three_Quarter ")
	require.NoError(t, err)
	assert.Equal(t, ride.WaitForThreeQuarter, got)
}
