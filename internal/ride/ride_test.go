package ride

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridesim/internal/track"
)

func TestWaitForSatisfied(t *testing.T) {
	tests := []struct {
		name       string
		w          WaitFor
		passengers int
		capacity   int
		want       bool
	}{
		{"none empty", WaitForNone, 0, 8, true},
		{"any empty", WaitForAny, 0, 8, false},
		{"any one", WaitForAny, 1, 8, true},
		{"half short", WaitForHalf, 3, 8, false},
		{"half met", WaitForHalf, 4, 8, true},
		{"three quarter", WaitForThreeQuarter, 6, 8, true},
		{"full short", WaitForFull, 7, 8, false},
		{"no seats", WaitForFull, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.w.Satisfied(tt.passengers, tt.capacity))
		})
	}
}

func TestConfigValidate(t *testing.T) {
	ok := Config{Type: TypeSteelCoaster, Mode: ModeContinuousCircuit}.WithDefaults()
	require.NoError(t, ok.Validate())

	bad := ok
	bad.Mode = ModeDodgems
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	launch := ok
	launch.Mode = ModePoweredLaunch
	assert.ErrorIs(t, launch.Validate(), ErrInvalidConfig)
	launch.LaunchSpeed = 10 << 16
	assert.NoError(t, launch.Validate())

	waits := ok
	waits.MinWait, waits.MaxWait = 100, 50
	assert.ErrorIs(t, waits.Validate(), ErrInvalidConfig)
}

func TestParseNames(t *testing.T) {
	ty, err := ParseType("Dodgems")
	require.NoError(t, err)
	assert.Equal(t, TypeDodgems, ty)
	m, err := ParseMode("continuous_circuit_block_sectioned")
	require.NoError(t, err)
	assert.True(t, m.BlockSectioned())
	_, err = ParseMode("teleport")
	assert.Error(t, err)
}

func TestBerthOccupancy(t *testing.T) {
	l, err := track.NewBuilder(track.Tile{}, 0, 0).
		Add(track.BeginStation).Add(track.EndStation).
		AddN(track.Flat, 2).
		Build()
	require.NoError(t, err)
	berths := NewBerths(l, Config{Synchronised: true})
	require.Len(t, berths, 1)
	b := &berths[0]
	assert.True(t, b.Empty())
	assert.True(t, b.Synchronised)
	assert.True(t, b.Occupy(3))
	assert.False(t, b.Occupy(4))
	assert.True(t, b.Occupy(3))
	b.Vacate(4)
	assert.Equal(t, int32(3), b.Occupant)
	b.Vacate(3)
	assert.True(t, b.Empty())
	assert.True(t, b.Contains(1))
	assert.False(t, b.Contains(2))
	assert.Equal(t, track.SegmentID(1), b.End())
}

func TestLogbook(t *testing.T) {
	l := NewLogbook()
	assert.Equal(t, BreakdownNone, l.Pending(1))
	l.Report(1, BreakdownDoorsStuckOpen)
	assert.True(t, l.Pending(1).HoldsStation())
	l.Report(1, BreakdownNone)
	assert.Equal(t, BreakdownNone, l.Pending(1))
	l.MarkStalled(1, 0)
	l.MarkCollided(1, 0)
	l.MarkCollided(1, 2)
	assert.Equal(t, 1, l.Stalled(1))
	assert.Equal(t, 2, l.Collided(1))
	assert.False(t, BreakdownVehicleMalfunction.HoldsStation())
}
