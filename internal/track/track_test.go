package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// oval builds a flat circuit: a station of stationLen pieces, then straights
// and four right quarter turns.
func oval(t *testing.T, stationLen, side int) *Layout {
	t.Helper()
	b := NewBuilder(Tile{X: 0, Y: 0}, 0, 0)
	b.Add(BeginStation)
	b.AddN(MiddleStation, stationLen-2)
	b.Add(EndStation)
	b.AddN(Flat, side-stationLen)
	for i := 0; i < 4; i++ {
		b.Add(RightQuarterTurn3)
		if i < 3 {
			b.AddN(Flat, side)
		}
	}
	l, err := b.Close()
	require.NoError(t, err)
	return l
}

func TestBuilderClosesCircuit(t *testing.T) {
	l := oval(t, 3, 4)
	assert.True(t, l.Circuit())
	assert.Equal(t, 4+4*1+3*4, l.Len())
	for i := 0; i < l.Len(); i++ {
		seg, err := l.Segment(SegmentID(i))
		require.NoError(t, err)
		assert.True(t, l.Continuous(seg.ID, seg.Next, Forward), "piece %d (%s) -> %d", i, seg.Type, seg.Next)
		assert.True(t, l.Continuous(seg.ID, seg.Prev, Backward), "piece %d back", i)
	}
}

func TestBuilderRejectsOpenCircuit(t *testing.T) {
	_, err := NewBuilder(Tile{}, 0, 0).Add(Flat).Add(Flat).Close()
	require.ErrorIs(t, err, ErrDiscontinuity)
}

func TestHillReturnsToGround(t *testing.T) {
	b := NewBuilder(Tile{}, 0, 0).
		Add(FlatToUp25, WithChain()).Add(Up25, WithChain()).Add(Up25ToFlat)
	_, z, _ := b.Cursor()
	assert.Equal(t, int32(32), z)
	b.Add(FlatToDown25).Add(Down25).Add(Down25ToFlat)
	_, z, _ = b.Cursor()
	assert.Equal(t, int32(0), z)
	l, err := b.Build()
	require.NoError(t, err)
	assert.True(t, l.segments[0].Chain)
	for i := 0; i+1 < l.Len(); i++ {
		assert.True(t, l.Continuous(SegmentID(i), SegmentID(i+1), Forward), "piece %d", i)
	}
}

func TestStepTables(t *testing.T) {
	assert.Equal(t, 32, Flat.Steps())
	assert.Equal(t, 25, RightQuarterTurn1.Steps())
	assert.Equal(t, 126, LeftQuarterTurn3.Steps())

	step := tables[Up25][0].steps[10]
	assert.Equal(t, PitchUp25, step.Pitch)
	assert.Equal(t, int16(5), step.Z)

	first := tables[FlatToUp25][0].steps[0]
	last := tables[FlatToUp25][0].steps[31]
	assert.Equal(t, PitchFlat, first.Pitch)
	assert.Equal(t, PitchUp25, last.Pitch)

	turn := tables[RightQuarterTurn3][0].steps
	assert.Equal(t, uint8(0), turn[0].Yaw)
	assert.Equal(t, uint8(8), turn[len(turn)-1].Yaw)
	left := tables[LeftQuarterTurn3][0].steps
	assert.Equal(t, uint8(YawSteps-8), left[len(left)-1].Yaw)

	assert.Equal(t, uint8(16), tables[Flat][2].steps[0].Yaw)
}

func TestMoveStepAtBounds(t *testing.T) {
	l := oval(t, 3, 4)
	_, err := l.MoveStepAt(0, 0)
	require.NoError(t, err)
	_, err = l.MoveStepAt(0, 32)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = l.MoveStepAt(SegmentID(l.Len()), 0)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = l.Lookup(Tile{X: 40, Y: 40}, 0)
	assert.ErrorIs(t, err, ErrNotFound)

	seg, err := l.Lookup(Tile{X: 1, Y: 0}, 0)
	require.NoError(t, err)
	assert.Equal(t, MiddleStation, seg.Type)
	id, ok := l.Find(seg.Key())
	assert.True(t, ok)
	assert.Equal(t, seg.ID, id)
	_, ok = l.Find(Key{Tile: seg.Tile, Element: 0, Type: Flat})
	assert.False(t, ok)
}

func TestNextSegmentDeadEndAndJunction(t *testing.T) {
	l, err := NewBuilder(Tile{}, 0, 0).AddN(Flat, 3).Build()
	require.NoError(t, err)

	next, obs := l.NextSegment(2, Forward, 0)
	assert.Equal(t, NoSegment, next)
	assert.Equal(t, DeadEnd, obs)
	next, obs = l.NextSegment(0, Backward, 0)
	assert.Equal(t, DeadEnd, obs)

	next, obs = l.NextSegment(0, Forward, 0)
	assert.Equal(t, SegmentID(1), next)
	assert.Equal(t, Clear, obs)

	require.NoError(t, l.SetClosed(1, true))
	_, obs = l.NextSegment(0, Forward, 0)
	assert.Equal(t, JunctionBlocked, obs)
}

func TestBlockBrakeClosesForOtherTrains(t *testing.T) {
	l, err := NewBuilder(Tile{}, 0, 0).
		Add(BlockBrakes).AddN(Flat, 2).Add(BlockBrakes).Add(Flat).Build()
	require.NoError(t, err)

	owners := map[SegmentID][]int32{2: {7}}
	l.UpdateBlocks(func(id SegmentID) []int32 { return owners[id] })

	_, obs := l.NextSegment(0, Forward, 1)
	assert.Equal(t, BlockClosed, obs)
	_, obs = l.NextSegment(0, Forward, 7)
	assert.Equal(t, Clear, obs, "a train never blocks itself")
	_, obs = l.NextSegment(3, Forward, 1)
	assert.Equal(t, Clear, obs)

	owners = map[SegmentID][]int32{4: {7}}
	l.UpdateBlocks(func(id SegmentID) []int32 { return owners[id] })
	_, obs = l.NextSegment(0, Forward, 1)
	assert.Equal(t, Clear, obs, "train beyond the next block brake is in another section")
}

func TestStationsGroupAcrossSeam(t *testing.T) {
	l, err := NewBuilder(Tile{}, 0, 0).
		Add(MiddleStation).Add(EndStation).AddN(Flat, 2).
		Add(RightQuarterTurn1).AddN(Flat, 4).
		Add(RightQuarterTurn1).AddN(Flat, 5).
		Add(RightQuarterTurn1).AddN(Flat, 4).
		Add(RightQuarterTurn1).
		Add(BeginStation).
		Close()
	require.NoError(t, err)
	require.Len(t, l.Stations(), 1)
	st := l.Stations()[0]
	assert.Len(t, st.Segments, 3)
	end, _ := l.Segment(st.End())
	assert.Equal(t, EndStation, end.Type)
	start, _ := l.Segment(st.Start())
	assert.Equal(t, BeginStation, start.Type)
}

func TestStepCost(t *testing.T) {
	a := WorldStep{Pos: Position{X: 1}}
	b := WorldStep{Pos: Position{X: 2}}
	assert.Equal(t, int32(8716), StepCost(a, b))
	assert.Equal(t, StepCost(a, b), StepCost(b, a))
	c := WorldStep{Pos: Position{X: 2, Y: 1, Z: 1}, Yaw: 1}
	assert.Equal(t, int32(13961+369), StepCost(a, c))
	assert.Equal(t, int32(1), StepCost(a, a))
}

func TestCoveredVariantsSuppressSound(t *testing.T) {
	assert.True(t, WatersplashCovered.SuppressesSound())
	assert.True(t, DoorsCovered.Describe().Has(FlagDoors))
	assert.False(t, Watersplash.SuppressesSound())
	assert.Equal(t, 16, LeftReverser.ReverserPoint())
}

func TestParseTrackType(t *testing.T) {
	tt, err := ParseTrackType("block_brakes")
	require.NoError(t, err)
	assert.Equal(t, BlockBrakes, tt)
	_, err = ParseTrackType("loop")
	assert.Error(t, err)
}

func TestWalk(t *testing.T) {
	l := oval(t, 3, 4)
	ahead := l.Walk(0, Forward, 5)
	assert.Equal(t, []SegmentID{1, 2, 3, 4, 5}, ahead)
	behind := l.Walk(0, Backward, 2)
	assert.Equal(t, []SegmentID{SegmentID(l.Len() - 1), SegmentID(l.Len() - 2)}, behind)
	assert.Len(t, l.Walk(0, Forward, 1000), l.Len()-1)
}
