package track

import "ridesim/internal/fixed"

// table is the step table of one variant in one of the four placement directions.
type table struct {
	steps   []MoveStep
	exit    Position // exit point relative to the tile corner
	exitDir uint8
}

var tables [trackTypeCount][4]table

func init() {
	for t := range descriptors {
		local, exit := localSteps(&descriptors[t])
		for dir := uint8(0); dir < 4; dir++ {
			tables[t][dir] = rotateTable(local, exit, &descriptors[t], dir)
		}
	}
}

type localStep struct {
	x, y, z int32
	yaw     int32
	pitch   Pitch
	bank    Bank
}

// localSteps generates the steps of a variant placed facing +x, with the entry
// point at (0, 16) of the entry tile.
func localSteps(d *Descriptor) ([]localStep, Position) {
	if d.Radius > 0 {
		return turnSteps(d)
	}
	n := int32(d.Tiles * TileSize)
	if n <= 0 {
		n = TileSize
	}
	s0, s1 := int32(slopeQuarter(d.EntryPitch)), int32(slopeQuarter(d.ExitPitch))
	steps := make([]localStep, n)
	for i := int32(0); i < n; i++ {
		steps[i] = localStep{
			x:     i,
			y:     TileSize / 2,
			z:     floorDiv(2*s0*i*n+(s1-s0)*i*i, 8*n),
			pitch: pitchFromSlope(int(2*s0*n+(s1-s0)*(2*i+1)), int(8*n)),
			bank:  halfBank(d, i, n),
		}
	}
	return steps, Position{X: n, Y: TileSize / 2, Z: n * (s0 + s1) / 8}
}

func turnSteps(d *Descriptor) ([]localStep, Position) {
	rad := int32(d.Radius*TileSize - TileSize/2)
	n := (rad*157 + 50) / 100
	turn := int32(d.Turn)
	steps := make([]localStep, n)
	for i := int32(0); i < n; i++ {
		theta := uint8(64 * i / n)
		x := (int64(rad)*int64(fixed.Sin(theta)) + fixed.Half) >> fixed.Shift
		c := (int64(rad)*int64(fixed.Cos(theta)) + fixed.Half) >> fixed.Shift
		steps[i] = localStep{
			x:    int32(x),
			y:    TileSize/2 + turn*(rad-int32(c)),
			yaw:  turn * ((int32(theta) + 4) / 8),
			bank: halfBank(d, i, n),
		}
	}
	return steps, Position{X: rad, Y: TileSize/2 + turn*rad}
}

func halfBank(d *Descriptor, i, n int32) Bank {
	if i < n/2 {
		return d.EntryBank
	}
	return d.ExitBank
}

// rotate turns a local offset about the centre of the entry tile.
func rotate(dir uint8, x, y int32) (int32, int32) {
	x -= TileSize / 2
	y -= TileSize / 2
	switch dir & 3 {
	case 1:
		x, y = -y, x
	case 2:
		x, y = -x, -y
	case 3:
		x, y = y, -x
	}
	return x + TileSize/2, y + TileSize/2
}

func rotateTable(local []localStep, exit Position, d *Descriptor, dir uint8) table {
	out := table{steps: make([]MoveStep, len(local))}
	for i, s := range local {
		x, y := rotate(dir, s.x, s.y)
		out.steps[i] = MoveStep{
			X:     int16(x),
			Y:     int16(y),
			Z:     int16(s.z),
			Yaw:   uint8((s.yaw + int32(dir)*yawPerQuart) & (YawSteps - 1)),
			Pitch: s.pitch,
			Bank:  s.bank,
		}
	}
	ex, ey := rotate(dir, exit.X, exit.Y)
	out.exit = Position{X: ex, Y: ey, Z: exit.Z}
	out.exitDir = uint8(int8(dir)+d.Turn) & 3
	return out
}

// entryOffset is where a piece placed in dir starts, relative to its tile corner.
func entryOffset(dir uint8) Position {
	x, y := rotate(dir, 0, TileSize/2)
	return Position{X: x, Y: y}
}

// Translation costs indexed by which axes change between two steps:
// bit 0 x, bit 1 y, bit 2 z. Horizontal base 8716, vertical 6554, combined
// with Pythagoras and rounded up.
var translationCost = [8]int32{0, HorizontalCost, HorizontalCost, 12327, 6554, 10905, 10905, 13961}

const (
	// HorizontalCost is the distance of one straight step along a tile axis.
	HorizontalCost = 8716

	yawChangeCost  = 369
	bankChangeCost = 369
)

// WorldStep is a move step resolved to world coordinates.
type WorldStep struct {
	Pos   Position
	Yaw   uint8
	Pitch Pitch
	Bank  Bank
}

// StepCost is the distance a car must spend to move from a to b. It is
// symmetric and never zero, so forward and backward walks consume the same
// budget for the same transition.
func StepCost(a, b WorldStep) int32 {
	idx := 0
	if a.Pos.X != b.Pos.X {
		idx |= 1
	}
	if a.Pos.Y != b.Pos.Y {
		idx |= 2
	}
	if a.Pos.Z != b.Pos.Z {
		idx |= 4
	}
	cost := translationCost[idx]
	if a.Yaw != b.Yaw {
		cost += yawChangeCost
	}
	if a.Bank != b.Bank {
		cost += bankChangeCost
	}
	if cost == 0 {
		cost = 1
	}
	return cost
}
