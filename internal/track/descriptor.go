package track

import "fmt"

// TrackType identifies a segment variant. Each variant carries its geometry and
// physical constants in a Descriptor.
type TrackType uint8

const (
	Flat TrackType = iota
	EndStation
	BeginStation
	MiddleStation
	Up25
	Up60
	FlatToUp25
	Up25ToUp60
	Up60ToUp25
	Up25ToFlat
	Down25
	Down60
	FlatToDown25
	Down25ToDown60
	Down60ToDown25
	Down25ToFlat
	LeftQuarterTurn1
	RightQuarterTurn1
	LeftQuarterTurn3
	RightQuarterTurn3
	FlatToLeftBank
	FlatToRightBank
	LeftBankToFlat
	RightBankToFlat
	LeftBank
	RightBank
	BankedLeftQuarterTurn3
	BankedRightQuarterTurn3
	Brakes
	BlockBrakes
	Booster
	LeftReverser
	RightReverser
	CableLiftHill
	Watersplash
	OnRidePhoto
	Doors
	FlatCovered
	Up25Covered
	Down25Covered
	LeftQuarterTurn3Covered
	RightQuarterTurn3Covered
	WatersplashCovered
	DoorsCovered

	trackTypeCount
)

// Flag marks the features of a segment variant.
type Flag uint32

const (
	FlagStation Flag = 1 << iota
	FlagBlockBrake
	FlagBrakes
	FlagBooster
	FlagReverser
	FlagCovered
	FlagSplash
	FlagDoors
	FlagCableLift
	FlagPhoto
)

// Descriptor is the payload of a TrackType: geometry used to generate the step
// table plus the constants the physics and animation code read per segment.
type Descriptor struct {
	Name string

	Tiles  int  // straight length in tiles
	Radius int  // turn radius in tiles; 0 for straight pieces
	Turn   int8 // +1 right, -1 left

	EntryPitch, ExitPitch Pitch
	EntryBank, ExitBank   Bank

	Flags Flag

	// Lateral and Vertical scale the G-force estimate; positive Lateral pushes
	// riders to the right.
	Lateral  int32
	Vertical int32
	// SwingAmount bounds the swing of suspended cars on this piece.
	SwingAmount uint8
	// SpinDirection biases free-spinning cars: +1 clockwise, -1 anticlockwise.
	SpinDirection int8
}

// Has reports whether all of f are set.
func (d *Descriptor) Has(f Flag) bool { return d.Flags&f == f }

var descriptors = [trackTypeCount]Descriptor{
	Flat:          {Name: "flat", Tiles: 1},
	EndStation:    {Name: "end_station", Tiles: 1, Flags: FlagStation},
	BeginStation:  {Name: "begin_station", Tiles: 1, Flags: FlagStation},
	MiddleStation: {Name: "middle_station", Tiles: 1, Flags: FlagStation},

	Up25:           {Name: "up25", Tiles: 1, EntryPitch: PitchUp25, ExitPitch: PitchUp25},
	Up60:           {Name: "up60", Tiles: 1, EntryPitch: PitchUp60, ExitPitch: PitchUp60},
	FlatToUp25:     {Name: "flat_to_up25", Tiles: 1, ExitPitch: PitchUp25, Vertical: 40},
	Up25ToUp60:     {Name: "up25_to_up60", Tiles: 1, EntryPitch: PitchUp25, ExitPitch: PitchUp60, Vertical: 60},
	Up60ToUp25:     {Name: "up60_to_up25", Tiles: 1, EntryPitch: PitchUp60, ExitPitch: PitchUp25, Vertical: -60},
	Up25ToFlat:     {Name: "up25_to_flat", Tiles: 1, EntryPitch: PitchUp25, Vertical: -40},
	Down25:         {Name: "down25", Tiles: 1, EntryPitch: PitchDown25, ExitPitch: PitchDown25},
	Down60:         {Name: "down60", Tiles: 1, EntryPitch: PitchDown60, ExitPitch: PitchDown60},
	FlatToDown25:   {Name: "flat_to_down25", Tiles: 1, ExitPitch: PitchDown25, Vertical: -40},
	Down25ToDown60: {Name: "down25_to_down60", Tiles: 1, EntryPitch: PitchDown25, ExitPitch: PitchDown60, Vertical: -60},
	Down60ToDown25: {Name: "down60_to_down25", Tiles: 1, EntryPitch: PitchDown60, ExitPitch: PitchDown25, Vertical: 60},
	Down25ToFlat:   {Name: "down25_to_flat", Tiles: 1, EntryPitch: PitchDown25, Vertical: 40},

	LeftQuarterTurn1:  {Name: "left_quarter_turn_1", Radius: 1, Turn: -1, Lateral: -90, SwingAmount: 6, SpinDirection: -1},
	RightQuarterTurn1: {Name: "right_quarter_turn_1", Radius: 1, Turn: 1, Lateral: 90, SwingAmount: 6, SpinDirection: 1},
	LeftQuarterTurn3:  {Name: "left_quarter_turn_3", Radius: 3, Turn: -1, Lateral: -60, SwingAmount: 4, SpinDirection: -1},
	RightQuarterTurn3: {Name: "right_quarter_turn_3", Radius: 3, Turn: 1, Lateral: 60, SwingAmount: 4, SpinDirection: 1},

	FlatToLeftBank:          {Name: "flat_to_left_bank", Tiles: 1, ExitBank: BankLeft},
	FlatToRightBank:         {Name: "flat_to_right_bank", Tiles: 1, ExitBank: BankRight},
	LeftBankToFlat:          {Name: "left_bank_to_flat", Tiles: 1, EntryBank: BankLeft},
	RightBankToFlat:         {Name: "right_bank_to_flat", Tiles: 1, EntryBank: BankRight},
	LeftBank:                {Name: "left_bank", Tiles: 1, EntryBank: BankLeft, ExitBank: BankLeft},
	RightBank:               {Name: "right_bank", Tiles: 1, EntryBank: BankRight, ExitBank: BankRight},
	BankedLeftQuarterTurn3:  {Name: "banked_left_quarter_turn_3", Radius: 3, Turn: -1, EntryBank: BankLeft, ExitBank: BankLeft, Lateral: -30, Vertical: 30, SwingAmount: 2, SpinDirection: -1},
	BankedRightQuarterTurn3: {Name: "banked_right_quarter_turn_3", Radius: 3, Turn: 1, EntryBank: BankRight, ExitBank: BankRight, Lateral: 30, Vertical: 30, SwingAmount: 2, SpinDirection: 1},

	Brakes:        {Name: "brakes", Tiles: 1, Flags: FlagBrakes},
	BlockBrakes:   {Name: "block_brakes", Tiles: 1, Flags: FlagBlockBrake},
	Booster:       {Name: "booster", Tiles: 1, Flags: FlagBooster},
	LeftReverser:  {Name: "left_reverser", Tiles: 1, Flags: FlagReverser, SpinDirection: -1},
	RightReverser: {Name: "right_reverser", Tiles: 1, Flags: FlagReverser, SpinDirection: 1},
	CableLiftHill: {Name: "cable_lift_hill", Tiles: 1, EntryPitch: PitchUp25, ExitPitch: PitchUp25, Flags: FlagCableLift},
	Watersplash:   {Name: "watersplash", Tiles: 1, Flags: FlagSplash},
	OnRidePhoto:   {Name: "on_ride_photo", Tiles: 1, Flags: FlagPhoto},
	Doors:         {Name: "doors", Tiles: 1, Flags: FlagDoors},

	FlatCovered:              {Name: "flat_covered", Tiles: 1, Flags: FlagCovered},
	Up25Covered:              {Name: "up25_covered", Tiles: 1, EntryPitch: PitchUp25, ExitPitch: PitchUp25, Flags: FlagCovered},
	Down25Covered:            {Name: "down25_covered", Tiles: 1, EntryPitch: PitchDown25, ExitPitch: PitchDown25, Flags: FlagCovered},
	LeftQuarterTurn3Covered:  {Name: "left_quarter_turn_3_covered", Radius: 3, Turn: -1, Lateral: -60, SwingAmount: 4, SpinDirection: -1, Flags: FlagCovered},
	RightQuarterTurn3Covered: {Name: "right_quarter_turn_3_covered", Radius: 3, Turn: 1, Lateral: 60, SwingAmount: 4, SpinDirection: 1, Flags: FlagCovered},
	WatersplashCovered:       {Name: "watersplash_covered", Tiles: 1, Flags: FlagSplash | FlagCovered},
	DoorsCovered:             {Name: "doors_covered", Tiles: 1, Flags: FlagDoors | FlagCovered},
}

// Describe returns the payload of t.
func (t TrackType) Describe() *Descriptor {
	if t >= trackTypeCount {
		return &Descriptor{Name: "invalid"}
	}
	return &descriptors[t]
}

func (t TrackType) Valid() bool { return t < trackTypeCount }

func (t TrackType) String() string {
	if t < trackTypeCount {
		return descriptors[t].Name
	}
	return fmt.Sprintf("track(%d)", t)
}

// ParseTrackType resolves a descriptor name as stored in layouts.
func ParseTrackType(name string) (TrackType, error) {
	for i := range descriptors {
		if descriptors[i].Name == name {
			return TrackType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown track type %q", name)
}

// Steps returns the step count of the variant.
func (t TrackType) Steps() int {
	if t >= trackTypeCount {
		return 0
	}
	return len(tables[t][0].steps)
}

// ReverserPoint is the progress at which a reverser swaps a car's bogies.
func (t TrackType) ReverserPoint() int {
	return t.Steps() / 2
}

// SuppressesSound reports covered variants, which mute splash and door triggers.
func (t TrackType) SuppressesSound() bool {
	return t.Describe().Has(FlagCovered)
}
