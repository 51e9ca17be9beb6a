package sim

import (
	"fmt"

	"ridesim/internal/fixed"
	"ridesim/internal/ride"
	"ridesim/internal/track"
	"ridesim/internal/vehicle"
)

// SoundID names a ride sound.
type SoundID uint8

const (
	SoundNone SoundID = iota
	SoundRumble
	SoundLiftChain
	SoundBoatWater
	SoundBumperMotor
	SoundScream
	SoundSplash
	SoundDoors
	SoundCrash
	SoundBrakes
	SoundPhoto

	soundCount
)

var soundNames = [soundCount]string{
	"none", "rumble", "lift_chain", "boat_water", "bumper_motor", "scream", "splash", "doors", "crash",
	"brakes", "photo",
}

func (s SoundID) String() string {
	if s < soundCount {
		return soundNames[s]
	}
	return fmt.Sprintf("sound(%d)", s)
}

// Looping sounds play continuously until stopped; the rest are one-shots.
func (s SoundID) Looping() bool {
	switch s {
	case SoundRumble, SoundLiftChain, SoundBoatWater, SoundBumperMotor, SoundScream, SoundBrakes:
		return true
	}
	return false
}

// Each train has two sound channels.
const (
	ChannelAmbient = 0 // motion: rumble, lift chain, water, motor
	ChannelEvent   = 1 // screams, brakes, splashes, doors, photos, crashes
)

// SoundParams is one channel update handed to the mixer.
type SoundParams struct {
	Train     int32
	Channel   int
	Sound     SoundID
	Volume    uint8
	Pan       int8
	Frequency uint32
}

// AudioSink is the mixer. Play starts a sound or updates the one already
// playing on the channel; Stop silences the channel.
type AudioSink interface {
	Play(SoundParams)
	Stop(train int32, channel int)
}

// Viewport projects world positions to the screen for panning.
type Viewport interface {
	Project(p track.Position) (x, y int32, visible bool)
	Size() (w, h int32)
}

const (
	baseFrequency  = 11025
	frequencySlope = 200
	screamSpeed    = 5 << 16
	audibleSpeed   = 1 << 16
)

// sound picks the two channel sounds of a train from this tick's motion and
// outcome and hands them to the mixer.
func (e *Engine) sound(tc *tickContext) {
	if e.audio == nil {
		return
	}
	t := tc.train
	pan, visible := e.pan(tc.cars[0].Snapshot.Pos)
	speed := fixed.Abs(tc.velocity())
	freq := uint32(baseFrequency + (speed>>fixed.Shift)*frequencySlope)
	vol := uint8(min(speed>>14, 255))
	if !visible {
		vol /= 4
	}

	a := e.ambientSound(tc, speed)
	e.channel(t, ChannelAmbient, SoundParams{Train: t.ID, Channel: ChannelAmbient, Sound: a, Volume: vol, Pan: pan, Frequency: freq})

	b := e.eventSound(tc, speed)
	bvol := uint8(255)
	if !visible {
		bvol = 64
	}
	e.channel(t, ChannelEvent, SoundParams{Train: t.ID, Channel: ChannelEvent, Sound: b, Volume: bvol, Pan: pan, Frequency: baseFrequency})
}

func (e *Engine) ambientSound(tc *tickContext, speed int32) SoundID {
	switch tc.train.Status {
	case vehicle.StatusCrashing, vehicle.StatusCrashed:
		return SoundNone
	case vehicle.StatusTravellingBoat:
		return SoundBoatWater
	case vehicle.StatusTravellingBumper:
		return SoundBumperMotor
	}
	if tc.ride.desc.Strategy != ride.StrategyTrack {
		return SoundNone
	}
	if tc.outcome.Has(OnLiftHill) {
		return SoundLiftChain
	}
	if speed > audibleSpeed {
		return SoundRumble
	}
	return SoundNone
}

func (e *Engine) eventSound(tc *tickContext, speed int32) SoundID {
	t := tc.train
	if t.CrashSoundPending {
		t.CrashSoundPending = false
		t.Screaming = false
		return SoundCrash
	}
	t.Screaming = e.screaming(tc, speed)
	switch {
	case tc.outcome.Has(Splash):
		return SoundSplash
	case tc.outcome.Has(Doors):
		return SoundDoors
	case tc.outcome.Has(PassedPhoto):
		return SoundPhoto
	case tc.outcome.Has(OnBrakes):
		return SoundBrakes
	case t.Screaming:
		return SoundScream
	}
	return SoundNone
}

// screaming starts when a loaded train goes fast down a steep drop and lasts
// while it keeps that speed.
func (e *Engine) screaming(tc *tickContext, speed int32) bool {
	t := tc.train
	if t.Status != vehicle.StatusTravelling || speed < screamSpeed {
		return false
	}
	if t.Screaming {
		return true
	}
	lead := tc.leader()
	if !lead.Snapshot.Pitch.Descending() || !lead.Snapshot.Pitch.Steep() {
		return false
	}
	p, _ := e.load(tc)
	return p > 0
}

// channel plays p on ch, stopping a looping sound that is no longer wanted.
func (e *Engine) channel(t *vehicle.Train, ch int, p SoundParams) {
	prev := SoundID(t.Channels[ch])
	t.Channels[ch] = uint8(p.Sound)
	if p.Sound == SoundNone {
		if prev.Looping() {
			e.audio.Stop(t.ID, ch)
		}
		return
	}
	if prev != p.Sound && prev.Looping() {
		e.audio.Stop(t.ID, ch)
	}
	e.audio.Play(p)
}

// pan places a position left to right on the screen, -128 to 127.
func (e *Engine) pan(p track.Position) (int8, bool) {
	if e.viewport == nil {
		return 0, true
	}
	x, _, visible := e.viewport.Project(p)
	w, _ := e.viewport.Size()
	if w <= 0 {
		return 0, visible
	}
	return int8(fixed.Clamp(x*256/w-128, -128, 127)), visible
}
