package audio

import (
	"math"

	"github.com/gopxl/beep"

	"ridesim/internal/sim"
)

type wave uint8

const (
	waveSine wave = iota
	waveSquare
	waveSaw
	waveNoise
)

func waveOf(s sim.SoundID) wave {
	switch s {
	case sim.SoundLiftChain, sim.SoundDoors:
		return waveSquare
	case sim.SoundBumperMotor, sim.SoundScream:
		return waveSaw
	case sim.SoundBoatWater, sim.SoundSplash, sim.SoundCrash, sim.SoundBrakes:
		return waveNoise
	}
	return waveSine
}

// oscillator is an endless tone whose frequency may change between buffers.
type oscillator struct {
	wave  wave
	freq  float64
	phase float64
	rate  beep.SampleRate
	seed  uint32
}

func (o *oscillator) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		var val float64
		switch o.wave {
		case waveSine:
			val = math.Sin(2 * math.Pi * o.phase)
		case waveSquare:
			if o.phase < 0.5 {
				val = 1
			} else {
				val = -1
			}
		case waveSaw:
			val = 2 * (o.phase - 0.5)
		case waveNoise:
			o.seed ^= o.seed << 13
			o.seed ^= o.seed >> 17
			o.seed ^= o.seed << 5
			val = float64(o.seed)/float64(math.MaxUint32)*2 - 1
		}
		samples[i][0] = val
		samples[i][1] = val

		o.phase += o.freq / float64(o.rate)
		o.phase -= math.Floor(o.phase)
	}
	return len(samples), true
}

func (o *oscillator) Err() error { return nil }
