package audio

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridesim/internal/sim"
)

func stream(m *Mixer, n int) [][2]float64 {
	buf := make([][2]float64, n)
	m.mixer.Stream(buf)
	return buf
}

func peak(buf [][2]float64, ch int) float64 {
	var p float64
	for _, s := range buf {
		p = math.Max(p, math.Abs(s[ch]))
	}
	return p
}

func TestPlayRetunesLoopingVoice(t *testing.T) {
	m := NewMixer(1, zerolog.Nop())
	p := sim.SoundParams{Train: 1, Channel: sim.ChannelAmbient, Sound: sim.SoundRumble, Volume: 255, Frequency: 22050}
	m.Play(p)
	v := m.voices[key{1, sim.ChannelAmbient}]
	require.NotNil(t, v)
	assert.InDelta(t, 220, v.osc.freq, 1e-9)

	p.Frequency = 11025
	p.Volume = 0
	m.Play(p)
	assert.Same(t, v, m.voices[key{1, sim.ChannelAmbient}])
	assert.InDelta(t, 110, v.osc.freq, 1e-9)
	assert.True(t, v.vol.Silent)
	assert.Equal(t, 1, m.mixer.Len())
}

func TestPanHardLeft(t *testing.T) {
	m := NewMixer(1, zerolog.Nop())
	m.Play(sim.SoundParams{Train: 2, Sound: sim.SoundRumble, Volume: 255, Pan: -128, Frequency: 44100})
	buf := stream(m, 1024)
	assert.Greater(t, peak(buf, 0), 0.1)
	assert.InDelta(t, 0, peak(buf, 1), 1e-9)
}

func TestStopSilencesChannel(t *testing.T) {
	m := NewMixer(1, zerolog.Nop())
	m.Play(sim.SoundParams{Train: 3, Sound: sim.SoundLiftChain, Volume: 200, Frequency: 11025})
	m.Play(sim.SoundParams{Train: 3, Channel: sim.ChannelEvent, Sound: sim.SoundScream, Volume: 200, Frequency: 11025})
	assert.Equal(t, 2, m.Voices())

	m.Stop(3, sim.ChannelAmbient)
	m.Stop(3, sim.ChannelAmbient)
	assert.Equal(t, 1, m.Voices())
	stream(m, 64)
	assert.Equal(t, 1, m.mixer.Len())

	m.Play(sim.SoundParams{Train: 3, Channel: sim.ChannelEvent, Sound: sim.SoundNone})
	assert.Zero(t, m.Voices())
	assert.InDelta(t, 0, peak(stream(m, 64), 0), 1e-9)
	assert.Zero(t, m.mixer.Len())
}

func TestOneShotsRestartAndEnd(t *testing.T) {
	m := NewMixer(1, zerolog.Nop())
	crash := sim.SoundParams{Train: 4, Channel: sim.ChannelEvent, Sound: sim.SoundCrash, Volume: 255, Frequency: 11025}
	m.Play(crash)
	first := m.voices[key{4, sim.ChannelEvent}]
	m.Play(crash)
	assert.NotSame(t, first, m.voices[key{4, sim.ChannelEvent}])

	stream(m, 16)
	assert.Equal(t, 1, m.mixer.Len())
	stream(m, sampleRate.N(oneShot(sim.SoundCrash))+16)
	assert.Zero(t, m.mixer.Len())
}

func TestOscillatorRange(t *testing.T) {
	for _, w := range []wave{waveSine, waveSquare, waveSaw, waveNoise} {
		o := &oscillator{wave: w, freq: 440, rate: sampleRate, seed: 7}
		buf := make([][2]float64, 512)
		n, ok := o.Stream(buf)
		require.True(t, ok)
		require.Equal(t, 512, n)
		for _, s := range buf {
			assert.LessOrEqual(t, math.Abs(s[0]), 1.0)
			assert.Equal(t, s[0], s[1])
		}
	}
}
