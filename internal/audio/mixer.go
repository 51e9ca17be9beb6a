// Package audio plays ride sounds through the system speaker. Each train
// channel becomes one voice on a beep mixer.
package audio

import (
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"
	"github.com/rs/zerolog"

	"ridesim/internal/sim"
)

const sampleRate = beep.SampleRate(44100)

type key struct {
	train   int32
	channel int
}

// voice is the streamer chain of one playing channel.
type voice struct {
	sound sim.SoundID
	osc   *oscillator
	vol   *effects.Volume
	pan   *effects.Pan
	ctrl  *beep.Ctrl
}

// Mixer implements the engine's audio sink.
type Mixer struct {
	mu     sync.Mutex
	mixer  *beep.Mixer
	voices map[key]*voice
	master float64
	log    zerolog.Logger

	// lock guards streamers the speaker goroutine is reading
	lock, unlock func()
	started      bool
}

func NewMixer(master float64, log zerolog.Logger) *Mixer {
	return &Mixer{
		mixer:  &beep.Mixer{},
		voices: make(map[key]*voice),
		master: master,
		log:    log.With().Str("component", "audio").Logger(),
		lock:   func() {},
		unlock: func() {},
	}
}

// Start opens the speaker and begins playing the mix.
func (m *Mixer) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(100*time.Millisecond)); err != nil {
		return err
	}
	speaker.Play(m.mixer)
	m.lock, m.unlock = speaker.Lock, speaker.Unlock
	m.started = true
	m.log.Info().Int("rate", int(sampleRate)).Msg("speaker started")
	return nil
}

// Close silences every voice and releases the speaker.
func (m *Mixer) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lock()
	m.mixer.Clear()
	m.unlock()
	m.voices = make(map[key]*voice)
	if m.started {
		speaker.Close()
		m.started = false
		m.lock, m.unlock = func() {}, func() {}
	}
}

// Play starts p's sound on its channel, or retunes the voice already
// playing it.
func (m *Mixer) Play(p sim.SoundParams) {
	if p.Sound == sim.SoundNone {
		m.Stop(p.Train, p.Channel)
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lock()
	defer m.unlock()

	k := key{p.Train, p.Channel}
	if v, ok := m.voices[k]; ok {
		if v.sound == p.Sound && p.Sound.Looping() {
			m.tune(v, p)
			return
		}
		v.ctrl.Streamer = nil
	}
	v := m.newVoice(p)
	m.voices[k] = v
	m.mixer.Add(v.ctrl)
}

func (m *Mixer) Stop(train int32, channel int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{train, channel}
	v, ok := m.voices[k]
	if !ok {
		return
	}
	m.lock()
	v.ctrl.Streamer = nil
	m.unlock()
	delete(m.voices, k)
}

// Voices reports how many channels are sounding.
func (m *Mixer) Voices() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.voices)
}

func (m *Mixer) newVoice(p sim.SoundParams) *voice {
	osc := &oscillator{wave: waveOf(p.Sound), rate: sampleRate, seed: uint32(p.Train)*2654435761 | 1}
	var s beep.Streamer = osc
	if !p.Sound.Looping() {
		s = beep.Take(sampleRate.N(oneShot(p.Sound)), osc)
	}
	v := &voice{sound: p.Sound, osc: osc}
	v.vol = &effects.Volume{Streamer: s, Base: 2}
	v.pan = &effects.Pan{Streamer: v.vol}
	v.ctrl = &beep.Ctrl{Streamer: v.pan}
	m.tune(v, p)
	return v
}

// tune applies frequency, volume and pan. Frequencies arrive in the engine's
// sample-rate units, 11025 at rest; the tone sits two octaves under middle A.
func (m *Mixer) tune(v *voice, p sim.SoundParams) {
	v.osc.freq = 110 * float64(p.Frequency) / 11025
	gain := float64(p.Volume) / 255 * m.master
	if gain <= 0 {
		v.vol.Silent = true
		v.vol.Volume = 0
	} else {
		v.vol.Silent = false
		v.vol.Volume = math.Log2(gain)
	}
	v.pan.Pan = float64(p.Pan) / 128
}

func oneShot(s sim.SoundID) time.Duration {
	switch s {
	case sim.SoundCrash:
		return 900 * time.Millisecond
	case sim.SoundSplash:
		return 600 * time.Millisecond
	}
	return 250 * time.Millisecond
}
