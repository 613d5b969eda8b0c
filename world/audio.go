package world

import "sync"

// AudioEvent records one mixer operation.
type AudioEvent struct {
	Op     string // "play", "stop", "volume"
	Clip   string
	Volume float64
}

// AudioMixer is a recording mixer. It tracks playing clips and per-clip
// volumes and keeps an event log, which is what a headless host (and the
// tests) need; a production build forwards the same interface to the real
// audio backend.
type AudioMixer struct {
	mu      sync.Mutex
	playing map[string]bool
	volumes map[string]float64
	events  []AudioEvent
}

// NewAudioMixer creates an empty mixer.
func NewAudioMixer() *AudioMixer {
	return &AudioMixer{
		playing: make(map[string]bool),
		volumes: make(map[string]float64),
	}
}

// Play starts the clip.
func (m *AudioMixer) Play(clip string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.playing[clip] = true
	m.events = append(m.events, AudioEvent{Op: "play", Clip: clip})
}

// Stop stops the clip.
func (m *AudioMixer) Stop(clip string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.playing, clip)
	m.events = append(m.events, AudioEvent{Op: "stop", Clip: clip})
}

// SetVolume sets the clip volume.
func (m *AudioMixer) SetVolume(clip string, volume float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.volumes[clip] = volume
	m.events = append(m.events, AudioEvent{Op: "volume", Clip: clip, Volume: volume})
}

// IsPlaying reports whether the clip is playing.
func (m *AudioMixer) IsPlaying(clip string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing[clip]
}

// Volume returns the clip volume, defaulting to 1.
func (m *AudioMixer) Volume(clip string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v, ok := m.volumes[clip]; ok {
		return v
	}
	return 1
}

// Events returns a copy of the event log.
func (m *AudioMixer) Events() []AudioEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]AudioEvent, len(m.events))
	copy(out, m.events)
	return out
}
