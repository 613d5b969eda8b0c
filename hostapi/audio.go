package hostapi

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/modforge/scripthost/security"
)

// AudioModule implements the engine.audio API, gated on AudioPlay.
type AudioModule struct {
	ctx *Context
}

// NewAudioModule creates the audio module.
func NewAudioModule(ctx *Context) *AudioModule {
	return &AudioModule{ctx: ctx}
}

// Name returns the module name.
func (m *AudioModule) Name() string { return "audio" }

// Register installs the module into the engine namespace.
func (m *AudioModule) Register(L *lua.LState, root *lua.LTable) error {
	caps := m.ctx.Caps
	mod := L.NewTable()

	L.SetField(mod, "play", L.NewFunction(gated(caps, "audio.play", security.CapabilityAudioPlay, m.play)))
	L.SetField(mod, "stop", L.NewFunction(gated(caps, "audio.stop", security.CapabilityAudioPlay, m.stop)))
	L.SetField(mod, "set_volume", L.NewFunction(gated(caps, "audio.set_volume", security.CapabilityAudioPlay, m.setVolume)))

	L.SetField(root, m.Name(), mod)
	return nil
}

func (m *AudioModule) mixer(L *lua.LState) AudioMixer {
	if m.ctx.Audio == nil {
		L.RaiseError("audio mixer is not available")
	}
	return m.ctx.Audio
}

func (m *AudioModule) play(L *lua.LState) int {
	clip := L.CheckString(1)
	m.mixer(L).Play(clip)
	return 0
}

func (m *AudioModule) stop(L *lua.LState) int {
	clip := L.CheckString(1)
	m.mixer(L).Stop(clip)
	return 0
}

func (m *AudioModule) setVolume(L *lua.LState) int {
	clip := L.CheckString(1)
	volume := float64(L.CheckNumber(2))
	if volume < 0 || volume > 1 {
		L.ArgError(2, "volume must be in [0, 1]")
		return 0
	}
	m.mixer(L).SetVolume(clip, volume)
	return 0
}
