package world

import "sync"

// InputState is a per-frame input snapshot. The host feeds it between
// frames; scripts read it through the gated input module. It implements
// hostapi.InputState.
type InputState struct {
	mu sync.RWMutex

	keysDown    map[string]bool
	keysPressed map[string]bool // pressed this frame only
	mouseDown   map[int]bool
	mouseX      float64
	mouseY      float64
	axes        map[string]float64
}

// NewInputState creates an empty snapshot.
func NewInputState() *InputState {
	return &InputState{
		keysDown:    make(map[string]bool),
		keysPressed: make(map[string]bool),
		mouseDown:   make(map[int]bool),
		axes:        make(map[string]float64),
	}
}

// SetKey records a key transition. down=true on the frame a key first goes
// down also marks it pressed.
func (s *InputState) SetKey(key string, down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if down && !s.keysDown[key] {
		s.keysPressed[key] = true
	}
	s.keysDown[key] = down
	if !down {
		delete(s.keysDown, key)
	}
}

// SetMouseButton records a mouse button state.
func (s *InputState) SetMouseButton(button int, down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if down {
		s.mouseDown[button] = true
	} else {
		delete(s.mouseDown, button)
	}
}

// SetMousePosition records the cursor position.
func (s *InputState) SetMousePosition(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mouseX, s.mouseY = x, y
}

// SetAxis records an analog axis value.
func (s *InputState) SetAxis(name string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.axes[name] = value
}

// NextFrame clears the per-frame pressed set. Call once per game tick.
func (s *InputState) NextFrame() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.keysPressed)
}

// IsKeyDown reports whether the key is held.
func (s *InputState) IsKeyDown(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keysDown[key]
}

// IsKeyPressed reports whether the key went down this frame.
func (s *InputState) IsKeyPressed(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keysPressed[key]
}

// IsMouseDown reports whether the mouse button is held.
func (s *InputState) IsMouseDown(button int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mouseDown[button]
}

// MousePosition returns the cursor position.
func (s *InputState) MousePosition() (float64, float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mouseX, s.mouseY
}

// Axis returns the axis value, zero when unknown.
func (s *InputState) Axis(name string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.axes[name]
}
