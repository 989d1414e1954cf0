package logic

// Override detects the operator button being pressed. It reports a single
// Triggered per physical press regardless of how often it is polled.
type Override struct {
	held bool
}

// NewOverride creates an override monitor with the button released.
func NewOverride() *Override {
	return &Override{}
}

// Poll takes the current (already de-inverted) button level.
func (o *Override) Poll(pressed bool) OverrideEvent {
	switch {
	case pressed && !o.held:
		o.held = true
		return OverrideTriggered
	case pressed && o.held:
		return OverrideStillHeld
	case !pressed && o.held:
		o.held = false
		return OverrideReleased
	}
	return OverrideNone
}

// Held reports whether the button is currently held.
func (o *Override) Held() bool {
	return o.held
}
