package gpio

import "errors"

// Write records a single output change on a FakeBoard.
type Write struct {
	Line  string // "relay", "fault" or "ok"
	Value bool
}

// FakeBoard is a test double that returns scripted button values and
// records every output write.
type FakeBoard struct {
	// Button contains scripted pressed values.
	// Each call to ButtonPressed() consumes the next sample.
	Button []bool

	// index tracks current position in Button
	index int

	// Logical output levels.
	RelayOpen bool
	Fault     bool
	OK        bool

	// Writes is the ordered history of output changes.
	Writes []Write

	// Resets counts calls to Reset.
	Resets int

	// Closed tracks if Close was called
	Closed bool

	// ButtonError, if set, will be returned by ButtonPressed().
	ButtonError error

	// RelayError, if set, will be returned by SetRelay().
	RelayError error

	// LampError, if set, will be returned by SetFault() and SetOK().
	LampError error
}

// NewFakeBoard creates a FakeBoard with the given button samples.
func NewFakeBoard(button []bool) *FakeBoard {
	return &FakeBoard{Button: button}
}

// ButtonPressed returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
// With no samples the button reads as released.
func (f *FakeBoard) ButtonPressed() (bool, error) {
	if f.ButtonError != nil {
		return false, f.ButtonError
	}

	if len(f.Button) == 0 {
		return false, nil
	}

	v := f.Button[f.index]
	if f.index < len(f.Button)-1 {
		f.index++
	}
	return v, nil
}

// SetRelay records the relay level.
func (f *FakeBoard) SetRelay(open bool) error {
	if f.RelayError != nil {
		return f.RelayError
	}
	f.RelayOpen = open
	f.Writes = append(f.Writes, Write{Line: "relay", Value: open})
	return nil
}

// SetFault records the fault lamp level.
func (f *FakeBoard) SetFault(on bool) error {
	if f.LampError != nil {
		return f.LampError
	}
	f.Fault = on
	f.Writes = append(f.Writes, Write{Line: "fault", Value: on})
	return nil
}

// SetOK records the ok lamp level.
func (f *FakeBoard) SetOK(on bool) error {
	if f.LampError != nil {
		return f.LampError
	}
	f.OK = on
	f.Writes = append(f.Writes, Write{Line: "ok", Value: on})
	return nil
}

// Reset drives outputs to their safe state, ignoring injected errors so
// tests can verify the relay is always restored.
func (f *FakeBoard) Reset() error {
	f.Resets++
	f.RelayOpen = false
	f.Fault = false
	f.OK = false
	if f.RelayError != nil {
		return errors.Join(errors.New("reset relay"), f.RelayError)
	}
	return nil
}

// Close marks the board as closed.
func (f *FakeBoard) Close() error {
	f.Closed = true
	return nil
}

// RelayOpens counts how many times the relay was opened.
func (f *FakeBoard) RelayOpens() int {
	n := 0
	for _, w := range f.Writes {
		if w.Line == "relay" && w.Value {
			n++
		}
	}
	return n
}
