//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

const consumer = "net-watchdog"

// Raw output levels for the active-low relay module.
const (
	relayRawClosed = 1
	relayRawOpen   = 0
)

// RealBoard drives actual hardware using Linux GPIO character device.
type RealBoard struct {
	chip     *gpiocdev.Chip
	relay    *gpiocdev.Line
	okLED    *gpiocdev.Line
	faultLED *gpiocdev.Line
	button   *gpiocdev.Line
}

// NewRealBoard requests the relay, lamp and button lines on actual
// Raspberry Pi hardware. Outputs start in their safe state.
func NewRealBoard(pins Pins) (*RealBoard, error) {
	chip, err := gpiocdev.NewChip(pins.Chip, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	b := &RealBoard{chip: chip}

	// Relay idles closed (raw high) so the modem stays powered.
	b.relay, err = chip.RequestLine(pins.Relay, gpiocdev.AsOutput(relayRawClosed))
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("request relay pin %d: %w", pins.Relay, err)
	}

	b.okLED, err = chip.RequestLine(pins.OKLED, gpiocdev.AsOutput(0))
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("request ok led pin %d: %w", pins.OKLED, err)
	}

	b.faultLED, err = chip.RequestLine(pins.FaultLED, gpiocdev.AsOutput(0))
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("request fault led pin %d: %w", pins.FaultLED, err)
	}

	// Button shorts to ground when pressed, so pull the line up.
	b.button, err = chip.RequestLine(pins.Button, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("request button pin %d: %w", pins.Button, err)
	}

	return b, nil
}

// ButtonPressed inverts the raw button level: raw 0 = pressed.
func (b *RealBoard) ButtonPressed() (bool, error) {
	raw, err := b.button.Value()
	if err != nil {
		return false, fmt.Errorf("read button pin: %w", err)
	}
	return raw == 0, nil
}

// SetRelay drives the active-low relay.
func (b *RealBoard) SetRelay(open bool) error {
	v := relayRawClosed
	if open {
		v = relayRawOpen
	}
	if err := b.relay.SetValue(v); err != nil {
		return fmt.Errorf("set relay pin: %w", err)
	}
	return nil
}

// SetFault switches the red lamp.
func (b *RealBoard) SetFault(on bool) error {
	if err := b.faultLED.SetValue(boolToRaw(on)); err != nil {
		return fmt.Errorf("set fault led pin: %w", err)
	}
	return nil
}

// SetOK switches the green lamp.
func (b *RealBoard) SetOK(on bool) error {
	if err := b.okLED.SetValue(boolToRaw(on)); err != nil {
		return fmt.Errorf("set ok led pin: %w", err)
	}
	return nil
}

// Reset restores the relay to closed and switches both lamps off.
// Every output is attempted even if an earlier one fails.
func (b *RealBoard) Reset() error {
	var errs []error
	if b.relay != nil {
		if err := b.SetRelay(false); err != nil {
			errs = append(errs, err)
		}
	}
	if b.faultLED != nil {
		if err := b.SetFault(false); err != nil {
			errs = append(errs, err)
		}
	}
	if b.okLED != nil {
		if err := b.SetOK(false); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close drives outputs to their safe state and releases GPIO resources.
// The relay keeps its closed level after release so the modem stays powered.
func (b *RealBoard) Close() error {
	errs := []error{b.Reset()}

	for _, l := range []struct {
		name string
		line *gpiocdev.Line
	}{
		{"relay", b.relay},
		{"ok led", b.okLED},
		{"fault led", b.faultLED},
		{"button", b.button},
	} {
		if l.line == nil {
			continue
		}
		if err := l.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", l.name, err))
		}
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close errors: %w", err)
	}
	return nil
}

func boolToRaw(on bool) int {
	if on {
		return 1
	}
	return 0
}
