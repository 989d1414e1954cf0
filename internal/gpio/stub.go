//go:build !linux

package gpio

import "errors"

// RealBoard is not available on non-Linux platforms.
type RealBoard struct{}

// NewRealBoard returns an error on non-Linux platforms.
func NewRealBoard(pins Pins) (*RealBoard, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// ButtonPressed is not implemented on non-Linux platforms.
func (b *RealBoard) ButtonPressed() (bool, error) {
	return false, errors.New("gpio: not supported")
}

// SetRelay is not implemented on non-Linux platforms.
func (b *RealBoard) SetRelay(open bool) error {
	return errors.New("gpio: not supported")
}

// SetFault is not implemented on non-Linux platforms.
func (b *RealBoard) SetFault(on bool) error {
	return errors.New("gpio: not supported")
}

// SetOK is not implemented on non-Linux platforms.
func (b *RealBoard) SetOK(on bool) error {
	return errors.New("gpio: not supported")
}

// Reset is not implemented on non-Linux platforms.
func (b *RealBoard) Reset() error {
	return nil
}

// Close is not implemented on non-Linux platforms.
func (b *RealBoard) Close() error {
	return nil
}
