// Package gpio provides access to the watchdog's relay, lamps and button
// with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Board drives the watchdog's GPIO lines. All values are logical: the
// implementation handles active-low wiring.
type Board interface {
	// ButtonPressed returns true while the manual reset button is held.
	// The raw input is active-low: raw 0 = pressed.
	ButtonPressed() (bool, error)

	// SetRelay opens (true) or closes (false) the relay circuit.
	// Open interrupts power to the modem/router.
	SetRelay(open bool) error

	// SetFault switches the red fault lamp.
	SetFault(on bool) error

	// SetOK switches the green ok lamp.
	SetOK(on bool) error

	// Reset drives every output to its safe state: relay closed, lamps off.
	Reset() error

	// Close releases GPIO resources.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	DefaultPinRelay    = 2  // Relay, active LOW
	DefaultPinOKLED    = 3  // Green LED, active HIGH
	DefaultPinFaultLED = 4  // Red LED, active HIGH
	DefaultPinButton   = 17 // Button, active LOW
)

// DefaultChip is the GPIO character device on Raspberry Pi boards.
const DefaultChip = "gpiochip0"

// Pins selects the BCM line offsets used by the board.
type Pins struct {
	Chip     string
	Relay    int
	OKLED    int
	FaultLED int
	Button   int
}

// DefaultPins returns the wiring of the reference board.
func DefaultPins() Pins {
	return Pins{
		Chip:     DefaultChip,
		Relay:    DefaultPinRelay,
		OKLED:    DefaultPinOKLED,
		FaultLED: DefaultPinFaultLED,
		Button:   DefaultPinButton,
	}
}
