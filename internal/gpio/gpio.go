// Package gpio reads the optional hardware start/stop switch.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Reader reads the detection switch.
type Reader interface {
	// Read returns true when the switch is in the "detect" position.
	// The raw line is active-low: raw 0 = detecting.
	Read() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// NoPin disables the switch.
const NoPin = -1

// Chip is the GPIO character device the switch is wired to.
const Chip = "gpiochip0"
