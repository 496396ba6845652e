// Package serial provides the line-oriented link to the Zigbee radio coordinator.
// The real implementation drives a UART through go.bug.st/serial.
// The fake implementation allows testing without hardware.
package serial

import (
	"errors"
	"time"
)

// ErrTimeout is returned by ReadLine when no complete line arrived in time.
// It is a normal poll outcome, not a fault.
var ErrTimeout = errors.New("serial: read timeout")

// ErrClosed is returned when the link is not open (for example after a failed reset).
var ErrClosed = errors.New("serial: port not open")

// Port is a line-oriented serial link.
type Port interface {
	// ReadLine returns the next complete line (without the trailing newline)
	// received within timeout, or ErrTimeout.
	ReadLine(timeout time.Duration) ([]byte, error)

	// Write sends raw bytes to the coordinator.
	Write(b []byte) error

	// Reset closes and reopens the link, waits for it to settle and discards
	// any buffered input.
	Reset() error

	// Close releases the link.
	Close() error
}

// Line settings required by the coordinator (8N1).
const (
	DefaultDevice   = "/dev/ttyS0"
	DefaultBaudRate = 57600
	DataBits        = 8
)
