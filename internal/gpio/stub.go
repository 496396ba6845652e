//go:build !linux

package gpio

import "github.com/sweeney/swamp-cooler/internal/logic"

// RealActuator is not available on non-Linux platforms.
type RealActuator struct{}

// NewRealActuator returns ErrUnsupported on non-Linux platforms.
func NewRealActuator(chipName string, pins Pins) (*RealActuator, error) {
	return nil, ErrUnsupported
}

// Apply is not implemented on non-Linux platforms.
func (a *RealActuator) Apply(rs logic.RelayState) error {
	return ErrUnsupported
}

// Close is not implemented on non-Linux platforms.
func (a *RealActuator) Close() error {
	return nil
}
