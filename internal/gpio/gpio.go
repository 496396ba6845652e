// Package gpio drives the cooler relays with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"errors"
	"fmt"

	"github.com/sweeney/swamp-cooler/internal/logic"
)

// ErrUnsupported is returned where GPIO hardware is unavailable.
var ErrUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// Actuator sets the three relay outputs.
type Actuator interface {
	// Apply drives pump, fan and speed to the given levels.
	// Applying the same state twice is harmless.
	Apply(rs logic.RelayState) error

	// Close drives every output low and releases GPIO resources.
	Close() error
}

// Pins holds BCM line offsets. Outputs are active high.
type Pins struct {
	Pump  int `yaml:"pump"`
	Fan   int `yaml:"fan"`
	Speed int `yaml:"speed"`
}

// DefaultChip is the Raspberry Pi header chip.
const DefaultChip = "gpiochip0"

// DefaultPins matches the relay board wiring.
var DefaultPins = Pins{Pump: 16, Fan: 20, Speed: 21}

// Validate rejects negative or shared offsets.
func (p Pins) Validate() error {
	seen := map[int]string{}
	for _, pin := range []struct {
		name   string
		offset int
	}{{"pump", p.Pump}, {"fan", p.Fan}, {"speed", p.Speed}} {
		if pin.offset < 0 {
			return fmt.Errorf("%s pin must not be negative, got %d", pin.name, pin.offset)
		}
		if other, dup := seen[pin.offset]; dup {
			return fmt.Errorf("%s and %s share pin %d", other, pin.name, pin.offset)
		}
		seen[pin.offset] = pin.name
	}
	return nil
}

func level(on bool) int {
	if on {
		return 1
	}
	return 0
}
