//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/swamp-cooler/internal/logic"
)

// RealActuator drives relays through the Linux GPIO character device.
type RealActuator struct {
	chip  *gpiocdev.Chip
	pump  *gpiocdev.Line
	fan   *gpiocdev.Line
	speed *gpiocdev.Line
}

// NewRealActuator requests the three lines as outputs, initially low.
func NewRealActuator(chipName string, pins Pins) (*RealActuator, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer("swamp-cooler"))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	a := &RealActuator{chip: chip}
	for _, req := range []struct {
		name string
		pin  int
		dst  **gpiocdev.Line
	}{
		{"pump", pins.Pump, &a.pump},
		{"fan", pins.Fan, &a.fan},
		{"speed", pins.Speed, &a.speed},
	} {
		line, err := chip.RequestLine(req.pin, gpiocdev.AsOutput(0))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("request %s pin %d: %w", req.name, req.pin, err)
		}
		*req.dst = line
	}
	return a, nil
}

// Apply sets pump, fan and speed in that order.
func (a *RealActuator) Apply(rs logic.RelayState) error {
	if err := a.pump.SetValue(level(rs.Pump)); err != nil {
		return fmt.Errorf("set pump: %w", err)
	}
	if err := a.fan.SetValue(level(rs.Fan)); err != nil {
		return fmt.Errorf("set fan: %w", err)
	}
	if err := a.speed.SetValue(level(rs.Speed)); err != nil {
		return fmt.Errorf("set speed: %w", err)
	}
	return nil
}

// Close drives all lines low, returns them to inputs with pull-down
// (the Pi boot default) and releases the chip.
func (a *RealActuator) Close() error {
	var errs []error
	for _, l := range []struct {
		name string
		line *gpiocdev.Line
	}{{"speed", a.speed}, {"fan", a.fan}, {"pump", a.pump}} {
		if l.line == nil {
			continue
		}
		if err := l.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear %s pin: %w", l.name, err))
		}
		if err := l.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", l.name, err))
		}
		if err := l.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", l.name, err))
		}
	}
	if a.chip != nil {
		if err := a.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
