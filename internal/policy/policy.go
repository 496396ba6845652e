// Package policy defines the boundary to the predictive cooling policy.
package policy

import (
	"errors"
	"fmt"

	"github.com/sweeney/swamp-cooler/internal/logic"
)

// ErrNoRoofSeries is returned when Inputs carries no roof temperatures.
var ErrNoRoofSeries = errors.New("policy: empty roof temperature series")

// Inputs is everything the policy may consult.
// RoofTemps starts with the live roof temperature followed by the forecast.
type Inputs struct {
	RoofTemps    []float64
	RoofHumidity float64
	HomeTemp     float64
	HomeHumidity float64
	House        logic.HouseParameters
	Desired      float64
}

// Policy resolves a relay label from the current inputs.
// Implementations must be pure: same inputs, same label.
type Policy interface {
	Resolve(in Inputs) (logic.Label, error)
}

// Func adapts a plain function to Policy.
type Func func(in Inputs) (logic.Label, error)

func (f Func) Resolve(in Inputs) (logic.Label, error) {
	return f(in)
}

// Threshold is a deterministic rule-based policy.
type Threshold struct {
	// HighSpeedGap is how far above desired the house must be for high speed.
	HighSpeedGap float64 `yaml:"high_speed_gap"`
	// MaxOutdoorHumidity disables the pump at or above this relative humidity.
	MaxOutdoorHumidity float64 `yaml:"max_outdoor_humidity"`
	// HotForecast selects high speed when any forecast sample reaches it.
	HotForecast float64 `yaml:"hot_forecast"`
	// MinAirChanges is the minimum air changes per hour on low speed.
	MinAirChanges float64 `yaml:"min_air_changes"`
}

// DefaultThreshold returns the tuning used when none is configured.
func DefaultThreshold() Threshold {
	return Threshold{
		HighSpeedGap:       4,
		MaxOutdoorHumidity: 60,
		HotForecast:        100,
		MinAirChanges:      20,
	}
}

// Validate checks the tuning is usable.
func (t Threshold) Validate() error {
	if t.HighSpeedGap <= 0 {
		return fmt.Errorf("high_speed_gap must be positive, got %v", t.HighSpeedGap)
	}
	if t.MaxOutdoorHumidity <= 0 || t.MaxOutdoorHumidity > 100 {
		return fmt.Errorf("max_outdoor_humidity must be in (0, 100], got %v", t.MaxOutdoorHumidity)
	}
	if t.MinAirChanges < 0 {
		return fmt.Errorf("min_air_changes must not be negative, got %v", t.MinAirChanges)
	}
	return nil
}

// Resolve applies, in order: satisfied → Off; humid outside air → fan only;
// roof cooler than the house → fan only; otherwise evaporative cooling.
func (t Threshold) Resolve(in Inputs) (logic.Label, error) {
	if len(in.RoofTemps) == 0 {
		return "", ErrNoRoofSeries
	}
	if in.HomeTemp <= in.Desired {
		return logic.LabelOff, nil
	}

	gap := in.HomeTemp - in.Desired
	high := gap >= t.HighSpeedGap

	if in.RoofHumidity >= t.MaxOutdoorHumidity || in.RoofTemps[0] < in.HomeTemp {
		if high {
			return logic.LabelFanHi, nil
		}
		return logic.LabelFanLo, nil
	}

	if high || peak(in.RoofTemps) >= t.HotForecast || t.lowAirChanges(in.House) {
		return logic.LabelFanHiWithPump, nil
	}
	return logic.LabelFanLoWithPump, nil
}

// lowAirChanges reports whether low speed moves too little air for the house.
// Unknown volumes never force high speed.
func (t Threshold) lowAirChanges(h logic.HouseParameters) bool {
	if h.HouseVolume <= 0 || h.LoFanVolume <= 0 {
		return false
	}
	perHour := h.LoFanVolume * 60 / h.HouseVolume
	return perHour < t.MinAirChanges
}

func peak(temps []float64) float64 {
	m := temps[0]
	for _, v := range temps[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
