// Package logic contains the pure control rules for the swamp cooler.
// This package has NO external dependencies (no GPIO, serial, database, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Role is the logical identity of a sensor node.
type Role string

const (
	RoleRoof Role = "roof"
	RoleHome Role = "home"
)

// Roles lists every known sensor role in a stable order.
var Roles = []Role{RoleRoof, RoleHome}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleRoof || r == RoleHome
}

// Reading is one telemetry sample from a known sensor.
type Reading struct {
	Sensor      Role
	Temperature float64
	Humidity    float64
	ReceivedAt  time.Time
}

// Sentinel values returned when a sensor has never reported.
const (
	SentinelTemperature = 32.5
	SentinelHumidity    = 25.7
)

// SentinelReading is the conservative stand-in used during cold start.
// Its ReceivedAt is the zero time.
func SentinelReading(r Role) Reading {
	return Reading{
		Sensor:      r,
		Temperature: SentinelTemperature,
		Humidity:    SentinelHumidity,
	}
}

// IsSentinel reports whether the reading is the cold-start stand-in.
func (r Reading) IsSentinel() bool {
	return r.ReceivedAt.IsZero() &&
		r.Temperature == SentinelTemperature &&
		r.Humidity == SentinelHumidity
}

// HouseParameters describes the building and cooler hardware.
type HouseParameters struct {
	Latitude    float64
	Longitude   float64
	HouseVolume float64 // cubic feet
	LoFanVolume float64 // cubic feet per minute
	HiFanVolume float64 // cubic feet per minute
	Efficiency  float64 // 0..1
}

// ForecastHorizon is the number of upcoming forecast samples consulted.
const ForecastHorizon = 8

// State is the logical state of a single relay output.
type State string

const (
	StateOn  State = "ON"
	StateOff State = "OFF"
)

// StateOf converts an output level to its State.
func StateOf(on bool) State {
	if on {
		return StateOn
	}
	return StateOff
}

// RelayState is the level of the three cooler outputs.
type RelayState struct {
	Pump  bool
	Fan   bool
	Speed bool
}

// RelayOff is the fail-closed state.
var RelayOff = RelayState{}

// EventType represents a relay transition event.
type EventType string

const (
	EventPumpOn   EventType = "PUMP_ON"
	EventPumpOff  EventType = "PUMP_OFF"
	EventFanOn    EventType = "FAN_ON"
	EventFanOff   EventType = "FAN_OFF"
	EventSpeedOn  EventType = "SPEED_ON"
	EventSpeedOff EventType = "SPEED_OFF"
)

// Event represents a relay transition to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Label     Label
	Relay     RelayState
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	PumpOn   int
	PumpOff  int
	FanOn    int
	FanOff   int
	SpeedOn  int
	SpeedOff int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
