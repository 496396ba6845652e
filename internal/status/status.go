// Package status provides a thread-safe status tracker for the swamp-cooler daemon.
// It is read by HTTP handlers and MQTT lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/swamp-cooler/internal/logic"
)

// NetworkInfo contains network state as reported by the host.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	SerialDevice string
	BaudRate     int
	WaitMs       int64
	PauseMs      int64
	HeartbeatMs  int64
	Broker       string
	HTTPAddr     string
	InstanceID   string
}

// Counter identifies one of the cumulative counters.
type Counter int

const (
	CounterFrames Counter = iota
	CounterReadingsStored
	CounterDecodeFailures
	CounterStoreErrors
	CounterTransportFaults
	CounterSettingWrites
	CounterCycles
)

// Counters are cumulative since startup.
type Counters struct {
	Frames          int
	ReadingsStored  int
	DecodeFailures  int
	StoreErrors     int
	TransportFaults int
	SettingWrites   int
	Cycles          int
}

// Decision is the last evaluation outcome as shown to operators.
type Decision struct {
	Setting    logic.Setting
	Label      logic.Label
	Relay      logic.RelayState
	FailClosed bool
	Reason     string
	At         time.Time
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Decision      Decision
	Decided       bool
	Baselined     bool
	Roof          *logic.Reading
	Home          *logic.Reading
	Counts        logic.EventCounts
	Counters      Counters
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Healthy reports whether the last evaluation is younger than maxAge.
func (s Snapshot) Healthy(maxAge time.Duration) bool {
	return s.Decided && s.Now.Sub(s.Decision.At) <= maxAge
}

// Reading returns the latest reading for role, or nil.
func (s Snapshot) Reading(role logic.Role) *logic.Reading {
	switch role {
	case logic.RoleRoof:
		return s.Roof
	case logic.RoleHome:
		return s.Home
	}
	return nil
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update records the latest evaluation together with relay event counts.
// Called from the control loop after every refresh.
func (t *Tracker) Update(d Decision, baselined bool, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.Decision = d
	t.snap.Decided = true
	t.snap.Baselined = baselined
	t.snap.Counts = counts
	t.mu.Unlock()
}

// RecordReading keeps r as the latest reading for its sensor.
func (t *Tracker) RecordReading(r logic.Reading) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch r.Sensor {
	case logic.RoleRoof:
		t.snap.Roof = &r
	case logic.RoleHome:
		t.snap.Home = &r
	}
}

// Inc adds one to counter c.
func (t *Tracker) Inc(c Counter) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch c {
	case CounterFrames:
		t.snap.Counters.Frames++
	case CounterReadingsStored:
		t.snap.Counters.ReadingsStored++
	case CounterDecodeFailures:
		t.snap.Counters.DecodeFailures++
	case CounterStoreErrors:
		t.snap.Counters.StoreErrors++
	case CounterTransportFaults:
		t.snap.Counters.TransportFaults++
	case CounterSettingWrites:
		t.snap.Counters.SettingWrites++
	case CounterCycles:
		t.snap.Counters.Cycles++
	}
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
