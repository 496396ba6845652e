package logic

import "time"

// Detector tracks the applied relay state and reports transitions.
// The first applied state establishes the baseline and produces no events.
type Detector struct {
	current       RelayState
	label         Label
	baselined     bool
	startTime     time.Time
	eventCounts   EventCounts
	lastHeartbeat time.Time
}

// NewDetector creates a transition detector.
// The startTime is used for calculating uptime in heartbeat events.
func NewDetector(startTime time.Time) *Detector {
	return &Detector{
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Process records an applied relay state and returns one event per output that changed.
// Order: pump, fan, speed.
func (d *Detector) Process(rs RelayState, label Label, now time.Time) []Event {
	if !d.baselined {
		d.current = rs
		d.label = label
		d.baselined = true
		return nil
	}

	prev := d.current
	d.current = rs
	d.label = label

	var events []Event
	if rs.Pump != prev.Pump {
		events = append(events, d.event(pick(rs.Pump, EventPumpOn, EventPumpOff), now))
	}
	if rs.Fan != prev.Fan {
		events = append(events, d.event(pick(rs.Fan, EventFanOn, EventFanOff), now))
	}
	if rs.Speed != prev.Speed {
		events = append(events, d.event(pick(rs.Speed, EventSpeedOn, EventSpeedOff), now))
	}

	for _, e := range events {
		switch e.Type {
		case EventPumpOn:
			d.eventCounts.PumpOn++
		case EventPumpOff:
			d.eventCounts.PumpOff++
		case EventFanOn:
			d.eventCounts.FanOn++
		case EventFanOff:
			d.eventCounts.FanOff++
		case EventSpeedOn:
			d.eventCounts.SpeedOn++
		case EventSpeedOff:
			d.eventCounts.SpeedOff++
		}
	}

	return events
}

func (d *Detector) event(t EventType, now time.Time) Event {
	return Event{
		Timestamp: now,
		Type:      t,
		Label:     d.label,
		Relay:     d.current,
	}
}

func pick(on bool, ifOn, ifOff EventType) EventType {
	if on {
		return ifOn
	}
	return ifOff
}

// IsBaselined returns whether a relay state has been applied yet.
func (d *Detector) IsBaselined() bool {
	return d.baselined
}

// CurrentState returns the last applied relay state and its label.
func (d *Detector) CurrentState() (RelayState, Label) {
	return d.current, d.label
}

// EventCountsSnapshot returns a copy of the transition counters.
func (d *Detector) EventCountsSnapshot() EventCounts {
	return d.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if not yet baselined, if the
// interval has not elapsed, or if interval is <= 0 (disabled).
func (d *Detector) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if !d.baselined {
		return nil
	}

	if now.Sub(d.lastHeartbeat) < interval {
		return nil
	}

	d.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(d.startTime),
		Counts:    d.eventCounts,
	}
}
