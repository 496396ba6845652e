package main

import (
	"log"
	"time"

	"github.com/sweeney/swamp-cooler/internal/control"
	"github.com/sweeney/swamp-cooler/internal/decode"
	"github.com/sweeney/swamp-cooler/internal/logic"
	"github.com/sweeney/swamp-cooler/internal/mqtt"
	"github.com/sweeney/swamp-cooler/internal/status"
	"github.com/sweeney/swamp-cooler/internal/store"
)

// reporter turns loop outcomes into status updates, relay transition events
// and lifecycle messages. It runs on the control goroutine.
type reporter struct {
	tracker    *status.Tracker
	detector   *logic.Detector
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus // may be nil
	heartbeat  time.Duration
	network    func() *status.NetworkInfo
}

var _ control.Observer = (*reporter)(nil)

func newReporter(tracker *status.Tracker, publisher mqtt.Publisher, heartbeat time.Duration, start time.Time) *reporter {
	r := &reporter{
		tracker:   tracker,
		detector:  logic.NewDetector(start),
		publisher: publisher,
		heartbeat: heartbeat,
		network:   readNetworkInfo,
	}
	if cs, ok := publisher.(mqtt.ConnectionStatus); ok {
		r.mqttStatus = cs
	}
	return r
}

func (r *reporter) FrameReceived(time.Time) {
	r.tracker.Inc(status.CounterFrames)
}

func (r *reporter) ReadingStored(rd logic.Reading) {
	r.tracker.RecordReading(rd)
	r.tracker.Inc(status.CounterReadingsStored)
	if err := r.publisher.PublishReading(rd); err != nil {
		log.Printf("mqtt: reading publish error: %v", err)
	}
}

func (r *reporter) DecodeFailed(*decode.DecodeError) {
	r.tracker.Inc(status.CounterDecodeFailures)
}

func (r *reporter) StoreFailed(store.Op, error) {
	r.tracker.Inc(status.CounterStoreErrors)
}

func (r *reporter) TransportFault(error) {
	r.tracker.Inc(status.CounterTransportFaults)
}

func (r *reporter) SettingWritten(s logic.Setting) {
	r.tracker.Inc(status.CounterSettingWrites)
	log.Printf("engine: stored setting %q", s.String())
}

func (r *reporter) Evaluated(d control.Decision, now time.Time) {
	for _, event := range r.detector.Process(d.Relay, d.Label, now) {
		log.Printf("event: %s (%s)", event.Type, event.Label)
		if err := r.publisher.Publish(event); err != nil {
			log.Printf("mqtt: publish error: %v", err)
		}
	}
	r.tracker.Update(status.Decision{
		Setting:    d.Setting,
		Label:      d.Label,
		Relay:      d.Relay,
		FailClosed: d.FailClosed,
		Reason:     d.Reason,
		At:         now,
	}, r.detector.IsBaselined(), r.detector.EventCountsSnapshot())
	r.refreshConnection()
}

func (r *reporter) CycleDone(now time.Time) {
	r.tracker.Inc(status.CounterCycles)

	hb := r.detector.CheckHeartbeat(now, r.heartbeat)
	if hb == nil {
		return
	}
	log.Printf("heartbeat: uptime=%v pump_on=%d fan_on=%d speed_on=%d",
		hb.Uptime, hb.Counts.PumpOn, hb.Counts.FanOn, hb.Counts.SpeedOn)
	if net := r.network(); net != nil {
		r.tracker.SetNetwork(net)
	}
	r.system(hb.Timestamp, "HEARTBEAT", "", false)
}

// startup publishes the retained STARTUP event.
func (r *reporter) startup(now time.Time) {
	if net := r.network(); net != nil {
		r.tracker.SetNetwork(net)
	}
	r.system(now, "STARTUP", "", true)
}

// shutdown publishes the retained SHUTDOWN event.
func (r *reporter) shutdown(now time.Time, reason string) {
	r.system(now, "SHUTDOWN", reason, true)
}

func (r *reporter) system(now time.Time, name, reason string, retained bool) {
	r.refreshConnection()
	snap := r.tracker.Snapshot()
	event := mqtt.SystemEvent{
		Timestamp:  now,
		Event:      name,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, name, reason),
	}
	if err := r.publisher.PublishSystem(event); err != nil {
		log.Printf("mqtt: failed to publish %s event: %v", name, err)
		return
	}
	log.Printf("published %s event", name)
}

func (r *reporter) refreshConnection() {
	if r.mqttStatus != nil {
		r.tracker.SetMQTTConnected(r.mqttStatus.IsConnected())
	}
}
