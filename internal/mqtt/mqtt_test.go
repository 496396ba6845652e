package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/swamp-cooler/internal/logic"
)

func TestFormatPayloadExactJSON(t *testing.T) {
	event := logic.Event{
		Timestamp: time.Date(2026, 7, 2, 22, 18, 12, 0, time.UTC),
		Type:      logic.EventSpeedOn,
		Label:     logic.LabelFanHi,
		Relay:     logic.RelayState{Fan: true, Speed: true},
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"cooler":{"timestamp":"2026-07-02T22:18:12Z","event":"SPEED_ON","label":"Fan Hi","pump":{"state":"OFF"},"fan":{"state":"ON"},"speed":{"state":"ON"}}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatPayloadAllEventTypes(t *testing.T) {
	types := []logic.EventType{
		logic.EventPumpOn, logic.EventPumpOff,
		logic.EventFanOn, logic.EventFanOff,
		logic.EventSpeedOn, logic.EventSpeedOff,
	}
	for _, et := range types {
		t.Run(string(et), func(t *testing.T) {
			payload, err := FormatPayload(logic.Event{Timestamp: time.Now(), Type: et})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var parsed Payload
			if err := json.Unmarshal(payload, &parsed); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if parsed.Cooler.Event != string(et) {
				t.Errorf("event: got %s, want %s", parsed.Cooler.Event, et)
			}
		})
	}
}

func TestFormatPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("MST", -7*60*60)
	event := logic.Event{Timestamp: time.Date(2026, 7, 2, 15, 0, 0, 0, loc), Type: logic.EventPumpOn}

	payload, _ := FormatPayload(event)
	var parsed Payload
	json.Unmarshal(payload, &parsed)
	if parsed.Cooler.Timestamp != "2026-07-02T22:00:00Z" {
		t.Errorf("timestamp should be UTC, got %s", parsed.Cooler.Timestamp)
	}
}

func TestFormatReadingPayloadExactJSON(t *testing.T) {
	r := logic.Reading{
		Sensor:      logic.RoleRoof,
		Temperature: 101.2,
		Humidity:    12.5,
		ReceivedAt:  time.Date(2026, 7, 2, 12, 0, 0, 0, time.UTC),
	}
	payload, err := FormatReadingPayload(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := `{"reading":{"timestamp":"2026-07-02T12:00:00Z","sensor":"roof","temperature":101.2,"humidity":12.5}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 7, 10, 14, 30, 0, 0, time.UTC),
		Event:     "RECONNECTED",
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := `{"system":{"timestamp":"2026-07-10T14:30:00Z","event":"RECONNECTED"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatSystemPayloadRawPassthrough(t *testing.T) {
	raw := []byte(`{"status":{"event":"STARTUP"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "STARTUP", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("got %s, want raw payload", payload)
	}
}

func TestWillPayload(t *testing.T) {
	payload := willPayload("3f1c2a9e-0000-4000-8000-000000000000", time.Date(2026, 7, 10, 8, 30, 0, 0, time.UTC))
	expected := `{"system":{"timestamp":"2026-07-10T08:30:00Z","event":"SHUTDOWN","reason":"MQTT_DISCONNECT","instance":"3f1c2a9e-0000-4000-8000-000000000000"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestTopicsFor(t *testing.T) {
	got := TopicsFor("")
	if got.Readings != "home/cooler/swamp/readings" || got.Events != "home/cooler/swamp/events" || got.System != "home/cooler/swamp/system" {
		t.Errorf("default topics: got %+v", got)
	}
	if TopicsFor("garage/cooler").System != "garage/cooler/system" {
		t.Errorf("custom prefix: got %+v", TopicsFor("garage/cooler"))
	}
}

func TestClientID(t *testing.T) {
	tests := []struct{ instance, want string }{
		{"", "swamp-cooler"},
		{"abc", "swamp-cooler-abc"},
		{"3f1c2a9e-0000-4000-8000-000000000000", "swamp-cooler-3f1c2a9e"},
	}
	for _, tt := range tests {
		if got := clientID(tt.instance); got != tt.want {
			t.Errorf("clientID(%q): got %q, want %q", tt.instance, got, tt.want)
		}
	}
}

func TestFakePublisherRecords(t *testing.T) {
	f := NewFakePublisher()

	f.PublishReading(logic.Reading{Sensor: logic.RoleHome, Temperature: 75})
	f.Publish(logic.Event{Type: logic.EventFanOn, Label: logic.LabelFanLo})
	f.PublishSystem(SystemEvent{Event: "STARTUP", Retained: true})
	f.PublishSystem(SystemEvent{Event: "HEARTBEAT"})

	if len(f.Readings) != 1 || f.Readings[0].Temperature != 75 {
		t.Errorf("readings: got %+v", f.Readings)
	}
	if len(f.Events) != 1 || len(f.Payloads) != 1 {
		t.Errorf("events: got %d events, %d payloads", len(f.Events), len(f.Payloads))
	}
	names := f.SystemEventNames()
	if len(names) != 2 || names[0] != "STARTUP" || names[1] != "HEARTBEAT" {
		t.Errorf("system events: got %v", names)
	}
	if !f.SystemEvents[0].Retained || f.SystemEvents[1].Retained {
		t.Error("retained flag should be recorded as given")
	}
}

func TestFakePublisherErrors(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("simulated error")
	f.PublishSystemError = errors.New("simulated system error")

	if err := f.Publish(logic.Event{Type: logic.EventPumpOn}); err == nil {
		t.Error("expected publish error")
	}
	if err := f.PublishReading(logic.Reading{}); err == nil {
		t.Error("expected reading publish error")
	}
	if err := f.PublishSystem(SystemEvent{Event: "STARTUP"}); err == nil {
		t.Error("expected system publish error")
	}
	if len(f.Events) != 0 || len(f.Readings) != 0 || len(f.SystemEvents) != 0 {
		t.Error("failed publishes should not be recorded")
	}
}

func TestFakePublisherClose(t *testing.T) {
	f := NewFakePublisher()
	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}
}

func TestDiscardSatisfiesInterfaces(t *testing.T) {
	var p Publisher = Discard{}
	if err := p.Publish(logic.Event{Type: logic.EventFanOn}); err != nil {
		t.Errorf("Publish: %v", err)
	}
	if err := p.PublishSystem(SystemEvent{Event: "STARTUP"}); err != nil {
		t.Errorf("PublishSystem: %v", err)
	}
	var cs ConnectionStatus = Discard{}
	if cs.IsConnected() {
		t.Error("Discard is never connected")
	}
}
