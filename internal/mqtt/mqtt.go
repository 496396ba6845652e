// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/swamp-cooler/internal/logic"
)

// DefaultPrefix is the topic root for everything the daemon publishes.
const DefaultPrefix = "home/cooler/swamp"

// Topics under a prefix.
type Topics struct {
	Readings string // sensor readings as they are stored
	Events   string // relay transitions
	System   string // lifecycle events
}

// TopicsFor returns the topics under prefix.
func TopicsFor(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Topics{
		Readings: prefix + "/readings",
		Events:   prefix + "/events",
		System:   prefix + "/system",
	}
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// PublishReading sends a stored sensor reading.
	PublishReading(r logic.Reading) error

	// Publish sends a relay transition event.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload is the MQTT message for a relay transition.
type Payload struct {
	Cooler CoolerPayload `json:"cooler"`
}

// CoolerPayload contains the transition details and the full relay state after it.
type CoolerPayload struct {
	Timestamp string       `json:"timestamp"`
	Event     string       `json:"event"`
	Label     string       `json:"label"`
	Pump      ChannelState `json:"pump"`
	Fan       ChannelState `json:"fan"`
	Speed     ChannelState `json:"speed"`
}

// ChannelState represents a single relay's state.
type ChannelState struct {
	State string `json:"state"`
}

// FormatPayload creates the JSON payload for a relay event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Cooler: CoolerPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			Label:     string(event.Label),
			Pump:      ChannelState{State: string(logic.StateOf(event.Relay.Pump))},
			Fan:       ChannelState{State: string(logic.StateOf(event.Relay.Fan))},
			Speed:     ChannelState{State: string(logic.StateOf(event.Relay.Speed))},
		},
	}
	return json.Marshal(payload)
}

// ReadingPayload is the MQTT message for a stored reading.
type ReadingPayload struct {
	Reading ReadingInner `json:"reading"`
}

// ReadingInner contains the reading details.
type ReadingInner struct {
	Timestamp   string  `json:"timestamp"`
	Sensor      string  `json:"sensor"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

// FormatReadingPayload creates the JSON payload for a reading.
func FormatReadingPayload(r logic.Reading) ([]byte, error) {
	return json.Marshal(ReadingPayload{
		Reading: ReadingInner{
			Timestamp:   r.ReceivedAt.UTC().Format(time.RFC3339),
			Sensor:      string(r.Sensor),
			Temperature: r.Temperature,
			Humidity:    r.Humidity,
		},
	})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
	Instance  string `json:"instance,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// willPayload is registered with the broker as the last will.
func willPayload(instance string, now time.Time) []byte {
	data, _ := json.Marshal(SystemPayload{
		System: SystemPayloadInner{
			Timestamp: now.UTC().Format(time.RFC3339),
			Event:     "SHUTDOWN",
			Reason:    "MQTT_DISCONNECT",
			Instance:  instance,
		},
	})
	return data
}
