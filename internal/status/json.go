package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/swamp-cooler/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Setting       SettingJSON  `json:"setting"`
	Relays        RelaysJSON   `json:"relays"`
	Ready         bool         `json:"ready"`
	Sensors       SensorsJSON  `json:"sensors"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	LastDecision  string       `json:"last_decision,omitempty"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Counters      CountersJSON `json:"counters"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// SettingJSON is the stored setting the last decision was made from.
type SettingJSON struct {
	Mode               string  `json:"mode"`
	Label              string  `json:"label"`
	DesiredTemperature float64 `json:"desired_temperature"`
}

// RelaysJSON is the applied relay state.
type RelaysJSON struct {
	Label      string `json:"label"`
	Pump       string `json:"pump"`
	Fan        string `json:"fan"`
	Speed      string `json:"speed"`
	FailClosed bool   `json:"fail_closed"`
	Reason     string `json:"reason,omitempty"`
}

// SensorsJSON holds the latest reading per sensor.
type SensorsJSON struct {
	Roof *ReadingJSON `json:"roof,omitempty"`
	Home *ReadingJSON `json:"home,omitempty"`
}

// ReadingJSON is the JSON representation of a reading.
type ReadingJSON struct {
	Sensor      string  `json:"sensor,omitempty"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Timestamp   string  `json:"timestamp,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of relay event counts.
type CountsJSON struct {
	PumpOn   int `json:"pump_on"`
	PumpOff  int `json:"pump_off"`
	FanOn    int `json:"fan_on"`
	FanOff   int `json:"fan_off"`
	SpeedOn  int `json:"speed_on"`
	SpeedOff int `json:"speed_off"`
}

// CountersJSON is the JSON representation of the loop counters.
type CountersJSON struct {
	Frames          int `json:"frames"`
	ReadingsStored  int `json:"readings_stored"`
	DecodeFailures  int `json:"decode_failures"`
	StoreErrors     int `json:"store_errors"`
	TransportFaults int `json:"transport_faults"`
	SettingWrites   int `json:"setting_writes"`
	Cycles          int `json:"cycles"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	SerialDevice string `json:"serial_device"`
	BaudRate     int    `json:"baud_rate"`
	WaitMs       int64  `json:"wait_ms"`
	PauseMs      int64  `json:"pause_ms"`
	HeartbeatMs  int64  `json:"heartbeat_ms"`
	Broker       string `json:"broker"`
	HTTPAddr     string `json:"http_addr"`
	InstanceID   string `json:"instance_id"`
}

// FormatReading converts a reading for JSON output. Sentinel readings have no timestamp.
func FormatReading(r logic.Reading) ReadingJSON {
	rj := ReadingJSON{
		Sensor:      string(r.Sensor),
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
	}
	if !r.ReceivedAt.IsZero() {
		rj.Timestamp = r.ReceivedAt.UTC().Format(time.RFC3339)
	}
	return rj
}

func formatReadingPtr(r *logic.Reading) *ReadingJSON {
	if r == nil {
		return nil
	}
	rj := FormatReading(*r)
	return &rj
}

func buildInner(snap Snapshot) StatusInner {
	d := snap.Decision
	mode, label := "UNKNOWN", "UNKNOWN"
	pump, fan, speed := "UNKNOWN", "UNKNOWN", "UNKNOWN"
	if snap.Decided {
		mode = string(d.Setting.Mode)
		label = string(d.Label)
		pump = string(logic.StateOf(d.Relay.Pump))
		fan = string(logic.StateOf(d.Relay.Fan))
		speed = string(logic.StateOf(d.Relay.Speed))
	}

	inner := StatusInner{
		Setting: SettingJSON{
			Mode:               mode,
			Label:              string(d.Setting.Label),
			DesiredTemperature: d.Setting.DesiredTemperature,
		},
		Relays: RelaysJSON{
			Label:      label,
			Pump:       pump,
			Fan:        fan,
			Speed:      speed,
			FailClosed: d.FailClosed,
			Reason:     d.Reason,
		},
		Ready: snap.Baselined,
		Sensors: SensorsJSON{
			Roof: formatReadingPtr(snap.Roof),
			Home: formatReadingPtr(snap.Home),
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			PumpOn:   snap.Counts.PumpOn,
			PumpOff:  snap.Counts.PumpOff,
			FanOn:    snap.Counts.FanOn,
			FanOff:   snap.Counts.FanOff,
			SpeedOn:  snap.Counts.SpeedOn,
			SpeedOff: snap.Counts.SpeedOff,
		},
		Counters: CountersJSON(snap.Counters),
		Config: ConfigJSON{
			SerialDevice: snap.Config.SerialDevice,
			BaudRate:     snap.Config.BaudRate,
			WaitMs:       snap.Config.WaitMs,
			PauseMs:      snap.Config.PauseMs,
			HeartbeatMs:  snap.Config.HeartbeatMs,
			Broker:       snap.Config.Broker,
			HTTPAddr:     snap.Config.HTTPAddr,
			InstanceID:   snap.Config.InstanceID,
		},
	}
	if snap.Decided {
		inner.LastDecision = d.At.UTC().Format(time.RFC3339)
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
