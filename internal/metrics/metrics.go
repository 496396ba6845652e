// Package metrics exports control loop outcomes to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sweeney/swamp-cooler/internal/control"
	"github.com/sweeney/swamp-cooler/internal/decode"
	"github.com/sweeney/swamp-cooler/internal/logic"
	"github.com/sweeney/swamp-cooler/internal/store"
)

const namespace = "swamp_cooler"

// Metrics implements control.Observer.
type Metrics struct {
	frames          prometheus.Counter
	readingsStored  *prometheus.CounterVec
	decodeFailures  *prometheus.CounterVec
	storeErrors     *prometheus.CounterVec
	transportFaults prometheus.Counter
	settingWrites   prometheus.Counter
	cycles          prometheus.Counter
	relay           *prometheus.GaugeVec
	failClosed      prometheus.Gauge
	temperature     *prometheus.GaugeVec
	humidity        *prometheus.GaugeVec
	lastDecision    prometheus.Gauge
}

var _ control.Observer = (*Metrics)(nil)

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Lines received from the radio coordinator",
		}),
		readingsStored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_stored_total",
			Help:      "Readings persisted, by sensor",
		}, []string{"sensor"}),
		decodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_failures_total",
			Help:      "Frames discarded by the decoder, by reason",
		}, []string{"reason"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Failed store operations, by operation",
		}, []string{"op"}),
		transportFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transport_faults_total",
			Help:      "Serial read or reset failures",
		}),
		settingWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "setting_writes_total",
			Help:      "Automatic settings persisted",
		}),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Completed control cycles",
		}),
		relay: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "relay_on",
			Help:      "Applied relay level (1 on, 0 off)",
		}, []string{"relay"}),
		failClosed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fail_closed",
			Help:      "1 when the last evaluation failed closed to Off",
		}),
		temperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sensor_temperature",
			Help:      "Last stored temperature, by sensor",
		}, []string{"sensor"}),
		humidity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sensor_humidity_percent",
			Help:      "Last stored relative humidity, by sensor",
		}, []string{"sensor"}),
		lastDecision: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_decision_timestamp_seconds",
			Help:      "Unix time of the last relay evaluation",
		}),
	}

	reg.MustRegister(
		m.frames,
		m.readingsStored,
		m.decodeFailures,
		m.storeErrors,
		m.transportFaults,
		m.settingWrites,
		m.cycles,
		m.relay,
		m.failClosed,
		m.temperature,
		m.humidity,
		m.lastDecision,
	)
	return m
}

func (m *Metrics) FrameReceived(time.Time) {
	m.frames.Inc()
}

func (m *Metrics) ReadingStored(r logic.Reading) {
	sensor := string(r.Sensor)
	m.readingsStored.WithLabelValues(sensor).Inc()
	m.temperature.WithLabelValues(sensor).Set(r.Temperature)
	m.humidity.WithLabelValues(sensor).Set(r.Humidity)
}

func (m *Metrics) DecodeFailed(err *decode.DecodeError) {
	m.decodeFailures.WithLabelValues(err.Kind()).Inc()
}

func (m *Metrics) StoreFailed(op store.Op, _ error) {
	m.storeErrors.WithLabelValues(string(op)).Inc()
}

func (m *Metrics) TransportFault(error) {
	m.transportFaults.Inc()
}

func (m *Metrics) SettingWritten(logic.Setting) {
	m.settingWrites.Inc()
}

func (m *Metrics) Evaluated(d control.Decision, now time.Time) {
	m.relay.WithLabelValues("pump").Set(boolToFloat(d.Relay.Pump))
	m.relay.WithLabelValues("fan").Set(boolToFloat(d.Relay.Fan))
	m.relay.WithLabelValues("speed").Set(boolToFloat(d.Relay.Speed))
	m.failClosed.Set(boolToFloat(d.FailClosed))
	m.lastDecision.Set(float64(now.Unix()))
}

func (m *Metrics) CycleDone(time.Time) {
	m.cycles.Inc()
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
