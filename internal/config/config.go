// Package config loads daemon settings from an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/sweeney/swamp-cooler/internal/control"
	"github.com/sweeney/swamp-cooler/internal/gpio"
	"github.com/sweeney/swamp-cooler/internal/logic"
	"github.com/sweeney/swamp-cooler/internal/mqtt"
	"github.com/sweeney/swamp-cooler/internal/policy"
	"github.com/sweeney/swamp-cooler/internal/serial"
)

// Default sensor identities.
const (
	DefaultRoofID = "0013a200Ac1f102"
	DefaultHomeID = "0013a200Ac21216"
)

const (
	DefaultDSN       = "cooler:cooler@tcp(localhost:3306)/swamp_cooler?parseTime=true&loc=Local"
	DefaultBroker    = "tcp://192.168.1.200:1883"
	DefaultHTTPAddr  = ":80"
	DefaultHeartbeat = 15 * time.Minute
	DefaultSettle    = time.Second
)

type Serial struct {
	Device string        `yaml:"device"`
	Baud   int           `yaml:"baud"`
	Settle time.Duration `yaml:"settle"`
}

type Sensors struct {
	Roof string `yaml:"roof"`
	Home string `yaml:"home"`
}

// IDs maps each role to its device identifier.
func (s Sensors) IDs() map[logic.Role]string {
	return map[logic.Role]string{
		logic.RoleRoof: s.Roof,
		logic.RoleHome: s.Home,
	}
}

type GPIO struct {
	Chip string    `yaml:"chip"`
	Pins gpio.Pins `yaml:"pins"`
}

type Store struct {
	DSN string `yaml:"dsn"`
}

// Loop holds the cycle timing.
type Loop struct {
	Wait        time.Duration `yaml:"wait"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
	Pause       time.Duration `yaml:"pause"`
}

// MQTT configures telemetry fan-out. An empty broker disables it.
type MQTT struct {
	Broker     string        `yaml:"broker"`
	Prefix     string        `yaml:"prefix"`
	Heartbeat  time.Duration `yaml:"heartbeat"`
	BufferSize int           `yaml:"buffer_size"`
}

// HTTP configures the status server. An empty address disables it.
type HTTP struct {
	Addr string `yaml:"addr"`
}

// Config is the complete daemon configuration.
type Config struct {
	Serial  Serial           `yaml:"serial"`
	Sensors Sensors          `yaml:"sensors"`
	GPIO    GPIO             `yaml:"gpio"`
	Store   Store            `yaml:"store"`
	Loop    Loop             `yaml:"loop"`
	MQTT    MQTT             `yaml:"mqtt"`
	HTTP    HTTP             `yaml:"http"`
	Policy  policy.Threshold `yaml:"policy"`
}

// Defaults returns the configuration used when no file is given.
func Defaults() Config {
	return Config{
		Serial: Serial{
			Device: serial.DefaultDevice,
			Baud:   serial.DefaultBaudRate,
			Settle: DefaultSettle,
		},
		Sensors: Sensors{Roof: DefaultRoofID, Home: DefaultHomeID},
		GPIO:    GPIO{Chip: gpio.DefaultChip, Pins: gpio.DefaultPins},
		Store:   Store{DSN: DefaultDSN},
		Loop: Loop{
			Wait:        control.DefaultWait,
			ReadTimeout: control.DefaultReadTimeout,
			Pause:       control.DefaultPause,
		},
		MQTT: MQTT{
			Broker:     DefaultBroker,
			Prefix:     mqtt.DefaultPrefix,
			Heartbeat:  DefaultHeartbeat,
			BufferSize: mqtt.DefaultBufferSize,
		},
		HTTP:   HTTP{Addr: DefaultHTTPAddr},
		Policy: policy.DefaultThreshold(),
	}
}

// Load reads path over the defaults. Unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := Parse(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML into cfg, keeping values the document does not mention.
func Parse(data []byte, cfg *Config) error {
	return yaml.UnmarshalStrict(data, cfg)
}

// Validate reports every problem found, joined.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Serial.Device == "" {
		add("serial.device must be set")
	}
	if c.Serial.Baud <= 0 {
		add("serial.baud must be positive, got %d", c.Serial.Baud)
	}
	if c.Serial.Settle < 0 {
		add("serial.settle must not be negative, got %v", c.Serial.Settle)
	}

	if c.Sensors.Roof == "" || c.Sensors.Home == "" {
		add("sensors.roof and sensors.home must both be set")
	} else if c.Sensors.Roof == c.Sensors.Home {
		add("sensors.roof and sensors.home share identifier %q", c.Sensors.Roof)
	}

	if c.GPIO.Chip == "" {
		add("gpio.chip must be set")
	}
	if err := c.GPIO.Pins.Validate(); err != nil {
		add("gpio.pins: %w", err)
	}

	if strings.TrimSpace(c.Store.DSN) == "" {
		add("store.dsn must be set")
	}

	if c.Loop.Wait <= 0 {
		add("loop.wait must be positive, got %v", c.Loop.Wait)
	}
	if c.Loop.ReadTimeout <= 0 {
		add("loop.read_timeout must be positive, got %v", c.Loop.ReadTimeout)
	}
	if c.Loop.Pause <= 0 {
		add("loop.pause must be positive, got %v", c.Loop.Pause)
	}
	if c.Loop.ReadTimeout > c.Loop.Wait && c.Loop.Wait > 0 {
		add("loop.read_timeout %v exceeds loop.wait %v", c.Loop.ReadTimeout, c.Loop.Wait)
	}

	if c.MQTT.Heartbeat < 0 {
		add("mqtt.heartbeat must not be negative, got %v", c.MQTT.Heartbeat)
	}
	if c.MQTT.BufferSize < 0 {
		add("mqtt.buffer_size must not be negative, got %d", c.MQTT.BufferSize)
	}

	if err := c.Policy.Validate(); err != nil {
		add("policy: %w", err)
	}

	return errors.Join(errs...)
}
