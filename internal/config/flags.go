package config

import (
	"flag"
	"time"
)

// Overrides are the command-line flags that can replace file values.
type Overrides struct {
	serial string
	baud   int
	dsn    string
	broker string
	http   string
	wait   time.Duration
	pause  time.Duration
}

// RegisterFlags adds the override flags to fs, showing the built-in defaults.
func RegisterFlags(fs *flag.FlagSet) *Overrides {
	d := Defaults()
	o := &Overrides{}
	fs.StringVar(&o.serial, "serial", d.Serial.Device, "Serial device of the radio coordinator")
	fs.IntVar(&o.baud, "baud", d.Serial.Baud, "Serial baud rate")
	fs.StringVar(&o.dsn, "dsn", d.Store.DSN, "MySQL DSN of the cooler database")
	fs.StringVar(&o.broker, "broker", d.MQTT.Broker, "MQTT broker address (empty to disable)")
	fs.StringVar(&o.http, "http", d.HTTP.Addr, "HTTP status address (empty to disable)")
	fs.DurationVar(&o.wait, "wait", d.Loop.Wait, "How long each cycle listens for frames")
	fs.DurationVar(&o.pause, "pause", d.Loop.Pause, "Pause between cycles")
	return o
}

// Apply copies only the flags that were set on the command line into cfg.
func (o *Overrides) Apply(fs *flag.FlagSet, cfg *Config) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "serial":
			cfg.Serial.Device = o.serial
		case "baud":
			cfg.Serial.Baud = o.baud
		case "dsn":
			cfg.Store.DSN = o.dsn
		case "broker":
			cfg.MQTT.Broker = o.broker
		case "http":
			cfg.HTTP.Addr = o.http
		case "wait":
			cfg.Loop.Wait = o.wait
		case "pause":
			cfg.Loop.Pause = o.pause
		}
	})
}
