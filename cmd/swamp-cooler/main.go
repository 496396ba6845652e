// Command swamp-cooler ingests rooftop and indoor telemetry and drives the
// evaporative cooler relays from the stored setting.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/swamp-cooler/internal/config"
	"github.com/sweeney/swamp-cooler/internal/control"
	"github.com/sweeney/swamp-cooler/internal/decode"
	"github.com/sweeney/swamp-cooler/internal/gpio"
	"github.com/sweeney/swamp-cooler/internal/logic"
	"github.com/sweeney/swamp-cooler/internal/metrics"
	"github.com/sweeney/swamp-cooler/internal/mqtt"
	"github.com/sweeney/swamp-cooler/internal/policy"
	"github.com/sweeney/swamp-cooler/internal/serial"
	"github.com/sweeney/swamp-cooler/internal/status"
	"github.com/sweeney/swamp-cooler/internal/store"
	"github.com/sweeney/swamp-cooler/internal/web"
)

// modes select a one-shot command instead of the daemon.
type modes struct {
	printState bool
	history    string
	days       int
	migrate    bool
}

func main() {
	configPath := flag.String("config", "", "YAML config file (optional)")
	overrides := config.RegisterFlags(flag.CommandLine)
	printState := flag.Bool("print-state", false, "Print current setting, readings and relay state, then exit")
	history := flag.String("history", "", "Print stored readings for a sensor (roof or home), then exit")
	days := flag.Int("days", 1, "Days of history for -history")
	migrate := flag.Bool("migrate", false, "Create or update the database tables before starting")

	flag.Parse()

	cfg := config.Defaults()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("fatal: %v", err)
		}
	}
	overrides.Apply(flag.CommandLine, &cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: invalid config: %v", err)
	}

	m := modes{printState: *printState, history: *history, days: *days, migrate: *migrate}
	if err := run(cfg, m); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config.Config, m modes) error {
	ctx := context.Background()

	st, err := store.OpenMySQL(cfg.Store.DSN, cfg.Sensors.IDs())
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer st.Close()

	if m.migrate {
		if err := st.Migrate(ctx); err != nil {
			return err
		}
		log.Printf("store: tables migrated")
	}

	if m.history != "" {
		return printHistory(ctx, os.Stdout, st, logic.Role(m.history), m.days)
	}

	if err := checkSetting(ctx, st); err != nil {
		return err
	}

	if m.printState {
		return printCurrentState(ctx, os.Stdout, st, cfg.Policy)
	}

	port, err := serial.NewRealPort(cfg.Serial.Device, cfg.Serial.Baud, cfg.Serial.Settle)
	if err != nil {
		return fmt.Errorf("init serial: %w", err)
	}
	defer port.Close()

	actuator, err := gpio.NewRealActuator(cfg.GPIO.Chip, cfg.GPIO.Pins)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer actuator.Close()

	instanceID := uuid.NewString()
	start := time.Now()
	tracker := status.NewTracker(start, status.Config{
		SerialDevice: cfg.Serial.Device,
		BaudRate:     cfg.Serial.Baud,
		WaitMs:       cfg.Loop.Wait.Milliseconds(),
		PauseMs:      cfg.Loop.Pause.Milliseconds(),
		HeartbeatMs:  cfg.MQTT.Heartbeat.Milliseconds(),
		Broker:       cfg.MQTT.Broker,
		HTTPAddr:     cfg.HTTP.Addr,
		InstanceID:   instanceID,
	})

	var publisher mqtt.Publisher = mqtt.Discard{}
	if cfg.MQTT.Broker != "" {
		publisher = mqtt.NewRealPublisher(mqtt.Options{
			Broker:             cfg.MQTT.Broker,
			Prefix:             cfg.MQTT.Prefix,
			InstanceID:         instanceID,
			BufferSize:         cfg.MQTT.BufferSize,
			OnConnectionChange: tracker.SetMQTTConnected,
		})
	}
	defer publisher.Close()

	reg := prometheus.NewRegistry()
	mtr := metrics.New(reg)

	rep := newReporter(tracker, publisher, cfg.MQTT.Heartbeat, start)
	rep.startup(start)

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, web.Options{
			Tracker: tracker,
			Store:   st,
			Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			MaxAge:  2 * (cfg.Loop.Wait + cfg.Loop.Pause),
		})
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	obs := control.Observers{rep, mtr}
	loop := &control.Loop{
		Port:        port,
		Decoder:     decode.NewDecoder(cfg.Sensors.IDs(), time.Now),
		Store:       st,
		Engine:      control.NewEngine(st, cfg.Policy, actuator, obs),
		Observer:    obs,
		Wait:        cfg.Loop.Wait,
		ReadTimeout: cfg.Loop.ReadTimeout,
		Pause:       cfg.Loop.Pause,
	}

	log.Printf("started: serial=%s wait=%v pause=%v broker=%q heartbeat=%v instance=%s",
		cfg.Serial.Device, cfg.Loop.Wait, cfg.Loop.Pause, cfg.MQTT.Broker, cfg.MQTT.Heartbeat, instanceID)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	return runLoop(loop, actuator, rep, time.Now, sigCh)
}

// runLoop runs the control loop until a signal arrives, then forces the
// relays off and publishes SHUTDOWN.
func runLoop(loop *control.Loop, actuator gpio.Actuator, rep *reporter, now func() time.Time, sig <-chan os.Signal) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- loop.Run(ctx)
	}()

	var reason string
	select {
	case s := <-sig:
		log.Printf("received %v, shutting down", s)
		reason = signalName(s)
		cancel()
		<-done
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			return err
		}
	}

	if err := actuator.Apply(logic.RelayOff); err != nil {
		log.Printf("gpio: failed to switch relays off: %v", err)
	}
	rep.shutdown(now(), reason)
	return nil
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// checkSetting fails when the settings table is empty.
func checkSetting(ctx context.Context, gw store.Gateway) error {
	_, err := gw.LatestSetting(ctx)
	if errors.Is(err, store.ErrNoSetting) {
		return fmt.Errorf("no row in cooler_settings; insert an initial setting before starting: %w", err)
	}
	if err != nil {
		return fmt.Errorf("check setting: %w", err)
	}
	return nil
}

func printHistory(ctx context.Context, w io.Writer, gw store.Gateway, role logic.Role, days int) error {
	if !role.Valid() {
		return fmt.Errorf("unknown sensor %q (want roof or home)", role)
	}
	readings, err := gw.ReadingsSince(ctx, role, days)
	if err != nil {
		return err
	}
	for _, r := range readings {
		fmt.Fprintf(w, "%s %s %.1f %.1f\n", r.ReceivedAt.UTC().Format(time.RFC3339), r.Sensor, r.Temperature, r.Humidity)
	}
	fmt.Fprintf(w, "%d readings from %s in the last %d day(s)\n", len(readings), role, days)
	return nil
}

// printCurrentState resolves the stored setting without writing to the
// store or touching the relays.
func printCurrentState(ctx context.Context, w io.Writer, gw store.Gateway, p policy.Policy) error {
	setting, err := gw.LatestSetting(ctx)
	if err != nil {
		return fmt.Errorf("read setting: %w", err)
	}
	fmt.Fprintf(w, "Setting: %s (%s), desired %.1f\n", setting.String(), setting.Mode, setting.DesiredTemperature)

	for _, role := range logic.Roles {
		r, err := gw.LatestReading(ctx, role)
		if err != nil {
			return fmt.Errorf("read %s: %w", role, err)
		}
		if r.IsSentinel() {
			fmt.Fprintf(w, "%s: no reading\n", role)
			continue
		}
		fmt.Fprintf(w, "%s: %.1f F %.1f%% at %s\n", role, r.Temperature, r.Humidity, r.ReceivedAt.UTC().Format(time.RFC3339))
	}

	eng := control.NewEngine(readOnly{gw}, p, gpio.NewFakeActuator(), nil)
	d, _ := eng.Refresh(ctx)
	fmt.Fprintf(w, "Relays: %s (pump=%s fan=%s speed=%s)\n", d.Label,
		logic.StateOf(d.Relay.Pump), logic.StateOf(d.Relay.Fan), logic.StateOf(d.Relay.Speed))
	if d.FailClosed {
		fmt.Fprintf(w, "Failed closed: %s\n", d.Reason)
	}
	return nil
}

// readOnly discards writes so a dry evaluation leaves the store untouched.
type readOnly struct {
	store.Gateway
}

func (readOnly) InsertReading(context.Context, logic.Reading) (int64, error) { return 0, nil }
func (readOnly) InsertSetting(context.Context, logic.Setting) error          { return nil }

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
