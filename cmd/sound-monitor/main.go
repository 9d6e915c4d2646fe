// Command sound-monitor samples a microphone front end, shows the loudness on
// a display and LED matrix, and uploads readings to a telemetry endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/sound-monitor/internal/adc"
	"github.com/sweeney/sound-monitor/internal/clock"
	"github.com/sweeney/sound-monitor/internal/config"
	"github.com/sweeney/sound-monitor/internal/device"
	"github.com/sweeney/sound-monitor/internal/display"
	"github.com/sweeney/sound-monitor/internal/gpio"
	"github.com/sweeney/sound-monitor/internal/led"
	"github.com/sweeney/sound-monitor/internal/logging"
	"github.com/sweeney/sound-monitor/internal/loudness"
	"github.com/sweeney/sound-monitor/internal/metrics"
	"github.com/sweeney/sound-monitor/internal/mqtt"
	"github.com/sweeney/sound-monitor/internal/network"
	"github.com/sweeney/sound-monitor/internal/status"
	"github.com/sweeney/sound-monitor/internal/uplink"
	"github.com/sweeney/sound-monitor/internal/web"
)

type options struct {
	configPath   string
	printReading bool
	// overrides holds the flags given explicitly on the command line.
	overrides map[string]string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("sound-monitor", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var o options
	fs.StringVar(&o.configPath, "config", "", "Path to YAML config file (defaults only when empty)")
	fs.BoolVar(&o.printReading, "print-reading", false, "Acquire one burst, print the reading and exit")
	fs.String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	fs.String("log-format", logging.FormatAuto, "Log format (auto, json, console)")
	fs.String("http", config.DefaultHTTPAddr, "HTTP status address (empty to disable)")
	fs.String("broker", "", "MQTT broker address (empty to disable)")
	fs.String("transport", config.TransportThingSpeak, "Telemetry transport (thingspeak, mqtt, influx)")
	fs.Duration("interval", config.DefaultUplinkInterval, "Minimum time between uploads")
	fs.Duration("heartbeat", config.DefaultHeartbeat, "MQTT heartbeat interval (0 to disable)")
	fs.String("ssid", "", "Wi-Fi network to join on start (empty probes the uplink host instead)")

	if err := fs.Parse(args); err != nil {
		return o, err
	}

	o.overrides = map[string]string{}
	fs.Visit(func(f *flag.Flag) {
		o.overrides[f.Name] = f.Value.String()
	})
	return o, nil
}

// applyOverrides copies explicit command-line values over the loaded config.
func applyOverrides(cfg *config.Config, ov map[string]string) error {
	for name, v := range ov {
		switch name {
		case "log-level":
			cfg.Log.Level = v
		case "log-format":
			cfg.Log.Format = v
		case "http":
			cfg.HTTP.Addr = v
		case "broker":
			cfg.MQTT.Broker = v
		case "transport":
			cfg.Uplink.Transport = v
		case "ssid":
			cfg.WiFi.SSID = v
		case "interval", "heartbeat":
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("flag -%s: %w", name, err)
			}
			if name == "interval" {
				cfg.Uplink.Interval = d
			} else {
				cfg.MQTT.Heartbeat = d
			}
		}
	}
	return nil
}

func loadConfig(o options) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, err
	}
	if err := applyOverrides(&cfg, o.overrides); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		boot := logging.New(os.Stderr, "info", logging.FormatAuto)
		boot.Fatal().Err(err).Msg("fatal")
	}

	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err := run(cfg, opts.printReading, logger); err != nil {
		logger.Fatal().Err(err).Msg("fatal")
	}
}

func run(cfg config.Config, printReading bool, logger zerolog.Logger) error {
	// Initialize the microphone front end
	sampler, err := adc.NewSerialSampler(cfg.ADC.Port, cfg.ADC.Baud, logging.Component(logger, "adc"))
	if err != nil {
		return fmt.Errorf("init adc: %w", err)
	}
	defer sampler.Close()

	// Print reading mode
	if printReading {
		return printOneReading(os.Stdout, sampler, time.Now())
	}

	// Initialize GPIO
	gpioReader, err := gpio.NewRealReader(cfg.GPIO.Chip, cfg.GPIO.PinStart, cfg.GPIO.PinStop, cfg.GPIO.Debounce)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer gpioReader.Close()

	// Initialize MQTT when a broker is configured
	var (
		publisher  mqtt.Publisher
		mqttStatus mqtt.ConnectionStatus
	)
	if cfg.MQTT.Broker != "" {
		p, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, mqtt.ClientID(cfg.MQTT.ClientPrefix), logging.Component(logger, "mqtt"))
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer p.Close()
		publisher, mqttStatus = p, p
	}

	transport, closeTransport, err := newTransport(cfg, publisher)
	if err != nil {
		return fmt.Errorf("init uplink: %w", err)
	}
	defer closeTransport()

	m := metrics.New()
	sched := uplink.NewScheduler(transport, cfg.Uplink.Interval, logging.Component(logger, "uplink"))
	sched.SetJobTimeout(cfg.Uplink.JobTimeout)
	sched.OnOutcome = func(o uplink.Outcome) {
		m.ObserveUplink(o.Stage == uplink.StageDone)
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		CycleMs:          device.CycleInterval.Milliseconds(),
		UplinkIntervalMs: sched.Interval().Milliseconds(),
		HeartbeatMs:      cfg.MQTT.Heartbeat.Milliseconds(),
		Transport:        transport.Name(),
		UplinkHost:       uplinkTarget(cfg),
		Broker:           cfg.MQTT.Broker,
		HTTPAddr:         cfg.HTTP.Addr,
	})
	if info := readNetworkInfo(); info != nil {
		tracker.SetNetwork(info)
	}

	clk := clock.NewReal()
	machine := device.New(device.Deps{
		Input:    gpioReader,
		Sampler:  sampler,
		Display:  display.NewLogDisplay(logging.Component(logger, "display")),
		Strip:    led.NewLogStrip(led.Count, logging.Component(logger, "led")),
		LEDCount: led.Count,
		Network: &network.Connector{
			Link:     newLink(cfg, logging.Component(logger, "network")),
			Attempts: cfg.WiFi.ConnectAttempts,
			Timeout:  cfg.WiFi.ConnectTimeout,
			Backoff:  cfg.WiFi.ConnectBackoff,
			Clock:    clk,
			Log:      logging.Component(logger, "network"),
		},
		Uplink:  sched,
		Clock:   clk,
		Log:     logging.Component(logger, "device"),
		Tracker: tracker,
		Metrics: m,
	})

	transitions := make(chan device.State, 16)
	machine.OnTransition = func(from, to device.State) {
		select {
		case transitions <- to:
		default:
			logger.Warn().Stringer("state", to).Msg("transition queue full, dropping state event")
		}
	}

	// Publish startup event with full status snapshot
	if publisher != nil {
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
		snap := tracker.Snapshot()
		startupEvent := mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      "STARTUP",
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
		}
		if err := publisher.PublishSystem(startupEvent); err != nil {
			logger.Warn().Err(err).Msg("failed to publish startup event")
		} else {
			logger.Info().Msg("published startup event")
		}
	}

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		ln, err := net.Listen("tcp", cfg.HTTP.Addr)
		if err != nil {
			return fmt.Errorf("http listen: %w", err)
		}
		srv := web.New(cfg.HTTP.Addr, tracker, m.Handler())
		go func() {
			if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("http server error")
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Info().Str("addr", cfg.HTTP.Addr).Msg("http status server listening")
	}

	var heartbeat <-chan time.Time
	if publisher != nil && cfg.MQTT.Heartbeat > 0 {
		ticker := time.NewTicker(cfg.MQTT.Heartbeat)
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	logger.Info().
		Str("transport", transport.Name()).
		Str("target", uplinkTarget(cfg)).
		Dur("interval", sched.Interval()).
		Str("broker", cfg.MQTT.Broker).
		Msg("started, waiting for start button")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(machine, publisher, mqttStatus, tracker, transitions, heartbeat, sigCh, time.Now, logger)
}

// runner is the part of device.Machine driven by runLoop.
type runner interface {
	Run(ctx context.Context) error
}

// runLoop runs the machine on its own goroutine and publishes lifecycle
// events from this one until a signal arrives. publisher may be nil.
func runLoop(machine runner, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, transitions <-chan device.State, heartbeat <-chan time.Time, sig <-chan os.Signal, now func() time.Time, logger zerolog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- machine.Run(ctx)
	}()

	publish := func(event, reason string, retained bool) {
		if publisher == nil {
			return
		}
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
		snap := tracker.Snapshot()
		ev := mqtt.SystemEvent{
			Timestamp:  now(),
			Event:      event,
			Reason:     reason,
			Retained:   retained,
			RawPayload: status.FormatStatusEvent(snap, event, reason),
		}
		if err := publisher.PublishSystem(ev); err != nil {
			logger.Warn().Err(err).Str("event", event).Msg("system event publish error")
		}
	}

	for {
		select {
		case s := <-sig:
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			logger.Info().Str("signal", signalName).Msg("shutting down")

			cancel()
			err := <-done
			drainTransitions(transitions, publish)

			publish("SHUTDOWN", signalName, true)
			logger.Info().Msg("published shutdown event")
			return err

		case err := <-done:
			return err

		case st := <-transitions:
			publish("STATE", st.String(), true)

		case <-heartbeat:
			// Refresh network info for heartbeat
			if net := readNetworkInfo(); net != nil {
				tracker.SetNetwork(net)
			}
			snap := tracker.Snapshot()
			logger.Info().
				Dur("uptime", snap.Uptime()).
				Str("state", snap.State).
				Int("cycles", snap.Cycles).
				Int("uploads", snap.Uplink.Delivered).
				Msg("heartbeat")
			publish("HEARTBEAT", "", false)
		}
	}
}

func drainTransitions(transitions <-chan device.State, publish func(event, reason string, retained bool)) {
	for {
		select {
		case st := <-transitions:
			publish("STATE", st.String(), true)
		default:
			return
		}
	}
}

// printOneReading acquires a single burst and prints it. The burst is fed
// through the filter until the window is full so the printed level is not
// diluted by empty slots.
func printOneReading(w io.Writer, sampler adc.Sampler, now time.Time) error {
	buf, err := sampler.Acquire()
	if err != nil {
		return fmt.Errorf("acquire: %w", err)
	}
	p := loudness.NewProcessor()
	var r loudness.Reading
	for i := 0; i < loudness.FilterWindowSize; i++ {
		r = p.Process(buf[:], now)
	}
	fmt.Fprintf(w, "dB: %.2f, class: %s, raw_power: %.2f, filtered_voltage: %.4f\n",
		r.Decibels, r.Class, r.RawPower, r.FilteredPower)
	return nil
}

func newTransport(cfg config.Config, publisher mqtt.Publisher) (uplink.Transport, func(), error) {
	switch cfg.Uplink.Transport {
	case config.TransportMQTT:
		if publisher == nil {
			return nil, nil, errors.New("mqtt transport needs a broker")
		}
		return uplink.NewMQTT(publisher), func() {}, nil
	case config.TransportInflux:
		in := uplink.NewInflux(cfg.Influx.URL, cfg.Influx.Token, cfg.Influx.Org, cfg.Influx.Bucket, cfg.Influx.Device)
		return in, in.Close, nil
	case config.TransportThingSpeak:
		return uplink.NewThingSpeak(cfg.Uplink.Host, cfg.Uplink.Port, cfg.Uplink.APIKey), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown transport %q", cfg.Uplink.Transport)
}

// uplinkTarget is the host:port the active transport talks to.
func uplinkTarget(cfg config.Config) string {
	switch cfg.Uplink.Transport {
	case config.TransportMQTT:
		return hostPort(cfg.MQTT.Broker, "1883")
	case config.TransportInflux:
		return hostPort(cfg.Influx.URL, "8086")
	}
	return net.JoinHostPort(cfg.Uplink.Host, strconv.Itoa(cfg.Uplink.Port))
}

func hostPort(rawURL, defaultPort string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	if u.Port() != "" {
		return u.Host
	}
	return net.JoinHostPort(u.Hostname(), defaultPort)
}

// newLink joins the configured Wi-Fi network, or with no SSID probes the
// uplink target to decide whether the network is usable.
func newLink(cfg config.Config, log zerolog.Logger) network.Link {
	if cfg.WiFi.SSID != "" {
		return network.NewNMCLILink(cfg.WiFi.SSID, cfg.WiFi.Passphrase, log)
	}
	return network.NewProbeLink(uplinkTarget(cfg))
}

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
