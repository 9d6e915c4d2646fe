// Package config loads daemon settings from an optional YAML file on top of
// built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/sound-monitor/internal/gpio"
	"github.com/sweeney/sound-monitor/internal/logging"
)

// Telemetry transports. Exactly one is active.
const (
	TransportThingSpeak = "thingspeak"
	TransportMQTT       = "mqtt"
	TransportInflux     = "influx"
)

// Defaults.
const (
	DefaultUplinkInterval  = 10 * time.Second
	DefaultUplinkHost      = "api.thingspeak.com"
	DefaultUplinkPort      = 80
	DefaultJobTimeout      = 15 * time.Second
	DefaultConnectTimeout  = 10 * time.Second
	DefaultConnectAttempts = 1
	DefaultConnectBackoff  = 5 * time.Second
	DefaultClientPrefix    = "sound-monitor"
	DefaultHeartbeat       = 15 * time.Minute
	DefaultSerialPort      = "/dev/ttyAMA0"
	DefaultBaud            = 115200
	DefaultGPIOChip        = "gpiochip0"
	DefaultDebounce        = 50 * time.Millisecond
	DefaultHTTPAddr        = ":80"
)

// Config is the complete daemon configuration.
type Config struct {
	WiFi   WiFiConfig   `yaml:"wifi"`
	Uplink UplinkConfig `yaml:"uplink"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
	Influx InfluxConfig `yaml:"influx"`
	ADC    ADCConfig    `yaml:"adc"`
	GPIO   GPIOConfig   `yaml:"gpio"`
	HTTP   HTTPConfig   `yaml:"http"`
	Log    LogConfig    `yaml:"log"`
}

// WiFiConfig controls the connectivity attempt made when the device starts.
// With no SSID the attempt is a reachability probe of the uplink host.
type WiFiConfig struct {
	SSID            string        `yaml:"ssid"`
	Passphrase      string        `yaml:"passphrase"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
	ConnectAttempts int           `yaml:"connect_attempts"`
	ConnectBackoff  time.Duration `yaml:"connect_backoff"`
}

// UplinkConfig selects and configures the telemetry sink.
type UplinkConfig struct {
	Transport  string        `yaml:"transport"`
	Host       string        `yaml:"host"`
	Port       int           `yaml:"port"`
	APIKey     string        `yaml:"api_key"`
	Interval   time.Duration `yaml:"interval"`
	JobTimeout time.Duration `yaml:"job_timeout"`
}

// MQTTConfig configures the broker used for lifecycle events and, when
// selected, reading delivery. An empty broker disables MQTT.
type MQTTConfig struct {
	Broker       string        `yaml:"broker"`
	ClientPrefix string        `yaml:"client_prefix"`
	Heartbeat    time.Duration `yaml:"heartbeat"`
}

// InfluxConfig configures the InfluxDB v2 transport.
type InfluxConfig struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
	Device string `yaml:"device"`
}

// ADCConfig locates the serial microphone front end.
type ADCConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// GPIOConfig locates the start and stop buttons.
type GPIOConfig struct {
	Chip     string        `yaml:"chip"`
	PinStart int           `yaml:"pin_start"`
	PinStop  int           `yaml:"pin_stop"`
	Debounce time.Duration `yaml:"debounce"`
}

// HTTPConfig configures the status server. An empty address disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures the root logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		WiFi: WiFiConfig{
			ConnectTimeout:  DefaultConnectTimeout,
			ConnectAttempts: DefaultConnectAttempts,
			ConnectBackoff:  DefaultConnectBackoff,
		},
		Uplink: UplinkConfig{
			Transport:  TransportThingSpeak,
			Host:       DefaultUplinkHost,
			Port:       DefaultUplinkPort,
			Interval:   DefaultUplinkInterval,
			JobTimeout: DefaultJobTimeout,
		},
		MQTT: MQTTConfig{
			ClientPrefix: DefaultClientPrefix,
			Heartbeat:    DefaultHeartbeat,
		},
		Influx: InfluxConfig{
			Bucket: "sound",
			Device: DefaultClientPrefix,
		},
		ADC: ADCConfig{
			Port: DefaultSerialPort,
			Baud: DefaultBaud,
		},
		GPIO: GPIOConfig{
			Chip:     DefaultGPIOChip,
			PinStart: gpio.DefaultPinStart,
			PinStop:  gpio.DefaultPinStop,
			Debounce: DefaultDebounce,
		},
		HTTP: HTTPConfig{Addr: DefaultHTTPAddr},
		Log:  LogConfig{Level: "info", Format: logging.FormatAuto},
	}
}

// Load returns the defaults overlaid with the YAML file at path. An empty
// path returns the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	if err := Decode(f, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode overlays YAML from r onto cfg. An empty document leaves cfg as is.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate reports every impossible setting.
func (c Config) Validate() error {
	var errs []error

	switch c.Uplink.Transport {
	case TransportThingSpeak:
		if c.Uplink.Host == "" {
			errs = append(errs, errors.New("uplink.host is required"))
		}
		if c.Uplink.Port <= 0 || c.Uplink.Port > 65535 {
			errs = append(errs, fmt.Errorf("uplink.port %d out of range", c.Uplink.Port))
		}
	case TransportMQTT:
		if c.MQTT.Broker == "" {
			errs = append(errs, errors.New("mqtt.broker is required for the mqtt transport"))
		}
	case TransportInflux:
		if c.Influx.URL == "" || c.Influx.Bucket == "" {
			errs = append(errs, errors.New("influx.url and influx.bucket are required for the influx transport"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown uplink.transport %q", c.Uplink.Transport))
	}
	if c.Uplink.Interval <= 0 {
		errs = append(errs, fmt.Errorf("uplink.interval must be positive, got %s", c.Uplink.Interval))
	}
	if c.Uplink.JobTimeout < 0 {
		errs = append(errs, fmt.Errorf("uplink.job_timeout must not be negative, got %s", c.Uplink.JobTimeout))
	}

	if c.WiFi.ConnectTimeout <= 0 {
		errs = append(errs, fmt.Errorf("wifi.connect_timeout must be positive, got %s", c.WiFi.ConnectTimeout))
	}
	if c.WiFi.ConnectAttempts < 1 {
		errs = append(errs, fmt.Errorf("wifi.connect_attempts must be at least 1, got %d", c.WiFi.ConnectAttempts))
	}
	if c.WiFi.ConnectBackoff < 0 {
		errs = append(errs, fmt.Errorf("wifi.connect_backoff must not be negative, got %s", c.WiFi.ConnectBackoff))
	}

	if c.MQTT.Heartbeat < 0 {
		errs = append(errs, fmt.Errorf("mqtt.heartbeat must not be negative, got %s", c.MQTT.Heartbeat))
	}

	if c.ADC.Port == "" {
		errs = append(errs, errors.New("adc.port is required"))
	}
	if c.ADC.Baud <= 0 {
		errs = append(errs, fmt.Errorf("adc.baud must be positive, got %d", c.ADC.Baud))
	}

	if c.GPIO.PinStart < 0 || c.GPIO.PinStop < 0 {
		errs = append(errs, errors.New("gpio pins must not be negative"))
	}
	if c.GPIO.PinStart == c.GPIO.PinStop {
		errs = append(errs, fmt.Errorf("gpio.pin_start and gpio.pin_stop are both %d", c.GPIO.PinStart))
	}

	if _, ok := logging.ParseLevel(c.Log.Level); !ok {
		errs = append(errs, fmt.Errorf("unknown log.level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case logging.FormatAuto, logging.FormatJSON, logging.FormatConsole:
	default:
		errs = append(errs, fmt.Errorf("unknown log.format %q", c.Log.Format))
	}

	return errors.Join(errs...)
}
