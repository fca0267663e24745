package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every runtime setting of the sentinel.
type Config struct {
	// Timing holds poll intervals and the episode thresholds.
	Timing Timing `yaml:"timing"`
	// Window is the suspicious time-of-day window.
	Window Window `yaml:"window"`
	// Hardware selects the GPIO driver and pins.
	Hardware Hardware `yaml:"hardware"`
	// Notify configures the notification transports.
	Notify Notify `yaml:"notify"`
	// Status configures the read-only status API.
	Status Status `yaml:"status"`
	// Connectivity configures the internet reachability probe.
	Connectivity Connectivity `yaml:"connectivity"`
	// Logging configures log level and the optional rotating log file.
	Logging Logging `yaml:"logging"`
}

// Timing holds intervals and thresholds used by the monitors.
type Timing struct {
	// PollInterval is how often the door sensor is read.
	PollInterval time.Duration `yaml:"poll_interval"`
	// DebounceInterval is the re-check delay after a raw OPEN reading.
	DebounceInterval time.Duration `yaml:"debounce_interval"`
	// EvalInterval is how often the open duration is evaluated.
	EvalInterval time.Duration `yaml:"eval_interval"`
	// ActuationInterval is how often the actuation logic is evaluated.
	ActuationInterval time.Duration `yaml:"actuation_interval"`
	// EnablePollInterval is how often the operator enable switch is read.
	EnablePollInterval time.Duration `yaml:"enable_poll_interval"`
	// NotifyDelay is how long the door may stay open before the operator is notified.
	NotifyDelay time.Duration `yaml:"notify_delay"`
	// HoldDuration is how long the opener relay is held HIGH.
	HoldDuration time.Duration `yaml:"hold_duration"`
	// CloseTimeout is the expected door travel time after actuation.
	CloseTimeout time.Duration `yaml:"close_timeout"`
	// RestartBackoff is the initial delay before a crashed monitor is restarted.
	RestartBackoff time.Duration `yaml:"restart_backoff"`
	// MaxRestartBackoff caps the restart delay of a repeatedly crashing monitor.
	MaxRestartBackoff time.Duration `yaml:"max_restart_backoff"`
}

// Window is the night-time range during which an open door is suspicious.
// An hour is suspicious when hour > PMHour or hour < AMHour.
type Window struct {
	// PMHour is the last non-suspicious evening hour (24h clock).
	PMHour int `yaml:"pm_hour"`
	// AMHour is the first non-suspicious morning hour (24h clock).
	AMHour int `yaml:"am_hour"`
	// Location is the IANA time zone used to compute the local hour.
	Location string `yaml:"location"`
}

// Hardware selects the GPIO driver and the pin assignment.
type Hardware struct {
	// Driver is either "periph" (real GPIO) or "simulated".
	Driver string `yaml:"driver"`
	// SensorPin is the reed switch input, e.g. "GPIO22".
	SensorPin string `yaml:"sensor_pin"`
	// SensorOpenLevel is the input level meaning OPEN ("high" or "low").
	SensorOpenLevel string `yaml:"sensor_open_level"`
	// EnablePin is the operator enable switch input; empty means always enabled.
	EnablePin string `yaml:"enable_pin"`
	// EnableActiveLevel is the input level meaning "enabled" ("high" or "low").
	EnableActiveLevel string `yaml:"enable_active_level"`
	// ActuatorPin drives the door opener relay.
	ActuatorPin string `yaml:"actuator_pin"`
	// LEDPin drives the status LED; empty disables the indicator.
	LEDPin string `yaml:"led_pin"`
	// SensorFaultThreshold is the number of consecutive failed reads that
	// raise the hardware fault flag.
	SensorFaultThreshold int `yaml:"sensor_fault_threshold"`
}

// Notify configures the notification dispatcher and its transports.
// A transport is active when its key field (program, server, broker) is set.
type Notify struct {
	// QueueSize is the capacity of the dispatcher queue.
	QueueSize int `yaml:"queue_size"`
	// Timeout bounds a single delivery attempt.
	Timeout time.Duration `yaml:"timeout"`
	// Command pipes the message to a local program such as mail(1).
	Command CommandNotify `yaml:"command"`
	// SMTP sends e-mail directly.
	SMTP SMTPNotify `yaml:"smtp"`
	// MQTT publishes to a broker topic.
	MQTT MQTTNotify `yaml:"mqtt"`
}

// CommandNotify runs a program with the message body on stdin.
type CommandNotify struct {
	// Program is the executable, e.g. "mail".
	Program string `yaml:"program"`
	// Args are passed to the program; "{subject}" is replaced with the message subject.
	Args []string `yaml:"args,omitempty"`
}

// SMTPNotify holds SMTP relay settings.
type SMTPNotify struct {
	Server   string   `yaml:"server"`
	Port     int      `yaml:"port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to,omitempty"`
}

// MQTTNotify holds MQTT broker settings.
type MQTTNotify struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	QoS      byte   `yaml:"qos"`
	Retained bool   `yaml:"retained"`
}

// Status configures the read-only gRPC status API.
type Status struct {
	// ListenAddress is where the API listens; empty disables it.
	ListenAddress string `yaml:"listen_address"`
	// Advertise registers the API over mDNS.
	Advertise bool `yaml:"advertise"`
	// Instance is the mDNS instance name.
	Instance string `yaml:"instance"`
}

// Connectivity configures the internet reachability probe.
type Connectivity struct {
	// Host is resolved on every probe; empty disables probing.
	Host string `yaml:"host"`
	// Interval is the time between probes.
	Interval time.Duration `yaml:"interval"`
	// Timeout bounds a single lookup.
	Timeout time.Duration `yaml:"timeout"`
}

// Logging configures log output.
type Logging struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// File is a strftime pattern for a rotating log file; empty disables it.
	File string `yaml:"file"`
	// MaxAge is how long rotated files are kept.
	MaxAge time.Duration `yaml:"max_age"`
	// RotationTime is how often a new file is started.
	RotationTime time.Duration `yaml:"rotation_time"`
}

const (
	// DefaultConfigFilename is the default filename for sentinel settings.
	DefaultConfigFilename = "garage-sentinel.yaml"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// DriverPeriph drives real GPIO through periph.io.
	DriverPeriph = "periph"
	// DriverSimulated runs against in-memory pins.
	DriverSimulated = "simulated"

	// LevelHigh and LevelLow name input levels in the configuration.
	LevelHigh = "high"
	LevelLow  = "low"
)

// Defaults of the reference installation.
const (
	DefaultPollInterval         = 2 * time.Second
	DefaultDebounceInterval     = 250 * time.Millisecond
	DefaultEvalInterval         = 250 * time.Millisecond
	DefaultActuationInterval    = time.Second
	DefaultEnablePollInterval   = time.Second
	DefaultNotifyDelay          = 20 * time.Minute
	DefaultHoldDuration         = 2 * time.Second
	DefaultCloseTimeout         = 45 * time.Second
	DefaultRestartBackoff       = time.Second
	DefaultMaxRestartBackoff    = 30 * time.Second
	DefaultPMHour               = 17
	DefaultAMHour               = 6
	DefaultSensorFaultThreshold = 3
	DefaultQueueSize            = 16
	DefaultNotifyTimeout        = 30 * time.Second
	DefaultConnectivityInterval = 3 * time.Second
	DefaultConnectivityTimeout  = 2 * time.Second
	DefaultStatusAddress        = ":50061"
	DefaultInstance             = "garage"
	DefaultMQTTTopic            = "garage/sentinel/notifications"
	DefaultMQTTClientID         = "garage-sentinel"
	DefaultSMTPPort             = 587
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errUnknownDriver is returned for an unsupported hardware driver.
	errUnknownDriver = errors.New("unknown hardware driver")
	// errUnknownLevel is returned for a level other than high or low.
	errUnknownLevel = errors.New("level must be high or low")
	// errPinRequired is returned when the periph driver lacks a mandatory pin.
	errPinRequired = errors.New("pin must be provided")
	// errHourOutOfRange is returned for window hours outside 0..23.
	errHourOutOfRange = errors.New("hour must be within 0..23")
	// errDebounceTooLong is returned when debounce is not shorter than polling.
	errDebounceTooLong = errors.New("debounce interval must be shorter than poll interval")
	// errHoldTooLong is returned when the relay hold is not shorter than the close timeout.
	errHoldTooLong = errors.New("hold duration must be shorter than close timeout")
	// errSMTPRecipients is returned when an SMTP server is set without recipients.
	errSMTPRecipients = errors.New("smtp requires from and at least one recipient")
	// errMQTTQoS is returned for an MQTT QoS above 2.
	errMQTTQoS = errors.New("mqtt qos must be 0, 1 or 2")
)

// Default returns the configuration of the reference installation with the
// simulated driver, so it runs on any machine.
func Default() *Config {
	return &Config{
		Timing: Timing{
			PollInterval:       DefaultPollInterval,
			DebounceInterval:   DefaultDebounceInterval,
			EvalInterval:       DefaultEvalInterval,
			ActuationInterval:  DefaultActuationInterval,
			EnablePollInterval: DefaultEnablePollInterval,
			NotifyDelay:        DefaultNotifyDelay,
			HoldDuration:       DefaultHoldDuration,
			CloseTimeout:       DefaultCloseTimeout,
			RestartBackoff:     DefaultRestartBackoff,
			MaxRestartBackoff:  DefaultMaxRestartBackoff,
		},
		Window: Window{
			PMHour:   DefaultPMHour,
			AMHour:   DefaultAMHour,
			Location: "Local",
		},
		Hardware: Hardware{
			Driver:               DriverSimulated,
			SensorOpenLevel:      LevelHigh,
			EnableActiveLevel:    LevelLow,
			SensorFaultThreshold: DefaultSensorFaultThreshold,
		},
		Notify: Notify{
			QueueSize: DefaultQueueSize,
			Timeout:   DefaultNotifyTimeout,
		},
		Status: Status{
			ListenAddress: DefaultStatusAddress,
			Instance:      DefaultInstance,
		},
		Connectivity: Connectivity{
			Interval: DefaultConnectivityInterval,
			Timeout:  DefaultConnectivityTimeout,
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// Load reads configuration from the provided path on top of Default and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions: the file may hold SMTP and MQTT credentials.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills unset durations and counters with defaults and checks the
// remaining settings for consistency.
//
//nolint:cyclop // A flat list of checks reads better than nested helpers.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	fillTimingDefaults(&cfg.Timing)

	if cfg.Timing.DebounceInterval >= cfg.Timing.PollInterval {
		return errDebounceTooLong
	}

	if cfg.Timing.HoldDuration >= cfg.Timing.CloseTimeout {
		return errHoldTooLong
	}

	if err := validateWindow(&cfg.Window); err != nil {
		return err
	}

	if err := validateHardware(&cfg.Hardware); err != nil {
		return err
	}

	if err := validateNotify(&cfg.Notify); err != nil {
		return err
	}

	if cfg.Status.ListenAddress != "" {
		if _, err := net.ResolveTCPAddr("tcp", cfg.Status.ListenAddress); err != nil {
			return fmt.Errorf("invalid status listen address: %w", err)
		}
	}

	if cfg.Status.Instance == "" {
		cfg.Status.Instance = DefaultInstance
	}

	if cfg.Connectivity.Interval <= 0 {
		cfg.Connectivity.Interval = DefaultConnectivityInterval
	}

	if cfg.Connectivity.Timeout <= 0 {
		cfg.Connectivity.Timeout = DefaultConnectivityTimeout
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	return nil
}

// Suspicious reports whether the hour falls inside the night-time window.
func (w Window) Suspicious(hour int) bool {
	return hour > w.PMHour || hour < w.AMHour
}

// LoadLocation resolves the configured time zone; empty means local time.
func (w Window) LoadLocation() (*time.Location, error) {
	if w.Location == "" || strings.EqualFold(w.Location, "local") {
		return time.Local, nil
	}

	loc, err := time.LoadLocation(w.Location)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", w.Location, err)
	}

	return loc, nil
}

// fillTimingDefaults replaces non-positive durations with defaults.
func fillTimingDefaults(t *Timing) {
	defaults := []struct {
		value    *time.Duration
		fallback time.Duration
	}{
		{&t.PollInterval, DefaultPollInterval},
		{&t.DebounceInterval, DefaultDebounceInterval},
		{&t.EvalInterval, DefaultEvalInterval},
		{&t.ActuationInterval, DefaultActuationInterval},
		{&t.EnablePollInterval, DefaultEnablePollInterval},
		{&t.NotifyDelay, DefaultNotifyDelay},
		{&t.HoldDuration, DefaultHoldDuration},
		{&t.CloseTimeout, DefaultCloseTimeout},
		{&t.RestartBackoff, DefaultRestartBackoff},
		{&t.MaxRestartBackoff, DefaultMaxRestartBackoff},
	}

	for _, d := range defaults {
		if *d.value <= 0 {
			*d.value = d.fallback
		}
	}

	if t.MaxRestartBackoff < t.RestartBackoff {
		t.MaxRestartBackoff = t.RestartBackoff
	}
}

func validateWindow(w *Window) error {
	for _, hour := range []int{w.PMHour, w.AMHour} {
		if hour < 0 || hour > 23 {
			return fmt.Errorf("window hour %d: %w", hour, errHourOutOfRange)
		}
	}

	if _, err := w.LoadLocation(); err != nil {
		return err
	}

	return nil
}

func validateHardware(h *Hardware) error {
	if h.Driver == "" {
		h.Driver = DriverSimulated
	}

	if h.SensorOpenLevel == "" {
		h.SensorOpenLevel = LevelHigh
	}

	if h.EnableActiveLevel == "" {
		h.EnableActiveLevel = LevelLow
	}

	if h.SensorFaultThreshold <= 0 {
		h.SensorFaultThreshold = DefaultSensorFaultThreshold
	}

	for _, level := range []string{h.SensorOpenLevel, h.EnableActiveLevel} {
		if level != LevelHigh && level != LevelLow {
			return fmt.Errorf("%q: %w", level, errUnknownLevel)
		}
	}

	switch h.Driver {
	case DriverSimulated:
		return nil
	case DriverPeriph:
		if h.SensorPin == "" {
			return fmt.Errorf("sensor: %w", errPinRequired)
		}

		if h.ActuatorPin == "" {
			return fmt.Errorf("actuator: %w", errPinRequired)
		}

		return nil
	default:
		return fmt.Errorf("%q: %w", h.Driver, errUnknownDriver)
	}
}

func validateNotify(n *Notify) error {
	if n.QueueSize <= 0 {
		n.QueueSize = DefaultQueueSize
	}

	if n.Timeout <= 0 {
		n.Timeout = DefaultNotifyTimeout
	}

	if n.SMTP.Server != "" {
		if n.SMTP.Port <= 0 {
			n.SMTP.Port = DefaultSMTPPort
		}

		if n.SMTP.From == "" || len(n.SMTP.To) == 0 {
			return errSMTPRecipients
		}
	}

	if n.MQTT.Broker != "" {
		if n.MQTT.QoS > 2 {
			return errMQTTQoS
		}

		if n.MQTT.Topic == "" {
			n.MQTT.Topic = DefaultMQTTTopic
		}

		if n.MQTT.ClientID == "" {
			n.MQTT.ClientID = DefaultMQTTClientID
		}
	}

	return nil
}
