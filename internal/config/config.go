package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/sumoctl/internal/device"
	"github.com/danmuck/sumoctl/internal/logging"
	"github.com/rs/zerolog"
)

// Config is the resolved sumoctl.toml.
type Config struct {
	Device    device.Config
	HTTP      HTTPConfig
	Log       LogConfig
	Telemetry TelemetryConfig
}

type HTTPConfig struct {
	Addr        string
	CorsOrigins []string
}

// TelemetryConfig enables the NATS bridge when NATSURL is set.
type TelemetryConfig struct {
	NATSURL       string
	SubjectPrefix string
}

type LogConfig struct {
	Level     zerolog.Level
	Timestamp bool
	NoColor   bool
}

// sumoctl.toml key mapping.
type fileConfig struct {
	Device struct {
		Addr           string `toml:"addr"`
		DiscoveryPort  int    `toml:"discovery_port"`
		D2CPort        int    `toml:"d2c_port"`
		ControllerType string `toml:"controller_type"`
		ControllerName string `toml:"controller_name"`
		DialTimeout    string `toml:"dial_timeout"`
		ReadTimeout    string `toml:"read_timeout"`
		WriteTimeout   string `toml:"write_timeout"`
		MaxFrameBytes  uint32 `toml:"max_frame_bytes"`
		RetryAttempts  int    `toml:"retry_attempts"`
		RetryInitial   string `toml:"retry_initial_delay"`
		RetryMax       string `toml:"retry_max_delay"`
	} `toml:"device"`
	HTTP struct {
		Addr        string   `toml:"addr"`
		CorsOrigins []string `toml:"cors_origins"`
	} `toml:"http"`
	Log struct {
		Level     string `toml:"level"`
		Timestamp bool   `toml:"timestamp"`
		NoColor   bool   `toml:"no_color"`
	} `toml:"log"`
	Telemetry struct {
		NATSURL       string `toml:"nats_url"`
		SubjectPrefix string `toml:"subject_prefix"`
	} `toml:"telemetry"`
}

func DefaultConfig() Config {
	return Config{
		Device: device.DefaultConfig(),
		HTTP: HTTPConfig{
			Addr:        ":8080",
			CorsOrigins: []string{"http://localhost:3000"},
		},
		Log: LogConfig{
			Level:     zerolog.InfoLevel,
			Timestamp: true,
		},
		Telemetry: TelemetryConfig{
			SubjectPrefix: "sumoctl.d2c",
		},
	}
}

// Load decodes path over DefaultConfig and validates the result.
func Load(path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	cfg, err := overlay(DefaultConfig(), raw, meta)
	if err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

func overlay(cfg Config, raw fileConfig, meta toml.MetaData) (Config, error) {
	d := &cfg.Device
	if meta.IsDefined("device", "addr") {
		d.Addr = strings.TrimSpace(raw.Device.Addr)
	}
	if meta.IsDefined("device", "discovery_port") {
		d.DiscoveryPort = raw.Device.DiscoveryPort
	}
	if meta.IsDefined("device", "d2c_port") {
		d.D2CPort = raw.Device.D2CPort
	}
	if meta.IsDefined("device", "controller_type") {
		d.ControllerType = strings.TrimSpace(raw.Device.ControllerType)
	}
	if meta.IsDefined("device", "controller_name") {
		d.ControllerName = strings.TrimSpace(raw.Device.ControllerName)
	}
	if meta.IsDefined("device", "max_frame_bytes") {
		d.MaxFrameBytes = raw.Device.MaxFrameBytes
	}
	if meta.IsDefined("device", "retry_attempts") {
		d.Retry.Attempts = raw.Device.RetryAttempts
	}
	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"dial_timeout", raw.Device.DialTimeout, &d.DialTimeout},
		{"read_timeout", raw.Device.ReadTimeout, &d.ReadTimeout},
		{"write_timeout", raw.Device.WriteTimeout, &d.WriteTimeout},
		{"retry_initial_delay", raw.Device.RetryInitial, &d.Retry.InitialDelay},
		{"retry_max_delay", raw.Device.RetryMax, &d.Retry.MaxDelay},
	}
	for _, dur := range durations {
		if !meta.IsDefined("device", dur.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(dur.raw))
		if err != nil {
			return Config{}, fmt.Errorf("device.%s: %w", dur.key, err)
		}
		*dur.dst = v
	}

	if meta.IsDefined("http", "addr") {
		cfg.HTTP.Addr = strings.TrimSpace(raw.HTTP.Addr)
	}
	if meta.IsDefined("http", "cors_origins") {
		cfg.HTTP.CorsOrigins = raw.HTTP.CorsOrigins
	}

	if meta.IsDefined("log", "level") {
		lvl, ok := logging.ParseLevel(raw.Log.Level)
		if !ok {
			return Config{}, fmt.Errorf("log.level: unknown level %q", raw.Log.Level)
		}
		cfg.Log.Level = lvl
	}
	if meta.IsDefined("log", "timestamp") {
		cfg.Log.Timestamp = raw.Log.Timestamp
	}
	if meta.IsDefined("log", "no_color") {
		cfg.Log.NoColor = raw.Log.NoColor
	}

	if meta.IsDefined("telemetry", "nats_url") {
		cfg.Telemetry.NATSURL = strings.TrimSpace(raw.Telemetry.NATSURL)
	}
	if meta.IsDefined("telemetry", "subject_prefix") {
		cfg.Telemetry.SubjectPrefix = strings.TrimSpace(raw.Telemetry.SubjectPrefix)
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if err := cfg.Device.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		return fmt.Errorf("http config missing addr")
	}
	if cfg.Telemetry.NATSURL != "" && strings.TrimSpace(cfg.Telemetry.SubjectPrefix) == "" {
		return fmt.Errorf("telemetry config missing subject_prefix")
	}
	for _, d := range []time.Duration{
		cfg.Device.DialTimeout, cfg.Device.ReadTimeout, cfg.Device.WriteTimeout,
		cfg.Device.Retry.InitialDelay, cfg.Device.Retry.MaxDelay,
	} {
		if d < 0 {
			return fmt.Errorf("device timeouts and retry delays must not be negative")
		}
	}
	return nil
}

// LoggingConfig maps the [log] section onto the logging package.
func (c Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig(logging.ProfileRuntime)
	cfg.Level = c.Log.Level
	cfg.Timestamp = c.Log.Timestamp
	cfg.NoColor = c.Log.NoColor
	logging.ApplyEnvOverrides(&cfg)
	return cfg
}
