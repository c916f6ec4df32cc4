package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/sumoctl/internal/testutil/testlog"
	"github.com/rs/zerolog"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sumoctl.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `
[device]
addr = "10.0.0.7"
d2c_port = 40000
read_timeout = "750ms"

[http]
addr = "127.0.0.1:9090"

[log]
level = "debug"
no_color = true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Device.Addr != "10.0.0.7" || cfg.Device.D2CPort != 40000 {
		t.Fatalf("device overrides not applied: %+v", cfg.Device)
	}
	if cfg.Device.ReadTimeout != 750*time.Millisecond {
		t.Fatalf("read timeout=%v", cfg.Device.ReadTimeout)
	}
	if cfg.Device.DiscoveryPort != 44444 || cfg.Device.WriteTimeout != time.Second {
		t.Fatalf("device defaults lost: %+v", cfg.Device)
	}
	if cfg.HTTP.Addr != "127.0.0.1:9090" || len(cfg.HTTP.CorsOrigins) != 1 {
		t.Fatalf("http config: %+v", cfg.HTTP)
	}
	if cfg.Log.Level != zerolog.DebugLevel || !cfg.Log.NoColor || !cfg.Log.Timestamp {
		t.Fatalf("log config: %+v", cfg.Log)
	}
}

func TestTemplateLoadsAsDefaults(t *testing.T) {
	path := writeConfig(t, Template())
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	def := DefaultConfig()
	if cfg.Device != def.Device {
		t.Fatalf("template device=%+v default=%+v", cfg.Device, def.Device)
	}
	if cfg.HTTP.Addr != def.HTTP.Addr || cfg.Log != def.Log || cfg.Telemetry != def.Telemetry {
		t.Fatalf("template http/log differ: %+v %+v", cfg.HTTP, cfg.Log)
	}
}

func TestLoadRetrySettings(t *testing.T) {
	path := writeConfig(t, `
[device]
retry_attempts = 5
retry_initial_delay = "10ms"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	r := cfg.Device.Retry
	if r.Attempts != 5 || r.InitialDelay != 10*time.Millisecond {
		t.Fatalf("retry overrides not applied: %+v", r)
	}
	if r.MaxDelay != 5*time.Second || r.Multiplier != 2 {
		t.Fatalf("retry defaults lost: %+v", r)
	}
}

func TestLoadTelemetrySection(t *testing.T) {
	path := writeConfig(t, `
[telemetry]
nats_url = "nats://127.0.0.1:4222"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Telemetry.NATSURL != "nats://127.0.0.1:4222" || cfg.Telemetry.SubjectPrefix != "sumoctl.d2c" {
		t.Fatalf("telemetry config: %+v", cfg.Telemetry)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"duration": "[device]\ndial_timeout = \"soon\"\n",
		"level":    "[log]\nlevel = \"loud\"\n",
		"port":     "[device]\ndiscovery_port = 0\n",
		"http":     "[http]\naddr = \"\"\n",
		"syntax":   "[device\n",
		"retries":  "[device]\nretry_attempts = -1\n",
		"backoff":  "[device]\nretry_max_delay = \"-1s\"\n",
		"subject":  "[telemetry]\nnats_url = \"nats://x\"\nsubject_prefix = \"\"\n",
	}
	for name, content := range cases {
		if _, err := Load(writeConfig(t, content)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil || !strings.Contains(err.Error(), "config load failed") {
		t.Fatalf("expected load failure, got %v", err)
	}
}

func TestWriteTemplateRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sumoctl.toml")
	if err := WriteTemplate(path, false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	if err := WriteTemplate(path, false); err == nil {
		t.Fatalf("expected overwrite refusal")
	}
	if err := WriteTemplate(path, true); err != nil {
		t.Fatalf("forced overwrite: %v", err)
	}
}
