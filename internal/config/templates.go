package config

import (
	"fmt"
	"os"
)

// Template returns a commented sumoctl.toml holding the defaults.
func Template() string {
	return template
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const template = `# sumoctl configuration

[device]
addr = "192.168.2.1"
discovery_port = 44444
d2c_port = 43210
controller_type = "computer"
# controller_name defaults to sumoctl-<uuid>
controller_name = ""
dial_timeout = "5s"
read_timeout = "2s"
write_timeout = "1s"
max_frame_bytes = 65536
retry_attempts = 3
retry_initial_delay = "250ms"
retry_max_delay = "5s"

[http]
addr = ":8080"
cors_origins = ["http://localhost:3000"]

[log]
level = "info"
timestamp = true
no_color = false

[telemetry]
# forward device events to NATS when set, e.g. "nats://127.0.0.1:4222"
nats_url = ""
subject_prefix = "sumoctl.d2c"
`
