package device

import (
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/sumoctl/internal/arsdk/frame"
	"github.com/google/uuid"
)

// Config defines how the controller reaches a device.
type Config struct {
	Addr           string
	DiscoveryPort  int
	D2CPort        int
	ControllerType string
	ControllerName string
	DialTimeout    time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxFrameBytes  uint32
	Retry          Backoff
}

// DefaultConfig returns the Jumping Sumo access point defaults.
func DefaultConfig() Config {
	return Config{
		Addr:           "192.168.2.1",
		DiscoveryPort:  44444,
		D2CPort:        43210,
		ControllerType: "computer",
		DialTimeout:    5 * time.Second,
		ReadTimeout:    2 * time.Second,
		WriteTimeout:   time.Second,
		MaxFrameBytes:  64 * 1024,
		Retry: Backoff{
			Attempts:     3,
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
			Jitter:       true,
		},
	}
}

// ControllerID returns the configured name, or a generated one.
func (c Config) ControllerID() string {
	if name := strings.TrimSpace(c.ControllerName); name != "" {
		return name
	}
	return "sumoctl-" + uuid.NewString()
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("device config missing addr")
	}
	if c.DiscoveryPort <= 0 || c.DiscoveryPort > 65535 {
		return fmt.Errorf("device config discovery_port out of range: %d", c.DiscoveryPort)
	}
	if c.D2CPort <= 0 || c.D2CPort > 65535 {
		return fmt.Errorf("device config d2c_port out of range: %d", c.D2CPort)
	}
	if strings.TrimSpace(c.ControllerType) == "" {
		return fmt.Errorf("device config missing controller_type")
	}
	if c.MaxFrameBytes != 0 && c.MaxFrameBytes <= frame.HeaderLen {
		return fmt.Errorf("device config max_frame_bytes too small: %d", c.MaxFrameBytes)
	}
	if c.Retry.Attempts < 0 {
		return fmt.Errorf("device config retry_attempts must not be negative: %d", c.Retry.Attempts)
	}
	return nil
}
