// Package telemetry forwards device-to-controller frames to a NATS subject tree.
package telemetry

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/sumoctl/internal/arsdk/command"
	"github.com/danmuck/sumoctl/internal/arsdk/frame"
	"github.com/danmuck/sumoctl/internal/device"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const DefaultSubjectPrefix = "sumoctl.d2c"

// Receiver yields decoded frames from a device.
type Receiver interface {
	Receive(ctx context.Context) (frame.Frame, error)
}

// Publisher is the part of *nats.Conn the bridge uses.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Event is the JSON body published for every received frame.
type Event struct {
	Type       string    `json:"type"`
	BufferID   uint8     `json:"buffer_id"`
	Buffer     string    `json:"buffer"`
	Sequence   uint8     `json:"sequence"`
	Command    string    `json:"command,omitempty"`
	Project    string    `json:"project,omitempty"`
	Class      uint8     `json:"class"`
	Cmd        uint16    `json:"cmd"`
	Args       string    `json:"args,omitempty"`
	Payload    string    `json:"payload,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

type Bridge struct {
	rx       Receiver
	pub      Publisher
	prefix   string
	registry *command.Registry
	logger   zerolog.Logger
}

func NewBridge(rx Receiver, pub Publisher, prefix string, registry *command.Registry, logger zerolog.Logger) *Bridge {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &Bridge{rx: rx, pub: pub, prefix: prefix, registry: registry, logger: logger}
}

// Connect opens the NATS connection the bridge publishes on.
func Connect(url string, logger zerolog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("sumoctl"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: nats connect %s: %w", url, err)
	}
	return nc, nil
}

// Subject returns the subject frames on id are published to.
func (b *Bridge) Subject(id frame.BufferID) string {
	return b.prefix + "." + id.String()
}

// Run forwards frames until ctx ends or the link closes. Read timeouts and
// undecodable datagrams are skipped.
func (b *Bridge) Run(ctx context.Context) error {
	for {
		f, err := b.rx.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, device.ErrLinkClosed) {
				return nil
			}
			if device.IsTransient(err) {
				continue
			}
			return err
		}
		if err := b.Forward(f); err != nil {
			b.logger.Warn().Err(err).Str("buffer", f.BufferID.String()).Msg("telemetry publish failed")
		}
	}
}

// Forward publishes one frame.
func (b *Bridge) Forward(f frame.Frame) error {
	ev := Event{
		Type:       f.Type.String(),
		BufferID:   uint8(f.BufferID),
		Buffer:     f.BufferID.String(),
		Sequence:   f.Sequence,
		ReceivedAt: time.Now().UTC(),
	}
	if f.Feature != nil {
		if b.registry != nil {
			ev.Command, _ = b.registry.Name(*f.Feature)
		}
		ev.Project = f.Feature.Project.String()
		ev.Class = f.Feature.Class
		ev.Cmd = f.Feature.Command
		ev.Args = hex.EncodeToString(f.Feature.Args)
	} else if len(f.Payload) > 0 {
		ev.Payload = hex.EncodeToString(f.Payload)
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.pub.Publish(b.Subject(f.BufferID), body)
}
