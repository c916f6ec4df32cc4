package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/danmuck/sumoctl/internal/arsdk/catalog"
	"github.com/danmuck/sumoctl/internal/arsdk/command"
	"github.com/danmuck/sumoctl/internal/arsdk/frame"
	"github.com/danmuck/sumoctl/internal/builder"
	"github.com/danmuck/sumoctl/internal/config"
	"github.com/danmuck/sumoctl/internal/device"
	"github.com/danmuck/sumoctl/internal/logging"
	"github.com/danmuck/sumoctl/internal/server"
	"github.com/danmuck/sumoctl/internal/telemetry"
	"github.com/rs/zerolog/log"
)

const usage = `usage: sumoctl <command> [flags] [args]

commands:
  encode    build a frame from a catalogue command and print its hex
  decode    decode a hex frame
  roles     list send and receive buffer roles
  commands  list the feature catalogue
  send      send a catalogue command to the device
  serve     run the HTTP control surface
  config    write (init) or check (validate) a config file
`

var errUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
		}
		fmt.Fprintf(os.Stderr, "sumoctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "encode":
		return runEncode(rest, out)
	case "decode":
		return runDecode(rest, out)
	case "roles":
		return runRoles(out)
	case "commands":
		return runCommands(out)
	case "send":
		return runSend(ctx, rest, out)
	case "serve":
		return runServe(ctx, rest)
	case "config":
		return runConfig(rest, out)
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func runEncode(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	typ := fs.String("type", frame.TypeDataWithAck.String(), "frame type: ack|data|low_latency|data_with_ack")
	send := fs.String("send", "", "send role: pong|no_ack|ack|emergency|video_ack")
	receive := fs.String("receive", "", "receive role: ping|video|event|navdata|ack")
	buffer := fs.Int("buffer", -1, "raw buffer id (0-255)")
	seq := fs.Uint("seq", 0, "sequence number (0-255)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("%w: encode needs a command id", errUsage)
	}
	if *seq > 255 {
		return fmt.Errorf("seq out of range: %d", *seq)
	}
	params, err := parseParams(fs.Args()[1:])
	if err != nil {
		return err
	}

	req := server.EncodeRequest{
		Type:     *typ,
		Send:     *send,
		Receive:  *receive,
		Sequence: uint8(*seq),
		Command:  fs.Arg(0),
		Params:   params,
	}
	if *buffer >= 0 {
		if *buffer > 255 {
			return fmt.Errorf("buffer out of range: %d", *buffer)
		}
		id := uint8(*buffer)
		req.BufferID = &id
	}
	if req.BufferID == nil && req.Send == "" && req.Receive == "" {
		req.Send = builder.SendAck.String()
	}

	f, err := server.BuildFrame(catalog.Default(), req)
	if err != nil {
		return err
	}
	b, err := frame.Encode(f)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, hex.EncodeToString(b))
	return nil
}

func runDecode(args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: decode needs a hex frame", errUsage)
	}
	raw, err := hex.DecodeString(strings.Join(args, ""))
	if err != nil {
		return fmt.Errorf("decode hex: %w", err)
	}
	f, err := frame.Decode(raw)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "type=%s buffer=%s(%d) seq=%d len=%d\n", f.Type, f.BufferID, uint8(f.BufferID), f.Sequence, f.Len())
	if f.Feature != nil {
		name, ok := catalog.Default().Name(*f.Feature)
		if !ok {
			name = f.Feature.String()
		}
		fmt.Fprintf(out, "feature=%s args=%s\n", name, hex.EncodeToString(f.Feature.Args))
	}
	return nil
}

func runRoles(out io.Writer) error {
	fmt.Fprintln(out, "send:")
	for _, r := range builder.SendBuffers() {
		fmt.Fprintf(out, "  %-10s %3d\n", r, uint8(r.BufferID()))
	}
	fmt.Fprintln(out, "receive:")
	for _, r := range builder.ReceiveBuffers() {
		fmt.Fprintf(out, "  %-10s %3d\n", r, uint8(r.BufferID()))
	}
	return nil
}

func runCommands(out io.Writer) error {
	for _, spec := range catalog.Default().List() {
		fmt.Fprintf(out, "%-40s %s\n", spec.ID, spec.Description)
	}
	return nil
}

func runSend(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config path (defaults built in)")
	typ := fs.String("type", frame.TypeDataWithAck.String(), "frame type")
	role := fs.String("send", builder.SendAck.String(), "send role")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("%w: send needs a command id", errUsage)
	}
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	t, err := frame.ParseType(*typ)
	if err != nil {
		return err
	}
	r, err := builder.ParseSendBuffer(*role)
	if err != nil {
		return err
	}
	params, err := parseParams(fs.Args()[1:])
	if err != nil {
		return err
	}
	feat, err := catalog.Default().Build(fs.Arg(0), params)
	if err != nil {
		return err
	}

	link, err := device.DialRetry(ctx, cfg.Device, logging.Component("device"))
	if err != nil {
		return err
	}
	defer link.Close()

	f, err := link.SendFeature(ctx, t, r, feat)
	if err != nil {
		return err
	}
	b, err := frame.Encode(f)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "sent %s seq=%d %s\n", fs.Arg(0), f.Sequence, hex.EncodeToString(b))
	return nil
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config path (defaults built in)")
	noLink := fs.Bool("no-link", false, "serve without connecting to a device")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}

	var sender server.Sender
	if !*noLink {
		link, err := device.DialRetry(ctx, cfg.Device, logging.Component("device"))
		if err != nil {
			return err
		}
		defer link.Close()
		sender = link

		if cfg.Telemetry.NATSURL != "" {
			logger := logging.Component("telemetry")
			nc, err := telemetry.Connect(cfg.Telemetry.NATSURL, logger)
			if err != nil {
				return err
			}
			defer nc.Drain()
			bridge := telemetry.NewBridge(link, nc, cfg.Telemetry.SubjectPrefix, catalog.Default(), logger)
			go func() {
				if err := bridge.Run(ctx); err != nil {
					logger.Error().Err(err).Msg("telemetry bridge stopped")
				}
			}()
		} else {
			go func() {
				if err := link.Drain(ctx); err != nil {
					log.Error().Err(err).Msg("device receive loop stopped")
				}
			}()
		}
	}

	srv := server.New(cfg.HTTP.Addr, cfg.HTTP.CorsOrigins, catalog.Default(), sender, logging.Component("http"))
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve() }()
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		return nil
	case err := <-errCh:
		return err
	}
}

func runConfig(args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: config needs init or validate", errUsage)
	}
	fs := flag.NewFlagSet("config "+args[0], flag.ContinueOnError)
	path := fs.String("path", "sumoctl.toml", "config file path")
	force := fs.Bool("force", false, "overwrite existing config file")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	switch args[0] {
	case "init":
		if err := config.WriteTemplate(*path, *force); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote config template to %s\n", *path)
	case "validate":
		if _, err := config.Load(*path); err != nil {
			return err
		}
		fmt.Fprintf(out, "validated config at %s\n", *path)
	default:
		return fmt.Errorf("%w: unknown config action %q", errUsage, args[0])
	}
	return nil
}

// loadConfig reads path, or the built-in defaults when path is empty, and
// applies its logging section.
func loadConfig(path string) (config.Config, error) {
	cfg := config.DefaultConfig()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	logging.Apply(cfg.LoggingConfig())
	log.Debug().Str("path", path).Str("device", cfg.Device.Addr).Msg("config loaded")
	return cfg, nil
}

func parseParams(args []string) (command.Params, error) {
	params := command.Params{}
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("%w: param %q is not key=value", errUsage, arg)
		}
		params[strings.TrimSpace(k)] = v
	}
	return params, nil
}
