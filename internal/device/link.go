package device

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/danmuck/sumoctl/internal/arsdk/command"
	"github.com/danmuck/sumoctl/internal/arsdk/frame"
	"github.com/danmuck/sumoctl/internal/builder"
	"github.com/danmuck/sumoctl/internal/observability"
	"github.com/rs/zerolog"
)

var ErrLinkClosed = errors.New("device: link closed")

// Link sends frames to the device on c2d and reads replies on d2c.
type Link struct {
	out    net.Conn
	in     net.PacketConn
	cfg    Config
	seq    *Sequencer
	logger zerolog.Logger

	writeMu sync.Mutex
	readMu  sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}
}

// Dial runs the discovery handshake and opens both UDP directions.
func Dial(ctx context.Context, cfg Config, logger zerolog.Logger) (*Link, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	in, err := net.ListenPacket("udp", net.JoinHostPort("", strconv.Itoa(cfg.D2CPort)))
	if err != nil {
		return nil, fmt.Errorf("device: listen d2c: %w", err)
	}
	session, err := Handshake(ctx, cfg)
	if err != nil {
		in.Close()
		return nil, err
	}
	addr := net.JoinHostPort(cfg.Addr, strconv.Itoa(session.C2DPort))
	d := net.Dialer{Timeout: cfg.DialTimeout}
	out, err := d.DialContext(ctx, "udp", addr)
	if err != nil {
		in.Close()
		return nil, fmt.Errorf("device: dial c2d %s: %w", addr, err)
	}
	logger.Info().
		Str("c2d", addr).
		Int("d2c_port", cfg.D2CPort).
		Int("fragment_size", session.FragmentSize).
		Msg("device link established")
	return NewLink(out, in, cfg, logger), nil
}

// NewLink wraps already-open connections.
func NewLink(out net.Conn, in net.PacketConn, cfg Config, logger zerolog.Logger) *Link {
	if cfg.MaxFrameBytes == 0 {
		cfg.MaxFrameBytes = DefaultConfig().MaxFrameBytes
	}
	return &Link{
		out:    out,
		in:     in,
		cfg:    cfg,
		seq:    NewSequencer(),
		logger: logger,
		closed: make(chan struct{}),
	}
}

func (l *Link) limits() frame.Limits {
	return frame.Limits{MaxPayloadBytes: l.cfg.MaxFrameBytes - frame.HeaderLen}
}

// Send encodes f and writes it as one datagram.
func (l *Link) Send(ctx context.Context, f frame.Frame) error {
	if err := l.usable(ctx); err != nil {
		return err
	}
	if f.Len()-frame.HeaderLen > int(l.limits().MaxPayloadBytes) {
		observability.RecordFrameError("encode")
		return frame.ErrPayloadTooLarge
	}
	buf, err := frame.Encode(f)
	if err != nil {
		observability.RecordFrameError("encode")
		return err
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	if dl, ok := deadlineFor(ctx, l.cfg.WriteTimeout); ok {
		_ = l.out.SetWriteDeadline(dl)
	}
	if _, err := l.out.Write(buf); err != nil {
		observability.RecordFrameError("write")
		return fmt.Errorf("device: write frame: %w", err)
	}
	observability.RecordFrameSent(f)
	l.logger.Debug().
		Str("type", f.Type.String()).
		Uint8("buffer", uint8(f.BufferID)).
		Uint8("seq", f.Sequence).
		Int("bytes", len(buf)).
		Msg("frame sent")
	return nil
}

// SendFeature builds a frame for role with the next sequence number of its
// buffer and sends it. The number is taken once the link is usable and the
// frame fits; a write that fails after that leaves a gap.
func (l *Link) SendFeature(ctx context.Context, t frame.Type, role builder.SendBuffer, feat command.Feature) (frame.Frame, error) {
	if err := l.usable(ctx); err != nil {
		return frame.Frame{}, err
	}
	if frame.HeaderLen+feat.Len() > int(l.cfg.MaxFrameBytes) {
		observability.RecordFrameError("encode")
		return frame.Frame{}, frame.ErrPayloadTooLarge
	}
	seq := l.seq.Next(role.BufferID())
	f := builder.NewTraced(observability.StageLogger(l.logger)).
		FrameType(t).
		Send(role).
		Feature(seq, feat)
	if err := l.Send(ctx, f); err != nil {
		return frame.Frame{}, err
	}
	return f, nil
}

// Receive reads and decodes one datagram from the device. Pings are answered
// with a pong and DataWithAck frames with an ack before the frame is returned.
func (l *Link) Receive(ctx context.Context) (frame.Frame, error) {
	if err := l.usable(ctx); err != nil {
		return frame.Frame{}, err
	}
	buf := make([]byte, l.cfg.MaxFrameBytes)

	l.readMu.Lock()
	defer l.readMu.Unlock()
	if dl, ok := deadlineFor(ctx, l.cfg.ReadTimeout); ok {
		_ = l.in.SetReadDeadline(dl)
	}
	n, from, err := l.in.ReadFrom(buf)
	if err != nil {
		select {
		case <-l.closed:
			return frame.Frame{}, ErrLinkClosed
		default:
		}
		observability.RecordFrameError("read")
		return frame.Frame{}, fmt.Errorf("device: read frame: %w", err)
	}
	f, err := frame.Decode(buf[:n])
	if err != nil {
		observability.RecordFrameError("decode")
		l.logger.Warn().Err(err).Str("from", from.String()).Int("bytes", n).Msg("dropping undecodable datagram")
		return frame.Frame{}, err
	}
	observability.RecordFrameReceived(f)
	l.logger.Debug().
		Str("type", f.Type.String()).
		Uint8("buffer", uint8(f.BufferID)).
		Uint8("seq", f.Sequence).
		Msg("frame received")
	if err := l.respond(ctx, f); err != nil {
		l.logger.Warn().Err(err).Str("buffer", f.BufferID.String()).Uint8("seq", f.Sequence).Msg("reply to device failed")
	}
	return f, nil
}

// respond sends the keepalive or acknowledgement f asks for, if any.
func (l *Link) respond(ctx context.Context, f frame.Frame) error {
	switch {
	case f.BufferID == frame.BufferPing:
		pong := builder.SendPong.BufferID()
		return l.Send(ctx, frame.Frame{
			Type:     frame.TypeData,
			BufferID: pong,
			Sequence: l.seq.Next(pong),
			Payload:  f.Payload,
		})
	case f.Type == frame.TypeDataWithAck:
		return l.Send(ctx, frame.Ack(f, l.seq.Next(frame.AckBuffer(f.BufferID))))
	}
	return nil
}

// Drain receives and discards frames until ctx ends or the link closes.
func (l *Link) Drain(ctx context.Context) error {
	for {
		if _, err := l.Receive(ctx); err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrLinkClosed) {
				return nil
			}
			if IsTransient(err) {
				continue
			}
			return err
		}
	}
}

// IsTransient reports receive errors a reader should skip: read timeouts and
// datagrams that do not decode.
func IsTransient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	for _, target := range []error{
		frame.ErrShortHeader,
		frame.ErrLengthTooSmall,
		frame.ErrLengthMismatch,
		frame.ErrPayloadTooLarge,
		frame.ErrUnknownType,
		command.ErrShortFeature,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (l *Link) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.closed)
		err = errors.Join(l.out.Close(), l.in.Close())
	})
	return err
}

func (l *Link) usable(ctx context.Context) error {
	select {
	case <-l.closed:
		return ErrLinkClosed
	default:
	}
	return ctx.Err()
}

// deadlineFor picks the earlier of the context deadline and now+timeout.
func deadlineFor(ctx context.Context, timeout time.Duration) (time.Time, bool) {
	var dl time.Time
	if timeout > 0 {
		dl = time.Now().Add(timeout)
	}
	if cdl, ok := ctx.Deadline(); ok && (dl.IsZero() || cdl.Before(dl)) {
		dl = cdl
	}
	return dl, !dl.IsZero()
}
