package device

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
)

var (
	ErrHandshakeRejected = errors.New("device: handshake rejected")
	ErrHandshakeReply    = errors.New("device: malformed handshake reply")
)

type handshakeRequest struct {
	ControllerType string `json:"controller_type"`
	ControllerName string `json:"controller_name"`
	D2CPort        int    `json:"d2c_port"`
}

// Session is the device's discovery reply.
type Session struct {
	Status                int `json:"status"`
	C2DPort               int `json:"c2d_port"`
	FragmentSize          int `json:"arstream_fragment_size"`
	FragmentMaximumNumber int `json:"arstream_fragment_maximum_number"`
	MaxAckInterval        int `json:"arstream_max_ack_interval"`
	C2DUpdatePort         int `json:"c2d_update_port"`
	C2DUserPort           int `json:"c2d_user_port"`
}

// Handshake performs TCP discovery and returns the negotiated session.
func Handshake(ctx context.Context, cfg Config) (Session, error) {
	addr := net.JoinHostPort(cfg.Addr, strconv.Itoa(cfg.DiscoveryPort))
	d := net.Dialer{Timeout: cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return Session{}, fmt.Errorf("device: discovery dial %s: %w", addr, err)
	}
	defer conn.Close()

	if dl, ok := deadlineFor(ctx, cfg.DialTimeout); ok {
		_ = conn.SetDeadline(dl)
	}
	return exchange(conn, handshakeRequest{
		ControllerType: cfg.ControllerType,
		ControllerName: cfg.ControllerID(),
		D2CPort:        cfg.D2CPort,
	})
}

func exchange(rw io.ReadWriter, req handshakeRequest) (Session, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Session{}, err
	}
	if _, err := rw.Write(body); err != nil {
		return Session{}, fmt.Errorf("device: discovery write: %w", err)
	}

	raw, err := bufio.NewReader(rw).ReadBytes(0)
	if err != nil && !(errors.Is(err, io.EOF) && len(raw) > 0) {
		return Session{}, fmt.Errorf("device: discovery read: %w", err)
	}
	raw = bytes.TrimRight(raw, "\x00")

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrHandshakeReply, err)
	}
	if s.Status != 0 {
		return s, fmt.Errorf("%w: status=%d", ErrHandshakeRejected, s.Status)
	}
	if s.C2DPort <= 0 || s.C2DPort > 65535 {
		return s, fmt.Errorf("%w: c2d_port=%d", ErrHandshakeReply, s.C2DPort)
	}
	return s, nil
}
