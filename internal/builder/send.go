package builder

import (
	"fmt"
	"strings"

	"github.com/danmuck/sumoctl/internal/arsdk/frame"
)

// SendBuffer names a controller-to-device buffer by purpose.
type SendBuffer uint8

const (
	SendPong SendBuffer = iota
	SendNoAck
	SendAck
	SendEmergency
	SendVideoAck

	sendBufferCount
)

// Controller-to-device raw ids. Keep apart from receiveTable: SendAck and
// ReceiveAck map to different buffers.
var sendTable = [sendBufferCount]struct {
	name string
	id   frame.BufferID
}{
	SendPong:      {"pong", frame.BufferPong},             // 1
	SendNoAck:     {"no_ack", frame.BufferCDNonAck},       // 10
	SendAck:       {"ack", frame.BufferCDAck},             // 11
	SendEmergency: {"emergency", frame.BufferCDEmergency}, // 12
	SendVideoAck:  {"video_ack", frame.BufferCDVideoAck},  // 13
}

// SendBuffers lists every send role in table order.
func SendBuffers() []SendBuffer {
	out := make([]SendBuffer, 0, sendBufferCount)
	for r := SendBuffer(0); r < sendBufferCount; r++ {
		out = append(out, r)
	}
	return out
}

// Valid reports whether r is a known send role.
func (r SendBuffer) Valid() bool {
	return r < sendBufferCount
}

// BufferID returns the raw id for the role.
func (r SendBuffer) BufferID() frame.BufferID {
	if !r.Valid() {
		return 0
	}
	return sendTable[r].id
}

func (r SendBuffer) String() string {
	if !r.Valid() {
		return fmt.Sprintf("send(%d)", uint8(r))
	}
	return sendTable[r].name
}

// ParseSendBuffer returns the role named s, as printed by String.
func ParseSendBuffer(s string) (SendBuffer, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for r := SendBuffer(0); r < sendBufferCount; r++ {
		if sendTable[r].name == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("builder: unknown send buffer %q", s)
}
