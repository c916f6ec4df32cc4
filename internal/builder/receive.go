package builder

import (
	"fmt"
	"strings"

	"github.com/danmuck/sumoctl/internal/arsdk/frame"
)

// ReceiveBuffer names a device-to-controller buffer by purpose.
type ReceiveBuffer uint8

const (
	ReceivePing ReceiveBuffer = iota
	ReceiveVideo
	ReceiveEvent
	ReceiveNavdata
	ReceiveAck

	receiveBufferCount
)

// Device-to-controller raw ids.
var receiveTable = [receiveBufferCount]struct {
	name string
	id   frame.BufferID
}{
	ReceivePing:    {"ping", frame.BufferPing},              // 0
	ReceiveVideo:   {"video", frame.BufferDCVideo},          // 125
	ReceiveEvent:   {"event", frame.BufferDCEvent},          // 126
	ReceiveNavdata: {"navdata", frame.BufferDCNavdata},      // 127
	ReceiveAck:     {"ack", frame.BufferACKFromSendWithAck}, // 139
}

// ReceiveBuffers lists every receive role in table order.
func ReceiveBuffers() []ReceiveBuffer {
	out := make([]ReceiveBuffer, 0, receiveBufferCount)
	for r := ReceiveBuffer(0); r < receiveBufferCount; r++ {
		out = append(out, r)
	}
	return out
}

// Valid reports whether r is a known receive role.
func (r ReceiveBuffer) Valid() bool {
	return r < receiveBufferCount
}

// BufferID returns the raw id for the role.
func (r ReceiveBuffer) BufferID() frame.BufferID {
	if !r.Valid() {
		return 0
	}
	return receiveTable[r].id
}

func (r ReceiveBuffer) String() string {
	if !r.Valid() {
		return fmt.Sprintf("receive(%d)", uint8(r))
	}
	return receiveTable[r].name
}

// ParseReceiveBuffer returns the role named s, as printed by String.
func ParseReceiveBuffer(s string) (ReceiveBuffer, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for r := ReceiveBuffer(0); r < receiveBufferCount; r++ {
		if receiveTable[r].name == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("builder: unknown receive buffer %q", s)
}
