package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/sumoctl/internal/arsdk/command"
)

// HeaderLen is type(1) + buffer(1) + sequence(1) + length(4).
const HeaderLen = 7

var (
	ErrShortHeader     = errors.New("frame: short header")
	ErrLengthTooSmall  = errors.New("frame: length smaller than header")
	ErrLengthMismatch  = errors.New("frame: length field does not match data")
	ErrPayloadTooLarge = errors.New("frame: payload too large")
	ErrUnknownType     = errors.New("frame: unknown type")
)

// Type is the delivery semantics of a frame.
type Type uint8

const (
	TypeAck         Type = 1
	TypeData        Type = 2
	TypeLowLatency  Type = 3
	TypeDataWithAck Type = 4
)

func (t Type) Valid() bool {
	return t >= TypeAck && t <= TypeDataWithAck
}

func (t Type) String() string {
	switch t {
	case TypeAck:
		return "ack"
	case TypeData:
		return "data"
	case TypeLowLatency:
		return "low_latency"
	case TypeDataWithAck:
		return "data_with_ack"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// ParseType accepts the String form or the raw number.
func ParseType(s string) (Type, error) {
	for _, t := range []Type{TypeAck, TypeData, TypeLowLatency, TypeDataWithAck} {
		if s == t.String() {
			return t, nil
		}
	}
	var n uint8
	if _, err := fmt.Sscanf(s, "%d", &n); err == nil && Type(n).Valid() {
		return Type(n), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// BufferID is the raw channel a frame travels on.
type BufferID uint8

const (
	BufferPing               BufferID = 0
	BufferPong               BufferID = 1
	BufferCDNonAck           BufferID = 10
	BufferCDAck              BufferID = 11
	BufferCDEmergency        BufferID = 12
	BufferCDVideoAck         BufferID = 13
	BufferDCVideo            BufferID = 125
	BufferDCEvent            BufferID = 126
	BufferDCNavdata          BufferID = 127
	BufferACKFromSendWithAck BufferID = 139
)

func (b BufferID) String() string {
	switch b {
	case BufferPing:
		return "ping"
	case BufferPong:
		return "pong"
	case BufferCDNonAck:
		return "cd_non_ack"
	case BufferCDAck:
		return "cd_ack"
	case BufferCDEmergency:
		return "cd_emergency"
	case BufferCDVideoAck:
		return "cd_video_ack"
	case BufferDCVideo:
		return "dc_video"
	case BufferDCEvent:
		return "dc_event"
	case BufferDCNavdata:
		return "dc_navdata"
	case BufferACKFromSendWithAck:
		return "ack_from_send_with_ack"
	default:
		return fmt.Sprintf("buffer(%d)", uint8(b))
	}
}

// AckOffset is added to a buffer id to name the buffer its acks travel on.
const AckOffset = 0x80

// Frame is one complete wire message. Feature carries command frames; Payload
// carries the raw body of acks, pings and pongs. Encode prefers Feature.
type Frame struct {
	Type     Type
	BufferID BufferID
	Sequence uint8
	Feature  *command.Feature
	Payload  []byte
}

// RawPayload reports whether frames of type t on id hold a raw body instead
// of a command feature.
func RawPayload(t Type, id BufferID) bool {
	return t == TypeAck || id == BufferPing || id == BufferPong
}

// AckBuffer returns the buffer acks for frames on id are sent on.
func AckBuffer(id BufferID) BufferID {
	return id + AckOffset
}

// Ack builds the acknowledgement of f, to be sent with sequence seq.
func Ack(f Frame, seq uint8) Frame {
	return Frame{
		Type:     TypeAck,
		BufferID: AckBuffer(f.BufferID),
		Sequence: seq,
		Payload:  []byte{f.Sequence},
	}
}

// AckedSequence returns the sequence number an ack frame acknowledges.
func (f Frame) AckedSequence() (uint8, bool) {
	if f.Type != TypeAck || len(f.Payload) != 1 {
		return 0, false
	}
	return f.Payload[0], true
}

// Len returns the total encoded size, header included.
func (f Frame) Len() int {
	if f.Feature != nil {
		return HeaderLen + f.Feature.Len()
	}
	return HeaderLen + len(f.Payload)
}

// Equal compares frames field by field, including the feature payload.
func (f Frame) Equal(o Frame) bool {
	if f.Type != o.Type || f.BufferID != o.BufferID || f.Sequence != o.Sequence {
		return false
	}
	if f.Feature == nil || o.Feature == nil {
		return f.Feature == nil && o.Feature == nil && bytes.Equal(f.Payload, o.Payload)
	}
	return f.Feature.Equal(*o.Feature)
}

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxPayloadBytes uint32
}

func DefaultLimits() Limits {
	return Limits{MaxPayloadBytes: 64 * 1024}
}

// Encode returns the wire form of f.
func Encode(f Frame) ([]byte, error) {
	if !f.Type.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, uint8(f.Type))
	}
	buf := make([]byte, f.Len())
	buf[0] = uint8(f.Type)
	buf[1] = uint8(f.BufferID)
	buf[2] = f.Sequence
	binary.LittleEndian.PutUint32(buf[3:7], uint32(len(buf)))
	if f.Feature != nil {
		copy(buf[HeaderLen:], f.Feature.Encode())
	} else {
		copy(buf[HeaderLen:], f.Payload)
	}
	return buf, nil
}

// Decode parses exactly one frame from b.
func Decode(b []byte) (Frame, error) {
	h, err := decodeHeader(b)
	if err != nil {
		return Frame{}, err
	}
	if int(h.length) != len(b) {
		return Frame{}, fmt.Errorf("%w: field=%d data=%d", ErrLengthMismatch, h.length, len(b))
	}
	return h.frame(b[HeaderLen:])
}

func WriteFrame(w io.Writer, f Frame, limits Limits) error {
	if f.Len()-HeaderLen > int(limits.MaxPayloadBytes) {
		return ErrPayloadTooLarge
	}
	buf, err := Encode(f)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

func ReadFrame(r io.Reader, limits Limits) (Frame, error) {
	var fixed [HeaderLen]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return Frame{}, ErrShortHeader
		}
		return Frame{}, err
	}
	h, err := decodeHeader(fixed[:])
	if err != nil {
		return Frame{}, err
	}
	payloadLen := h.length - HeaderLen
	if payloadLen > limits.MaxPayloadBytes {
		return Frame{}, ErrPayloadTooLarge
	}
	payload := make([]byte, payloadLen)
	if payloadLen > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Frame{}, fmt.Errorf("%w: %v", ErrLengthMismatch, err)
		}
	}
	return h.frame(payload)
}

type header struct {
	typ      Type
	buffer   BufferID
	sequence uint8
	length   uint32
}

func decodeHeader(b []byte) (header, error) {
	if len(b) < HeaderLen {
		return header{}, ErrShortHeader
	}
	h := header{
		typ:      Type(b[0]),
		buffer:   BufferID(b[1]),
		sequence: b[2],
		length:   binary.LittleEndian.Uint32(b[3:7]),
	}
	if !h.typ.Valid() {
		return header{}, fmt.Errorf("%w: %d", ErrUnknownType, b[0])
	}
	if h.length < HeaderLen {
		return header{}, ErrLengthTooSmall
	}
	return h, nil
}

func (h header) frame(payload []byte) (Frame, error) {
	f := Frame{Type: h.typ, BufferID: h.buffer, Sequence: h.sequence}
	if len(payload) == 0 {
		return f, nil
	}
	if RawPayload(h.typ, h.buffer) {
		f.Payload = append([]byte(nil), payload...)
		return f, nil
	}
	feat, err := command.Decode(payload)
	if err != nil {
		return Frame{}, err
	}
	f.Feature = &feat
	return f, nil
}
