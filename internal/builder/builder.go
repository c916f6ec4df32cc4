package builder

import (
	"fmt"
	"sync/atomic"

	"github.com/danmuck/sumoctl/internal/arsdk/command"
	"github.com/danmuck/sumoctl/internal/arsdk/frame"
)

// Stage is implemented by every intermediate construction state.
type Stage interface {
	fmt.Stringer
	isStage()
}

// MisuseError reports a stage that was reused or never produced by New.
type MisuseError struct {
	Stage  string
	Op     string
	Reason string
}

func (e *MisuseError) Error() string {
	return fmt.Sprintf("builder: %s.%s: %s", e.Stage, e.Op, e.Reason)
}

type token struct {
	used atomic.Bool
}

// chain is the single-use guard and optional observer shared by every stage.
type chain struct {
	tok *token
	obs Observer
}

func (c chain) advance(stage, op string) chain {
	if c.tok == nil {
		panic(&MisuseError{Stage: stage, Op: op, Reason: "stage was not produced by builder.New"})
	}
	if !c.tok.used.CompareAndSwap(false, true) {
		panic(&MisuseError{Stage: stage, Op: op, Reason: "stage already consumed"})
	}
	return chain{tok: new(token), obs: c.obs}
}

func (c chain) emit(from Stage, op string, to Stage, f *frame.Frame) {
	if c.obs == nil {
		return
	}
	c.obs.Observe(Transition{From: from.String(), Op: op, To: to, Frame: f})
}

// Start is the empty builder.
type Start struct {
	c chain
}

// New returns a fresh builder.
func New() Start {
	return Start{c: chain{tok: new(token)}}
}

// NewTraced returns a fresh builder that reports every transition to obs.
func NewTraced(obs Observer) Start {
	return Start{c: chain{tok: new(token), obs: obs}}
}

func (Start) isStage() {}

func (Start) String() string { return "Start" }

// FrameType sets the delivery semantics.
func (s Start) FrameType(t frame.Type) TypeSet {
	next := TypeSet{c: s.c.advance("Start", "FrameType"), frameType: t}
	s.c.emit(s, "FrameType", next, nil)
	return next
}

// TypeSet holds a frame type and waits for a buffer.
type TypeSet struct {
	c         chain
	frameType frame.Type
}

func (TypeSet) isStage() {}

func (s TypeSet) String() string {
	return fmt.Sprintf("TypeSet{type=%s}", s.frameType)
}

// BufferID selects a raw buffer directly.
func (s TypeSet) BufferID(id frame.BufferID) BufferSet {
	next := BufferSet{c: s.c.advance("TypeSet", "BufferID"), frameType: s.frameType, bufferID: id}
	s.c.emit(s, "BufferID", next, nil)
	return next
}

// Send selects the buffer for a controller-to-device role.
func (s TypeSet) Send(role SendBuffer) SendReady {
	next := SendReady{c: s.c.advance("TypeSet", "Send"), frameType: s.frameType, role: role}
	s.c.emit(s, "Send", next, nil)
	return next
}

// Receive selects the buffer for a device-to-controller role.
func (s TypeSet) Receive(role ReceiveBuffer) ReceiveReady {
	next := ReceiveReady{c: s.c.advance("TypeSet", "Receive"), frameType: s.frameType, role: role}
	s.c.emit(s, "Receive", next, nil)
	return next
}

// BufferSet holds a type and a raw buffer id.
type BufferSet struct {
	c         chain
	frameType frame.Type
	bufferID  frame.BufferID
}

func (BufferSet) isStage() {}

func (s BufferSet) String() string {
	return fmt.Sprintf("BufferSet{type=%s buffer=%s}", s.frameType, s.bufferID)
}

// Feature attaches f and seq and returns the frame on the raw buffer.
func (s BufferSet) Feature(seq uint8, f command.Feature) frame.Frame {
	s.c.advance("BufferSet", "Feature")
	out := assemble(s.frameType, s.bufferID, seq, f)
	s.c.emit(s, "Feature", nil, &out)
	return out
}

// SendReady holds a type and a send role.
type SendReady struct {
	c         chain
	frameType frame.Type
	role      SendBuffer
}

func (SendReady) isStage() {}

func (s SendReady) String() string {
	return fmt.Sprintf("SendReady{type=%s role=%s buffer=%d}", s.frameType, s.role, uint8(s.role.BufferID()))
}

// Feature attaches f and seq and returns the frame on the role's send buffer.
func (s SendReady) Feature(seq uint8, f command.Feature) frame.Frame {
	s.c.advance("SendReady", "Feature")
	out := assemble(s.frameType, s.role.BufferID(), seq, f)
	s.c.emit(s, "Feature", nil, &out)
	return out
}

// ReceiveReady holds a type and a receive role.
type ReceiveReady struct {
	c         chain
	frameType frame.Type
	role      ReceiveBuffer
}

func (ReceiveReady) isStage() {}

func (s ReceiveReady) String() string {
	return fmt.Sprintf("ReceiveReady{type=%s role=%s buffer=%d}", s.frameType, s.role, uint8(s.role.BufferID()))
}

// Feature attaches f and seq and returns the frame on the role's receive buffer.
func (s ReceiveReady) Feature(seq uint8, f command.Feature) frame.Frame {
	s.c.advance("ReceiveReady", "Feature")
	out := assemble(s.frameType, s.role.BufferID(), seq, f)
	s.c.emit(s, "Feature", nil, &out)
	return out
}

func assemble(t frame.Type, id frame.BufferID, seq uint8, f command.Feature) frame.Frame {
	return frame.Frame{
		Type:     t,
		BufferID: id,
		Sequence: seq,
		Feature:  &f,
	}
}
