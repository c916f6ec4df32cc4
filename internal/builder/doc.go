// Package builder assembles ARSDK frames through a fixed sequence of stages.
//
// Each stage is its own type and only exposes the operation that is legal at
// that point, so an out-of-order chain does not compile:
//
//	f := builder.New().
//		FrameType(frame.TypeDataWithAck).
//		Send(builder.SendAck).
//		Feature(seq, jumpingsumo.Jump(jumpingsumo.JumpLong))
//
// Stages are single use. Advancing a stage a second time, or advancing a
// zero-value stage that was not produced by New, panics with a *MisuseError.
//
// The send and receive role tables are immutable and safe to share between
// goroutines. A single chain is owned by its caller.
package builder
