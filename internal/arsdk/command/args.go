package command

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
)

var (
	ErrShortArg        = errors.New("command: short argument")
	ErrUnterminatedArg = errors.New("command: string argument missing NUL terminator")
)

// ArgWriter appends little-endian command arguments.
type ArgWriter struct {
	buf []byte
}

func (w *ArgWriter) U8(v uint8) *ArgWriter {
	w.buf = append(w.buf, v)
	return w
}

func (w *ArgWriter) I8(v int8) *ArgWriter {
	return w.U8(uint8(v))
}

func (w *ArgWriter) U16(v uint16) *ArgWriter {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
	return w
}

func (w *ArgWriter) U32(v uint32) *ArgWriter {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
	return w
}

func (w *ArgWriter) I32(v int32) *ArgWriter {
	return w.U32(uint32(v))
}

func (w *ArgWriter) F32(v float32) *ArgWriter {
	return w.U32(math.Float32bits(v))
}

// String writes v followed by a NUL byte.
func (w *ArgWriter) String(v string) *ArgWriter {
	w.buf = append(w.buf, v...)
	w.buf = append(w.buf, 0)
	return w
}

func (w *ArgWriter) Bytes() []byte {
	if w.buf == nil {
		return []byte{}
	}
	return w.buf
}

// ArgReader consumes arguments written by ArgWriter.
type ArgReader struct {
	buf []byte
	off int
}

func NewArgReader(args []byte) *ArgReader {
	return &ArgReader{buf: args}
}

func (r *ArgReader) take(n int) ([]byte, error) {
	if len(r.buf)-r.off < n {
		return nil, ErrShortArg
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *ArgReader) U8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *ArgReader) I8() (int8, error) {
	v, err := r.U8()
	return int8(v), err
}

func (r *ArgReader) U16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *ArgReader) U32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *ArgReader) I32() (int32, error) {
	v, err := r.U32()
	return int32(v), err
}

func (r *ArgReader) F32() (float32, error) {
	v, err := r.U32()
	return math.Float32frombits(v), err
}

func (r *ArgReader) String() (string, error) {
	i := bytes.IndexByte(r.buf[r.off:], 0)
	if i < 0 {
		return "", ErrUnterminatedArg
	}
	s := string(r.buf[r.off : r.off+i])
	r.off += i + 1
	return s, nil
}

// Remaining returns the number of unread bytes.
func (r *ArgReader) Remaining() int {
	return len(r.buf) - r.off
}
